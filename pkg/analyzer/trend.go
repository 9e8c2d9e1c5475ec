package analyzer

import "github.com/clustermind/k8s-resource-advisor/pkg/models"

// AnalyzeTrend fits an ordinary least-squares line to the series against its
// sample index. Direction classification applies a dead-band around zero
// slope so noise on a flat series does not read as growth. Confidence is the
// fit quality R² scaled to [0,100].
func (a *Analyzer) AnalyzeTrend(series []models.MetricPoint) models.TrendResult {
	if len(series) < a.cfg.MinTrendPoints {
		return models.TrendResult{Direction: models.TrendStable}
	}

	x := make([]float64, len(series))
	y := make([]float64, len(series))
	for i, p := range series {
		x[i] = float64(i)
		y[i] = p.Value
	}

	slope, intercept, r2 := linearRegression(x, y)

	direction := models.TrendStable
	if slope > a.cfg.TrendDeadband {
		direction = models.TrendIncreasing
	} else if slope < -a.cfg.TrendDeadband {
		direction = models.TrendDecreasing
	}

	return models.TrendResult{
		Slope:      slope,
		Intercept:  intercept,
		R2:         r2,
		Direction:  direction,
		Confidence: clamp(r2*100, 0, 100),
	}
}

// linearRegression performs simple linear regression
// Returns: slope, intercept, R² (coefficient of determination)
func linearRegression(x, y []float64) (slope, intercept, r2 float64) {
	n := float64(len(x))

	if n == 0 {
		return 0, 0, 0
	}

	// Calculate means
	meanX := calculateAverage(x)
	meanY := calculateAverage(y)

	// Calculate slope (m) and intercept (b)
	numerator := 0.0
	denominator := 0.0

	for i := 0; i < len(x); i++ {
		numerator += (x[i] - meanX) * (y[i] - meanY)
		denominator += (x[i] - meanX) * (x[i] - meanX)
	}

	if denominator == 0 {
		return 0, meanY, 0
	}

	slope = numerator / denominator
	intercept = meanY - slope*meanX

	// Calculate R² (coefficient of determination)
	ssTotal := 0.0 // Total sum of squares
	ssRes := 0.0   // Residual sum of squares

	for i := 0; i < len(x); i++ {
		predicted := slope*x[i] + intercept
		ssRes += (y[i] - predicted) * (y[i] - predicted)
		ssTotal += (y[i] - meanY) * (y[i] - meanY)
	}

	if ssTotal == 0 {
		r2 = 0
	} else {
		r2 = 1.0 - (ssRes / ssTotal)
	}

	// Clamp R² between 0 and 1
	if r2 < 0 {
		r2 = 0
	} else if r2 > 1 {
		r2 = 1
	}

	return slope, intercept, r2
}
