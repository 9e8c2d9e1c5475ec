package analyzer

import (
	"math"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// AnalyzeVolatility classifies a series by its coefficient of variation.
// High CV = spiky workload, low CV = steady workload. The fixed confidence
// per band reflects how unambiguous that classification is.
func (a *Analyzer) AnalyzeVolatility(series []models.MetricPoint) models.VolatilityResult {
	if len(series) < 2 {
		return models.VolatilityResult{Band: models.VolatilityLow}
	}

	vals := seriesValues(series)
	mean := calculateAverage(vals)
	stdDev := calculateStdDev(vals, mean)

	cv := 0.0
	if mean != 0 {
		cv = stdDev / math.Abs(mean)
	}

	var band models.VolatilityBand
	var confidence float64
	switch {
	case cv < a.cfg.VolatilityLowMax:
		band = models.VolatilityLow
		confidence = 95
	case cv < a.cfg.VolatilityMediumMax:
		band = models.VolatilityMedium
		confidence = 85
	default:
		band = models.VolatilityHigh
		confidence = 75
	}

	return models.VolatilityResult{
		Mean:       mean,
		StdDev:     stdDev,
		CV:         cv,
		Band:       band,
		Confidence: confidence,
	}
}
