package analyzer

import (
	"math"

	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// AnalyzeAdvanced runs the base analysis over several windows at once and
// layers slower-moving signals on top: quadratic fits, moving averages,
// change points and capacity forecasts. The extra passes run against the
// primary window, the longest one that actually holds data.
func (a *Analyzer) AnalyzeAdvanced(windows []*models.HistoricalWindow) *models.AdvancedAnalysis {
	adv := &models.AdvancedAnalysis{
		Windows:        map[int]*models.Analysis{},
		Quadratic:      map[string]models.QuadraticFit{},
		MovingAverages: map[string][]models.MovingAverageResult{},
		ChangePoints:   map[string][]models.ChangePoint{},
		Forecasts:      map[string]models.CapacityForecast{},
	}

	var primary *models.HistoricalWindow
	for _, w := range windows {
		if w == nil {
			continue
		}
		if adv.ClusterID == "" {
			adv.ClusterID = w.ClusterID
		}
		adv.Windows[w.PeriodDays] = a.Analyze(w)
		if !w.Empty() && (primary == nil || w.PeriodDays > primary.PeriodDays) {
			primary = w
		}
	}
	if primary == nil {
		return adv
	}

	for _, name := range sortedMetricNames(primary) {
		series := cleanSeries(primary.Series(name))
		if len(series) == 0 {
			continue
		}
		if fit := a.quadraticFit(series); fit.Confidence > 0 {
			adv.Quadratic[name] = fit
		}
		if mas := a.movingAverages(series); len(mas) > 0 {
			adv.MovingAverages[name] = mas
		}
		if cps := a.changePoints(series); len(cps) > 0 {
			adv.ChangePoints[name] = cps
		}
		if fc := a.forecast(name, primary.PeriodDays, series); fc.HorizonDays > 0 {
			adv.Forecasts[name] = fc
		}
	}

	if primaryAnalysis, ok := adv.Windows[primary.PeriodDays]; ok {
		adv.OverallConfidence = overallConfidence(primaryAnalysis)
	}

	a.log.Info("advanced analysis complete",
		zap.String("cluster_id", adv.ClusterID),
		zap.Int("windows", len(adv.Windows)),
		zap.Int("primary_days", primary.PeriodDays),
		zap.Float64("overall_confidence", adv.OverallConfidence))

	return adv
}

// overallConfidence averages the four analysis sub-scores.
func overallConfidence(analysis *models.Analysis) float64 {
	keys := []string{"patterns", "trends", "anomalies", "business_hours"}
	sum := 0.0
	for _, k := range keys {
		sum += analysis.ConfidenceScores[k]
	}
	return sum / float64(len(keys))
}

// quadraticFit solves the least-squares parabola y = ax² + bx + c over the
// sample index, to catch acceleration a straight line misses.
func (a *Analyzer) quadraticFit(series []models.MetricPoint) models.QuadraticFit {
	if len(series) < 2*a.cfg.MinTrendPoints {
		return models.QuadraticFit{}
	}

	n := float64(len(series))
	var s1, s2, s3, s4, sy, sxy, sx2y float64
	for i, p := range series {
		x := float64(i)
		x2 := x * x
		s1 += x
		s2 += x2
		s3 += x2 * x
		s4 += x2 * x2
		sy += p.Value
		sxy += x * p.Value
		sx2y += x2 * p.Value
	}

	// Normal equations, solved by Cramer's rule.
	det := det3(n, s1, s2, s1, s2, s3, s2, s3, s4)
	if math.Abs(det) < 1e-9 {
		return models.QuadraticFit{}
	}
	c := det3(sy, s1, s2, sxy, s2, s3, sx2y, s3, s4) / det
	b := det3(n, sy, s2, s1, sxy, s3, s2, sx2y, s4) / det
	qa := det3(n, s1, sy, s1, s2, sxy, s2, s3, sx2y) / det

	meanY := sy / n
	ssTotal := 0.0
	ssRes := 0.0
	for i, p := range series {
		x := float64(i)
		predicted := qa*x*x + b*x + c
		ssRes += (p.Value - predicted) * (p.Value - predicted)
		ssTotal += (p.Value - meanY) * (p.Value - meanY)
	}
	r2 := 0.0
	if ssTotal > 0 {
		r2 = clamp(1.0-ssRes/ssTotal, 0, 1)
	}

	curvature := "flat"
	if qa > a.cfg.TrendDeadband {
		curvature = "accelerating"
	} else if qa < -a.cfg.TrendDeadband {
		curvature = "decelerating"
	}

	return models.QuadraticFit{
		A:          qa,
		B:          b,
		C:          c,
		R2:         r2,
		Curvature:  curvature,
		Confidence: clamp(r2*100, 0, 100),
	}
}

func det3(a, b, c, d, e, f, g, h, i float64) float64 {
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}

// movingAverages smooths the series at each configured window size that
// fits, reporting the latest smoothed value against the smoothed mean.
func (a *Analyzer) movingAverages(series []models.MetricPoint) []models.MovingAverageResult {
	var results []models.MovingAverageResult
	for _, size := range a.cfg.MovingAverageWindows {
		if size <= 0 || size > len(series) {
			continue
		}

		sum := 0.0
		for i := 0; i < size; i++ {
			sum += series[i].Value
		}
		ma := sum / float64(size)
		maSum := ma
		maCount := 1
		for i := size; i < len(series); i++ {
			sum += series[i].Value - series[i-size].Value
			ma = sum / float64(size)
			maSum += ma
			maCount++
		}

		results = append(results, models.MovingAverageResult{
			WindowPoints: size,
			Latest:       ma,
			Mean:         maSum / float64(maCount),
		})
	}
	return results
}

// changePoints scans for sustained level shifts by comparing the mean of
// fixed-size segments either side of each candidate point. After a hit the
// scan jumps a full segment so one shift is not reported repeatedly.
func (a *Analyzer) changePoints(series []models.MetricPoint) []models.ChangePoint {
	seg := a.cfg.ChangePointSegment
	if seg <= 0 || len(series) < 2*seg {
		return nil
	}

	var points []models.ChangePoint
	for i := seg; i+seg <= len(series); i++ {
		before := segmentMean(series[i-seg : i])
		after := segmentMean(series[i : i+seg])

		base := math.Abs(before)
		var rel float64
		switch {
		case base > 0:
			rel = math.Abs(after-before) / base
		case after != 0:
			rel = 1
		default:
			continue
		}
		if rel < a.cfg.ChangePointMinShift {
			continue
		}

		points = append(points, models.ChangePoint{
			Timestamp:      series[i].Timestamp,
			BeforeMean:     before,
			AfterMean:      after,
			RelativeChange: rel,
			Confidence:     clamp(rel/a.cfg.ChangePointMinShift*50, 0, 100),
		})
		i += seg - 1
	}
	return points
}

func segmentMean(series []models.MetricPoint) float64 {
	sum := 0.0
	for _, p := range series {
		sum += p.Value
	}
	return sum / float64(len(series))
}

// forecast extrapolates the fitted growth rate a fixed horizon forward. The
// projection floors at zero; shrinking usage does not go negative.
func (a *Analyzer) forecast(metric string, periodDays int, series []models.MetricPoint) models.CapacityForecast {
	if len(series) < a.cfg.MinTrendPoints || periodDays <= 0 {
		return models.CapacityForecast{}
	}

	x := make([]float64, len(series))
	y := make([]float64, len(series))
	for i, p := range series {
		x[i] = float64(i)
		y[i] = p.Value
	}
	slope, _, r2 := linearRegression(x, y)

	samplesPerDay := float64(len(series)) / float64(periodDays)
	dailyDelta := slope * samplesPerDay

	current := calculateAverage(y)
	projected := current + dailyDelta*float64(a.cfg.ForecastHorizonDays)
	if projected < 0 {
		projected = 0
	}

	dailyGrowthRate := 0.0
	if current > 0 {
		dailyGrowthRate = dailyDelta / current
	}

	return models.CapacityForecast{
		Metric:          metric,
		HorizonDays:     a.cfg.ForecastHorizonDays,
		CurrentValue:    current,
		ProjectedValue:  projected,
		DailyGrowthRate: dailyGrowthRate,
		Confidence:      clamp(r2*100, 0, 100),
	}
}
