// Package analyzer turns historical metric windows into findings: trends,
// seasonal patterns, anomalies, volatility bands and idle periods. All
// detection is pure computation over the window it is handed; results are
// recomputed per call and never persisted.
package analyzer

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/config"
	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// Analyzer runs the detection passes with thresholds from the analysis
// policy table.
type Analyzer struct {
	cfg config.AnalysisConfig
	log *zap.Logger
}

// New creates an analyzer. A nil config uses the default policy; a nil
// logger disables logging.
func New(cfg *config.AnalysisConfig, logger *zap.Logger) *Analyzer {
	if cfg == nil {
		cfg = &config.Default().Analysis
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: *cfg, log: logger}
}

// Analyze runs every detection pass over each series in the window and
// derives recommendations from the findings. An empty window degrades to an
// empty analysis with zero confidence rather than an error.
func (a *Analyzer) Analyze(window *models.HistoricalWindow) *models.Analysis {
	analysis := &models.Analysis{
		Trends:           map[string]models.TrendResult{},
		Seasonal:         map[string]models.SeasonalResult{},
		Anomalies:        map[string][]models.Anomaly{},
		Volatility:       map[string]models.VolatilityResult{},
		Idle:             map[string]models.IdleResult{},
		Stats:            map[string]models.WindowStats{},
		ConfidenceScores: map[string]float64{},
	}
	if window != nil {
		analysis.ClusterID = window.ClusterID
		analysis.PeriodDays = window.PeriodDays
		analysis.Start = window.Start
		analysis.End = window.End
	}
	if window.Empty() {
		a.log.Debug("empty window, skipping analysis",
			zap.String("cluster_id", analysis.ClusterID),
			zap.Int("period_days", analysis.PeriodDays))
		return analysis
	}

	totalPoints := 0
	for _, name := range sortedMetricNames(window) {
		series := cleanSeries(window.Series(name))
		if len(series) == 0 {
			continue
		}
		totalPoints += len(series)

		analysis.Trends[name] = a.AnalyzeTrend(series)
		analysis.Seasonal[name] = a.DetectSeasonalPattern(series)
		analysis.Volatility[name] = a.AnalyzeVolatility(series)
		analysis.Idle[name] = a.DetectIdlePeriods(series)
		analysis.Stats[name] = WindowStats(series)

		if anomalies := a.DetectAnomalies(series); len(anomalies) > 0 {
			analysis.Anomalies[name] = anomalies
		}
	}

	analysis.ConfidenceScores["trends"] = meanConfidence(analysis.Trends, func(r models.TrendResult) float64 { return r.Confidence })
	analysis.ConfidenceScores["patterns"] = meanConfidence(analysis.Volatility, func(r models.VolatilityResult) float64 { return r.Confidence })
	analysis.ConfidenceScores["business_hours"] = meanConfidence(analysis.Seasonal, func(r models.SeasonalResult) float64 { return r.Confidence })
	analysis.ConfidenceScores["anomalies"] = a.dataQuality(totalPoints, analysis.PeriodDays) * 100

	analysis.Recommendations = a.recommend(analysis)

	a.log.Info("analysis complete",
		zap.String("cluster_id", analysis.ClusterID),
		zap.Int("period_days", analysis.PeriodDays),
		zap.Int("points", totalPoints),
		zap.Int("recommendations", len(analysis.Recommendations)))

	return analysis
}

// dataQuality scores how complete the window is against the expected hourly
// cadence. Drives the anomaly confidence sub-score: anomalies flagged in a
// sparse window deserve less trust.
func (a *Analyzer) dataQuality(points, periodDays int) float64 {
	if periodDays <= 0 || points <= 0 {
		return 0
	}
	expected := float64(periodDays * 24)
	quality := float64(points) / expected
	if quality > 1 {
		quality = 1
	}
	return quality
}

// cleanSeries drops non-finite values so a single bad scrape cannot poison
// the statistics downstream.
func cleanSeries(series []models.MetricPoint) []models.MetricPoint {
	clean := series[:0:0]
	for _, p := range series {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		clean = append(clean, p)
	}
	return clean
}

func sortedMetricNames(window *models.HistoricalWindow) []string {
	names := make([]string, 0, len(window.Metrics))
	for name := range window.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func meanConfidence[R any](results map[string]R, confidence func(R) float64) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += confidence(r)
	}
	return sum / float64(len(results))
}

func seriesValues(series []models.MetricPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
