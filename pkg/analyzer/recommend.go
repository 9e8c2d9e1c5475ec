package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// recommend derives follow-ups from the findings. Rules run in a fixed order
// over metrics sorted by name, so the same analysis always produces the same
// recommendation list. Each recommendation inherits the confidence of the
// finding that triggered it.
func (a *Analyzer) recommend(analysis *models.Analysis) []models.Recommendation {
	metrics := make([]string, 0, len(analysis.Stats))
	for name := range analysis.Stats {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	var recs []models.Recommendation
	for _, metric := range metrics {
		if idle, ok := analysis.Idle[metric]; ok && idle.Significant {
			recs = append(recs, models.Recommendation{
				Type:   models.RecommendScaleToZero,
				Metric: metric,
				Reason: fmt.Sprintf("idle %.0f%% of the window (longest run %d samples)",
					idle.IdleFraction*100, idle.LongestRun),
				Confidence:      idle.Confidence,
				SavingsFraction: idle.IdleFraction,
			})
		}

		if seasonal, ok := analysis.Seasonal[metric]; ok && seasonal.HourlyPattern {
			recs = append(recs, models.Recommendation{
				Type:   models.RecommendTimeBasedScaling,
				Metric: metric,
				Reason: fmt.Sprintf("business hours run %.1fx hotter than off hours (%.1f vs %.1f)",
					seasonal.HourlyRatio, seasonal.BusinessHoursMean, seasonal.OffHoursMean),
				Confidence:      seasonal.Confidence,
				SavingsFraction: a.offHoursSavings(seasonal),
			})
		}

		if trend, ok := analysis.Trends[metric]; ok &&
			trend.Direction == models.TrendIncreasing &&
			trend.Confidence >= a.cfg.StrongTrendConfidence {
			recs = append(recs, models.Recommendation{
				Type:   models.RecommendCapacityPlanning,
				Metric: metric,
				Reason: fmt.Sprintf("sustained growth of %.3f per sample (R²=%.2f), plan capacity ahead",
					trend.Slope, trend.R2),
				Confidence: trend.Confidence,
			})
		}

		if vol, ok := analysis.Volatility[metric]; ok && vol.Band == models.VolatilityLow &&
			strings.Contains(metric, "utilization") {
			if stats, ok := analysis.Stats[metric]; ok && stats.Average > 0 && stats.Average < a.cfg.LowUtilizationMean {
				recs = append(recs, models.Recommendation{
					Type:   models.RecommendRightSize,
					Metric: metric,
					Reason: fmt.Sprintf("steady at %.1f%% average utilization, requests can shrink",
						stats.Average),
					Confidence:      vol.Confidence,
					SavingsFraction: clamp((a.cfg.LowUtilizationMean-stats.Average)/100, 0, 1),
				})
			}
		}

		if anomalies, ok := analysis.Anomalies[metric]; ok {
			high := 0
			for _, an := range anomalies {
				if an.Severity == models.SeverityHigh {
					high++
				}
			}
			if high > 0 {
				recs = append(recs, models.Recommendation{
					Type:   models.RecommendInvestigate,
					Metric: metric,
					Reason: fmt.Sprintf("%d high-severity anomalies in the window, investigate before optimizing",
						high),
					Confidence: analysis.ConfidenceScores["anomalies"],
				})
			}
		}
	}

	return recs
}

// offHoursSavings estimates the spend fraction recoverable by scaling with
// the business window: the off-hours share of the day times how much lower
// off-hours usage runs.
func (a *Analyzer) offHoursSavings(s models.SeasonalResult) float64 {
	if s.BusinessHoursMean <= 0 {
		return 0
	}
	offShare := float64(24-(a.cfg.BusinessHoursEnd-a.cfg.BusinessHoursStart)) / 24
	drop := 1 - s.OffHoursMean/s.BusinessHoursMean
	return clamp(offShare*drop, 0, 1)
}
