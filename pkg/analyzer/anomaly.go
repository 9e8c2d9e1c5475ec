package analyzer

import (
	"math"
	"sort"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// minAnomalyPoints is the shortest series the global passes will judge; with
// fewer points the baseline statistics mean nothing.
const minAnomalyPoints = 4

// minHourBucketPoints is the baseline the hour-of-day pass needs per bucket
// before it trusts that bucket's mean and spread.
const minHourBucketPoints = 3

// DetectAnomalies runs three independent passes over the series: a global
// z-score pass, a sudden-change pass on successive deltas, and an hour-of-day
// pass that compares each point to its own hour's baseline. A point may be
// flagged by more than one pass; each flag is reported under its method.
func (a *Analyzer) DetectAnomalies(series []models.MetricPoint) []models.Anomaly {
	var anomalies []models.Anomaly
	anomalies = append(anomalies, a.zScoreAnomalies(series)...)
	anomalies = append(anomalies, a.suddenChangeAnomalies(series)...)
	anomalies = append(anomalies, a.seasonalAnomalies(series)...)

	sort.SliceStable(anomalies, func(i, j int) bool {
		if !anomalies[i].Timestamp.Equal(anomalies[j].Timestamp) {
			return anomalies[i].Timestamp.Before(anomalies[j].Timestamp)
		}
		return anomalies[i].Method < anomalies[j].Method
	})
	return anomalies
}

// zScoreAnomalies flags points far from the series mean. Severity escalates
// past the severe threshold.
func (a *Analyzer) zScoreAnomalies(series []models.MetricPoint) []models.Anomaly {
	if len(series) < minAnomalyPoints {
		return nil
	}

	vals := seriesValues(series)
	mean := calculateAverage(vals)
	stdDev := calculateStdDev(vals, mean)
	if stdDev == 0 {
		return nil
	}

	var anomalies []models.Anomaly
	for _, p := range series {
		z := (p.Value - mean) / stdDev
		if math.Abs(z) <= a.cfg.ZScoreThreshold {
			continue
		}
		severity := models.SeverityMedium
		if math.Abs(z) > a.cfg.ZScoreSevereThreshold {
			severity = models.SeverityHigh
		}
		anomalies = append(anomalies, models.Anomaly{
			Timestamp: p.Timestamp,
			Value:     p.Value,
			Expected:  mean,
			Deviation: z,
			Method:    models.AnomalyZScore,
			Severity:  severity,
		})
	}
	return anomalies
}

// suddenChangeAnomalies flags jumps between successive points that dwarf the
// series' typical movement.
func (a *Analyzer) suddenChangeAnomalies(series []models.MetricPoint) []models.Anomaly {
	if len(series) < minAnomalyPoints {
		return nil
	}

	deltas := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		deltas = append(deltas, math.Abs(series[i].Value-series[i-1].Value))
	}
	meanDelta := calculateAverage(deltas)
	if meanDelta == 0 {
		return nil
	}

	var anomalies []models.Anomaly
	for i := 1; i < len(series); i++ {
		jump := math.Abs(series[i].Value - series[i-1].Value)
		ratio := jump / meanDelta
		if ratio <= a.cfg.SuddenChangeFactor {
			continue
		}
		severity := models.SeverityMedium
		if ratio > 2*a.cfg.SuddenChangeFactor {
			severity = models.SeverityHigh
		}
		anomalies = append(anomalies, models.Anomaly{
			Timestamp: series[i].Timestamp,
			Value:     series[i].Value,
			Expected:  series[i-1].Value,
			Deviation: ratio,
			Method:    models.AnomalySuddenChange,
			Severity:  severity,
		})
	}
	return anomalies
}

// seasonalAnomalies compares each point to the baseline of its hour of day,
// catching points that are normal globally but wrong for their hour.
func (a *Analyzer) seasonalAnomalies(series []models.MetricPoint) []models.Anomaly {
	if len(series) < a.cfg.SeasonalMinPoints {
		return nil
	}

	buckets := make(map[int][]float64)
	for _, p := range series {
		hour := p.Timestamp.Hour()
		buckets[hour] = append(buckets[hour], p.Value)
	}

	type baseline struct {
		mean, stdDev float64
	}
	baselines := make(map[int]baseline, len(buckets))
	for hour, vals := range buckets {
		if len(vals) < minHourBucketPoints {
			continue
		}
		mean := calculateAverage(vals)
		baselines[hour] = baseline{mean: mean, stdDev: calculateStdDev(vals, mean)}
	}

	var anomalies []models.Anomaly
	for _, p := range series {
		b, ok := baselines[p.Timestamp.Hour()]
		if !ok || b.stdDev == 0 {
			continue
		}
		z := (p.Value - b.mean) / b.stdDev
		if math.Abs(z) <= a.cfg.ZScoreThreshold {
			continue
		}
		severity := models.SeverityMedium
		if math.Abs(z) > a.cfg.ZScoreSevereThreshold {
			severity = models.SeverityHigh
		}
		anomalies = append(anomalies, models.Anomaly{
			Timestamp: p.Timestamp,
			Value:     p.Value,
			Expected:  b.mean,
			Deviation: z,
			Method:    models.AnomalySeasonal,
			Severity:  severity,
		})
	}
	return anomalies
}

// calculateStdDev computes the population standard deviation around the
// given mean.
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(values)))
}
