package models

import "time"

// MetricPoint is a single (timestamp, value) pair inside a window series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// HistoricalWindow is a read-only view over stored samples, regrouped by
// metric name into timestamp-ascending series. Built on demand, never
// persisted.
type HistoricalWindow struct {
	ClusterID  string                   `json:"cluster_id"`
	PeriodDays int                      `json:"period_days"`
	Start      time.Time                `json:"start"`
	End        time.Time                `json:"end"`
	Metrics    map[string][]MetricPoint `json:"metrics"`
}

// Series returns the named series, or nil when the window has no samples
// for that metric.
func (w *HistoricalWindow) Series(name string) []MetricPoint {
	if w == nil || w.Metrics == nil {
		return nil
	}
	return w.Metrics[name]
}

// PointCount reports the total number of points across all series.
func (w *HistoricalWindow) PointCount() int {
	if w == nil {
		return 0
	}
	n := 0
	for _, pts := range w.Metrics {
		n += len(pts)
	}
	return n
}

// Empty reports whether the window holds no points at all.
func (w *HistoricalWindow) Empty() bool {
	return w.PointCount() == 0
}
