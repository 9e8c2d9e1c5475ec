package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// MetricStore defines the interface for time-series sample storage
type MetricStore interface {
	// Store decomposes a snapshot into flat samples and appends them. A zero
	// timestamp means "now". Returns the number of samples written.
	Store(ctx context.Context, snapshot *models.ClusterSnapshot, ts time.Time) (int, error)

	// Query returns samples matching the filter, newest first. An empty
	// result is not an error.
	Query(ctx context.Context, q Query) ([]models.Sample, error)

	// HistoricalWindow regroups the last N days of samples into per-metric
	// series, timestamp ascending.
	HistoricalWindow(ctx context.Context, clusterID string, days int) (*models.HistoricalWindow, error)

	// Compress moves samples older than the cutoff into a compressed archive
	// batch. Running it twice with the same cutoff is a no-op the second
	// time. Returns the number of samples archived.
	Compress(ctx context.Context, olderThanDays int) (int, error)

	// Purge deletes live samples and archive batches older than the
	// retention horizon. Returns the number of live samples deleted.
	Purge(ctx context.Context, retentionDays int) (int, error)

	// Stats reports counts, timestamp range and size figures.
	Stats(ctx context.Context) (*models.StoreStats, error)

	Ping(ctx context.Context) error
	Close() error
}

// Query filters a sample lookup. Zero-valued fields are not applied; a zero
// Limit falls back to DefaultQueryLimit.
type Query struct {
	ClusterID string
	Category  models.Category
	Name      string
	Start     time.Time
	End       time.Time
	Limit     int
}

// DefaultQueryLimit caps unbounded queries so a fat-fingered CLI call cannot
// pull the whole table.
const DefaultQueryLimit = 10000

// StorageError wraps a failed store operation with the operation name so
// callers can tell ingest failures from query failures without string
// matching.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// Decompose flattens a snapshot into per-metric samples. Absent sub-trees and
// nil readings are skipped silently; an empty snapshot yields no samples.
// Node and pod samples carry their origin in metadata under "target".
func Decompose(snapshot *models.ClusterSnapshot, ts time.Time) []models.Sample {
	if snapshot == nil {
		return nil
	}
	if ts.IsZero() {
		ts = snapshot.CollectedAt
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var samples []models.Sample
	add := func(category models.Category, name string, v *float64, meta map[string]string) {
		if v == nil {
			return
		}
		samples = append(samples, models.Sample{
			ClusterID: snapshot.ClusterID,
			Timestamp: ts,
			Category:  category,
			Name:      name,
			Value:     *v,
			Metadata:  meta,
		})
	}

	for _, name := range sortedNames(snapshot.Nodes) {
		node := snapshot.Nodes[name]
		meta := map[string]string{"target": name}
		add(models.CategoryNode, models.MetricCPUUsage, node.CPUUsage, meta)
		add(models.CategoryNode, models.MetricMemoryUsage, node.MemoryUsage, meta)
		add(models.CategoryNode, models.MetricCPUCapacity, node.CPUCapacity, meta)
		add(models.CategoryNode, models.MetricMemoryCapacity, node.MemoryCapacity, meta)
		add(models.CategoryNode, models.MetricCPUUtilizationPct, node.CPUPercent, meta)
		add(models.CategoryNode, models.MetricMemUtilizationPct, node.MemoryPercent, meta)
	}

	for _, name := range sortedNames(snapshot.Pods) {
		pod := snapshot.Pods[name]
		meta := map[string]string{"target": name}
		if pod.Namespace != "" {
			meta["namespace"] = pod.Namespace
		}
		add(models.CategoryPod, models.MetricCPUUsage, pod.CPUUsage, meta)
		add(models.CategoryPod, models.MetricMemoryUsage, pod.MemoryUsage, meta)
		add(models.CategoryPod, models.MetricCPURequest, pod.CPURequest, meta)
		add(models.CategoryPod, models.MetricMemoryRequest, pod.MemoryRequest, meta)
		add(models.CategoryPod, models.MetricCPUUtilizationPct, pod.CPUPercent, meta)
		add(models.CategoryPod, models.MetricMemUtilizationPct, pod.MemoryPercent, meta)
	}

	if agg := snapshot.Cluster; agg != nil {
		add(models.CategoryCluster, models.MetricCPUUtilization, agg.CPUUtilization, nil)
		add(models.CategoryCluster, models.MetricMemoryUtilization, agg.MemoryUtilization, nil)
		add(models.CategoryCluster, models.MetricPodCount, agg.PodCount, nil)
		add(models.CategoryCluster, models.MetricNodeCount, agg.NodeCount, nil)
	}

	return samples
}

// buildWindow regroups samples into a historical window. Samples arrive in
// any order; each series comes out timestamp ascending. The cluster-level
// utilization series are always present, possibly empty, so downstream
// consumers can range over them without nil checks.
func buildWindow(clusterID string, days int, start, end time.Time, samples []models.Sample) *models.HistoricalWindow {
	w := &models.HistoricalWindow{
		ClusterID:  clusterID,
		PeriodDays: days,
		Start:      start,
		End:        end,
		Metrics: map[string][]models.MetricPoint{
			models.MetricCPUUtilization:    {},
			models.MetricMemoryUtilization: {},
		},
	}
	for _, s := range samples {
		w.Metrics[s.Name] = append(w.Metrics[s.Name], models.MetricPoint{
			Timestamp: s.Timestamp,
			Value:     s.Value,
		})
	}
	for name := range w.Metrics {
		pts := w.Metrics[name]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Timestamp.Before(pts[j].Timestamp) })
	}
	return w
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
