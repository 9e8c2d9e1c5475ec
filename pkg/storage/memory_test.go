package storage

import (
	"context"
	"testing"
	"time"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

func testSnapshot(clusterID string) *models.ClusterSnapshot {
	return &models.ClusterSnapshot{
		ClusterID: clusterID,
		Nodes: map[string]models.NodeUsage{
			"node-a": {
				CPUUsage:    models.Float64(1500),
				MemoryUsage: models.Float64(8 * 1024 * 1024 * 1024),
				CPUPercent:  models.Float64(37.5),
			},
		},
		Pods: map[string]models.PodUsage{
			"web-6d4cf56db6-9gk2x": {
				Namespace:     "default",
				CPUUsage:      models.Float64(250),
				CPURequest:    models.Float64(500),
				MemoryUsage:   models.Float64(256 * 1024 * 1024),
				MemoryRequest: models.Float64(512 * 1024 * 1024),
			},
		},
		Cluster: &models.AggregateUsage{
			CPUUtilization:    models.Float64(42),
			MemoryUtilization: models.Float64(55),
			PodCount:          models.Float64(1),
			NodeCount:         models.Float64(1),
		},
	}
}

func TestDecompose(t *testing.T) {
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	samples := Decompose(testSnapshot("prod-east"), ts)

	// 3 node readings + 4 pod readings + 4 cluster aggregates
	if len(samples) != 11 {
		t.Fatalf("Expected 11 samples, got %d", len(samples))
	}

	for _, s := range samples {
		if s.ClusterID != "prod-east" {
			t.Errorf("Expected cluster_id prod-east, got %s", s.ClusterID)
		}
		if !s.Timestamp.Equal(ts) {
			t.Errorf("Expected timestamp %v, got %v", ts, s.Timestamp)
		}
	}

	byName := map[string]models.Sample{}
	for _, s := range samples {
		if s.Category == models.CategoryPod {
			byName[s.Name] = s
		}
	}
	podCPU, ok := byName[models.MetricCPUUsage]
	if !ok {
		t.Fatal("Expected a pod cpu_usage sample")
	}
	if podCPU.Target() != "web-6d4cf56db6-9gk2x" {
		t.Errorf("Expected pod target in metadata, got %q", podCPU.Target())
	}
	if podCPU.Metadata["namespace"] != "default" {
		t.Errorf("Expected namespace metadata, got %q", podCPU.Metadata["namespace"])
	}
	if podCPU.Value != 250 {
		t.Errorf("Expected pod cpu_usage 250, got %f", podCPU.Value)
	}
}

func TestDecomposeEmptySnapshot(t *testing.T) {
	if got := Decompose(nil, time.Now()); len(got) != 0 {
		t.Errorf("Expected no samples for nil snapshot, got %d", len(got))
	}
	if got := Decompose(&models.ClusterSnapshot{ClusterID: "c"}, time.Now()); len(got) != 0 {
		t.Errorf("Expected no samples for empty snapshot, got %d", len(got))
	}
}

func TestDecomposeZeroReading(t *testing.T) {
	// An idle node legitimately reports 0; absent readings are skipped.
	snap := &models.ClusterSnapshot{
		ClusterID: "c",
		Nodes: map[string]models.NodeUsage{
			"node-idle": {CPUUsage: models.Float64(0)},
		},
	}
	samples := Decompose(snap, time.Now())
	if len(samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(samples))
	}
	if samples[0].Value != 0 {
		t.Errorf("Expected zero value preserved, got %f", samples[0].Value)
	}
}

func TestMemoryStoreQueryOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		snap := testSnapshot("c1")
		if _, err := store.Store(ctx, snap, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("store failed: %v", err)
		}
	}

	samples, err := store.Query(ctx, Query{ClusterID: "c1"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(samples) != 33 {
		t.Fatalf("Expected 33 samples, got %d", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.After(samples[i-1].Timestamp) {
			t.Fatalf("Expected newest-first order, got %v before %v",
				samples[i-1].Timestamp, samples[i].Timestamp)
		}
	}

	limited, err := store.Query(ctx, Query{ClusterID: "c1", Limit: 5})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(limited) != 5 {
		t.Errorf("Expected limit 5 respected, got %d", len(limited))
	}
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Store(ctx, testSnapshot("c1"), now); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if _, err := store.Store(ctx, testSnapshot("c2"), now); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	tests := []struct {
		name  string
		query Query
		want  int
	}{
		{"by cluster", Query{ClusterID: "c1"}, 11},
		{"by category", Query{ClusterID: "c1", Category: models.CategoryCluster}, 4},
		{"by name", Query{ClusterID: "c1", Name: models.MetricCPUUtilization}, 1},
		{"unknown cluster", Query{ClusterID: "c3"}, 0},
		{"outside range", Query{ClusterID: "c1", End: now.Add(-time.Hour)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d samples, got %d", tt.want, len(got))
			}
		})
	}
}

func TestMemoryStoreHistoricalWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// Two readings inside a 7-day window, one outside.
	for _, age := range []time.Duration{2 * 24 * time.Hour, 6 * 24 * time.Hour, 8 * 24 * time.Hour} {
		if _, err := store.Store(ctx, testSnapshot("c1"), now.Add(-age)); err != nil {
			t.Fatalf("store failed: %v", err)
		}
	}

	window, err := store.HistoricalWindow(ctx, "c1", 7)
	if err != nil {
		t.Fatalf("historical window failed: %v", err)
	}

	if window.PeriodDays != 7 {
		t.Errorf("Expected period 7, got %d", window.PeriodDays)
	}
	cpu := window.Series(models.MetricCPUUtilization)
	if len(cpu) != 2 {
		t.Fatalf("Expected 2 in-window points, got %d", len(cpu))
	}
	if !cpu[0].Timestamp.Before(cpu[1].Timestamp) {
		t.Error("Expected series in ascending timestamp order")
	}

	// A second read without intervening writes returns the same points.
	repeat, err := store.HistoricalWindow(ctx, "c1", 7)
	if err != nil {
		t.Fatalf("historical window failed: %v", err)
	}
	again := repeat.Series(models.MetricCPUUtilization)
	if len(again) != len(cpu) {
		t.Fatalf("Expected repeated window to match, got %d vs %d points", len(again), len(cpu))
	}
	for i := range cpu {
		if !again[i].Timestamp.Equal(cpu[i].Timestamp) || again[i].Value != cpu[i].Value {
			t.Errorf("Expected identical point %d, got %+v vs %+v", i, again[i], cpu[i])
		}
	}

	// The cluster utilization series are present even when empty.
	empty, err := store.HistoricalWindow(ctx, "missing", 7)
	if err != nil {
		t.Fatalf("historical window failed: %v", err)
	}
	if empty.Series(models.MetricMemoryUtilization) == nil {
		t.Error("Expected memory_utilization series to exist for empty window")
	}
	if !empty.Empty() {
		t.Error("Expected empty window for unknown cluster")
	}
}

func TestMemoryStoreCompressAndPurge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Store(ctx, testSnapshot("c1"), now.AddDate(0, 0, -10)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if _, err := store.Store(ctx, testSnapshot("c1"), now.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	before, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if before.Count != 22 {
		t.Fatalf("Expected 22 live samples, got %d", before.Count)
	}

	archived, err := store.Compress(ctx, 7)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if archived != 11 {
		t.Errorf("Expected 11 samples archived, got %d", archived)
	}

	after, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if after.Count != 11 {
		t.Errorf("Expected 11 live samples after compress, got %d", after.Count)
	}
	if after.ArchiveBatches != 1 {
		t.Errorf("Expected 1 archive batch, got %d", after.ArchiveBatches)
	}
	if after.ArchivedSizeBytes <= before.ArchivedSizeBytes {
		t.Errorf("Expected archived size to grow, got %d -> %d",
			before.ArchivedSizeBytes, after.ArchivedSizeBytes)
	}

	// Recent samples still feed the window.
	window, err := store.HistoricalWindow(ctx, "c1", 7)
	if err != nil {
		t.Fatalf("historical window failed: %v", err)
	}
	if len(window.Series(models.MetricCPUUtilization)) != 1 {
		t.Errorf("Expected 1 window point after compress, got %d",
			len(window.Series(models.MetricCPUUtilization)))
	}

	// Second run with the same cutoff finds nothing.
	again, err := store.Compress(ctx, 7)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if again != 0 {
		t.Errorf("Expected idempotent compress, got %d archived", again)
	}

	// Purge drops the archive batch along with any stale live samples.
	deleted, err := store.Purge(ctx, 7)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 live deletions, got %d", deleted)
	}
	final, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if final.ArchiveBatches != 0 {
		t.Errorf("Expected archives purged, got %d batches", final.ArchiveBatches)
	}
	if final.Count != 11 {
		t.Errorf("Expected live samples untouched by purge, got %d", final.Count)
	}
}

func TestMemoryStoreStatsEmpty(t *testing.T) {
	store := NewMemoryStore()
	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Count != 0 || stats.ArchiveBatches != 0 {
		t.Errorf("Expected zeroed stats, got %+v", stats)
	}
	if !stats.OldestTimestamp.IsZero() || !stats.NewestTimestamp.IsZero() {
		t.Errorf("Expected zero timestamps, got %+v", stats)
	}
}
