package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// memorySampleSize approximates the in-memory footprint of one sample for
// stats reporting. Close enough for capacity planning; not an accounting
// figure.
const memorySampleSize = 112

// MemoryStore implements MetricStore in process memory. Used when storage is
// disabled in config and throughout the test suite. Writers are serialized;
// readers run concurrently.
type MemoryStore struct {
	mu       sync.RWMutex
	samples  []models.Sample
	archives []archiveBatch
}

type archiveBatch struct {
	id        string
	cutoff    time.Time
	count     int
	payload   []byte
	createdAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store appends the snapshot's samples.
func (s *MemoryStore) Store(ctx context.Context, snapshot *models.ClusterSnapshot, ts time.Time) (int, error) {
	samples := Decompose(snapshot, ts)
	if len(samples) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	s.samples = append(s.samples, samples...)
	s.mu.Unlock()

	return len(samples), nil
}

// Query returns matching samples, newest first.
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]models.Sample, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	s.mu.RLock()
	matched := make([]models.Sample, 0, len(s.samples))
	for _, sample := range s.samples {
		if matches(sample, q) {
			matched = append(matched, sample)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// HistoricalWindow regroups the last N days into per-metric series.
func (s *MemoryStore) HistoricalWindow(ctx context.Context, clusterID string, days int) (*models.HistoricalWindow, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	s.mu.RLock()
	var inRange []models.Sample
	for _, sample := range s.samples {
		if sample.ClusterID != clusterID {
			continue
		}
		if sample.Timestamp.Before(start) || sample.Timestamp.After(end) {
			continue
		}
		inRange = append(inRange, sample)
	}
	s.mu.RUnlock()

	return buildWindow(clusterID, days, start, end, inRange), nil
}

// Compress folds samples older than the cutoff into one gzip batch.
func (s *MemoryStore) Compress(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	s.mu.Lock()
	defer s.mu.Unlock()

	var old, live []models.Sample
	for _, sample := range s.samples {
		if sample.Timestamp.Before(cutoff) {
			old = append(old, sample)
		} else {
			live = append(live, sample)
		}
	}
	if len(old) == 0 {
		return 0, nil
	}

	sort.SliceStable(old, func(i, j int) bool { return old[i].Timestamp.Before(old[j].Timestamp) })
	payload, err := compressSamples(old)
	if err != nil {
		return 0, storageErr("compress", err)
	}

	s.archives = append(s.archives, archiveBatch{
		id:        uuid.New().String(),
		cutoff:    cutoff,
		count:     len(old),
		payload:   payload,
		createdAt: time.Now().UTC(),
	})
	s.samples = live

	return len(old), nil
}

// Purge drops live samples and archive batches past the retention horizon.
func (s *MemoryStore) Purge(ctx context.Context, retentionDays int) (int, error) {
	horizon := time.Now().UTC().AddDate(0, 0, -retentionDays)

	s.mu.Lock()
	defer s.mu.Unlock()

	var live []models.Sample
	deleted := 0
	for _, sample := range s.samples {
		if sample.Timestamp.Before(horizon) {
			deleted++
			continue
		}
		live = append(live, sample)
	}
	s.samples = live

	var kept []archiveBatch
	for _, batch := range s.archives {
		if batch.cutoff.Before(horizon) {
			continue
		}
		kept = append(kept, batch)
	}
	s.archives = kept

	return deleted, nil
}

// Stats reports counts, range and approximate sizes.
func (s *MemoryStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.StoreStats{
		Count:          int64(len(s.samples)),
		LiveSizeBytes:  int64(len(s.samples)) * memorySampleSize,
		ArchiveBatches: int64(len(s.archives)),
	}
	for _, sample := range s.samples {
		if stats.OldestTimestamp.IsZero() || sample.Timestamp.Before(stats.OldestTimestamp) {
			stats.OldestTimestamp = sample.Timestamp
		}
		if sample.Timestamp.After(stats.NewestTimestamp) {
			stats.NewestTimestamp = sample.Timestamp
		}
	}
	for _, batch := range s.archives {
		stats.ArchivedSizeBytes += int64(len(batch.payload))
	}
	return stats, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func matches(sample models.Sample, q Query) bool {
	if q.ClusterID != "" && sample.ClusterID != q.ClusterID {
		return false
	}
	if q.Category != "" && sample.Category != q.Category {
		return false
	}
	if q.Name != "" && sample.Name != q.Name {
		return false
	}
	if !q.Start.IsZero() && sample.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && sample.Timestamp.After(q.End) {
		return false
	}
	return true
}
