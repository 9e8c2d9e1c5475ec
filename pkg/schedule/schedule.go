// Package schedule drives the periodic maintenance loop: snapshot collection
// on one cron, storage compression and retention purges on their own.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/collector"
	"github.com/clustermind/k8s-resource-advisor/pkg/config"
	"github.com/clustermind/k8s-resource-advisor/pkg/storage"
)

// DefaultJobTimeout bounds a single scheduled job run.
const DefaultJobTimeout = 5 * time.Minute

// Runner owns the cron loop. Expressions are standard 5-field cron,
// interpreted in the configured timezone.
type Runner struct {
	cron       *cron.Cron
	source     collector.Source
	store      storage.MetricStore
	clusterID  string
	jobTimeout time.Duration
	log        *zap.Logger

	compressAfterDays int
	retentionDays     int

	mu      sync.Mutex
	running bool

	collecting int32 // atomic flag, one collection at a time
}

// New registers the three maintenance jobs from the configured cron
// expressions.
func New(cfg *config.Config, source collector.Source, store storage.MetricStore, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := time.Local
	if cfg.Schedule.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Schedule.Timezone, err)
		}
	}

	r := &Runner{
		cron:              cron.New(cron.WithLocation(loc)),
		source:            source,
		store:             store,
		clusterID:         cfg.ClusterID,
		jobTimeout:        DefaultJobTimeout,
		log:               logger,
		compressAfterDays: cfg.Storage.CompressAfterDays,
		retentionDays:     cfg.Storage.RetentionDays,
	}

	jobs := []struct {
		name string
		expr string
		fn   func()
	}{
		{"collect", cfg.Schedule.CollectCron, r.collect},
		{"compress", cfg.Schedule.CompressCron, r.compress},
		{"purge", cfg.Schedule.PurgeCron, r.purge},
	}
	for _, job := range jobs {
		if _, err := r.cron.AddFunc(job.expr, job.fn); err != nil {
			return nil, fmt.Errorf("invalid %s cron %q: %w", job.name, job.expr, err)
		}
	}

	return r, nil
}

// SetJobTimeout overrides the per-run timeout.
func (r *Runner) SetJobTimeout(timeout time.Duration) {
	r.jobTimeout = timeout
}

// Start begins running the scheduled jobs.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.cron.Start()
	r.running = true
	r.log.Info("maintenance schedule started",
		zap.String("cluster_id", r.clusterID),
		zap.Int("jobs", len(r.cron.Entries())))
}

// Stop halts the schedule. The returned context is done once in-flight jobs
// finish.
func (r *Runner) Stop() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return context.Background()
	}
	ctx := r.cron.Stop()
	r.running = false
	r.log.Info("maintenance schedule stopped")
	return ctx
}

// IsRunning reports whether the schedule is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunCollectNow triggers an immediate collection, usually to seed the store
// right after startup instead of waiting for the first tick.
func (r *Runner) RunCollectNow() {
	r.collect()
}

func (r *Runner) collect() {
	if !atomic.CompareAndSwapInt32(&r.collecting, 0, 1) {
		r.log.Warn("collection already in progress, skipping run")
		return
	}
	defer atomic.StoreInt32(&r.collecting, 0)

	ctx, cancel := context.WithTimeout(context.Background(), r.jobTimeout)
	defer cancel()

	snapshot, err := r.source.Snapshot(ctx, r.clusterID)
	if err != nil {
		r.log.Error("scheduled collection failed",
			zap.String("source", r.source.Name()), zap.Error(err))
		return
	}

	written, err := r.store.Store(ctx, snapshot, snapshot.CollectedAt)
	if err != nil {
		r.log.Error("scheduled store failed", zap.Error(err))
		return
	}

	r.log.Info("snapshot stored",
		zap.String("cluster_id", snapshot.ClusterID),
		zap.Int("samples", written))
}

func (r *Runner) compress() {
	ctx, cancel := context.WithTimeout(context.Background(), r.jobTimeout)
	defer cancel()

	archived, err := r.store.Compress(ctx, r.compressAfterDays)
	if err != nil {
		r.log.Error("scheduled compression failed", zap.Error(err))
		return
	}
	r.log.Info("samples compressed",
		zap.Int("archived", archived),
		zap.Int("older_than_days", r.compressAfterDays))
}

func (r *Runner) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), r.jobTimeout)
	defer cancel()

	deleted, err := r.store.Purge(ctx, r.retentionDays)
	if err != nil {
		r.log.Error("scheduled purge failed", zap.Error(err))
		return
	}
	r.log.Info("samples purged",
		zap.Int("deleted", deleted),
		zap.Int("retention_days", r.retentionDays))
}
