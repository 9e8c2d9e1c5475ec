// Package collector produces point-in-time cluster snapshots from a live
// source. Two sources exist: the Kubernetes API plus metrics-server, and a
// Prometheus endpoint scraping the same cluster. Collectors only read; the
// caller decides whether a snapshot goes to storage or straight into the
// optimizer.
package collector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/config"
	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// Source produces cluster snapshots.
type Source interface {
	// Snapshot reads the cluster's current usage into one snapshot.
	Snapshot(ctx context.Context, clusterID string) (*models.ClusterSnapshot, error)

	// Available reports whether the source can currently be reached.
	Available(ctx context.Context) bool

	Name() string
}

// New builds the configured source.
func New(cfg *config.CollectorConfig, analysis *config.AnalysisConfig, logger *zap.Logger) (Source, error) {
	switch cfg.Source {
	case "kubernetes":
		return NewKubernetesSource(cfg.Kubeconfig, cfg.Namespace, analysis, logger)
	case "prometheus":
		return NewPrometheusSource(cfg.PrometheusURL, analysis, logger)
	default:
		return nil, fmt.Errorf("unknown collector source %q", cfg.Source)
	}
}

// classifyActivity labels a unit from its utilization percentages. Idle
// confidence falls off linearly as usage approaches the idle threshold, so
// only near-zero units reach the optimizer's scale-down trigger.
func classifyActivity(cpuPercent, memPercent float64, cfg *config.AnalysisConfig) *models.ActivityInfo {
	if cpuPercent <= 0 && memPercent <= 0 {
		return &models.ActivityInfo{State: models.ActivityUnknown}
	}

	if cpuPercent <= cfg.IdleThreshold {
		confidence := (cfg.IdleThreshold - cpuPercent) / cfg.IdleThreshold
		if confidence < 0 {
			confidence = 0
		}
		return &models.ActivityInfo{
			State:          models.ActivityIdle,
			IdleConfidence: confidence,
			Notes: []string{
				fmt.Sprintf("cpu at %.1f%% of request", cpuPercent),
			},
		}
	}

	if cpuPercent < cfg.LowUtilizationMean {
		return &models.ActivityInfo{
			State: models.ActivityUnderutilized,
			Notes: []string{
				fmt.Sprintf("cpu at %.1f%% of request", cpuPercent),
			},
		}
	}

	return &models.ActivityInfo{State: models.ActivityActive}
}

// businessContext derives the collector-side activity summary the optimizer's
// confidence scoring reads.
func businessContext(pods map[string]models.PodUsage, hour int, cfg *config.AnalysisConfig) *models.BusinessContext {
	ctx := &models.BusinessContext{
		BusinessHours: cfg.BusinessHour(hour),
	}
	if len(pods) == 0 {
		return ctx
	}

	active := 0
	var efficiencySum float64
	var efficiencyN int
	for _, pod := range pods {
		if pod.Activity != nil && pod.Activity.State == models.ActivityActive {
			active++
		}
		if pod.CPUPercent != nil {
			efficiencySum += clampPercent(*pod.CPUPercent) / 100
			efficiencyN++
		}
		if pod.MemoryPercent != nil {
			efficiencySum += clampPercent(*pod.MemoryPercent) / 100
			efficiencyN++
		}
	}

	ctx.ActivityRatio = float64(active) / float64(len(pods))
	if efficiencyN > 0 {
		ctx.EfficiencyScore = efficiencySum / float64(efficiencyN)
	}
	return ctx
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func percentOf(usage, capacity float64) *float64 {
	if capacity <= 0 {
		return nil
	}
	return models.Float64(usage / capacity * 100)
}
