package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/config"
	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// Instant vectors aggregated per pod. Usage comes from cAdvisor series,
// requests from kube-state-metrics; both are converted to the snapshot's
// units (millicores, bytes) in the query.
const (
	queryPodCPUUsage      = `sum by (namespace, pod) (rate(container_cpu_usage_seconds_total{container!=""}[5m])) * 1000`
	queryPodMemoryUsage   = `sum by (namespace, pod) (container_memory_working_set_bytes{container!=""})`
	queryPodCPURequest    = `sum by (namespace, pod) (kube_pod_container_resource_requests{resource="cpu"}) * 1000`
	queryPodMemoryRequest = `sum by (namespace, pod) (kube_pod_container_resource_requests{resource="memory"})`
)

// promAPI is the slice of the Prometheus v1 API the source uses.
type promAPI interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (model.Value, v1.Warnings, error)
}

// PrometheusSource reads the same snapshot shape from a Prometheus endpoint
// scraping the cluster. Useful when metrics-server is absent or when the
// collector runs outside the cluster.
type PrometheusSource struct {
	api      promAPI
	url      string
	analysis *config.AnalysisConfig
	log      *zap.Logger

	now func() time.Time
}

// NewPrometheusSource connects to the given endpoint.
func NewPrometheusSource(url string, analysis *config.AnalysisConfig, logger *zap.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return newPrometheusSource(v1.NewAPI(client), url, analysis, logger), nil
}

func newPrometheusSource(papi promAPI, url string, analysis *config.AnalysisConfig, logger *zap.Logger) *PrometheusSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrometheusSource{
		api:      papi,
		url:      url,
		analysis: analysis,
		log:      logger,
		now:      time.Now,
	}
}

func (p *PrometheusSource) Name() string { return "prometheus" }

// Available probes the endpoint with the cheapest possible query.
func (p *PrometheusSource) Available(ctx context.Context) bool {
	_, _, err := p.api.Query(ctx, "up", p.now())
	return err == nil
}

// Snapshot runs the per-pod instant queries and assembles one snapshot. A pod
// absent from a query simply keeps that field nil; an empty cluster yields an
// empty snapshot, not an error.
func (p *PrometheusSource) Snapshot(ctx context.Context, clusterID string) (*models.ClusterSnapshot, error) {
	snapshot := &models.ClusterSnapshot{
		ClusterID:   clusterID,
		CollectedAt: p.now().UTC(),
		Pods:        map[string]models.PodUsage{},
	}

	readings := []struct {
		query string
		apply func(pod *models.PodUsage, v float64)
	}{
		{queryPodCPUUsage, func(pod *models.PodUsage, v float64) { pod.CPUUsage = models.Float64(v) }},
		{queryPodMemoryUsage, func(pod *models.PodUsage, v float64) { pod.MemoryUsage = models.Float64(v) }},
		{queryPodCPURequest, func(pod *models.PodUsage, v float64) { pod.CPURequest = models.Float64(v) }},
		{queryPodMemoryRequest, func(pod *models.PodUsage, v float64) { pod.MemoryRequest = models.Float64(v) }},
	}

	for _, r := range readings {
		vector, err := p.queryVector(ctx, r.query)
		if err != nil {
			return nil, err
		}
		for _, sample := range vector {
			name := string(sample.Metric["pod"])
			if name == "" {
				continue
			}
			pod := snapshot.Pods[name]
			if pod.Namespace == "" {
				pod.Namespace = string(sample.Metric["namespace"])
			}
			r.apply(&pod, float64(sample.Value))
			snapshot.Pods[name] = pod
		}
	}

	for name, pod := range snapshot.Pods {
		pod.CPUPercent = percentOf(floatValue(pod.CPUUsage), floatValue(pod.CPURequest))
		pod.MemoryPercent = percentOf(floatValue(pod.MemoryUsage), floatValue(pod.MemoryRequest))
		pod.Activity = classifyActivity(
			floatValue(pod.CPUPercent), floatValue(pod.MemoryPercent), p.analysis)
		snapshot.Pods[name] = pod
	}

	snapshot.Business = businessContext(snapshot.Pods, p.now().Hour(), p.analysis)

	p.log.Info("snapshot collected",
		zap.String("cluster_id", clusterID),
		zap.String("source", p.Name()),
		zap.Int("pods", len(snapshot.Pods)))

	return snapshot, nil
}

func (p *PrometheusSource) queryVector(ctx context.Context, query string) (model.Vector, error) {
	result, warnings, err := p.api.Query(ctx, query, p.now())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if len(warnings) > 0 {
		p.log.Warn("prometheus warnings", zap.Strings("warnings", warnings))
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T for query %s", result, query)
	}
	return vector, nil
}
