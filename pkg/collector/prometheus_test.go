package collector

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

type stubPromAPI struct {
	results map[string]model.Value
	err     error
	queries []string
}

func (s *stubPromAPI) Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (model.Value, v1.Warnings, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.results[query], nil, nil
}

func promSample(namespace, pod string, value float64) *model.Sample {
	return &model.Sample{
		Metric: model.Metric{"namespace": model.LabelValue(namespace), "pod": model.LabelValue(pod)},
		Value:  model.SampleValue(value),
	}
}

func clusterResults() map[string]model.Value {
	const mi = 1024 * 1024
	return map[string]model.Value{
		queryPodCPUUsage: model.Vector{
			promSample("web", "api-server-7d9f8b5c6-abcde", 400),
			promSample("jobs", "batch-runner-6d8f7c9b4-x2x1q", 1),
			promSample("web", "", 999),
		},
		queryPodMemoryUsage: model.Vector{
			promSample("web", "api-server-7d9f8b5c6-abcde", 256*mi),
			promSample("jobs", "batch-runner-6d8f7c9b4-x2x1q", 128*mi),
		},
		queryPodCPURequest: model.Vector{
			promSample("web", "api-server-7d9f8b5c6-abcde", 500),
			promSample("jobs", "batch-runner-6d8f7c9b4-x2x1q", 500),
		},
		queryPodMemoryRequest: model.Vector{
			promSample("web", "api-server-7d9f8b5c6-abcde", 512*mi),
			promSample("jobs", "batch-runner-6d8f7c9b4-x2x1q", 512*mi),
		},
	}
}

func testPrometheusSource(stub *stubPromAPI) *PrometheusSource {
	src := newPrometheusSource(stub, "http://prometheus.test:9090", analysisConfig(), nil)
	src.now = func() time.Time { return collectedAt }
	return src
}

func TestPrometheusSnapshot(t *testing.T) {
	stub := &stubPromAPI{results: clusterResults()}
	src := testPrometheusSource(stub)

	snapshot, err := src.Snapshot(context.Background(), "prod-east")
	if err != nil {
		t.Fatalf("Expected snapshot to succeed, got %v", err)
	}

	if snapshot.ClusterID != "prod-east" {
		t.Errorf("Expected cluster ID prod-east, got %s", snapshot.ClusterID)
	}
	if !snapshot.CollectedAt.Equal(collectedAt) {
		t.Errorf("Expected collected at %v, got %v", collectedAt, snapshot.CollectedAt)
	}
	if len(stub.queries) != 4 {
		t.Errorf("Expected 4 instant queries, got %d", len(stub.queries))
	}

	// The sample without a pod label is dropped.
	if len(snapshot.Pods) != 2 {
		t.Fatalf("Expected 2 pods, got %d", len(snapshot.Pods))
	}

	api := snapshot.Pods["api-server-7d9f8b5c6-abcde"]
	if api.Namespace != "web" {
		t.Errorf("Expected namespace web, got %s", api.Namespace)
	}
	if *api.CPUUsage != 400 {
		t.Errorf("Expected cpu usage 400m, got %f", *api.CPUUsage)
	}
	if *api.CPURequest != 500 {
		t.Errorf("Expected cpu request 500m, got %f", *api.CPURequest)
	}
	if *api.CPUPercent != 80 {
		t.Errorf("Expected cpu at 80 percent, got %f", *api.CPUPercent)
	}
	if *api.MemoryPercent != 50 {
		t.Errorf("Expected memory at 50 percent, got %f", *api.MemoryPercent)
	}
	if api.Activity == nil || api.Activity.State != models.ActivityActive {
		t.Errorf("Expected api-server to classify active, got %+v", api.Activity)
	}

	batch := snapshot.Pods["batch-runner-6d8f7c9b4-x2x1q"]
	if batch.Namespace != "jobs" {
		t.Errorf("Expected namespace jobs, got %s", batch.Namespace)
	}
	if batch.Activity == nil || batch.Activity.State != models.ActivityIdle {
		t.Fatalf("Expected batch-runner to classify idle, got %+v", batch.Activity)
	}
	if math.Abs(batch.Activity.IdleConfidence-0.96) > 1e-9 {
		t.Errorf("Expected idle confidence 0.96, got %f", batch.Activity.IdleConfidence)
	}

	if snapshot.Business == nil {
		t.Fatalf("Expected business context")
	}
	if snapshot.Business.BusinessHours {
		t.Errorf("Expected off hours at 03:00")
	}
	if snapshot.Business.ActivityRatio != 0.5 {
		t.Errorf("Expected activity ratio 0.5, got %f", snapshot.Business.ActivityRatio)
	}
}

func TestPrometheusSnapshotPartialSeries(t *testing.T) {
	results := clusterResults()
	// Usage series exist but kube-state-metrics is absent.
	results[queryPodCPURequest] = model.Vector{}
	results[queryPodMemoryRequest] = model.Vector{}

	src := testPrometheusSource(&stubPromAPI{results: results})
	snapshot, err := src.Snapshot(context.Background(), "prod-east")
	if err != nil {
		t.Fatalf("Expected snapshot to succeed, got %v", err)
	}

	api := snapshot.Pods["api-server-7d9f8b5c6-abcde"]
	if api.CPURequest != nil {
		t.Errorf("Expected nil cpu request, got %f", *api.CPURequest)
	}
	if api.CPUPercent != nil {
		t.Errorf("Expected nil cpu percent without a request, got %f", *api.CPUPercent)
	}
	if api.Activity == nil || api.Activity.State != models.ActivityUnknown {
		t.Errorf("Expected unknown activity without requests, got %+v", api.Activity)
	}
}

func TestPrometheusSnapshotBadResultType(t *testing.T) {
	results := clusterResults()
	delete(results, queryPodMemoryUsage)

	src := testPrometheusSource(&stubPromAPI{results: results})
	_, err := src.Snapshot(context.Background(), "prod-east")
	if err == nil {
		t.Fatalf("Expected an error for a non-vector result")
	}
	if !strings.Contains(err.Error(), "unexpected result type") {
		t.Errorf("Expected a result type error, got %v", err)
	}
}

func TestPrometheusSnapshotQueryError(t *testing.T) {
	src := testPrometheusSource(&stubPromAPI{err: errors.New("connection refused")})
	_, err := src.Snapshot(context.Background(), "prod-east")
	if err == nil {
		t.Fatalf("Expected the query error to surface")
	}
	if !strings.Contains(err.Error(), "query failed") {
		t.Errorf("Expected a query failure, got %v", err)
	}
}

func TestPrometheusAvailable(t *testing.T) {
	up := &stubPromAPI{results: map[string]model.Value{"up": model.Vector{}}}
	src := testPrometheusSource(up)
	if !src.Available(context.Background()) {
		t.Errorf("Expected the endpoint to be available")
	}
	if len(up.queries) != 1 || up.queries[0] != "up" {
		t.Errorf("Expected a single up query, got %v", up.queries)
	}

	down := testPrometheusSource(&stubPromAPI{err: errors.New("connection refused")})
	if down.Available(context.Background()) {
		t.Errorf("Expected the endpoint to be unavailable")
	}

	if src.Name() != "prometheus" {
		t.Errorf("Expected source name prometheus, got %s", src.Name())
	}
}
