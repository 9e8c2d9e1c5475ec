package optimizer

import (
	"testing"
	"time"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
	"github.com/clustermind/k8s-resource-advisor/pkg/pricing"
)

// Fixed clocks: one outside the default 09:00-18:00 business window, one
// inside it.
var (
	quietNight   = time.Date(2026, 3, 6, 3, 0, 0, 0, time.UTC)
	busyMidweek  = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	defaultRates = &pricing.CostInfo{Provider: "default", CPUCostPerCore: 23.0, MemoryCostPerGiB: 3.0, Currency: "USD"}
)

// testEngine builds an engine on the default policy with a pinned clock.
func testEngine(at time.Time) *Engine {
	e := New(nil, defaultRates, nil, nil)
	e.now = func() time.Time { return at }
	return e
}

const mi = 1024 * 1024

// mixedSnapshot has one confidently idle unit, one underutilized unit and a
// three-replica worker group with two idle replicas.
func mixedSnapshot() *models.ClusterSnapshot {
	return &models.ClusterSnapshot{
		ClusterID: "prod-east",
		Pods: map[string]models.PodUsage{
			"api-server-7d9f8b5c6-abcde": {
				Namespace:     "web",
				CPUUsage:      models.Float64(100),
				MemoryUsage:   models.Float64(200 * mi),
				CPURequest:    models.Float64(1000),
				MemoryRequest: models.Float64(1024 * mi),
				Activity:      &models.ActivityInfo{State: models.ActivityUnderutilized},
			},
			"batch-runner-6d8f7c9b4-x2x1q": {
				Namespace:     "jobs",
				CPUUsage:      models.Float64(2),
				MemoryUsage:   models.Float64(64 * mi),
				CPURequest:    models.Float64(500),
				MemoryRequest: models.Float64(512 * mi),
				Activity:      &models.ActivityInfo{State: models.ActivityIdle, IdleConfidence: 0.9},
			},
			"worker-5f6d7c8b9-aaaaa": {
				Namespace:     "jobs",
				CPUUsage:      models.Float64(20),
				MemoryUsage:   models.Float64(64 * mi),
				CPURequest:    models.Float64(200),
				MemoryRequest: models.Float64(256 * mi),
				Activity:      &models.ActivityInfo{State: models.ActivityIdle, IdleConfidence: 0.6},
			},
			"worker-5f6d7c8b9-bbbbb": {
				Namespace:     "jobs",
				CPUUsage:      models.Float64(20),
				MemoryUsage:   models.Float64(64 * mi),
				CPURequest:    models.Float64(200),
				MemoryRequest: models.Float64(256 * mi),
				Activity:      &models.ActivityInfo{State: models.ActivityIdle, IdleConfidence: 0.6},
			},
			"worker-5f6d7c8b9-ccccc": {
				Namespace:     "jobs",
				CPUUsage:      models.Float64(150),
				MemoryUsage:   models.Float64(64 * mi),
				CPURequest:    models.Float64(200),
				MemoryRequest: models.Float64(256 * mi),
				Activity:      &models.ActivityInfo{State: models.ActivityActive},
			},
		},
	}
}

func operations(plans []*models.OptimizationPlan) []models.OperationType {
	ops := make([]models.OperationType, len(plans))
	for i, p := range plans {
		ops[i] = p.Operation
	}
	return ops
}

func TestOptimizeMixedCluster(t *testing.T) {
	e := testEngine(quietNight)
	plans := e.Optimize(mixedSnapshot(), nil)

	if len(plans) != 4 {
		t.Fatalf("Expected 4 plans, got %d", len(plans))
	}

	// Equal-score plans keep generation order; the riskier scale-down sorts
	// last.
	want := []models.OperationType{
		models.OpReduceCPU,
		models.OpReduceMemory,
		models.OpAdjustReplicas,
		models.OpScaleDown,
	}
	got := operations(plans)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected operation order %v, got %v", want, got)
		}
	}

	for _, p := range plans {
		if p.ID == "" {
			t.Errorf("Expected plan ID to be set for %s", p.Operation)
		}
		if !p.CreatedAt.Equal(quietNight) {
			t.Errorf("Expected CreatedAt %v, got %v", quietNight, p.CreatedAt)
		}
		if p.Confidence <= 0 || p.Confidence > 1 {
			t.Errorf("Expected confidence in (0,1], got %f", p.Confidence)
		}
		if len(p.Commands) == 0 {
			t.Errorf("Expected commands for %s %s", p.Operation, p.Target)
		}
		if len(p.Rollback.Commands) == 0 {
			t.Errorf("Expected rollback commands for %s %s", p.Operation, p.Target)
		}
	}

	if plans[0].Score() < plans[3].Score() {
		t.Errorf("Expected descending scores, got first %f last %f",
			plans[0].Score(), plans[3].Score())
	}

	scaleDown := plans[3]
	if scaleDown.Target != "batch-runner-6d8f7c9b4-x2x1q" {
		t.Errorf("Expected scale-down target batch-runner-6d8f7c9b4-x2x1q, got %s", scaleDown.Target)
	}
	if scaleDown.RiskLevel != models.RiskLow {
		t.Errorf("Expected low risk outside business hours, got %s", scaleDown.RiskLevel)
	}
	if scaleDown.RiskScore >= 0.3 {
		t.Errorf("Expected risk score below 0.3, got %f", scaleDown.RiskScore)
	}
	// 500m plus 512Mi at the default rate card.
	if scaleDown.PotentialSavings < 12.9 || scaleDown.PotentialSavings > 13.1 {
		t.Errorf("Expected savings near 13.0, got %f", scaleDown.PotentialSavings)
	}
}

func TestOptimizeBusinessHoursDropsScaleDown(t *testing.T) {
	e := testEngine(busyMidweek)
	plans := e.Optimize(mixedSnapshot(), nil)

	if len(plans) != 3 {
		t.Fatalf("Expected 3 plans during business hours, got %d", len(plans))
	}
	for _, p := range plans {
		if p.Operation == models.OpScaleDown {
			t.Errorf("Expected no scale-down plan during business hours, got one for %s", p.Target)
		}
		if p.RiskLevel != models.RiskMedium {
			t.Errorf("Expected medium risk during business hours, got %s for %s", p.RiskLevel, p.Operation)
		}
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	first := testEngine(quietNight).Optimize(mixedSnapshot(), nil)
	second := testEngine(quietNight).Optimize(mixedSnapshot(), nil)

	if len(first) != len(second) {
		t.Fatalf("Expected equal plan counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Operation != second[i].Operation || first[i].Target != second[i].Target {
			t.Errorf("Expected plan %d to match: %s %s vs %s %s",
				i, first[i].Operation, first[i].Target, second[i].Operation, second[i].Target)
		}
		if first[i].RiskScore != second[i].RiskScore {
			t.Errorf("Expected equal risk for plan %d, got %f and %f",
				i, first[i].RiskScore, second[i].RiskScore)
		}
		if first[i].Confidence != second[i].Confidence {
			t.Errorf("Expected equal confidence for plan %d, got %f and %f",
				i, first[i].Confidence, second[i].Confidence)
		}
	}
}

func TestOptimizeWellSizedCluster(t *testing.T) {
	snapshot := &models.ClusterSnapshot{
		ClusterID: "prod-east",
		Pods: map[string]models.PodUsage{
			"api-server-7d9f8b5c6-abcde": {
				Namespace:  "web",
				CPUUsage:   models.Float64(700),
				CPURequest: models.Float64(1000),
				Activity:   &models.ActivityInfo{State: models.ActivityActive},
			},
		},
	}

	plans := testEngine(quietNight).Optimize(snapshot, nil)
	if len(plans) != 0 {
		t.Errorf("Expected no plans for a well-sized cluster, got %d", len(plans))
	}
}

func TestOptimizeNilSnapshot(t *testing.T) {
	plans := testEngine(quietNight).Optimize(nil, nil)
	if len(plans) != 0 {
		t.Errorf("Expected no plans for nil snapshot, got %d", len(plans))
	}
}

func TestFlattenStateBusinessContextWins(t *testing.T) {
	snapshot := mixedSnapshot()
	snapshot.Business = &models.BusinessContext{
		BusinessHours:   true,
		ActivityRatio:   0.95,
		EfficiencyScore: 0.9,
	}

	// Clock says night, collector says business hours; the collector wins.
	e := testEngine(quietNight)
	state := e.flattenState(snapshot, nil)

	if !state.businessHours {
		t.Errorf("Expected business hours from snapshot context")
	}
	if state.activityRatio != 0.95 {
		t.Errorf("Expected activity ratio 0.95, got %f", state.activityRatio)
	}
	if state.efficiency != 0.9 {
		t.Errorf("Expected efficiency 0.9, got %f", state.efficiency)
	}
}

func TestFlattenStateComputedRatios(t *testing.T) {
	e := testEngine(quietNight)
	state := e.flattenState(mixedSnapshot(), nil)

	if len(state.units) != 5 {
		t.Fatalf("Expected 5 units, got %d", len(state.units))
	}
	// Units ordered by name.
	if state.units[0].name != "api-server-7d9f8b5c6-abcde" {
		t.Errorf("Expected api-server first, got %s", state.units[0].name)
	}
	// 1 active of 5, 3 idle of 5.
	if state.activityRatio != 0.2 {
		t.Errorf("Expected activity ratio 0.2, got %f", state.activityRatio)
	}
	if state.idleRatio != 0.6 {
		t.Errorf("Expected idle ratio 0.6, got %f", state.idleRatio)
	}
	if state.businessHours {
		t.Errorf("Expected off hours at %v", quietNight)
	}
	if state.hasHistory {
		t.Errorf("Expected no history without analysis")
	}
}

func TestFlattenStateHistory(t *testing.T) {
	analysis := &models.Analysis{
		Stats: map[string]models.WindowStats{"cpu_utilization": {Average: 40}},
	}
	state := testEngine(quietNight).flattenState(mixedSnapshot(), analysis)
	if !state.hasHistory {
		t.Errorf("Expected history flag with populated stats")
	}
}

func TestExtractWorkloadName(t *testing.T) {
	tests := []struct {
		pod  string
		want string
	}{
		{"postgres-test-0", "postgres-test"},
		{"api-server-7d9f8b-xyz", "api-server"},
		{"worker-5f6d7c8b9-aaaaa", "worker"},
		{"standalone", "standalone"},
	}
	for _, tt := range tests {
		if got := extractWorkloadName(tt.pod); got != tt.want {
			t.Errorf("Expected workload %s for %s, got %s", tt.want, tt.pod, got)
		}
	}
}

func TestWithinRiskCeiling(t *testing.T) {
	e := testEngine(quietNight)

	if !e.withinRiskCeiling(0.5, false) {
		t.Errorf("Expected risk at the ceiling to pass off hours")
	}
	if e.withinRiskCeiling(0.51, false) {
		t.Errorf("Expected risk above the ceiling to fail off hours")
	}
	if !e.withinRiskCeiling(0.39, true) {
		t.Errorf("Expected risk under the buffered ceiling to pass in business hours")
	}
	if e.withinRiskCeiling(0.45, true) {
		t.Errorf("Expected risk above the buffered ceiling to fail in business hours")
	}
}
