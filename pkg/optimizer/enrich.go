package optimizer

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// buildPlan wraps a gated candidate into a full plan: commands, rollback,
// impact labels, simulation and savings. Rollback commands are computed here,
// before anything runs, so a rollback path exists ahead of any forward
// action.
func (e *Engine) buildPlan(c models.OptimizationCandidate, state *clusterState, confidence, risk float64, riskFactors []string) *models.OptimizationPlan {
	forward, rollback := commands(c)
	simulation := e.simulate(c, state, riskFactors)

	plan := &models.OptimizationPlan{
		ID:            uuid.New().String(),
		Operation:     c.Operation,
		Target:        c.Target,
		Namespace:     c.Namespace,
		CurrentValue:  c.CurrentValue,
		ProposedValue: c.ProposedValue,
		Unit:          c.Unit,
		Confidence:    confidence,
		RiskScore:     risk,
		RiskLevel:     e.riskLevel(risk),
		Rationale:     c.Rationale,
		Commands:      forward,
		Rollback: models.RollbackPlan{
			TriggerConditions: e.rollbackTriggers(c),
			Commands:          rollback,
			WatchMetrics:      watchMetrics(c.Operation),
			RestoreValue:      c.CurrentValue,
		},
		Impact:     e.businessImpact(c.Operation, state.businessHours),
		Simulation: simulation,
		Boundary:   e.boundary,
		CreatedAt:  e.now(),
	}
	plan.PotentialSavings = e.potentialSavings(simulation)

	return plan
}

// commands renders the forward and rollback command pair for a candidate.
// Commands are opaque kubectl strings at this boundary; the structured
// inverse travels separately as RestoreValue.
func commands(c models.OptimizationCandidate) (forward, rollback []string) {
	namespace := c.Namespace
	if namespace == "" {
		namespace = "default"
	}

	switch c.Operation {
	case models.OpScaleDown:
		workload := extractWorkloadName(c.Target)
		forward = []string{scaleCommand(workload, namespace, int(c.ProposedValue))}
		rollback = []string{scaleCommand(workload, namespace, int(c.CurrentValue))}
	case models.OpAdjustReplicas:
		forward = []string{scaleCommand(c.Target, namespace, int(c.ProposedValue))}
		rollback = []string{scaleCommand(c.Target, namespace, int(c.CurrentValue))}
	case models.OpReduceCPU:
		workload := extractWorkloadName(c.Target)
		forward = []string{cpuRequestCommand(workload, namespace, c.ProposedValue)}
		rollback = []string{cpuRequestCommand(workload, namespace, c.CurrentValue)}
	case models.OpReduceMemory:
		workload := extractWorkloadName(c.Target)
		forward = []string{memoryRequestCommand(workload, namespace, c.ProposedValue)}
		rollback = []string{memoryRequestCommand(workload, namespace, c.CurrentValue)}
	}
	return forward, rollback
}

func scaleCommand(workload, namespace string, replicas int) string {
	return fmt.Sprintf("kubectl scale deployment %s -n %s --replicas=%d", workload, namespace, replicas)
}

func cpuRequestCommand(workload, namespace string, millicores float64) string {
	return fmt.Sprintf("kubectl set resources deployment %s -n %s --requests=cpu=%dm",
		workload, namespace, int(math.Round(millicores)))
}

func memoryRequestCommand(workload, namespace string, bytes float64) string {
	return fmt.Sprintf("kubectl set resources deployment %s -n %s --requests=memory=%dMi",
		workload, namespace, int(math.Round(bytes/(1024*1024))))
}

// rollbackTriggers lists the conditions under which an operator should apply
// the rollback commands.
func (e *Engine) rollbackTriggers(c models.OptimizationCandidate) []string {
	triggers := []string{
		fmt.Sprintf("cpu utilization above %.0f%% for 10 minutes", e.boundary.MaxCPUUtilization),
		fmt.Sprintf("memory utilization above %.0f%% for 10 minutes", e.boundary.MaxMemoryUtilization),
	}
	switch c.Operation {
	case models.OpScaleDown:
		triggers = append(triggers, "incoming requests against the scaled-down workload")
	case models.OpAdjustReplicas:
		triggers = append(triggers, "sustained load increase on remaining replicas")
	case models.OpReduceCPU:
		triggers = append(triggers, "cpu throttling observed after the change")
	case models.OpReduceMemory:
		triggers = append(triggers, "oom kills observed after the change")
	}
	return triggers
}

func watchMetrics(op models.OperationType) []string {
	switch op {
	case models.OpReduceCPU:
		return []string{models.MetricCPUUsage, models.MetricCPUUtilizationPct}
	case models.OpReduceMemory:
		return []string{models.MetricMemoryUsage, models.MetricMemUtilizationPct}
	default:
		return []string{models.MetricCPUUsage, models.MetricMemoryUsage, models.MetricPodCount}
	}
}

// businessImpact labels the expected blast radius from the operation type and
// the time of day it would land. Labels escalate one step during business
// hours.
func (e *Engine) businessImpact(op models.OperationType, businessHours bool) models.BusinessImpact {
	var impact models.BusinessImpact
	switch op {
	case models.OpScaleDown:
		impact = models.BusinessImpact{
			AvailabilityRisk:  "moderate",
			PerformanceImpact: "moderate",
			Description:       "workload becomes unavailable until scaled back up",
		}
	case models.OpAdjustReplicas:
		impact = models.BusinessImpact{
			AvailabilityRisk:  "low",
			PerformanceImpact: "low",
			Description:       "reduced headroom on the remaining replicas",
		}
	case models.OpReduceCPU:
		impact = models.BusinessImpact{
			AvailabilityRisk:  "none",
			PerformanceImpact: "low",
			Description:       "tighter cpu requests may slow scheduling under pressure",
		}
	case models.OpReduceMemory:
		impact = models.BusinessImpact{
			AvailabilityRisk:  "low",
			PerformanceImpact: "low",
			Description:       "tighter memory requests raise eviction likelihood under pressure",
		}
	default:
		impact = models.BusinessImpact{
			AvailabilityRisk:  "low",
			PerformanceImpact: "low",
			Description:       "unclassified operation",
		}
	}

	if businessHours {
		impact.AvailabilityRisk = escalate(impact.AvailabilityRisk)
		impact.PerformanceImpact = escalate(impact.PerformanceImpact)
		impact.Description += " during business hours"
	}
	return impact
}

// escalate bumps a qualitative label one step.
func escalate(label string) string {
	switch label {
	case "none":
		return "low"
	case "low":
		return "moderate"
	case "moderate":
		return "high"
	default:
		return label
	}
}

// simulate projects the plan's resource delta with fixed arithmetic. This is
// a formula, not a live trial: the same candidate and state always project
// the same result.
func (e *Engine) simulate(c models.OptimizationCandidate, state *clusterState, riskFactors []string) models.SimulationResult {
	sim := models.SimulationResult{
		ProjectedUnitCount: float64(len(state.units)),
		RiskFactors:        riskFactors,
	}

	switch c.Operation {
	case models.OpScaleDown:
		if u, ok := state.unit(c.Target); ok {
			sim.CPUDeltaMillicores = -resourceFootprint(u.cpuRequest, u.cpuUsage)
			sim.MemoryDeltaBytes = -resourceFootprint(u.memoryRequest, u.memoryUsage)
		}
		sim.ProjectedUnitCount--
		sim.SavingsFraction = 1
	case models.OpAdjustReplicas:
		removed := c.CurrentValue - c.ProposedValue
		cpu, memory := state.workloadFootprint(c.Namespace, c.Target)
		sim.CPUDeltaMillicores = -removed * cpu
		sim.MemoryDeltaBytes = -removed * memory
		sim.ProjectedUnitCount -= removed
		if c.CurrentValue > 0 {
			sim.SavingsFraction = removed / c.CurrentValue
		}
	case models.OpReduceCPU:
		sim.CPUDeltaMillicores = -(c.CurrentValue - c.ProposedValue)
		if c.CurrentValue > 0 {
			sim.SavingsFraction = (c.CurrentValue - c.ProposedValue) / c.CurrentValue
		}
	case models.OpReduceMemory:
		sim.MemoryDeltaBytes = -(c.CurrentValue - c.ProposedValue)
		if c.CurrentValue > 0 {
			sim.SavingsFraction = (c.CurrentValue - c.ProposedValue) / c.CurrentValue
		}
	}
	return sim
}

// potentialSavings prices the simulated delta in USD per month.
func (e *Engine) potentialSavings(sim models.SimulationResult) float64 {
	if e.rates == nil {
		return 0
	}
	return e.rates.MonthlyCost(-sim.CPUDeltaMillicores, -sim.MemoryDeltaBytes)
}
