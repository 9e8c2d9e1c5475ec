package optimizer

import (
	"fmt"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// generateCandidates runs the four generators in a fixed order. Generators
// are independent; the same unit may surface in more than one candidate and
// ranking sorts that out.
func (e *Engine) generateCandidates(state *clusterState) []models.OptimizationCandidate {
	var candidates []models.OptimizationCandidate
	candidates = append(candidates, e.scaleDownCandidates(state)...)
	candidates = append(candidates, e.requestReductionCandidates(state)...)
	candidates = append(candidates, e.replicaCandidates(state)...)
	candidates = append(candidates, e.nodeCandidates(state)...)
	return candidates
}

// scaleDownCandidates proposes scaling confidently idle units to zero.
func (e *Engine) scaleDownCandidates(state *clusterState) []models.OptimizationCandidate {
	var out []models.OptimizationCandidate
	for _, u := range state.units {
		if u.idleConfidence < e.scoring.IdleConfidenceThreshold {
			continue
		}
		rationale := []string{fmt.Sprintf("idle with confidence %.2f", u.idleConfidence)}
		rationale = append(rationale, u.notes...)

		out = append(out, models.OptimizationCandidate{
			Operation:     models.OpScaleDown,
			Target:        u.name,
			Namespace:     u.namespace,
			CurrentValue:  1,
			ProposedValue: 0,
			Unit:          "replicas",
			Rationale:     rationale,
		})
	}
	return out
}

// requestReductionCandidates shrinks requests on underutilized units: CPU by
// the configured factor, memory by its own gentler factor, both floored at
// the boundary minimums and at whatever keeps projected utilization under
// the boundary ceiling.
func (e *Engine) requestReductionCandidates(state *clusterState) []models.OptimizationCandidate {
	var out []models.OptimizationCandidate
	for _, u := range state.units {
		if u.activity != models.ActivityUnderutilized {
			continue
		}

		if proposed, ok := reducedRequest(u.cpuRequest, u.cpuUsage,
			e.scoring.CPUReductionFactor, e.boundary.MinCPURequest, e.boundary.MaxCPUUtilization); ok {
			out = append(out, models.OptimizationCandidate{
				Operation:     models.OpReduceCPU,
				Target:        u.name,
				Namespace:     u.namespace,
				CurrentValue:  u.cpuRequest,
				ProposedValue: proposed,
				Unit:          "millicores",
				Rationale: []string{fmt.Sprintf("requests %.0fm cpu, uses %.0fm",
					u.cpuRequest, u.cpuUsage)},
			})
		}

		if proposed, ok := reducedRequest(u.memoryRequest, u.memoryUsage,
			e.scoring.MemoryReductionFactor, e.boundary.MinMemoryRequest, e.boundary.MaxMemoryUtilization); ok {
			out = append(out, models.OptimizationCandidate{
				Operation:     models.OpReduceMemory,
				Target:        u.name,
				Namespace:     u.namespace,
				CurrentValue:  u.memoryRequest,
				ProposedValue: proposed,
				Unit:          "bytes",
				Rationale: []string{fmt.Sprintf("requests %.0fMi memory, uses %.0fMi",
					u.memoryRequest/(1024*1024), u.memoryUsage/(1024*1024))},
			})
		}
	}
	return out
}

// reducedRequest computes the floored reduction target. ok is false when the
// unit has nothing to shrink or the floors leave no room.
func reducedRequest(request, usage, factor, minimum, maxUtilization float64) (float64, bool) {
	if request <= 0 {
		return 0, false
	}
	proposed := request * (1 - factor)
	if proposed < minimum {
		proposed = minimum
	}
	if maxUtilization > 0 {
		// Keep projected utilization under the ceiling.
		if floor := usage * 100 / maxUtilization; proposed < floor {
			proposed = floor
		}
	}
	if proposed >= request {
		return 0, false
	}
	return proposed, true
}

// replicaCandidates groups units into logical deployments by the naming
// heuristic and trims replicas where most of a group sits idle.
func (e *Engine) replicaCandidates(state *clusterState) []models.OptimizationCandidate {
	groups := map[string][]unitState{}
	var order []string
	for _, u := range state.units {
		key := u.namespace + "/" + u.workload
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], u)
	}

	var out []models.OptimizationCandidate
	for _, key := range order {
		units := groups[key]
		if len(units) < 2 {
			continue
		}
		idle := 0
		for _, u := range units {
			if u.activity == models.ActivityIdle {
				idle++
			}
		}
		if idle*2 <= len(units) {
			continue
		}

		proposed := len(units) - idle
		if proposed < e.safety.MinReplicas {
			proposed = e.safety.MinReplicas
		}
		if proposed >= len(units) {
			continue
		}

		out = append(out, models.OptimizationCandidate{
			Operation:     models.OpAdjustReplicas,
			Target:        units[0].workload,
			Namespace:     units[0].namespace,
			CurrentValue:  float64(len(units)),
			ProposedValue: float64(proposed),
			Unit:          "replicas",
			Rationale:     []string{fmt.Sprintf("%d of %d replicas idle", idle, len(units))},
		})
	}
	return out
}

// nodeCandidates is the extension point for node-level consolidation. No
// generator yet; the operation type is reserved until one lands.
func (e *Engine) nodeCandidates(state *clusterState) []models.OptimizationCandidate {
	return nil
}
