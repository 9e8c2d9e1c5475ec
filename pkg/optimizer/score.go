package optimizer

import (
	"fmt"
	"strings"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// confidenceScore starts from the neutral base and adds what the cluster's
// business context says about down-scaling right now: a quiet, inefficient,
// largely idle cluster earns more trust. The inputs are cluster-wide, so
// every candidate in a pass shares a confidence; risk differentiates them.
func (e *Engine) confidenceScore(state *clusterState) float64 {
	confidence := e.scoring.BaseConfidence
	confidence += (1 - state.activityRatio) * e.scoring.ActivityWeight
	confidence += (1 - state.efficiency) * e.scoring.EfficiencyWeight
	confidence += state.idleRatio * e.scoring.IdleRatioWeight
	if state.hasHistory {
		confidence += e.scoring.HistoryBonus
	}
	return clamp01(confidence)
}

// riskScore accumulates the fixed risk contributions and reports which ones
// applied; the factor list feeds the plan's simulation.
func (e *Engine) riskScore(state *clusterState, c models.OptimizationCandidate) (float64, []string) {
	risk := e.scoring.BaselineRisk
	factors := []string{"baseline change risk"}

	if state.businessHours {
		risk += e.scoring.BusinessHoursRisk
		factors = append(factors, "business hours in progress")
	}
	if pattern, ok := e.criticalPattern(c.Target); ok {
		risk += e.scoring.CriticalServiceRisk
		factors = append(factors, fmt.Sprintf("name matches critical pattern %q", pattern))
	}
	if c.Operation == models.OpScaleDown {
		risk += e.scoring.ScaleDownRisk
		factors = append(factors, "scale-down removes all capacity")
	}
	if mentionsDependencies(c.Rationale) {
		risk += e.scoring.DependencyRisk
		factors = append(factors, "cross-service dependency noted")
	}

	return clamp01(risk), factors
}

// riskLevel maps a score into the four bands.
func (e *Engine) riskLevel(risk float64) models.RiskLevel {
	switch {
	case risk < e.scoring.RiskMediumCut:
		return models.RiskLow
	case risk < e.scoring.RiskHighCut:
		return models.RiskMedium
	case risk < e.scoring.RiskCriticalCut:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// criticalPattern reports the first configured name fragment the target
// matches.
func (e *Engine) criticalPattern(target string) (string, bool) {
	lowered := strings.ToLower(target)
	for _, pattern := range e.scoring.CriticalPatterns {
		if strings.Contains(lowered, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// dependencyMarkers is the language activity classifiers leave in notes when
// they see cross-service traffic.
var dependencyMarkers = []string{"depends on", "dependency", "consumed by"}

func mentionsDependencies(rationale []string) bool {
	for _, line := range rationale {
		lowered := strings.ToLower(line)
		for _, marker := range dependencyMarkers {
			if strings.Contains(lowered, marker) {
				return true
			}
		}
	}
	return false
}
