package optimizer

import (
	"fmt"
	"sort"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// Confidence bands reported in summaries.
const (
	highConfidenceFloor   = 0.8
	mediumConfidenceFloor = 0.5
)

// Summarize aggregates a ranked plan list into operator-facing counts and a
// short next-actions list.
func Summarize(plans []*models.OptimizationPlan) models.PlanSummary {
	summary := models.PlanSummary{
		Total:  len(plans),
		ByRisk: map[models.RiskLevel]int{},
	}

	for _, p := range plans {
		summary.ByRisk[p.RiskLevel]++
		switch {
		case p.Confidence >= highConfidenceFloor:
			summary.HighConfidence++
		case p.Confidence >= mediumConfidenceFloor:
			summary.MediumConfidence++
		default:
			summary.LowConfidence++
		}
		summary.TotalSavings += p.PotentialSavings
	}

	summary.NextActions = nextActions(plans)
	return summary
}

// nextActions prioritizes plans that are simultaneously high-confidence and
// low-risk, then fills the remainder with the largest savings not already
// listed.
func nextActions(plans []*models.OptimizationPlan) []string {
	const maxActions = 5

	var actions []string
	listed := map[string]bool{}

	for _, p := range plans {
		if len(actions) == maxActions {
			break
		}
		if p.Confidence >= highConfidenceFloor && p.RiskLevel == models.RiskLow {
			actions = append(actions, actionLine(p))
			listed[p.ID] = true
		}
	}

	bySavings := make([]*models.OptimizationPlan, len(plans))
	copy(bySavings, plans)
	sort.SliceStable(bySavings, func(i, j int) bool {
		return bySavings[i].PotentialSavings > bySavings[j].PotentialSavings
	})
	for _, p := range bySavings {
		if len(actions) == maxActions {
			break
		}
		if listed[p.ID] || p.PotentialSavings <= 0 {
			continue
		}
		actions = append(actions, actionLine(p))
		listed[p.ID] = true
	}

	return actions
}

func actionLine(p *models.OptimizationPlan) string {
	target := p.Target
	if p.Namespace != "" {
		target = p.Namespace + "/" + p.Target
	}
	return fmt.Sprintf("%s %s (confidence %.2f, %s risk, $%.2f/month)",
		p.Operation, target, p.Confidence, p.RiskLevel, p.PotentialSavings)
}
