package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// planReport is the optimize -o json envelope; execute --plan reads it back.
type planReport struct {
	ClusterID string                     `json:"cluster_id"`
	Plans     []*models.OptimizationPlan `json:"plans"`
	Summary   models.PlanSummary         `json:"summary"`
}

func textMode() bool { return cfg.Output == "text" }

// info prints operator chatter in text mode only, keeping json output clean.
func info(format string, args ...interface{}) {
	if textMode() {
		fmt.Printf(format+"\n", args...)
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}

func pct(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *p)
}

func printSnapshot(s *models.ClusterSnapshot, sourceName string) {
	if !textMode() {
		printJSON(s)
		return
	}

	fmt.Printf("Cluster %s, collected %s via %s\n",
		s.ClusterID, s.CollectedAt.Format("2006-01-02 15:04 MST"), sourceName)
	if s.Cluster != nil {
		fmt.Printf("  cluster: cpu %s, memory %s across %d nodes\n",
			pct(s.Cluster.CPUUtilization), pct(s.Cluster.MemoryUtilization), len(s.Nodes))
	}
	if s.Business != nil {
		window := "off hours"
		if s.Business.BusinessHours {
			window = "business hours"
		}
		fmt.Printf("  context: %s, activity %.2f, efficiency %.2f\n",
			window, s.Business.ActivityRatio, s.Business.EfficiencyScore)
	}

	counts := map[models.ActivityState]int{}
	for _, pod := range s.Pods {
		if pod.Activity != nil {
			counts[pod.Activity.State]++
		}
	}
	fmt.Printf("  pods: %d (%d active, %d underutilized, %d idle, %d unknown)\n",
		len(s.Pods), counts[models.ActivityActive], counts[models.ActivityUnderutilized],
		counts[models.ActivityIdle], counts[models.ActivityUnknown])

	names := make([]string, 0, len(s.Pods))
	for name := range s.Pods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pod := s.Pods[name]
		if pod.Activity == nil || pod.Activity.State != models.ActivityIdle {
			continue
		}
		fmt.Printf("  idle: %s/%s (confidence %.2f, cpu %s)\n",
			pod.Namespace, name, pod.Activity.IdleConfidence, pct(pod.CPUPercent))
	}
}

func printAnalysis(a *models.Analysis) {
	if !textMode() {
		printJSON(a)
		return
	}

	fmt.Printf("Analysis for %s, last %d days (%s to %s)\n",
		a.ClusterID, a.PeriodDays,
		a.Start.Format("2006-01-02"), a.End.Format("2006-01-02"))
	printConfidenceScores(a.ConfidenceScores)

	findings := a.Findings()
	if len(findings) == 0 {
		fmt.Println("No findings, the window has too little data")
		return
	}
	fmt.Printf("Findings (%d):\n", len(findings))
	for _, f := range findings {
		line := fmt.Sprintf("  [%s] %s", f.Type, f.Metric)
		if labels := labelValues(f.Labels); labels != "" {
			line += " " + labels
		}
		if attrs := attributePairs(f.Attributes); attrs != "" {
			line += ": " + attrs
		}
		fmt.Printf("%s (confidence %.0f)\n", line, f.Confidence)
	}

	if len(a.Recommendations) == 0 {
		fmt.Println("No recommendations")
		return
	}
	fmt.Printf("Recommendations (%d):\n", len(a.Recommendations))
	for _, r := range a.Recommendations {
		fmt.Printf("  - %s on %s: %s (confidence %.0f, est. savings %.0f%%)\n",
			r.Type, r.Metric, r.Reason, r.Confidence, r.SavingsFraction*100)
	}
}

func printAdvanced(a *models.AdvancedAnalysis) {
	if !textMode() {
		printJSON(a)
		return
	}

	fmt.Printf("Advanced analysis for %s (overall confidence %.0f)\n",
		a.ClusterID, a.OverallConfidence)

	periods := make([]int, 0, len(a.Windows))
	for days := range a.Windows {
		periods = append(periods, days)
	}
	sort.Ints(periods)
	for _, days := range periods {
		fmt.Printf("Window %dd:", days)
		printConfidenceScores(a.Windows[days].ConfidenceScores)
	}

	for _, metric := range sortedKeys(a.Forecasts) {
		f := a.Forecasts[metric]
		fmt.Printf("Forecast %s: %.1f now, %.1f in %d days (%+.2f%%/day, confidence %.0f)\n",
			metric, f.CurrentValue, f.ProjectedValue, f.HorizonDays,
			f.DailyGrowthRate*100, f.Confidence)
	}
	for _, metric := range sortedKeys(a.ChangePoints) {
		for _, cp := range a.ChangePoints[metric] {
			fmt.Printf("Change point %s: %s, mean %.1f to %.1f\n",
				metric, cp.Timestamp.Format("2006-01-02 15:04"), cp.BeforeMean, cp.AfterMean)
		}
	}
}

func printConfidenceScores(scores map[string]float64) {
	parts := make([]string, 0, len(scores))
	for _, key := range sortedKeys(scores) {
		parts = append(parts, fmt.Sprintf("%s %.0f", key, scores[key]))
	}
	fmt.Printf(" confidence: %s\n", strings.Join(parts, ", "))
}

func printPlans(plans []*models.OptimizationPlan, summary models.PlanSummary) {
	if !textMode() {
		printJSON(planReport{ClusterID: cfg.ClusterID, Plans: plans, Summary: summary})
		return
	}

	if len(plans) == 0 {
		fmt.Println("No optimization opportunities found")
		return
	}

	fmt.Printf("%d optimization plans for %s, $%.2f/month potential\n",
		summary.Total, cfg.ClusterID, summary.TotalSavings)
	for i, p := range plans {
		target := p.Target
		if p.Namespace != "" {
			target = p.Namespace + "/" + p.Target
		}
		fmt.Printf("%d. %s %s [%s]\n", i+1, p.Operation, target, p.ID)
		fmt.Printf("   %.0f %s to %.0f %s, confidence %.2f, risk %s (%.2f), $%.2f/month\n",
			p.CurrentValue, p.Unit, p.ProposedValue, p.Unit,
			p.Confidence, p.RiskLevel, p.RiskScore, p.PotentialSavings)
		for _, reason := range p.Rationale {
			fmt.Printf("   why: %s\n", reason)
		}
		for _, command := range p.Commands {
			fmt.Printf("   run: %s\n", command)
		}
		for _, command := range p.Rollback.Commands {
			fmt.Printf("   rollback: %s\n", command)
		}
	}

	if len(summary.NextActions) > 0 {
		fmt.Println("Next actions:")
		for _, action := range summary.NextActions {
			fmt.Printf("  - %s\n", action)
		}
	}
}

func printResult(r *models.ExecutionResult) {
	if !textMode() {
		printJSON(r)
		return
	}

	fmt.Printf("Plan %s: %s\n", r.PlanID, r.Status)
	if r.Reason != "" {
		fmt.Printf("  reason: %s\n", r.Reason)
	}
	for _, command := range r.ExecutedCommands {
		verb := "ran"
		if r.Status == models.ExecutionDryRun {
			verb = "would run"
		}
		fmt.Printf("  %s: %s\n", verb, command)
	}
	if r.Status == models.ExecutionFailed {
		for _, command := range r.RollbackCommands {
			fmt.Printf("  rollback: %s\n", command)
		}
	}
}

func printStats(s *models.StoreStats) {
	if !textMode() {
		printJSON(s)
		return
	}

	fmt.Printf("Store: %d live samples\n", s.Count)
	if s.Count > 0 {
		fmt.Printf("  range: %s to %s\n",
			s.OldestTimestamp.Format("2006-01-02 15:04"),
			s.NewestTimestamp.Format("2006-01-02 15:04"))
	}
	fmt.Printf("  size: %.1f KiB live, %.1f KiB archived in %d batches\n",
		float64(s.LiveSizeBytes)/1024, float64(s.ArchivedSizeBytes)/1024, s.ArchiveBatches)
}

func labelValues(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		values = append(values, labels[key])
	}
	return strings.Join(values, " ")
}

func attributePairs(attrs map[string]float64) string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%.3g", key, attrs[key]))
	}
	return strings.Join(pairs, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
