package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clustermind/k8s-resource-advisor/pkg/analyzer"
	"github.com/clustermind/k8s-resource-advisor/pkg/executor"
	"github.com/clustermind/k8s-resource-advisor/pkg/models"
	"github.com/clustermind/k8s-resource-advisor/pkg/optimizer"
	"github.com/clustermind/k8s-resource-advisor/pkg/schedule"
	"github.com/spf13/cobra"
)

func runCollect(cmd *cobra.Command, args []string) {
	setup()
	ctx := context.Background()

	source := newSource()
	if !source.Available(ctx) {
		fatal(fmt.Errorf("source %s is not available", source.Name()))
	}

	snapshot, err := source.Snapshot(ctx, cfg.ClusterID)
	if err != nil {
		fatal(err)
	}

	if storeSnapshot {
		store := openStore(ctx)
		defer store.Close()
		written, err := store.Store(ctx, snapshot, snapshot.CollectedAt)
		if err != nil {
			fatal(err)
		}
		info("[INFO] Stored %d samples", written)
	}

	printSnapshot(snapshot, source.Name())
}

func runAnalyze(cmd *cobra.Command, args []string) {
	setup()
	ctx := context.Background()

	store := openStore(ctx)
	defer store.Close()

	a := analyzer.New(&cfg.Analysis, log)

	if analyzeAdvanced {
		var windows []*models.HistoricalWindow
		for _, days := range cfg.Analysis.Windows {
			window, err := store.HistoricalWindow(ctx, cfg.ClusterID, days)
			if err != nil {
				fatal(err)
			}
			windows = append(windows, window)
		}
		printAdvanced(a.AnalyzeAdvanced(windows))
		return
	}

	window, err := store.HistoricalWindow(ctx, cfg.ClusterID, analyzeDays)
	if err != nil {
		fatal(err)
	}
	printAnalysis(a.Analyze(window))
}

func runOptimize(cmd *cobra.Command, args []string) {
	setup()
	ctx := context.Background()

	source := newSource()
	snapshot, err := source.Snapshot(ctx, cfg.ClusterID)
	if err != nil {
		fatal(err)
	}

	// History sharpens confidence but is not required for a plan.
	var analysis *models.Analysis
	if cfg.Storage.Enabled {
		store := openStore(ctx)
		defer store.Close()
		window, err := store.HistoricalWindow(ctx, cfg.ClusterID, historyDays)
		if err != nil {
			fatal(err)
		}
		analysis = analyzer.New(&cfg.Analysis, log).Analyze(window)
	} else {
		info("[INFO] Storage disabled, planning from the live snapshot only")
	}

	engine := optimizer.New(cfg, resolveRates(ctx, source), nil, log)
	plans := engine.Optimize(snapshot, analysis)
	printPlans(plans, optimizer.Summarize(plans))
}

func runExecute(cmd *cobra.Command, args []string) {
	setup()
	ctx := context.Background()

	if planFile == "" {
		fatal(fmt.Errorf("--plan is required"))
	}
	plans, err := readPlans(planFile)
	if err != nil {
		fatal(err)
	}
	plan, err := pickPlan(plans, planID)
	if err != nil {
		fatal(err)
	}

	var runner optimizer.CommandRunner
	if applyPlan {
		runner = executor.NewKubectl(kubectlPath, log)
	} else {
		info("[INFO] Dry run, pass --apply to run the commands")
	}

	engine := optimizer.New(cfg, nil, runner, log)
	result, execErr := engine.Execute(ctx, plan, !applyPlan)
	if result != nil {
		printResult(result)
	}
	if execErr != nil {
		fatal(execErr)
	}
}

func runStats(cmd *cobra.Command, args []string) {
	setup()
	ctx := context.Background()

	store := openStore(ctx)
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		fatal(err)
	}
	printStats(stats)
}

func runCompress(cmd *cobra.Command, args []string) {
	setup()
	ctx := context.Background()

	store := openStore(ctx)
	defer store.Close()

	days := olderThanDays
	if days == 0 {
		days = cfg.Storage.CompressAfterDays
	}
	archived, err := store.Compress(ctx, days)
	if err != nil {
		fatal(err)
	}

	if textMode() {
		fmt.Printf("Archived %d samples older than %d days\n", archived, days)
	} else {
		printJSON(map[string]int{"archived": archived, "older_than_days": days})
	}
}

func runPurge(cmd *cobra.Command, args []string) {
	setup()
	ctx := context.Background()

	store := openStore(ctx)
	defer store.Close()

	days := retentionDays
	if days == 0 {
		days = cfg.Storage.RetentionDays
	}
	deleted, err := store.Purge(ctx, days)
	if err != nil {
		fatal(err)
	}

	if textMode() {
		fmt.Printf("Purged %d samples past the %d day retention horizon\n", deleted, days)
	} else {
		printJSON(map[string]int{"deleted": deleted, "retention_days": days})
	}
}

func runSchedule(cmd *cobra.Command, args []string) {
	setup()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := newSource()
	if !source.Available(ctx) {
		fatal(fmt.Errorf("source %s is not available", source.Name()))
	}
	store := openStore(ctx)
	defer store.Close()

	runner, err := schedule.New(cfg, source, store, log)
	if err != nil {
		fatal(err)
	}

	if collectAtStart {
		runner.RunCollectNow()
	}
	runner.Start()
	info("[INFO] Maintenance schedule running, Ctrl+C to stop")

	<-ctx.Done()
	info("[INFO] Shutting down")
	<-runner.Stop().Done()
}

// readPlans accepts the optimize -o json envelope, a bare plan array, or a
// single plan object.
func readPlans(path string) ([]*models.OptimizationPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("plan file %s is empty", path)
	}

	if trimmed[0] == '[' {
		var plans []*models.OptimizationPlan
		if err := json.Unmarshal(trimmed, &plans); err != nil {
			return nil, fmt.Errorf("parsing plan file: %w", err)
		}
		return plans, nil
	}

	var report planReport
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}
	if len(report.Plans) > 0 {
		return report.Plans, nil
	}

	var plan models.OptimizationPlan
	if err := json.Unmarshal(trimmed, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}
	if plan.ID == "" {
		return nil, fmt.Errorf("plan file %s holds no plans", path)
	}
	return []*models.OptimizationPlan{&plan}, nil
}

func pickPlan(plans []*models.OptimizationPlan, id string) (*models.OptimizationPlan, error) {
	if id == "" {
		if len(plans) == 1 {
			return plans[0], nil
		}
		return nil, fmt.Errorf("plan file holds %d plans, pass --id", len(plans))
	}
	for _, plan := range plans {
		if plan.ID == id {
			return plan, nil
		}
	}
	return nil, fmt.Errorf("no plan with ID %s", id)
}
