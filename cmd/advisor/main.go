package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/kubernetes"

	"github.com/clustermind/k8s-resource-advisor/pkg/collector"
	"github.com/clustermind/k8s-resource-advisor/pkg/config"
	"github.com/clustermind/k8s-resource-advisor/pkg/pricing"
	"github.com/clustermind/k8s-resource-advisor/pkg/storage"
)

var (
	// Global flags
	configPath   string
	outputFormat string
	clusterID    string

	// collect flags
	storeSnapshot bool

	// analyze flags
	analyzeDays     int
	analyzeAdvanced bool

	// optimize flags
	historyDays int

	// execute flags
	planFile    string
	planID      string
	applyPlan   bool
	kubectlPath string

	// compress / purge flags
	olderThanDays int
	retentionDays int

	// schedule flags
	collectAtStart bool

	// Shared state, initialized by setup()
	cfg *config.Config
	log *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "advisor",
		Short: "Kubernetes resource usage advisor",
		Long: `Collect cluster resource usage snapshots, detect utilization patterns in
their history and turn the findings into safe, reversible optimization plans.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&clusterID, "cluster-id", "", "Cluster identifier (overrides config)")

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect one usage snapshot",
		Run:   runCollect,
	}
	collectCmd.Flags().BoolVar(&storeSnapshot, "store", false, "Store the snapshot for later analysis")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect patterns in stored history",
		Run:   runAnalyze,
	}
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 30, "History window in days")
	analyzeCmd.Flags().BoolVar(&analyzeAdvanced, "advanced", false, "Run the multi-window analysis with forecasts")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Generate optimization plans from a live snapshot",
		Run:   runOptimize,
	}
	optimizeCmd.Flags().IntVar(&historyDays, "history-days", 30, "History window backing the plans")

	executeCmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a plan produced by optimize -o json",
		Run:   runExecute,
	}
	executeCmd.Flags().StringVar(&planFile, "plan", "", "Plan file (required)")
	executeCmd.Flags().StringVar(&planID, "id", "", "Plan ID when the file holds several plans")
	executeCmd.Flags().BoolVar(&applyPlan, "apply", false, "Apply the plan; without this flag the run is a dry run")
	executeCmd.Flags().StringVar(&kubectlPath, "kubectl-path", "", "kubectl binary to invoke")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show metric store statistics",
		Run:   runStats,
	}

	compressCmd := &cobra.Command{
		Use:   "compress",
		Short: "Archive old samples into compressed batches",
		Run:   runCompress,
	}
	compressCmd.Flags().IntVar(&olderThanDays, "older-than-days", 0, "Age cutoff in days (default from config)")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete samples past the retention horizon",
		Run:   runPurge,
	}
	purgeCmd.Flags().IntVar(&retentionDays, "retention-days", 0, "Retention horizon in days (default from config)")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the collect/compress/purge maintenance loop",
		Run:   runSchedule,
	}
	scheduleCmd.Flags().BoolVar(&collectAtStart, "immediate", true, "Collect once at startup before the first tick")

	rootCmd.AddCommand(collectCmd, analyzeCmd, optimizeCmd, executeCmd,
		statsCmd, compressCmd, purgeCmd, scheduleCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides and builds the logger. Called at
// the top of every command handler.
func setup() {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	if clusterID != "" {
		cfg.ClusterID = clusterID
	}
	if outputFormat != "" {
		cfg.Output = outputFormat
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	log, err = buildLogger(cfg.Logging)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// buildLogger writes structured logs to stderr so stdout stays parseable.
func buildLogger(logging config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logging.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = logging.Format
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	if logging.Format == "console" {
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapCfg.Build()
}

func newSource() collector.Source {
	source, err := collector.New(&cfg.Collector, &cfg.Analysis, log)
	if err != nil {
		fatal(err)
	}
	return source
}

// openStore returns the configured PostgreSQL store, or the in-memory store
// when storage is disabled.
func openStore(ctx context.Context) storage.MetricStore {
	if !cfg.Storage.Enabled {
		info("[WARN] Storage disabled, using in-memory store (nothing is persisted)")
		return storage.NewMemoryStore()
	}

	store, err := storage.NewPostgresStore(cfg.Storage.DSN())
	if err != nil {
		fatal(fmt.Errorf("failed to open storage: %w", err))
	}
	if err := store.Ping(ctx); err != nil {
		fatal(fmt.Errorf("database unreachable: %w", err))
	}
	return store
}

// resolveRates picks the rate card, auto-detecting the cloud when the source
// exposes a clientset and no provider is configured. Plans are still
// generated without rates, just priced at zero.
func resolveRates(ctx context.Context, source collector.Source) *pricing.CostInfo {
	var clientset kubernetes.Interface
	if ks, ok := source.(*collector.KubernetesSource); ok {
		clientset = ks.Clientset()
	}

	provider, err := pricing.NewProvider(ctx, clientset, &pricing.Config{
		Provider: cfg.Pricing.Provider,
		Region:   cfg.Pricing.Region,
	})
	if err != nil {
		fatal(err)
	}

	rates, err := provider.GetCostInfo(ctx, cfg.Pricing.Region, "")
	if err != nil {
		info("[WARN] Pricing lookup failed (%v), savings reported as zero", err)
		return nil
	}
	info("[INFO] Rates: %s %s ($%.2f/core, $%.2f/GiB per month)",
		rates.Provider, rates.Region, rates.CPUCostPerCore, rates.MemoryCostPerGiB)
	return rates
}
