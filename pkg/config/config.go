// Package config provides configuration loading for the resource advisor.
// Settings come from a YAML file with ${VAR:-default} expansion, falling back
// to environment variables and built-in defaults when no file is given.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	ClusterID string          `yaml:"cluster_id"`
	Output    string          `yaml:"output"` // text, json
	Storage   StorageConfig   `yaml:"storage"`
	Collector CollectorConfig `yaml:"collector"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Safety    SafetyConfig    `yaml:"safety"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig holds PostgreSQL connection settings plus the retention
// policy. With Enabled false the advisor runs against an in-memory store.
type StorageConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	CompressAfterDays int `yaml:"compress_after_days"`
	RetentionDays     int `yaml:"retention_days"`
}

// DSN returns the PostgreSQL connection string.
func (s *StorageConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.DBName, s.SSLMode,
	)
}

// CollectorConfig selects and configures the snapshot source.
type CollectorConfig struct {
	Source        string `yaml:"source"` // kubernetes, prometheus
	Kubeconfig    string `yaml:"kubeconfig"`
	PrometheusURL string `yaml:"prometheus_url"`
	Namespace     string `yaml:"namespace"` // empty scans all namespaces
}

// AnalysisConfig is the policy table for the pattern analyzer. Every
// threshold the detection passes use lives here so behavior is tunable
// without touching detection code.
type AnalysisConfig struct {
	// Business window, local hours. End is exclusive.
	BusinessHoursStart int `yaml:"business_hours_start"`
	BusinessHoursEnd   int `yaml:"business_hours_end"`

	// Trend detection.
	TrendDeadband  float64 `yaml:"trend_deadband"` // |slope| below this is stable
	MinTrendPoints int     `yaml:"min_trend_points"`

	// Seasonality margins. A ratio must clear the margin before the
	// pattern is reported.
	HourlyPatternRatio float64 `yaml:"hourly_pattern_ratio"`
	WeeklyPatternRatio float64 `yaml:"weekly_pattern_ratio"`

	// Anomaly detection.
	ZScoreThreshold       float64 `yaml:"zscore_threshold"`
	ZScoreSevereThreshold float64 `yaml:"zscore_severe_threshold"`
	SuddenChangeFactor    float64 `yaml:"sudden_change_factor"` // multiple of mean abs delta
	SeasonalMinPoints     int     `yaml:"seasonal_min_points"`  // hour-of-day pass needs a day of data

	// Idle detection. Values at or below the threshold count as idle.
	IdleThreshold   float64 `yaml:"idle_threshold"`
	IdleMinFraction float64 `yaml:"idle_min_fraction"`

	// Volatility bands on the coefficient of variation.
	VolatilityLowMax    float64 `yaml:"volatility_low_max"`
	VolatilityMediumMax float64 `yaml:"volatility_medium_max"`

	// Recommendation triggers.
	StrongTrendConfidence float64 `yaml:"strong_trend_confidence"` // 0..100
	LowUtilizationMean    float64 `yaml:"low_utilization_mean"`    // percent

	// Advanced layer.
	Windows              []int   `yaml:"windows"` // analysis periods, days
	MovingAverageWindows []int   `yaml:"moving_average_windows"`
	ChangePointSegment   int     `yaml:"change_point_segment"` // points per side
	ChangePointMinShift  float64 `yaml:"change_point_min_shift"`
	ForecastHorizonDays  int     `yaml:"forecast_horizon_days"`
}

// BusinessHour reports whether the given local hour falls inside the
// configured business window.
func (a *AnalysisConfig) BusinessHour(hour int) bool {
	return hour >= a.BusinessHoursStart && hour < a.BusinessHoursEnd
}

// SafetyConfig bounds what the optimizer may propose and execute.
type SafetyConfig struct {
	MinReplicas          int     `yaml:"min_replicas"`
	MinCPURequest        float64 `yaml:"min_cpu_request"` // millicores
	MinMemoryRequestMB   float64 `yaml:"min_memory_request_mb"`
	MaxCPUUtilization    float64 `yaml:"max_cpu_utilization"`    // percent
	MaxMemoryUtilization float64 `yaml:"max_memory_utilization"` // percent
	MaxRiskScore         float64 `yaml:"max_risk_score"`         // 0..1
	BusinessHoursBuffer  float64 `yaml:"business_hours_buffer"`  // ceiling reduction fraction
}

// ToBoundary converts the config into the boundary carried on every plan.
func (s *SafetyConfig) ToBoundary() models.SafetyBoundary {
	return models.SafetyBoundary{
		MinReplicas:          s.MinReplicas,
		MinCPURequest:        s.MinCPURequest,
		MinMemoryRequest:     s.MinMemoryRequestMB * 1024 * 1024,
		MaxCPUUtilization:    s.MaxCPUUtilization,
		MaxMemoryUtilization: s.MaxMemoryUtilization,
		MaxRiskScore:         s.MaxRiskScore,
		BusinessHoursBuffer:  s.BusinessHoursBuffer,
	}
}

// ScoringConfig is the policy table for confidence and risk scoring in the
// optimization engine.
type ScoringConfig struct {
	// Confidence starts at the base and accumulates weighted contributions,
	// clamped to [0,1].
	BaseConfidence   float64 `yaml:"base_confidence"`
	ActivityWeight   float64 `yaml:"activity_weight"`
	EfficiencyWeight float64 `yaml:"efficiency_weight"`
	IdleRatioWeight  float64 `yaml:"idle_ratio_weight"`
	HistoryBonus     float64 `yaml:"history_bonus"`

	// Candidate generation.
	IdleConfidenceThreshold float64 `yaml:"idle_confidence_threshold"` // scale-down trigger
	CPUReductionFactor      float64 `yaml:"cpu_reduction_factor"`      // fraction removed
	MemoryReductionFactor   float64 `yaml:"memory_reduction_factor"`

	// Risk contributions, additive and clamped to [0,1].
	BusinessHoursRisk   float64 `yaml:"business_hours_risk"`
	CriticalServiceRisk float64 `yaml:"critical_service_risk"`
	ScaleDownRisk       float64 `yaml:"scale_down_risk"`
	DependencyRisk      float64 `yaml:"dependency_risk"`
	BaselineRisk        float64 `yaml:"baseline_risk"`

	// Risk level cut points.
	RiskMediumCut   float64 `yaml:"risk_medium_cut"`
	RiskHighCut     float64 `yaml:"risk_high_cut"`
	RiskCriticalCut float64 `yaml:"risk_critical_cut"`

	// Name fragments that mark a service as critical infrastructure.
	CriticalPatterns []string `yaml:"critical_patterns"`
}

// PricingConfig selects the cost model used for savings estimates.
type PricingConfig struct {
	Provider string `yaml:"provider"` // aws, azure, gcp, default; empty auto-detects
	Region   string `yaml:"region"`
}

// ScheduleConfig holds the cron expressions for the maintenance loop.
type ScheduleConfig struct {
	CollectCron  string `yaml:"collect_cron"`
	CompressCron string `yaml:"compress_cron"`
	PurgeCron    string `yaml:"purge_cron"`
	Timezone     string `yaml:"timezone"` // empty uses the local zone
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Load reads and parses the configuration file. An empty path yields the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the built-in configuration with environment overrides for
// the handful of settings that commonly differ between environments.
func Default() *Config {
	cfg := &Config{
		ClusterID: getEnv("CLUSTER_ID", ""),
		Storage: StorageConfig{
			Enabled:  getEnvBool("STORAGE_ENABLED", true),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvInt("DB_PORT", 0),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", ""),
		},
		Collector: CollectorConfig{
			Kubeconfig:    getEnv("KUBECONFIG", ""),
			PrometheusURL: getEnv("PROMETHEUS_URL", ""),
		},
	}
	applyDefaults(cfg)
	return cfg
}

// expandEnvVars expands ${VAR} and ${VAR:-default} patterns in the input string.
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) > 2 {
			defaultVal = parts[2]
		}

		if val, exists := os.LookupEnv(varName); exists {
			return val
		}
		return defaultVal
	})
}

// applyDefaults sets default values for any unset configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.ClusterID == "" {
		cfg.ClusterID = "default"
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}

	// Storage defaults
	if cfg.Storage.Host == "" {
		cfg.Storage.Host = "127.0.0.1"
	}
	if cfg.Storage.Port == 0 {
		cfg.Storage.Port = 5432
	}
	if cfg.Storage.User == "" {
		cfg.Storage.User = "advisor"
	}
	if cfg.Storage.DBName == "" {
		cfg.Storage.DBName = "advisor"
	}
	if cfg.Storage.SSLMode == "" {
		cfg.Storage.SSLMode = "disable"
	}
	if cfg.Storage.CompressAfterDays == 0 {
		cfg.Storage.CompressAfterDays = 30
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = 90
	}

	// Collector defaults
	if cfg.Collector.Source == "" {
		cfg.Collector.Source = "kubernetes"
	}
	if cfg.Collector.PrometheusURL == "" {
		cfg.Collector.PrometheusURL = "http://localhost:9090"
	}

	// Analysis defaults
	a := &cfg.Analysis
	if a.BusinessHoursStart == 0 && a.BusinessHoursEnd == 0 {
		a.BusinessHoursStart = 9
		a.BusinessHoursEnd = 18
	}
	if a.TrendDeadband == 0 {
		a.TrendDeadband = 0.01
	}
	if a.MinTrendPoints == 0 {
		a.MinTrendPoints = 3
	}
	if a.HourlyPatternRatio == 0 {
		a.HourlyPatternRatio = 1.5
	}
	if a.WeeklyPatternRatio == 0 {
		a.WeeklyPatternRatio = 1.3
	}
	if a.ZScoreThreshold == 0 {
		a.ZScoreThreshold = 2.0
	}
	if a.ZScoreSevereThreshold == 0 {
		a.ZScoreSevereThreshold = 3.0
	}
	if a.SuddenChangeFactor == 0 {
		a.SuddenChangeFactor = 3.0
	}
	if a.SeasonalMinPoints == 0 {
		a.SeasonalMinPoints = 24
	}
	if a.IdleThreshold == 0 {
		a.IdleThreshold = 5.0
	}
	if a.IdleMinFraction == 0 {
		a.IdleMinFraction = 0.5
	}
	if a.VolatilityLowMax == 0 {
		a.VolatilityLowMax = 0.15
	}
	if a.VolatilityMediumMax == 0 {
		a.VolatilityMediumMax = 0.5
	}
	if a.StrongTrendConfidence == 0 {
		a.StrongTrendConfidence = 70
	}
	if a.LowUtilizationMean == 0 {
		a.LowUtilizationMean = 30
	}
	if len(a.Windows) == 0 {
		a.Windows = []int{7, 30, 90}
	}
	if len(a.MovingAverageWindows) == 0 {
		a.MovingAverageWindows = []int{6, 24, 72}
	}
	if a.ChangePointSegment == 0 {
		a.ChangePointSegment = 12
	}
	if a.ChangePointMinShift == 0 {
		a.ChangePointMinShift = 0.5
	}
	if a.ForecastHorizonDays == 0 {
		a.ForecastHorizonDays = 30
	}

	// Safety defaults
	s := &cfg.Safety
	if s.MinReplicas == 0 {
		s.MinReplicas = 1
	}
	if s.MinCPURequest == 0 {
		s.MinCPURequest = 10
	}
	if s.MinMemoryRequestMB == 0 {
		s.MinMemoryRequestMB = 32
	}
	if s.MaxCPUUtilization == 0 {
		s.MaxCPUUtilization = 80
	}
	if s.MaxMemoryUtilization == 0 {
		s.MaxMemoryUtilization = 85
	}
	if s.MaxRiskScore == 0 {
		s.MaxRiskScore = 0.5
	}
	if s.BusinessHoursBuffer == 0 {
		s.BusinessHoursBuffer = 0.2
	}

	// Scoring defaults
	sc := &cfg.Scoring
	if sc.BaseConfidence == 0 {
		sc.BaseConfidence = 0.5
	}
	if sc.ActivityWeight == 0 {
		sc.ActivityWeight = 0.2
	}
	if sc.EfficiencyWeight == 0 {
		sc.EfficiencyWeight = 0.15
	}
	if sc.IdleRatioWeight == 0 {
		sc.IdleRatioWeight = 0.1
	}
	if sc.HistoryBonus == 0 {
		sc.HistoryBonus = 0.05
	}
	if sc.IdleConfidenceThreshold == 0 {
		sc.IdleConfidenceThreshold = 0.8
	}
	if sc.CPUReductionFactor == 0 {
		sc.CPUReductionFactor = 0.5
	}
	if sc.MemoryReductionFactor == 0 {
		sc.MemoryReductionFactor = 0.3
	}
	if sc.BusinessHoursRisk == 0 {
		sc.BusinessHoursRisk = 0.2
	}
	if sc.CriticalServiceRisk == 0 {
		sc.CriticalServiceRisk = 0.3
	}
	if sc.ScaleDownRisk == 0 {
		sc.ScaleDownRisk = 0.15
	}
	if sc.DependencyRisk == 0 {
		sc.DependencyRisk = 0.15
	}
	if sc.BaselineRisk == 0 {
		sc.BaselineRisk = 0.1
	}
	if sc.RiskMediumCut == 0 {
		sc.RiskMediumCut = 0.3
	}
	if sc.RiskHighCut == 0 {
		sc.RiskHighCut = 0.6
	}
	if sc.RiskCriticalCut == 0 {
		sc.RiskCriticalCut = 0.8
	}
	if len(sc.CriticalPatterns) == 0 {
		sc.CriticalPatterns = []string{
			"database", "postgres", "mysql", "mongo",
			"redis", "cache", "kafka", "queue", "etcd", "vault", "auth",
		}
	}

	// Pricing defaults
	if cfg.Pricing.Region == "" {
		cfg.Pricing.Region = "us-east-1"
	}

	// Schedule defaults (5-field cron)
	if cfg.Schedule.CollectCron == "" {
		cfg.Schedule.CollectCron = "*/15 * * * *"
	}
	if cfg.Schedule.CompressCron == "" {
		cfg.Schedule.CompressCron = "0 3 * * *"
	}
	if cfg.Schedule.PurgeCron == "" {
		cfg.Schedule.PurgeCron = "30 3 * * *"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Output != "text" && c.Output != "json" {
		errs = append(errs, "output must be one of: text, json")
	}

	if c.Storage.Enabled && c.Storage.Host == "" {
		errs = append(errs, "storage.host is required when storage is enabled")
	}
	if c.Storage.RetentionDays < c.Storage.CompressAfterDays {
		errs = append(errs, "storage.retention_days must be >= storage.compress_after_days")
	}

	if c.Collector.Source != "kubernetes" && c.Collector.Source != "prometheus" {
		errs = append(errs, "collector.source must be one of: kubernetes, prometheus")
	}

	a := &c.Analysis
	if a.BusinessHoursStart < 0 || a.BusinessHoursEnd > 24 || a.BusinessHoursStart >= a.BusinessHoursEnd {
		errs = append(errs, "analysis business hours must satisfy 0 <= start < end <= 24")
	}
	if a.HourlyPatternRatio <= 1.0 {
		errs = append(errs, "analysis.hourly_pattern_ratio must be > 1.0")
	}
	if a.WeeklyPatternRatio <= 1.0 {
		errs = append(errs, "analysis.weekly_pattern_ratio must be > 1.0")
	}
	if a.ZScoreSevereThreshold < a.ZScoreThreshold {
		errs = append(errs, "analysis.zscore_severe_threshold must be >= analysis.zscore_threshold")
	}
	if a.IdleMinFraction <= 0 || a.IdleMinFraction > 1 {
		errs = append(errs, "analysis.idle_min_fraction must be in (0, 1]")
	}
	if a.VolatilityMediumMax <= a.VolatilityLowMax {
		errs = append(errs, "analysis.volatility_medium_max must be > analysis.volatility_low_max")
	}
	for _, days := range a.Windows {
		if days <= 0 {
			errs = append(errs, "analysis.windows entries must be positive")
			break
		}
	}

	s := &c.Safety
	if s.MinReplicas < 0 {
		errs = append(errs, "safety.min_replicas must be >= 0")
	}
	if s.MaxRiskScore <= 0 || s.MaxRiskScore > 1 {
		errs = append(errs, "safety.max_risk_score must be in (0, 1]")
	}
	if s.BusinessHoursBuffer < 0 || s.BusinessHoursBuffer >= 1 {
		errs = append(errs, "safety.business_hours_buffer must be in [0, 1)")
	}

	sc := &c.Scoring
	if sc.BaseConfidence < 0 || sc.BaseConfidence > 1 {
		errs = append(errs, "scoring.base_confidence must be in [0, 1]")
	}
	if sc.IdleConfidenceThreshold <= 0 || sc.IdleConfidenceThreshold > 1 {
		errs = append(errs, "scoring.idle_confidence_threshold must be in (0, 1]")
	}
	if sc.CPUReductionFactor <= 0 || sc.CPUReductionFactor >= 1 {
		errs = append(errs, "scoring.cpu_reduction_factor must be in (0, 1)")
	}
	if sc.MemoryReductionFactor <= 0 || sc.MemoryReductionFactor >= 1 {
		errs = append(errs, "scoring.memory_reduction_factor must be in (0, 1)")
	}
	if !(sc.RiskMediumCut < sc.RiskHighCut && sc.RiskHighCut < sc.RiskCriticalCut) {
		errs = append(errs, "scoring risk cut points must be strictly increasing")
	}

	if c.Logging.Level != "debug" && c.Logging.Level != "info" &&
		c.Logging.Level != "warn" && c.Logging.Level != "error" {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, "logging.format must be one of: console, json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
