package models

import (
	"sort"
	"time"
)

// FindingType names the analysis technique that produced a finding.
type FindingType string

const (
	FindingTrend      FindingType = "trend"
	FindingSeasonal   FindingType = "seasonal"
	FindingAnomaly    FindingType = "anomaly"
	FindingVolatility FindingType = "volatility"
	FindingIdle       FindingType = "idle"
)

// Finding is the generic form of one analysis result: a metric name, the
// technique, its numeric attributes, and a confidence in [0,100].
type Finding struct {
	Metric     string             `json:"metric"`
	Type       FindingType        `json:"type"`
	Attributes map[string]float64 `json:"attributes,omitempty"`
	Labels     map[string]string  `json:"labels,omitempty"`
	Confidence float64            `json:"confidence"`
}

// TrendDirection classifies an OLS slope after the dead-band is applied.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendResult is an ordinary least-squares fit over one metric series.
type TrendResult struct {
	Slope      float64        `json:"slope"`
	Intercept  float64        `json:"intercept"`
	R2         float64        `json:"r_squared"`
	Direction  TrendDirection `json:"direction"`
	Confidence float64        `json:"confidence"` // R² × 100, clamped to [0,100]
}

// SeasonalResult reports business-hours and weekday/weekend structure.
type SeasonalResult struct {
	BusinessHoursMean float64 `json:"business_hours_mean"`
	OffHoursMean      float64 `json:"off_hours_mean"`
	HourlyRatio       float64 `json:"hourly_ratio"`
	HourlyPattern     bool    `json:"hourly_pattern"`

	WeekdayMean   float64 `json:"weekday_mean"`
	WeekendMean   float64 `json:"weekend_mean"`
	WeeklyRatio   float64 `json:"weekly_ratio"`
	WeeklyPattern bool    `json:"weekly_pattern"`

	Confidence float64 `json:"confidence"`
}

// Detected reports whether any seasonal structure cleared its margin.
func (s SeasonalResult) Detected() bool {
	return s.HourlyPattern || s.WeeklyPattern
}

// AnomalyMethod names the detection pass that flagged a point.
type AnomalyMethod string

const (
	AnomalyZScore       AnomalyMethod = "zscore"
	AnomalySuddenChange AnomalyMethod = "sudden_change"
	AnomalySeasonal     AnomalyMethod = "seasonal"
)

// AnomalySeverity escalates with the deviation magnitude.
type AnomalySeverity string

const (
	SeverityMedium AnomalySeverity = "medium"
	SeverityHigh   AnomalySeverity = "high"
)

// Anomaly is one flagged point. Expected is the baseline the point was judged
// against (series mean, previous value, or the hour-of-day mean depending on
// the method); Deviation is measured in standard deviations for the z-score
// passes and in mean-absolute-delta multiples for sudden changes.
type Anomaly struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     float64         `json:"value"`
	Expected  float64         `json:"expected"`
	Deviation float64         `json:"deviation"`
	Method    AnomalyMethod   `json:"method"`
	Severity  AnomalySeverity `json:"severity"`
}

// VolatilityBand classifies a coefficient of variation.
type VolatilityBand string

const (
	VolatilityLow    VolatilityBand = "low"
	VolatilityMedium VolatilityBand = "medium"
	VolatilityHigh   VolatilityBand = "high"
)

// VolatilityResult is the stability signal the optimizer reads.
type VolatilityResult struct {
	Mean       float64        `json:"mean"`
	StdDev     float64        `json:"std_dev"`
	CV         float64        `json:"cv"`
	Band       VolatilityBand `json:"band"`
	Confidence float64        `json:"confidence"`
}

// IdleResult describes contiguous near-zero runs in a series.
type IdleResult struct {
	IdleFraction  float64 `json:"idle_fraction"` // 0..1 share of samples
	MeanRunLength float64 `json:"mean_run_length"`
	LongestRun    int     `json:"longest_run"`
	RunCount      int     `json:"run_count"`
	Significant   bool    `json:"significant"`
	Confidence    float64 `json:"confidence"`
}

// WindowStats carries the percentile summary computed per series.
type WindowStats struct {
	Average float64 `json:"average"`
	P50     float64 `json:"p50"`
	P90     float64 `json:"p90"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
	Peak    float64 `json:"peak"`
	Min     float64 `json:"min"`
}

// RecommendationType names a deterministic follow-up derived from findings.
type RecommendationType string

const (
	RecommendScaleToZero      RecommendationType = "scale_to_zero"
	RecommendTimeBasedScaling RecommendationType = "time_based_scaling"
	RecommendCapacityPlanning RecommendationType = "capacity_planning"
	RecommendRightSize        RecommendationType = "right_size"
	RecommendInvestigate      RecommendationType = "investigate_anomalies"
)

// Recommendation is derived from findings; it carries the originating
// finding's confidence and an estimated savings fraction of current spend.
type Recommendation struct {
	Type            RecommendationType `json:"type"`
	Metric          string             `json:"metric"`
	Reason          string             `json:"reason"`
	Confidence      float64            `json:"confidence"` // 0..100
	SavingsFraction float64            `json:"savings_fraction"`
}

// Analysis is the full result of one analyzer pass over a window. Findings
// are recomputed on every call and never persisted as the source of truth.
type Analysis struct {
	ClusterID  string    `json:"cluster_id"`
	PeriodDays int       `json:"period_days"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`

	Trends     map[string]TrendResult      `json:"trends,omitempty"`
	Seasonal   map[string]SeasonalResult   `json:"seasonal,omitempty"`
	Anomalies  map[string][]Anomaly        `json:"anomalies,omitempty"`
	Volatility map[string]VolatilityResult `json:"volatility,omitempty"`
	Idle       map[string]IdleResult       `json:"idle,omitempty"`
	Stats      map[string]WindowStats      `json:"stats,omitempty"`

	Recommendations  []Recommendation   `json:"recommendations,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
}

// Findings flattens the typed results into the generic finding list, in a
// fixed technique order so output is deterministic for a given analysis.
func (a *Analysis) Findings() []Finding {
	var out []Finding
	for _, metric := range sortedKeys(a.Trends) {
		t := a.Trends[metric]
		out = append(out, Finding{
			Metric: metric,
			Type:   FindingTrend,
			Attributes: map[string]float64{
				"slope":     t.Slope,
				"intercept": t.Intercept,
				"r_squared": t.R2,
			},
			Labels:     map[string]string{"direction": string(t.Direction)},
			Confidence: t.Confidence,
		})
	}
	for _, metric := range sortedKeys(a.Seasonal) {
		s := a.Seasonal[metric]
		if !s.Detected() {
			continue
		}
		out = append(out, Finding{
			Metric: metric,
			Type:   FindingSeasonal,
			Attributes: map[string]float64{
				"business_hours_mean": s.BusinessHoursMean,
				"off_hours_mean":      s.OffHoursMean,
				"hourly_ratio":        s.HourlyRatio,
				"weekly_ratio":        s.WeeklyRatio,
			},
			Confidence: s.Confidence,
		})
	}
	for _, metric := range sortedKeys(a.Anomalies) {
		for _, an := range a.Anomalies[metric] {
			out = append(out, Finding{
				Metric: metric,
				Type:   FindingAnomaly,
				Attributes: map[string]float64{
					"value":     an.Value,
					"expected":  an.Expected,
					"deviation": an.Deviation,
				},
				Labels: map[string]string{
					"method":   string(an.Method),
					"severity": string(an.Severity),
				},
				Confidence: a.ConfidenceScores["anomalies"],
			})
		}
	}
	for _, metric := range sortedKeys(a.Volatility) {
		v := a.Volatility[metric]
		out = append(out, Finding{
			Metric: metric,
			Type:   FindingVolatility,
			Attributes: map[string]float64{
				"cv":      v.CV,
				"mean":    v.Mean,
				"std_dev": v.StdDev,
			},
			Labels:     map[string]string{"band": string(v.Band)},
			Confidence: v.Confidence,
		})
	}
	for _, metric := range sortedKeys(a.Idle) {
		id := a.Idle[metric]
		if !id.Significant {
			continue
		}
		out = append(out, Finding{
			Metric: metric,
			Type:   FindingIdle,
			Attributes: map[string]float64{
				"idle_fraction":   id.IdleFraction,
				"mean_run_length": id.MeanRunLength,
			},
			Confidence: id.Confidence,
		})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// QuadraticFit is a second-degree polynomial fit y = ax² + bx + c.
type QuadraticFit struct {
	A          float64 `json:"a"`
	B          float64 `json:"b"`
	C          float64 `json:"c"`
	R2         float64 `json:"r_squared"`
	Curvature  string  `json:"curvature"` // accelerating, decelerating, flat
	Confidence float64 `json:"confidence"`
}

// MovingAverageResult summarizes one smoothing window over a series.
type MovingAverageResult struct {
	WindowPoints int     `json:"window_points"`
	Latest       float64 `json:"latest"`
	Mean         float64 `json:"mean"`
}

// ChangePoint marks a sustained shift in a series' level.
type ChangePoint struct {
	Timestamp      time.Time `json:"timestamp"`
	BeforeMean     float64   `json:"before_mean"`
	AfterMean      float64   `json:"after_mean"`
	RelativeChange float64   `json:"relative_change"` // |after-before| / before
	Confidence     float64   `json:"confidence"`
}

// CapacityForecast linearly extrapolates recent growth a fixed horizon out.
type CapacityForecast struct {
	Metric          string  `json:"metric"`
	HorizonDays     int     `json:"horizon_days"`
	CurrentValue    float64 `json:"current_value"`
	ProjectedValue  float64 `json:"projected_value"`
	DailyGrowthRate float64 `json:"daily_growth_rate"` // fraction per day
	Confidence      float64 `json:"confidence"`
}

// AdvancedAnalysis layers multi-window results on top of the base analysis.
type AdvancedAnalysis struct {
	ClusterID string            `json:"cluster_id"`
	Windows   map[int]*Analysis `json:"windows"` // keyed by period days

	Quadratic      map[string]QuadraticFit          `json:"quadratic,omitempty"`
	MovingAverages map[string][]MovingAverageResult `json:"moving_averages,omitempty"`
	ChangePoints   map[string][]ChangePoint         `json:"change_points,omitempty"`
	Forecasts      map[string]CapacityForecast      `json:"forecasts,omitempty"`

	// OverallConfidence is the mean of the pattern, trend, anomaly and
	// business-hours confidence sub-scores of the primary window.
	OverallConfidence float64 `json:"overall_confidence"`
}
