package models

import "time"

// OperationType names an atomic change the optimizer can propose.
type OperationType string

const (
	OpScaleDown       OperationType = "scale_down"
	OpReduceCPU       OperationType = "reduce_cpu_request"
	OpReduceMemory    OperationType = "reduce_memory_request"
	OpAdjustReplicas  OperationType = "adjust_replicas"
	OpNodeConsolidate OperationType = "node_consolidate" // reserved, no generator yet
)

// RiskLevel is the four-band classification of a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// OptimizationCandidate is an unscored proposed change. Ephemeral: produced
// per optimization pass and either promoted to a plan or dropped by the
// safety gate.
type OptimizationCandidate struct {
	Operation     OperationType `json:"operation"`
	Target        string        `json:"target"`    // unit or deployment name
	Namespace     string        `json:"namespace"` // empty for cluster-scoped targets
	CurrentValue  float64       `json:"current_value"`
	ProposedValue float64       `json:"proposed_value"`
	Unit          string        `json:"unit"` // millicores, bytes, replicas
	Rationale     []string      `json:"rationale,omitempty"`
}

// SafetyBoundary bounds acceptable change magnitude and risk. Configured once
// per engine instance; read-only during evaluation.
type SafetyBoundary struct {
	MinReplicas          int     `json:"min_replicas"`
	MinCPURequest        float64 `json:"min_cpu_request"`        // millicores
	MinMemoryRequest     float64 `json:"min_memory_request"`     // bytes
	MaxCPUUtilization    float64 `json:"max_cpu_utilization"`    // percent ceiling after change
	MaxMemoryUtilization float64 `json:"max_memory_utilization"` // percent ceiling after change
	MaxRiskScore         float64 `json:"max_risk_score"`         // 0..1
	BusinessHoursBuffer  float64 `json:"business_hours_buffer"`  // fraction shaved off the ceiling
}

// RollbackPlan is pre-computed at plan creation so a rollback path exists
// before any forward command runs. Commands are opaque strings in the target
// cluster's syntax; RestoreValue carries the structured inverse.
type RollbackPlan struct {
	TriggerConditions []string `json:"trigger_conditions"`
	Commands          []string `json:"commands"`
	WatchMetrics      []string `json:"watch_metrics"`
	RestoreValue      float64  `json:"restore_value"`
}

// SimulationResult is a deterministic, formula-based projection of a plan's
// impact. Not a live trial.
type SimulationResult struct {
	CPUDeltaMillicores float64  `json:"cpu_delta_millicores"`
	MemoryDeltaBytes   float64  `json:"memory_delta_bytes"`
	ProjectedUnitCount float64  `json:"projected_unit_count"`
	SavingsFraction    float64  `json:"savings_fraction"`
	RiskFactors        []string `json:"risk_factors,omitempty"`
}

// BusinessImpact labels the expected availability and performance effect.
type BusinessImpact struct {
	AvailabilityRisk  string `json:"availability_risk"`  // none, low, moderate, high
	PerformanceImpact string `json:"performance_impact"` // none, low, moderate, high
	Description       string `json:"description"`
}

// OptimizationPlan is a scored, safety-gated candidate ready for execution.
// Never mutated after creation; re-execution requires regeneration.
type OptimizationPlan struct {
	ID            string        `json:"id"`
	Operation     OperationType `json:"operation"`
	Target        string        `json:"target"`
	Namespace     string        `json:"namespace,omitempty"`
	CurrentValue  float64       `json:"current_value"`
	ProposedValue float64       `json:"proposed_value"`
	Unit          string        `json:"unit"`

	Confidence float64   `json:"confidence"` // 0..1
	RiskScore  float64   `json:"risk_score"` // 0..1
	RiskLevel  RiskLevel `json:"risk_level"`

	PotentialSavings float64  `json:"potential_savings"` // USD per month
	Rationale        []string `json:"rationale,omitempty"`

	Commands   []string         `json:"commands"`
	Rollback   RollbackPlan     `json:"rollback"`
	Impact     BusinessImpact   `json:"impact"`
	Simulation SimulationResult `json:"simulation"`
	Boundary   SafetyBoundary   `json:"safety_boundary"`

	CreatedAt time.Time `json:"created_at"`
}

// Score is the ranking key: confidence relative to risk, with a small epsilon
// so riskless plans do not divide by zero.
func (p *OptimizationPlan) Score() float64 {
	return p.Confidence / (p.RiskScore + 0.1)
}

// ExecutionStatus is the terminal state of one Execute call.
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionDryRun    ExecutionStatus = "dry_run"
	ExecutionRejected  ExecutionStatus = "rejected"
	ExecutionFailed    ExecutionStatus = "failed"
)

// ExecutionResult reports what Execute did with a plan. A safety rejection is
// a structured outcome here, not an error.
type ExecutionResult struct {
	PlanID           string          `json:"plan_id"`
	Status           ExecutionStatus `json:"status"`
	Reason           string          `json:"reason,omitempty"`
	ExecutedCommands []string        `json:"executed_commands,omitempty"`
	RollbackCommands []string        `json:"rollback_commands,omitempty"`
	Error            string          `json:"error,omitempty"`
	FinishedAt       time.Time       `json:"finished_at"`
}

// PlanSummary aggregates a plan list for operators.
type PlanSummary struct {
	Total            int               `json:"total"`
	ByRisk           map[RiskLevel]int `json:"by_risk"`
	HighConfidence   int               `json:"high_confidence"` // confidence ≥ 0.8
	MediumConfidence int               `json:"medium_confidence"`
	LowConfidence    int               `json:"low_confidence"`
	TotalSavings     float64           `json:"total_savings"` // USD per month
	NextActions      []string          `json:"next_actions,omitempty"`
}
