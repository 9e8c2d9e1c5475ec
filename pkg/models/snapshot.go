package models

import "time"

// ClusterSnapshot is one point-in-time reading of a cluster, as produced by a
// collector. The shape is permissive: absent sub-trees are nil and are skipped
// during decomposition into samples; unknown JSON keys are ignored on decode.
type ClusterSnapshot struct {
	ClusterID   string                  `json:"cluster_id"`
	CollectedAt time.Time               `json:"collected_at"`
	Nodes       map[string]NodeUsage    `json:"nodes,omitempty"`
	Pods        map[string]PodUsage     `json:"pods,omitempty"`
	Cluster     *AggregateUsage         `json:"cluster,omitempty"`
	Business    *BusinessContext        `json:"business,omitempty"`
}

// NodeUsage holds per-node readings. Pointer fields distinguish "absent" from
// a genuine zero reading (an idle node legitimately reports 0).
type NodeUsage struct {
	CPUUsage       *float64 `json:"cpu_usage,omitempty"`       // millicores
	MemoryUsage    *float64 `json:"memory_usage,omitempty"`    // bytes
	CPUCapacity    *float64 `json:"cpu_capacity,omitempty"`    // millicores
	MemoryCapacity *float64 `json:"memory_capacity,omitempty"` // bytes
	CPUPercent     *float64 `json:"cpu_utilization_percent,omitempty"`
	MemoryPercent  *float64 `json:"memory_utilization_percent,omitempty"`
}

// PodUsage holds per-workload-unit readings plus the activity classification
// the optimizer consumes.
type PodUsage struct {
	Namespace     string   `json:"namespace,omitempty"`
	CPUUsage      *float64 `json:"cpu_usage,omitempty"`      // millicores
	MemoryUsage   *float64 `json:"memory_usage,omitempty"`   // bytes
	CPURequest    *float64 `json:"cpu_request,omitempty"`    // millicores
	MemoryRequest *float64 `json:"memory_request,omitempty"` // bytes
	CPUPercent    *float64 `json:"cpu_utilization_percent,omitempty"`
	MemoryPercent *float64 `json:"memory_utilization_percent,omitempty"`

	Activity *ActivityInfo `json:"activity,omitempty"`
}

// ActivityInfo classifies a unit's recent behavior.
type ActivityInfo struct {
	State          ActivityState `json:"state"`
	IdleConfidence float64       `json:"idle_confidence"` // 0..1
	Notes          []string      `json:"notes,omitempty"`
}

type ActivityState string

const (
	ActivityActive        ActivityState = "active"
	ActivityIdle          ActivityState = "idle"
	ActivityUnderutilized ActivityState = "underutilized"
	ActivityUnknown       ActivityState = "unknown"
)

// AggregateUsage holds cluster-wide figures.
type AggregateUsage struct {
	CPUUtilization    *float64 `json:"cpu_utilization,omitempty"`    // percent
	MemoryUtilization *float64 `json:"memory_utilization,omitempty"` // percent
	PodCount          *float64 `json:"pod_count,omitempty"`
	NodeCount         *float64 `json:"node_count,omitempty"`
}

// BusinessContext carries the activity flags the optimizer's confidence
// scoring reads. Collected alongside the snapshot, not derived from it.
type BusinessContext struct {
	BusinessHours   bool    `json:"business_hours"`
	ActivityRatio   float64 `json:"activity_ratio"`   // 0..1, share of units active
	EfficiencyScore float64 `json:"efficiency_score"` // 0..1, usage vs requests
}

// Float64 returns a pointer to v. Snapshot fields are pointers so collectors
// and tests use this when building readings inline.
func Float64(v float64) *float64 { return &v }
