package models

import "time"

// Category is the coarse dimension a sample was observed at.
type Category string

const (
	CategoryNode    Category = "node"
	CategoryPod     Category = "pod"
	CategoryCluster Category = "cluster"
)

// Well-known metric names produced by snapshot decomposition. The store and
// analyzer accept any name; these are the ones the collectors emit.
const (
	MetricCPUUsage           = "cpu_usage"
	MetricMemoryUsage        = "memory_usage"
	MetricCPURequest         = "cpu_request"
	MetricMemoryRequest      = "memory_request"
	MetricCPUCapacity        = "cpu_capacity"
	MetricMemoryCapacity     = "memory_capacity"
	MetricCPUUtilization     = "cpu_utilization"
	MetricMemoryUtilization  = "memory_utilization"
	MetricCPUUtilizationPct  = "cpu_utilization_percent"
	MetricMemUtilizationPct  = "memory_utilization_percent"
	MetricPodCount           = "pod_count"
	MetricNodeCount          = "node_count"
)

// Sample is one timestamped numeric observation for a named metric.
// Immutable once written; deleted only by retention sweeps.
type Sample struct {
	ClusterID string            `json:"cluster_id"`
	Timestamp time.Time         `json:"timestamp"`
	Category  Category          `json:"category"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Target returns the node or pod the sample was observed on, if any.
func (s Sample) Target() string {
	return s.Metadata["target"]
}

// StoreStats summarizes the live and archived contents of a metric store.
type StoreStats struct {
	Count             int64     `json:"count"`
	OldestTimestamp   time.Time `json:"oldest_timestamp"`
	NewestTimestamp   time.Time `json:"newest_timestamp"`
	LiveSizeBytes     int64     `json:"live_size_bytes"`
	ArchivedSizeBytes int64     `json:"archived_size_bytes"`
	ArchiveBatches    int64     `json:"archive_batches"`
}
