// Package pricing resolves per-cloud rate cards used to put a dollar figure
// on optimization plans. Rates are static list prices per provider; precise
// billing-grade numbers are out of scope, ranking savings is not.
package pricing

import (
	"context"
	"time"
)

// CostInfo is a resolved rate card for one provider and region.
type CostInfo struct {
	Provider         string    `json:"provider"`
	Region           string    `json:"region"`
	CPUCostPerCore   float64   `json:"cpu_cost_per_core"`   // USD per core-month
	MemoryCostPerGiB float64   `json:"memory_cost_per_gib"` // USD per GiB-month
	Currency         string    `json:"currency"`
	LastUpdated      time.Time `json:"last_updated"`
}

// MonthlyCost prices a resource footprint against this rate card.
func (c *CostInfo) MonthlyCost(cpuMillicores, memoryBytes float64) float64 {
	cpuCores := cpuMillicores / 1000.0
	memoryGiB := memoryBytes / (1024.0 * 1024.0 * 1024.0)

	return (cpuCores * c.CPUCostPerCore) + (memoryGiB * c.MemoryCostPerGiB)
}

// Provider defines the interface for cloud pricing data
type Provider interface {
	GetCostInfo(ctx context.Context, region, nodeType string) (*CostInfo, error)
	Name() string
}

type Config struct {
	Provider      string // aws, azure, gcp, default; empty auto-detects
	Region        string
	DefaultCPU    float64 // default-provider rate overrides
	DefaultMemory float64
}
