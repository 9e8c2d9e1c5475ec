package pricing

import (
	"context"
	"fmt"
	"time"
)

// GCPProvider implements GCP GKE pricing
type GCPProvider struct {
	region string
	cache  *PriceCache
}

func NewGCPProvider(region string) *GCPProvider {
	return &GCPProvider{
		region: region,
		cache:  NewPriceCache(24 * time.Hour),
	}
}

func (g *GCPProvider) Name() string {
	return "gcp"
}

func (g *GCPProvider) GetCostInfo(ctx context.Context, region, nodeType string) (*CostInfo, error) {
	cacheKey := fmt.Sprintf("gcp-%s-%s", region, nodeType)
	if cached := g.cache.Get(cacheKey); cached != nil {
		return cached, nil
	}

	// GCP pricing (e2-medium average)
	// TODO: Integrate with GCP Pricing API
	costInfo := &CostInfo{
		Provider:         "gcp",
		Region:           region,
		CPUCostPerCore:   31.0, // $/core/month
		MemoryCostPerGiB: 4.2,  // $/GiB/month
		Currency:         "USD",
		LastUpdated:      time.Now(),
	}

	g.cache.Set(cacheKey, costInfo)
	return costInfo, nil
}
