package pricing

import (
	"context"
	"fmt"
	"time"
)

// AzureProvider implements Azure AKS pricing
type AzureProvider struct {
	region string
	cache  *PriceCache
}

func NewAzureProvider(region string) *AzureProvider {
	return &AzureProvider{
		region: region,
		cache:  NewPriceCache(24 * time.Hour),
	}
}

func (a *AzureProvider) Name() string {
	return "azure"
}

func (a *AzureProvider) GetCostInfo(ctx context.Context, region, nodeType string) (*CostInfo, error) {
	cacheKey := fmt.Sprintf("azure-%s-%s", region, nodeType)
	if cached := a.cache.Get(cacheKey); cached != nil {
		return cached, nil
	}

	// Azure standard pricing (averaged from common VM types)
	// D2s_v3: 2 vCPU, 8 GiB = ~$0.096/hour
	// CPU: ~$0.048/core/hour = ~$35/core/month
	// Memory: ~$0.006/GiB/hour = ~$4.3/GiB/month
	costInfo := &CostInfo{
		Provider:         "azure",
		Region:           region,
		CPUCostPerCore:   35.0, // $/core/month
		MemoryCostPerGiB: 4.3,  // $/GiB/month
		Currency:         "USD",
		LastUpdated:      time.Now(),
	}

	a.cache.Set(cacheKey, costInfo)
	return costInfo, nil
}
