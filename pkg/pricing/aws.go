package pricing

import (
	"context"
	"fmt"
	"time"
)

// AWSProvider implements AWS EKS pricing
type AWSProvider struct {
	region string
	cache  *PriceCache
}

func NewAWSProvider(region string) *AWSProvider {
	return &AWSProvider{
		region: region,
		cache:  NewPriceCache(24 * time.Hour),
	}
}

func (a *AWSProvider) Name() string {
	return "aws"
}

func (a *AWSProvider) GetCostInfo(ctx context.Context, region, nodeType string) (*CostInfo, error) {
	cacheKey := fmt.Sprintf("aws-%s-%s", region, nodeType)
	if cached := a.cache.Get(cacheKey); cached != nil {
		return cached, nil
	}

	// Typical AWS pricing (t3.medium average)
	// TODO: Integrate with AWS Pricing API in future
	costInfo := &CostInfo{
		Provider:         "aws",
		Region:           region,
		CPUCostPerCore:   33.0, // $/core/month
		MemoryCostPerGiB: 4.5,  // $/GiB/month
		Currency:         "USD",
		LastUpdated:      time.Now(),
	}

	a.cache.Set(cacheKey, costInfo)
	return costInfo, nil
}
