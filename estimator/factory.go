package estimator

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

// SDKClientFactory creates real AWS SDK clients. Implements ClientFactory.
type SDKClientFactory struct {
	// PricingRegion is the endpoint region of the Pricing API, which is only
	// served from a handful of regions. Empty means us-east-1.
	PricingRegion string
}

func (f *SDKClientFactory) NewPricingClient() (pricing.GetProductsAPIClient, error) {
	region := f.PricingRegion
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Pricing API: %w", err)
	}
	return pricing.NewFromConfig(cfg), nil
}

func (f *SDKClientFactory) NewEC2Client(region string) (EC2DescribeRegionsAPI, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for EC2 [region=%s]: %w", region, err)
	}
	return ec2.NewFromConfig(cfg), nil
}
