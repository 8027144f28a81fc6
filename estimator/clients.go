package estimator

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

// EC2DescribeRegionsAPI wraps the DescribeRegions call used to build the
// request-region allow-list at startup.
type EC2DescribeRegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// ClientFactory creates AWS service clients, enabling dependency injection
// for testing.
type ClientFactory interface {
	NewPricingClient() (pricing.GetProductsAPIClient, error)
	NewEC2Client(region string) (EC2DescribeRegionsAPI, error)
}

// DescribeEnabledRegions returns the account's enabled region codes. A model
// region outside this list is rejected as a validation error instead of
// surfacing later as a confusing catalog miss.
func DescribeEnabledRegions(ctx context.Context, client EC2DescribeRegionsAPI) ([]string, error) {
	out, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{AllRegions: aws.Bool(false)})
	if err != nil {
		return nil, fmt.Errorf("couldn't describe enabled regions: %w", err)
	}

	regions := make([]string, len(out.Regions))
	for i, region := range out.Regions {
		regions[i] = aws.ToString(region.RegionName)
	}
	return regions, nil
}
