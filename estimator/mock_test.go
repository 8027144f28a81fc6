package estimator

import (
	"context"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

// mockPricingClient implements pricing.GetProductsAPIClient for testing.
type mockPricingClient struct {
	GetProductsFn func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
	calls         atomic.Int64
}

func (m *mockPricingClient) GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	m.calls.Add(1)
	return m.GetProductsFn(ctx, params, optFns...)
}

// mockEC2Client implements EC2DescribeRegionsAPI for testing.
type mockEC2Client struct {
	DescribeRegionsFn func(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

func (m *mockEC2Client) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	return m.DescribeRegionsFn(ctx, params, optFns...)
}

// stubCatalog implements PriceCatalog with fixed rates and counts lookups.
// Counters are atomic because the estimator fans lookups out concurrently.
type stubCatalog struct {
	ec2Rate, rdsRate, efsRate, cacheRate float64
	ec2Err, rdsErr, efsErr, cacheErr     error

	ec2Calls, rdsCalls, efsCalls, cacheCalls atomic.Int64
}

func (s *stubCatalog) EC2HourlyRate(ctx context.Context, region, instanceType string) (float64, error) {
	s.ec2Calls.Add(1)
	return s.ec2Rate, s.ec2Err
}

func (s *stubCatalog) RDSHourlyRate(ctx context.Context, region, instanceType string) (float64, error) {
	s.rdsCalls.Add(1)
	return s.rdsRate, s.rdsErr
}

func (s *stubCatalog) EFSRatePerGB(ctx context.Context, region string) (float64, error) {
	s.efsCalls.Add(1)
	return s.efsRate, s.efsErr
}

func (s *stubCatalog) ElastiCacheHourlyRate(ctx context.Context, region string) (float64, error) {
	s.cacheCalls.Add(1)
	return s.cacheRate, s.cacheErr
}

func (s *stubCatalog) lookups() int64 {
	return s.ec2Calls.Load() + s.rdsCalls.Load() + s.efsCalls.Load() + s.cacheCalls.Load()
}
