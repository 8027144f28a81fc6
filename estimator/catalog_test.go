package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePricingJSON builds a valid catalog product record for testing, with a
// single on-demand term and price dimension.
func makePricingJSON(t *testing.T, sku, region, usagetype, priceUSD string) string {
	t.Helper()
	p := Pricing{
		Product: Product{
			Sku: sku,
			Attributes: map[string]string{
				"regionCode": region,
				"usagetype":  usagetype,
			},
		},
		Terms: Terms{
			OnDemand: map[string]SKU{
				sku + ".JRTCKXETXF": {
					PriceDimensions: map[string]Details{
						sku + ".JRTCKXETXF.6YS6EN2CT7": {
							Unit:         "Hrs",
							PricePerUnit: map[string]string{"USD": priceUSD},
						},
					},
				},
			},
		},
	}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return string(b)
}

func TestEC2HourlyRate_RegionPostFilter(t *testing.T) {
	var gotInput *pricing.GetProductsInput
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			gotInput = params
			return &pricing.GetProductsOutput{
				PriceList: []string{
					makePricingJSON(t, "SKU001", "us-west-2", "BoxUsage:m5.large", "9.99"),
					makePricingJSON(t, "SKU002", "us-east-1", "BoxUsage:m5.large", "0.096"),
				},
			}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	rate, err := c.EC2HourlyRate(context.Background(), "us-east-1", "m5.large")
	require.NoError(t, err)
	assert.Equal(t, 0.096, rate)

	require.NotNil(t, gotInput)
	assert.Equal(t, "AmazonEC2", aws.ToString(gotInput.ServiceCode))
	filters := filterMap(gotInput)
	assert.Equal(t, "m5.large", filters["instanceType"])
	assert.Equal(t, "Linux", filters["operatingSystem"])
	assert.Equal(t, "Shared", filters["tenancy"])
	assert.Equal(t, "NA", filters["preInstalledSw"])
	assert.Equal(t, "Used", filters["capacitystatus"])
}

func TestRDSHourlyRate_Filters(t *testing.T) {
	var gotInput *pricing.GetProductsInput
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			gotInput = params
			return &pricing.GetProductsOutput{
				PriceList: []string{makePricingJSON(t, "SKU003", "sa-east-1", "Multi-AZUsage:db.m6i.large", "0.20")},
			}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	rate, err := c.RDSHourlyRate(context.Background(), "sa-east-1", "db.m6i.large")
	require.NoError(t, err)
	assert.Equal(t, 0.20, rate)

	assert.Equal(t, "AmazonRDS", aws.ToString(gotInput.ServiceCode))
	filters := filterMap(gotInput)
	assert.Equal(t, "db.m6i.large", filters["instanceType"])
	assert.Equal(t, "MySQL", filters["databaseEngine"])
	assert.Equal(t, "Multi-AZ", filters["deploymentOption"])
}

func TestEFSRatePerGB_UsageTypePostFilter(t *testing.T) {
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			assert.Equal(t, "AmazonEFS", aws.ToString(params.ServiceCode))
			assert.Empty(t, params.Filters)
			return &pricing.GetProductsOutput{
				PriceList: []string{
					// Same region but a request SKU, must be skipped.
					makePricingJSON(t, "SKU010", "us-east-1", "Requests-Tier1", "0.01"),
					makePricingJSON(t, "SKU011", "us-east-1", "TimedStorage-ByteHrs", "0.30"),
				},
			}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	rate, err := c.EFSRatePerGB(context.Background(), "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, 0.30, rate)
}

func TestElastiCacheHourlyRate_FixedNodeType(t *testing.T) {
	var gotInput *pricing.GetProductsInput
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			gotInput = params
			return &pricing.GetProductsOutput{
				PriceList: []string{makePricingJSON(t, "SKU020", "eu-west-1", "NodeUsage:cache.t4g.medium", "0.081")},
			}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	rate, err := c.ElastiCacheHourlyRate(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, 0.081, rate)

	filters := filterMap(gotInput)
	assert.Equal(t, "Memcached", filters["cacheEngine"])
	assert.Equal(t, "cache.t4g.medium", filters["instanceType"])
}

func TestUnitPrice_TieBreakIsSortedKeyOrder(t *testing.T) {
	p := Pricing{
		Product: Product{Sku: "SKU030", Attributes: map[string]string{"regionCode": "us-east-1"}},
		Terms: Terms{
			OnDemand: map[string]SKU{
				"SKU030.ZZZZ": {
					PriceDimensions: map[string]Details{
						"SKU030.ZZZZ.1": {PricePerUnit: map[string]string{"USD": "9.99"}},
					},
				},
				"SKU030.AAAA": {
					PriceDimensions: map[string]Details{
						"SKU030.AAAA.Z": {PricePerUnit: map[string]string{"USD": "5.00"}},
						"SKU030.AAAA.B": {PricePerUnit: map[string]string{"USD": "1.23"}},
					},
				},
			},
		},
	}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			return &pricing.GetProductsOutput{PriceList: []string{string(b)}}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	for i := 0; i < 10; i++ {
		rate, err := c.EC2HourlyRate(context.Background(), "us-east-1", "m5.large")
		require.NoError(t, err)
		assert.Equal(t, 1.23, rate, "tie-break must pick the first term and dimension in sorted key order")
	}
}

func TestUnitPrice_NotFound(t *testing.T) {
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			return &pricing.GetProductsOutput{}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	_, err := c.EC2HourlyRate(context.Background(), "sa-east-1", "m6i.large")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "ec2")
	assert.Contains(t, err.Error(), "sa-east-1")
}

func TestUnitPrice_PaginationTruncation(t *testing.T) {
	// The matching product lives beyond the first page; only the first page
	// is inspected, so the lookup reports not found after one call.
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			return &pricing.GetProductsOutput{
				PriceList: []string{makePricingJSON(t, "SKU040", "us-west-2", "BoxUsage:m5.large", "0.10")},
				NextToken: aws.String("more-pages"),
			}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	_, err := c.EC2HourlyRate(context.Background(), "us-east-1", "m5.large")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestUnitPrice_ProviderError(t *testing.T) {
	cause := fmt.Errorf("throttled")
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			return nil, cause
		},
	}

	c := NewCatalog(client, 0, 0)
	_, err := c.RDSHourlyRate(context.Background(), "us-east-1", "db.m6i.large")
	require.Error(t, err)
	assert.True(t, IsProvider(err))
	assert.ErrorIs(t, err, cause)
	// A single failed call, never retried.
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestUnitPrice_CacheAvoidsSecondCall(t *testing.T) {
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			return &pricing.GetProductsOutput{
				PriceList: []string{makePricingJSON(t, "SKU050", "us-east-1", "BoxUsage:m5.large", "0.096")},
			}, nil
		},
	}

	c := NewCatalog(client, 0, time.Hour)
	first, err := c.EC2HourlyRate(context.Background(), "us-east-1", "m5.large")
	require.NoError(t, err)
	second, err := c.EC2HourlyRate(context.Background(), "us-east-1", "m5.large")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), client.calls.Load())

	// A different instance type misses the cache.
	_, err = c.EC2HourlyRate(context.Background(), "us-east-1", "m5.xlarge")
	require.NoError(t, err)
	assert.Equal(t, int64(2), client.calls.Load())
}

func TestUnitPrice_CacheDisabled(t *testing.T) {
	client := &mockPricingClient{
		GetProductsFn: func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
			return &pricing.GetProductsOutput{
				PriceList: []string{makePricingJSON(t, "SKU051", "us-east-1", "BoxUsage:m5.large", "0.096")},
			}, nil
		},
	}

	c := NewCatalog(client, 0, 0)
	_, err := c.EC2HourlyRate(context.Background(), "us-east-1", "m5.large")
	require.NoError(t, err)
	_, err = c.EC2HourlyRate(context.Background(), "us-east-1", "m5.large")
	require.NoError(t, err)
	assert.Equal(t, int64(2), client.calls.Load())
}

func TestDescribeEnabledRegions(t *testing.T) {
	client := &mockEC2Client{
		DescribeRegionsFn: func(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
			return &ec2.DescribeRegionsOutput{
				Regions: []ec2types.Region{
					{RegionName: aws.String("us-east-1")},
					{RegionName: aws.String("sa-east-1")},
				},
			}, nil
		},
	}

	regions, err := DescribeEnabledRegions(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, []string{"us-east-1", "sa-east-1"}, regions)
}

func TestDescribeEnabledRegions_APIError(t *testing.T) {
	client := &mockEC2Client{
		DescribeRegionsFn: func(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
			return nil, fmt.Errorf("access denied")
		},
	}

	_, err := DescribeEnabledRegions(context.Background(), client)
	assert.Error(t, err)
}

func filterMap(input *pricing.GetProductsInput) map[string]string {
	out := make(map[string]string, len(input.Filters))
	for _, f := range input.Filters {
		out[aws.ToString(f.Field)] = aws.ToString(f.Value)
	}
	return out
}
