package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/jellydator/ttlcache/v3"
	log "github.com/sirupsen/logrus"
)

// Resource kinds named in lookup errors and log lines.
const (
	KindEC2         = "ec2"
	KindRDS         = "rds"
	KindEFS         = "efs"
	KindElastiCache = "elasticache"
)

// Fixed catalog filter values. The reference architecture prices Linux
// shared-tenancy on-demand compute, a MySQL Multi-AZ database and a 2-node
// Memcached cluster; these are policy constants, not user inputs.
const (
	ec2OperatingSystem = "Linux"
	ec2Tenancy         = "Shared"
	ec2CapacityStatus  = "Used"

	rdsEngine     = "MySQL"
	rdsDeployment = "Multi-AZ"

	cacheEngine   = "Memcached"
	cacheNodeType = "cache.t4g.medium"

	// CacheNodeCount approximates the cluster size; the catalog is queried
	// for a single node and the hourly rate multiplied by this constant.
	CacheNodeCount = 2

	// efsTimedStorageUsage identifies storage-class SKUs by usage-type
	// substring, since the catalog has no direct filter for them.
	efsTimedStorageUsage = "TimedStorage"
)

// PriceCatalog resolves on-demand unit prices for the resource families of
// the reference architecture.
type PriceCatalog interface {
	EC2HourlyRate(ctx context.Context, region, instanceType string) (float64, error)
	RDSHourlyRate(ctx context.Context, region, instanceType string) (float64, error)
	EFSRatePerGB(ctx context.Context, region string) (float64, error)
	ElastiCacheHourlyRate(ctx context.Context, region string) (float64, error)
}

// Catalog implements PriceCatalog against the AWS Pricing API. Lookups never
// retry; failures propagate to the caller.
type Catalog struct {
	client  pricing.GetProductsAPIClient
	timeout time.Duration
	cache   *ttlcache.Cache[string, float64]
}

// NewCatalog wraps a Pricing API client. timeout bounds each GetProducts
// call (0 disables). cacheTTL keeps resolved unit prices in memory for that
// long (0 disables caching).
func NewCatalog(client pricing.GetProductsAPIClient, timeout, cacheTTL time.Duration) *Catalog {
	c := &Catalog{client: client, timeout: timeout}
	if cacheTTL > 0 {
		c.cache = ttlcache.New[string, float64](ttlcache.WithTTL[string, float64](cacheTTL))
	}
	return c
}

func (c *Catalog) EC2HourlyRate(ctx context.Context, region, instanceType string) (float64, error) {
	filters := []pricingtypes.Filter{
		termMatch("instanceType", instanceType),
		termMatch("operatingSystem", ec2OperatingSystem),
		termMatch("tenancy", ec2Tenancy),
		termMatch("preInstalledSw", "NA"),
		termMatch("capacitystatus", ec2CapacityStatus),
	}
	return c.unitPrice(ctx, KindEC2, "AmazonEC2", region, filters, nil)
}

func (c *Catalog) RDSHourlyRate(ctx context.Context, region, instanceType string) (float64, error) {
	filters := []pricingtypes.Filter{
		termMatch("instanceType", instanceType),
		termMatch("databaseEngine", rdsEngine),
		termMatch("deploymentOption", rdsDeployment),
	}
	return c.unitPrice(ctx, KindRDS, "AmazonRDS", region, filters, nil)
}

// EFSRatePerGB resolves the per-GB-month storage rate. The catalog does not
// expose storage classes as query filters, so the whole page is post-filtered
// by usage type.
func (c *Catalog) EFSRatePerGB(ctx context.Context, region string) (float64, error) {
	return c.unitPrice(ctx, KindEFS, "AmazonEFS", region, nil, func(p Pricing) bool {
		return strings.Contains(p.Product.Attributes["usagetype"], efsTimedStorageUsage)
	})
}

func (c *Catalog) ElastiCacheHourlyRate(ctx context.Context, region string) (float64, error) {
	filters := []pricingtypes.Filter{
		termMatch("cacheEngine", cacheEngine),
		termMatch("instanceType", cacheNodeType),
	}
	return c.unitPrice(ctx, KindElastiCache, "AmazonElastiCache", region, filters, nil)
}

// unitPrice issues a single GetProducts call and returns the USD unit price
// of the first product whose region attribute matches the requested region
// (plus the optional extra match). Only the first result page is inspected:
// a matching product beyond the page limit is reported as not found, a known
// limitation of the underlying query surface.
func (c *Catalog) unitPrice(ctx context.Context, kind, serviceCode, region string, filters []pricingtypes.Filter, match func(Pricing) bool) (float64, error) {
	key := cacheKey(serviceCode, region, filters)
	if c.cache != nil {
		if item := c.cache.Get(key); item != nil {
			log.Debugf("price cache hit [service=%s, region=%s]", serviceCode, region)
			return item.Value(), nil
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.client.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		Filters:     filters,
		MaxResults:  aws.Int32(MaxResultsPerPage),
	})
	if err != nil {
		return 0, &ProviderError{Kind: kind, Err: err}
	}

	for _, raw := range out.PriceList {
		var p Pricing
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			log.WithError(err).Errorf("failed to unmarshal pricing item [service=%s, region=%s]", serviceCode, region)
			continue
		}
		if p.Product.Attributes["regionCode"] != region {
			continue
		}
		if match != nil && !match(p) {
			continue
		}

		value, err := firstOnDemandRate(p)
		if err != nil {
			log.WithError(err).Debugf("skipping product without usable on-demand rate [service=%s, sku=%s]", serviceCode, p.Product.Sku)
			continue
		}
		if c.cache != nil {
			c.cache.Set(key, value, ttlcache.DefaultTTL)
		}
		return value, nil
	}

	return 0, &NotFoundError{Kind: kind, Region: region, Criteria: describeFilters(filters)}
}

// firstOnDemandRate picks the lexicographically first on-demand term and its
// first price dimension. The catalog normally returns exactly one on-demand
// term per product; the sorted order keeps the tie-break deterministic when
// it does not.
func firstOnDemandRate(p Pricing) (float64, error) {
	for _, termID := range sortedKeys(p.Terms.OnDemand) {
		term := p.Terms.OnDemand[termID]
		for _, dimID := range sortedKeys(term.PriceDimensions) {
			usd, ok := term.PriceDimensions[dimID].PricePerUnit["USD"]
			if !ok {
				continue
			}
			value, err := strconv.ParseFloat(usd, 64)
			if err != nil {
				return 0, fmt.Errorf("bad USD price %q in dimension %s: %w", usd, dimID, err)
			}
			return value, nil
		}
	}
	return 0, fmt.Errorf("no on-demand USD price dimension for sku %s", p.Product.Sku)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func termMatch(field, value string) pricingtypes.Filter {
	return pricingtypes.Filter{
		Field: aws.String(field),
		Type:  pricingtypes.FilterTypeTermMatch,
		Value: aws.String(value),
	}
}

func cacheKey(serviceCode, region string, filters []pricingtypes.Filter) string {
	parts := []string{serviceCode, region}
	for _, f := range filters {
		parts = append(parts, aws.ToString(f.Field)+"="+aws.ToString(f.Value))
	}
	return strings.Join(parts, "|")
}

func describeFilters(filters []pricingtypes.Filter) string {
	if len(filters) == 0 {
		return "none"
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = aws.ToString(f.Field) + "=" + aws.ToString(f.Value)
	}
	return strings.Join(parts, ", ")
}
