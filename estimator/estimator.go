package estimator

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Service keys of the breakdown. Every estimate carries all of them;
// disabled services stay at "0.00".
const (
	ServiceEC2         = "ec2"
	ServiceRDS         = "rds"
	ServiceEFS         = "efs"
	ServiceElastiCache = "elasticache"
	ServiceNAT         = "nat"
	ServiceALB         = "alb"
	ServiceCloudFront  = "cloudfront"
	ServiceS3          = "s3"
	ServiceWAF         = "waf"
	ServiceRoute53     = "route53"
)

// ServiceOrder is the canonical ordering of breakdown lines, used for error
// surfacing and report rendering.
var ServiceOrder = []string{
	ServiceEC2, ServiceRDS, ServiceEFS, ServiceElastiCache,
	ServiceNAT, ServiceALB, ServiceCloudFront, ServiceS3, ServiceWAF, ServiceRoute53,
}

// Source tells whether a breakdown line came from a live catalog lookup or
// from a fixed flat-rate estimate.
type Source string

const (
	SourceCatalog  Source = "catalog"
	SourceEstimate Source = "estimate"
)

// Line is one priced service of the breakdown.
type Line struct {
	Service string
	Amount  decimal.Decimal
	Source  Source
}

// Estimate is the result of pricing one architecture model.
type Estimate struct {
	Lines map[string]Line
	Total decimal.Decimal
}

// Breakdown returns the per-service amounts formatted to two fractional digits.
func (e *Estimate) Breakdown() map[string]string {
	out := make(map[string]string, len(e.Lines))
	for service, line := range e.Lines {
		out[service] = line.Amount.StringFixed(2)
	}
	return out
}

func (e *Estimate) TotalString() string {
	return e.Total.StringFixed(2)
}

// Estimator validates architecture models and aggregates their monthly cost.
// Implements prometheus.Collector.
type Estimator struct {
	catalog        PriceCatalog
	policy         ValidationPolicy
	allowedRegions []string

	estimates prometheus.Counter
	failures  prometheus.Counter
	duration  prometheus.Gauge
}

// NewEstimator returns an estimator backed by the given catalog. An empty
// allowedRegions list disables the region allow-list check.
func NewEstimator(catalog PriceCatalog, policy ValidationPolicy, allowedRegions []string) *Estimator {
	return &Estimator{
		catalog:        catalog,
		policy:         policy,
		allowedRegions: allowedRegions,
		estimates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cloud_estimate",
			Name:      "estimates_total",
			Help:      "Total architecture estimates attempted.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cloud_estimate",
			Name:      "estimate_failures_total",
			Help:      "Estimates aborted by validation or lookup errors.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cloud_estimate",
			Name:      "estimate_duration_seconds",
			Help:      "Duration of the last estimate.",
		}),
	}
}

// Describe outputs metric descriptions.
func (e *Estimator) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.estimates.Desc()
	ch <- e.failures.Desc()
	ch <- e.duration.Desc()
}

// Collect outputs the estimator metrics.
func (e *Estimator) Collect(ch chan<- prometheus.Metric) {
	e.estimates.Collect(ch)
	e.failures.Collect(ch)
	e.duration.Collect(ch)
}

type lookupResult struct {
	service string
	amount  float64
	err     error
}

// Estimate validates the model, resolves every priced service and assembles
// the full breakdown. Catalog lookups are mutually independent and run
// concurrently; any single failure aborts the whole estimate and no partial
// breakdown is returned.
func (e *Estimator) Estimate(ctx context.Context, model *ArchitectureModel) (*Estimate, error) {
	start := time.Now()
	e.estimates.Inc()

	if err := model.Validate(e.policy, e.allowedRegions); err != nil {
		e.failures.Inc()
		return nil, err
	}

	region := model.Metadata.Region
	results := make(chan lookupResult, len(ServiceOrder))
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		amount, err := e.ec2Monthly(ctx, region, model)
		results <- lookupResult{service: ServiceEC2, amount: amount, err: err}
	}()

	if model.Database.RDS != nil && model.Database.RDS.InstanceType != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := e.catalog.RDSHourlyRate(ctx, region, model.Database.RDS.InstanceType)
			results <- lookupResult{service: ServiceRDS, amount: rate * HoursPerMonth, err: err}
		}()
	}

	if model.Storage.EFS != nil && model.Storage.EFS.StorageGB > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := e.catalog.EFSRatePerGB(ctx, region)
			results <- lookupResult{service: ServiceEFS, amount: rate * model.Storage.EFS.StorageGB, err: err}
		}()
	}

	if model.Cache.ElastiCache {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := e.catalog.ElastiCacheHourlyRate(ctx, region)
			results <- lookupResult{service: ServiceElastiCache, amount: rate * HoursPerMonth * CacheNodeCount, err: err}
		}()
	}

	wg.Wait()
	close(results)

	amounts := map[string]float64{}
	errs := map[string]error{}
	for r := range results {
		if r.err != nil {
			errs[r.service] = r.err
			continue
		}
		amounts[r.service] = r.amount
	}

	// Surface errors in canonical service order so the reported error does
	// not depend on goroutine scheduling.
	for _, service := range ServiceOrder {
		if err, ok := errs[service]; ok {
			e.failures.Inc()
			log.WithError(err).Errorf("estimate failed [service=%s, region=%s]", service, region)
			return nil, err
		}
	}

	amounts[ServiceNAT] = NATMonthlyCost(model.NATCount())
	amounts[ServiceALB] = ALBMonthlyCost(model.ALBCount())
	if model.Edge.CloudFront {
		amounts[ServiceCloudFront] = CloudFrontMonthlyCost()
	}
	if model.Edge.S3StaticAssets {
		amounts[ServiceS3] = S3MonthlyCost()
	}
	if model.Edge.WAF {
		amounts[ServiceWAF] = WAFMonthlyCost()
	}
	if model.DNS.Route53 {
		amounts[ServiceRoute53] = Route53MonthlyCost()
	}

	est := &Estimate{Lines: make(map[string]Line, len(ServiceOrder))}
	total := decimal.Zero
	for _, service := range ServiceOrder {
		amount := decimal.NewFromFloat(amounts[service]).Round(2)
		est.Lines[service] = Line{Service: service, Amount: amount, Source: lineSource(service)}
		total = total.Add(amount)
	}
	est.Total = total

	e.duration.Set(time.Since(start).Seconds())
	return est, nil
}

// ec2Monthly accumulates cost over every valid EC2 entry. Invalid entries
// contribute zero; see SpecCheck.
func (e *Estimator) ec2Monthly(ctx context.Context, region string, model *ArchitectureModel) (float64, error) {
	var total float64
	for _, check := range model.CheckEC2() {
		if !check.Valid {
			log.Debugf("skipping ec2 entry [index=%d, reason=%s]", check.Index, check.SkipReason)
			continue
		}
		rate, err := e.catalog.EC2HourlyRate(ctx, region, check.Spec.InstanceType)
		if err != nil {
			return 0, err
		}
		total += rate * HoursPerMonth * float64(check.Spec.Count())
	}
	return total, nil
}

func lineSource(service string) Source {
	switch service {
	case ServiceEC2, ServiceRDS, ServiceEFS, ServiceElastiCache:
		return SourceCatalog
	}
	return SourceEstimate
}

func contains(elems []string, v string) bool {
	for _, s := range elems {
		if v == s {
			return true
		}
	}
	return false
}
