package estimator

// Flat-rate estimates for services the catalog does not expose through
// simple attribute filters. These are versioned approximations updated by
// hand, not live prices; the breakdown marks them as estimates.
const (
	natHourlyRate = 0.065

	albHourlyRate    = 0.025
	albLCUHourlyRate = 0.008

	cloudFrontDataTransferGB      = 3000.0
	cloudFrontPricePerGB          = 0.16
	cloudFrontMillionRequests     = 4.5
	cloudFrontRequestUnitSize     = 10000.0
	cloudFrontPricePerRequestUnit = 0.0075

	s3StorageGB  = 100.0
	s3PricePerGB = 0.023

	wafWebACLFee = 25.0
	wafRuleFee   = 5.0

	route53HostedZoneFee = 0.5
	route53QueryFee      = 0.4
)

func NATMonthlyCost(quantity int) float64 {
	return natHourlyRate * HoursPerMonth * float64(quantity)
}

func ALBMonthlyCost(quantity int) float64 {
	return (albHourlyRate + albLCUHourlyRate) * HoursPerMonth * float64(quantity)
}

func CloudFrontMonthlyCost() float64 {
	requestUnits := cloudFrontMillionRequests * 1_000_000 / cloudFrontRequestUnitSize
	return cloudFrontDataTransferGB*cloudFrontPricePerGB + requestUnits*cloudFrontPricePerRequestUnit
}

func S3MonthlyCost() float64 {
	return s3StorageGB * s3PricePerGB
}

func WAFMonthlyCost() float64 {
	return wafWebACLFee + wafRuleFee
}

func Route53MonthlyCost() float64 {
	return route53HostedZoneFee + route53QueryFee
}
