package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/cloudestimate/cloud-estimate/api"
	"github.com/cloudestimate/cloud-estimate/env"
	"github.com/cloudestimate/cloud-estimate/estimator"
)

var (
	addr           = flag.String("listen-address", ":8080", "The address to listen on for HTTP requests.")
	metricsPath    = flag.String("metrics-path", "/metrics", "path to metrics endpoint")
	rawLevel       = flag.String("log-level", "info", "log level")
	validationMode = flag.String("validation-mode", "strict", "Validation policy for architecture models. Accepted values: strict, lenient")
	regions        = flag.String("regions", "", "Comma separated list of AWS regions accepted in requests (defaults to the account's enabled regions)")
	lookupTimeout  = flag.Duration("lookup-timeout", 10*time.Second, "Per-lookup timeout against the Pricing API (0 disables)")
	priceCacheTTL  = flag.Duration("price-cache-ttl", time.Hour, "How long resolved unit prices are cached (0 disables)")
	exportDisabled = flag.Bool("export-disabled", false, "Disable writing Markdown report files")
)

func main() {
	flag.Parse()
	parsedLevel, err := log.ParseLevel(*rawLevel)
	if err != nil {
		log.WithError(err).Warnf("Couldn't parse log level, using default: %s", log.GetLevel())
	} else {
		log.SetLevel(parsedLevel)
		log.Debugf("Set log level to %s", parsedLevel)
	}

	policy, err := estimator.ParseValidationPolicy(*validationMode)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := env.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration from environment")
	}

	log.Infof("Starting cloud-estimate. [log-level=%s, validation-mode=%s, regions=%s, price-cache-ttl=%s, export-dir=%s]",
		*rawLevel, policy, *regions, *priceCacheTTL, cfg.ExportDir)

	factory := &estimator.SDKClientFactory{PricingRegion: cfg.PricingAPIRegion}

	allowed := splitAndTrim(*regions)
	if len(allowed) == 0 {
		ec2Client, err := factory.NewEC2Client(cfg.PricingAPIRegion)
		if err != nil {
			log.WithError(err).Fatal("error while initializing aws client to list available regions")
		}
		allowed, err = estimator.DescribeEnabledRegions(context.TODO(), ec2Client)
		if err != nil {
			log.Fatal(err)
		}
		log.Debugf("accepting %d enabled regions", len(allowed))
	}

	pricingClient, err := factory.NewPricingClient()
	if err != nil {
		log.Fatal(err)
	}

	catalog := estimator.NewCatalog(pricingClient, *lookupTimeout, *priceCacheTTL)
	est := estimator.NewEstimator(catalog, policy, allowed)
	prometheus.MustRegister(est)

	var writer *estimator.ReportWriter
	if !*exportDisabled && cfg.ExportDir != "" {
		writer = &estimator.ReportWriter{Dir: cfg.ExportDir}
	}

	mux := http.NewServeMux()
	mux.Handle(*metricsPath, promhttp.Handler())
	mux.Handle("/", api.NewServer(est, writer))

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		log.Infof("Received %s, shutting down...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Infof("Starting http endpoint [address=%s]", *addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func splitAndTrim(str string) []string {
	if str == "" {
		return []string{}
	}
	parts := []string{}
	for _, p := range strings.Split(str, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
