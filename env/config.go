// Package env holds the configuration controlled by environment variables.
package env

import "github.com/kelseyhightower/envconfig"

// Config contains the configurations which are controlled by the ENV vars.
type Config struct {
	ExportDir        string `envconfig:"EXPORT_DIR" default:"exports"`
	PricingAPIRegion string `envconfig:"PRICING_API_REGION" default:"us-east-1"`
}

func LoadConfig() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
