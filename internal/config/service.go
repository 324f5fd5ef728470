package config

import "time"

type ServiceConfig struct {
	Name                string        `yaml:"name"`
	Environment         string        `yaml:"environment"`
	Version             string        `yaml:"version"`
	ClientURL           string        `yaml:"client_url"`
	Currency            string        `yaml:"currency"`
	StripeSecretKey     string        `yaml:"stripe_secret_key"`
	StripeWebhookSecret string        `yaml:"stripe_webhook_secret"`
	GatewayTimeout      time.Duration `yaml:"gateway_timeout"`
}
