package main

import (
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// Config is read from flags, each of which falls back to an environment variable.
type Config struct {
	Port              string
	HealthPort        string
	PublicOrigin      string
	StripeSecretKey   string
	StripeAPIURL      string
	StripeMaxRetries  int64
	SessionEndpoint   string
	ShippingCountries []string
	ShippingRate      string
	BasketCapacity    int
	ShutdownTimeout   time.Duration
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "port", Value: "8080", EnvVars: []string{"PORT"}, Usage: "HTTP listen port"},
		&cli.StringFlag{Name: "health-port", Value: "50210", EnvVars: []string{"HEALTH_PORT"}, Usage: "gRPC health listen port"},
		&cli.StringFlag{Name: "public-origin", Value: "http://localhost:8080", EnvVars: []string{"PUBLIC_ORIGIN"}, Usage: "origin used for success and cancel URLs"},
		&cli.StringFlag{Name: "stripe-secret-key", EnvVars: []string{"STRIPE_SECRET_KEY"}, Usage: "Stripe secret API key"},
		&cli.StringFlag{Name: "stripe-api-url", EnvVars: []string{"STRIPE_API_URL"}, Usage: "override the Stripe API base URL"},
		&cli.Int64Flag{Name: "stripe-max-retries", Value: 2, EnvVars: []string{"STRIPE_MAX_RETRIES"}},
		&cli.StringFlag{Name: "session-endpoint", EnvVars: []string{"SESSION_ENDPOINT"}, Usage: "remote checkout-session endpoint; in-process when empty"},
		&cli.StringFlag{Name: "shipping-countries", Value: "GB,US,CA,NL", EnvVars: []string{"SHIPPING_COUNTRIES"}},
		&cli.StringFlag{Name: "shipping-rate", EnvVars: []string{"SHIPPING_RATE"}, Usage: "Stripe shipping rate ID"},
		&cli.IntFlag{Name: "basket-capacity", Value: 1024, EnvVars: []string{"BASKET_CAPACITY"}},
		&cli.DurationFlag{Name: "shutdown-timeout", Value: 10 * time.Second, EnvVars: []string{"SHUTDOWN_TIMEOUT"}},
	}
}

func configFromContext(c *cli.Context) Config {
	return Config{
		Port:              c.String("port"),
		HealthPort:        c.String("health-port"),
		PublicOrigin:      c.String("public-origin"),
		StripeSecretKey:   c.String("stripe-secret-key"),
		StripeAPIURL:      c.String("stripe-api-url"),
		StripeMaxRetries:  c.Int64("stripe-max-retries"),
		SessionEndpoint:   c.String("session-endpoint"),
		ShippingCountries: splitList(c.String("shipping-countries")),
		ShippingRate:      c.String("shipping-rate"),
		BasketCapacity:    c.Int("basket-capacity"),
		ShutdownTimeout:   c.Duration("shutdown-timeout"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
