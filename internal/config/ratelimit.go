package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig configures the redis token bucket guarding public POST
// routes (bookings, payment verification, waitlist).
type RateLimitConfig struct {
	Enabled        bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Capacity       int           `envconfig:"RATE_LIMIT_CAPACITY" default:"20"`
	RefillTokens   int           `envconfig:"RATE_LIMIT_REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"3s"`
	TTL            time.Duration `envconfig:"RATE_LIMIT_TTL" default:"10m"`
	// KeyStrategy is one of ip, route or ip_route.
	KeyStrategy string `envconfig:"RATE_LIMIT_KEY_STRATEGY" default:"ip_route"`
	Prefix      string `envconfig:"RATE_LIMIT_PREFIX" default:"rl"`
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to sane
// minimums.
func LoadRateLimitConfig() RateLimitConfig {
	var c RateLimitConfig
	if err := envconfig.Process("", &c); err != nil {
		c = RateLimitConfig{Enabled: true, Capacity: 20, RefillTokens: 1,
			RefillInterval: 3 * time.Second, TTL: 10 * time.Minute, KeyStrategy: "ip_route", Prefix: "rl"}
	}
	return c.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// the bucket must outlive a full refill cycle or it resets to full early
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
