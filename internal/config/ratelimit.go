package config

import "time"

// RateLimit configures the token bucket guarding the devapi login endpoint.
// Variables are prefixed with RATE_LIMIT_ (RATE_LIMIT_CAPACITY, ...).
type RateLimit struct {
	Enabled        bool          `envconfig:"ENABLED" default:"true"`
	Capacity       int           `envconfig:"CAPACITY" default:"10"`
	RefillTokens   int           `envconfig:"REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" default:"6s"`
	TTL            time.Duration `envconfig:"TTL" default:"10m"`
	Prefix         string        `envconfig:"PREFIX" default:"rl"`
}

// normalized clamps values so the limiter script never sees a zero capacity,
// zero refill, or a TTL shorter than a few refill intervals.
func (r RateLimit) normalized() RateLimit {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
	if r.Prefix == "" {
		r.Prefix = "rl"
	}
	return r
}
