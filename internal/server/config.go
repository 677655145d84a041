package server

import "time"

// Config holds server options.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	// BundleRate is the number of bundle fetches per second allowed for one
	// requester and target pair, with BundleBurst on top.
	BundleRate  float64 `mapstructure:"bundle_rate"`
	BundleBurst int     `mapstructure:"bundle_burst"`
	LowWater    int     `mapstructure:"low_water"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "keydir"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.BundleRate <= 0 {
		c.BundleRate = 1
	}
	if c.BundleBurst <= 0 {
		c.BundleBurst = 5
	}
}
