package config

import "github.com/abdul-hamid-achik/hitfetch/packages/http"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:      30000, // 30 seconds
		MaxRedirects: http.DefaultMaxRedirects,
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.SocketTimeout == defaults.SocketTimeout &&
		c.FollowRedirects == nil &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.ValidateSSL == nil &&
		c.CACertFile == "" &&
		len(c.Headers) == 0 &&
		c.UserAgent == "" &&
		c.JSON == nil &&
		c.Encoding == "" &&
		c.RequestIDHeader == "" &&
		c.RateLimit == 0 &&
		c.Verbose == nil &&
		c.NoColor == nil
}
