// internal/workers/ai-conversation/synthesize-query/config.go
package synthesizequery

import "time"

type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	// CacheTTL of zero disables the Redis cache.
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Temperature: 0,
		Timeout:     30 * time.Second,
	}
}
