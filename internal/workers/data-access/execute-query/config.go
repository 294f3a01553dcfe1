// internal/workers/data-access/execute-query/config.go
package executequery

import "time"

type Config struct {
	Timeout time.Duration
	// MaxRows caps the records returned; zero means unlimited.
	MaxRows int
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		MaxRows: 50,
	}
}
