package guidedflow

import "time"

type Config struct {
	// ImageTimeout bounds fetching an image from the chat transport.
	ImageTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ImageTimeout: 30 * time.Second,
	}
}
