// internal/workers/infrastructure/build-response/config.go
package buildresponse

type Config struct {
	// Placeholder replaces fields a provider left out.
	Placeholder string
}

func LoadConfig() *Config {
	return &Config{
		Placeholder: "N/A",
	}
}
