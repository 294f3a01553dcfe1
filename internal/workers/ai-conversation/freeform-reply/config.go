package freeformreply

import "time"

type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	// HistoryTurns bounds how many earlier turns are replayed to the model.
	HistoryTurns int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		HistoryTurns: 10,
	}
}
