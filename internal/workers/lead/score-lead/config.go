// internal/workers/lead/score-lead/config.go
package scorelead

import (
	"time"

	"crm-engine/internal/engine/staleness"
)

type Config struct {
	Timeout              time.Duration
	RescoreThresholdDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:              60 * time.Second,
		RescoreThresholdDays: staleness.DefaultRescoreThresholdDays,
	}
}
