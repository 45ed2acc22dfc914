// internal/workers/lead/suggest-actions/config.go
package suggestactions

import (
	"time"

	"crm-engine/internal/engine/staleness"
)

type Config struct {
	Timeout               time.Duration
	SuggestThresholdHours int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:               60 * time.Second,
		SuggestThresholdHours: staleness.DefaultSuggestThresholdHours,
	}
}
