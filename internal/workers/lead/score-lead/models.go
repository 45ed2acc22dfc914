// internal/workers/lead/score-lead/models.go
package scorelead

import "crm-engine/internal/models"

// Input names the lead to score. Force bypasses the staleness gate.
type Input struct {
	LeadID string `json:"leadId"`
	Force  bool   `json:"force,omitempty"`
}

// Output reports whether a scoring pass ran and its result. When the
// staleness gate skips the pass, the previous score fields are echoed.
type Output struct {
	LeadID                    string              `json:"leadId"`
	Scored                    bool                `json:"scored"`
	SkippedReason             string              `json:"skippedReason,omitempty"`
	OverallScore              int                 `json:"overallScore"`
	PriorityTier              models.PriorityTier `json:"priorityTier"`
	Signals                   []models.Signal     `json:"signals,omitempty"`
	PredictedCloseProbability float64             `json:"predictedCloseProbability"`
}
