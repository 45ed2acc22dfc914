// internal/workers/lead/suggest-actions/models.go
package suggestactions

// Input names the lead to generate suggestions for. Force bypasses the
// staleness gate.
type Input struct {
	LeadID string `json:"leadId"`
	Force  bool   `json:"force,omitempty"`
}

// Output reports whether a suggestion pass ran and how many rows it created.
type Output struct {
	LeadID         string `json:"leadId"`
	Suggested      bool   `json:"suggested"`
	SkippedReason  string `json:"skippedReason,omitempty"`
	CreatedCount   int    `json:"createdCount"`
	Summary        string `json:"summary,omitempty"`
	ShouldFollowUp bool   `json:"shouldFollowUp"`
}
