package models

import "time"

// LeadStatus is the lifecycle status of a lead in the sales pipeline.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "NEW"
	LeadStatusContacted   LeadStatus = "CONTACTED"
	LeadStatusQualified   LeadStatus = "QUALIFIED"
	LeadStatusProposal    LeadStatus = "PROPOSAL"
	LeadStatusNegotiation LeadStatus = "NEGOTIATION"
	LeadStatusWon         LeadStatus = "WON"
	LeadStatusLost        LeadStatus = "LOST"
)

// PriorityTier buckets a lead by AI score.
type PriorityTier string

const (
	TierHot  PriorityTier = "hot"
	TierWarm PriorityTier = "warm"
	TierCold PriorityTier = "cold"
)

// Score banding boundaries. A tier returned by the model that disagrees with
// these bands is logged as a warning but persisted as returned.
const (
	HotScoreMin  = 70
	WarmScoreMin = 40
)

// TierForScore returns the tier the banding rule assigns to a score.
func TierForScore(score int) PriorityTier {
	switch {
	case score >= HotScoreMin:
		return TierHot
	case score >= WarmScoreMin:
		return TierWarm
	default:
		return TierCold
	}
}

// Signal is a named, weighted piece of evidence contributing to a lead's score.
type Signal struct {
	Type   string  `json:"type"`
	Weight float64 `json:"weight"` // 0..1
	Detail string  `json:"detail"`
}

// Lead is a prospective client. Soft-deleted only, never hard-deleted.
type Lead struct {
	ID             string     `json:"id"`
	ContactName    string     `json:"contactName"`
	ContactEmail   *string    `json:"contactEmail,omitempty"`
	CompanyName    string     `json:"companyName"`
	CompanyWebsite string     `json:"companyWebsite,omitempty"`
	Status         LeadStatus `json:"status"`
	Notes          string     `json:"notes,omitempty"`

	// AI fields, written by the scoring orchestrator.
	OverallScore              *int         `json:"overallScore,omitempty"` // 0..100
	PriorityTier              PriorityTier `json:"priorityTier,omitempty"`
	Signals                   []Signal     `json:"signals,omitempty"`
	PredictedCloseProbability *float64     `json:"predictedCloseProbability,omitempty"` // 0..1
	LastScoredAt              *time.Time   `json:"lastScoredAt,omitempty"`
	LastSuggestedAt           *time.Time   `json:"lastSuggestedAt,omitempty"`

	// Activity fields, written on inbound communication.
	LastContactAt *time.Time `json:"lastContactAt,omitempty"`
	AwaitingReply bool       `json:"awaitingReply"`

	// Conversion fields.
	ConvertedAt         *time.Time `json:"convertedAt,omitempty"`
	ConvertedToClientID *string    `json:"convertedToClientId,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// ScorePatch carries the AI fields written back to a lead by a scoring pass.
type ScorePatch struct {
	OverallScore              int          `json:"overallScore"`
	PriorityTier              PriorityTier `json:"priorityTier"`
	Signals                   []Signal     `json:"signals"`
	PredictedCloseProbability float64      `json:"predictedCloseProbability"`
	ScoredAt                  time.Time    `json:"scoredAt"`
}
