package models

import (
	"fmt"
	"time"
)

// SuggestionType splits suggestions into tasks and drafted replies.
type SuggestionType string

const (
	SuggestionTask  SuggestionType = "TASK"
	SuggestionReply SuggestionType = "REPLY"
)

// SuggestionStatus is the human-review state of a suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "PENDING"
	SuggestionApproved SuggestionStatus = "APPROVED"
	SuggestionModified SuggestionStatus = "MODIFIED"
	SuggestionRejected SuggestionStatus = "REJECTED"
	SuggestionDraft    SuggestionStatus = "DRAFT"
)

// StatusBucket maps a status to the pending/approved/rejected grouping the
// downstream UI reads. This grouping is a compatibility contract.
func StatusBucket(s SuggestionStatus) string {
	switch s {
	case SuggestionApproved, SuggestionModified:
		return "approved"
	case SuggestionRejected:
		return "rejected"
	default: // PENDING, DRAFT
		return "pending"
	}
}

// ActionType discriminates the shape of a suggestion's content payload.
type ActionType string

const (
	ActionFollowUp       ActionType = "FOLLOW_UP"
	ActionReply          ActionType = "REPLY"
	ActionScheduleCall   ActionType = "SCHEDULE_CALL"
	ActionSendProposal   ActionType = "SEND_PROPOSAL"
	ActionAdvanceStatus  ActionType = "ADVANCE_STATUS"
	ActionLinkThread     ActionType = "LINK_EMAIL_THREAD"
	ActionLinkTranscript ActionType = "LINK_TRANSCRIPT"
)

// SuggestedContent is the polymorphic payload of a suggestion. Which fields
// are populated depends on ActionType.
type SuggestedContent struct {
	ActionType   ActionType `json:"actionType"`
	Title        string     `json:"title,omitempty"`
	Body         string     `json:"body,omitempty"`
	ThreadID     string     `json:"threadId,omitempty"`  // LINK_EMAIL_THREAD
	MeetingID    string     `json:"meetingId,omitempty"` // LINK_TRANSCRIPT
	TargetStatus LeadStatus `json:"targetStatus,omitempty"`
}

// Suggestion is a materialized, human-reviewable AI recommendation. ActionType
// is stored as a first-class column alongside the payload so dedup lookups do
// not depend on JSON-path filtering, and DedupKey backs a partial unique index
// at the persistence layer.
type Suggestion struct {
	ID               string           `json:"id"`
	LeadID           string           `json:"leadId"`
	ThreadID         *string          `json:"threadId,omitempty"`
	Type             SuggestionType   `json:"type"`
	Status           SuggestionStatus `json:"status"`
	ActionType       ActionType       `json:"actionType"`
	DedupKey         string           `json:"dedupKey,omitempty"`
	Confidence       float64          `json:"confidence"` // 0..1
	Reasoning        string           `json:"reasoning"`
	SuggestedContent SuggestedContent `json:"suggestedContent"`
	CreatedAt        time.Time        `json:"createdAt"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty"`
}

// LinkThreadDedupKey is the uniqueness key for LINK_EMAIL_THREAD suggestions:
// at most one non-deleted suggestion per (lead, thread).
func LinkThreadDedupKey(leadID, threadID string) string {
	return fmt.Sprintf("%s|%s|%s", leadID, ActionLinkThread, threadID)
}

// LinkTranscriptDedupKey is the uniqueness key for LINK_TRANSCRIPT
// suggestions: at most one non-deleted suggestion per (lead, meeting).
func LinkTranscriptDedupKey(leadID, meetingID string) string {
	return fmt.Sprintf("%s|%s|%s", leadID, ActionLinkTranscript, meetingID)
}
