// internal/workers/lead/match-communication/models.go
package matchcommunication

import "crm-engine/internal/engine/matcher"

// Input identifies the inbound communication to resolve. Exactly one of
// ThreadID or MeetingID is expected; ParticipantEmails may be supplied
// directly for communications not yet persisted.
type Input struct {
	ThreadID          string   `json:"threadId,omitempty"`
	MeetingID         string   `json:"meetingId,omitempty"`
	ParticipantEmails []string `json:"participantEmails,omitempty"`

	// AutoLink attaches the top candidate when it has HIGH confidence and the
	// communication is currently unlinked.
	AutoLink bool `json:"autoLink,omitempty"`
}

// Output carries the ranked candidates and what, if anything, was linked.
type Output struct {
	Candidates   []matcher.Candidate `json:"candidates"`
	LinkedLeadID string              `json:"linkedLeadId,omitempty"`
	Linked       bool                `json:"linked"`
}
