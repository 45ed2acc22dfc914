package models

import "time"

// Thread is an email conversation. Once LeadID or ClientID is set the link is
// authoritative; the matcher never overwrites it.
type Thread struct {
	ID                string     `json:"id"`
	Subject           string     `json:"subject"`
	ParticipantEmails []string   `json:"participantEmails"`
	LeadID            *string    `json:"leadId,omitempty"`
	ClientID          *string    `json:"clientId,omitempty"`
	MessageCount      int        `json:"messageCount"`
	LastMessageAt     *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	DeletedAt         *time.Time `json:"deletedAt,omitempty"`
}

// IsLinked reports whether the thread already has an authoritative link.
func (t *Thread) IsLinked() bool {
	return t.LeadID != nil || t.ClientID != nil
}

// Message is a single email inside a thread.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	FromEmail string    `json:"fromEmail"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sentAt"`
}

// Meeting is a calendar event with attendees and an optional transcript.
type Meeting struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	AttendeeEmails []string   `json:"attendeeEmails"`
	Transcript     string     `json:"transcript,omitempty"`
	LeadID         *string    `json:"leadId,omitempty"`
	StartsAt       time.Time  `json:"startsAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// HasTranscript reports whether the meeting carries transcript text.
func (m *Meeting) HasTranscript() bool {
	return m.Transcript != ""
}
