package models

import "time"

// Contact is a person with an email address, optionally linked to leads and
// clients. A contact's email is the atomic unit of identity matching.
type Contact struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Title     string     `json:"title,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// ContactLead links a contact to a lead.
type ContactLead struct {
	ContactID string `json:"contactId"`
	LeadID    string `json:"leadId"`
}

// ContactClient links a contact to a client.
type ContactClient struct {
	ContactID string `json:"contactId"`
	ClientID  string `json:"clientId"`
}

// Client is a converted, active account.
type Client struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CompanyName string     `json:"companyName"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Proposal is a prior offer sent for a lead.
type Proposal struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"leadId"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Project is delivery work belonging to a client.
type Project struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
