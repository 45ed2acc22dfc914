package models

// LeadContactMatch is a join row produced by contact-tier identity lookups:
// a contact email together with the lead it is linked to. Rows for
// soft-deleted contacts or leads are never returned by the store.
type LeadContactMatch struct {
	LeadID          string `json:"leadId"`
	LeadContactName string `json:"leadContactName"`
	ContactEmail    string `json:"contactEmail"`
}
