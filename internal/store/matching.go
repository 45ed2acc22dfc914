package store

import (
	"context"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/models"

	"github.com/lib/pq"
)

// Identity-matching lookups. Emails and domains arrive pre-normalized
// (lowercase, trimmed) from the matcher; the SQL still lowercases the stored
// side so historic mixed-case rows keep matching.

// FindLeadsByContactEmails returns live leads whose own contact_email is in
// the given set.
func (s *Store) FindLeadsByContactEmails(ctx context.Context, emails []string) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE deleted_at IS NULL AND lower(contact_email) = ANY($1)`,
		pq.Array(emails))
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("leads-by-contact-emails", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// FindLeadContactsByEmails returns (lead, contact email) pairs for live
// contacts with a matching email that are linked to a live lead.
func (s *Store) FindLeadContactsByEmails(ctx context.Context, emails []string) ([]models.LeadContactMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.contact_name, c.email
		FROM contacts c
		JOIN contact_leads cl ON cl.contact_id = c.id
		JOIN leads l ON l.id = cl.lead_id
		WHERE c.deleted_at IS NULL AND l.deleted_at IS NULL
		  AND lower(c.email) = ANY($1)`,
		pq.Array(emails))
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("lead-contacts-by-emails", err)
	}
	defer rows.Close()
	return collectLeadContactMatches(rows)
}

// FindLeadsByEmailDomains returns live leads whose contact_email falls in one
// of the given domains.
func (s *Store) FindLeadsByEmailDomains(ctx context.Context, domains []string) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE deleted_at IS NULL AND contact_email IS NOT NULL
		  AND lower(split_part(contact_email, '@', 2)) = ANY($1)`,
		pq.Array(domains))
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("leads-by-email-domains", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// FindLeadContactsByEmailDomains returns (lead, contact email) pairs for live
// contacts whose email domain falls in the set.
func (s *Store) FindLeadContactsByEmailDomains(ctx context.Context, domains []string) ([]models.LeadContactMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.contact_name, c.email
		FROM contacts c
		JOIN contact_leads cl ON cl.contact_id = c.id
		JOIN leads l ON l.id = cl.lead_id
		WHERE c.deleted_at IS NULL AND l.deleted_at IS NULL
		  AND lower(split_part(c.email, '@', 2)) = ANY($1)`,
		pq.Array(domains))
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("lead-contacts-by-email-domains", err)
	}
	defer rows.Close()
	return collectLeadContactMatches(rows)
}

func collectLeads(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]models.Lead, error) {
	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan-lead", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("scan-lead", err)
	}
	return leads, nil
}

func collectLeadContactMatches(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]models.LeadContactMatch, error) {
	var matches []models.LeadContactMatch
	for rows.Next() {
		var m models.LeadContactMatch
		if err := rows.Scan(&m.LeadID, &m.LeadContactName, &m.ContactEmail); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan-lead-contact", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("scan-lead-contact", err)
	}
	return matches, nil
}
