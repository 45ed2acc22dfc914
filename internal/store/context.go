package store

import (
	"context"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/models"

	"github.com/lib/pq"
)

// Context-assembly reads. Thread and meeting lookups union the explicit
// lead_id link with participant-email intersection against the lead's
// identity set, most recent first, capped in SQL.

func (s *Store) ContactsForLead(ctx context.Context, leadID string) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.email, c.title, c.created_at, c.deleted_at
		FROM contacts c
		JOIN contact_leads cl ON cl.contact_id = c.id
		WHERE cl.lead_id = $1 AND c.deleted_at IS NULL`, leadID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("contacts-for-lead", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Title, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("contacts-for-lead", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("contacts-for-lead", err)
	}
	return contacts, nil
}

func (s *Store) ThreadsForLead(ctx context.Context, leadID string, emails []string, limit int) ([]models.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, participant_emails, lead_id, client_id,
		       message_count, last_message_at, created_at, deleted_at
		FROM email_threads
		WHERE deleted_at IS NULL
		  AND (lead_id = $1 OR participant_emails && $2)
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $3`, leadID, pq.Array(emails), limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("threads-for-lead", err)
	}
	defer rows.Close()
	return collectThreads(rows, "threads-for-lead")
}

// ThreadsForLeadOrIDs returns threads linked to the lead together with the
// given candidate thread ids. Used when the candidates come from the search
// index instead of the SQL participant overlap.
func (s *Store) ThreadsForLeadOrIDs(ctx context.Context, leadID string, ids []string, limit int) ([]models.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, participant_emails, lead_id, client_id,
		       message_count, last_message_at, created_at, deleted_at
		FROM email_threads
		WHERE deleted_at IS NULL
		  AND (lead_id = $1 OR id = ANY($2))
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $3`, leadID, pq.Array(ids), limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("threads-for-lead-or-ids", err)
	}
	defer rows.Close()
	return collectThreads(rows, "threads-for-lead-or-ids")
}

func collectThreads(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}, queryName string) ([]models.Thread, error) {
	var threads []models.Thread
	for rows.Next() {
		var t models.Thread
		if err := rows.Scan(&t.ID, &t.Subject, pq.Array(&t.ParticipantEmails), &t.LeadID, &t.ClientID,
			&t.MessageCount, &t.LastMessageAt, &t.CreatedAt, &t.DeletedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError(queryName, err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryName, err)
	}
	return threads, nil
}

func (s *Store) MessagesForThread(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, from_email, body, sent_at
		FROM email_messages
		WHERE thread_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`, threadID, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("messages-for-thread", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.FromEmail, &m.Body, &m.SentAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("messages-for-thread", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("messages-for-thread", err)
	}
	return msgs, nil
}

// MeetingsForLead returns only transcript-bearing meetings: the filter runs
// before the cap so a recent run of transcript-less meetings cannot crowd out
// an older meeting whose transcript is usable.
func (s *Store) MeetingsForLead(ctx context.Context, leadID string, emails []string, limit int) ([]models.Meeting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, attendee_emails, transcript, lead_id, starts_at, deleted_at
		FROM meetings
		WHERE deleted_at IS NULL
		  AND transcript IS NOT NULL AND transcript <> ''
		  AND (lead_id = $1 OR attendee_emails && $2)
		ORDER BY starts_at DESC
		LIMIT $3`, leadID, pq.Array(emails), limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("meetings-for-lead", err)
	}
	defer rows.Close()

	var meetings []models.Meeting
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.Title, pq.Array(&m.AttendeeEmails), &m.Transcript,
			&m.LeadID, &m.StartsAt, &m.DeletedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("meetings-for-lead", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("meetings-for-lead", err)
	}
	return meetings, nil
}

func (s *Store) ClientsForLeadContacts(ctx context.Context, leadID string) ([]models.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT cli.id, cli.name, cli.company_name, cli.created_at, cli.deleted_at
		FROM clients cli
		JOIN contact_clients cc ON cc.client_id = cli.id
		JOIN contact_leads cl ON cl.contact_id = cc.contact_id
		WHERE cl.lead_id = $1 AND cli.deleted_at IS NULL`, leadID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("clients-for-lead-contacts", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CompanyName, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("clients-for-lead-contacts", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("clients-for-lead-contacts", err)
	}
	return clients, nil
}

func (s *Store) ProposalsForLead(ctx context.Context, leadID string, limit int) ([]models.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lead_id, title, status, amount, created_at
		FROM proposals
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, leadID, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("proposals-for-lead", err)
	}
	defer rows.Close()

	var proposals []models.Proposal
	for rows.Next() {
		var p models.Proposal
		if err := rows.Scan(&p.ID, &p.LeadID, &p.Title, &p.Status, &p.Amount, &p.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("proposals-for-lead", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("proposals-for-lead", err)
	}
	return proposals, nil
}

func (s *Store) ProjectsForClients(ctx context.Context, clientIDs []string, limit int) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, name, status, created_at
		FROM projects
		WHERE client_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2`, pq.Array(clientIDs), limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("projects-for-clients", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &p.Status, &p.CreatedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("projects-for-clients", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("projects-for-clients", err)
	}
	return projects, nil
}
