package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/models"

	"github.com/lib/pq"
)

// Attach-once linking. An existing lead_id or client_id on a thread or
// meeting is authoritative; these updates only land on unlinked rows, so a
// match can never steal a communication from its current owner.

func (s *Store) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	// Scan shape matches ThreadsForLead; kept separate because this lookup
	// must see soft-deleted rows to report them as gone rather than absent.
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject, participant_emails, lead_id, client_id,
		       message_count, last_message_at, created_at, deleted_at
		FROM email_threads WHERE id = $1`, id)

	var t models.Thread
	err := row.Scan(&t.ID, &t.Subject, pq.Array(&t.ParticipantEmails), &t.LeadID, &t.ClientID,
		&t.MessageCount, &t.LastMessageAt, &t.CreatedAt, &t.DeletedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewThreadNotFoundError(id)
		}
		return nil, errors.NewQueryExecutionFailedError("get-thread", err)
	}
	if t.DeletedAt != nil {
		return nil, errors.NewThreadNotFoundError(id)
	}
	return &t, nil
}

func (s *Store) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, attendee_emails, transcript, lead_id, starts_at, deleted_at
		FROM meetings WHERE id = $1`, id)

	var m models.Meeting
	err := row.Scan(&m.ID, &m.Title, pq.Array(&m.AttendeeEmails), &m.Transcript,
		&m.LeadID, &m.StartsAt, &m.DeletedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewMeetingNotFoundError(id)
		}
		return nil, errors.NewQueryExecutionFailedError("get-meeting", err)
	}
	if m.DeletedAt != nil {
		return nil, errors.NewMeetingNotFoundError(id)
	}
	return &m, nil
}

// LinkThreadToLead sets the thread's lead link if and only if the thread is
// currently unlinked. Returns true when this call performed the link.
func (s *Store) LinkThreadToLead(ctx context.Context, threadID, leadID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE email_threads SET lead_id = $2
		WHERE id = $1 AND lead_id IS NULL AND client_id IS NULL AND deleted_at IS NULL`,
		threadID, leadID)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("link-thread-to-lead", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("link-thread-to-lead", err)
	}
	return n > 0, nil
}

// LinkMeetingToLead mirrors LinkThreadToLead for meetings.
func (s *Store) LinkMeetingToLead(ctx context.Context, meetingID, leadID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE meetings SET lead_id = $2
		WHERE id = $1 AND lead_id IS NULL AND deleted_at IS NULL`,
		meetingID, leadID)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("link-meeting-to-lead", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("link-meeting-to-lead", err)
	}
	return n > 0, nil
}
