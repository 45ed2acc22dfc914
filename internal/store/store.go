// Package store is the Postgres persistence layer for the engine. It
// implements the narrow read/write interfaces the engine components consume
// (matcher.Directory, contextbuilder.Reader, suggest.Store) plus the lead
// write-back operations the workers call.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/models"
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

const leadColumns = `id, contact_name, contact_email, company_name, company_website, status, notes,
	overall_score, priority_tier, signals, predicted_close_probability,
	last_scored_at, last_suggested_at, last_contact_at, awaiting_reply,
	converted_at, converted_to_client_id, created_at, updated_at, deleted_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*models.Lead, error) {
	var l models.Lead
	var signals []byte
	err := row.Scan(
		&l.ID, &l.ContactName, &l.ContactEmail, &l.CompanyName, &l.CompanyWebsite,
		&l.Status, &l.Notes,
		&l.OverallScore, &l.PriorityTier, &signals, &l.PredictedCloseProbability,
		&l.LastScoredAt, &l.LastSuggestedAt, &l.LastContactAt, &l.AwaitingReply,
		&l.ConvertedAt, &l.ConvertedToClientID, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &l.Signals); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

// GetLead returns the lead or nil when absent. Soft-deleted leads are
// returned with DeletedAt set so callers can distinguish deleted from absent.
func (s *Store) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.NewQueryExecutionFailedError("get-lead", err)
	}
	return lead, nil
}

// ApplyScorePatch writes a scoring result back to the lead.
func (s *Store) ApplyScorePatch(ctx context.Context, leadID string, patch *models.ScorePatch) error {
	signals, err := json.Marshal(patch.Signals)
	if err != nil {
		return errors.NewLeadUpdateFailedError(leadID, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET overall_score = $2, priority_tier = $3, signals = $4,
		    predicted_close_probability = $5, last_scored_at = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		leadID, patch.OverallScore, patch.PriorityTier, signals,
		patch.PredictedCloseProbability, patch.ScoredAt,
	)
	if err != nil {
		return errors.NewLeadUpdateFailedError(leadID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewLeadNotFoundError(leadID)
	}
	return nil
}

// MarkLeadSuggested stamps last_suggested_at after a materialization pass.
func (s *Store) MarkLeadSuggested(ctx context.Context, leadID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE leads SET last_suggested_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, leadID, at)
	if err != nil {
		return errors.NewLeadUpdateFailedError(leadID, err)
	}
	return nil
}

// TouchLeadContact records inbound activity: bumps last_contact_at and flags
// the lead as awaiting a reply.
func (s *Store) TouchLeadContact(ctx context.Context, leadID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE leads SET last_contact_at = $2, awaiting_reply = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, leadID, at)
	if err != nil {
		return errors.NewLeadUpdateFailedError(leadID, err)
	}
	return nil
}

// ListScorableLeads returns all live, unconverted leads for a batch sweep,
// oldest-scored first so the stalest leads go through the gate first.
func (s *Store) ListScorableLeads(ctx context.Context) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE deleted_at IS NULL AND converted_at IS NULL
		ORDER BY last_scored_at ASC NULLS FIRST`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list-scorable-leads", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("list-scorable-leads", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list-scorable-leads", err)
	}
	return leads, nil
}
