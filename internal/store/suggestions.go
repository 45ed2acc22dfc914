package store

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/models"

	"github.com/lib/pq"
)

// Dedup for link suggestions is enforced by a partial unique index:
//
//	CREATE UNIQUE INDEX suggestions_dedup_key_live
//	ON suggestions (dedup_key) WHERE deleted_at IS NULL AND dedup_key <> '';
//
// Concurrent materialization passes for the same lead race past the in-memory
// existence check; the index turns the loser's insert into a 23505, which
// CreateSuggestion reports as DUPLICATE_SUGGESTION for the caller to skip.

const uniqueViolation = "23505"

// SuggestionsForLead returns all non-deleted suggestions for a lead.
func (s *Store) SuggestionsForLead(ctx context.Context, leadID string) ([]models.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lead_id, thread_id, type, status, action_type, dedup_key,
		       confidence, reasoning, suggested_content, created_at, deleted_at
		FROM suggestions
		WHERE lead_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("suggestions-for-lead", err)
	}
	defer rows.Close()

	var suggestions []models.Suggestion
	for rows.Next() {
		var sg models.Suggestion
		var content []byte
		if err := rows.Scan(&sg.ID, &sg.LeadID, &sg.ThreadID, &sg.Type, &sg.Status,
			&sg.ActionType, &sg.DedupKey, &sg.Confidence, &sg.Reasoning,
			&content, &sg.CreatedAt, &sg.DeletedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("suggestions-for-lead", err)
		}
		if len(content) > 0 {
			if err := json.Unmarshal(content, &sg.SuggestedContent); err != nil {
				return nil, errors.NewQueryExecutionFailedError("suggestions-for-lead", err)
			}
		}
		suggestions = append(suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("suggestions-for-lead", err)
	}
	return suggestions, nil
}

// CreateSuggestion inserts one suggestion row. A dedup-key collision comes
// back as a DUPLICATE_SUGGESTION error.
func (s *Store) CreateSuggestion(ctx context.Context, sg *models.Suggestion) error {
	content, err := json.Marshal(sg.SuggestedContent)
	if err != nil {
		return errors.NewSuggestionInsertFailedError(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suggestions
			(id, lead_id, thread_id, type, status, action_type, dedup_key,
			 confidence, reasoning, suggested_content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sg.ID, sg.LeadID, sg.ThreadID, sg.Type, sg.Status, sg.ActionType,
		sg.DedupKey, sg.Confidence, sg.Reasoning, content, sg.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return errors.NewDuplicateSuggestionError(sg.DedupKey)
		}
		return errors.NewSuggestionInsertFailedError(err)
	}
	return nil
}
