// Package suggest turns AI action plans into persisted suggestion rows.
// Direct actions always create new rows; thread and transcript link
// suggestions are deduplicated so repeated runs against unchanged links are
// no-ops.
package suggest

import (
	"context"
	"time"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/common/metrics"
	"crm-engine/internal/engine/scoring"
	"crm-engine/internal/models"

	"github.com/google/uuid"
)

// LinkConfidence is the fixed confidence for LINK_EMAIL_THREAD and
// LINK_TRANSCRIPT suggestions. Link suggestions are mechanical, not
// model-judged, so they all carry the same value.
const LinkConfidence = 0.8

const (
	linkThreadReasoning     = "Associated email thread found. Approve to include it in scoring context."
	linkTranscriptReasoning = "Meeting transcript found. Approve to include it in scoring context."
)

// Store is the persistence surface the materializer writes through.
// SuggestionsForLead returns only non-deleted rows. CreateSuggestion is
// expected to enforce the dedup-key uniqueness constraint and report
// violations with code DUPLICATE_SUGGESTION.
type Store interface {
	SuggestionsForLead(ctx context.Context, leadID string) ([]models.Suggestion, error)
	CreateSuggestion(ctx context.Context, s *models.Suggestion) error
}

// Result reports how many suggestion rows one materialization pass created.
type Result struct {
	Created int `json:"createdCount"`
}

type Materializer struct {
	store  Store
	logger logger.Logger
}

func New(store Store, log logger.Logger) *Materializer {
	return &Materializer{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "suggest"}),
	}
}

// Materialize persists one pass of AI output for a lead. Direct actions
// become TASK or REPLY rows unconditionally. Thread and transcript links are
// created only when no live suggestion for the same target exists; the
// existing-target sets are computed once, up front, so the existence check is
// stable for the whole pass. Concurrent passes for the same lead rely on the
// storage-level dedup-key constraint, not on this check.
func (m *Materializer) Materialize(ctx context.Context, leadID string, plan *scoring.ActionPlan, threads []models.Thread, meetings []models.Meeting) (*Result, error) {
	existing, err := m.store.SuggestionsForLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	linkedThreads := make(map[string]struct{})
	linkedMeetings := make(map[string]struct{})
	for _, s := range existing {
		switch s.ActionType {
		case models.ActionLinkThread:
			linkedThreads[s.SuggestedContent.ThreadID] = struct{}{}
		case models.ActionLinkTranscript:
			linkedMeetings[s.SuggestedContent.MeetingID] = struct{}{}
		}
	}

	created := 0
	now := time.Now().UTC()

	if plan != nil {
		for _, action := range plan.Actions {
			sType := models.SuggestionTask
			if action.ActionType == models.ActionReply {
				sType = models.SuggestionReply
			}
			s := &models.Suggestion{
				ID:         uuid.New().String(),
				LeadID:     leadID,
				Type:       sType,
				Status:     models.SuggestionPending,
				ActionType: action.ActionType,
				Confidence: action.Confidence,
				Reasoning:  action.Reasoning,
				SuggestedContent: models.SuggestedContent{
					ActionType:   action.ActionType,
					Title:        action.Title,
					Body:         action.Body,
					TargetStatus: action.TargetStatus,
				},
				CreatedAt: now,
			}
			if err := m.create(ctx, s, &created); err != nil {
				return nil, err
			}
		}
	}

	for _, th := range threads {
		if _, ok := linkedThreads[th.ID]; ok {
			continue
		}
		threadID := th.ID
		s := &models.Suggestion{
			ID:         uuid.New().String(),
			LeadID:     leadID,
			ThreadID:   &threadID,
			Type:       models.SuggestionTask,
			Status:     models.SuggestionPending,
			ActionType: models.ActionLinkThread,
			DedupKey:   models.LinkThreadDedupKey(leadID, th.ID),
			Confidence: LinkConfidence,
			Reasoning:  linkThreadReasoning,
			SuggestedContent: models.SuggestedContent{
				ActionType: models.ActionLinkThread,
				Title:      "Link email thread: " + th.Subject,
				ThreadID:   th.ID,
			},
			CreatedAt: now,
		}
		if err := m.create(ctx, s, &created); err != nil {
			return nil, err
		}
	}

	for _, mt := range meetings {
		if !mt.HasTranscript() {
			continue
		}
		if _, ok := linkedMeetings[mt.ID]; ok {
			continue
		}
		s := &models.Suggestion{
			ID:         uuid.New().String(),
			LeadID:     leadID,
			Type:       models.SuggestionTask,
			Status:     models.SuggestionPending,
			ActionType: models.ActionLinkTranscript,
			DedupKey:   models.LinkTranscriptDedupKey(leadID, mt.ID),
			Confidence: LinkConfidence,
			Reasoning:  linkTranscriptReasoning,
			SuggestedContent: models.SuggestedContent{
				ActionType: models.ActionLinkTranscript,
				Title:      "Link meeting transcript: " + mt.Title,
				MeetingID:  mt.ID,
			},
			CreatedAt: now,
		}
		if err := m.create(ctx, s, &created); err != nil {
			return nil, err
		}
	}

	m.logger.Info("suggestions materialized", map[string]interface{}{
		"leadId":  leadID,
		"created": created,
	})

	return &Result{Created: created}, nil
}

// create inserts one suggestion and counts it. A duplicate-key violation
// means another pass already created an equivalent link suggestion; that is
// the dedup constraint doing its job, so the row is skipped without error.
func (m *Materializer) create(ctx context.Context, s *models.Suggestion, created *int) error {
	if err := m.store.CreateSuggestion(ctx, s); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeDuplicateSuggestion {
			m.logger.Debug("duplicate suggestion skipped", map[string]interface{}{
				"leadId":   s.LeadID,
				"dedupKey": s.DedupKey,
			})
			return nil
		}
		return err
	}
	metrics.SuggestionsCreated.WithLabelValues(string(s.ActionType)).Inc()
	*created++
	return nil
}
