// Package scoring invokes the external structured generation function with an
// assembled lead context and returns its validated output verbatim. Failures
// surface to the caller unmodified: no retry, no partial acceptance. Batch
// callers are responsible for catching per-item failures without aborting.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/genai"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/models"
)

// ScoreResult is the scoring output, persisted as returned by the model.
type ScoreResult struct {
	Score            int                 `json:"score"`
	Tier             models.PriorityTier `json:"tier"`
	Signals          []models.Signal     `json:"signals"`
	CloseProbability float64             `json:"closeProbability"`
}

// Action is one AI-proposed next step.
type Action struct {
	ActionType   models.ActionType `json:"actionType"`
	Title        string            `json:"title"`
	Body         string            `json:"body,omitempty"`
	TargetStatus models.LeadStatus `json:"targetStatus,omitempty"`
	Confidence   float64           `json:"confidence"`
	Reasoning    string            `json:"reasoning"`
}

// ActionPlan is the action-suggestion output.
type ActionPlan struct {
	Actions        []Action `json:"actions"`
	Summary        string   `json:"summary"`
	ShouldFollowUp bool     `json:"shouldFollowUp"`
}

// MaxActions is the cap the schema enforces on proposed actions.
const MaxActions = 5

type Orchestrator struct {
	gen    genai.Generator
	logger logger.Logger
}

func New(gen genai.Generator, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		gen:    gen,
		logger: log.WithFields(map[string]interface{}{"component": "scoring"}),
	}
}

// ScoreLead renders the scoring prompt, invokes the generation function, and
// returns the parsed result. A tier inconsistent with score banding is logged
// as a warning and returned as-is: the model's tier judgment is authoritative.
func (o *Orchestrator) ScoreLead(ctx context.Context, lc *contextbuilder.LeadContext) (*ScoreResult, error) {
	out, err := o.gen.GenerateStructured(ctx, scoreSystemPrompt, RenderScorePrompt(lc), ScoreResultSchema())
	if err != nil {
		return nil, err
	}

	var result ScoreResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, errors.NewAIValidationFailedError(fmt.Sprintf("score result decode: %v", err))
	}

	if banded := models.TierForScore(result.Score); banded != result.Tier {
		o.logger.Warn("tier inconsistent with score banding", map[string]interface{}{
			"leadId":     lc.Lead.ID,
			"score":      result.Score,
			"tier":       string(result.Tier),
			"bandedTier": string(banded),
		})
	}

	return &result, nil
}

// SuggestActions renders the action prompt, invokes the generation function,
// and returns the parsed plan with the action cap enforced.
func (o *Orchestrator) SuggestActions(ctx context.Context, lc *contextbuilder.LeadContext) (*ActionPlan, error) {
	out, err := o.gen.GenerateStructured(ctx, actionSystemPrompt, RenderActionPrompt(lc), ActionPlanSchema())
	if err != nil {
		return nil, err
	}

	var plan ActionPlan
	if err := json.Unmarshal(out, &plan); err != nil {
		return nil, errors.NewAIValidationFailedError(fmt.Sprintf("action plan decode: %v", err))
	}

	if len(plan.Actions) > MaxActions {
		plan.Actions = plan.Actions[:MaxActions]
	}

	return &plan, nil
}
