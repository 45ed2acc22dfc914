package scoring

import (
	"context"
	"encoding/json"
	"testing"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator returns a canned payload or error and records the prompts it
// was called with.
type fakeGenerator struct {
	output json.RawMessage
	err    error

	lastSystem string
	lastUser   string
	calls      int
}

func (f *fakeGenerator) GenerateStructured(_ context.Context, system, user string, _ map[string]interface{}) (json.RawMessage, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func email(e string) *string {
	return &e
}

func testContext() *contextbuilder.LeadContext {
	return &contextbuilder.LeadContext{
		Lead: models.Lead{
			ID:           "lead-1",
			ContactName:  "Sarah Chen",
			ContactEmail: email("sarah@techstart.io"),
			CompanyName:  "TechStart",
			Status:       models.LeadStatusQualified,
		},
	}
}

func TestScoreLead_Success(t *testing.T) {
	gen := &fakeGenerator{output: json.RawMessage(`{
		"score": 82,
		"tier": "hot",
		"signals": [{"type": "budget_mentioned", "weight": 0.9, "detail": "Budget of $50k stated"}],
		"closeProbability": 0.7
	}`)}

	o := New(gen, logger.NewNoOpLogger())
	result, err := o.ScoreLead(context.Background(), testContext())
	require.NoError(t, err)

	assert.Equal(t, 82, result.Score)
	assert.Equal(t, models.TierHot, result.Tier)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, "budget_mentioned", result.Signals[0].Type)
	assert.InDelta(t, 0.7, result.CloseProbability, 1e-9)
}

func TestScoreLead_TierMismatchReturnedAsIs(t *testing.T) {
	// Score 85 bands to hot but the model said warm. The result is returned
	// untouched; reconciliation is not the orchestrator's call.
	gen := &fakeGenerator{output: json.RawMessage(`{
		"score": 85, "tier": "warm", "signals": [], "closeProbability": 0.5
	}`)}

	o := New(gen, logger.NewTestLogger(t))
	result, err := o.ScoreLead(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, models.TierWarm, result.Tier)
	assert.Equal(t, 85, result.Score)
}

func TestScoreLead_GenerationFailureSurfacedUnmodified(t *testing.T) {
	genErr := errors.NewAICallFailedError(assert.AnError)
	gen := &fakeGenerator{err: genErr}

	o := New(gen, logger.NewNoOpLogger())
	_, err := o.ScoreLead(context.Background(), testContext())
	require.Error(t, err)
	assert.Same(t, error(genErr), err)
	assert.Equal(t, 1, gen.calls, "no retry on failure")
}

func TestSuggestActions_Success(t *testing.T) {
	gen := &fakeGenerator{output: json.RawMessage(`{
		"actions": [
			{"actionType": "FOLLOW_UP", "title": "Send follow-up", "confidence": 0.8, "reasoning": "No reply in 5 days"},
			{"actionType": "SCHEDULE_CALL", "title": "Book discovery call", "confidence": 0.6, "reasoning": "Asked for a demo"}
		],
		"summary": "Engaged lead waiting on us.",
		"shouldFollowUp": true
	}`)}

	o := New(gen, logger.NewNoOpLogger())
	plan, err := o.SuggestActions(context.Background(), testContext())
	require.NoError(t, err)

	require.Len(t, plan.Actions, 2)
	assert.Equal(t, models.ActionFollowUp, plan.Actions[0].ActionType)
	assert.True(t, plan.ShouldFollowUp)
}

func TestSuggestActions_CapsActions(t *testing.T) {
	actions := `[`
	for i := 0; i < 7; i++ {
		if i > 0 {
			actions += ","
		}
		actions += `{"actionType": "FOLLOW_UP", "title": "t", "confidence": 0.5, "reasoning": "r"}`
	}
	actions += `]`

	gen := &fakeGenerator{output: json.RawMessage(`{"actions": ` + actions + `, "summary": "s", "shouldFollowUp": false}`)}

	o := New(gen, logger.NewNoOpLogger())
	plan, err := o.SuggestActions(context.Background(), testContext())
	require.NoError(t, err)
	assert.Len(t, plan.Actions, MaxActions)
}

func TestPromptRendering_Deterministic(t *testing.T) {
	lc := testContext()
	lc.Threads = []contextbuilder.ThreadContext{
		{
			Thread:   models.Thread{ID: "t1", Subject: "Project scope", MessageCount: 3},
			Messages: []models.Message{{FromEmail: "sarah@techstart.io", Body: "Can we talk budget?"}},
		},
	}

	first := RenderScorePrompt(lc)
	second := RenderScorePrompt(lc)
	assert.Equal(t, first, second)

	assert.Contains(t, first, "Sarah Chen")
	assert.Contains(t, first, "Project scope")
	assert.Contains(t, first, "Can we talk budget?")
}

func TestRenderActionPrompt_IncludesCurrentAssessment(t *testing.T) {
	lc := testContext()
	score := 64
	lc.Lead.OverallScore = &score
	lc.Lead.PriorityTier = models.TierWarm
	lc.Lead.Signals = []models.Signal{{Type: "demo_requested", Weight: 0.7, Detail: "Asked for demo"}}

	prompt := RenderActionPrompt(lc)
	assert.Contains(t, prompt, "Current Assessment")
	assert.Contains(t, prompt, "Score: 64 (warm)")
	assert.Contains(t, prompt, "demo_requested")
}
