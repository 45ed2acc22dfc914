// internal/workers/lead/suggest-actions/handler.go
package suggestactions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/engine/scoring"
	"crm-engine/internal/engine/staleness"
	"crm-engine/internal/engine/suggest"
	"crm-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "suggest-actions"

	skipReasonFresh = "SUGGESTIONS_FRESH"
)

// LeadMarker stamps the lead after a successful pass.
type LeadMarker interface {
	MarkLeadSuggested(ctx context.Context, leadID string, at time.Time) error
}

type Handler struct {
	config       *Config
	assembler    *contextbuilder.Assembler
	orchestrator *scoring.Orchestrator
	materializer *suggest.Materializer
	marker       LeadMarker
	logger       logger.Logger
	errs         *errors.ErrorHandler
}

func NewHandler(config *Config, assembler *contextbuilder.Assembler, orchestrator *scoring.Orchestrator, materializer *suggest.Materializer, marker LeadMarker, log logger.Logger) *Handler {
	wlog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		assembler:    assembler,
		orchestrator: orchestrator,
		materializer: materializer,
		marker:       marker,
		logger:       wlog,
		errs:         errors.NewErrorHandler(wlog),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errs.HandleJobError(context.Background(), client, job, errors.NewInvalidJobInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	if input.LeadID == "" {
		h.errs.HandleJobError(context.Background(), client, job, errors.NewInvalidJobInputError("leadId is required"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	lc, err := h.assembler.Assemble(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	if !input.Force && !staleness.ShouldSuggestActions(time.Now().UTC(), lc.Lead.LastSuggestedAt, lc.Lead.LastContactAt, h.config.SuggestThresholdHours) {
		return &Output{
			LeadID:        input.LeadID,
			Suggested:     false,
			SkippedReason: skipReasonFresh,
		}, nil
	}

	plan, err := h.orchestrator.SuggestActions(ctx, lc)
	if err != nil {
		return nil, err
	}

	threads := make([]models.Thread, 0, len(lc.Threads))
	for _, tc := range lc.Threads {
		threads = append(threads, tc.Thread)
	}

	result, err := h.materializer.Materialize(ctx, input.LeadID, plan, threads, lc.Meetings)
	if err != nil {
		return nil, err
	}

	if err := h.marker.MarkLeadSuggested(ctx, input.LeadID, time.Now().UTC()); err != nil {
		return nil, err
	}

	h.logger.Info("suggestions generated", map[string]interface{}{
		"leadId":  input.LeadID,
		"created": result.Created,
	})

	return &Output{
		LeadID:         input.LeadID,
		Suggested:      true,
		CreatedCount:   result.Created,
		Summary:        plan.Summary,
		ShouldFollowUp: plan.ShouldFollowUp,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Execute is exposed for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
