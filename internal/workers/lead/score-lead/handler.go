// internal/workers/lead/score-lead/handler.go
package scorelead

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/common/metrics"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/engine/scoring"
	"crm-engine/internal/engine/staleness"
	"crm-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-lead"

	skipReasonFresh = "SCORE_FRESH"
)

// LeadWriter persists the scoring result.
type LeadWriter interface {
	ApplyScorePatch(ctx context.Context, leadID string, patch *models.ScorePatch) error
}

type Handler struct {
	config       *Config
	assembler    *contextbuilder.Assembler
	orchestrator *scoring.Orchestrator
	writer       LeadWriter
	logger       logger.Logger
	errs         *errors.ErrorHandler
}

func NewHandler(config *Config, assembler *contextbuilder.Assembler, orchestrator *scoring.Orchestrator, writer LeadWriter, log logger.Logger) *Handler {
	wlog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		assembler:    assembler,
		orchestrator: orchestrator,
		writer:       writer,
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

	if !input.Force && !staleness.ShouldRescore(time.Now().UTC(), lc.Lead.LastScoredAt, lc.Lead.LastContactAt, h.config.RescoreThresholdDays) {
		output := &Output{
			LeadID:        input.LeadID,
			Scored:        false,
			SkippedReason: skipReasonFresh,
			PriorityTier:  lc.Lead.PriorityTier,
			Signals:       lc.Lead.Signals,
		}
		if lc.Lead.OverallScore != nil {
			output.OverallScore = *lc.Lead.OverallScore
		}
		if lc.Lead.PredictedCloseProbability != nil {
			output.PredictedCloseProbability = *lc.Lead.PredictedCloseProbability
		}
		return output, nil
	}

	result, err := h.orchestrator.ScoreLead(ctx, lc)
	if err != nil {
		return nil, err
	}

	patch := &models.ScorePatch{
		OverallScore:              result.Score,
		PriorityTier:              result.Tier,
		Signals:                   result.Signals,
		PredictedCloseProbability: result.CloseProbability,
		ScoredAt:                  time.Now().UTC(),
	}
	if err := h.writer.ApplyScorePatch(ctx, input.LeadID, patch); err != nil {
		return nil, err
	}
	metrics.LeadsScored.Inc()

	h.logger.Info("lead scored", map[string]interface{}{
		"leadId": input.LeadID,
		"score":  result.Score,
		"tier":   string(result.Tier),
	})

	return &Output{
		LeadID:                    input.LeadID,
		Scored:                    true,
		OverallScore:              result.Score,
		PriorityTier:              result.Tier,
		Signals:                   result.Signals,
		PredictedCloseProbability: result.CloseProbability,
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

// Execute is exposed for tests and the batch tool.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
