// internal/workers/lead/match-communication/handler.go
package matchcommunication

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/common/metrics"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/engine/matcher"
	"crm-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "match-communication"
)

// CommunicationStore is the persistence surface this worker needs beyond the
// matcher's own directory lookups.
type CommunicationStore interface {
	GetThread(ctx context.Context, id string) (*models.Thread, error)
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	LinkThreadToLead(ctx context.Context, threadID, leadID string) (bool, error)
	LinkMeetingToLead(ctx context.Context, meetingID, leadID string) (bool, error)
	TouchLeadContact(ctx context.Context, leadID string, at time.Time) error
}

type Handler struct {
	config    *Config
	matcher   *matcher.Matcher
	store     CommunicationStore
	assembler *contextbuilder.Assembler
	logger    logger.Logger
	errs      *errors.ErrorHandler
}

func NewHandler(config *Config, m *matcher.Matcher, store CommunicationStore, assembler *contextbuilder.Assembler, log logger.Logger) *Handler {
	wlog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		matcher:   m,
		store:     store,
		assembler: assembler,
		logger:    wlog,
		errs:      errors.NewErrorHandler(wlog),
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
	emails := input.ParticipantEmails
	var thread *models.Thread
	var meeting *models.Meeting

	switch {
	case input.ThreadID != "":
		t, err := h.store.GetThread(ctx, input.ThreadID)
		if err != nil {
			return nil, err
		}
		thread = t
		if len(emails) == 0 {
			emails = t.ParticipantEmails
		}
	case input.MeetingID != "":
		m, err := h.store.GetMeeting(ctx, input.MeetingID)
		if err != nil {
			return nil, err
		}
		meeting = m
		if len(emails) == 0 {
			emails = m.AttendeeEmails
		}
	}

	candidates, err := h.matcher.MatchEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		metrics.MatchCandidates.WithLabelValues(string(c.Source)).Inc()
	}

	output := &Output{Candidates: candidates}

	if !input.AutoLink || len(candidates) == 0 {
		return output, nil
	}
	top := candidates[0]
	if top.Confidence != matcher.ConfidenceHigh {
		return output, nil
	}

	// Existing links are authoritative: the linking updates are conditional
	// on the row being unlinked, so a false return just means someone else
	// owns the communication already.
	var linked bool
	switch {
	case thread != nil && !thread.IsLinked():
		linked, err = h.store.LinkThreadToLead(ctx, thread.ID, top.LeadID)
	case meeting != nil && meeting.LeadID == nil:
		linked, err = h.store.LinkMeetingToLead(ctx, meeting.ID, top.LeadID)
	}
	if err != nil {
		return nil, err
	}

	if linked {
		output.Linked = true
		output.LinkedLeadID = top.LeadID
		if err := h.store.TouchLeadContact(ctx, top.LeadID, time.Now().UTC()); err != nil {
			return nil, err
		}
		// The lead's identity set may now include new participants.
		h.assembler.InvalidateIdentityCache(ctx, top.LeadID)

		h.logger.Info("communication linked", map[string]interface{}{
			"leadId":    top.LeadID,
			"threadId":  input.ThreadID,
			"meetingId": input.MeetingID,
			"source":    string(top.Source),
		})
	}

	return output, nil
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
