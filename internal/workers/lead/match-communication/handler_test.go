// internal/workers/lead/match-communication/handler_test.go
package matchcommunication

import (
	"context"
	"testing"
	"time"

	"crm-engine/internal/common/config"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/engine/contextbuilder"
	"crm-engine/internal/engine/matcher"
	"crm-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeDirectory struct {
	leadsByEmail []models.Lead
}

func (f *fakeDirectory) FindLeadsByContactEmails(_ context.Context, emails []string) ([]models.Lead, error) {
	var out []models.Lead
	for _, l := range f.leadsByEmail {
		if l.ContactEmail == nil {
			continue
		}
		for _, e := range emails {
			if *l.ContactEmail == e {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (f *fakeDirectory) FindLeadContactsByEmails(_ context.Context, _ []string) ([]models.LeadContactMatch, error) {
	return nil, nil
}

func (f *fakeDirectory) FindLeadsByEmailDomains(_ context.Context, _ []string) ([]models.Lead, error) {
	return nil, nil
}

func (f *fakeDirectory) FindLeadContactsByEmailDomains(_ context.Context, _ []string) ([]models.LeadContactMatch, error) {
	return nil, nil
}

type fakeStore struct {
	thread  *models.Thread
	meeting *models.Meeting

	linkedThread  map[string]string
	linkedMeeting map[string]string
	touched       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		linkedThread:  make(map[string]string),
		linkedMeeting: make(map[string]string),
	}
}

func (f *fakeStore) GetThread(_ context.Context, id string) (*models.Thread, error) {
	return f.thread, nil
}

func (f *fakeStore) GetMeeting(_ context.Context, id string) (*models.Meeting, error) {
	return f.meeting, nil
}

func (f *fakeStore) LinkThreadToLead(_ context.Context, threadID, leadID string) (bool, error) {
	if f.thread.IsLinked() {
		return false, nil
	}
	f.linkedThread[threadID] = leadID
	return true, nil
}

func (f *fakeStore) LinkMeetingToLead(_ context.Context, meetingID, leadID string) (bool, error) {
	if f.meeting.LeadID != nil {
		return false, nil
	}
	f.linkedMeeting[meetingID] = leadID
	return true, nil
}

func (f *fakeStore) TouchLeadContact(_ context.Context, leadID string, _ time.Time) error {
	f.touched = append(f.touched, leadID)
	return nil
}

type noopReader struct{}

func (noopReader) GetLead(_ context.Context, _ string) (*models.Lead, error) { return nil, nil }
func (noopReader) ContactsForLead(_ context.Context, _ string) ([]models.Contact, error) {
	return nil, nil
}
func (noopReader) ThreadsForLead(_ context.Context, _ string, _ []string, _ int) ([]models.Thread, error) {
	return nil, nil
}
func (noopReader) MessagesForThread(_ context.Context, _ string, _ int) ([]models.Message, error) {
	return nil, nil
}
func (noopReader) MeetingsForLead(_ context.Context, _ string, _ []string, _ int) ([]models.Meeting, error) {
	return nil, nil
}
func (noopReader) ClientsForLeadContacts(_ context.Context, _ string) ([]models.Client, error) {
	return nil, nil
}
func (noopReader) ProposalsForLead(_ context.Context, _ string, _ int) ([]models.Proposal, error) {
	return nil, nil
}
func (noopReader) ProjectsForClients(_ context.Context, _ []string, _ int) ([]models.Project, error) {
	return nil, nil
}

func email(e string) *string {
	return &e
}

func createTestHandler(t *testing.T, dir matcher.Directory, store CommunicationStore) *Handler {
	log := logger.NewTestLogger(t)
	m := matcher.New(dir, config.DefaultFreeEmailDomains, log)
	assembler := contextbuilder.New(noopReader{}, nil, 0, log)
	return NewHandler(&Config{Timeout: 10 * time.Second}, m, store, assembler, log)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestExecute_ThreadMatchedAndAutoLinked(t *testing.T) {
	dir := &fakeDirectory{leadsByEmail: []models.Lead{
		{ID: "lead-1", ContactName: "Sarah Chen", ContactEmail: email("sarah@techstart.io")},
	}}
	store := newFakeStore()
	store.thread = &models.Thread{
		ID:                "thread-1",
		Subject:           "Website redesign",
		ParticipantEmails: []string{"sarah@techstart.io", "team@agency.com"},
	}

	h := createTestHandler(t, dir, store)
	output, err := h.Execute(context.Background(), &Input{ThreadID: "thread-1", AutoLink: true})
	require.NoError(t, err)

	require.Len(t, output.Candidates, 1)
	assert.Equal(t, matcher.ConfidenceHigh, output.Candidates[0].Confidence)
	assert.Equal(t, matcher.SourceDirectEmail, output.Candidates[0].Source)

	assert.True(t, output.Linked)
	assert.Equal(t, "lead-1", output.LinkedLeadID)
	assert.Equal(t, "lead-1", store.linkedThread["thread-1"])
	assert.Equal(t, []string{"lead-1"}, store.touched, "linking bumps last contact")
}

func TestExecute_AlreadyLinkedThreadNotOverwritten(t *testing.T) {
	dir := &fakeDirectory{leadsByEmail: []models.Lead{
		{ID: "lead-1", ContactEmail: email("sarah@techstart.io")},
	}}
	store := newFakeStore()
	owner := "lead-other"
	store.thread = &models.Thread{
		ID:                "thread-1",
		LeadID:            &owner,
		ParticipantEmails: []string{"sarah@techstart.io"},
	}

	h := createTestHandler(t, dir, store)
	output, err := h.Execute(context.Background(), &Input{ThreadID: "thread-1", AutoLink: true})
	require.NoError(t, err)

	assert.False(t, output.Linked)
	assert.Empty(t, store.linkedThread)
	assert.Empty(t, store.touched)
}

func TestExecute_MatchWithoutAutoLinkOnlyReportsCandidates(t *testing.T) {
	dir := &fakeDirectory{leadsByEmail: []models.Lead{
		{ID: "lead-1", ContactEmail: email("sarah@techstart.io")},
	}}
	store := newFakeStore()
	store.thread = &models.Thread{
		ID:                "thread-1",
		ParticipantEmails: []string{"sarah@techstart.io"},
	}

	h := createTestHandler(t, dir, store)
	output, err := h.Execute(context.Background(), &Input{ThreadID: "thread-1"})
	require.NoError(t, err)

	require.Len(t, output.Candidates, 1)
	assert.False(t, output.Linked)
	assert.Empty(t, store.linkedThread)
}

func TestExecute_MeetingMatchedAndAutoLinked(t *testing.T) {
	dir := &fakeDirectory{leadsByEmail: []models.Lead{
		{ID: "lead-1", ContactEmail: email("sarah@techstart.io")},
	}}
	store := newFakeStore()
	store.meeting = &models.Meeting{
		ID:             "mtg-1",
		Title:          "Discovery call",
		AttendeeEmails: []string{"sarah@techstart.io"},
	}

	h := createTestHandler(t, dir, store)
	output, err := h.Execute(context.Background(), &Input{MeetingID: "mtg-1", AutoLink: true})
	require.NoError(t, err)

	assert.True(t, output.Linked)
	assert.Equal(t, "lead-1", store.linkedMeeting["mtg-1"])
}

func TestExecute_NoCandidates(t *testing.T) {
	store := newFakeStore()
	store.thread = &models.Thread{
		ID:                "thread-1",
		ParticipantEmails: []string{"stranger@gmail.com"},
	}

	h := createTestHandler(t, &fakeDirectory{}, store)
	output, err := h.Execute(context.Background(), &Input{ThreadID: "thread-1", AutoLink: true})
	require.NoError(t, err)

	assert.Empty(t, output.Candidates)
	assert.False(t, output.Linked)
}

func TestExecute_RawEmailsInput(t *testing.T) {
	dir := &fakeDirectory{leadsByEmail: []models.Lead{
		{ID: "lead-1", ContactEmail: email("sarah@techstart.io")},
	}}

	h := createTestHandler(t, dir, newFakeStore())
	output, err := h.Execute(context.Background(), &Input{
		ParticipantEmails: []string{"SARAH@techstart.io"},
	})
	require.NoError(t, err)
	require.Len(t, output.Candidates, 1)
	assert.Equal(t, "lead-1", output.Candidates[0].LeadID)
}
