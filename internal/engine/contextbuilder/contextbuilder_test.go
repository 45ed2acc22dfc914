package contextbuilder

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeReader struct {
	lead     *models.Lead
	contacts []models.Contact
	threads  []models.Thread
	messages map[string][]models.Message
	meetings []models.Meeting
	clients  []models.Client

	contactCalls int
}

func (f *fakeReader) GetLead(_ context.Context, id string) (*models.Lead, error) {
	if f.lead == nil || f.lead.ID != id {
		return nil, errors.NewLeadNotFoundError(id)
	}
	return f.lead, nil
}

func (f *fakeReader) ContactsForLead(_ context.Context, _ string) ([]models.Contact, error) {
	f.contactCalls++
	return f.contacts, nil
}

func (f *fakeReader) ThreadsForLead(_ context.Context, _ string, _ []string, limit int) ([]models.Thread, error) {
	if len(f.threads) > limit {
		return f.threads[:limit], nil
	}
	return f.threads, nil
}

func (f *fakeReader) MessagesForThread(_ context.Context, threadID string, limit int) ([]models.Message, error) {
	msgs := f.messages[threadID]
	if len(msgs) > limit {
		return msgs[:limit], nil
	}
	return msgs, nil
}

func (f *fakeReader) MeetingsForLead(_ context.Context, _ string, _ []string, limit int) ([]models.Meeting, error) {
	out := make([]models.Meeting, 0, limit)
	for _, m := range f.meetings {
		if !m.HasTranscript() {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReader) ClientsForLeadContacts(_ context.Context, _ string) ([]models.Client, error) {
	return f.clients, nil
}

func (f *fakeReader) ProposalsForLead(_ context.Context, leadID string, limit int) ([]models.Proposal, error) {
	out := make([]models.Proposal, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, models.Proposal{ID: fmt.Sprintf("prop-%d", i), LeadID: leadID})
	}
	return out, nil
}

func (f *fakeReader) ProjectsForClients(_ context.Context, clientIDs []string, limit int) ([]models.Project, error) {
	out := make([]models.Project, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, models.Project{ID: fmt.Sprintf("proj-%d", i), ClientID: clientIDs[0]})
	}
	return out, nil
}

func email(e string) *string {
	return &e
}

func testLead() *models.Lead {
	return &models.Lead{
		ID:           "lead-1",
		ContactName:  "Sarah Chen",
		ContactEmail: email("sarah@techstart.io"),
		Status:       models.LeadStatusQualified,
	}
}

func newAssembler(r Reader, cache *redis.Client) *Assembler {
	return New(r, cache, 10*time.Minute, logger.NewNoOpLogger())
}

// ==========================
// Core Functionality Tests
// ==========================

func TestAssemble_LeadNotFound(t *testing.T) {
	a := newAssembler(&fakeReader{}, nil)

	_, err := a.Assemble(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLeadNotFound, errors.CodeOf(err))
}

func TestAssemble_SoftDeletedLeadNotFound(t *testing.T) {
	deleted := time.Now()
	lead := testLead()
	lead.DeletedAt = &deleted

	a := newAssembler(&fakeReader{lead: lead}, nil)

	_, err := a.Assemble(context.Background(), "lead-1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLeadNotFound, errors.CodeOf(err))
}

func TestAssemble_IdentityEmails(t *testing.T) {
	r := &fakeReader{
		lead: testLead(),
		contacts: []models.Contact{
			{ID: "c1", Email: "CTO@TechStart.io"},
			{ID: "c2", Email: "sarah@techstart.io"}, // dup of lead email
			{ID: "c3", Email: "  "},
		},
	}
	a := newAssembler(r, nil)

	lc, err := a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"sarah@techstart.io", "cto@techstart.io"}, lc.IdentityEmails)
}

func TestAssemble_BoundsAreEnforced(t *testing.T) {
	// A lead with 500 threads, each with 20 oversized messages, plus more
	// meetings and proposals than the caps allow.
	r := &fakeReader{
		lead:     testLead(),
		messages: make(map[string][]models.Message),
		clients:  []models.Client{{ID: "client-1"}},
	}
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("thread-%d", i)
		r.threads = append(r.threads, models.Thread{ID: id})
		for j := 0; j < 20; j++ {
			r.messages[id] = append(r.messages[id], models.Message{
				ID:       fmt.Sprintf("%s-msg-%d", id, j),
				ThreadID: id,
				Body:     strings.Repeat("x", 5000),
			})
		}
	}
	for i := 0; i < 12; i++ {
		r.meetings = append(r.meetings, models.Meeting{
			ID:         fmt.Sprintf("meeting-%d", i),
			Transcript: "transcript text",
		})
	}

	a := newAssembler(r, nil)
	lc, err := a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(lc.Threads), MaxThreads)
	assert.LessOrEqual(t, len(lc.Meetings), MaxMeetings)
	assert.LessOrEqual(t, len(lc.Proposals), MaxProposals)
	assert.LessOrEqual(t, len(lc.Projects), MaxProjects)
	for _, tc := range lc.Threads {
		assert.LessOrEqual(t, len(tc.Messages), MaxMessagesPerThread)
		for _, msg := range tc.Messages {
			assert.LessOrEqual(t, len(msg.Body), MaxBodyPreviewChars)
		}
	}
}

func TestAssemble_MeetingsWithoutTranscriptsExcluded(t *testing.T) {
	r := &fakeReader{
		lead: testLead(),
		meetings: []models.Meeting{
			{ID: "m1", Transcript: "has one"},
			{ID: "m2"},
			{ID: "m3", Transcript: "also has one"},
		},
	}
	a := newAssembler(r, nil)

	lc, err := a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)

	require.Len(t, lc.Meetings, 2)
	assert.Equal(t, "m1", lc.Meetings[0].ID)
	assert.Equal(t, "m3", lc.Meetings[1].ID)
}

func TestAssemble_OlderTranscriptSurvivesRecentTranscriptless(t *testing.T) {
	// Five recent meetings with no transcript must not crowd the cap: the
	// transcript filter applies before the limit, so the older meeting with
	// usable transcript text is still assembled.
	r := &fakeReader{lead: testLead()}
	for i := 0; i < MaxMeetings; i++ {
		r.meetings = append(r.meetings, models.Meeting{ID: fmt.Sprintf("recent-%d", i)})
	}
	r.meetings = append(r.meetings, models.Meeting{ID: "older-with-transcript", Transcript: "notes"})

	a := newAssembler(r, nil)
	lc, err := a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)

	require.Len(t, lc.Meetings, 1)
	assert.Equal(t, "older-with-transcript", lc.Meetings[0].ID)
}

func TestAssemble_IdentityCacheHitSkipsContactsQuery(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	r := &fakeReader{
		lead:     testLead(),
		contacts: []models.Contact{{ID: "c1", Email: "cto@techstart.io"}},
	}
	a := newAssembler(r, cache)

	_, err := a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.contactCalls)

	_, err = a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.contactCalls, "second assembly must hit the cache")

	a.InvalidateIdentityCache(context.Background(), "lead-1")

	_, err = a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 2, r.contactCalls, "invalidation must force a reload")
}

func TestAssemble_CacheErrorFallsThroughToStore(t *testing.T) {
	cache, mock := redismock.NewClientMock()
	key := "lead:emails:lead-1"
	mock.ExpectGet(key).SetErr(assert.AnError)
	mock.ExpectSet(key, []byte(`["sarah@techstart.io"]`), 10*time.Minute).SetVal("OK")

	r := &fakeReader{lead: testLead()}
	a := newAssembler(r, cache)

	lc, err := a.Assemble(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sarah@techstart.io"}, lc.IdentityEmails)
	assert.Equal(t, 1, r.contactCalls, "cache miss falls through to the contacts query")
	assert.NoError(t, mock.ExpectationsWereMet())
}
