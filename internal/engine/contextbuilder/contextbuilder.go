// Package contextbuilder gathers a lead's linked threads, meetings, and
// related CRM records into a size-capped bundle suitable for an AI call. The
// caps are a deliberate backpressure mechanism against unbounded prompt
// growth: the bundle is bounded regardless of how much history a lead has.
package contextbuilder

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

// Bundle caps. Changing these changes prompt cost directly.
const (
	MaxThreads           = 10
	MaxMessagesPerThread = 5
	MaxBodyPreviewChars  = 1000
	MaxMeetings          = 5
	MaxProposals         = 5
	MaxProjects          = 10
)

const identityCachePrefix = "lead:emails:"

// ThreadContext is a thread with its most recent messages, bodies truncated.
type ThreadContext struct {
	Thread   models.Thread    `json:"thread"`
	Messages []models.Message `json:"messages"`
}

// LeadContext is the assembled, size-bounded bundle for one lead.
type LeadContext struct {
	Lead           models.Lead       `json:"lead"`
	IdentityEmails []string          `json:"identityEmails"`
	Threads        []ThreadContext   `json:"threads"`
	Meetings       []models.Meeting  `json:"meetings"`
	Clients        []models.Client   `json:"clients"`
	Proposals      []models.Proposal `json:"proposals"`
	Projects       []models.Project  `json:"projects"`
}

// Reader is the persistence surface the assembler reads from. Thread and
// meeting lookups cover both explicit leadId links and participant-email
// intersection with the supplied identity set, most recent first.
// MeetingsForLead returns transcript-bearing meetings only, filtered before
// the limit is applied.
type Reader interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	ContactsForLead(ctx context.Context, leadID string) ([]models.Contact, error)
	ThreadsForLead(ctx context.Context, leadID string, emails []string, limit int) ([]models.Thread, error)
	MessagesForThread(ctx context.Context, threadID string, limit int) ([]models.Message, error)
	MeetingsForLead(ctx context.Context, leadID string, emails []string, limit int) ([]models.Meeting, error)
	ClientsForLeadContacts(ctx context.Context, leadID string) ([]models.Client, error)
	ProposalsForLead(ctx context.Context, leadID string, limit int) ([]models.Proposal, error)
	ProjectsForClients(ctx context.Context, clientIDs []string, limit int) ([]models.Project, error)
}

// Assembler builds LeadContext bundles. The redis client is optional; when
// present the lead's identity email set is cached to spare a contacts query
// per assembly.
type Assembler struct {
	store    Reader
	cache    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func New(store Reader, cache *redis.Client, cacheTTL time.Duration, log logger.Logger) *Assembler {
	return &Assembler{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "contextbuilder"}),
	}
}

// Assemble loads the full bounded context for a lead. Returns a
// LEAD_NOT_FOUND error when the lead is absent or soft-deleted.
func (a *Assembler) Assemble(ctx context.Context, leadID string) (*LeadContext, error) {
	lead, err := a.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil || lead.DeletedAt != nil {
		return nil, errors.NewLeadNotFoundError(leadID)
	}

	identity, err := a.identityEmails(ctx, lead)
	if err != nil {
		return nil, err
	}

	threads, err := a.store.ThreadsForLead(ctx, leadID, identity, MaxThreads)
	if err != nil {
		return nil, err
	}
	if len(threads) > MaxThreads {
		threads = threads[:MaxThreads]
	}

	threadCtxs := make([]ThreadContext, 0, len(threads))
	for _, th := range threads {
		msgs, err := a.store.MessagesForThread(ctx, th.ID, MaxMessagesPerThread)
		if err != nil {
			return nil, err
		}
		if len(msgs) > MaxMessagesPerThread {
			msgs = msgs[:MaxMessagesPerThread]
		}
		for i := range msgs {
			msgs[i].Body = truncate(msgs[i].Body, MaxBodyPreviewChars)
		}
		threadCtxs = append(threadCtxs, ThreadContext{Thread: th, Messages: msgs})
	}

	meetings, err := a.store.MeetingsForLead(ctx, leadID, identity, MaxMeetings)
	if err != nil {
		return nil, err
	}
	withTranscripts := make([]models.Meeting, 0, len(meetings))
	for _, mt := range meetings {
		if !mt.HasTranscript() {
			continue
		}
		withTranscripts = append(withTranscripts, mt)
		if len(withTranscripts) == MaxMeetings {
			break
		}
	}

	clients, err := a.store.ClientsForLeadContacts(ctx, leadID)
	if err != nil {
		return nil, err
	}

	proposals, err := a.store.ProposalsForLead(ctx, leadID, MaxProposals)
	if err != nil {
		return nil, err
	}
	if len(proposals) > MaxProposals {
		proposals = proposals[:MaxProposals]
	}

	var projects []models.Project
	if len(clients) > 0 {
		clientIDs := make([]string, 0, len(clients))
		for _, c := range clients {
			clientIDs = append(clientIDs, c.ID)
		}
		projects, err = a.store.ProjectsForClients(ctx, clientIDs, MaxProjects)
		if err != nil {
			return nil, err
		}
		if len(projects) > MaxProjects {
			projects = projects[:MaxProjects]
		}
	}

	a.logger.Debug("lead context assembled", map[string]interface{}{
		"leadId":   leadID,
		"threads":  len(threadCtxs),
		"meetings": len(withTranscripts),
		"clients":  len(clients),
	})

	return &LeadContext{
		Lead:           *lead,
		IdentityEmails: identity,
		Threads:        threadCtxs,
		Meetings:       withTranscripts,
		Clients:        clients,
		Proposals:      proposals,
		Projects:       projects,
	}, nil
}

// identityEmails computes the normalized set of emails associated with the
// lead: its own contact email plus every linked contact's email.
func (a *Assembler) identityEmails(ctx context.Context, lead *models.Lead) ([]string, error) {
	cacheKey := identityCachePrefix + lead.ID

	if a.cache != nil {
		if val, err := a.cache.Get(ctx, cacheKey).Result(); err == nil {
			var emails []string
			if err := json.Unmarshal([]byte(val), &emails); err == nil {
				return emails, nil
			}
		}
	}

	seen := make(map[string]struct{})
	emails := make([]string, 0, 4)
	add := func(e string) {
		n := strings.ToLower(strings.TrimSpace(e))
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		emails = append(emails, n)
	}

	if lead.ContactEmail != nil {
		add(*lead.ContactEmail)
	}

	contacts, err := a.store.ContactsForLead(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range contacts {
		add(c.Email)
	}

	if a.cache != nil {
		if data, err := json.Marshal(emails); err == nil {
			a.cache.Set(ctx, cacheKey, data, a.cacheTTL)
		}
	}

	return emails, nil
}

// InvalidateIdentityCache drops the cached email set for a lead. Called when
// contacts are linked or unlinked.
func (a *Assembler) InvalidateIdentityCache(ctx context.Context, leadID string) {
	if a.cache != nil {
		a.cache.Del(ctx, identityCachePrefix+leadID)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
