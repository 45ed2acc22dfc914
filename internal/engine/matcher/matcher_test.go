package matcher

import (
	"context"
	"strings"
	"testing"

	"crm-engine/internal/common/config"
	"crm-engine/internal/common/logger"
	"crm-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeDirectory serves canned leads and contact links and counts every call,
// so tests can assert the empty-input short-circuit never hits the store.
type fakeDirectory struct {
	leads    []models.Lead
	contacts []models.LeadContactMatch

	calls int
}

func (d *fakeDirectory) FindLeadsByContactEmails(_ context.Context, emails []string) ([]models.Lead, error) {
	d.calls++
	set := toSet(emails)
	var out []models.Lead
	for _, l := range d.leads {
		if l.ContactEmail == nil || l.DeletedAt != nil {
			continue
		}
		if _, ok := set[strings.ToLower(*l.ContactEmail)]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (d *fakeDirectory) FindLeadContactsByEmails(_ context.Context, emails []string) ([]models.LeadContactMatch, error) {
	d.calls++
	set := toSet(emails)
	var out []models.LeadContactMatch
	for _, c := range d.contacts {
		if _, ok := set[strings.ToLower(c.ContactEmail)]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *fakeDirectory) FindLeadsByEmailDomains(_ context.Context, domains []string) ([]models.Lead, error) {
	d.calls++
	set := toSet(domains)
	var out []models.Lead
	for _, l := range d.leads {
		if l.ContactEmail == nil || l.DeletedAt != nil {
			continue
		}
		if _, ok := set[domainOf(*l.ContactEmail)]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (d *fakeDirectory) FindLeadContactsByEmailDomains(_ context.Context, domains []string) ([]models.LeadContactMatch, error) {
	d.calls++
	set := toSet(domains)
	var out []models.LeadContactMatch
	for _, c := range d.contacts {
		if _, ok := set[domainOf(c.ContactEmail)]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func toSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

func domainOf(email string) string {
	idx := strings.Index(email, "@")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(email[idx+1:])
}

func email(e string) *string {
	return &e
}

func newTestMatcher(dir *fakeDirectory) *Matcher {
	return New(dir, config.DefaultFreeEmailDomains, logger.NewNoOpLogger())
}

// ==========================
// Core Functionality Tests
// ==========================

func TestMatchEmails_EmptyInputShortCircuits(t *testing.T) {
	dir := &fakeDirectory{}
	m := newTestMatcher(dir)

	for _, input := range [][]string{nil, {}, {""}, {"   ", "\t"}} {
		got, err := m.MatchEmails(context.Background(), input)
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	assert.Equal(t, 0, dir.calls, "empty input must not touch the directory")
}

func TestMatchEmails_DirectEmailTier(t *testing.T) {
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-1", ContactName: "Sarah Chen", ContactEmail: email("sarah@techstart.io")},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"  Sarah@TechStart.io "})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "lead-1", got[0].LeadID)
	assert.Equal(t, ConfidenceHigh, got[0].Confidence)
	assert.Equal(t, SourceDirectEmail, got[0].Source)
	assert.Equal(t, "sarah@techstart.io", got[0].MatchedEmail)
}

func TestMatchEmails_DirectBeatsDomain(t *testing.T) {
	// The lead's own email matches exactly AND its domain matches; the exact
	// match must win and the lead must appear only once.
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-1", ContactName: "Sarah Chen", ContactEmail: email("sarah@techstart.io")},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"sarah@techstart.io", "other@techstart.io"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, SourceDirectEmail, got[0].Source)
	assert.Equal(t, ConfidenceHigh, got[0].Confidence)
}

func TestMatchEmails_ContactEmailTier(t *testing.T) {
	dir := &fakeDirectory{
		contacts: []models.LeadContactMatch{
			{LeadID: "lead-2", LeadContactName: "Bob Ray", ContactEmail: "bob.ray@acme.com"},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"bob.ray@acme.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "lead-2", got[0].LeadID)
	assert.Equal(t, SourceContactEmail, got[0].Source)
	assert.Equal(t, ConfidenceHigh, got[0].Confidence)
}

func TestMatchEmails_DomainTier(t *testing.T) {
	// Different person, same company domain: MEDIUM, never HIGH.
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-a", ContactName: "Bob", ContactEmail: email("bob@acme.com")},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"alice@acme.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "lead-a", got[0].LeadID)
	assert.Equal(t, ConfidenceMedium, got[0].Confidence)
	assert.Equal(t, SourceDomain, got[0].Source)
}

func TestMatchEmails_FreeDomainExcluded(t *testing.T) {
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-g", ContactName: "Gmail Lead", ContactEmail: email("someone@gmail.com")},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"x@gmail.com"})
	require.NoError(t, err)
	assert.Empty(t, got, "free provider domains never produce DOMAIN candidates")
}

func TestMatchEmails_CustomFreeDomainSet(t *testing.T) {
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-c", ContactName: "Corp Lead", ContactEmail: email("bob@corpmail.com")},
		},
	}
	m := New(dir, []string{"corpmail.com"}, logger.NewNoOpLogger())

	got, err := m.MatchEmails(context.Background(), []string{"alice@corpmail.com"})
	require.NoError(t, err)
	assert.Empty(t, got, "injected exclusion set must be honored")
}

func TestMatchEmails_AtMostOneCandidatePerLead(t *testing.T) {
	// The same lead is reachable via direct email, a linked contact, and its
	// domain. Exactly one candidate comes back, from the strongest tier.
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-1", ContactName: "Sarah Chen", ContactEmail: email("sarah@techstart.io")},
		},
		contacts: []models.LeadContactMatch{
			{LeadID: "lead-1", LeadContactName: "Sarah Chen", ContactEmail: "cto@techstart.io"},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{
		"sarah@techstart.io", "cto@techstart.io", "intern@techstart.io",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, SourceDirectEmail, got[0].Source)
}

func TestMatchEmails_ContactTierBeatsDomainForDifferentLeads(t *testing.T) {
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-domain", ContactName: "Domain Lead", ContactEmail: email("ceo@acme.com")},
		},
		contacts: []models.LeadContactMatch{
			{LeadID: "lead-contact", LeadContactName: "Contact Lead", ContactEmail: "dev@acme.com"},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"dev@acme.com"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ranked merge: the HIGH contact-tier candidate sorts before the MEDIUM
	// domain-tier one.
	assert.Equal(t, "lead-contact", got[0].LeadID)
	assert.Equal(t, ConfidenceHigh, got[0].Confidence)
	assert.Equal(t, "lead-domain", got[1].LeadID)
	assert.Equal(t, ConfidenceMedium, got[1].Confidence)
}

func TestMatchEmails_NoAtSignExcludedFromDomainTier(t *testing.T) {
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-a", ContactName: "Bob", ContactEmail: email("bob@acme.com")},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"not-an-email"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatchEmails_NilContactEmailNeverDirectMatches(t *testing.T) {
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-n", ContactName: "No Email"},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchEmails(context.Background(), []string{"anything@acme.com"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatchMeeting_AliasesMatchEmails(t *testing.T) {
	dir := &fakeDirectory{
		leads: []models.Lead{
			{ID: "lead-1", ContactName: "Sarah Chen", ContactEmail: email("sarah@techstart.io")},
		},
	}
	m := newTestMatcher(dir)

	got, err := m.MatchMeeting(context.Background(), []string{"sarah@techstart.io"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, SourceDirectEmail, got[0].Source)
}
