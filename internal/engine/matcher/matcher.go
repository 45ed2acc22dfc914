// Package matcher resolves inbound communication participants to candidate
// leads using three identity tiers: the lead's own contact email, emails of
// contacts linked to the lead, and company email domain. Exact-email matches
// are unambiguous and rank HIGH; domain inference is many-to-one and only
// ever ranks MEDIUM.
package matcher

import (
	"context"
	"sort"
	"strings"

	"crm-engine/internal/common/logger"
	"crm-engine/internal/models"
)

// Confidence of a match candidate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// Source identifies the tier that produced a candidate.
type Source string

const (
	SourceDirectEmail  Source = "DIRECT_EMAIL"
	SourceContactEmail Source = "CONTACT_EMAIL"
	SourceDomain       Source = "DOMAIN"
)

// Candidate is an ephemeral match result, one per lead per matching run.
type Candidate struct {
	LeadID       string     `json:"leadId"`
	ContactName  string     `json:"contactName"`
	MatchedEmail string     `json:"matchedEmail"`
	Confidence   Confidence `json:"confidence"`
	Source       Source     `json:"source"`
}

// Directory is the persistence surface the matcher reads from. All lookups
// are case-insensitive on email and exclude soft-deleted contacts and leads.
type Directory interface {
	FindLeadsByContactEmails(ctx context.Context, emails []string) ([]models.Lead, error)
	FindLeadContactsByEmails(ctx context.Context, emails []string) ([]models.LeadContactMatch, error)
	FindLeadsByEmailDomains(ctx context.Context, domains []string) ([]models.Lead, error)
	FindLeadContactsByEmailDomains(ctx context.Context, domains []string) ([]models.LeadContactMatch, error)
}

// Matcher is a pure query/aggregation component: it performs no writes. The
// caller decides whether to persist a link, and never overwrites an existing
// thread or meeting link.
type Matcher struct {
	dir         Directory
	freeDomains map[string]struct{}
	logger      logger.Logger
}

// New builds a Matcher. freeEmailDomains are consumer mail provider domains
// excluded from domain-tier matching; the set is injected so deployments can
// extend or restrict it.
func New(dir Directory, freeEmailDomains []string, log logger.Logger) *Matcher {
	free := make(map[string]struct{}, len(freeEmailDomains))
	for _, d := range freeEmailDomains {
		free[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Matcher{
		dir:         dir,
		freeDomains: free,
		logger:      log.WithFields(map[string]interface{}{"component": "matcher"}),
	}
}

// candidateRank orders tiers by confidence, then specificity. Lower is
// stronger. The ranked merge replaces reliance on query iteration order.
func candidateRank(c Candidate) int {
	switch c.Source {
	case SourceDirectEmail:
		return 0
	case SourceContactEmail:
		return 1
	default: // DOMAIN
		return 2
	}
}

// MatchEmails resolves participant emails to a deduplicated, ranked set of
// candidate leads. At most one candidate per lead is returned; the strongest
// tier claims the lead and weaker tiers never overwrite the claim. An empty
// normalized input short-circuits without touching the directory.
func (m *Matcher) MatchEmails(ctx context.Context, participantEmails []string) ([]Candidate, error) {
	emails := normalizeEmails(participantEmails)
	if len(emails) == 0 {
		return []Candidate{}, nil
	}

	var ranked []Candidate

	// Tier 1: direct match against the lead's own contact email.
	directLeads, err := m.dir.FindLeadsByContactEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	for _, lead := range directLeads {
		if lead.ContactEmail == nil {
			continue
		}
		ranked = append(ranked, Candidate{
			LeadID:       lead.ID,
			ContactName:  lead.ContactName,
			MatchedEmail: strings.ToLower(*lead.ContactEmail),
			Confidence:   ConfidenceHigh,
			Source:       SourceDirectEmail,
		})
	}

	// Tier 2: match against contacts linked to a lead.
	contactRows, err := m.dir.FindLeadContactsByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	for _, row := range contactRows {
		ranked = append(ranked, Candidate{
			LeadID:       row.LeadID,
			ContactName:  row.LeadContactName,
			MatchedEmail: strings.ToLower(row.ContactEmail),
			Confidence:   ConfidenceHigh,
			Source:       SourceContactEmail,
		})
	}

	// Tier 3: company-domain inference, skipping free mail providers. Direct
	// lead emails and linked-contact emails both contribute.
	domains := m.matchableDomains(emails)
	if len(domains) > 0 {
		domainLeads, err := m.dir.FindLeadsByEmailDomains(ctx, domains)
		if err != nil {
			return nil, err
		}
		for _, lead := range domainLeads {
			if lead.ContactEmail == nil {
				continue
			}
			ranked = append(ranked, Candidate{
				LeadID:       lead.ID,
				ContactName:  lead.ContactName,
				MatchedEmail: strings.ToLower(*lead.ContactEmail),
				Confidence:   ConfidenceMedium,
				Source:       SourceDomain,
			})
		}

		domainContacts, err := m.dir.FindLeadContactsByEmailDomains(ctx, domains)
		if err != nil {
			return nil, err
		}
		for _, row := range domainContacts {
			ranked = append(ranked, Candidate{
				LeadID:       row.LeadID,
				ContactName:  row.LeadContactName,
				MatchedEmail: strings.ToLower(row.ContactEmail),
				Confidence:   ConfidenceMedium,
				Source:       SourceDomain,
			})
		}
	}

	candidates := mergeRanked(ranked)

	m.logger.Debug("matching run complete", map[string]interface{}{
		"inputEmails": len(emails),
		"candidates":  len(candidates),
	})

	return candidates, nil
}

// MatchMeeting resolves meeting attendees to candidate leads. It is an alias
// over MatchEmails; there is no separate algorithm for meetings.
func (m *Matcher) MatchMeeting(ctx context.Context, attendeeEmails []string) ([]Candidate, error) {
	return m.MatchEmails(ctx, attendeeEmails)
}

// mergeRanked sorts candidates by tier strength and keeps the first claim per
// lead. Stable sort preserves within-tier discovery order.
func mergeRanked(ranked []Candidate) []Candidate {
	sort.SliceStable(ranked, func(i, j int) bool {
		return candidateRank(ranked[i]) < candidateRank(ranked[j])
	})

	claimed := make(map[string]struct{}, len(ranked))
	out := make([]Candidate, 0, len(ranked))
	for _, c := range ranked {
		if _, ok := claimed[c.LeadID]; ok {
			continue
		}
		claimed[c.LeadID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// normalizeEmails lower-cases, trims, deduplicates, and drops blanks.
func normalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		n := strings.ToLower(strings.TrimSpace(e))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// matchableDomains derives the domain set for tier 3. Emails without an '@'
// yield no domain, and free provider domains are excluded.
func (m *Matcher) matchableDomains(emails []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		domain := emailDomain(e)
		if domain == "" {
			continue
		}
		if _, free := m.freeDomains[domain]; free {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}
	return out
}

// emailDomain returns everything after the first '@', or "" when there is no
// '@' or nothing follows it.
func emailDomain(email string) string {
	idx := strings.Index(email, "@")
	if idx < 0 {
		return ""
	}
	return email[idx+1:]
}
