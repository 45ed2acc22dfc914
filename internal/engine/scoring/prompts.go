package scoring

import (
	"fmt"
	"strings"

	"crm-engine/internal/engine/contextbuilder"
)

const scoreSystemPrompt = "You are a sales analyst for a services agency. " +
	"Score the lead described by the user using only the provided context. " +
	"Respond with JSON matching the requested schema."

const actionSystemPrompt = "You are a sales assistant for a services agency. " +
	"Propose the next best actions for the lead described by the user using " +
	"only the provided context. Respond with JSON matching the requested schema."

// transcriptPreviewChars bounds how much of a meeting transcript is rendered
// into the prompt. Message bodies are already truncated by the assembler.
const transcriptPreviewChars = 2000

// RenderScorePrompt renders a LeadContext into the scoring user prompt. The
// rendering is deterministic: given the same bundle it produces byte-identical
// output, section order fixed.
func RenderScorePrompt(lc *contextbuilder.LeadContext) string {
	var b strings.Builder
	renderLeadProfile(&b, lc)
	renderActivity(&b, lc)
	renderRelated(&b, lc)
	return b.String()
}

// RenderActionPrompt renders a LeadContext into the action-suggestion user
// prompt. Same bundle rendering as scoring with the current AI assessment
// prepended, so the model can reason about what changed since the last pass.
func RenderActionPrompt(lc *contextbuilder.LeadContext) string {
	var b strings.Builder
	renderLeadProfile(&b, lc)

	if lc.Lead.OverallScore != nil {
		fmt.Fprintf(&b, "## Current Assessment\n")
		fmt.Fprintf(&b, "Score: %d (%s)\n", *lc.Lead.OverallScore, lc.Lead.PriorityTier)
		for _, s := range lc.Lead.Signals {
			fmt.Fprintf(&b, "- %s (%.2f): %s\n", s.Type, s.Weight, s.Detail)
		}
		b.WriteString("\n")
	}

	renderActivity(&b, lc)
	renderRelated(&b, lc)
	return b.String()
}

func renderLeadProfile(b *strings.Builder, lc *contextbuilder.LeadContext) {
	lead := lc.Lead
	fmt.Fprintf(b, "## Lead\n")
	fmt.Fprintf(b, "Name: %s\n", lead.ContactName)
	if lead.ContactEmail != nil {
		fmt.Fprintf(b, "Email: %s\n", *lead.ContactEmail)
	}
	fmt.Fprintf(b, "Company: %s\n", lead.CompanyName)
	if lead.CompanyWebsite != "" {
		fmt.Fprintf(b, "Website: %s\n", lead.CompanyWebsite)
	}
	fmt.Fprintf(b, "Status: %s\n", lead.Status)
	fmt.Fprintf(b, "Awaiting reply: %t\n", lead.AwaitingReply)
	if lead.Notes != "" {
		fmt.Fprintf(b, "Notes: %s\n", lead.Notes)
	}
	b.WriteString("\n")
}

func renderActivity(b *strings.Builder, lc *contextbuilder.LeadContext) {
	if len(lc.Threads) > 0 {
		fmt.Fprintf(b, "## Email Threads (%d)\n", len(lc.Threads))
		for _, tc := range lc.Threads {
			fmt.Fprintf(b, "### %s (%d messages)\n", tc.Thread.Subject, tc.Thread.MessageCount)
			for _, msg := range tc.Messages {
				fmt.Fprintf(b, "From %s at %s:\n%s\n", msg.FromEmail, msg.SentAt.UTC().Format("2006-01-02 15:04"), msg.Body)
			}
		}
		b.WriteString("\n")
	}

	if len(lc.Meetings) > 0 {
		fmt.Fprintf(b, "## Meetings with Transcripts (%d)\n", len(lc.Meetings))
		for _, mt := range lc.Meetings {
			transcript := mt.Transcript
			if len(transcript) > transcriptPreviewChars {
				transcript = transcript[:transcriptPreviewChars]
			}
			fmt.Fprintf(b, "### %s (%s)\n%s\n", mt.Title, mt.StartsAt.UTC().Format("2006-01-02"), transcript)
		}
		b.WriteString("\n")
	}
}

func renderRelated(b *strings.Builder, lc *contextbuilder.LeadContext) {
	if len(lc.Clients) > 0 {
		fmt.Fprintf(b, "## Related Clients (%d)\n", len(lc.Clients))
		for _, c := range lc.Clients {
			fmt.Fprintf(b, "- %s (%s)\n", c.Name, c.CompanyName)
		}
	}
	if len(lc.Proposals) > 0 {
		fmt.Fprintf(b, "## Prior Proposals (%d)\n", len(lc.Proposals))
		for _, p := range lc.Proposals {
			fmt.Fprintf(b, "- %s [%s] $%.0f\n", p.Title, p.Status, p.Amount)
		}
	}
	if len(lc.Projects) > 0 {
		fmt.Fprintf(b, "## Projects at Related Clients (%d)\n", len(lc.Projects))
		for _, p := range lc.Projects {
			fmt.Fprintf(b, "- %s [%s]\n", p.Name, p.Status)
		}
	}
}
