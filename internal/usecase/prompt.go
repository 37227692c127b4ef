package usecase

import (
	"fmt"
	"strings"

	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/parser"
)

// fallbackOutreach is sent when the model returns an empty outreach message.
const fallbackOutreach = "Hi, I noticed your business could benefit from a modern website. Let's chat!"

func buildScanPrompt(g parser.Grammar, count int, city, keyword string) string {
	return strings.Join([]string{
		fmt.Sprintf("Find %d currently active local businesses in %s for the category %q.",
			count, normalizePromptInput(city), normalizePromptInput(keyword)),
		"For each business, provide these exact fields:",
		fmt.Sprintf("- %s: [Business Name]", g.NameLabel),
		fmt.Sprintf("- %s: [Phone Number]", g.PhoneLabel),
		fmt.Sprintf("- %s: [Website URL or \"None\"]", g.URLLabel),
		fmt.Sprintf("- %s: [Short assessment of their website quality - modern, old, or none]", g.InfoLabel),
		"",
		fmt.Sprintf("Separate each business entry with the marker %q.", g.Delimiter),
	}, "\n")
}

func buildOutreachPrompt(l domain.Lead) string {
	return strings.Join([]string{
		"Generate a short, professional outreach message for a business owner.",
		fmt.Sprintf("Business: %s in %s", normalizePromptInput(l.Name), normalizePromptInput(l.City)),
		"Context: " + websiteContext(l),
		"",
		"Goal: Offer to build a modern, high-converting website to help them get more local customers.",
		"Constraint: Under 50 words. Professional and friendly. No subject line.",
	}, "\n")
}

func buildSimulatedReplyPrompt(l domain.Lead, outreach string) string {
	return strings.Join([]string{
		fmt.Sprintf("You are the owner of %s, a local business in %s.", normalizePromptInput(l.Name), normalizePromptInput(l.City)),
		"You just received this message from a web design agency:",
		quote(outreach),
		"",
		"Write a short, realistic reply. Show some interest but ask one practical question, such as price or timing.",
		"Constraint: Under 30 words. Reply text only.",
	}, "\n")
}

func buildClosingPrompt(l domain.Lead, reply string) string {
	lines := []string{
		fmt.Sprintf("You are a web design agency following up with %s in %s.", normalizePromptInput(l.Name), normalizePromptInput(l.City)),
		"Context: " + websiteContext(l),
		"",
		"Conversation so far:",
	}
	for _, m := range l.History {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, normalizePromptInput(m.Content)))
	}
	lines = append(lines,
		"",
		"Their latest reply:",
		quote(reply),
		"",
		"Answer their question briefly and propose a short discovery call tomorrow to move forward.",
		"Constraint: Under 60 words. Message text only.",
	)
	return strings.Join(lines, "\n")
}

func websiteContext(l domain.Lead) string {
	switch {
	case l.Tier == domain.TierHot || l.Website == nil:
		return "They have no website"
	case l.Tier == domain.TierWarm:
		return "Their website looks outdated"
	default:
		return "Their website could convert more local visitors"
	}
}

func quote(s string) string {
	return "\"" + normalizePromptInput(s) + "\""
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
