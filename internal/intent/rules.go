package intent

import (
	"regexp"

	"github.com/PratikDhanave/sprintbot/internal/models"
)

type rule struct {
	intent models.Intent
	match  matcher
}

type matcher func(text string) bool

func matchAll(ms ...matcher) matcher {
	return func(text string) bool {
		for _, m := range ms {
			if !m(text) {
				return false
			}
		}
		return true
	}
}

func matchAny(ms ...matcher) matcher {
	return func(text string) bool {
		for _, m := range ms {
			if m(text) {
				return true
			}
		}
		return false
	}
}

var (
	ticketNoun   = regexp.MustCompile(`(?i)\b(?:tickets?|tasks?|items?|issues?)\b`)
	deleteVerb   = regexp.MustCompile(`(?i)\b(?:delete|remove|drop)\b`)
	createTicket = regexp.MustCompile(`(?i)\b(?:create|add|make|file|log)\s+(?:(?:a|an|new|the)\s+)*(?:ticket|task|item|issue)\b`)
	ownerWord    = regexp.MustCompile(`(?i)\b(?:my|me|mine|i|assigned)\b`)
	workingOn    = regexp.MustCompile(`(?i)\bwhat am i working on\b`)
	helpRequest  = regexp.MustCompile(`(?i)^\s*help\b|\bwhat can you do\b|\bcapabilit(?:y|ies)\b|\bfeatures\b|\bcommands\b`)
	createPhrase = regexp.MustCompile(`(?i)\badd this to my tickets\b`)
)

// Order matters: "add this to my tickets" is a create, not a lookup.
// Creates need the verb right before the ticket noun, so "my open tickets"
// or "make sure my tickets..." stay lookups.
var rules = []rule{
	{models.IntentDeleteTicket, matchAll(deleteVerb.MatchString, ticketNoun.MatchString)},
	{models.IntentCreateTicket, matchAny(createPhrase.MatchString, createTicket.MatchString)},
	{models.IntentGetMyTickets, matchAny(workingOn.MatchString, matchAll(ticketNoun.MatchString, ownerWord.MatchString))},
	{models.IntentBotCapabilities, helpRequest.MatchString},
}

// DetectLocal classifies text with keyword rules and the same field
// extractors the model path uses. It needs no network access.
// A create without a recognizable title is refused rather than guessed.
func DetectLocal(text string) (models.IntentResult, bool) {
	for _, r := range rules {
		if !r.match(text) {
			continue
		}
		res, ok := complete(candidate{intent: string(r.intent)}, text)
		if ok && res.Intent == models.IntentCreateTicket && res.Title == "" {
			return models.IntentResult{}, false
		}
		return res, ok
	}
	return models.IntentResult{}, false
}
