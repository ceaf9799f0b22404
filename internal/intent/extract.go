package intent

import (
	"regexp"
	"strings"
)

// quoted captures text between a matching pair of quotes, so an apostrophe
// inside a double-quoted title is kept.
const quoted = `(?:"([^"]+)"|“([^”]+)”|'([^']+)'|‘([^’]+)’)`

var (
	keywordTitle = regexp.MustCompile(`(?i)(?:titled|called|ticket|add|this to my tickets)[\s:]*` + quoted)
	quotedTitle  = regexp.MustCompile(`(?:^|\W)` + quoted)
	dashedTitle  = regexp.MustCompile(`(?i)\b(?:ticket|task)\b[^-–:]*[-–:]\s*(.+)$`)
	assignTo     = regexp.MustCompile(`(?i)assign(?: it)? to ([\w\s]+)`)
	ticketRef    = regexp.MustCompile(`\b[Ii]?\d+\b`)
)

// Phrases that put the ticket in the requester's own queue.
var selfHints = []string{"to my tickets", "for me", "assign to me", "in my bucket"}

// ExtractTitle returns the quoted title in text, preferring one that follows
// a keyword such as "titled" or "called". Unquoted "ticket - Title" forms are
// accepted last.
func ExtractTitle(text string) string {
	for _, re := range []*regexp.Regexp{keywordTitle, quotedTitle, dashedTitle} {
		if t := strings.TrimSpace(firstGroup(re.FindStringSubmatch(text))); t != "" {
			return t
		}
	}
	return ""
}

// firstGroup returns the first non-empty capture of a match.
func firstGroup(m []string) string {
	if len(m) < 2 {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// ExtractAssignee returns the name after "assign (it) to", or "me" when the
// text asks for the requester's own tickets.
func ExtractAssignee(text string) string {
	if m := assignTo.FindStringSubmatch(text); m != nil {
		return normalizeAssignee(m[1])
	}
	lower := strings.ToLower(text)
	for _, hint := range selfHints {
		if strings.Contains(lower, hint) {
			return assigneeMe
		}
	}
	return ""
}

// ExtractTicketID returns the first "I42" or "42" style reference.
func ExtractTicketID(text string) string {
	ref := ticketRef.FindString(text)
	if strings.HasPrefix(ref, "i") {
		ref = "I" + ref[1:]
	}
	return ref
}

const assigneeMe = "me"

func normalizeAssignee(name string) string {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, assigneeMe) {
		return assigneeMe
	}
	return name
}
