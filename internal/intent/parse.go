package intent

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PratikDhanave/sprintbot/internal/models"
)

// candidate is what a parser pulled out of a completion before validation.
type candidate struct {
	intent   string
	title    string
	assignee string
	ticketID string
}

// parser tries one way of reading a completion. ok means it produced a
// candidate; the intent still has to be validated.
type parser struct {
	name  string
	parse func(content string) (candidate, bool)
}

// Tried in order; the first candidate carrying a known intent wins.
var parsers = []parser{
	{name: "json", parse: parseJSON},
	{name: "lines", parse: parseLines},
}

func parseCompletion(content, query string) (models.IntentResult, bool) {
	for _, p := range parsers {
		c, ok := p.parse(content)
		if !ok {
			continue
		}
		if res, ok := complete(c, query); ok {
			return res, true
		}
	}
	return models.IntentResult{}, false
}

// complete validates the intent, keeps only the fields that intent uses and
// fills missing ones from the original query.
func complete(c candidate, query string) (models.IntentResult, bool) {
	in := models.ParseIntent(c.intent)
	if !in.Known() {
		return models.IntentResult{}, false
	}
	res := models.IntentResult{Intent: in}
	switch in {
	case models.IntentCreateTicket:
		res.Title = c.title
		if res.Title == "" {
			res.Title = ExtractTitle(query)
		}
		res.Assignee = normalizeAssignee(c.assignee)
		if res.Assignee == "" {
			res.Assignee = ExtractAssignee(query)
		}
	case models.IntentDeleteTicket:
		res.TicketID = c.ticketID
		if res.TicketID == "" {
			res.TicketID = ExtractTicketID(query)
		}
	}
	return res, true
}

var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// parseJSON accepts a bare object, a fenced object, an object surrounded by
// prose, and single-quoted pseudo-JSON.
func parseJSON(content string) (candidate, bool) {
	for _, s := range jsonCandidates(content) {
		if c, ok := decodeObject(s); ok {
			return c, true
		}
	}
	return candidate{}, false
}

func jsonCandidates(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	out := []string{content}
	if m := codeFence.FindStringSubmatch(content); m != nil {
		out = append(out, m[1])
	}
	if i, j := strings.Index(content, "{"), strings.LastIndex(content, "}"); i >= 0 && j > i {
		out = append(out, content[i:j+1])
	}
	for _, s := range out {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && strings.Contains(s, "'") {
			out = append(out, strings.ReplaceAll(s, "'", `"`))
		}
	}
	return out
}

func decodeObject(s string) (candidate, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return candidate{}, false
	}
	field := func(key string) string {
		switch v := m[key].(type) {
		case string:
			return strings.TrimSpace(v)
		case json.Number:
			return v.String()
		default:
			return ""
		}
	}
	return candidate{
		intent:   field("intent"),
		title:    field("title"),
		assignee: field("assignee"),
		ticketID: field("ticket_id"),
	}, true
}

var (
	intentLine   = regexp.MustCompile(`(?i)intent:\s*([^\n,;]+)`)
	titleLine    = regexp.MustCompile(`(?i)title:\s*([^\n]+)`)
	assigneeLine = regexp.MustCompile(`(?i)assignee:\s*([^\n]+)`)
	ticketLine   = regexp.MustCompile(`(?i)ticket(?:[ _]?id)?:\s*([^\n]+)`)
	nextLabel    = regexp.MustCompile(`(?i),?\s*\b(?:intent|title|assignee|ticket(?:[ _]?id)?):`)
)

// parseLines reads "Intent: x", "Title: y" style labels, one per line or
// comma separated on a single line.
func parseLines(content string) (candidate, bool) {
	label := func(re *regexp.Regexp) string {
		m := re.FindStringSubmatch(content)
		if m == nil {
			return ""
		}
		v := m[1]
		if loc := nextLabel.FindStringIndex(v); loc != nil {
			v = v[:loc[0]]
		}
		return strings.Trim(strings.TrimSpace(v), `"'`)
	}
	c := candidate{
		intent:   label(intentLine),
		title:    label(titleLine),
		assignee: label(assigneeLine),
		ticketID: label(ticketLine),
	}
	return c, c.intent != ""
}
