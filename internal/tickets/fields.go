package tickets

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// The service returns records as positional arrays. Responses may carry a
// "<kind>_prop" map of field name -> index; when absent we fall back to the
// positions observed on the sprint item endpoint.
type fieldIndex struct {
	prop     string
	fallback int // -1 when there is no known position
}

var (
	itemTitle     = fieldIndex{prop: "itemName", fallback: 0}
	itemNumber    = fieldIndex{prop: "itemNo", fallback: -1}
	itemCreatedBy = fieldIndex{prop: "createdBy", fallback: 2}
	itemStatus    = fieldIndex{prop: "statusId", fallback: 26}
	itemOwners    = fieldIndex{prop: "ownerId", fallback: 31}
)

type record []json.RawMessage

// position resolves f against props.
func (f fieldIndex) position(props map[string]int) int {
	if i, ok := props[f.prop]; ok {
		return i
	}
	return f.fallback
}

// visibleNumber matches the "I42" form the web UI shows.
var visibleNumber = regexp.MustCompile(`^[Ii]\d+$`)

// itemNo returns the visible item number. Without a known position the
// record's scalar cells are scanned for the first "I<digits>" value; the
// title cell is skipped so a title like "I18n" cannot be mistaken for it.
func (r record) itemNo(props map[string]int) string {
	if idx := itemNumber.position(props); idx >= 0 {
		return r.str(idx)
	}
	titleIdx := itemTitle.position(props)
	for i := range r {
		if i == titleIdx {
			continue
		}
		if s := r.str(i); visibleNumber.MatchString(s) {
			return s
		}
	}
	return ""
}

// str returns the value at idx as a string. Numbers are formatted without
// exponent; anything else (or out of range) yields "".
func (r record) str(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return rawString(r[idx])
}

// list returns the value at idx as a list of strings. A JSON-encoded array
// inside a string (the service does this for user ids) is unwrapped too.
func (r record) list(idx int) []string {
	if idx < 0 || idx >= len(r) {
		return nil
	}
	raw := r[idx]

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s := rawString(raw)
		if !strings.HasPrefix(s, "[") || json.Unmarshal([]byte(s), &items) != nil {
			if s == "" {
				return nil
			}
			return []string{s}
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := rawString(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

// firstOfEach maps id -> record[0]; used for user and status lookups.
func firstOfEach(in map[string]record) map[string]string {
	out := make(map[string]string, len(in))
	for id, rec := range in {
		out[id] = rec.str(0)
	}
	return out
}
