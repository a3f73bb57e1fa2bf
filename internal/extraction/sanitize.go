package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

// Payload is the validated generator output.
type Payload struct {
	Summary string
	Entries []Entry
}

// Entry is one validated task suggestion with defaults applied.
type Entry struct {
	Title       string
	Assignee    string
	Priority    tasks.Priority
	Description string
	Items       []string
}

// Diagnostic records a part of the payload that was dropped.
type Diagnostic struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

const fence = "```"

// Sanitize parses raw generator text into a Payload.
//
// The payload is taken from the first fenced block when there is one,
// otherwise from the first JSON object in the text that has a "tasks" key.
// A response without such an object fails with *MalformedResponseError.
// Individual entries that cannot be used are dropped and described by the
// returned diagnostics.
func Sanitize(raw string) (*Payload, []Diagnostic, error) {
	obj, text, err := locatePayload(raw)
	if err != nil {
		return nil, nil, err
	}

	p := &Payload{}
	if s, present := obj["summary"]; present && s != nil {
		summary, ok := s.(string)
		if !ok {
			return nil, nil, &MalformedResponseError{Reason: "summary is not a string", Raw: text}
		}
		p.Summary = summary
	}

	rawTasks, present := obj["tasks"]
	if !present {
		return nil, nil, &MalformedResponseError{Reason: "missing tasks array", Raw: text}
	}
	list, ok := rawTasks.([]any)
	if !ok {
		return nil, nil, &MalformedResponseError{Reason: "tasks is not an array", Raw: text}
	}

	var diags []Diagnostic
	p.Entries = make([]Entry, 0, len(list))
	for i, item := range list {
		entry, reasons, ok := sanitizeEntry(item)
		for _, r := range reasons {
			diags = append(diags, Diagnostic{Index: i, Reason: r})
		}
		if ok {
			p.Entries = append(p.Entries, entry)
		}
	}
	return p, diags, nil
}

// sanitizeEntry validates one task object. ok is false when the entry must
// be dropped; reasons describe every dropped part.
func sanitizeEntry(v any) (entry Entry, reasons []string, ok bool) {
	m, isMap := v.(map[string]any)
	if !isMap {
		return Entry{}, []string{"entry is not an object"}, false
	}

	title, _ := m["title"].(string)
	if strings.TrimSpace(title) == "" {
		return Entry{}, []string{"missing title"}, false
	}

	entry = Entry{
		Title:    title,
		Assignee: tasks.Unassigned,
		Priority: tasks.PriorityNormal,
		Items:    []string{},
	}
	if a, _ := m["assignee"].(string); strings.TrimSpace(a) != "" {
		entry.Assignee = a
	}
	if pr, _ := m["priority"].(string); pr != "" {
		entry.Priority = tasks.NormalizePriority(pr)
	}
	if d, _ := m["description"].(string); d != "" {
		entry.Description = d
	}

	switch items := m["items"].(type) {
	case nil:
	case []any:
		for j, it := range items {
			s, isStr := it.(string)
			switch {
			case !isStr:
				reasons = append(reasons, fmt.Sprintf("item %d is not a string", j))
			case strings.TrimSpace(s) == "":
				reasons = append(reasons, fmt.Sprintf("item %d is blank", j))
			default:
				entry.Items = append(entry.Items, s)
			}
		}
	default:
		reasons = append(reasons, "items is not an array")
	}
	return entry, reasons, true
}

// locatePayload finds the payload object in raw. The fenced block is tried
// first and the whole text second. text is the candidate the object came
// from, or the one that failed first.
func locatePayload(raw string) (map[string]any, string, error) {
	whole := strings.TrimSpace(raw)
	candidates := []string{whole}
	if body, ok := fencedBlock(whole); ok {
		candidates = []string{body, whole}
	}

	var firstErr error
	for _, c := range candidates {
		obj, err := decodeObject(c)
		if err == nil {
			return obj, c, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, "", firstErr
}

// fencedBlock returns the contents of the first ``` block, without its
// info string. A missing closing fence leaves the rest of the text.
func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, fence)
	if open < 0 {
		return "", false
	}
	body := text[open+len(fence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	} else {
		body = strings.TrimLeftFunc(body, isInfoRune)
	}
	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

func isInfoRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// decodeObject decodes from each '{' in text in turn and returns the first
// object carrying a "tasks" key. Text around the object is ignored.
func decodeObject(text string) (map[string]any, error) {
	var (
		decodeErr error
		other     bool
	)
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		var doc map[string]any
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&doc); err != nil {
			if decodeErr == nil {
				decodeErr = err
			}
			continue
		}
		if _, ok := doc["tasks"]; ok {
			return doc, nil
		}
		other = true
	}

	switch {
	case other:
		return nil, &MalformedResponseError{Reason: "missing tasks array", Raw: text}
	case decodeErr != nil:
		return nil, &MalformedResponseError{Reason: "invalid JSON", Raw: text, Err: decodeErr}
	default:
		return nil, &MalformedResponseError{Reason: "no JSON object found", Raw: text}
	}
}
