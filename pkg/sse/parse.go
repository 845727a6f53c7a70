package sse

import (
	"encoding/json"
	"strings"
)

const doneSentinel = "[DONE]"

// ParseLine classifies one line of a watsonx SSE stream and, for data lines,
// extracts the generated text fragment and any thread id.
//
// Only "data:" lines can carry a payload. The prefix is removed along with
// at most one following space, so "data: x" and "data:x" both yield "x"
// while any further leading whitespace stays part of the payload.
//
// A payload that is not valid JSON returns a *ParseError together with an
// ignored Event; callers should record the failure and keep reading.
func ParseLine(line string) (Event, error) {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return Event{Kind: KindIgnored}, nil
	case strings.HasPrefix(trimmed, "id:"), strings.HasPrefix(trimmed, "event:"):
		return Event{Kind: KindIgnored}, nil
	case !strings.HasPrefix(trimmed, "data:"):
		return Event{Kind: KindIgnored}, nil
	}

	var payload string
	if strings.HasPrefix(trimmed, "data: ") {
		payload = trimmed[6:]
	} else {
		payload = trimmed[5:]
	}

	return parsePayload(payload)
}

// ParseEnvelopeLine is ParseLine for streams that mix SSE framing with bare
// newline-delimited JSON objects, as the orchestrate runs endpoint does:
//
//	{"event":"message.delta","data":{"delta":{"content":[{"text":"Hi"}]}}}
//
// A line whose first non-space byte is '{' is parsed as a payload directly.
// Everything else follows ParseLine.
func ParseEnvelopeLine(line string) (Event, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		return parsePayload(trimmed)
	}
	return ParseLine(line)
}

func parsePayload(payload string) (Event, error) {
	data := strings.TrimSpace(payload)
	switch data {
	case "":
		return Event{Kind: KindIgnored}, nil
	case doneSentinel:
		return Event{Kind: KindDone}, nil
	}

	var doc any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return Event{Kind: KindIgnored}, &ParseError{Line: data, Err: err}
	}

	ev := Event{
		Kind:    KindPayload,
		Payload: json.RawMessage(data),
	}
	ev.Fragment, ev.HasFragment = extractFragment(doc)
	ev.ThreadID = extractThreadID(doc)

	return ev, nil
}

// fragmentPaths lists the payload shapes that carry generated text, in
// precedence order: plain generation, chat delta, chat message, then the
// orchestrate delta and content envelopes.
var fragmentPaths = [][]any{
	{"results", 0, "generated_text"},
	{"choices", 0, "delta", "content"},
	{"choices", 0, "message", "content"},
	{"data", "delta", "content", 0, "text"},
	{"data", "content", 0, "text"},
}

func extractFragment(doc any) (string, bool) {
	for _, path := range fragmentPaths {
		if s, ok := lookupString(doc, path...); ok {
			return s, true
		}
	}
	return "", false
}

func extractThreadID(doc any) string {
	if s, ok := lookupString(doc, "thread_id"); ok {
		return s
	}
	if s, ok := lookupString(doc, "data", "thread_id"); ok {
		return s
	}
	return ""
}

// lookupString walks doc along path, where string steps index objects and
// int steps index arrays, and reports the string found at the end.
func lookupString(doc any, path ...any) (string, bool) {
	cur := doc
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			cur, ok = obj[key]
			if !ok {
				return "", false
			}
		case int:
			arr, ok := cur.([]any)
			if !ok || key >= len(arr) {
				return "", false
			}
			cur = arr[key]
		}
	}

	s, ok := cur.(string)
	return s, ok
}
