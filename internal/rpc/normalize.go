package rpc

import (
	"encoding/json"
	"strings"
)

// Normalize converts a raw tool result into a value of the expected type.
//
// The decode is a closed set of outcomes — parsed value, raw text, or
// fallback — so a single malformed field can never abort an otherwise
// successful sync:
//
//   - nil raw returns fallback.
//   - An object without a "content" field is an already-structured payload
//     and is converted to T directly. Arrays are treated the same way.
//   - An object with a "content" array is the text envelope: the first
//     element whose type names text is taken, its text parsed as JSON into T;
//     if parsing fails the raw text itself is converted to T (covers simple
//     results such as a formatted number-as-string).
//   - A bare primitive is converted to T directly.
//   - Anything else returns fallback.
//
// Normalize is pure and never panics.
func Normalize[T any](raw any, fallback T) T {
	if raw == nil {
		return fallback
	}

	switch v := raw.(type) {
	case map[string]any:
		content, present := v["content"]
		if !present {
			return convert(v, fallback)
		}
		elems, ok := content.([]any)
		if !ok {
			return fallback
		}
		text, ok := firstText(elems)
		if !ok {
			return fallback
		}
		var parsed T
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			return parsed
		}
		return convert(text, fallback)

	case []any:
		return convert(v, fallback)

	case string, bool, float64, int, int64, json.Number:
		return convert(v, fallback)
	}

	return fallback
}

// firstText returns the text of the first content element whose type names
// text content. The match is a substring check because endpoint revisions
// have shipped variants such as "text callback".
func firstText(elems []any) (string, bool) {
	for _, e := range elems {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := m["type"].(string)
		if !strings.Contains(typ, "text") {
			continue
		}
		text, ok := m["text"].(string)
		return text, ok
	}
	return "", false
}

// convert coerces v to T: first by direct type assertion, then by a JSON
// round-trip. On failure it returns fallback.
func convert[T any](v any, fallback T) T {
	if t, ok := v.(T); ok {
		return t
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	var t T
	if err := json.Unmarshal(data, &t); err != nil {
		return fallback
	}
	return t
}

// IsErrorResponse reports whether raw carries an embedded application-level
// error in either wire shape. It never panics.
func IsErrorResponse(raw any) bool {
	_, found := errorField(raw)
	return found
}

// ErrorMessage extracts a display string for the embedded error in raw.
// It returns "" when raw carries no error.
func ErrorMessage(raw any) string {
	msg, _ := errorField(raw)
	return msg
}

// errorField looks for an "error" field — a string or a {message} object —
// in a structured payload or inside a text envelope's parsed JSON.
func errorField(raw any) (string, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return "", false
	}

	if msg, found := describeError(m["error"]); found {
		return msg, true
	}

	// Envelope shape: the error may hide inside the text payload.
	elems, ok := m["content"].([]any)
	if !ok {
		return "", false
	}
	text, ok := firstText(elems)
	if !ok {
		return "", false
	}
	var inner map[string]any
	if err := json.Unmarshal([]byte(text), &inner); err != nil {
		return "", false
	}
	return describeError(inner["error"])
}

func describeError(v any) (string, bool) {
	switch e := v.(type) {
	case nil:
		return "", false
	case string:
		return e, true
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return msg, true
		}
		return "unknown error", true
	}
	return "", false
}
