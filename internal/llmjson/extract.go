// Package llmjson pulls a single JSON value out of free-form model output.
package llmjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ccee-sentinel/internal/domain"
)

var errNoJSON = errors.New("no JSON value found in response")

// Extract returns the JSON object or array embedded in text.
//
// The span runs from the first '{' or '[' (whichever comes first) to the last matching
// closer. If that span is missing or invalid, markdown code fences are removed and the
// whole remainder is tried instead. This is a position heuristic, not a balanced parser:
// trailing prose that contains a stray closer can break the first attempt.
func Extract(text string) (json.RawMessage, error) {
	cleaned := StripThink(text)

	if span, ok := outerSpan(cleaned); ok && json.Valid(span) {
		return json.RawMessage(span), nil
	}

	unfenced := strings.ReplaceAll(cleaned, "```json", "")
	unfenced = strings.TrimSpace(strings.ReplaceAll(unfenced, "```", ""))
	if unfenced != "" && json.Valid([]byte(unfenced)) {
		return json.RawMessage(unfenced), nil
	}

	return nil, domain.NewParseError(errNoJSON)
}

// Decode extracts the JSON value from text and unmarshals it into v.
func Decode(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.NewParseError(err)
	}
	return nil
}

// DecodeList accepts either a bare array or an object holding the array under one of keys
// (e.g. {"questions": [...]}). An object without any of the keys is decoded as one item.
func DecodeList[T any](text string, keys ...string) ([]T, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, domain.NewParseError(err)
		}
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, domain.NewParseError(err)
	}
	for _, key := range keys {
		inner, ok := wrapper[key]
		if !ok {
			continue
		}
		var items []T
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, domain.NewParseError(fmt.Errorf("field %q: %w", key, err))
		}
		return items, nil
	}

	var single T
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, domain.NewParseError(err)
	}
	return []T{single}, nil
}

// StripThink removes <think>...</think> reasoning blocks some local models emit.
func StripThink(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start == -1 {
			return text
		}
		end := strings.Index(text[start:], "</think>")
		if end == -1 {
			return text
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
}

func outerSpan(text string) ([]byte, bool) {
	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')

	var start, end int
	switch {
	case arrStart != -1 && (objStart == -1 || arrStart < objStart):
		start, end = arrStart, strings.LastIndexByte(text, ']')
	case objStart != -1:
		start, end = objStart, strings.LastIndexByte(text, '}')
	default:
		return nil, false
	}
	if end <= start {
		return nil, false
	}
	return []byte(text[start : end+1]), true
}
