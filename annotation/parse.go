package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Strategy turns a cleaned response candidate into a JSON object.
type Strategy struct {
	Name  string
	Parse func(candidate string) (map[string]any, error)
}

var errNotObject = errors.New("not a json object")

// Strategies are tried in order; the first success wins.
var Strategies = []Strategy{
	{Name: "direct", Parse: parseDirect},
	{Name: "braces", Parse: parseBraces},
	{Name: "repair", Parse: parseRepaired},
}

// ParseResponse extracts a JSON object from a model response. Maps are
// returned as-is, other non-text values are round-tripped through JSON and
// everything that yields no object becomes an empty map. It never fails.
func ParseResponse(raw any) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case string:
		return parseText(v)
	case []byte:
		return parseText(string(v))
	case json.RawMessage:
		return parseText(string(v))
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return map[string]any{}
	}
	return obj
}

func parseText(raw string) map[string]any {
	candidate := stripFence(strings.TrimSpace(raw))
	for _, s := range Strategies {
		obj, err := s.Parse(candidate)
		if err == nil {
			if s.Name != Strategies[0].Name {
				slog.Debug("annotation: parsed response with fallback", "strategy", s.Name)
			}
			return obj
		}
	}
	slog.Debug("annotation: no json object in response", "length", len(raw))
	return map[string]any{}
}

// stripFence returns the body of a leading markdown code fence. A block
// tagged json is preferred over the first generic fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	var rest string
	if _, after, ok := strings.Cut(text, "```json"); ok {
		rest = after
	} else {
		rest = text[len("```"):]
	}
	body, _, _ := strings.Cut(rest, "```")
	return strings.TrimSpace(body)
}

func parseDirect(candidate string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}

// braceSpan returns the text from the first '{' to the last '}'.
func braceSpan(candidate string) (string, bool) {
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return candidate[start : end+1], true
}

func parseBraces(candidate string) (map[string]any, error) {
	span, ok := braceSpan(candidate)
	if !ok {
		return nil, fmt.Errorf("no braces in response")
	}
	return parseDirect(span)
}

// parseRepaired only repairs the brace span so free prose is never coerced
// into a JSON string.
func parseRepaired(candidate string) (map[string]any, error) {
	span, ok := braceSpan(candidate)
	if !ok {
		return nil, fmt.Errorf("no braces in response")
	}
	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil {
		return nil, fmt.Errorf("json repair: %w", err)
	}
	return parseDirect(repaired)
}
