package annotation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/brunobiangulo/bioextract/entity"
)

// NormalizeField coerces one response field into a list of strings.
// Missing or null fields yield an empty list, lists drop their null
// elements and any other value becomes a single-element list.
func NormalizeField(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if item == nil {
				continue
			}
			out = append(out, stringify(item))
		}
		return out
	case []string:
		return append([]string{}, x...)
	default:
		return []string{stringify(x)}
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// MentionSet holds the mention list per category. A category that is
// present with no mentions is distinct from one that is absent.
type MentionSet struct {
	lists map[entity.Category][]string
}

// NewMentionSet returns an empty set.
func NewMentionSet() *MentionSet {
	return &MentionSet{lists: make(map[entity.Category][]string)}
}

// MentionsFromResponse reads every category from a parsed response. Keys
// must match the category names exactly, as requested in the prompt.
func MentionsFromResponse(obj map[string]any) *MentionSet {
	ms := NewMentionSet()
	for _, c := range entity.Categories {
		v, ok := obj[string(c)]
		if !ok {
			continue
		}
		ms.Set(c, NormalizeField(v))
	}
	return ms
}

// Set replaces the mentions of c.
func (m *MentionSet) Set(c entity.Category, mentions []string) {
	if mentions == nil {
		mentions = []string{}
	}
	m.lists[c] = mentions
}

// Get returns the mentions of c, nil when the category is absent.
func (m *MentionSet) Get(c entity.Category) []string {
	return m.lists[c]
}

// Has reports whether c was present in the response.
func (m *MentionSet) Has(c entity.Category) bool {
	_, ok := m.lists[c]
	return ok
}

// Cell joins the mentions of c for a table cell.
func (m *MentionSet) Cell(c entity.Category) string {
	return strings.Join(m.lists[c], ", ")
}

// Total is the number of mentions across all categories.
func (m *MentionSet) Total() int {
	var n int
	for _, l := range m.lists {
		n += len(l)
	}
	return n
}
