// Package entity splits multi-valued entity cells into tokens and merges
// casing and formatting variants under a canonical key.
package entity

import (
	"strings"

	"golang.org/x/text/cases"
)

// Separator sets used when splitting a table cell.
const (
	// GraphSeparators splits on comma, semicolon, pipe, newline and slash.
	GraphSeparators = ",;|\n/"
	// StatsSeparators splits on comma and semicolon only.
	StatsSeparators = ",;"
)

// emptyLike holds placeholder values that mean "no entity".
var emptyLike = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
	"[]":   true,
	"{}":   true,
	"na":   true,
	"n/a":  true,
	"-":    true,
	"--":   true,
}

// wrapPairs are the outer delimiters stripped from a token (one pair only).
var wrapPairs = [][2]byte{
	{'"', '"'},
	{'\'', '\''},
	{'[', ']'},
	{'{', '}'},
	{'(', ')'},
}

// IsEmptyLike reports whether a cleaned token is a placeholder such as
// "n/a" or "null".
func IsEmptyLike(token string) bool {
	return emptyLike[strings.ToLower(token)]
}

// CleanToken trims a raw token, strips a single matching outer pair of
// quotes, brackets or braces, and collapses internal whitespace.
func CleanToken(raw string) string {
	t := strings.TrimSpace(raw)
	if len(t) >= 2 {
		for _, p := range wrapPairs {
			if t[0] == p[0] && t[len(t)-1] == p[1] {
				t = strings.TrimSpace(t[1 : len(t)-1])
				break
			}
		}
	}
	return strings.Join(strings.Fields(t), " ")
}

// Canonicalizer maps raw cell values to cleaned tokens and canonical keys.
type Canonicalizer struct {
	// Separators is the set of characters a cell is split on.
	Separators string
	// CaseInsensitive folds case when computing keys.
	CaseInsensitive bool
}

// NewCanonicalizer creates a Canonicalizer. An empty separator set falls
// back to GraphSeparators.
func NewCanonicalizer(separators string, caseInsensitive bool) *Canonicalizer {
	if separators == "" {
		separators = GraphSeparators
	}
	return &Canonicalizer{Separators: separators, CaseInsensitive: caseInsensitive}
}

// Tokens splits a cell into cleaned tokens, dropping empty and
// placeholder values. Order is preserved; duplicates are kept. A slash
// separator is applied only after placeholders are dropped, so "n/a"
// never splits into two tokens.
func (c *Canonicalizer) Tokens(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	outer := strings.ReplaceAll(c.Separators, "/", "")
	splitSlash := len(outer) != len(c.Separators)

	var tokens []string
	for _, seg := range splitOn(cell, outer) {
		t := CleanToken(seg)
		if t == "" || IsEmptyLike(t) {
			continue
		}
		if !splitSlash {
			tokens = append(tokens, t)
			continue
		}
		for _, part := range splitOn(t, "/") {
			if p := CleanToken(part); p != "" && !IsEmptyLike(p) {
				tokens = append(tokens, p)
			}
		}
	}
	return tokens
}

func splitOn(s, seps string) []string {
	if seps == "" {
		return []string{s}
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
}

// Key returns the canonical key for a cleaned token.
func (c *Canonicalizer) Key(token string) string {
	token = strings.Join(strings.Fields(token), " ")
	if c.CaseInsensitive {
		return cases.Fold().String(token)
	}
	return token
}

// Tally accumulates occurrences per canonical key and remembers which
// original casing was seen most often. It is not safe for concurrent use.
type Tally struct {
	canon   *Canonicalizer
	keys    []string
	counts  map[string]int
	casings map[string]*casingCounter
	total   int
}

type casingCounter struct {
	order  []string
	counts map[string]int
}

// NewTally creates an empty tally bound to a Canonicalizer.
func NewTally(c *Canonicalizer) *Tally {
	return &Tally{
		canon:   c,
		counts:  make(map[string]int),
		casings: make(map[string]*casingCounter),
	}
}

// Add records one occurrence of a cleaned token and returns its key.
func (t *Tally) Add(token string) string {
	key := t.canon.Key(token)
	cc, ok := t.casings[key]
	if !ok {
		cc = &casingCounter{counts: make(map[string]int)}
		t.casings[key] = cc
		t.keys = append(t.keys, key)
	}
	if _, seen := cc.counts[token]; !seen {
		cc.order = append(cc.order, token)
	}
	cc.counts[token]++
	t.counts[key]++
	t.total++
	return key
}

// AddCell tokenizes a cell and records every token.
func (t *Tally) AddCell(cell string) []string {
	tokens := t.canon.Tokens(cell)
	keys := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		keys = append(keys, t.Add(tok))
	}
	return keys
}

// Label returns the most frequent original casing for key. Ties go to
// the casing seen first. Unknown keys return the key itself.
func (t *Tally) Label(key string) string {
	cc, ok := t.casings[key]
	if !ok {
		return key
	}
	best, bestN := "", 0
	for _, s := range cc.order {
		if n := cc.counts[s]; n > bestN {
			best, bestN = s, n
		}
	}
	return best
}

// Count returns the number of occurrences recorded for key.
func (t *Tally) Count(key string) int { return t.counts[key] }

// Keys returns keys in first-seen order.
func (t *Tally) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Unique returns the number of distinct keys.
func (t *Tally) Unique() int { return len(t.keys) }

// Total returns the number of occurrences across all keys.
func (t *Tally) Total() int { return t.total }
