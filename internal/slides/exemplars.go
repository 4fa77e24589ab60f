// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package slides

import (
	"strings"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// RelevancePolicy decides whether a slide's text is kept as an exemplar.
type RelevancePolicy func(text string) bool

// DefaultKeywords are the markers of an Objectives & Solutions slide.
var DefaultKeywords = []string{"Objective", "Solution"}

// DefaultPolicy keeps any slide containing "Objective" or "Solution".
var DefaultPolicy = KeywordPolicy(DefaultKeywords...)

// KeywordPolicy keeps text containing any of the keywords as a case-sensitive
// substring. Synonyms and other casings do not match.
func KeywordPolicy(keywords ...string) RelevancePolicy {
	kws := append([]string(nil), keywords...)
	return func(text string) bool {
		for _, kw := range kws {
			if kw != "" && strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
}

// ExtractExemplars reads each deck in order and returns the text of every
// slide the policy accepts, in deck order then slide order. A nil policy
// means DefaultPolicy. The first deck that fails to parse aborts extraction
// with a *types.ParseError naming that deck.
func ExtractExemplars(decks []types.Upload, policy RelevancePolicy) ([]types.Exemplar, error) {
	if policy == nil {
		policy = DefaultPolicy
	}
	var out []types.Exemplar
	for _, up := range decks {
		deck, err := ReadDeck(up.Name, up.Data)
		if err != nil {
			return nil, &types.ParseError{File: up.Name, Err: err}
		}
		out = append(out, Filter(deck, policy)...)
	}
	return out, nil
}

// Filter returns the exemplars of one parsed deck.
func Filter(deck *Deck, policy RelevancePolicy) []types.Exemplar {
	if policy == nil {
		policy = DefaultPolicy
	}
	var out []types.Exemplar
	for i, s := range deck.Slides {
		text := s.Text()
		if !policy(text) {
			continue
		}
		out = append(out, types.Exemplar{Deck: deck.Name, Slide: i + 1, Text: text})
	}
	return out
}
