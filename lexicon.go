/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// minWordLength is the shortest word the game accepts.
const minWordLength = 4

// wordListFile is the JSON structure of a lexicon file on disk.
type wordListFile struct {
	Words []string `json:"words"`
}

// Lexicon is the set of valid words for the game's language, loaded once
// at session start and shared read-only afterwards.
type Lexicon struct {
	words []string
}

// loadLexicon reads a word-list JSON file, lowercasing and deduplicating
// its entries.
func loadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list wordListFile
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	words := lo.Uniq(lo.FilterMap(list.Words, func(w string, _ int) (string, bool) {
		w = strings.ToLower(strings.TrimSpace(w))
		return w, w != ""
	}))

	log.Info().Int("words", len(words)).Str("path", path).Msg("lexicon loaded")

	return &Lexicon{words: words}, nil
}

// newLexicon builds a Lexicon from an in-memory word list.
func newLexicon(words []string) *Lexicon {
	return &Lexicon{
		words: lo.Uniq(lo.Map(words, func(w string, _ int) string {
			return strings.ToLower(w)
		})),
	}
}

// Search returns every lexicon word formable from the given letters, where
// each letter may be consumed at most as many times as it appears. Order of
// the input and unused letters are irrelevant; this is an available-letters
// check, not an anagram check. An exactLength of 0 means "any length above
// the game minimum".
func (l *Lexicon) Search(letters string, exactLength int) []string {
	if l == nil || letters == "" {
		return nil
	}

	available := letterCounts(strings.ToLower(letters))

	var matches []string

	for _, word := range l.words {
		if exactLength > 0 {
			if len(word) != exactLength {
				continue
			}
		} else if len(word) < minWordLength {
			continue
		}

		if formable(word, available) {
			matches = append(matches, word)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) > len(matches[j])
		}
		return matches[i] < matches[j]
	})

	return matches
}

// formable reports whether word can be spelled from the available letter
// counts, consuming one unit per occurrence.
func formable(word string, available map[rune]int) bool {
	remaining := make(map[rune]int, len(available))
	for r, n := range available {
		remaining[r] = n
	}

	for _, r := range word {
		remaining[r]--
		if remaining[r] < 0 {
			return false
		}
	}

	return true
}

// letterCounts builds a frequency multiset from a string.
func letterCounts(s string) map[rune]int {
	counts := make(map[rune]int, len(s))
	for _, r := range s {
		counts[r]++
	}
	return counts
}
