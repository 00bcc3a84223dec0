/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"github.com/samber/lo"
)

// findSlotMatchedMissedWords enumerates the words that should have been
// found but were missed, using the board's slot structure. For each run of
// unresolved slots, candidates of each slot length present in the run are
// searched from the level's known letters, then narrowed by the board's
// alphabetical ordering against the run's neighbor words. Results are
// grouped by slot length.
func findSlotMatchedMissedWords(lex *Lexicon, level *LevelState) map[int][]string {
	missed := make(map[int][]string)

	for _, group := range groupSlots(level.Board.Slots()) {
		for _, length := range group.lengths() {
			candidates := lex.Search(level.letterString(), length)

			matches := lo.Filter(candidates, func(word string, _ int) bool {
				return !level.hasWord(word) && fitsBetween(word, group.Lower, group.Upper)
			})

			if len(matches) > 0 {
				missed[length] = lo.Uniq(append(missed[length], matches...))
			}
		}
	}

	return missed
}

// findAllMissingWords is the whole-level fallback for when slot boundaries
// are unavailable: every word formable from the level's letters, minus
// everything already known, minus anything shorter than the smallest slot
// seen this level.
func findAllMissingWords(lex *Lexicon, level *LevelState) []string {
	minLength := minWordLength
	if level.Board != nil {
		minLength = level.Board.minSlotLength()
	}

	candidates := lex.Search(level.letterString(), 0)

	return lo.Filter(candidates, func(word string, _ int) bool {
		return len(word) >= minLength && !level.hasWord(word)
	})
}
