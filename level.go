/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// WordEntry is one entry in a level's correct-word list. Inferred entries
// were produced by missing-word inference rather than a confirmed guess and
// carry a trailing marker in display projections.
type WordEntry struct {
	Word        string `json:"word"`
	Contributor string `json:"contributor,omitempty"`
	Inferred    bool   `json:"inferred,omitempty"`
}

// display renders the entry for projection, marking inferred words.
func (w WordEntry) display() string {
	if w.Inferred {
		return w.Word + "*"
	}
	return w.Word
}

// LevelState is all transient state for the level currently in play. It is
// replaced on level start and game clear.
type LevelState struct {
	Number         int
	Letters        []string
	DefiningWord   string
	Words          []WordEntry
	Board          *Board
	HiddenRevealed map[string]bool
	FakeRevealed   map[string]bool
}

// newLevelState builds a fresh level from the feed's letter and slot
// payload.
func newLevelState(number int, letters []string, slots []Slot) *LevelState {
	board := &Board{}
	board.Initialize(slots)

	return &LevelState{
		Number:         number,
		Letters:        append([]string(nil), letters...),
		Board:          board,
		HiddenRevealed: make(map[string]bool),
		FakeRevealed:   make(map[string]bool),
	}
}

// addWord inserts an entry into the correct-word list, keeping it sorted by
// length, then lexicographically, with inferred entries after resolved ones
// of the same word.
func (l *LevelState) addWord(entry WordEntry) {
	entry.Word = strings.ToLower(entry.Word)
	l.Words = append(l.Words, entry)

	sort.SliceStable(l.Words, func(i, j int) bool {
		a, b := l.Words[i], l.Words[j]
		if len(a.Word) != len(b.Word) {
			return len(a.Word) < len(b.Word)
		}
		if a.Word != b.Word {
			return a.Word < b.Word
		}
		return !a.Inferred && b.Inferred
	})
}

// hasWord reports whether a word is already accounted for, resolved or
// inferred.
func (l *LevelState) hasWord(word string) bool {
	word = strings.ToLower(word)
	return lo.SomeBy(l.Words, func(e WordEntry) bool {
		return e.Word == word
	})
}

// knownWords returns the bare words of the correct-word list, inference
// markers ignored.
func (l *LevelState) knownWords() []string {
	return lo.Map(l.Words, func(e WordEntry, _ int) string {
		return e.Word
	})
}

// letterString returns the level's known letters as a single string,
// placeholders included.
func (l *LevelState) letterString() string {
	return strings.Join(l.Letters, "")
}

// placeholderCount counts the hidden-letter placeholders still in the
// displayed letter set.
func (l *LevelState) placeholderCount() int {
	return lo.CountBy(l.Letters, func(s string) bool {
		return s == hiddenSymbol
	})
}

// applyDefiningWord records the level's defining word and derives the
// hidden and fake letter sets from it by multiset comparison: hidden
// letters appear in the defining word but are absent or under-counted in
// the known letters; fake letters are shown but unused by the defining
// word. The defining word is authoritative from this point on.
func (l *LevelState) applyDefiningWord(word string) (hidden, fake []string) {
	word = strings.ToLower(word)
	l.DefiningWord = word

	known := make(map[string]int)
	for _, s := range l.Letters {
		if s != hiddenSymbol && s != emptySymbol {
			known[strings.ToLower(s)]++
		}
	}

	used := make(map[string]int)
	for _, r := range word {
		used[string(r)]++
	}

	for letter, n := range used {
		for i := known[letter]; i < n; i++ {
			hidden = append(hidden, letter)
		}
	}
	for letter, n := range known {
		for i := used[letter]; i < n; i++ {
			fake = append(fake, letter)
		}
	}

	sort.Strings(hidden)
	sort.Strings(fake)

	for _, letter := range hidden {
		l.HiddenRevealed[letter] = true
	}
	for _, letter := range fake {
		l.FakeRevealed[letter] = true
	}

	l.fillPlaceholders(hidden)

	return hidden, fake
}

// inferHiddenLetters guesses hidden letters before the defining word is
// known. For each letter, the heaviest use across all correct words so far
// is compared against the known-letter count; an excess of N means that
// letter is hidden N times. Placeholders are then resolved conservatively:
// only as many as the inferred letters guarantee.
func (l *LevelState) inferHiddenLetters() []string {
	if l.placeholderCount() == 0 {
		return nil
	}

	need := make(map[string]int)
	for _, e := range l.Words {
		for letter, n := range stringCounts(e.Word) {
			if n > need[letter] {
				need[letter] = n
			}
		}
	}

	known := make(map[string]int)
	for _, s := range l.Letters {
		if s != hiddenSymbol && s != emptySymbol {
			known[strings.ToLower(s)]++
		}
	}

	var inferred []string
	for letter, n := range need {
		for i := known[letter]; i < n; i++ {
			inferred = append(inferred, letter)
		}
	}
	sort.Strings(inferred)

	l.fillPlaceholders(inferred)

	return inferred
}

// applyReveals applies explicitly revealed hidden and fake letters to the
// displayed letter set. Once the defining word is known it is authoritative
// and reveals are ignored here.
func (l *LevelState) applyReveals(hidden, fake []string) {
	if l.DefiningWord != "" {
		return
	}

	for _, letter := range fake {
		letter = strings.ToLower(letter)
		l.FakeRevealed[letter] = true
		for i, s := range l.Letters {
			if strings.EqualFold(s, letter) {
				l.Letters = append(l.Letters[:i], l.Letters[i+1:]...)
				break
			}
		}
	}

	for _, letter := range hidden {
		letter = strings.ToLower(letter)
		l.HiddenRevealed[letter] = true
	}

	// Revealed hidden letters beyond the placeholder count are additions to
	// the letter set, not replacements.
	extra := l.fillPlaceholders(lo.Map(hidden, func(s string, _ int) string {
		return strings.ToLower(s)
	}))
	l.Letters = append(l.Letters, extra...)
}

// fillPlaceholders substitutes hidden-letter placeholders with the given
// letters, one each, leaving any excess placeholders untouched. Letters left
// over once the placeholders run out are returned to the caller.
func (l *LevelState) fillPlaceholders(letters []string) []string {
	next := 0
	for i, s := range l.Letters {
		if next >= len(letters) {
			break
		}
		if s == hiddenSymbol {
			l.Letters[i] = letters[next]
			next++
		}
	}
	return letters[next:]
}

// stringCounts builds a per-letter frequency multiset from a word.
func stringCounts(word string) map[string]int {
	counts := make(map[string]int, len(word))
	for _, r := range strings.ToLower(word) {
		counts[string(r)]++
	}
	return counts
}
