/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// emptySymbol marks a board position whose letter is not known at all.
	emptySymbol = "."

	// hiddenSymbol marks a letter the feed has deliberately obscured.
	hiddenSymbol = "?"
)

// Slot is one position on the board, holding exactly one word of fixed
// length once resolved.
type Slot struct {
	Letters     []string `json:"letters"`
	Word        string   `json:"word"`
	Contributor string   `json:"contributor,omitempty"`
	Defining    bool     `json:"defining"`
	Index       int      `json:"index"`
	Length      int      `json:"length"`
}

// filled reports whether a guess has been resolved into this slot.
func (s *Slot) filled() bool {
	return s.Contributor != ""
}

// complete reports whether the slot holds a fully known word, with no
// placeholder symbols left in its letters.
func (s *Slot) complete() bool {
	if s.Word == "" {
		return false
	}
	for _, l := range s.Letters {
		if l == emptySymbol || l == hiddenSymbol {
			return false
		}
	}
	return true
}

// newSlot builds an unresolved slot of the given length at the given
// position.
func newSlot(index, length int) Slot {
	letters := make([]string, length)
	for i := range letters {
		letters[i] = emptySymbol
	}
	return Slot{
		Letters: letters,
		Index:   index,
		Length:  length,
	}
}

// Board is the ordered collection of slots for the current level. It is
// replaced wholesale on level start and mutated in place, at most once per
// position, as guesses resolve.
type Board struct {
	slots []Slot
}

// Initialize replaces the current slots wholesale.
func (b *Board) Initialize(slots []Slot) {
	b.slots = slots
}

// Resolve writes a resolved word into the slot at the given position. An
// out-of-range position is a recoverable protocol anomaly: it is logged and
// skipped, leaving the board untouched.
func (b *Board) Resolve(position int, word, contributor string, defining bool) {
	if position < 0 || position >= len(b.slots) {
		log.Warn().
			Int("position", position).
			Int("slots", len(b.slots)).
			Str("word", word).
			Msg("slot position out of range, guess dropped")
		return
	}

	slot := &b.slots[position]
	slot.Word = word
	slot.Contributor = contributor
	slot.Defining = defining

	letters := strings.Split(word, "")
	if len(letters) == slot.Length {
		slot.Letters = letters
	}
}

// IsComplete reports whether every slot has been resolved.
func (b *Board) IsComplete() bool {
	if len(b.slots) == 0 {
		return false
	}
	for i := range b.slots {
		if !b.slots[i].filled() {
			return false
		}
	}
	return true
}

// EmptyCounts maps slot length to the number of unresolved slots of that
// length, for end-of-level reporting.
func (b *Board) EmptyCounts() map[int]int {
	counts := make(map[int]int)
	for i := range b.slots {
		if !b.slots[i].filled() {
			counts[b.slots[i].Length]++
		}
	}
	return counts
}

// Slots returns the board's slots in position order.
func (b *Board) Slots() []Slot {
	return b.slots
}

// Len returns the number of slots on the board.
func (b *Board) Len() int {
	return len(b.slots)
}

// minSlotLength returns the shortest slot length on the board, or the game
// minimum when no slots are known.
func (b *Board) minSlotLength() int {
	shortest := 0
	for i := range b.slots {
		if shortest == 0 || b.slots[i].Length < shortest {
			shortest = b.slots[i].Length
		}
	}
	if shortest == 0 {
		return minWordLength
	}
	return shortest
}
