/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "strings"

// BoundaryGroup is a maximal run of consecutive unresolved slots, together
// with the resolved words of its nearest filled neighbors. An empty bound
// means the run touches that edge of the board. Because the board lists its
// words in strict alphabetical order, the bounds narrow the space a missing
// word can occupy.
type BoundaryGroup struct {
	Slots []Slot
	Lower string
	Upper string
}

// groupSlots partitions the board's unresolved slots into boundary groups.
func groupSlots(slots []Slot) []BoundaryGroup {
	var groups []BoundaryGroup

	for i := 0; i < len(slots); i++ {
		if slots[i].filled() {
			continue
		}

		// Extend the run over consecutive empty slots.
		j := i
		for j+1 < len(slots) && !slots[j+1].filled() {
			j++
		}

		group := BoundaryGroup{
			Slots: append([]Slot(nil), slots[i:j+1]...),
		}

		for k := i - 1; k >= 0; k-- {
			if slots[k].filled() {
				group.Lower = slots[k].Word
				break
			}
		}
		for k := j + 1; k < len(slots); k++ {
			if slots[k].filled() {
				group.Upper = slots[k].Word
				break
			}
		}

		groups = append(groups, group)
		i = j
	}

	return groups
}

// lengths returns the distinct slot lengths present in the group, in first
// appearance order.
func (g *BoundaryGroup) lengths() []int {
	var out []int
	seen := make(map[int]bool)
	for _, s := range g.Slots {
		if !seen[s.Length] {
			seen[s.Length] = true
			out = append(out, s.Length)
		}
	}
	return out
}

// fitsBetween reports whether word could occupy a slot between the two
// bounds on an alphabetically ordered board. Comparison is case-insensitive
// and strict on both ends: the board never repeats a word, so a candidate
// equal to either neighbor can never be the missing word. An empty bound
// does not constrain that side.
func fitsBetween(word, lower, upper string) bool {
	w := strings.ToLower(word)
	if lower != "" && w <= strings.ToLower(lower) {
		return false
	}
	if upper != "" && w >= strings.ToLower(upper) {
		return false
	}
	return true
}
