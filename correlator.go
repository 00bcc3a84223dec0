/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Feed event kinds after normalization.
const (
	eventLevelStart      = "level_start"
	eventGameConnected   = "game_connected"
	eventCorrectGuess    = "correct_guess"
	eventLettersRevealed = "letters_revealed"
	eventLevelResults    = "level_results"
	eventLevelEnded      = "level_ended"
	eventGameEnded       = "game_ended"
)

// maxStars is a full clear of a level.
const maxStars = 5

// SlotSpec describes one board position as announced by the feed.
type SlotSpec struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// FeedEvent is a normalized event from the game feed.
type FeedEvent struct {
	Kind        string     `json:"kind"`
	Level       int        `json:"level,omitempty"`
	Contributor string     `json:"contributor,omitempty"`
	Letters     []string   `json:"letters,omitempty"`
	Defining    bool       `json:"defining,omitempty"`
	Stars       int        `json:"stars,omitempty"`
	Hidden      []string   `json:"hidden,omitempty"`
	Fake        []string   `json:"fake,omitempty"`
	Slots       []SlotSpec `json:"slots,omitempty"`
	Position    int        `json:"position,omitempty"`
	Record      int        `json:"record,omitempty"`
}

// ChatEntry is one pre-filtered chat message: contributor and text already
// lowercased, text already constrained to plausible guesses.
type ChatEntry struct {
	Contributor string
	Text        string
	At          int64
}

// pendingGuess is an obscured correct-guess waiting out the correlation
// delay before consulting the chat log.
type pendingGuess struct {
	position    int
	length      int
	contributor string
	defining    bool
}

// Correlator consumes the game feed and the chat stream, reconstructs the
// board, resolves obscured guesses by cross-stream correlation, and tracks
// per-channel records. One goroutine (Run) owns all mutable state; the two
// stream clients only ever touch it through the event channels. The mutex
// exists solely so the status page can take read snapshots.
type Correlator struct {
	mu sync.RWMutex

	sessionID string
	channel   string
	delay     time.Duration

	lex     *Lexicon
	records *ChannelRecords
	saver   BoardSaver

	feed     chan FeedEvent
	chat     chan ChatEntry
	deferred chan pendingGuess

	level     *LevelState
	gameLevel int

	chatLog  map[string]ChatEntry
	lastChat ChatEntry

	logger zerolog.Logger
}

// newCorrelator wires a correlator for one spectated session.
func newCorrelator(channel string, delay time.Duration, lex *Lexicon, records *ChannelRecords, saver BoardSaver) *Correlator {
	sessionID := uuid.NewString()

	return &Correlator{
		sessionID: sessionID,
		channel:   channel,
		delay:     delay,
		lex:       lex,
		records:   records,
		saver:     saver,
		feed:      make(chan FeedEvent, 64),
		chat:      make(chan ChatEntry, 64),
		deferred:  make(chan pendingGuess, 16),
		chatLog:   make(map[string]ChatEntry),
		logger:    log.With().Str("session", sessionID).Str("channel", channel).Logger(),
	}
}

// FeedEvents is the inbound channel for normalized game-feed events.
func (c *Correlator) FeedEvents() chan<- FeedEvent {
	return c.feed
}

// ChatEntries is the inbound channel for pre-filtered chat messages.
func (c *Correlator) ChatEntries() chan<- ChatEntry {
	return c.chat
}

// Run processes events until the context is cancelled. Events from either
// stream are handled one at a time in arrival order; an obscured guess does
// not block the loop, it re-enters through the deferred channel once the
// correlation delay has elapsed.
func (c *Correlator) Run(ctx context.Context) {
	c.logger.Info().Msg("correlator started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("correlator stopped")
			return
		case ev := <-c.feed:
			c.handleFeedEvent(ctx, ev)
		case entry := <-c.chat:
			c.handleChat(entry)
		case pg := <-c.deferred:
			c.resolveObscured(pg)
		}
	}
}

// handleChat records the most recent message per user, plus the most recent
// message across all users, for same-tick correlation.
func (c *Correlator) handleChat(entry ChatEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chatLog[entry.Contributor] = entry
	c.lastChat = entry
}

func (c *Correlator) handleFeedEvent(ctx context.Context, ev FeedEvent) {
	switch ev.Kind {
	case eventLevelStart:
		c.handleLevelStart(ev)
	case eventGameConnected:
		c.handleGameConnected(ev)
	case eventCorrectGuess:
		c.handleCorrectGuess(ctx, ev)
	case eventLettersRevealed:
		c.handleLettersRevealed(ev)
	case eventLevelResults:
		c.handleLevelResults(ev)
	case eventLevelEnded, eventGameEnded:
		c.handleLevelEnded(ev)
	default:
		c.logger.Debug().Str("kind", ev.Kind).Msg("ignoring unknown feed event")
	}
}

// handleLevelStart replaces all per-level state, including the chat log.
func (c *Correlator) handleLevelStart(ev FeedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.level = newLevelState(ev.Level, ev.Letters, slotsFromSpecs(ev.Slots))
	c.chatLog = make(map[string]ChatEntry)
	c.lastChat = ChatEntry{}

	c.logger.Info().
		Int("level", ev.Level).
		Int("slots", c.level.Board.Len()).
		Str("letters", c.level.letterString()).
		Msg("level started")
}

// handleGameConnected joins an in-progress level. Unlike a level start it
// must not clear anything: a reconnect resumes whatever state was already
// built up.
func (c *Correlator) handleGameConnected(ev FeedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.level != nil && c.level.Number == ev.Level {
		if len(ev.Letters) > 0 && len(c.level.Letters) == 0 {
			c.level.Letters = append([]string(nil), ev.Letters...)
		}
		if c.level.Board.Len() == 0 && len(ev.Slots) > 0 {
			c.level.Board.Initialize(slotsFromSpecs(ev.Slots))
		}
		c.logger.Info().Int("level", ev.Level).Msg("rejoined level in progress")
		return
	}

	c.level = newLevelState(ev.Level, ev.Letters, slotsFromSpecs(ev.Slots))

	c.logger.Info().
		Int("level", ev.Level).
		Int("slots", c.level.Board.Len()).
		Msg("connected to game")
}

// handleCorrectGuess resolves an unobscured guess immediately. An obscured
// one (letters containing the hidden symbol) waits out the correlation
// delay first, so the chat stream has time to deliver the literal text,
// then re-enters the loop through the deferred channel.
func (c *Correlator) handleCorrectGuess(ctx context.Context, ev FeedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.level == nil {
		c.logger.Warn().Msg("correct guess with no active level, dropped")
		return
	}

	if !lo.Contains(ev.Letters, hiddenSymbol) {
		c.resolveWordLocked(ev.Position, strings.Join(ev.Letters, ""), ev.Contributor, ev.Defining)
		return
	}

	pg := pendingGuess{
		position:    ev.Position,
		length:      len(ev.Letters),
		contributor: ev.Contributor,
		defining:    ev.Defining,
	}

	time.AfterFunc(c.delay, func() {
		select {
		case c.deferred <- pg:
		case <-ctx.Done():
		}
	})
}

// resolveObscured consults the chat log for an obscured guess once the
// correlation delay has passed. Preference order: the last message seen
// across all users when author and length match, then the contributor's own
// last message under the same length constraint. A miss leaves the slot
// unresolved; there is no retry.
func (c *Correlator) resolveObscured(pg pendingGuess) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.level == nil {
		return
	}

	word := ""
	if c.lastChat.Contributor == pg.contributor && len(c.lastChat.Text) == pg.length {
		word = c.lastChat.Text
	} else if entry, ok := c.chatLog[pg.contributor]; ok && len(entry.Text) == pg.length {
		word = entry.Text
	}

	if word == "" {
		c.logger.Warn().
			Str("contributor", pg.contributor).
			Int("position", pg.position).
			Int("length", pg.length).
			Msg("hidden guess could not be correlated with chat")
		return
	}

	c.resolveWordLocked(pg.position, word, pg.contributor, pg.defining)
}

// resolveWordLocked writes a resolved guess into the board and the
// correct-word list, then updates letter knowledge. Callers hold c.mu.
func (c *Correlator) resolveWordLocked(position int, word, contributor string, defining bool) {
	word = strings.ToLower(word)

	c.level.Board.Resolve(position, word, contributor, defining)
	c.level.addWord(WordEntry{Word: word, Contributor: contributor})

	c.logger.Info().
		Str("word", word).
		Str("contributor", contributor).
		Int("position", position).
		Bool("defining", defining).
		Msg("guess resolved")

	if defining {
		hidden, fake := c.level.applyDefiningWord(word)
		c.logger.Info().
			Str("defining", word).
			Strs("hidden", hidden).
			Strs("fake", fake).
			Msg("defining word set")
		return
	}

	if c.level.DefiningWord == "" {
		if inferred := c.level.inferHiddenLetters(); len(inferred) > 0 {
			c.logger.Info().Strs("hidden", inferred).Msg("hidden letters inferred from word usage")
		}
	}
}

// handleLettersRevealed applies explicit hidden/fake reveals from the feed.
// Once the defining word is known it is authoritative and reveals change
// nothing.
func (c *Correlator) handleLettersRevealed(ev FeedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.level == nil {
		c.logger.Warn().Msg("letter reveal with no active level, dropped")
		return
	}

	c.level.applyReveals(ev.Hidden, ev.Fake)
}

// handleLevelResults advances the cumulative level by the stars earned and
// either records a board clear (full stars or complete board) or runs
// missing-word inference over the rest of the board.
func (c *Correlator) handleLevelResults(ev FeedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.level == nil {
		c.logger.Warn().Msg("level results with no active level, dropped")
		return
	}

	c.gameLevel += ev.Stars
	c.records.UpdateBest(c.gameLevel)
	if ev.Record > 0 {
		c.records.UpdateBest(ev.Record)
	}

	c.logger.Info().
		Int("stars", ev.Stars).
		Int("game_level", c.gameLevel).
		Msg("level results")

	if ev.Stars >= maxStars || c.level.Board.IsComplete() {
		c.records.RecordClear()
		c.finalizeBoardLocked()

		// The level is finished; tearing it down here keeps a trailing
		// level-end event from appending inferred misses to a cleared board.
		c.level = nil
		return
	}

	c.inferMissedLocked()

	for length, count := range c.level.Board.EmptyCounts() {
		c.logger.Info().
			Int("length", length).
			Int("count", count).
			Msg("slots left unresolved")
	}
}

// finalizeBoardLocked hands a cleared board to the persistence
// collaborator. The last slot holds the board's longest word; when it
// disagrees with the recorded defining word, the slot wins.
func (c *Correlator) finalizeBoardLocked() {
	slots := c.level.Board.Slots()
	if c.level.DefiningWord == "" || len(slots) == 0 {
		return
	}

	if last := slots[len(slots)-1]; last.Word != "" && last.Word != c.level.DefiningWord {
		c.logger.Warn().
			Str("recorded", c.level.DefiningWord).
			Str("slot", last.Word).
			Msg("defining word corrected from final slot")
		c.level.DefiningWord = last.Word
	}

	if err := c.saver.Save(c.level.DefiningWord, slots); err != nil {
		c.logger.Warn().Err(err).Msg("board save failed")
	}
}

// inferMissedLocked appends slot-aware missing words to the correct-word
// list, falling back to the whole-level search when no slots are known.
func (c *Correlator) inferMissedLocked() {
	if c.level.Board.Len() > 0 {
		for length, words := range findSlotMatchedMissedWords(c.lex, c.level) {
			for _, word := range words {
				c.level.addWord(WordEntry{Word: word, Inferred: true})
			}
			c.logger.Info().Int("length", length).Strs("words", words).Msg("likely missed words")
		}
		return
	}

	c.appendAllMissingLocked()
}

// handleLevelEnded runs the whole-level fallback inference as a final pass.
func (c *Correlator) handleLevelEnded(ev FeedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.level == nil {
		return
	}

	c.appendAllMissingLocked()
}

func (c *Correlator) appendAllMissingLocked() {
	words := findAllMissingWords(c.lex, c.level)
	for _, word := range words {
		c.level.addWord(WordEntry{Word: word, Inferred: true})
	}
	if len(words) > 0 {
		c.logger.Info().Strs("words", words).Msg("likely missed words")
	}
}

// slotsFromSpecs expands the feed's slot list into an empty board.
func slotsFromSpecs(specs []SlotSpec) []Slot {
	slots := make([]Slot, 0, len(specs))
	for _, spec := range specs {
		slots = append(slots, newSlot(spec.Index, spec.Length))
	}
	return slots
}

// Snapshot is a read-only projection of the correlator's state for the
// status page.
type Snapshot struct {
	SessionID   string         `json:"session_id"`
	Channel     string         `json:"channel"`
	GameLevel   int            `json:"game_level"`
	AllTimeBest int            `json:"all_time_best"`
	DailyBest   int            `json:"daily_best"`
	DailyClears int            `json:"daily_clears"`
	Level       *LevelSnapshot `json:"level,omitempty"`
}

// LevelSnapshot projects the current level, words carrying their inferred
// markers.
type LevelSnapshot struct {
	Number       int      `json:"number"`
	Letters      []string `json:"letters"`
	DefiningWord string   `json:"defining_word,omitempty"`
	Words        []string `json:"words"`
	Slots        []Slot   `json:"slots"`
	Hidden       []string `json:"hidden,omitempty"`
	Fake         []string `json:"fake,omitempty"`
}

// Snapshot captures the current state under a read lock; the result shares
// nothing with the correlator's own structures.
func (c *Correlator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		SessionID:   c.sessionID,
		Channel:     c.channel,
		GameLevel:   c.gameLevel,
		AllTimeBest: c.records.AllTimeBest,
		DailyBest:   c.records.DailyBest,
		DailyClears: c.records.DailyClears,
	}

	if c.level == nil {
		return snap
	}

	snap.Level = &LevelSnapshot{
		Number:       c.level.Number,
		Letters:      append([]string(nil), c.level.Letters...),
		DefiningWord: c.level.DefiningWord,
		Words: lo.Map(c.level.Words, func(e WordEntry, _ int) string {
			return e.display()
		}),
		Slots:  append([]Slot(nil), c.level.Board.Slots()...),
		Hidden: sortedKeys(c.level.HiddenRevealed),
		Fake:   sortedKeys(c.level.FakeRevealed),
	}

	return snap
}

func sortedKeys(set map[string]bool) []string {
	keys := lo.Keys(set)
	sort.Strings(keys)
	return keys
}
