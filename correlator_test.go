package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory RecordStore for tests.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

// captureSaver records Save calls for assertions.
type captureSaver struct {
	mu     sync.Mutex
	boards []string
	slots  [][]Slot
}

func (s *captureSaver) Save(boardID string, slots []Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = append(s.boards, boardID)
	s.slots = append(s.slots, append([]Slot(nil), slots...))
	return nil
}

func (s *captureSaver) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.boards...)
}

func newTestCorrelator(t *testing.T, lex *Lexicon, saver BoardSaver) *Correlator {
	t.Helper()
	if saver == nil {
		saver = logBoardSaver{}
	}
	records := loadChannelRecords(newMemStore(), "somechannel")
	return newCorrelator("somechannel", 20*time.Millisecond, lex, records, saver)
}

func startCorrelator(t *testing.T, c *Correlator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
}

func levelStartEvent(lengths []int, letters ...string) FeedEvent {
	specs := make([]SlotSpec, len(lengths))
	for i, l := range lengths {
		specs[i] = SlotSpec{Index: i, Length: l}
	}
	return FeedEvent{
		Kind:    eventLevelStart,
		Level:   1,
		Letters: letters,
		Slots:   specs,
	}
}

func TestResolveUnobscuredGuess(t *testing.T) {
	lex := newLexicon([]string{"test"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "s", "t")
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", "s", "t"},
		Position:    0,
	}

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Level != nil && len(snap.Level.Words) == 1
	}, time.Second, 5*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, "test", snap.Level.Slots[0].Word)
	assert.Equal(t, "alice", snap.Level.Slots[0].Contributor)
	assert.Equal(t, []string{"test"}, snap.Level.Words)
}

func TestResolveObscuredGuessViaChat(t *testing.T) {
	lex := newLexicon([]string{"tent"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "n", "t")
	c.ChatEntries() <- ChatEntry{Contributor: "alice", Text: "tent", At: time.Now().UnixMilli()}
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", hiddenSymbol, "t"},
		Position:    0,
	}

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Level != nil && snap.Level.Slots[0].Word == "tent"
	}, time.Second, 5*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, "alice", snap.Level.Slots[0].Contributor)
}

func TestResolveObscuredGuessChatArrivesDuringDelay(t *testing.T) {
	lex := newLexicon([]string{"tent"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "n", "t")

	// The guess arrives before the chat message that explains it; the
	// correlation delay bounds that race.
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", hiddenSymbol, "t"},
		Position:    0,
	}
	c.ChatEntries() <- ChatEntry{Contributor: "alice", Text: "tent", At: time.Now().UnixMilli()}

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Level != nil && snap.Level.Slots[0].Word == "tent"
	}, time.Second, 5*time.Millisecond)
}

func TestObscuredGuessCorrelationMiss(t *testing.T) {
	lex := newLexicon([]string{"tent"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "n", "t")

	// Wrong author and wrong length: nothing to correlate against.
	c.ChatEntries() <- ChatEntry{Contributor: "mallory", Text: "tents", At: time.Now().UnixMilli()}
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", hiddenSymbol, "t"},
		Position:    0,
	}

	time.Sleep(100 * time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Level)
	assert.Empty(t, snap.Level.Slots[0].Word, "correlation miss leaves the slot unresolved")
	assert.Empty(t, snap.Level.Words)
}

func TestObscuredGuessPerUserFallback(t *testing.T) {
	lex := newLexicon([]string{"tent"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "n", "t")

	// Alice guessed first, then someone else spoke; the per-user map still
	// holds alice's message.
	c.ChatEntries() <- ChatEntry{Contributor: "alice", Text: "tent", At: time.Now().UnixMilli()}
	c.ChatEntries() <- ChatEntry{Contributor: "mallory", Text: "nonsense", At: time.Now().UnixMilli()}
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", hiddenSymbol, "t"},
		Position:    0,
	}

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Level != nil && snap.Level.Slots[0].Word == "tent"
	}, time.Second, 5*time.Millisecond)
}

// Level starts with slots [4,5]; slot 0 resolves to "test"; a 3-star result
// leaves slot 1 open. The cumulative level advances by 3, no clear is
// recorded, and inference runs for the length-5 group above "test".
func TestLevelResultsPartialClear(t *testing.T) {
	lex := newLexicon([]string{"test", "tests", "toast"})
	saver := &captureSaver{}
	c := newTestCorrelator(t, lex, saver)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4, 5}, "t", "e", "s", "t", "s")
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", "s", "t"},
		Position:    0,
	}
	c.FeedEvents() <- FeedEvent{Kind: eventLevelResults, Stars: 3}

	require.Eventually(t, func() bool {
		return c.Snapshot().GameLevel == 3
	}, time.Second, 5*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.DailyClears, "partial clear must not count as a board clear")
	assert.Equal(t, 3, snap.DailyBest)
	assert.Empty(t, saver.calls())

	// "tests" fits the length-5 group bounded below by "test".
	assert.Contains(t, snap.Level.Words, "tests*")
	assert.NotContains(t, snap.Level.Words, "toast*", "toast cannot be formed from the level letters")
}

// All slots resolve and the level reports full stars: the daily clear
// counter increments and the board is saved once under the final slot's
// word.
func TestLevelResultsFullClear(t *testing.T) {
	lex := newLexicon([]string{"test", "tests"})
	saver := &captureSaver{}
	c := newTestCorrelator(t, lex, saver)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4, 5}, "t", "e", "s", "t", "s")
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", "s", "t"},
		Position:    0,
	}
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "bob",
		Letters:     []string{"t", "e", "s", "t", "s"},
		Position:    1,
		Defining:    true,
	}
	c.FeedEvents() <- FeedEvent{Kind: eventLevelResults, Stars: maxStars}

	require.Eventually(t, func() bool {
		return c.Snapshot().DailyClears == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, []string{"tests"}, saver.calls(), "board saved exactly once, id from the last slot")
	assert.Equal(t, maxStars, c.Snapshot().GameLevel)
}

// A cleared board is torn down with the level, so a trailing level-end
// event has nothing to append inferred misses to.
func TestClearedLevelIgnoresTrailingLevelEnd(t *testing.T) {
	lex := newLexicon([]string{"test", "tests", "sett"})
	saver := &captureSaver{}
	c := newTestCorrelator(t, lex, saver)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4, 5}, "t", "e", "s", "t", "s")
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", "s", "t"},
		Position:    0,
	}
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "bob",
		Letters:     []string{"t", "e", "s", "t", "s"},
		Position:    1,
		Defining:    true,
	}
	c.FeedEvents() <- FeedEvent{Kind: eventLevelResults, Stars: maxStars}

	require.Eventually(t, func() bool {
		return c.Snapshot().DailyClears == 1
	}, time.Second, 5*time.Millisecond)

	c.FeedEvents() <- FeedEvent{Kind: eventLevelEnded}

	time.Sleep(50 * time.Millisecond)

	assert.Nil(t, c.Snapshot().Level, "cleared level must not survive its results")
	assert.Len(t, saver.calls(), 1)
}

func TestSlotsFromSpecsKeepsDeclaredIndexes(t *testing.T) {
	slots := slotsFromSpecs([]SlotSpec{{Index: 2, Length: 4}, {Index: 0, Length: 5}})

	require.Len(t, slots, 2)
	assert.Equal(t, 2, slots[0].Index)
	assert.Equal(t, 0, slots[1].Index)
}

func TestLevelEndRunsWholeLevelInference(t *testing.T) {
	lex := newLexicon([]string{"test", "sett"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4, 4}, "t", "e", "s", "t", "s")
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"s", "e", "t", "t"},
		Position:    0,
	}
	c.FeedEvents() <- FeedEvent{Kind: eventGameEnded}

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Level != nil && len(snap.Level.Words) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, c.Snapshot().Level.Words, "test*")
}

func TestLevelStartClearsChatLog(t *testing.T) {
	lex := newLexicon([]string{"tent"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "n", "t")
	c.ChatEntries() <- ChatEntry{Contributor: "alice", Text: "tent", At: time.Now().UnixMilli()}

	// A new level wipes the chat log, so the stale message can no longer
	// explain a hidden guess.
	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "n", "t")
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", hiddenSymbol, "t"},
		Position:    0,
	}

	time.Sleep(100 * time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Level)
	assert.Empty(t, snap.Level.Slots[0].Word)
}

func TestGameConnectedKeepsState(t *testing.T) {
	lex := newLexicon([]string{"test"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- levelStartEvent([]int{4}, "t", "e", "s", "t")
	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", "s", "t"},
		Position:    0,
	}

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Level != nil && len(snap.Level.Words) == 1
	}, time.Second, 5*time.Millisecond)

	// Reconnecting into the same level must not clear accumulated state.
	c.FeedEvents() <- FeedEvent{
		Kind:  eventGameConnected,
		Level: 1,
		Slots: []SlotSpec{{Index: 0, Length: 4}},
	}

	time.Sleep(50 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, []string{"test"}, snap.Level.Words)
	assert.Equal(t, "test", snap.Level.Slots[0].Word)
}

func TestCorrectGuessWithoutLevelIsDropped(t *testing.T) {
	lex := newLexicon([]string{"test"})
	c := newTestCorrelator(t, lex, nil)
	startCorrelator(t, c)

	c.FeedEvents() <- FeedEvent{
		Kind:        eventCorrectGuess,
		Contributor: "alice",
		Letters:     []string{"t", "e", "s", "t"},
		Position:    0,
	}

	time.Sleep(50 * time.Millisecond)

	assert.Nil(t, c.Snapshot().Level)
}
