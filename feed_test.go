package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRoomCodeFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "plain room url", url: "https://game.example/r/ABC123", want: "ABC123"},
		{name: "trailing slash", url: "https://game.example/r/abc123/", want: "abc123"},
		{name: "missing code", url: "https://game.example/r/", wantErr: true},
		{name: "wrong path", url: "https://game.example/lobby", wantErr: true},
		{name: "code with invalid characters", url: "https://game.example/r/abc-123", wantErr: true},
		{name: "not a url", url: "://nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := roomCodeFromURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeFrame(t *testing.T) {
	tests := []struct {
		name   string
		frame  feedFrame
		want   FeedEvent
		wantOK bool
	}{
		{
			name: "level start",
			frame: feedFrame{
				Type:    "level.start",
				Level:   3,
				Letters: "TEST",
				Slots:   []int{4, 5},
			},
			want: FeedEvent{
				Kind:    eventLevelStart,
				Level:   3,
				Letters: []string{"t", "e", "s", "t"},
				Slots:   []SlotSpec{{Index: 0, Length: 4}, {Index: 1, Length: 5}},
			},
			wantOK: true,
		},
		{
			name: "correct guess with hidden letters",
			frame: feedFrame{
				Type:     "guess.correct",
				User:     "Alice",
				Letters:  "te?t",
				Position: 2,
				Defining: true,
			},
			want: FeedEvent{
				Kind:        eventCorrectGuess,
				Contributor: "alice",
				Letters:     []string{"t", "e", "?", "t"},
				Position:    2,
				Defining:    true,
			},
			wantOK: true,
		},
		{
			name: "letters revealed",
			frame: feedFrame{
				Type:   "letters.revealed",
				Hidden: "XY",
				Fake:   "z",
			},
			want: FeedEvent{
				Kind:   eventLettersRevealed,
				Hidden: []string{"x", "y"},
				Fake:   []string{"z"},
			},
			wantOK: true,
		},
		{
			name:   "level results",
			frame:  feedFrame{Type: "level.results", Stars: 5},
			want:   FeedEvent{Kind: eventLevelResults, Stars: 5},
			wantOK: true,
		},
		{
			name:   "unknown frame type dropped",
			frame:  feedFrame{Type: "heartbeat"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeFrame(tt.frame)
			require.Equal(t, tt.wantOK, ok)

			if !ok {
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFeedClientRejectsBadURL(t *testing.T) {
	events := make(chan FeedEvent, 1)

	_, err := newFeedClient("wss://feed.example/ws", "https://game.example/lobby", events)
	assert.Error(t, err, "an invalid room url must yield no client")
}

// dropServer upgrades each connection, counts it, and closes it straight
// away, forcing the client onto its redial path.
func dropServer(t *testing.T) (*httptest.Server, func() int) {
	t.Helper()

	var (
		mu       sync.Mutex
		dials    int
		upgrader websocket.Upgrader
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		dials++
		mu.Unlock()
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	return srv, func() int {
		mu.Lock()
		defer mu.Unlock()
		return dials
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFeedClientStaysDownAfterDisconnect(t *testing.T) {
	srv, dials := dropServer(t)

	events := make(chan FeedEvent, 1)
	f, err := newFeedClient(wsURL(srv), "https://game.example/r/abc123", events)
	require.NoError(t, err)
	f.limiter = rate.NewLimiter(rate.Every(250*time.Millisecond), 1)

	finished := make(chan struct{})
	go func() {
		f.Run(context.Background())
		close(finished)
	}()

	// Let the first connection come and go, then disconnect while the
	// client is pacing its redial.
	require.Eventually(t, func() bool {
		return dials() == 1
	}, time.Second, 5*time.Millisecond)
	f.Disconnect()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("run loop still alive after disconnect")
	}

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, dials(), "a disconnected client must not dial again")
}

func TestFeedClientDisconnectIdempotent(t *testing.T) {
	events := make(chan FeedEvent, 1)

	f, err := newFeedClient("wss://feed.example/ws", "https://game.example/r/abc123", events)
	require.NoError(t, err)

	f.Disconnect()
	f.Disconnect()

	select {
	case <-f.done:
	default:
		t.Fatal("done channel should be closed after disconnect")
	}
}
