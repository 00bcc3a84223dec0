/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var roomCodePattern = regexp.MustCompile(`^/r/([A-Za-z0-9]+)/?$`)

// roomCodeFromURL extracts the room code from a game URL of the form
// .../r/<code>. A malformed URL yields an error and no connection is ever
// attempted.
func roomCodeFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid room url %q: %w", raw, err)
	}

	m := roomCodePattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("no room code in url %q", raw)
	}

	return m[1], nil
}

// feedFrame is the raw wire shape of one game-feed message.
type feedFrame struct {
	Type     string `json:"type"`
	Level    int    `json:"level"`
	User     string `json:"user"`
	Letters  string `json:"letters"`
	Defining bool   `json:"defining"`
	Stars    int    `json:"stars"`
	Hidden   string `json:"hidden"`
	Fake     string `json:"fake"`
	Slots    []int  `json:"slots"`
	Position int    `json:"position"`
	Record   int    `json:"record"`
}

// joinFrame is sent once after dialing to start spectating a room.
type joinFrame struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

var feedEventKinds = map[string]string{
	"level.start":      eventLevelStart,
	"game.connected":   eventGameConnected,
	"guess.correct":    eventCorrectGuess,
	"letters.revealed": eventLettersRevealed,
	"level.results":    eventLevelResults,
	"level.end":        eventLevelEnded,
	"game.end":         eventGameEnded,
}

// normalizeFrame translates a wire frame into a domain event. Stateless:
// everything the correlator needs is carried on the event itself.
func normalizeFrame(f feedFrame) (FeedEvent, bool) {
	kind, ok := feedEventKinds[f.Type]
	if !ok {
		return FeedEvent{}, false
	}

	ev := FeedEvent{
		Kind:        kind,
		Level:       f.Level,
		Contributor: strings.ToLower(f.User),
		Defining:    f.Defining,
		Stars:       f.Stars,
		Position:    f.Position,
		Record:      f.Record,
	}

	if f.Letters != "" {
		ev.Letters = strings.Split(strings.ToLower(f.Letters), "")
	}
	if f.Hidden != "" {
		ev.Hidden = strings.Split(strings.ToLower(f.Hidden), "")
	}
	if f.Fake != "" {
		ev.Fake = strings.Split(strings.ToLower(f.Fake), "")
	}
	for i, length := range f.Slots {
		ev.Slots = append(ev.Slots, SlotSpec{Index: i, Length: length})
	}

	return ev, true
}

// FeedClient maintains the websocket connection to the game feed for one
// room, translating wire frames into normalized events on its output
// channel. It shares no mutable state with the correlator.
type FeedClient struct {
	server string
	room   string
	events chan<- FeedEvent

	limiter *rate.Limiter
	done    chan struct{}
	once    sync.Once

	mu   sync.Mutex
	conn *websocket.Conn

	logger zerolog.Logger
}

// newFeedClient prepares a feed client for the room named by roomURL. No
// connection is made yet; Run dials.
func newFeedClient(server, roomURL string, events chan<- FeedEvent) (*FeedClient, error) {
	room, err := roomCodeFromURL(roomURL)
	if err != nil {
		return nil, err
	}

	return &FeedClient{
		server:  server,
		room:    room,
		events:  events,
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
		done:    make(chan struct{}),
		logger:  log.With().Str("room", room).Logger(),
	}, nil
}

// Run dials the feed and pumps events until Disconnect is called or the
// context ends, redialing on connection loss at a limited rate.
func (f *FeedClient) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		default:
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return
		}

		// Disconnect may have landed while pacing the redial.
		select {
		case <-f.done:
			return
		default:
		}

		if err := f.connectAndRead(ctx); err != nil {
			f.logger.Warn().Err(err).Msg("feed connection lost, redialing")
		}
	}
}

func (f *FeedClient) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.server, nil)
	if err != nil {
		return err
	}

	// Store under the same lock Disconnect closes under, so a disconnect
	// racing the dial can never leave this connection orphaned.
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		conn.Close()
		return nil
	default:
	}
	f.conn = conn
	f.mu.Unlock()

	defer conn.Close()

	if err := conn.WriteJSON(joinFrame{Type: "join", Room: f.room}); err != nil {
		return err
	}

	f.logger.Info().Str("server", f.server).Msg("spectating room")

	for {
		var frame feedFrame
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case <-f.done:
				return nil
			default:
				return err
			}
		}

		ev, ok := normalizeFrame(frame)
		if !ok {
			f.logger.Debug().Str("type", frame.Type).Msg("ignoring unknown feed frame")
			continue
		}

		select {
		case f.events <- ev:
		case <-ctx.Done():
			return nil
		case <-f.done:
			return nil
		}
	}
}

// Disconnect closes the feed connection. Safe to call repeatedly; repeat
// calls are no-ops. The correlator's level state is untouched so a
// reconnect can resume where it left off.
func (f *FeedClient) Disconnect() {
	f.once.Do(func() {
		close(f.done)

		f.mu.Lock()
		defer f.mu.Unlock()

		if f.conn != nil {
			if err := f.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				f.logger.Debug().Err(err).Msg("feed close")
			}
		}
	})
}
