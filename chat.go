/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// chatGuessPattern accepts only messages that could plausibly be a guess:
// a single alphabetic word within the game's length range. Everything else
// never reaches the correlator.
var chatGuessPattern = regexp.MustCompile(`^[a-zA-Z]{4,20}$`)

// privmsgPattern pulls the sender nick and message text out of an IRC
// PRIVMSG line.
var privmsgPattern = regexp.MustCompile(`^:([^!\s]+)![^\s]*\s+PRIVMSG\s+#[^\s]+\s+:(.*)$`)

// filterChatMessage is the stateless pre-filter between the chat stream and
// the correlator: it rejects non-guess messages and lowercases both
// contributor and text.
func filterChatMessage(contributor, text string) (ChatEntry, bool) {
	text = strings.TrimSpace(text)
	if !chatGuessPattern.MatchString(text) {
		return ChatEntry{}, false
	}

	return ChatEntry{
		Contributor: strings.ToLower(contributor),
		Text:        strings.ToLower(text),
		At:          time.Now().UnixMilli(),
	}, true
}

// parsePrivmsg extracts sender and text from a raw IRC line, if it is one.
func parsePrivmsg(line string) (contributor, text string, ok bool) {
	m := privmsgPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ChatClient reads the channel's chat over an IRC-over-websocket gateway,
// pushing filtered entries at the correlator. Spectating is anonymous: the
// client joins with a throwaway guest nick and never sends messages.
type ChatClient struct {
	server  string
	channel string
	entries chan<- ChatEntry

	limiter *rate.Limiter
	done    chan struct{}
	once    sync.Once

	mu   sync.Mutex
	conn *websocket.Conn

	logger zerolog.Logger
}

func newChatClient(server, channel string, entries chan<- ChatEntry) *ChatClient {
	channel = strings.ToLower(strings.TrimPrefix(channel, "#"))

	return &ChatClient{
		server:  server,
		channel: channel,
		entries: entries,
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
		done:    make(chan struct{}),
		logger:  log.With().Str("chat", channel).Logger(),
	}
}

// Run connects and pumps chat until Disconnect is called or the context
// ends, redialing on connection loss at a limited rate.
func (c *ChatClient) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		// Disconnect may have landed while pacing the redial.
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.connectAndRead(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("chat connection lost, redialing")
		}
	}
}

func (c *ChatClient) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.server, nil)
	if err != nil {
		return err
	}

	// Store under the same lock Disconnect closes under, so a disconnect
	// racing the dial can never leave this connection orphaned.
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		conn.Close()
		return nil
	default:
	}
	c.conn = conn
	c.mu.Unlock()

	defer conn.Close()

	nick := fmt.Sprintf("justinfan%d", rand.Intn(90000)+10000)
	for _, line := range []string{
		"NICK " + nick,
		"JOIN #" + c.channel,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return err
		}
	}

	c.logger.Info().Str("nick", nick).Msg("joined chat")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
				return err
			}
		}

		for _, line := range strings.Split(string(payload), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, "PING") {
				pong := "PONG" + strings.TrimPrefix(line, "PING")
				if err := conn.WriteMessage(websocket.TextMessage, []byte(pong)); err != nil {
					return err
				}
				continue
			}

			contributor, text, ok := parsePrivmsg(line)
			if !ok {
				continue
			}

			entry, ok := filterChatMessage(contributor, text)
			if !ok {
				continue
			}

			select {
			case c.entries <- entry:
			case <-ctx.Done():
				return nil
			case <-c.done:
				return nil
			}
		}
	}
}

// Disconnect closes the chat connection. Safe to call repeatedly.
func (c *ChatClient) Disconnect() {
	c.once.Do(func() {
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
