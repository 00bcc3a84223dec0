/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var boardIDPattern = regexp.MustCompile(`^[a-z]{4,20}$`)

// BoardSaver persists a finalized board under an id derived from its
// defining word.
type BoardSaver interface {
	Save(boardID string, slots []Slot) error
}

// normalizeBoardID strips whitespace and case-folds a board id. The empty
// string is returned when the result is not 4-20 letters.
func normalizeBoardID(boardID string) string {
	id := strings.ToLower(strings.Join(strings.Fields(boardID), ""))
	if !boardIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// validateBoard rejects boards the correlator should never have produced:
// a malformed id, or any slot still holding placeholder symbols or an empty
// word. The caller validates first; this re-checks defensively.
func validateBoard(boardID string, slots []Slot) error {
	if normalizeBoardID(boardID) == "" {
		return fmt.Errorf("invalid board id %q", boardID)
	}
	if len(slots) == 0 {
		return fmt.Errorf("board %q has no slots", boardID)
	}
	for i := range slots {
		if !slots[i].complete() {
			return fmt.Errorf("board %q slot %d is incomplete", boardID, slots[i].Index)
		}
	}
	return nil
}

// httpBoardSaver posts finalized boards to a remote endpoint as JSON.
type httpBoardSaver struct {
	endpoint string
	client   *http.Client
}

func newHTTPBoardSaver(endpoint string) BoardSaver {
	return &httpBoardSaver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type savePayload struct {
	BoardID string `json:"board_id"`
	Slots   []Slot `json:"slots"`
}

func (s *httpBoardSaver) Save(boardID string, slots []Slot) error {
	if err := validateBoard(boardID, slots); err != nil {
		return err
	}

	body, err := json.Marshal(savePayload{
		BoardID: normalizeBoardID(boardID),
		Slots:   slots,
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("save rejected with status %d", resp.StatusCode)
	}

	log.Info().Str("board", normalizeBoardID(boardID)).Int("slots", len(slots)).Msg("board saved")

	return nil
}

// logBoardSaver is the fallback when no save endpoint is configured. It
// validates and logs, so board finalization stays observable.
type logBoardSaver struct{}

func (logBoardSaver) Save(boardID string, slots []Slot) error {
	if err := validateBoard(boardID, slots); err != nil {
		return err
	}

	log.Info().Str("board", normalizeBoardID(boardID)).Int("slots", len(slots)).Msg("board finalized (no save endpoint)")

	return nil
}
