/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const recordDateLayout = "2006-01-02"

// RecordStore is a small namespaced key-value store for per-channel
// records.
type RecordStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Close() error
}

type sqliteStore struct {
	db *sql.DB
}

// openRecordStore opens (creating if needed) the sqlite-backed record
// store at the given path.
func openRecordStore(path string) (RecordStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Get returns the stored value for key, or "" when the key is absent.
func (s *sqliteStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key, overwriting any previous value.
func (s *sqliteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO records (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// ChannelRecords tracks a channel's all-time best level, today's best
// level, and today's board clears. Loaded once per connection; writes are
// fire-and-forget.
type ChannelRecords struct {
	store   RecordStore
	channel string
	date    string

	AllTimeBest int
	DailyBest   int
	DailyClears int
}

func bestKey(channel string) string {
	return "best_" + channel
}

func dailyBestKey(channel, date string) string {
	return fmt.Sprintf("best_%s_%s", channel, date)
}

func clearsKey(channel, date string) string {
	return fmt.Sprintf("clears_%s_%s", channel, date)
}

// loadChannelRecords reads the channel's stored records for today.
func loadChannelRecords(store RecordStore, channel string) *ChannelRecords {
	r := &ChannelRecords{
		store:   store,
		channel: channel,
		date:    time.Now().UTC().Format(recordDateLayout),
	}

	r.AllTimeBest = r.getInt(bestKey(channel))
	r.DailyBest = r.getInt(dailyBestKey(channel, r.date))
	r.DailyClears = r.getInt(clearsKey(channel, r.date))

	return r
}

func (r *ChannelRecords) getInt(key string) int {
	value, err := r.store.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("record read failed")
		return 0
	}
	n, _ := strconv.Atoi(value)
	return n
}

func (r *ChannelRecords) setInt(key string, n int) {
	if err := r.store.Set(key, strconv.Itoa(n)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("record write failed")
	}
}

// UpdateBest raises the daily and all-time bests to level where it exceeds
// them.
func (r *ChannelRecords) UpdateBest(level int) {
	if level > r.DailyBest {
		r.DailyBest = level
		r.setInt(dailyBestKey(r.channel, r.date), level)
	}
	if level > r.AllTimeBest {
		r.AllTimeBest = level
		r.setInt(bestKey(r.channel), level)
	}
}

// RecordClear increments today's board-clear counter.
func (r *ChannelRecords) RecordClear() {
	r.DailyClears++
	r.setInt(clearsKey(r.channel, r.date), r.DailyClears)
}
