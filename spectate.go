/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Spectate wires one full spectating session: lexicon, record store,
// correlator, both stream clients, and the status page. It blocks until
// the context ends or an interrupt arrives.
func Spectate(ctx context.Context, cfg *Config) error {
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", releaseVersion).Msg("boardwatch starting")

	lex, err := loadLexicon(cfg.lexiconPath)
	if err != nil {
		return err
	}

	store, err := openRecordStore(cfg.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records := loadChannelRecords(store, cfg.channel)

	var saver BoardSaver = logBoardSaver{}
	if cfg.saveURL != "" {
		saver = newHTTPBoardSaver(cfg.saveURL)
	}

	correlator := newCorrelator(cfg.channel, cfg.delay, lex, records, saver)

	feedClient, err := newFeedClient(cfg.feedServer, cfg.room, correlator.FeedEvents())
	if err != nil {
		return err
	}
	defer feedClient.Disconnect()

	chatClient := newChatClient(cfg.chatServer, cfg.channel, correlator.ChatEntries())
	defer chatClient.Disconnect()

	go correlator.Run(ctx)
	go feedClient.Run(ctx)
	go chatClient.Run(ctx)

	return serveStatus(ctx, cfg, correlator)
}
