package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind        string
	channel     string
	chatServer  string
	dbPath      string
	delay       time.Duration
	feedServer  string
	lexiconPath string
	port        int
	prefix      string
	profile     bool
	room        string
	saveURL     string
	tlsCert     string
	tlsKey      string
	verbose     bool
	version     bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.room == "" {
		return errors.New("--room is required")
	}
	if c.channel == "" {
		return errors.New("--channel is required")
	}
	if c.lexiconPath == "" {
		return errors.New("--lexicon is required")
	}
	if c.delay < 0 {
		return fmt.Errorf("invalid correlation delay: %s", c.delay)
	}
	if _, err := roomCodeFromURL(c.room); err != nil {
		return err
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BOARDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "boardwatch",
		Short:         "Spectates a live word-game room, correlating the game feed with chat to reconstruct the board.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Spectate(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind the status page to (env: BOARDWATCH_BIND)")
	fs.StringVarP(&cfg.channel, "channel", "c", "", "chat channel to correlate against (env: BOARDWATCH_CHANNEL)")
	fs.StringVar(&cfg.chatServer, "chat-server", "wss://irc-ws.chat.twitch.tv:443", "chat gateway websocket url (env: BOARDWATCH_CHAT_SERVER)")
	fs.StringVar(&cfg.dbPath, "db", "boardwatch.db", "path to the channel record database (env: BOARDWATCH_DB)")
	fs.DurationVar(&cfg.delay, "delay", 500*time.Millisecond, "delay before correlating hidden guesses with chat (env: BOARDWATCH_DELAY)")
	fs.StringVar(&cfg.feedServer, "feed-server", "wss://feed.wordsgame.live/ws", "game feed websocket url (env: BOARDWATCH_FEED_SERVER)")
	fs.StringVarP(&cfg.lexiconPath, "lexicon", "l", "", "path to the word list json file (env: BOARDWATCH_LEXICON)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port for the status page (env: BOARDWATCH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: BOARDWATCH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: BOARDWATCH_PROFILE)")
	fs.StringVarP(&cfg.room, "room", "r", "", "game room url, .../r/<code> (env: BOARDWATCH_ROOM)")
	fs.StringVar(&cfg.saveURL, "save-url", "", "endpoint for persisting cleared boards (env: BOARDWATCH_SAVE_URL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: BOARDWATCH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: BOARDWATCH_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: BOARDWATCH_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: BOARDWATCH_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("boardwatch v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
