// Package cmd implements the smartpay CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/app"
	"github.com/theirongolddev/smartpay/internal/cli"
	"github.com/theirongolddev/smartpay/internal/config"
	"github.com/theirongolddev/smartpay/internal/outbox"
	"github.com/theirongolddev/smartpay/internal/remote"
	"github.com/theirongolddev/smartpay/internal/store"
)

// drainTimeout bounds how long a command waits for queued remote calls on exit.
const drainTimeout = 15 * time.Second

var (
	flagDataDir string
	flagAPIURL  string
	flagQuiet   bool
	flagOffline bool

	cfg  config.Config
	log  = logrus.New()
	fmtr cli.Formatter
)

var errNotLoggedIn = errors.New("not logged in; run `smartpay login` or `smartpay register`")

var rootCmd = &cobra.Command{
	Use:               "smartpay",
	Short:             "Credit card payment planner",
	Long:              "Track your credit cards, balances and payment dates, and plan payments against your income.",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	RunE:              runDashboard,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Directory holding the local database (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Remote service base URL (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "Do not mirror changes to the remote service")
}

// loadSettings reads config, applies flag overrides and configures logging.
func loadSettings(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	if flagAPIURL != "" {
		cfg.Remote.BaseURL = flagAPIURL
	}

	setupLogger(cfg.Log)
	fmtr = cli.NewFormatter(cfg.Appearance.Locale)
	return nil
}

func setupLogger(lc config.LogConfig) {
	log.SetOutput(os.Stderr)
	if strings.EqualFold(lc.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if flagQuiet && level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)
}

func dbPath() string {
	return filepath.Join(cfg.ResolvedDataDir(), "smartpay.db")
}

// session is one CLI invocation's view of the application: the state container plus
// the resources it was built from.
type session struct {
	*app.App
	db     *store.Store
	outbox *outbox.Outbox
}

// openSession builds the App from the local store. A store that cannot be opened
// leaves the session memory-only.
func openSession() *session {
	s := &session{}
	opts := app.Options{Logger: log}

	db, err := store.Open(dbPath())
	if err != nil {
		log.WithError(err).Warn("local store unavailable, changes will not be saved")
	} else {
		s.db = db
		opts.Store = db
	}

	if !flagOffline {
		opts.Sync = remote.NewClient(cfg.Remote.BaseURL,
			remote.WithTimeout(cfg.Timeout()),
			remote.WithLogger(log),
		)
		s.outbox = outbox.New(outbox.Options{
			Workers:   cfg.Remote.Workers,
			QueueSize: cfg.Remote.QueueSize,
			Timeout:   cfg.Timeout(),
			Logger:    log,
		})
		opts.Outbox = s.outbox
	}

	s.App = app.New(opts)
	s.Restore()
	return s
}

// Close drains queued remote calls and closes the store.
func (s *session) Close() {
	if s.outbox != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := s.outbox.Close(ctx); err != nil {
			log.WithError(err).Warn("remote sync did not finish")
		}
		cancel()

		if st := s.outbox.Stats(); st.Failed > 0 || st.Dropped > 0 {
			log.WithFields(logrus.Fields{
				"failed":     st.Failed,
				"dropped":    st.Dropped,
				"last_error": st.LastError,
			}).Warn("some changes were not synced to the remote service")
		}
	}
	if s.Degraded() {
		fmt.Fprintln(os.Stderr, cli.RenderWarning("local storage failed; some changes exist only for this run"))
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *session) requireAuth() error {
	if !s.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}
