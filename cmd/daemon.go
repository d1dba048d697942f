package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/cli"
	"github.com/theirongolddev/smartpay/internal/daemon"
)

var (
	flagDaemonAddr         string
	flagDaemonSchedule     string
	flagDaemonHorizon      int
	flagDaemonDetach       bool
	flagDaemonLockFile     string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the payment reminder daemon with HTTP/SSE endpoints",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the reminder daemon and its upcoming payments",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background reminder daemon",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	pf.StringVar(&flagDaemonSchedule, "schedule", "", `Cron schedule of reminder checks, e.g. "@every 1m" (default from config)`)
	pf.IntVar(&flagDaemonHorizon, "horizon", 0, "Remind about payments due within this many days (default from config)")
	pf.StringVar(&flagDaemonLockFile, "lock-file", "", "Lock file of the running daemon (default in the data directory)")
	pf.StringVar(&flagDaemonLogFile, "log-file", "", "Log file for detached mode (default in the data directory)")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run the daemon in the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// resolveDaemonFlags fills unset daemon flags from the loaded config.
func resolveDaemonFlags() {
	if flagDaemonAddr == "" {
		flagDaemonAddr = cfg.Daemon.Addr
	}
	if flagDaemonSchedule == "" {
		flagDaemonSchedule = cfg.Daemon.Schedule
	}
	if flagDaemonHorizon <= 0 {
		flagDaemonHorizon = cfg.Daemon.HorizonDays
	}
	if flagDaemonLockFile == "" {
		flagDaemonLockFile = filepath.Join(cfg.ResolvedDataDir(), "smartpayd.json")
	}
	if flagDaemonLogFile == "" {
		flagDaemonLogFile = filepath.Join(cfg.ResolvedDataDir(), "smartpayd.log")
	}
}

func runDaemon(_ *cobra.Command, _ []string) error {
	resolveDaemonFlags()
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("--detach cannot be combined with --child")
	case flagDaemonDetach:
		return startDetached()
	default:
		return runForeground()
	}
}

// childArgs rebuilds the command line of the background process from the resolved
// settings, so the child does not depend on the parent's config or working directory.
func childArgs() []string {
	args := []string{
		"daemon", "--child",
		"--data-dir", cfg.ResolvedDataDir(),
		"--addr", flagDaemonAddr,
		"--schedule", flagDaemonSchedule,
		"--horizon", strconv.Itoa(flagDaemonHorizon),
		"--lock-file", flagDaemonLockFile,
		"--events-buffer", strconv.Itoa(flagDaemonEventsBuffer),
	}
	if flagQuiet {
		args = append(args, "--quiet")
	}
	return args
}

func startDetached() error {
	if lock, ok := runningDaemon(flagDaemonLockFile); ok {
		return fmt.Errorf("daemon already running (pid %d)", lock.PID)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, childArgs()...) //nolint:gosec // re-executes this binary
	child.Stdout, child.Stderr = logf, logf
	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Printf("  Reminder daemon started (pid %d)\n", child.Process.Pid)
	fmt.Printf("  Reminders: http://%s/v1/reminders\n", flagDaemonAddr)
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runForeground() error {
	lock := daemonLock{
		PID:         os.Getpid(),
		Addr:        flagDaemonAddr,
		Schedule:    flagDaemonSchedule,
		HorizonDays: flagDaemonHorizon,
		DBPath:      dbPath(),
		StartedAt:   time.Now(),
	}
	if err := claimLock(flagDaemonLockFile, lock); err != nil {
		return err
	}
	defer releaseLock(flagDaemonLockFile, lock.PID)

	svc := daemon.New(daemon.Config{
		DBPath:       lock.DBPath,
		Schedule:     lock.Schedule,
		HorizonDays:  lock.HorizonDays,
		Addr:         lock.Addr,
		EventsBuffer: flagDaemonEventsBuffer,
		Logger:       log,
	})

	log.WithFields(logrus.Fields{
		"addr":     lock.Addr,
		"schedule": lock.Schedule,
		"horizon":  lock.HorizonDays,
		"db":       lock.DBPath,
	}).Info("reminder daemon starting")
	if !flagDaemonChild {
		fmt.Printf("  Watching payments due within %d days (%s)\n", lock.HorizonDays, lock.Schedule)
		fmt.Printf("  Reminders: http://%s/v1/reminders\n", lock.Addr)
		fmt.Println("  Stop with Ctrl-C or `smartpay daemon stop`.")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	resolveDaemonFlags()
	lock, ok := runningDaemon(flagDaemonLockFile)
	if !ok {
		fmt.Println("  Reminder daemon: not running")
		return nil
	}
	fmt.Printf("  Reminder daemon: pid %d since %s\n", lock.PID, lock.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("  Address: http://%s\n", lock.Addr)

	st, err := fetchDaemonStatus(cmd.Context(), lock.Addr)
	if err != nil {
		fmt.Printf("  API: %v\n", err)
		return nil
	}

	if st.LastPollAt.IsZero() {
		fmt.Println("  Last check: pending")
	} else {
		fmt.Printf("  Last check: %s (%d so far)\n", st.LastPollAt.Local().Format(time.RFC3339), st.PollCount)
	}
	fmt.Printf("  Cards: %d, total debt %s\n", st.Summary.Cards, fmtr.Money(st.Summary.TotalDebt))
	if st.LastError != "" {
		fmt.Println(cli.RenderWarning("last check failed: " + st.LastError))
	}

	if len(st.Summary.Reminders) == 0 {
		fmt.Printf("  Nothing due within %d days\n", st.HorizonDays)
		return nil
	}
	rows := make([][]string, 0, len(st.Summary.Reminders))
	for _, r := range st.Summary.Reminders {
		rows = append(rows, []string{r.Bank + " " + r.CardName, r.DueDate,
			cli.FormatDaysUntil(r.DaysLeft), fmtr.Money(r.MinimumPayment)})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Upcoming payments",
		Headers: []string{"Card", "Due", "When", "Minimum"},
		Rows:    rows,
	}))
	return nil
}

func fetchDaemonStatus(ctx context.Context, addr string) (daemon.Status, error) {
	var st daemon.Status
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	resolveDaemonFlags()
	lock, ok := runningDaemon(flagDaemonLockFile)
	if !ok {
		return errors.New("reminder daemon is not running")
	}

	proc, err := os.FindProcess(lock.PID)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(8 * time.Second)
	for {
		select {
		case <-ticker.C:
			if !processAlive(lock.PID) {
				releaseLock(flagDaemonLockFile, lock.PID)
				fmt.Printf("  Stopped reminder daemon (pid %d)\n", lock.PID)
				return nil
			}
		case <-timeout:
			return fmt.Errorf("daemon (pid %d) did not exit in time", lock.PID)
		}
	}
}
