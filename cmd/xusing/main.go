package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xusing/xusing/internal/config"
	"github.com/xusing/xusing/internal/daemon"
	"github.com/xusing/xusing/internal/database"
	"github.com/xusing/xusing/internal/logging"
	"github.com/xusing/xusing/internal/monitor"
	"github.com/xusing/xusing/internal/recorder"
	"github.com/xusing/xusing/internal/sysload"
	"github.com/xusing/xusing/pkg/detector"
	"github.com/xusing/xusing/pkg/utils"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const (
	daemonChildEnv = "XUSING_DAEMON_CHILD"
	// startupGrace is how long start watches the child for an early exit
	startupGrace = time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "xusing:", err)
		os.Exit(1)
	}
}

// flags holds command-line overrides; only flags the user set are applied
type flags struct {
	configPath string
	suspend    int
	interval   int
	file       string
	echo       bool
	dbPath     string
	pidFile    string
	logLevel   string
	logFile    string
	display    string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithFlags(&flags{})
}

func newRootCmdWithFlags(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xusing",
		Short: "Record program use from X11 window focus and idle time",
		Long: `xusing polls the X session every INTERVAL seconds and appends a line with
the load average, idle time and focused window to FILE. When the session has
been idle for SUSPEND minutes nothing is written until input resumes, at
which point a single line records the whole idle span.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, f)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to config file (default ~/.config/xusing/config.toml)")
	pf.IntVarP(&f.suspend, "suspend", "s", 15, "suspend logging when idle for SUSPEND minutes")
	pf.IntVarP(&f.interval, "interval", "n", 5, "log an entry every INTERVAL seconds")
	pf.StringVarP(&f.file, "file", "f", "~/.logs/xusing.log", "the file to write to")
	pf.BoolVar(&f.echo, "echo", true, "also write every entry to stderr")
	pf.StringVar(&f.dbPath, "db", "", "also store entries in this SQLite database")
	pf.StringVar(&f.pidFile, "pid-file", "", "PID file path")
	pf.StringVar(&f.logLevel, "log-level", "info", "diagnostic log level: debug, info, warn, error")
	pf.StringVar(&f.logFile, "log-file", "", "diagnostic log of the background daemon")
	pf.StringVar(&f.display, "display", "", "X display to connect to (default $DISPLAY)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the monitor in the foreground",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runForeground(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "start",
			Short: "Start the monitor in the background",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return startDaemon(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the background monitor",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return stopDaemon(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show monitor status and the current idle time and window",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showStatus(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "xusing version %s\n", version)
				fmt.Fprintf(out, "  commit: %s\n", commit)
				fmt.Fprintf(out, "  built:  %s\n", date)
			},
		},
	)

	return cmd
}

// loadConfig applies defaults, then the config file, then the environment,
// then any flags set on the command line.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.New(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("suspend") {
		cfg.Monitor.SuspendMinutes = f.suspend
	}
	if changed("interval") {
		cfg.Monitor.IntervalSeconds = f.interval
	}
	if changed("file") {
		cfg.Recorder.File = f.file
	}
	if changed("echo") {
		cfg.Recorder.Echo = f.echo
	}
	if changed("db") {
		cfg.Database.Path = f.dbPath
	}
	if changed("pid-file") {
		cfg.Daemon.PIDFile = f.pidFile
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("display") {
		cfg.Monitor.Display = f.display
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runForeground(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runMonitor(ctx, cfg, logger)
}

func runMonitor(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	session, err := detector.New(cfg.Monitor.Display)
	if err != nil {
		return err
	}
	defer session.Close()

	logger.Info("display session opened", "display_server", session.DisplayServer())

	dm := daemon.New(cfg.Daemon.PIDFile)
	if err := dm.Acquire(); err != nil {
		return err
	}
	defer dm.RemovePID()

	var sinks []recorder.Sink
	var errorStore *database.ErrorStore
	var fileErr error

	if cfg.Recorder.File != "" {
		path, err := cfg.RecorderPath()
		if err != nil {
			return err
		}
		fileSink, err := recorder.NewFileSink(path)
		if err != nil {
			fileErr = err
			logger.Error("file sink unavailable", "error", err)
		} else {
			sinks = append(sinks, fileSink)
		}
	}

	if cfg.Recorder.Echo {
		sinks = append(sinks, recorder.NewStreamSink(os.Stderr))
	}

	if cfg.Database.Path != "" {
		db, err := database.Connect(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Initialize(); err != nil {
			return err
		}

		repo := database.NewRepository(db)
		errorStore = database.NewErrorStore(repo, logging.NewModuleLogger(logger, "database"))
		sinks = append(sinks, recorder.NewDatabaseSink(repo))
	}

	if len(sinks) == 0 {
		return fmt.Errorf("no writable output: %w", fileErr)
	}

	rec := recorder.New(logging.NewModuleLogger(logger, "recorder"), sinks...)
	defer rec.Close()

	opts := monitor.Options{
		PollInterval:     cfg.PollInterval(),
		SuspendThreshold: cfg.SuspendThreshold(),
		Load:             sysload.New(),
		Logger:           logging.NewModuleLogger(logger, "monitor"),
	}
	if errorStore != nil {
		rec.SetErrorStore(errorStore)
		opts.Errors = errorStore
	}

	svc := monitor.NewService(session, session, rec, opts)

	logger.Debug(cfg.String())

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("monitor stopped")
	return nil
}

func startDaemon(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return err
	}
	if running {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	if os.Getenv(daemonChildEnv) == "1" {
		return runForeground(cmd, f)
	}

	// Detach: the child has no console, so the console mirror is dropped
	args := append(append([]string{}, os.Args...), "--echo=false")

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	// The child's stdout and stderr, and so its slog output, go to the log file
	logFile, err := openDaemonLog(cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()

	process, err := os.StartProcess(self, args, &os.ProcAttr{
		Env:   append(os.Environ(), daemonChildEnv+"=1"),
		Files: []*os.File{nil, logFile, logFile},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	exited := func() error {
		state, err := process.Wait()
		if err != nil {
			return err
		}
		return errors.New(state.String())
	}
	if err := awaitStartup(exited, startupGrace); err != nil {
		return fmt.Errorf("daemon failed to start (%v), see %s", err, logFile.Name())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (PID: %d)\n", process.Pid)
	fmt.Fprintf(cmd.OutOrStdout(), "Diagnostics: %s\n", logFile.Name())
	return nil
}

// openDaemonLog opens the daemon's diagnostic log for appending
func openDaemonLog(path string) (*os.File, error) {
	path, err := config.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open daemon log: %w", err)
	}
	return f, nil
}

// awaitStartup returns an error if wait returns within grace, meaning the
// child exited during startup.
func awaitStartup(wait func() error, grace time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- wait() }()

	select {
	case err := <-done:
		if err == nil {
			err = errors.New("exited")
		}
		return err
	case <-time.After(grace):
		return nil
	}
}

func stopDaemon(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return err
	}
	if !running {
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(2 * cfg.PollInterval()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
	return nil
}

func showStatus(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return err
	}

	if running {
		fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
	} else {
		fmt.Fprintln(out, "Status: Not running")
	}
	fmt.Fprintf(out, "Interval: %v\n", cfg.PollInterval())
	fmt.Fprintf(out, "Suspend after: %v\n", cfg.SuspendThreshold())
	fmt.Fprintf(out, "File: %s\n", cfg.Recorder.File)

	session, err := detector.New(cfg.Monitor.Display)
	if err != nil {
		fmt.Fprintf(out, "\nCould not open display: %v\n", err)
		return nil
	}
	defer session.Close()

	idle, err := session.IdleDuration()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nIdle: %s (%d ms)\n", utils.FormatRoundedUnit(idle), idle.Milliseconds())

	if idle >= cfg.SuspendThreshold() {
		fmt.Fprintln(out, "State: suspended")
	} else {
		fmt.Fprintln(out, "State: active")
	}

	if info := session.FocusedWindow(); info != nil {
		fmt.Fprintf(out, "Window classes: %v\n", info.Classes)
		fmt.Fprintf(out, "Window name: %s\n", info.Name)
	} else {
		fmt.Fprintln(out, "Window: none")
	}

	return nil
}
