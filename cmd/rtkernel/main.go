// Package main wires the real-time kernel CLI entrypoint.
package main

//nolint:depguard // main wires project-internal modules and zap logging
import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rtkernel/internal/buildinfo"
	"rtkernel/pkg/alert"
	"rtkernel/pkg/hostload"
	metricshttp "rtkernel/pkg/http/metrics"
	statushttp "rtkernel/pkg/http/status"
	"rtkernel/pkg/kernel"
	"rtkernel/pkg/platform"
)

const (
	defaultConfigPath = "/etc/rtkernel/config.yaml"
	defaultLogLevel   = "info"

	exitCodeSuccess      = 0
	exitCodeRuntimeError = 1
	exitCodeParseError   = 2
)

func main() {
	code := run(context.Background(), os.Args[1:], defaultRunDeps(), os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

type runDeps struct {
	newLogger        func(level string) (*zap.Logger, error)
	loadConfig       func(path string) (runtimeConfig, error)
	currentBuildInfo func() buildinfo.Info
	newLock          func(path string) *flock.Flock
}

func defaultRunDeps() runDeps {
	return runDeps{
		newLogger:        newLogger,
		loadConfig:       loadConfig,
		currentBuildInfo: buildinfo.Current,
		newLock:          flock.New,
	}
}

func run(ctx context.Context, args []string, deps runDeps, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeParseError
	}

	logger, err := deps.newLogger(opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to configure logger: %v\n", err)

		return exitCodeRuntimeError
	}

	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := deps.loadConfig(opts.configPath)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))

		return exitCodeRuntimeError
	}

	info := deps.currentBuildInfo()
	logger.Info(
		"starting rtkernel",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("buildDate", info.BuildDate),
		zap.String("goVersion", info.GoVersion),
		zap.String("configPath", opts.configPath),
	)

	lock := deps.newLock(cfg.Lock.Path)

	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("failed to acquire instance lock", zap.Error(err), zap.String("path", cfg.Lock.Path))

		return exitCodeRuntimeError
	}

	if !locked {
		logger.Error("another instance already holds the lock", zap.String("path", cfg.Lock.Path))

		return exitCodeRuntimeError
	}

	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("failed to release instance lock", zap.Error(unlockErr))
		}
	}()

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exporter := metricshttp.NewExporter()
	notifier := alert.NewNotifier(nil, cfg.Alert.URL,
		alert.WithMaxAttempts(cfg.Alert.Attempts),
		alert.WithBackoff(cfg.Alert.Backoff),
		alert.WithSigningSecret([]byte(cfg.Alert.Secret)),
	)

	k := kernel.NewKernel(
		kernel.WithLogger(logger),
		kernel.WithMetricsRecorder(exporter),
		kernel.WithReportNotifier(notifier),
		kernel.WithMaxTasks(cfg.Kernel.MaxTasks),
		kernel.WithDefaultGuardSize(cfg.Kernel.GuardSize),
	)

	demo := defaultDemoConfig(cfg.Kernel.GuardSize, cfg.Kernel.TickInterval)
	if err := registerDemoTasks(k, demo, logger); err != nil {
		logger.Error("failed to register demo tasks", zap.Error(err))

		return exitCodeRuntimeError
	}

	probe := hostload.NewProbe(cfg.HostLoad.Interval)
	statusHandler := statushttp.NewHandler(k)

	mux := http.NewServeMux()
	// The host load probe refreshes on scrape rather than on its own
	// goroutine; the probe itself rate-limits how often the counters are
	// actually re-read.
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		busy, probeErr := probe.Busy()
		if probeErr != nil {
			logger.Warn("host load probe failed", zap.Error(probeErr))
		} else {
			exporter.ObserveHostCPU(busy)
		}

		exporter.ServeHTTP(w, r)
	}))
	mux.Handle("/healthz", statusHandler)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)

	go func() {
		serveErr := httpServer.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr

			return
		}

		serveErrCh <- nil
	}()

	if startErr := k.Start(runCtx); startErr != nil {
		logger.Error("failed to start kernel", zap.Error(startErr))

		return exitCodeRuntimeError
	}

	runErrCh := make(chan error, 1)

	go func() {
		// Locking the OS thread makes the SCHED_FIFO change below apply to
		// the thread this goroutine keeps for its entire lifetime, rather
		// than whichever thread the Go runtime happens to schedule it onto
		// next.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if cfg.Kernel.RTPriority > 0 {
			if pinErr := platform.PinRealtime(cfg.Kernel.RTPriority); pinErr != nil {
				logger.Warn("failed to pin dispatcher thread to SCHED_FIFO", zap.Error(pinErr))
			}
		}

		runErrCh <- k.Run(runCtx, cfg.Kernel.TickInterval)
	}()

	var runErr error

	select {
	case runErr = <-runErrCh:
	case <-runCtx.Done():
		runErr = <-runErrCh
	}

	if runCtx.Err() != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)) {
		logger.Info("shutting down")

		runErr = nil
	}

	shutdownErr := shutdown(httpServer, serveErrCh)

	combined := multierr.Combine(runErr, shutdownErr)
	if combined != nil {
		logger.Error("rtkernel exited with errors", zap.Error(combined))

		return exitCodeRuntimeError
	}

	return exitCodeSuccess
}

func shutdown(server *http.Server, serveErrCh <-chan error) error {
	closeErr := server.Close()

	var serveErr error

	select {
	case serveErr = <-serveErrCh:
	default:
	}

	return multierr.Combine(closeErr, serveErr)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}

	cfg := zap.NewProductionConfig()

	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return logger, nil
}

type options struct {
	configPath string
	logLevel   string
}

func parseArgs(args []string) (options, error) {
	var opts options

	flagSet := flag.NewFlagSet("rtkernel", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the rtkernel configuration file")
	flagSet.StringVar(&opts.logLevel, "log-level", defaultLogLevel, "Structured log level (debug, info, warn, error)")

	if err := flagSet.Parse(args); err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	opts.logLevel = strings.TrimSpace(opts.logLevel)
	if opts.logLevel == "" {
		opts.logLevel = defaultLogLevel
	}

	opts.configPath = strings.TrimSpace(opts.configPath)
	if opts.configPath == "" {
		opts.configPath = defaultConfigPath
	}

	return opts, nil
}

var errInvalidLogLevel = errors.New("invalid log level")
