package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/tinytelemetry/etlq/internal/duckdb"
	"github.com/tinytelemetry/etlq/internal/ingest"
	"github.com/tinytelemetry/etlq/internal/query"
	"github.com/tinytelemetry/etlq/internal/shell"
	"github.com/tinytelemetry/etlq/internal/store"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit status.
func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("etlq", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: etlq [flags] LOG_FILE\n\n"+
			"Inspection and query of log events during the validation of an ETL process.\n\nflags:\n%s", fs.FlagUsages())
	}

	configPath := fs.String("config", "", "config file (default is $HOME/.config/etlq/config.yml)")
	serve := fs.Bool("serve", false, "serve the HTTP API instead of starting the shell")
	execCmd := fs.String("exec", "", "run one shell command and exit")
	showVersion := fs.Bool("version", false, "print version information")
	fs.String("data-dir", "", "directory relative log and output paths are resolved against")
	fs.Bool("skip-bad-timestamps", false, "skip lines with malformed timestamps instead of failing the load")
	fs.String("api-addr", "", "listen address for --serve")
	fs.String("otlp-endpoint", "", "OTLP/gRPC logs endpoint for the push command")
	fs.String("log-level", "", "log level (trace, debug, info, warn, error, disabled)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "etlq - ETL validation log query shell\n")
		fmt.Fprintf(stdout, "  Version:    %s\n", version)
		fmt.Fprintf(stdout, "  Commit:     %s\n", commit)
		fmt.Fprintf(stdout, "  Built:      %s\n", buildTime)
		fmt.Fprintf(stdout, "  Go version: %s\n", goVersion)
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	logger, closeLog := configureRuntimeLogger(cfg.LogLevel, *serve)
	defer closeLog()

	if err := runApp(context.Background(), cfg, fs.Arg(0), appMode{serve: *serve, exec: *execCmd}, stdin, stdout, stderr, logger); err != nil {
		// The shell has already printed why the command failed.
		if !errors.Is(err, shell.ErrCommandFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

type appMode struct {
	serve bool
	exec  string
}

// runApp loads the log file and hands the records to the chosen front end.
func runApp(ctx context.Context, cfg appConfig, logFile string, mode appMode, stdin *os.File, stdout, stderr io.Writer, logger zerolog.Logger) error {
	logPath := query.ResolvePath(cfg.DataDir, logFile)
	records, stats, err := ingest.LoadFile(logPath, ingest.Options{
		MaxLineSize:       cfg.MaxLineSize,
		SkipBadTimestamps: cfg.SkipBadTimestamps,
		Logger:            &logger,
	})
	if err != nil {
		return err
	}
	if stats.BadTimestamps > 0 {
		fmt.Fprintf(stderr, "Warning: skipped %d lines with malformed timestamps\n", stats.BadTimestamps)
	}

	var mirror *duckdb.Store
	if cfg.SQLMirror {
		mirror, err = buildMirror(ctx, cfg, records)
		if err != nil {
			logger.Warn().Err(err).Msg("sql mirror unavailable")
			fmt.Fprintf(stderr, "Warning: sql mirror unavailable: %v\n", err)
		} else {
			defer mirror.Close()
		}
	}

	if mode.serve {
		return runServe(ctx, cfg, records, mirror, stdout, logger)
	}

	sh := shell.New(shell.Config{
		Executor:     query.NewExecutor(records, cfg.DataDir, logger),
		Mirror:       mirror,
		OTLPEndpoint: cfg.OTLPEndpoint,
		ServiceName:  cfg.ServiceName,
		Settings:     cfg,
		Prompt:       cfg.Prompt,
		Logger:       logger,
	})

	if mode.exec != "" {
		_, err := sh.Exec(ctx, mode.exec, stdout, stderr)
		return err
	}

	shell.PrintIntro(stdout, version, records.Len(), logPath)
	return sh.Run(ctx, stdin, stdout)
}

func buildMirror(ctx context.Context, cfg appConfig, records *store.Store) (*duckdb.Store, error) {
	mirror, err := duckdb.NewStore(cfg.QueryTimeout)
	if err != nil {
		return nil, err
	}
	if _, err := mirror.InsertRecords(ctx, records.All()); err != nil {
		mirror.Close()
		return nil, err
	}
	return mirror, nil
}
