package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/etlq/internal/duckdb"
	"github.com/tinytelemetry/etlq/internal/httpserver"
	"github.com/tinytelemetry/etlq/internal/store"
)

// runServe exposes the loaded records over HTTP until SIGINT or SIGTERM.
func runServe(ctx context.Context, cfg appConfig, records *store.Store, mirror *duckdb.Store, out io.Writer, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := httpserver.Options{
		Addr:        cfg.APIAddr,
		Records:     records,
		ServiceName: cfg.ServiceName,
		Logger:      logger,
	}
	if mirror != nil {
		opts.Mirror = mirror
	}
	srv := httpserver.NewServer(opts)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	printStartupBanner(out, cfg, srv.Addr(), records.Len(), mirror != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(out, "\nShutting down gracefully...")
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server: shutdown failed")
		return err
	}
	return nil
}

func printStartupBanner(out io.Writer, cfg appConfig, addr string, records int, mirror bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, bold.Render("    etlq")+" "+dim.Render("v"+version))
	lines = append(lines, dim.Render("    ─────────────────────────────────"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr+"/api")))
	lines = append(lines, fmt.Sprintf("    %s  Records        %s", check, cyan.Render(strconv.Itoa(records))))
	if mirror {
		lines = append(lines, fmt.Sprintf("    %s  SQL mirror     %s", check, cyan.Render("POST /api/sql")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  SQL mirror     %s", dot, dim.Render("disabled")))
	}
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config         %s", dot, dim.Render(cfg.ConfigPath)))
	}
	lines = append(lines, "")
	lines = append(lines, dim.Render("    Press Ctrl+C to stop."))
	lines = append(lines, "")
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}
