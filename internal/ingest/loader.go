package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/tinytelemetry/etlq/internal/logparse"
	"github.com/tinytelemetry/etlq/internal/model"
	"github.com/tinytelemetry/etlq/internal/store"
)

// Options holds tunable parameters for a load.
type Options struct {
	// MaxLineSize is the maximum size (in bytes) of a single line.
	MaxLineSize int
	// SkipBadTimestamps drops lines whose timestamp fails to parse instead of
	// aborting the load.
	SkipBadTimestamps bool
	Logger            *zerolog.Logger
}

// Stats summarizes one load.
type Stats struct {
	Lines         int // lines read
	Records       int // records kept
	Skipped       int // lines without event structure
	BadTimestamps int // lines dropped for their timestamp (SkipBadTimestamps only)
}

// LoadFile reads the whole log file at path into a store. Files ending in .gz
// or .zst are decompressed on the fly.
func LoadFile(path string, opts Options) (*store.Store, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("ingest: open: %w", err)
	}
	defer f.Close()

	r, closeReader, err := decompressor(path, f)
	if err != nil {
		return nil, Stats{}, err
	}
	defer closeReader()

	s, stats, err := Load(r, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("ingest: %s: %w", filepath.Base(path), err)
	}
	return s, stats, nil
}

// Load parses every line of r and returns the resulting store. Lines that are
// not events are skipped. A bad timestamp aborts the load unless
// opts.SkipBadTimestamps is set.
func Load(r io.Reader, opts Options) (*store.Store, Stats, error) {
	maxLineSize := model.DefaultMaxLineSize
	if opts.MaxLineSize > 0 {
		maxLineSize = opts.MaxLineSize
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineSize)), maxLineSize)

	var stats Stats
	var records []model.Record
	for scanner.Scan() {
		stats.Lines++
		rec, ok, err := logparse.ParseLine(scanner.Text())
		if err != nil {
			if opts.SkipBadTimestamps && errors.Is(err, logparse.ErrBadTimestamp) {
				stats.BadTimestamps++
				logger.Debug().Int("line", stats.Lines).Err(err).Msg("skipping line")
				continue
			}
			return nil, stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, stats, fmt.Errorf("line %d exceeds max size (%d bytes): %w", stats.Lines+1, maxLineSize, err)
		}
		return nil, stats, fmt.Errorf("read: %w", err)
	}

	stats.Records = len(records)
	logger.Info().
		Int("lines", stats.Lines).
		Int("records", stats.Records).
		Int("skipped", stats.Skipped).
		Int("bad_timestamps", stats.BadTimestamps).
		Msg("log loaded")

	return store.Load(records), stats, nil
}

func decompressor(path string, r io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: gzip: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}
