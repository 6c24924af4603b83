package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/etlq/internal/duckdb"
	"github.com/tinytelemetry/etlq/internal/export"
	"github.com/tinytelemetry/etlq/internal/filter"
	"github.com/tinytelemetry/etlq/internal/model"
	"github.com/tinytelemetry/etlq/internal/query"
)

const pushTimeout = 30 * time.Second

var (
	errMirrorDisabled = errors.New("sql: the SQL mirror is disabled (set sql-mirror: true)")
	errNoEndpoint     = errors.New("push: no otlp-endpoint configured")
)

func (s *Shell) registerCommands() map[string]*command {
	cmds := []*command{
		{
			name:    "query",
			summary: "Query log events that match a collection of filters.",
			help:    flagHelp("Query operations for log events that match a collection of filters.", "query", true),
			run:     s.runQuery,
		},
		{
			name:    "stats",
			summary: "Show severity counts for the whole log or a filtered query.",
			help:    flagHelp("Severity counts over matching log events. Without flags every record is counted.", "stats", false),
			run:     s.runStats,
		},
		{
			name:    "sql",
			summary: "Run a read-only SQL query against the records table.",
			help:    s.sqlHelp,
			run:     s.runSQL,
			raw:     true,
		},
		{
			name:    "push",
			summary: "Send matching log events to the OTLP collector.",
			help:    flagHelp("Send matching log events to the configured OTLP/gRPC logs endpoint.", "push", false),
			run:     s.runPush,
		},
		{
			name:    "config",
			summary: "Print the effective configuration.",
			run:     s.runConfig,
		},
		{
			name:    "help",
			summary: "List commands, or show help for one command.",
			run:     s.runHelp,
		},
		{
			name:    "exit",
			summary: "Exit the interactive session.",
			run:     func(context.Context, invocation) (bool, error) { return true, nil },
		},
	}

	m := make(map[string]*command, len(cmds))
	for _, c := range cmds {
		m[c.name] = c
	}
	return m
}

func flagHelp(description, name string, withOutfile bool) func(io.Writer) {
	return func(w io.Writer) {
		fs, _ := newQueryFlagSet(name, withOutfile)
		fmt.Fprintf(w, "%s\n\n", description)
		printFlagUsage(w, fs)
	}
}

// parseRequest parses query-style flags. A non-nil error means the
// invocation was fully handled here: pflag.ErrHelp after help was shown,
// errUsage after a usage error was printed.
func parseRequest(fs *pflag.FlagSet, f *queryFlags, inv invocation) (query.Request, error) {
	if err := parseFlags(fs, inv); err != nil {
		return query.Request{}, err
	}
	req, err := f.request()
	if err != nil {
		printUsageError(inv.errOut, fs.Name(), err)
		return req, errUsage
	}
	return req, nil
}

// ignoreHelp treats a help request as a successful command.
func ignoreHelp(err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

func (s *Shell) runQuery(_ context.Context, inv invocation) (bool, error) {
	fs, f := newQueryFlagSet("query", true)
	req, err := parseRequest(fs, f, inv)
	if err != nil {
		return false, ignoreHelp(err)
	}

	res, err := s.cfg.Executor.Execute(inv.out, req)
	if errors.Is(err, export.ErrInvalidOutfile) {
		fmt.Fprintln(inv.errOut, "Please use an output file that ends with `.csv`")
		return false, fmt.Errorf("query: %w", errReported)
	}
	if err != nil {
		return false, err
	}
	if res.Outfile != "" {
		fmt.Fprintln(inv.out, dimStyle.Render(fmt.Sprintf("%d records written to %s", res.Count, res.Outfile)))
	}
	return false, nil
}

func (s *Shell) runStats(ctx context.Context, inv invocation) (bool, error) {
	fs, f := newQueryFlagSet("stats", false)
	req, err := parseRequest(fs, f, inv)
	if err != nil {
		return false, ignoreHelp(err)
	}

	whole := req.Mode() == query.ModeFilter && req.Criteria().IsEmpty()
	if whole && req.Limit == 0 && s.cfg.Mirror != nil {
		counts, err := s.cfg.Mirror.SeverityCounts(ctx)
		if err != nil {
			return false, fmt.Errorf("stats: %w", err)
		}
		sortSeverityCounts(counts)
		fmt.Fprintln(inv.out, renderStats(counts))
		return false, nil
	}

	st := s.cfg.Executor.Store()
	seq := query.Run(st, req)
	if whole {
		seq = filter.Limit(st.All(), req.Limit)
	}

	fmt.Fprintln(inv.out, renderStats(CountSeverities(seq)))
	return false, nil
}

func (s *Shell) sqlHelp(w io.Writer) {
	fmt.Fprintf(w, "usage: sql SELECT ...\n\nRun a read-only query; at most %d rows are shown.\n%s\n",
		duckdb.MaxQueryRows, duckdb.SchemaDescription())
}

func (s *Shell) runSQL(ctx context.Context, inv invocation) (bool, error) {
	if s.cfg.Mirror == nil {
		return false, errMirrorDisabled
	}
	if inv.rest == "" {
		s.sqlHelp(inv.out)
		return false, nil
	}

	res, err := s.cfg.Mirror.ExecuteQuery(ctx, inv.rest)
	if err != nil {
		return false, fmt.Errorf("sql: %w", err)
	}

	fmt.Fprintln(inv.out, renderResultTable(res))
	summary := fmt.Sprintf("(%d rows)", len(res.Rows))
	if res.Truncated {
		summary = fmt.Sprintf("(truncated at %d rows)", len(res.Rows))
	}
	fmt.Fprintln(inv.out, dimStyle.Render(summary))
	return false, nil
}

func (s *Shell) runPush(ctx context.Context, inv invocation) (bool, error) {
	if s.cfg.OTLPEndpoint == "" && s.cfg.OTLPConn == nil {
		return false, errNoEndpoint
	}

	fs, f := newQueryFlagSet("push", false)
	req, err := parseRequest(fs, f, inv)
	if err != nil {
		return false, ignoreHelp(err)
	}

	otlpReq := export.LogsRequest(query.Run(s.cfg.Executor.Store(), req), s.cfg.ServiceName)
	n := export.RecordCount(otlpReq)
	if n == 0 {
		fmt.Fprintln(inv.out, "no matching records; nothing pushed")
		return false, nil
	}

	conn := s.cfg.OTLPConn
	if conn == nil {
		c, err := export.DialOTLP(s.cfg.OTLPEndpoint)
		if err != nil {
			return false, err
		}
		defer c.Close()
		conn = c
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := export.PushOTLP(ctx, conn, otlpReq); err != nil {
		return false, err
	}

	s.cfg.Logger.Info().Int("records", n).Str("endpoint", s.cfg.OTLPEndpoint).Msg("pushed records")
	fmt.Fprintf(inv.out, "pushed %d records\n", n)
	return false, nil
}

func (s *Shell) runConfig(_ context.Context, inv invocation) (bool, error) {
	if s.cfg.Settings == nil {
		fmt.Fprintln(inv.out, "no configuration loaded")
		return false, nil
	}
	data, err := yaml.Marshal(s.cfg.Settings)
	if err != nil {
		return false, fmt.Errorf("config: %w", err)
	}
	_, err = inv.out.Write(data)
	return false, err
}

func (s *Shell) runHelp(_ context.Context, inv invocation) (bool, error) {
	if len(inv.args) == 0 {
		fmt.Fprintln(inv.out, "Documented commands (type help <topic>):")
		for _, name := range s.commandNames() {
			fmt.Fprintf(inv.out, "  %-8s %s\n", name, s.commands[name].summary)
		}
		return false, nil
	}

	for _, topic := range inv.args {
		cmd, ok := s.commands[topic]
		switch {
		case !ok:
			fmt.Fprintf(inv.errOut, "*** No help on %s\n", topic)
		case cmd.help != nil:
			cmd.help(inv.out)
		default:
			fmt.Fprintln(inv.out, cmd.summary)
		}
	}
	return false, nil
}

// CountSeverities tallies records per severity, ordered for display.
func CountSeverities(seq iter.Seq[model.Record]) []model.SeverityCount {
	idx := map[string]int{}
	var counts []model.SeverityCount
	for r := range seq {
		i, ok := idx[r.Severity]
		if !ok {
			i = len(counts)
			idx[r.Severity] = i
			counts = append(counts, model.SeverityCount{Severity: r.Severity})
		}
		counts[i].Count++
	}
	sortSeverityCounts(counts)
	return counts
}
