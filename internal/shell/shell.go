// Package shell implements the interactive query shell: command dispatch,
// argument parsing and the terminal front ends that drive it.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/shlex"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/tinytelemetry/etlq/internal/duckdb"
	"github.com/tinytelemetry/etlq/internal/model"
	"github.com/tinytelemetry/etlq/internal/query"
)

// ErrCommandFailed is returned by Exec when a line did not run cleanly. The
// reason has already been written to errOut.
var ErrCommandFailed = errors.New("command failed")

// errReported marks a command error whose message was already printed.
var errReported = errors.New("already reported")

// Config wires a Shell to the loaded data and optional integrations.
type Config struct {
	Executor *query.Executor
	Mirror   *duckdb.Store // nil disables the sql command

	// OTLPEndpoint is dialed per push. OTLPConn, when set, is used instead.
	OTLPEndpoint string
	OTLPConn     grpc.ClientConnInterface
	ServiceName  string

	// Settings is dumped as YAML by the config command.
	Settings any

	Prompt string
	Logger zerolog.Logger
}

// Shell dispatches command lines. It is not safe for concurrent use.
type Shell struct {
	cfg      Config
	commands map[string]*command
}

type invocation struct {
	name   string
	args   []string
	rest   string // raw text after the command name
	out    io.Writer
	errOut io.Writer
}

type command struct {
	name    string
	summary string
	help    func(w io.Writer)
	run     func(ctx context.Context, inv invocation) (quit bool, err error)
	raw     bool // skip shell-style splitting, the command reads inv.rest
}

// New creates a shell over cfg.
func New(cfg Config) *Shell {
	if cfg.Prompt == "" {
		cfg.Prompt = model.DefaultPrompt
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = model.DefaultServiceName
	}
	s := &Shell{cfg: cfg}
	s.commands = s.registerCommands()
	return s
}

// Prompt returns the configured prompt.
func (s *Shell) Prompt() string { return s.cfg.Prompt }

// Exec runs one command line, writing results to out and diagnostics to
// errOut. It reports whether the line asked the shell to exit. A failed line
// is printed and returned as ErrCommandFailed; interactive callers may keep
// going.
func (s *Shell) Exec(ctx context.Context, line string, out, errOut io.Writer) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	name, rest := splitCommand(line)
	cmd, ok := s.commands[name]
	if !ok {
		fmt.Fprintf(errOut, "*** Unknown syntax: %s\n", line)
		return false, fmt.Errorf("%w: unknown command %q", ErrCommandFailed, name)
	}

	var args []string
	if !cmd.raw {
		if args, err = shlex.Split(rest); err != nil {
			fmt.Fprintln(errOut, err)
			return false, fmt.Errorf("%w: %s: %v", ErrCommandFailed, name, err)
		}
	}

	quit, err = cmd.run(ctx, invocation{name: name, args: args, rest: rest, out: out, errOut: errOut})
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(errOut, errorStyle.Render(err.Error()))
		}
		s.cfg.Logger.Debug().Err(err).Str("command", name).Msg("command failed")
		return quit, fmt.Errorf("%w: %s", ErrCommandFailed, name)
	}
	return quit, nil
}

// splitCommand separates the command word from its arguments. A leading '?'
// is shorthand for help.
func splitCommand(line string) (name, rest string) {
	if strings.HasPrefix(line, "?") {
		return "help", strings.TrimSpace(line[1:])
	}
	name, rest, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(rest)
}

func (s *Shell) commandNames() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
