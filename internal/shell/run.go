package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

const maxHistory = 200

// Run starts the interactive loop. A terminal on in gets the inline prompt;
// anything else is read line by line.
func (s *Shell) Run(ctx context.Context, in *os.File, out io.Writer) error {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return s.RunInteractive(ctx, in, out)
	}
	return s.RunLines(ctx, in, out, out)
}

// RunLines executes one command per input line until exit, EOF or ctx is
// done. A failed line does not stop the loop.
func (s *Shell) RunLines(ctx context.Context, r io.Reader, out, errOut io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if quit, _ := s.Exec(ctx, sc.Text(), out, errOut); quit {
			return nil
		}
	}
	return sc.Err()
}

// RunInteractive drives the shell with an inline bubbletea prompt. Output of
// each command is printed above the prompt and stays in the scrollback.
func (s *Shell) RunInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(newPromptModel(ctx, s),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type commandDoneMsg struct {
	output string
	quit   bool
}

type promptModel struct {
	ctx     context.Context
	shell   *Shell
	input   textinput.Model
	history []string
	histIdx int // len(history) when not browsing
	busy    bool
}

func newPromptModel(ctx context.Context, s *Shell) promptModel {
	ti := textinput.New()
	ti.Prompt = cyanStyle.Render(s.Prompt())
	ti.Placeholder = "query --head 10"
	ti.CharLimit = 1024
	ti.Focus()
	return promptModel{ctx: ctx, shell: s, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case commandDoneMsg:
		m.busy = false
		var cmds []tea.Cmd
		if msg.output != "" {
			cmds = append(cmds, tea.Println(msg.output))
		}
		if msg.quit {
			cmds = append(cmds, tea.Quit)
		}
		if len(cmds) == 0 {
			return m, nil
		}
		return m, tea.Sequence(cmds...)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				return m, tea.Quit
			}
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		case tea.KeyUp:
			m.browse(-1)
			return m, nil
		case tea.KeyDown:
			m.browse(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()
	echo := tea.Println(m.input.Prompt + line)

	if strings.TrimSpace(line) == "" {
		return m, echo
	}
	m.history = append(m.history, line)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.histIdx = len(m.history)
	m.busy = true

	ctx, shell := m.ctx, m.shell
	run := func() tea.Msg {
		var buf bytes.Buffer
		quit, _ := shell.Exec(ctx, line, &buf, &buf)
		return commandDoneMsg{output: strings.TrimRight(buf.String(), "\n"), quit: quit}
	}
	return m, tea.Sequence(echo, run)
}

func (m *promptModel) browse(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.histIdx = max(0, min(len(m.history), m.histIdx+delta))
	if m.histIdx == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

func (m promptModel) View() string {
	if m.busy {
		return dimStyle.Render("running...")
	}
	return m.input.View()
}
