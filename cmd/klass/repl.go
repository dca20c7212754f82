package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mgomes/klass/klass"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	resultStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	keyStyle    = lipgloss.NewStyle().Foreground(highlightColor)
	titleStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

type entryKind int

const (
	entryResult entryKind = iota
	entryError
	entryLog
)

type historyEntry struct {
	input  string
	output string
	kind   entryKind
}

type replModel struct {
	textInput   textinput.Model
	session     *Session
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showVars    bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Prev       key.Binding
	Next       key.Binding
	Run        key.Binding
	Quit       key.Binding
	Clear      key.Binding
	Complete   key.Binding
	Instances  key.Binding
	Help       key.Binding
	DumpResult key.Binding
}

var keys = keyMap{
	Prev:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous command")),
	Next:       key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next command")),
	Run:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run command")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "destroy everything and quit")),
	Clear:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear history")),
	Complete:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete command, class, function or variable")),
	Instances:  key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "toggle instances panel")),
	Help:       key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "toggle help")),
	DumpResult: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "dump "+resultVar)),
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Run, k.Complete, k.DumpResult, k.Instances, k.Help, k.Clear, k.Quit}
}

// metaCommands are handled by the REPL itself rather than the session.
var metaCommands = [][2]string{
	{":live", "list every live instance, bound or not"},
	{":vars", "toggle instances panel"},
	{":help", "toggle this help"},
	{":clear", "clear history"},
	{":quit", "destroy everything and quit"},
}

func newREPLModel(session *Session) replModel {
	ti := textinput.New()
	ti.Placeholder = "type a command (help lists them)..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "klass> "

	return replModel{
		textInput:  ti,
		session:    session,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.EnterAltScreen)
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Clear):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.Instances):
			m.showVars = !m.showVars
			return m, nil

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Prev):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Next):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Complete):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.DumpResult):
			m = m.evaluate("dump " + resultVar)
			return m, nil

		case key.Matches(msg, keys.Run):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			m = m.evaluate(input)
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":vars", ":v":
		m.showVars = !m.showVars
	case ":live", ":l":
		m.history = append(m.history, historyEntry{input: input, output: liveListing(m.session)})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			kind:   entryError,
		})
	}
	return m, nil
}

func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	if input == "" {
		return m
	}

	words := strings.Fields(input)
	if len(words) == 0 || strings.HasSuffix(input, " ") {
		return m
	}
	lastWord := words[len(words)-1]

	var completions []string
	for _, w := range m.session.Completions() {
		if strings.HasPrefix(w, lastWord) {
			completions = append(completions, w)
		}
	}

	if len(completions) == 1 {
		prefix := strings.TrimSuffix(input, lastWord)
		m.textInput.SetValue(prefix + completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			output: "Completions: " + strings.Join(completions, ", "),
		})
	}

	return m
}

// evaluate runs input through the session and records its output followed
// by any log records it produced.
func (m replModel) evaluate(input string) replModel {
	output, err := m.session.Eval(input)
	entry := historyEntry{input: input, output: output}
	if err != nil {
		entry.output = err.Error()
		entry.kind = entryError
	}
	m.history = append(m.history, entry)

	if logs := strings.TrimRight(m.session.DrainLogs(), "\n"); logs != "" {
		m.history = append(m.history, historyEntry{output: logs, kind: entryLog})
	}
	return m
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	header := titleStyle.Padding(0, 1).Render("klass REPL")
	live := mutedStyle.Render(fmt.Sprintf("%d live", m.session.rt.Live()))
	b.WriteString(header + " " + live + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(min(m.width-2, 60), 0))) + "\n\n")

	reservedLines := 8
	if m.showHelp {
		reservedLines += len(keys.bindings()) + strings.Count(sessionHelp, "\n") + len(metaCommands) + 8
	}
	if m.showVars {
		reservedLines += len(m.session.vars) + 3
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = max(len(m.history)-availableHeight, 0)
	}

	for i := historyStart; i < len(m.history); i++ {
		entry := m.history[i]
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		switch entry.kind {
		case entryError:
			b.WriteString("  " + errorStyle.Render("✗ "+entry.output) + "\n")
		case entryLog:
			b.WriteString(indent(mutedStyle.Render(entry.output)) + "\n")
		default:
			b.WriteString(indent(resultStyle.Render(entry.output)) + "\n")
		}
		b.WriteString("\n")
	}

	if m.showVars {
		b.WriteString(renderVarsPanel(m.session))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	var footer []string
	for _, k := range []key.Binding{keys.Help, keys.Instances, keys.DumpResult, keys.Quit} {
		footer = append(footer, keyStyle.Render(k.Help().Key)+mutedStyle.Render(" "+k.Help().Desc))
	}
	b.WriteString(strings.Join(footer, "  "))

	return b.String()
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func renderVarsPanel(s *Session) string {
	names := s.VarNames()
	if len(names) == 0 {
		return panelStyle.Render(mutedStyle.Render("No instances bound"))
	}

	lines := []string{titleStyle.Render("Instances")}
	for _, name := range names {
		c := s.vars[name]
		lines = append(lines, fmt.Sprintf("  %s = %s %s", keyStyle.Render(name), describe(c), mutedStyle.Render(c.ID().String()[:8])))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// liveListing shows every live instance in creation order with the
// variables bound to it; unbound instances are leaks until the session ends.
func liveListing(s *Session) string {
	bound := make(map[*klass.Class][]string)
	for _, name := range s.VarNames() {
		bound[s.vars[name]] = append(bound[s.vars[name]], name)
	}
	live := s.rt.LiveClasses()
	if len(live) == 0 {
		return "no live instances"
	}
	lines := make([]string, len(live))
	for i, c := range live {
		names := "(unbound)"
		if vars := bound[c]; len(vars) > 0 {
			names = strings.Join(vars, ", ")
		}
		lines[i] = fmt.Sprintf("%s  %s  %s", c.ID().String()[:8], describe(c), names)
	}
	return strings.Join(lines, "\n")
}

// renderHelpPanel lists the key bindings, the session commands and the
// REPL's own colon commands.
func renderHelpPanel() string {
	lines := []string{titleStyle.Render("Keys")}
	for _, k := range keys.bindings() {
		lines = append(lines, fmt.Sprintf("  %s  %s", keyStyle.Render(fmt.Sprintf("%-8s", k.Help().Key)), mutedStyle.Render(k.Help().Desc)))
	}

	lines = append(lines, "", titleStyle.Render("Commands"))
	for _, line := range strings.Split(sessionHelp, "\n") {
		lines = append(lines, "  "+line)
	}

	lines = append(lines, "", titleStyle.Render("REPL"))
	for _, mc := range metaCommands {
		lines = append(lines, fmt.Sprintf("  %s  %s", keyStyle.Render(fmt.Sprintf("%-8s", mc[0])), mutedStyle.Render(mc[1])))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func runREPL(session *Session) error {
	p := tea.NewProgram(newREPLModel(session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// runLines evaluates one command per input line. Blank lines and lines
// starting with # are skipped; quit stops early.
func runLines(r io.Reader, stdout, stderr io.Writer, session *Session) error {
	failed := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == ":quit" {
			break
		}
		output, err := session.Eval(line)
		fmt.Fprint(stderr, session.DrainLogs())
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "error: %v\n", err)
			continue
		}
		if output != "" {
			fmt.Fprintln(stdout, output)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d command(s) failed", failed)
	}
	return nil
}
