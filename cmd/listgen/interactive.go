package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/lower"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	log      *zap.Logger
	opts     lower.Options
	elem     layout.Layout
	elemExpr string
	result   string
	ops      []op
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

func newInteractiveModel(elemExpr string, elem layout.Layout, opts lower.Options, log *zap.Logger) *interactiveModel {
	m := &interactiveModel{
		log:      log,
		opts:     opts,
		elem:     elem,
		elemExpr: elemExpr,
		state:    stateSelectOp,
	}
	for _, name := range opNames() {
		o, _ := lookupOp(name)
		if o.check(elem) == nil {
			m.ops = append(m.ops, o)
		}
	}
	return m
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if len(m.ops) == 0 {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callOp

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	params := m.ops[m.selected].params(m.elem)
	m.inputs = make([]textinput.Model, len(params))
	for i, p := range params {
		ti := textinput.New()
		ti.Placeholder = placeholder(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func placeholder(l layout.Layout) string {
	if t, ok := l.(layout.List); ok {
		if _, nested := t.Elem.(layout.List); nested {
			return "1,2;3"
		}
		return "1,2,3"
	}
	return "0"
}

func (m *interactiveModel) callOp() tea.Msg {
	o := m.ops[m.selected]
	bin, err := generate(o, m.elem, m.opts)
	if err != nil {
		return callResultMsg{err: err}
	}
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	out, err := execute(context.Background(), bin, o, m.elem, args, m.log)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%s\n%d bytes of wasm", out, len(bin))}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("List Builtins"))
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(m.elemExpr))
	b.WriteString("\n\n")

	if len(m.ops) == 0 {
		b.WriteString(errorStyle.Render("No runnable ops for " + m.elem.String()))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an op to lower and run:\n\n")
		for i, o := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + o.signature(m.elem)))
			} else {
				b.WriteString("  " + m.formatOp(o))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputArgs:
		o := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s: %s\n\n", funcStyle.Render(o.name), o.doc))
		params := o.params(m.elem)
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(params[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		o := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(o.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatOp(o op) string {
	params := o.params(m.elem)
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = typeStyle.Render(p.String())
	}
	return funcStyle.Render(o.name) + "(" + strings.Join(parts, ", ") + ") -> " + typeStyle.Render(o.result(m.elem).String())
}

func runInteractive(elemExpr string, elem layout.Layout, opts lower.Options, log *zap.Logger) error {
	if err := runnable(elem); err != nil {
		return err
	}
	p := tea.NewProgram(newInteractiveModel(elemExpr, elem, opts, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
