// Package debugtui is an interactive single-step debugger for a stackvm
// VM, built as a bubbletea program. It drives the VM directly via
// vm.Step/vm.Run; any additional vm.Tracer the caller supplies (the zap
// debug tracer, the HTTP debug server) keeps receiving snapshots exactly
// as it would outside the TUI, via vm.MultiTracer.
package debugtui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stackvm/vm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	currentLineStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4"))

	breakpointStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

type model struct {
	machine     *vm.VM
	breakpoints map[int]bool
	cmd         textinput.Model
	status      string
	halted      bool
	fault       error
}

type steppedMsg struct {
	more bool
	err  error
}

func newModel(machine *vm.VM) *model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "b <addr>"
	return &model{machine: machine, breakpoints: map[int]bool{}, cmd: ti}
}

func (m *model) Init() tea.Cmd { return textinput.Blink }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// While the command line is unfocused, n/c/q/: are plain
		// bindings and other keys are ignored; ':' focuses the command
		// line so a breakpoint command can be typed without its keys
		// triggering step/continue.
		if !m.cmd.Focused() {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "n":
				return m, m.step
			case "c":
				return m, m.continueToBreakpoint
			case ":":
				m.cmd.Focus()
				return m, textinput.Blink
			}
			return m, nil
		}

		switch msg.String() {
		case "esc":
			m.cmd.Blur()
			m.cmd.SetValue("")
			return m, nil
		case "enter":
			m.runCommand(m.cmd.Value())
			m.cmd.SetValue("")
			m.cmd.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.cmd, cmd = m.cmd.Update(msg)
		return m, cmd

	case steppedMsg:
		m.halted = !msg.more
		m.fault = msg.err
		if msg.err != nil {
			m.status = msg.err.Error()
		}
	}
	return m, nil
}

// runCommand handles the "b <addr>" breakpoint command; "n" and "c" are
// plain key bindings handled directly in Update.
func (m *model) runCommand(line string) {
	fields := strings.Fields(line)
	if len(fields) == 2 && fields[0] == "b" {
		addr, err := strconv.Atoi(fields[1])
		if err != nil {
			m.status = "bad address: " + fields[1]
			return
		}
		m.breakpoints[addr] = true
		m.status = fmt.Sprintf("breakpoint set at %d", addr)
		return
	}
	m.status = "unknown command: " + line
}

func (m *model) step() tea.Msg {
	if m.halted {
		return steppedMsg{more: false}
	}
	more, err := m.machine.Step()
	return steppedMsg{more: more, err: err}
}

func (m *model) continueToBreakpoint() tea.Msg {
	if m.halted {
		return steppedMsg{more: false}
	}
	for {
		more, err := m.machine.Step()
		if err != nil || !more {
			return steppedMsg{more: more, err: err}
		}
		if m.breakpoints[m.machine.IP()] {
			return steppedMsg{more: true}
		}
	}
}

func (m *model) View() string {
	header := titleStyle.Render("stackvm debugger")
	disasm := paneStyle.Render(m.disasmPane())
	stack := paneStyle.Render(m.stackPane())
	globals := paneStyle.Render(m.globalsPane())

	body := lipgloss.JoinHorizontal(lipgloss.Top, disasm, lipgloss.JoinVertical(lipgloss.Left, stack, globals))

	footer := helpStyle.Render("n step • c continue • : command (b <addr>) • q quit") + "\n" + m.cmd.View()
	if m.fault != nil {
		footer = errorStyle.Render("fault: "+m.fault.Error()) + "\n" + footer
	} else if m.status != "" {
		footer = m.status + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *model) disasmPane() string {
	var b strings.Builder
	b.WriteString("disassembly\n")
	image := m.machine.Image()
	offset := m.machine.IP()
	// walk backward a few instructions isn't possible without a reverse
	// disassembler, so the pane shows forward from ip, which is what a
	// single-stepping session actually needs.
	for i := 0; i < 12 && offset < len(image); i++ {
		text, next, ok := vm.Disassemble(image, offset)
		prefix := "  "
		if offset == m.machine.IP() {
			prefix = "->"
		}
		line := fmt.Sprintf("%s %4d  %s", prefix, offset, text)
		if m.breakpoints[offset] {
			line = breakpointStyle.Render(line)
		} else if offset == m.machine.IP() {
			line = currentLineStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if !ok {
			break
		}
		offset = next
	}
	return b.String()
}

func (m *model) stackPane() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stack (sp=%d fp=%d)\n", m.machine.SP(), m.machine.FP())
	snap := m.machine.Snapshot(vm.OpCount)
	for i := len(snap.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%3d: %s\n", i, describeValue(snap.Stack[i]))
	}
	return b.String()
}

func (m *model) globalsPane() string {
	var b strings.Builder
	b.WriteString("globals\n")
	g := m.machine.Globals()
	for i := 0; i < g.Max(); i++ {
		v, err := g.Get(i)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%3d: %s\n", i, describeValue(v))
	}
	return b.String()
}

func describeValue(v vm.Value) string {
	switch v.Kind {
	case vm.KindBool:
		return fmt.Sprintf("bool %v", v.BoolVal())
	case vm.KindInt:
		return fmt.Sprintf("int %d", v.IntVal())
	case vm.KindNum:
		return fmt.Sprintf("num %g", v.NumVal())
	case vm.KindCodePtr:
		return fmt.Sprintf("code_ptr %d", v.Addr())
	case vm.KindFramePtr:
		return fmt.Sprintf("frame_ptr %d", v.Addr())
	case vm.KindObj:
		return fmt.Sprintf("obj #%d", v.Handle())
	default:
		return "nil"
	}
}

// Run loads image into machine and drives it interactively. Any tracers
// are combined so the TUI's own driving of Step doesn't shut out other
// observers (the HTTP debug server, zap debug logging).
func Run(machine *vm.VM, image []byte, tracers ...vm.Tracer) error {
	if len(tracers) > 0 {
		machine.SetTracer(vm.MultiTracer(tracers...))
	}

	if err := machine.Load(image); err != nil {
		return err
	}

	m := newModel(machine)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.fault
}
