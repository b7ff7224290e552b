package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/experiment"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

var scenarioInfo = map[string]string{
	"scatter": "uniform random cloud",
	"head_on": "two spheres, one bounce",
	"lattice": "resting grid",
	"cluster": "exploding ball",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// field is one editable setting on the config screen.
type field struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

var fields = []field{
	{"count", func(c *config.Config) float64 { return float64(c.Spawn.Count) }, func(c *config.Config, v float64) { c.Spawn.Count = max(0, int(v)) }},
	{"extent", func(c *config.Config) float64 { return c.Spawn.Extent }, func(c *config.Config, v float64) { c.Spawn.Extent = max(0, v) }},
	{"speed", func(c *config.Config) float64 { return c.Spawn.Speed }, func(c *config.Config, v float64) { c.Spawn.Speed = max(0, v) }},
	{"radius", func(c *config.Config) float64 { return c.Spawn.Radius }, func(c *config.Config, v float64) {
		if v > 0 {
			c.Spawn.Radius = v
		}
	}},
	{"dt", func(c *config.Config) float64 { return c.Dt }, func(c *config.Config, v float64) { c.Dt = max(0, v) }},
	{"workers", func(c *config.Config) float64 { return float64(c.Workers) }, func(c *config.Config, v float64) { c.Workers = max(0, int(v)) }},
}

type model struct {
	state       int
	cursor      int
	scenarios   []string
	presets     []string
	selected    string
	cfg         *config.Config
	paramCursor int
	editing     bool
	editBuf     string
	err         error
	liveModel   Model
}

func NewInteractiveApp() *model {
	return &model{
		state:     stateMenu,
		scenarios: experiment.NewRegistry().ListScenarios(),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.scenarios)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.scenarios[m.cursor]
		m.presets = config.ListPresets(m.selected)
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
		m.applyPreset(0)
	}
	return m, nil
}

// applyPreset loads the i-th preset of the selected scenario, or the
// defaults when it has none.
func (m *model) applyPreset(i int) {
	if i < len(m.presets) {
		if cfg := config.GetPreset(m.selected, m.presets[i]); cfg != nil {
			m.cfg = cfg
			return
		}
	}
	m.cfg = config.DefaultConfig()
	m.cfg.Scenario = m.selected
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				fields[m.paramCursor].set(m.cfg, v)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(fields)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, strconv.FormatFloat(fields[m.paramCursor].get(m.cfg), 'g', -1, 64)
	case "p":
		if len(m.presets) > 0 {
			idx := 0
			for i, name := range m.presets {
				if p := config.GetPreset(m.selected, name); p != nil && *p == *m.cfg {
					idx = (i + 1) % len(m.presets)
				}
			}
			m.applyPreset(idx)
		}
	case "s":
		return m.start()
	case "left", "h":
		f := fields[m.paramCursor]
		f.set(m.cfg, f.get(m.cfg)*0.9)
	case "right", "l":
		f := fields[m.paramCursor]
		f.set(m.cfg, f.get(m.cfg)*1.1+0.001)
	}
	return m, nil
}

func (m model) start() (model, tea.Cmd) {
	live, err := NewModel(m.cfg, nil)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.liveModel = live
	m.state = stateSim
	return m, m.liveModel.Init()
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyStyle.Render(pairs[i]) + idleStyle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + titleStyle.Render("SPHERESIM") + "\n    " + subtitleStyle.Render("parallel sphere collisions") + "\n    " + subtitleStyle.Render("─────────────────────────") + "\n\n")
	for i, name := range m.scenarios {
		desc := scenarioInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorStyle.Render("▸"), selectedStyle.Render(fmt.Sprintf("%-12s", name)), infoStyle.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", idleStyle.Render(fmt.Sprintf("  %-12s", name)), idleStyle.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + titleStyle.Render(strings.ToUpper(m.selected)) + "\n    " + subtitleStyle.Render(scenarioInfo[m.selected]) + "\n    " + subtitleStyle.Render("─────────────────────────") + "\n\n")
	for i, f := range fields {
		valStr := fmt.Sprintf("%10.4g", f.get(m.cfg))
		if m.editing && i == m.paramCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cursorStyle.Render("▸"), selectedStyle.Render(fmt.Sprintf("%-10s", f.name)), infoStyle.Bold(true).Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", idleStyle.Render(fmt.Sprintf("  %-10s", f.name)), idleStyle.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusError.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "p", "preset", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the scenario picker.
func RunInteractive() error {
	final, err := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen()).Run()
	if fm, ok := final.(model); ok && fm.state == stateSim {
		fm.liveModel.Close()
	}
	return err
}
