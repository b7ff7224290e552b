package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/experiment"
	"github.com/san-kum/spheresim/internal/metrics"
	"github.com/san-kum/spheresim/internal/octree"
	"github.com/san-kum/spheresim/internal/physics"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 300
	autoRotateStep  = 0.01
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model runs a physics manager on a ticker and draws its snapshots onto a
// braille canvas.
type Model struct {
	cfg      *config.Config
	registry *experiment.Registry
	exp      *experiment.Experiment

	snapshot []physics.Object
	stats    physics.FrameStats
	visible  int
	err      error

	canvas     *Canvas
	camera     *Camera
	bounds     *Wireframe
	autoRotate bool
	running    bool
	showHelp   bool

	collisionHistory []float64
	ratioHistory     []float64
	energy           float64
}

// NewModel builds and spawns the configured scenario.
func NewModel(cfg *config.Config, registry *experiment.Registry) (Model, error) {
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	m := Model{
		cfg:              cfg,
		registry:         registry,
		canvas:           NewCanvas(width, height),
		autoRotate:       true,
		running:          true,
		collisionHistory: make([]float64, 0, historyCapacity),
		ratioHistory:     make([]float64, 0, historyCapacity),
	}
	if err := m.setup(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) setup() error {
	if m.exp != nil {
		m.exp.Close()
	}
	m.exp = experiment.New(m.cfg, m.registry)
	if err := m.exp.Setup(); err != nil {
		return err
	}

	m.snapshot = m.exp.Manager().Snapshot(m.snapshot)
	extent := sceneExtent(m.snapshot)
	m.camera = NewCamera(m.cfg.Render.CameraDistance, extent)
	m.camera.RotateX(0.4)
	m.bounds = BoxWireframe(octree.Box{
		Min: mgl64.Vec3{-extent, -extent, -extent},
		Max: mgl64.Vec3{extent, extent, extent},
	})
	m.stats = physics.FrameStats{Objects: len(m.snapshot)}
	m.energy = metrics.TotalKineticEnergy(m.snapshot)
	m.collisionHistory = m.collisionHistory[:0]
	m.ratioHistory = m.ratioHistory[:0]
	m.err = nil
	return nil
}

// sceneExtent is the half-width of the smallest origin-centred cube that
// holds every sphere.
func sceneExtent(objects []physics.Object) float64 {
	extent := 1.0
	for _, o := range objects {
		for i := 0; i < 3; i++ {
			extent = max(extent, o.Position[i]+o.Radius, -o.Position[i]+o.Radius)
		}
	}
	return extent
}

func (m Model) tick() tea.Cmd {
	fps := m.cfg.Render.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.setup(); err != nil {
				m.err = err
			}
		case "n":
			if !m.running && m.err == nil {
				m.step()
			}
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		case "a":
			m.autoRotate = !m.autoRotate
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		if m.autoRotate {
			m.camera.RotateY(autoRotateStep)
		}
		return m, m.tick()
	}
	return m, nil
}

// step advances one frame and records its history.
func (m *Model) step() {
	stats, err := m.exp.Manager().RunFrame(m.cfg.Dt)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.stats = stats
	m.snapshot = m.exp.Manager().Snapshot(m.snapshot)
	m.energy = metrics.TotalKineticEnergy(m.snapshot)

	m.collisionHistory = appendCapped(m.collisionHistory, float64(stats.Collisions))
	ratio := 0.0
	if stats.Objects > 0 {
		ratio = float64(stats.Candidates) / float64(stats.Objects)
	}
	m.ratioHistory = appendCapped(m.ratioHistory, ratio)
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

// Close stops the manager's workers.
func (m Model) Close() {
	if m.exp != nil {
		m.exp.Close()
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	RenderWireframe(m.canvas, m.bounds, m.camera)
	m.visible = RenderSpheres(m.canvas, m.snapshot, m.camera)
}

func (m Model) View() string {
	m.draw()
	theme := CurrentTheme
	canvasView := canvasStyle.Render(m.canvas.Render(
		lipgloss.NewStyle().Foreground(theme.Scene),
		lipgloss.NewStyle().Foreground(theme.Highlight).Bold(true),
	))

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.cfg.Scenario)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(StatusError.Render("ERROR: "+m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(StatusRunning.Render(AnimatedSpinner(m.stats.Frame)+" RUNNING") + "\n\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.collisionHistory) > 1 {
		chart := asciigraph.Plot(m.collisionHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Collisions"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Frame", fmt.Sprintf("%d", m.stats.Frame))
	row("Objects", fmt.Sprintf("%d (%d shown)", len(m.snapshot), m.visible))
	row("Pairs", fmt.Sprintf("%d", m.stats.Collisions))
	row("Resolved", fmt.Sprintf("%d", m.stats.Resolved))
	row("Tree", fmt.Sprintf("%d nodes, depth %d", m.stats.TreeNodes, m.stats.TreeDepth))
	row("Energy", fmt.Sprintf("%.2f", m.energy))
	row("Workers", fmt.Sprintf("%d", m.cfg.Workers))

	s.WriteString("\n" + MetricLabel.Render("Candidates") + SparklineChart(m.ratioHistory, 24) + "\n")
	budget := 1 / float64(max(m.cfg.Render.FPS, 1))
	s.WriteString(MetricLabel.Render("Frame time") + BudgetBar(m.stats.Total.Seconds()/budget, 16) +
		" " + Subtle.Render(m.stats.Total.Round(time.Microsecond).String()) + "\n")

	s.WriteString(helpStyle.Render("\n" + Separator(30) + "\nSP:Pause R:Reset Q:Quit\nT:Theme  A:Orbit ?:Help"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return KeyHint.Render(`
  Space    pause or resume
  N        step one frame while paused
  R        respawn the scenario
  X/Y/Z    rotate the camera (shift reverses)
  +/-      zoom
  A        toggle auto orbit
  T        cycle themes
  Q        quit
`) + "\n" + mainView
	}
	return mainView
}

// RunLive opens the terminal view for cfg and blocks until it quits.
func RunLive(cfg *config.Config) error {
	m, err := NewModel(cfg, nil)
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	return err
}
