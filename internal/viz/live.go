package viz

import (
	"fmt"
	"image"
	"image/gif"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	meridians       = 12
)

type snapshotMsg Snapshot

type finishedMsg struct{}

// Model follows a run through a Feed.
type Model struct {
	feed       <-chan Snapshot
	stop       func()
	snap       Snapshot
	have       bool
	finished   bool
	paused     bool
	view3D     bool
	canvas     *Canvas
	camera     *Camera
	thetaHist  []float64
	radiusHist []float64
	recording  bool
	frames     []*image.Paletted
	showHelp   bool
	gifPath    string
}

// NewModel shows the snapshots of feed. stop is called when the user
// quits before the run ends.
func NewModel(feed *Feed, stop func()) Model {
	return Model{
		feed:       feed.Snapshots(),
		stop:       stop,
		canvas:     NewCanvas(width, height),
		camera:     NewCamera(),
		thetaHist:  make([]float64, 0, historyCapacity),
		radiusHist: make([]float64, 0, historyCapacity),
		gifPath:    "dropsim.gif",
	}
}

func wait(ch <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return finishedMsg{}
		}
		return snapshotMsg(s)
	}
}

func (m Model) Init() tea.Cmd { return wait(m.feed) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.finished && m.stop != nil {
				m.stop()
			}
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "m":
			m.view3D = !m.view3D
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "t":
			NextTheme()
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
		m.draw()
	case snapshotMsg:
		if !m.paused {
			m.observe(Snapshot(msg))
			m.draw()
			if m.recording {
				m.frames = append(m.frames, m.canvas.Image(8, 16))
			}
		}
		return m, wait(m.feed)
	case finishedMsg:
		m.finished = true
	}
	return m, nil
}

func (m *Model) observe(s Snapshot) {
	m.snap, m.have = s, true
	if !s.Probe.OK {
		return
	}
	m.thetaHist = append(m.thetaHist, s.Probe.Theta)
	m.radiusHist = append(m.radiusHist, s.Probe.Radius*1e3)
	if len(m.thetaHist) > historyCapacity {
		m.thetaHist = m.thetaHist[1:]
		m.radiusHist = m.radiusHist[1:]
	}
}

// draw renders the interface, either as a mirrored meridian section with
// the substrate at the bottom or as a surface of revolution.
func (m *Model) draw() {
	m.canvas.Clear()
	if !m.have || m.snap.L0 == 0 {
		return
	}
	if m.view3D {
		Render3D(m.canvas, Revolve(m.snap.Facets, meridians, m.snap.L0/2), m.camera)
		return
	}

	cw, ch := m.canvas.Dots()
	half := m.snap.L0 / 2
	scale := min(float64(cw)/(2*half), float64(ch)/half)
	cx := cw / 2
	dot := func(axial, radial float64) (int, int) {
		return cx + int(radial*scale), ch - 1 - int(axial*scale)
	}
	m.canvas.DrawLine(0, ch-1, cw-1, ch-1)
	for _, s := range m.snap.Facets {
		for _, sign := range []float64{1, -1} {
			x0, y0 := dot(s.A.X, sign*s.A.Y)
			x1, y1 := dot(s.B.X, sign*s.B.Y)
			m.canvas.DrawLine(x0, y0, x1, y1)
		}
	}
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 5)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		return
	}
	defer f.Close()
	gif.EncodeAll(f, &anim)
}

func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	status := "RUNNING"
	switch {
	case m.finished:
		status = "FINISHED"
	case m.paused:
		status = "PAUSED"
	}
	if m.recording {
		status += " ● REC"
	}
	s.WriteString(headerStyle().Render("SESSILE DROP") + "\n")
	s.WriteString(status + "\n\n")

	snap := m.snap
	progress := 0.0
	if snap.TEnd > 0 {
		progress = snap.State.T / snap.TEnd
	}
	s.WriteString(ProgressBar(progress, 30) + fmt.Sprintf(" %3.0f%%\n\n", 100*progress))

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.6f s", snap.State.T))
	row("Step", fmt.Sprintf("%d", snap.State.I))
	row("dt", fmt.Sprintf("%.3g s", snap.State.Dt))
	row("Leaves", fmt.Sprintf("%d", snap.Leaves))
	row("|u|max", fmt.Sprintf("%.4g m/s", snap.UMax))
	row("Mass drift", fmt.Sprintf("%.2e", snap.Drift))
	row("Unconverged", fmt.Sprintf("%d", snap.Failures))
	if snap.Probe.OK {
		row("Angle", fmt.Sprintf("%.1f°", snap.Probe.Theta))
		row("Radius", fmt.Sprintf("%.3f mm", snap.Probe.Radius*1e3))
	} else {
		row("Angle", "-")
	}

	if len(m.thetaHist) > 1 {
		chart := asciigraph.Plot(m.thetaHist, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("contact angle (deg)"))
		s.WriteString(graphStyle.Foreground(CurrentTheme.Accent).Render(chart) + "\n")
		s.WriteString(labelStyle.Render("Radius") + Sparkline(m.radiusHist, 30) + "\n")
	}
	s.WriteString(helpStyle().Render("SP:Pause M:3D Q:Quit\nT:Theme  G:Record ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
  Space    pause the view (the run continues)
  M        toggle section / surface of revolution
  X Y      rotate the 3D view
  + -      zoom the 3D view
  G        toggle GIF recording
  T        cycle themes
  Q        quit (stops the run)
  ?        toggle this help
` + "\n" + mainView
	}
	return mainView
}

// Run shows the live view until the user quits.
func Run(feed *Feed, stop func()) error {
	_, err := tea.NewProgram(NewModel(feed, stop), tea.WithAltScreen()).Run()
	return err
}
