package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vx2/monitor"
	"vx2/ptt"
	"vx2/session"
)

// TUI message types
type refreshMsg struct {
	gen uint64 // monitor session that armed the tick
	at  time.Time
}
type pttMsg struct{ Keyed bool } // from the global hotkey
type shutdownMsg struct{}        // from OS signals

const (
	waveWidth  = 64
	waveHeight = 8 // character rows; two pixels per row
)

// Pre-computed pixel styles to avoid allocations in render loop.
// Index 0 is empty; higher indices sit further from the center line.
var (
	pixelColors = []string{"", "28", "34", "40", "46", "118", "154", "190", "226", "220", "214", "208", "202", "196", "160", "124", "88"}
	pixelStyles [17]lipgloss.Style
	pixelBg     [17][17]lipgloss.Style
)

var toneColors = map[session.Tone]string{
	session.ToneOk:    "42",
	session.ToneError: "196",
	session.ToneInfo:  "33",
}

func init() {
	for i, c := range pixelColors {
		if c != "" {
			pixelStyles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
		}
	}
	for i, fg := range pixelColors {
		for j, bg := range pixelColors {
			if fg != "" && bg != "" {
				pixelBg[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
			}
		}
	}
}

// panel is the bubbletea model and the controller's display. The controller
// calls back into it from inside Update, so it is always used by pointer.
type panel struct {
	ctl *session.Controller

	ports  []string
	cursor int

	status        session.Status
	wave          []int16
	frameIndex    uint64
	refreshGen    uint64
	width, height int
	hotkeyLine    string
	device        string
}

func newPanel(hotkeyLine, device string) *panel {
	return &panel{
		status:     session.Status{Text: "Disconnected", Tone: session.ToneError},
		hotkeyLine: hotkeyLine,
		device:     device,
	}
}

func (m *panel) Status(s session.Status) { m.status = s }

func (m *panel) ShowFrame(f monitor.Frame) {
	m.wave = f.Samples
	m.frameIndex = f.Index
}

func (m *panel) attach(ctl *session.Controller) {
	m.ctl = ctl
	m.rescan()
}

func (m *panel) rescan() {
	m.ports = m.ctl.Ports()
	if m.cursor >= len(m.ports) {
		m.cursor = max(len(m.ports)-1, 0)
	}
}

func (m *panel) selected() string {
	if len(m.ports) == 0 {
		return ptt.NoPortsFound
	}
	return m.ports[m.cursor]
}

func refreshTick(gen uint64) tea.Cmd {
	return tea.Tick(monitor.RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg{gen: gen, at: t}
	})
}

func NewTUIProgram(m *panel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m *panel) Init() tea.Cmd {
	return nil
}

func (m *panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m, m.handleKey(msg.String())

	case refreshMsg:
		// Stopping the monitor ends the loop by not re-arming. A tick left
		// over from an earlier monitor session is dropped.
		if msg.gen != m.refreshGen {
			return m, nil
		}
		if m.ctl.Refresh() {
			return m, refreshTick(m.refreshGen)
		}

	case pttMsg:
		m.ctl.KeyPTT(msg.Keyed)

	case shutdownMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *panel) handleKey(key string) tea.Cmd {
	switch key {
	case "ctrl+c", "q":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.ports)-1 {
			m.cursor++
		}
	case "r":
		m.rescan()
	case "c", "enter":
		if !m.ctl.Connected() && ptt.Selectable(m.selected()) {
			m.ctl.Connect(m.selected())
		}
	case "d":
		m.ctl.Disconnect()
	case " ", "p":
		if m.ctl.PTTEnabled() {
			m.ctl.TogglePTT()
		}
	case "m":
		on, _ := m.ctl.ToggleMonitor()
		if on {
			m.wave = nil
			m.refreshGen++
			return refreshTick(m.refreshGen)
		}
	}
	return nil
}

func (m *panel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	bold := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)

	var left []string
	left = append(left, renderWaveform(m.wave, waveWidth, waveHeight))

	if m.ctl.Monitoring() {
		mon := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true).
			Render(fmt.Sprintf("◉ MONITOR frame %d", m.frameIndex))
		left = append(left, mon+dim.Render(fmt.Sprintf("  dropped %d", m.ctl.Pipeline().Dropped())))
	} else {
		left = append(left, dim.Render("○ MONITOR OFF"))
	}
	left = append(left, dim.Render("input: "+m.device))
	left = append(left, dim.Render("save:  "+m.ctl.Dest()))

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(toneColors[m.status.Tone]))
	left = append(left, "", statusStyle.Render("Status: "+m.status.Text))

	// Right panel: ports and keying
	var right []string
	right = append(right, lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Render("Serial ports"), "")
	for i, p := range m.ports {
		line := "  " + p
		style := dim
		if i == m.cursor {
			line = "> " + p
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}
		if p == m.ctl.Endpoint() {
			line += " (connected)"
		} else if desc := m.ctl.Describe(p); desc != "" {
			line += " " + desc
		}
		right = append(right, style.Render(line))
	}
	right = append(right, "")

	switch {
	case m.ctl.Keyed():
		right = append(right, lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).
			Render("● TX  "+m.ctl.Line().String()+" high"))
	case m.ctl.PTTEnabled():
		right = append(right, lipgloss.NewStyle().Foreground(lipgloss.Color("42")).
			Render("○ RX  "+m.ctl.Line().String()+" low"))
	default:
		right = append(right, dim.Render("PTT disabled"))
	}

	right = append(right, "",
		bold.Render("c")+help.Render(" connect  ")+bold.Render("d")+help.Render(" disconnect  ")+bold.Render("r")+help.Render(" rescan"),
		bold.Render("space")+help.Render(" PTT  ")+bold.Render("m")+help.Render(" monitor  ")+bold.Render("q")+help.Render(" quit"),
	)
	if m.hotkeyLine != "" {
		right = append(right, help.Render(m.hotkeyLine))
	}
	right = append(right, help.Render("vx2 "+version))

	leftPanel := lipgloss.NewStyle().
		Width(waveWidth + 2).
		Render(strings.Join(left, "\n"))
	rightWidth := max(m.width-waveWidth-3, 20)
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		PaddingLeft(1).
		Render(strings.Join(right, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

// renderWaveform draws samples as min/max columns using half-block
// characters, two pixel rows per text row.
func renderWaveform(samples []int16, charsW, charsH int) string {
	pixH := charsH * 2
	center := pixH / 2
	pixels := make([][]int, pixH)
	for i := range pixels {
		pixels[i] = make([]int, charsW)
	}

	toRow := func(s int16) int {
		row := center - int(s)*center/32768
		return min(max(row, 0), pixH-1)
	}

	for x := 0; x < charsW; x++ {
		top, bot := center, center
		if len(samples) > 0 {
			lo := x * len(samples) / charsW
			hi := max((x+1)*len(samples)/charsW, lo+1)
			hi = min(hi, len(samples))
			var minS, maxS int16
			for _, s := range samples[lo:hi] {
				minS = min(minS, s)
				maxS = max(maxS, s)
			}
			top, bot = toRow(maxS), toRow(minS)
		}
		for y := top; y <= bot; y++ {
			dist := y - center
			if dist < 0 {
				dist = -dist
			}
			pixels[y][x] = min(1+dist*(len(pixelColors)-2)/max(center, 1), len(pixelColors)-1)
		}
	}

	var result strings.Builder
	for cy := 0; cy < charsH; cy++ {
		for cx := 0; cx < charsW; cx++ {
			top := pixels[cy*2][cx]
			bot := pixels[cy*2+1][cx]
			switch {
			case top == 0 && bot == 0:
				result.WriteString(" ")
			case top == bot:
				result.WriteString(pixelStyles[top].Render("█"))
			case bot == 0:
				result.WriteString(pixelStyles[top].Render("▀"))
			case top == 0:
				result.WriteString(pixelStyles[bot].Render("▄"))
			default:
				result.WriteString(pixelBg[top][bot].Render("▀"))
			}
		}
		if cy < charsH-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}
