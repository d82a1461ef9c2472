// SPDX-License-Identifier: MIT
// Package tui renders the terminal player: a live bar visualizer over the
// published frame stream plus playlist and transport controls.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spectra/internal/player"
	"spectra/internal/playlist"
	"spectra/internal/transport"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	barLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	barMidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0C526"))
	barHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C54A26"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	barHeight   = 10
	seekStep    = 5.0
	volumeStep  = 0.05
	refreshRate = 200 * time.Millisecond
)

// Controls is the slice of the player the UI drives.
type Controls interface {
	Toggle() error
	Next() error
	Prev() error
	Seek(seconds float64) error
	SetVolume(v float64)
	State() player.PlaybackState
}

type keyMap struct {
	Toggle  key.Binding
	Next    key.Binding
	Prev    key.Binding
	SeekFwd key.Binding
	SeekBck key.Binding
	VolUp   key.Binding
	VolDown key.Binding
	Shuffle key.Binding
	Repeat  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Toggle:  key.NewBinding(key.WithKeys(" ")),
	Next:    key.NewBinding(key.WithKeys("n")),
	Prev:    key.NewBinding(key.WithKeys("p")),
	SeekFwd: key.NewBinding(key.WithKeys("right", "l")),
	SeekBck: key.NewBinding(key.WithKeys("left", "h")),
	VolUp:   key.NewBinding(key.WithKeys("+", "=")),
	VolDown: key.NewBinding(key.WithKeys("-")),
	Shuffle: key.NewBinding(key.WithKeys("s")),
	Repeat:  key.NewBinding(key.WithKeys("r")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

type frameMsg transport.Frame

type tickMsg time.Time

// Model is the Bubble Tea model for the player screen.
type Model struct {
	controls Controls
	list     *playlist.Playlist
	frames   <-chan transport.Frame

	latest transport.Frame
	state  player.PlaybackState
	width  int
	err    error
}

// NewModel builds the player screen. frames is the UI's slice of the
// publisher's fan-out.
func NewModel(controls Controls, list *playlist.Playlist, frames <-chan transport.Frame) Model {
	return Model{
		controls: controls,
		list:     list,
		frames:   frames,
		state:    controls.State(),
	}
}

// Init starts the frame listener and the paused-state refresh tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitFrame(), tick())
}

func (m Model) waitFrame() tea.Cmd {
	frames := m.frames
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return frameMsg(f)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case frameMsg:
		m.latest = transport.Frame(msg)
		m.state = m.controls.State()
		return m, m.waitFrame()

	case tickMsg:
		// Frames stop while paused; keep the state line fresh anyway.
		m.state = m.controls.State()
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Toggle):
		m.err = m.controls.Toggle()

	case key.Matches(msg, keys.Next):
		m.err = m.controls.Next()

	case key.Matches(msg, keys.Prev):
		m.err = m.controls.Prev()

	case key.Matches(msg, keys.SeekFwd):
		m.err = m.controls.Seek(m.state.CurrentTime + seekStep)

	case key.Matches(msg, keys.SeekBck):
		m.err = m.controls.Seek(m.state.CurrentTime - seekStep)

	case key.Matches(msg, keys.VolUp):
		m.controls.SetVolume(m.state.Volume + volumeStep)

	case key.Matches(msg, keys.VolDown):
		m.controls.SetVolume(m.state.Volume - volumeStep)

	case key.Matches(msg, keys.Shuffle):
		m.list.SetShuffle(!m.list.Shuffle())

	case key.Matches(msg, keys.Repeat):
		m.list.SetRepeat((m.list.Repeat() + 1) % 3)
	}

	m.state = m.controls.State()
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("spectra"))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderBars())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderPlaylist())
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("space: Play/Pause • n/p: Track • ←/→: Seek • +/-: Volume • s: Shuffle • r: Repeat • q: Quit"))
	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Error: %v", m.err))
	}
	return sb.String()
}

// renderBars draws the bar field top-down, one column per bar.
func (m Model) renderBars() string {
	bars := m.latest.Bars
	if len(bars) == 0 {
		return dimStyle.Render(strings.Repeat("."+" ", 32)) + "\n"
	}

	var sb strings.Builder
	for row := barHeight; row >= 1; row-- {
		threshold := float64(row) / barHeight
		style := barLowStyle
		if row > barHeight*2/3 {
			style = barHighStyle
		} else if row > barHeight/3 {
			style = barMidStyle
		}

		var line strings.Builder
		for _, v := range bars {
			if v >= threshold {
				line.WriteString("█")
			} else {
				line.WriteString(" ")
			}
			line.WriteString(" ")
		}
		sb.WriteString(style.Render(line.String()))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatus() string {
	playState := "⏸"
	if m.state.IsPlaying {
		playState = "▶"
	}

	line := fmt.Sprintf("%s  %s / %s   vol %3.0f%%   bass %s  level %s  treble %s",
		playState,
		formatTime(m.state.CurrentTime),
		formatTime(m.state.Duration),
		m.state.Volume*100,
		meter(m.latest.Bass),
		meter(m.latest.Level),
		meter(m.latest.Treble),
	)

	flags := []string{}
	if m.list.Shuffle() {
		flags = append(flags, "shuffle")
	}
	switch m.list.Repeat() {
	case playlist.RepeatAll:
		flags = append(flags, "repeat all")
	case playlist.RepeatOne:
		flags = append(flags, "repeat one")
	}
	if len(flags) > 0 {
		line += "   " + highlightStyle.Render(strings.Join(flags, " · "))
	}
	return line
}

func (m Model) renderPlaylist() string {
	tracks := m.list.Tracks()
	if len(tracks) == 0 {
		return dimStyle.Render("Playlist is empty.")
	}

	current := m.list.CurrentIndex()
	var sb strings.Builder
	for i, track := range tracks {
		line := fmt.Sprintf("  [%d] %s", i+1, track.Name)
		if track.Duration > 0 {
			line += dimStyle.Render(fmt.Sprintf("  %s", formatTime(track.Duration.Seconds())))
		}
		if i == current {
			line = highlightStyle.Render(fmt.Sprintf("▶ [%d] %s", i+1, track.Name))
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// meter renders a 5-step level gauge for one scalar in [0,1].
func meter(v float64) string {
	steps := int(v*5 + 0.5)
	if steps > 5 {
		steps = 5
	}
	return "[" + strings.Repeat("■", steps) + strings.Repeat(" ", 5-steps) + "]"
}

func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Run launches the player UI and blocks until the user quits.
func Run(controls Controls, list *playlist.Playlist, frames <-chan transport.Frame) error {
	p := tea.NewProgram(
		NewModel(controls, list, frames),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
