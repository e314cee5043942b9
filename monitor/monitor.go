// Package monitor renders the metrics registry on a terminal screen
package monitor

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/lixenwraith/audiosync/core"
	"github.com/lixenwraith/audiosync/status"
)

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleKey   = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleSync  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleValue = tcell.StyleDefault
	styleHint  = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// IsTerminal reports whether stdout is attached to a TTY
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Monitor periodically draws a status registry snapshot
type Monitor struct {
	screen  tcell.Screen
	reg     *status.Registry
	refresh time.Duration
	title   string

	quit     chan struct{}
	quitOnce sync.Once

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a monitor over an initialized screen
func New(screen tcell.Screen, reg *status.Registry, refresh time.Duration, title string) *Monitor {
	return &Monitor{
		screen:  screen,
		reg:     reg,
		refresh: refresh,
		title:   title,
		quit:    make(chan struct{}),
	}
}

// Quit is closed when the user asks to exit
func (m *Monitor) Quit() <-chan struct{} {
	return m.quit
}

// Draw renders one frame
func (m *Monitor) Draw() {
	m.screen.Clear()
	w, h := m.screen.Size()

	m.text(0, 0, w, m.title, styleTitle)

	keyWidth := 0
	snap := m.reg.Snapshot()
	for _, e := range snap {
		keyWidth = max(keyWidth, len(e.Key))
	}

	row := 2
	for _, e := range snap {
		if row >= h-1 {
			break
		}
		ks := styleKey
		if strings.HasPrefix(e.Key, "sync.") {
			ks = styleSync
		}
		m.text(1, row, w, e.Key, ks)
		m.text(keyWidth+3, row, w, e.Value, styleValue)
		row++
	}

	if h > 0 {
		m.text(0, h-1, w, "q/Esc quit", styleHint)
	}
	m.screen.Show()
}

func (m *Monitor) text(x, y, maxX int, s string, style tcell.Style) {
	for _, r := range s {
		if x >= maxX {
			return
		}
		m.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// HandleEvent reacts to input, returns false once the user quit
func (m *Monitor) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if isQuit(ev.Key(), ev.Rune()) {
			m.quitOnce.Do(func() { close(m.quit) })
			return false
		}
	case *tcell.EventResize:
		m.screen.Sync()
		m.Draw()
	}
	return true
}

func isQuit(k tcell.Key, r rune) bool {
	switch k {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return r == 'q' || r == 'Q'
	}
	return false
}

// Start launches the draw and input loops
func (m *Monitor) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.stopCh = make(chan struct{})

	events := make(chan tcell.Event, 16)
	m.wg.Add(2)
	core.Go(func() {
		defer m.wg.Done()
		for {
			ev := m.screen.PollEvent()
			if ev == nil {
				return
			}
			if _, ok := ev.(*tcell.EventInterrupt); ok {
				return
			}
			select {
			case events <- ev:
			case <-m.stopCh:
				return
			}
		}
	})
	core.Go(func() {
		defer m.wg.Done()
		m.loop(events)
	})
}

func (m *Monitor) loop(events <-chan tcell.Event) {
	ticker := time.NewTicker(m.refresh)
	defer ticker.Stop()

	m.Draw()
	for {
		select {
		case <-m.stopCh:
			return
		case ev := <-events:
			if !m.HandleEvent(ev) {
				return
			}
		case <-ticker.C:
			m.Draw()
		}
	}
}

// Stop halts both loops, idempotent; the screen stays open
func (m *Monitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	// A full event queue leaves the poller to exit on Fini
	_ = m.screen.PostEvent(tcell.NewEventInterrupt(nil))
	m.wg.Wait()
}

// Title builds the header line
func Title(name string, hz uint32, rate uint32) string {
	return fmt.Sprintf("%s  %dHz ticks  %dHz audio", name, hz, rate)
}
