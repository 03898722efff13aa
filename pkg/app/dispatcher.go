package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"pkt.systems/pslog"

	"sermonizer/pkg/config"
	"sermonizer/pkg/history"
	"sermonizer/pkg/timestamp"
	"sermonizer/pkg/ui"
)

// DispatcherConfig controls how typed lines are sent and recorded.
type DispatcherConfig struct {
	LineEnding config.LineEnding
	Timestamps bool
	TxLog      *history.Sink
	Session    *Session
	Logger     pslog.Logger
	Clock      func() time.Time
}

// Dispatcher is the foreground loop. It owns State and the screen, merges
// shutdown, received data and key events, and renders only when the view
// changed.
type Dispatcher struct {
	state   *State
	port    Transport
	screen  tcell.Screen
	running *atomic.Bool
	inbox   *Inbox
	config  DispatcherConfig
	stamps  *timestamp.Cache
	log     pslog.Logger

	pending []string
	sent    []byte
}

// NewDispatcher creates a dispatcher drawing on screen. The screen must
// already be initialized.
func NewDispatcher(port Transport, screen tcell.Screen, running *atomic.Bool, inbox *Inbox, config DispatcherConfig) *Dispatcher {
	log := config.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Dispatcher{
		state:   NewState(),
		port:    port,
		screen:  screen,
		running: running,
		inbox:   inbox,
		config:  config,
		stamps:  timestamp.NewCache(config.Clock),
		log:     log.With("component", "dispatcher"),
	}
}

// State exposes the dispatcher's model. Only safe to use from the
// dispatcher goroutine or after Run returned.
func (d *Dispatcher) State() *State {
	return d.state
}

// Run processes events until the user quits, the run flag is cleared or ctx
// is cancelled. A failed write is returned as a fatal error.
func (d *Dispatcher) Run(ctx context.Context, events <-chan tcell.Event) error {
	d.render()

	for d.running.Load() && !d.state.ShouldQuit() {
		select {
		case <-ctx.Done():
			d.log.Debug("shutdown requested", "cause", context.Cause(ctx))
			d.state.Quit()
			return nil
		case <-d.inbox.Ready():
			d.pending = d.inbox.Drain(d.pending[:0])
			for _, text := range d.pending {
				d.state.Append(text)
			}
			clear(d.pending)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := d.handleEvent(ev); err != nil {
				return err
			}
		}

		if d.state.Dirty() {
			d.render()
		}
	}

	return nil
}

func (d *Dispatcher) handleEvent(ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return d.handleKey(ev)
	case *tcell.EventResize:
		d.screen.Sync()
		d.state.MarkDirty()
	}
	return nil
}

func (d *Dispatcher) handleKey(ev *tcell.EventKey) error {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlD, tcell.KeyEscape:
		d.log.Debug("quit key", "key", ev.Name())
		d.state.Quit()
	case tcell.KeyCtrlA:
		d.state.ResumeAutoScroll()
	case tcell.KeyEnter:
		return d.send()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		d.state.Backspace()
	case tcell.KeyUp:
		d.state.ScrollUp()
	case tcell.KeyDown:
		d.state.ScrollDown()
	case tcell.KeyPgUp:
		d.state.PageUp()
	case tcell.KeyPgDn:
		d.state.PageDown()
	case tcell.KeyHome:
		d.state.ScrollHome()
	case tcell.KeyEnd:
		d.state.ScrollEnd()
	case tcell.KeyRune:
		d.state.InsertRune(ev.Rune())
	}
	return nil
}

// send transmits the input line followed by the line ending. The TX log gets
// one record per send holding exactly the bytes that reached the device.
func (d *Dispatcher) send() error {
	line := d.state.TakeInput()
	ending := d.config.LineEnding.Bytes()

	d.sent = d.sent[:0]
	var err error
	for _, part := range [][]byte{[]byte(line), ending} {
		if len(part) == 0 {
			continue
		}
		if err = d.port.WriteAll(part); err != nil {
			break
		}
		d.sent = append(d.sent, part...)
	}

	if len(d.sent) > 0 {
		if d.config.TxLog != nil {
			var stamp string
			if d.config.Timestamps {
				stamp = d.stamps.Now()
			}
			d.config.TxLog.Append(stamp, d.sent)
		}
		d.config.Session.UpdateStats(int64(len(d.sent)), 0)
	}

	if err != nil {
		d.log.Error("device write failed", "err", err)
		return fmt.Errorf("write to device: %w", err)
	}
	d.log.Trace("sent", "bytes", len(d.sent))
	return nil
}

func (d *Dispatcher) render() {
	ui.Draw(d.screen, d.state.View())
	d.screen.Show()
	d.state.MarkRendered()
}
