package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"

	"sermonizer/pkg/config"
	"sermonizer/pkg/history"
)

// Runner wires a reader and a dispatcher around one open transport and
// owns the terminal for the duration of the session.
type Runner struct {
	options config.Options
	port    Transport
	screen  tcell.Screen
	sinks   history.Sinks
	session *Session
	clock   func() time.Time
}

// NewRunner creates a runner. The transport and sinks stay owned by the
// caller, which closes them after Run returns.
func NewRunner(options config.Options, port Transport, screen tcell.Screen, sinks history.Sinks) *Runner {
	return &Runner{
		options: options,
		port:    port,
		screen:  screen,
		sinks:   sinks,
		session: NewSession(options.Serial),
	}
}

// Session returns the statistics of the current or last run.
func (r *Runner) Session() *Session {
	return r.session
}

// Run takes over the terminal and blocks until the user quits, ctx is
// cancelled or the transport fails. The terminal is restored before Run
// returns, including when it panics.
func (r *Runner) Run(ctx context.Context) error {
	log := pslog.Ctx(ctx).With("port", r.options.Serial.Port, "session", r.session.ID)

	if err := r.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer r.screen.Fini()

	r.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset))
	r.screen.Clear()

	running := new(atomic.Bool)
	running.Store(true)
	inbox := NewInbox()

	g, gctx := errgroup.WithContext(ctx)

	reader := NewReader(r.port, running, inbox, ReaderConfig{
		Hex:        r.options.Hex,
		Timestamps: r.options.Timestamps,
		RxLog:      r.sinks.For(history.DirectionRX),
		Session:    r.session,
		Logger:     log,
		Clock:      r.clock,
	})
	g.Go(reader.Run)

	events := make(chan tcell.Event)
	stop := make(chan struct{})
	go pumpEvents(r.screen, events, stop)

	dispatcher := NewDispatcher(r.port, r.screen, running, inbox, DispatcherConfig{
		LineEnding: r.options.LineEnding,
		Timestamps: r.options.Timestamps,
		TxLog:      r.sinks.For(history.DirectionTX),
		Session:    r.session,
		Logger:     log,
		Clock:      r.clock,
	})

	log.Info("session started", "baud", r.options.Serial.BaudRate, "line_ending", r.options.LineEnding.String())
	runErr := dispatcher.Run(gctx, events)

	close(stop)
	running.Store(false)
	readErr := g.Wait()
	r.session.End()

	sent, recv := r.session.GetStats()
	log.Info("session ended", "sent", sent, "received", recv, "duration", r.session.Duration())

	return errors.Join(runErr, readErr)
}

// pumpEvents forwards screen events until the screen is finalized or stop
// is closed.
func pumpEvents(screen tcell.Screen, events chan<- tcell.Event, stop <-chan struct{}) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-stop:
			return
		}
	}
}

// PrintSummary writes the session statistics.
func PrintSummary(w io.Writer, s *Session, sinks history.Sinks) {
	bytesSent, bytesRecv := s.GetStats()

	fmt.Fprintf(w, "\n=== Session Summary ===\n")
	fmt.Fprintf(w, "Duration: %v\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Bytes Sent: %d\n", bytesSent)
	fmt.Fprintf(w, "Bytes Received: %d\n", bytesRecv)
	for _, d := range []history.Direction{history.DirectionRX, history.DirectionTX} {
		sink := sinks.For(d)
		if sink == nil || (d == history.DirectionTX && sink == sinks.RX) {
			continue
		}
		st := sink.Stats()
		fmt.Fprintf(w, "Log %s: %s (%d bytes", d, sink.Path(), st.Bytes)
		if st.Failures > 0 {
			fmt.Fprintf(w, ", %d failed writes, last error: %v", st.Failures, sink.Err())
		}
		fmt.Fprintf(w, ")\n")
	}
	fmt.Fprintf(w, "=====================\n")
}
