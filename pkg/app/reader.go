package app

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"pkt.systems/pslog"

	"sermonizer/pkg/history"
	"sermonizer/pkg/timestamp"
)

// ReadBufferSize is the size of the reader's reusable receive buffer.
const ReadBufferSize = 4096

// ReaderConfig controls how received bytes are presented and recorded.
type ReaderConfig struct {
	Hex        bool
	Timestamps bool
	RxLog      *history.Sink
	Session    *Session
	Logger     pslog.Logger
	Clock      func() time.Time
}

// Reader pulls bytes off the transport for as long as the run flag is set,
// hands formatted text to the dispatcher and mirrors raw bytes to the RX log.
type Reader struct {
	port    Transport
	running *atomic.Bool
	inbox   *Inbox
	config  ReaderConfig
	stamps  *timestamp.Cache
	log     pslog.Logger

	buf     []byte
	text    []byte
	display []byte
	decoder textDecoder
}

// NewReader creates a reader. running is shared with the dispatcher side and
// cleared to stop the loop.
func NewReader(port Transport, running *atomic.Bool, inbox *Inbox, config ReaderConfig) *Reader {
	log := config.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Reader{
		port:    port,
		running: running,
		inbox:   inbox,
		config:  config,
		stamps:  timestamp.NewCache(config.Clock),
		log:     log.With("component", "reader"),
		buf:     make([]byte, ReadBufferSize),
	}
}

// Run loops until the run flag is cleared or the transport fails. Timeouts
// are not errors; any other read failure ends the loop and is returned.
func (r *Reader) Run() error {
	r.log.Debug("reader started", "hex", r.config.Hex, "timestamps", r.config.Timestamps)
	defer r.log.Debug("reader stopped")
	defer r.flush()

	for r.running.Load() {
		n, err := r.port.ReadWithTimeout(r.buf)
		if err != nil {
			r.log.Error("device read failed", "err", err)
			return fmt.Errorf("read from device: %w", err)
		}
		if n == 0 {
			runtime.Gosched()
			continue
		}
		r.process(r.buf[:n])
	}

	return nil
}

func (r *Reader) process(chunk []byte) {
	var stamp string
	if r.config.Timestamps {
		stamp = r.stamps.Now()
	}

	if r.config.Hex {
		r.text = appendHex(r.text[:0], chunk)
		r.text = append(r.text, '\n')
	} else {
		r.text = r.decoder.appendText(r.text[:0], chunk)
	}

	// A read holding only the start of a multi-byte rune shows nothing yet.
	if len(r.text) > 0 {
		r.display = r.display[:0]
		if stamp != "" {
			r.display = appendStamp(r.display, stamp)
		}
		r.display = append(r.display, r.text...)
		r.inbox.Push(string(r.display))
	}

	if r.config.RxLog != nil {
		if r.config.Hex {
			r.config.RxLog.Append(stamp, r.text)
		} else {
			r.config.RxLog.Append(stamp, chunk)
		}
	}

	r.config.Session.UpdateStats(0, int64(len(chunk)))
	r.log.Trace("received", "bytes", len(chunk))
}

// flush shows a multi-byte sequence the device never finished.
func (r *Reader) flush() {
	if tail := r.decoder.flush(nil); len(tail) > 0 {
		r.inbox.Push(string(tail))
	}
}
