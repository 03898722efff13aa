// Package history mirrors session traffic to append-only log files
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Direction represents the direction of data flow
type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionRX:
		return "rx"
	case DirectionTX:
		return "tx"
	default:
		return "unknown"
	}
}

// Stats summarizes what a Sink has written.
type Stats struct {
	Appends  int   `json:"appends"`
	Bytes    int64 `json:"bytes"`
	Failures int   `json:"failures"`
}

// Sink is a best-effort append-only log destination. Every Append is written
// and flushed under the sink's own lock; failures are counted and dropped so
// logging never interrupts the session. A nil *Sink discards everything.
type Sink struct {
	mu      sync.Mutex
	path    string
	out     io.Writer
	closer  io.Closer
	w       *bufio.Writer
	stats   Stats
	lastErr error
}

// Open opens path for appending, creating it if needed. Existing content is
// never truncated.
func Open(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	s := NewSink(file)
	s.path = path
	s.closer = file
	return s, nil
}

// NewSink wraps an arbitrary writer. The writer is not closed by Close.
func NewSink(w io.Writer) *Sink {
	return &Sink{out: w, w: bufio.NewWriter(w)}
}

// Path returns the file path the sink was opened with, if any.
func (s *Sink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Append writes "[stamp] " followed by every chunk as one record. An empty
// stamp writes the chunks bare, and a record with no bytes writes nothing.
func (s *Sink) Append(stamp string, chunks ...[]byte) {
	if s == nil {
		return
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		s.fail(os.ErrClosed)
		return
	}

	if stamp != "" {
		s.w.WriteByte('[')
		s.w.WriteString(stamp)
		s.w.WriteString("] ")
	}
	for _, c := range chunks {
		s.w.Write(c)
	}

	if err := s.w.Flush(); err != nil {
		s.fail(err)
		// bufio.Writer stays failed after an error.
		s.w.Reset(s.out)
		return
	}

	s.stats.Appends++
	s.stats.Bytes += int64(total)
}

func (s *Sink) fail(err error) {
	s.stats.Failures++
	s.lastErr = err
}

// Stats returns a snapshot of the sink counters.
func (s *Sink) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err returns the most recent write failure, if any.
func (s *Sink) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close flushes and closes the sink. Further appends are counted as failures.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return nil
	}

	err := s.w.Flush()
	s.w = nil
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

// Sinks pairs the RX and TX logs of a session. Either may be nil.
type Sinks struct {
	RX *Sink
	TX *Sink
}

// OpenSinks opens the RX and TX logs. Empty paths disable a direction, and
// equal paths share one Sink so records from both directions interleave
// through a single lock.
func OpenSinks(rxPath, txPath string) (Sinks, error) {
	var sinks Sinks
	var err error

	if rxPath != "" {
		if sinks.RX, err = Open(rxPath); err != nil {
			return Sinks{}, err
		}
	}

	if txPath != "" {
		if txPath == rxPath {
			sinks.TX = sinks.RX
		} else if sinks.TX, err = Open(txPath); err != nil {
			sinks.RX.Close()
			return Sinks{}, err
		}
	}

	return sinks, nil
}

// For returns the sink for the given direction.
func (s Sinks) For(d Direction) *Sink {
	switch d {
	case DirectionRX:
		return s.RX
	case DirectionTX:
		return s.TX
	default:
		return nil
	}
}

// Close closes both sinks, closing a shared sink once.
func (s Sinks) Close() error {
	err := s.RX.Close()
	if s.TX != s.RX {
		err = errors.Join(err, s.TX.Close())
	}
	return err
}
