// Package app runs an interactive monitor session: a background reader
// pulling bytes off the device and a foreground dispatcher owning the screen.
package app

import (
	"fmt"
	"sync"
	"time"

	"sermonizer/pkg/serial"
)

// Transport is the duplex byte link a session talks to. ReadWithTimeout
// returns 0, nil when nothing arrived before the link's read timeout.
type Transport interface {
	ReadWithTimeout(buf []byte) (int, error)
	WriteAll(data []byte) error
}

// Session represents an active monitor session
type Session struct {
	ID        string
	Config    serial.SerialConfig
	StartTime time.Time
	EndTime   *time.Time
	BytesSent int64
	BytesRecv int64
	IsActive  bool
	mu        sync.RWMutex
}

// NewSession creates a new session
func NewSession(config serial.SerialConfig) *Session {
	return &Session{
		ID:        generateSessionID(),
		Config:    config,
		StartTime: time.Now(),
		IsActive:  true,
	}
}

// End marks the session as ended
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsActive {
		return
	}
	now := time.Now()
	s.EndTime = &now
	s.IsActive = false
}

// UpdateStats updates session statistics. A nil session ignores updates.
func (s *Session) UpdateStats(bytesSent, bytesRecv int64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BytesSent += bytesSent
	s.BytesRecv += bytesRecv
}

// GetStats returns session statistics
func (s *Session) GetStats() (bytesSent, bytesRecv int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.BytesSent, s.BytesRecv
}

// Duration returns how long the session ran, or has run so far.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
