package app

import (
	"strings"

	"sermonizer/pkg/ui"
)

const (
	// MaxLines is the scrollback capacity; the oldest lines are evicted first.
	MaxLines = 1000
	// PageSize is the PageUp/PageDown step.
	PageSize = 10
)

// State is the dispatcher-owned model of the screen: committed scrollback,
// the unterminated tail of received text, scroll position and the input line.
//
// Scrolling has two modes. While following, the anchor is always the newest
// line. Any manual move switches to positioned mode, where the cursor stays
// put as data arrives and is clamped to the buffer when read. Only
// ResumeAutoScroll returns to following.
type State struct {
	input      []rune
	lines      []string
	partial    string
	cursor     int
	positioned bool
	autoScroll bool
	quit       bool
	dirty      bool
}

// NewState returns an empty state following new output. The first frame is
// pending.
func NewState() *State {
	return &State{
		lines:      make([]string, 0, MaxLines),
		autoScroll: true,
		dirty:      true,
	}
}

// Append feeds received text into the scrollback. Text is split on '\n',
// trailing '\r' is stripped from each line, and an unterminated tail is held
// until a later append completes it.
func (s *State) Append(text string) {
	if text == "" {
		return
	}
	s.partial += text

	committed := false
	for {
		i := strings.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(s.partial[:i], "\r")
		s.lines = append(s.lines, strings.Clone(line))
		s.partial = s.partial[i+1:]
		committed = true
	}
	if !committed {
		return
	}

	if over := len(s.lines) - MaxLines; over > 0 {
		n := copy(s.lines, s.lines[over:])
		clear(s.lines[n:])
		s.lines = s.lines[:n]
	}
	s.dirty = true
}

// Anchor returns the index of the line the view is pinned to, or -1 when
// the buffer is empty.
func (s *State) Anchor() int {
	if len(s.lines) == 0 {
		return -1
	}
	last := len(s.lines) - 1
	if s.autoScroll || !s.positioned {
		return last
	}
	return min(s.cursor, last)
}

// ScrollBy moves the anchor by delta lines, clamped to the buffer, and
// leaves auto-scroll. A no-op on an empty buffer.
func (s *State) ScrollBy(delta int) {
	if len(s.lines) == 0 {
		return
	}
	target := s.Anchor() + delta
	s.setCursor(max(0, min(target, len(s.lines)-1)))
}

// ScrollUp moves one line towards older output.
func (s *State) ScrollUp() { s.ScrollBy(-1) }

// ScrollDown moves one line towards newer output.
func (s *State) ScrollDown() { s.ScrollBy(1) }

// PageUp moves PageSize lines towards older output.
func (s *State) PageUp() { s.ScrollBy(-PageSize) }

// PageDown moves PageSize lines towards newer output.
func (s *State) PageDown() { s.ScrollBy(PageSize) }

// ScrollHome jumps to the oldest line.
func (s *State) ScrollHome() {
	if len(s.lines) == 0 {
		return
	}
	s.setCursor(0)
}

// ScrollEnd jumps to the newest line without resuming auto-scroll.
func (s *State) ScrollEnd() {
	if len(s.lines) == 0 {
		return
	}
	s.setCursor(len(s.lines) - 1)
}

func (s *State) setCursor(i int) {
	s.cursor = i
	s.positioned = true
	s.autoScroll = false
	s.dirty = true
}

// ResumeAutoScroll drops the manual position and follows new output again.
func (s *State) ResumeAutoScroll() {
	s.autoScroll = true
	s.positioned = false
	s.cursor = 0
	s.dirty = true
}

// InsertRune appends r to the input line.
func (s *State) InsertRune(r rune) {
	s.input = append(s.input, r)
	s.dirty = true
}

// Backspace removes the last rune of the input line, if any.
func (s *State) Backspace() {
	if len(s.input) == 0 {
		return
	}
	s.input = s.input[:len(s.input)-1]
	s.dirty = true
}

// TakeInput returns the input line and clears it.
func (s *State) TakeInput() string {
	if len(s.input) == 0 {
		return ""
	}
	line := string(s.input)
	s.input = s.input[:0]
	s.dirty = true
	return line
}

// Quit marks the session as finished.
func (s *State) Quit() {
	s.quit = true
	s.dirty = true
}

// ShouldQuit reports whether Quit was called.
func (s *State) ShouldQuit() bool { return s.quit }

// Dirty reports whether the view changed since the last render.
func (s *State) Dirty() bool { return s.dirty }

// MarkDirty forces the next render, e.g. after a terminal resize.
func (s *State) MarkDirty() { s.dirty = true }

// MarkRendered clears the dirty flag.
func (s *State) MarkRendered() { s.dirty = false }

// AutoScroll reports whether the view follows new output.
func (s *State) AutoScroll() bool { return s.autoScroll }

// Cursor returns the stored manual position and whether one is set.
func (s *State) Cursor() (int, bool) { return s.cursor, s.positioned }

// Lines returns the committed scrollback. The slice must not be modified.
func (s *State) Lines() []string { return s.lines }

// Partial returns the received text not yet terminated by a line feed.
func (s *State) Partial() string { return s.partial }

// Input returns the current input line.
func (s *State) Input() string { return string(s.input) }

// View snapshots what the renderer needs. Lines aliases the scrollback and
// is only valid until the next mutation.
func (s *State) View() ui.View {
	return ui.View{
		Lines:      s.lines,
		Anchor:     s.Anchor(),
		AutoScroll: s.autoScroll,
		Input:      string(s.input),
	}
}
