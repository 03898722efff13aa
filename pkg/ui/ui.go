// Package ui draws the monitor layout: a scrollback pane above a one-line
// input box.
package ui

import "github.com/gdamore/tcell/v2"

// InputHeight is the number of rows taken by the bordered input box.
const InputHeight = 3

const inputTitle = "Input (Press Enter to send, Ctrl+C or Esc to exit)"

var (
	borderStyle    = tcell.StyleDefault
	outputStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	highlightStyle = tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack)
	inputStyle     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// View is everything the renderer needs from one frame of state.
type View struct {
	// Lines is the scrollback, oldest first.
	Lines []string
	// Anchor is the index kept visible at the bottom of the pane, -1 when
	// Lines is empty.
	Anchor int
	// AutoScroll reports whether the pane follows new output. When false
	// the anchor line is highlighted.
	AutoScroll bool
	// Input is the line being typed.
	Input string
}

// OutputTitle returns the scrollback pane title for the given mode.
func OutputTitle(autoScroll bool) string {
	if autoScroll {
		return "Serial Monitor (Auto-scroll ON - ↑↓/PgUp/PgDn to scroll, Ctrl+A to re-enable auto-scroll)"
	}
	return "Serial Monitor (Auto-scroll OFF - ↑↓/PgUp/PgDn to scroll, Ctrl+A to re-enable auto-scroll)"
}

// Window returns the half-open range of lines shown in a pane of height rows:
// the lowest offset that keeps anchor on screen, with anchor on the last row
// once there is enough history.
func Window(total, anchor, height int) (start, end int) {
	if total <= 0 || height <= 0 {
		return 0, 0
	}
	if anchor < 0 || anchor >= total {
		anchor = total - 1
	}
	start = max(0, anchor-height+1)
	end = min(total, start+height)
	return start, end
}

// Draw lays out v on s. It does not call Show. The result depends only on v
// and the screen size.
func Draw(s tcell.Screen, v View) {
	s.Clear()
	width, height := s.Size()

	if width < 3 || height < InputHeight {
		s.HideCursor()
		return
	}

	input := rect{x: 0, y: height - InputHeight, width: width, height: InputHeight}
	output := rect{x: 0, y: 0, width: width, height: height - InputHeight}

	drawOutput(s, output, v)
	drawInput(s, input, v.Input)
}

func drawOutput(s tcell.Screen, r rect, v View) {
	if r.height < 2 {
		return
	}
	drawBox(s, r, OutputTitle(v.AutoScroll), borderStyle, outputStyle)

	in := r.inner()
	limit := in.x + in.width
	start, end := Window(len(v.Lines), v.Anchor, in.height)
	for i := start; i < end; i++ {
		y := in.y + i - start
		style := outputStyle
		if !v.AutoScroll && i == v.Anchor {
			style = highlightStyle
			fillRow(s, in.x, y, limit, style)
		}
		drawText(s, in.x, y, limit, v.Lines[i], style)
	}
}

func drawInput(s tcell.Screen, r rect, text string) {
	drawBox(s, r, inputTitle, borderStyle, inputStyle)

	in := r.inner()
	// One cell stays free for the cursor.
	visible := tail(text, in.width-1)
	x := drawText(s, in.x, in.y, in.x+in.width, visible, inputStyle)
	s.ShowCursor(x, in.y)
}
