package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// rect is a screen region in cells.
type rect struct {
	x, y, width, height int
}

func (r rect) inner() rect {
	return rect{x: r.x + 1, y: r.y + 1, width: r.width - 2, height: r.height - 2}
}

// drawBox draws a single-line border around r with title set into the top
// edge, and clears the interior.
func drawBox(s tcell.Screen, r rect, title string, border, fill tcell.Style) {
	if r.width < 2 || r.height < 2 {
		return
	}
	right := r.x + r.width - 1
	bottom := r.y + r.height - 1

	// Top border
	s.SetContent(r.x, r.y, '┌', nil, border)
	s.SetContent(right, r.y, '┐', nil, border)
	for x := r.x + 1; x < right; x++ {
		s.SetContent(x, r.y, '─', nil, border)
	}

	// Side borders and fill
	for y := r.y + 1; y < bottom; y++ {
		s.SetContent(r.x, y, '│', nil, border)
		s.SetContent(right, y, '│', nil, border)
		for x := r.x + 1; x < right; x++ {
			s.SetContent(x, y, ' ', nil, fill)
		}
	}

	// Bottom border
	s.SetContent(r.x, bottom, '└', nil, border)
	s.SetContent(right, bottom, '┘', nil, border)
	for x := r.x + 1; x < right; x++ {
		s.SetContent(x, bottom, '─', nil, border)
	}

	if title != "" {
		drawText(s, r.x+1, r.y, right, title, border)
	}
}

// drawText draws text from x up to, not including, column limit and returns
// the column after the last drawn cell. Wide runes that would straddle the
// limit are dropped, as are zero-width runes.
func drawText(s tcell.Screen, x, y, limit int, text string, style tcell.Style) int {
	for _, ch := range text {
		if ch == '\t' {
			ch = ' '
		}
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		if x+w > limit {
			break
		}
		s.SetContent(x, y, ch, nil, style)
		x += w
	}
	return x
}

// fillRow paints cells [x, limit) of row y with style.
func fillRow(s tcell.Screen, x, y, limit int, style tcell.Style) {
	for ; x < limit; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}

// tail returns the longest suffix of text that fits in width cells.
func tail(text string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(text)
	used := 0
	i := len(runes)
	for i > 0 {
		ch := runes[i-1]
		if ch == '\t' {
			ch = ' '
		}
		w := runewidth.RuneWidth(ch)
		if used+w > width {
			break
		}
		used += w
		i--
	}
	return string(runes[i:])
}
