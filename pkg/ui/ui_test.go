package ui

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func newScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s.SetSize(width, height)
	t.Cleanup(s.Fini)
	return s
}

func row(s tcell.SimulationScreen, y int) string {
	cells, width, _ := s.GetContents()
	var b strings.Builder
	for x := 0; x < width; x++ {
		c := cells[y*width+x]
		if len(c.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return b.String()
}

func background(s tcell.SimulationScreen, x, y int) tcell.Color {
	cells, width, _ := s.GetContents()
	_, bg, _ := cells[y*width+x].Style.Decompose()
	return bg
}

func numbered(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %02d", i)
	}
	return lines
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name                string
		total, anchor, rows int
		wantStart, wantEnd  int
	}{
		{name: "empty", total: 0, anchor: -1, rows: 5, wantStart: 0, wantEnd: 0},
		{name: "fits", total: 3, anchor: 2, rows: 5, wantStart: 0, wantEnd: 3},
		{name: "anchor at bottom", total: 20, anchor: 19, rows: 5, wantStart: 15, wantEnd: 20},
		{name: "anchor near top", total: 20, anchor: 2, rows: 5, wantStart: 0, wantEnd: 5},
		{name: "anchor in middle", total: 20, anchor: 10, rows: 5, wantStart: 6, wantEnd: 11},
		{name: "anchor out of range", total: 20, anchor: 40, rows: 5, wantStart: 15, wantEnd: 20},
		{name: "no rows", total: 20, anchor: 19, rows: 0, wantStart: 0, wantEnd: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Window(tt.total, tt.anchor, tt.rows)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Window(%d, %d, %d) = %d, %d, want %d, %d",
					tt.total, tt.anchor, tt.rows, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestDraw_Empty(t *testing.T) {
	s := newScreen(t, 120, 10)
	Draw(s, View{Anchor: -1, AutoScroll: true})
	s.Show()

	if top := row(s, 0); !strings.Contains(top, "Auto-scroll ON") {
		t.Errorf("top border = %q, want auto-scroll ON title", top)
	}
	if got := row(s, 7); !strings.Contains(got, inputTitle) {
		t.Errorf("input border = %q, want input title", got)
	}
	x, y, visible := s.GetCursor()
	if !visible || x != 1 || y != 8 {
		t.Errorf("cursor = (%d, %d, %v), want (1, 8, true)", x, y, visible)
	}
}

func TestDraw_FollowsNewest(t *testing.T) {
	s := newScreen(t, 40, 10)
	lines := numbered(20)
	Draw(s, View{Lines: lines, Anchor: 19, AutoScroll: true})
	s.Show()

	// 10 rows minus the input box and the output borders leaves 5.
	for i := 0; i < 5; i++ {
		want := lines[15+i]
		if got := row(s, 1+i); !strings.HasPrefix(got, "│"+want) {
			t.Errorf("row %d = %q, want %q", 1+i, got, want)
		}
	}
	if got := background(s, 1, 5); got == tcell.ColorWhite {
		t.Error("newest line highlighted while following")
	}
}

func TestDraw_ManualHighlightsAnchor(t *testing.T) {
	s := newScreen(t, 40, 10)
	lines := numbered(20)
	Draw(s, View{Lines: lines, Anchor: 3, AutoScroll: false})
	s.Show()

	if top := row(s, 0); !strings.Contains(top, "Auto-scroll OFF") {
		t.Errorf("top border = %q, want auto-scroll OFF title", top)
	}
	if got := row(s, 4); !strings.HasPrefix(got, "│line 03") {
		t.Errorf("anchor row = %q", got)
	}
	if got := background(s, 1, 4); got != tcell.ColorWhite {
		t.Errorf("anchor background = %v, want white", got)
	}
	if got := background(s, 30, 4); got != tcell.ColorWhite {
		t.Errorf("anchor row not filled to the border, background = %v", got)
	}
	if got := background(s, 1, 3); got == tcell.ColorWhite {
		t.Error("non-anchor row highlighted")
	}
}

func TestDraw_InputCursor(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		input   string
		wantX   int
		wantRow string
	}{
		{name: "ascii", width: 40, input: "hello", wantX: 6, wantRow: "│hello"},
		{name: "wide runes", width: 40, input: "日本", wantX: 5},
		{name: "long input shows tail", width: 12, input: "abcdefghijklmnop", wantX: 10, wantRow: "│hijklmnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScreen(t, tt.width, 10)
			Draw(s, View{Anchor: -1, AutoScroll: true, Input: tt.input})
			s.Show()

			x, y, _ := s.GetCursor()
			if x != tt.wantX || y != 8 {
				t.Errorf("cursor = (%d, %d), want (%d, 8)", x, y, tt.wantX)
			}
			if tt.wantRow != "" {
				if got := row(s, 8); !strings.HasPrefix(got, tt.wantRow) {
					t.Errorf("input row = %q, want prefix %q", got, tt.wantRow)
				}
			}
		})
	}
}

func TestDraw_Deterministic(t *testing.T) {
	v := View{Lines: numbered(50), Anchor: 30, AutoScroll: false, Input: "abc"}

	s := newScreen(t, 60, 20)
	Draw(s, v)
	s.Show()
	first, _, _ := s.GetContents()
	first = append([]tcell.SimCell(nil), first...)

	Draw(s, View{Lines: numbered(3), Anchor: 2, AutoScroll: true})
	s.Show()
	Draw(s, v)
	s.Show()
	second, _, _ := s.GetContents()

	if !reflect.DeepEqual(first, second) {
		t.Error("drawing the same view twice produced different cells")
	}
}

func TestDraw_TinyScreen(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {2, 2}, {10, 3}, {10, 4}} {
		s := newScreen(t, size[0], size[1])
		Draw(s, View{Lines: numbered(5), Anchor: 4, AutoScroll: true, Input: "x"})
		s.Show()
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "llo"},
		{"hello", 0, ""},
		{"a日本", 3, "本"},
		{"a日本", 5, "a日本"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.text, tt.width), func(t *testing.T) {
			if got := tail(tt.text, tt.width); got != tt.want {
				t.Errorf("tail(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}
