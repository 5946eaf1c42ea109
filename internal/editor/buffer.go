// Package editor holds the text being edited: lines of runes, a cursor and
// an undo history. It is owned by the UI goroutine and is not safe for
// concurrent use.
package editor

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the format of text inserted by InsertTimestamp.
const TimestampLayout = "2006-01-02 15:04:05"

type Buffer struct {
	lines    [][]rune
	row, col int
	// goal column kept across vertical moves through shorter lines
	goal     int
	modified bool
	tabWidth int

	// the selection runs from the anchor to the cursor while selecting
	selecting            bool
	anchorRow, anchorCol int
}

// NewBuffer returns a buffer holding content with the cursor at the start.
func NewBuffer(content string, tabWidth int) *Buffer {
	if tabWidth <= 0 {
		tabWidth = 4
	}
	b := &Buffer{tabWidth: tabWidth}
	b.SetContent(content)
	return b
}

// SetContent replaces everything, moves the cursor home and clears the
// modified flag.
func (b *Buffer) SetContent(content string) {
	parts := strings.Split(content, "\n")
	b.lines = make([][]rune, len(parts))
	for i, p := range parts {
		b.lines[i] = []rune(p)
	}
	b.row, b.col, b.goal = 0, 0, 0
	b.selecting = false
	b.modified = false
}

// Replace swaps in new content as an edit: the cursor stays at the same
// offset where possible and the buffer is marked modified.
func (b *Buffer) Replace(content string) {
	off := b.Offset()
	b.SetContent(content)
	b.SetOffset(off)
	b.modified = true
}

func (b *Buffer) Content() string {
	parts := make([]string, len(b.lines))
	for i, l := range b.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = string(l)
	}
	return out
}

func (b *Buffer) LineCount() int { return len(b.lines) }

func (b *Buffer) Line(i int) string {
	if i < 0 || i >= len(b.lines) {
		return ""
	}
	return string(b.lines[i])
}

// TabWidth is the distance between tab stops.
func (b *Buffer) TabWidth() int { return b.tabWidth }

func (b *Buffer) Empty() bool { return len(b.lines) == 1 && len(b.lines[0]) == 0 }

func (b *Buffer) Modified() bool { return b.modified }

// MarkSaved clears the modified flag.
func (b *Buffer) MarkSaved() { b.modified = false }

// Cursor returns the zero-based row and rune column.
func (b *Buffer) Cursor() (row, col int) { return b.row, b.col }

// Position renders the cursor the way the status bar shows it.
func (b *Buffer) Position() string {
	return fmt.Sprintf("Ln %d, Col %d", b.row+1, b.col+1)
}

// SetCursor moves to row, col clamped into the buffer.
func (b *Buffer) SetCursor(row, col int) {
	b.row = clamp(row, 0, len(b.lines)-1)
	b.col = clamp(col, 0, len(b.lines[b.row]))
	b.goal = b.col
}

// Offset is the cursor position in runes from the start of Content, with
// each line break counting as one rune.
func (b *Buffer) Offset() int { return b.offsetOf(b.row, b.col) }

// SetOffset places the cursor at a rune offset into Content.
func (b *Buffer) SetOffset(off int) {
	if off < 0 {
		off = 0
	}
	for i, l := range b.lines {
		if off <= len(l) {
			b.SetCursor(i, off)
			return
		}
		off -= len(l) + 1
	}
	last := len(b.lines) - 1
	b.SetCursor(last, len(b.lines[last]))
}

// Insert types text at the cursor. Line breaks split the current line.
func (b *Buffer) Insert(text string) {
	if text == "" {
		return
	}
	b.DeleteSelection()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			b.splitLine()
		}
		b.insertRunes([]rune(part))
	}
	b.goal = b.col
	b.modified = true
}

func (b *Buffer) InsertRune(r rune) { b.Insert(string(r)) }

// InsertTab inserts spaces up to the next tab stop.
func (b *Buffer) InsertTab() {
	b.DeleteSelection()
	n := b.tabWidth - b.col%b.tabWidth
	b.Insert(strings.Repeat(" ", n))
}

// InsertTimestamp inserts now formatted with TimestampLayout.
func (b *Buffer) InsertTimestamp(now time.Time) {
	b.Insert(now.Format(TimestampLayout))
}

func (b *Buffer) Newline() {
	b.DeleteSelection()
	b.splitLine()
	b.goal = 0
	b.modified = true
}

// Backspace removes the selection, or the rune before the cursor, joining
// with the previous line at column zero.
func (b *Buffer) Backspace() {
	if b.DeleteSelection() != "" {
		return
	}
	switch {
	case b.col > 0:
		line := b.lines[b.row]
		b.lines[b.row] = append(line[:b.col-1:b.col-1], line[b.col:]...)
		b.col--
	case b.row > 0:
		prev := b.lines[b.row-1]
		b.col = len(prev)
		b.lines[b.row-1] = append(prev[:len(prev):len(prev)], b.lines[b.row]...)
		b.lines = append(b.lines[:b.row], b.lines[b.row+1:]...)
		b.row--
	default:
		return
	}
	b.goal = b.col
	b.modified = true
}

// Delete removes the selection, or the rune under the cursor, joining with
// the next line at the end of a line.
func (b *Buffer) Delete() {
	if b.DeleteSelection() != "" {
		return
	}
	line := b.lines[b.row]
	switch {
	case b.col < len(line):
		b.lines[b.row] = append(line[:b.col:b.col], line[b.col+1:]...)
	case b.row < len(b.lines)-1:
		b.lines[b.row] = append(line[:len(line):len(line)], b.lines[b.row+1]...)
		b.lines = append(b.lines[:b.row+1], b.lines[b.row+2:]...)
	default:
		return
	}
	b.modified = true
}

// CutLine removes the current line and returns it with its line break.
// On the only line the text is cleared instead.
func (b *Buffer) CutLine() string {
	b.selecting = false
	text := string(b.lines[b.row])
	if len(b.lines) == 1 {
		if text == "" {
			return ""
		}
		b.lines[0] = nil
		b.col, b.goal = 0, 0
		b.modified = true
		return text
	}
	b.lines = append(b.lines[:b.row], b.lines[b.row+1:]...)
	if b.row >= len(b.lines) {
		b.row = len(b.lines) - 1
	}
	b.col = min(b.goal, len(b.lines[b.row]))
	b.modified = true
	return text + "\n"
}

func (b *Buffer) CurrentLine() string { return string(b.lines[b.row]) }

func (b *Buffer) Left() {
	if b.col > 0 {
		b.col--
	} else if b.row > 0 {
		b.row--
		b.col = len(b.lines[b.row])
	}
	b.goal = b.col
}

func (b *Buffer) Right() {
	if b.col < len(b.lines[b.row]) {
		b.col++
	} else if b.row < len(b.lines)-1 {
		b.row++
		b.col = 0
	}
	b.goal = b.col
}

func (b *Buffer) Up()   { b.vertical(-1) }
func (b *Buffer) Down() { b.vertical(1) }

func (b *Buffer) PageUp(n int)   { b.vertical(-max(n, 1)) }
func (b *Buffer) PageDown(n int) { b.vertical(max(n, 1)) }

func (b *Buffer) Home() {
	b.col = 0
	b.goal = 0
}

func (b *Buffer) End() {
	b.col = len(b.lines[b.row])
	b.goal = b.col
}

// GotoLine moves to the start of the one-based line n.
func (b *Buffer) GotoLine(n int) error {
	if n < 1 || n > len(b.lines) {
		return fmt.Errorf("line %d out of range 1-%d", n, len(b.lines))
	}
	b.SetCursor(n-1, 0)
	return nil
}

// Select starts a selection at the cursor unless one is already being
// extended. Moving the cursor afterwards grows or shrinks it.
func (b *Buffer) Select() {
	if b.selecting {
		return
	}
	b.selecting = true
	b.anchorRow, b.anchorCol = b.row, b.col
}

// SelectAll selects the whole document and leaves the cursor at its end.
func (b *Buffer) SelectAll() {
	b.selecting = true
	b.anchorRow, b.anchorCol = 0, 0
	b.row = len(b.lines) - 1
	b.col = len(b.lines[b.row])
	b.goal = b.col
}

func (b *Buffer) ClearSelection() { b.selecting = false }

// HasSelection reports whether a non-empty range is selected.
func (b *Buffer) HasSelection() bool {
	return b.selecting && (b.anchorRow != b.row || b.anchorCol != b.col)
}

// Selection returns the selected range as rune offsets into Content.
func (b *Buffer) Selection() (start, end int, ok bool) {
	if !b.HasSelection() {
		return 0, 0, false
	}
	sr, sc, er, ec := b.bounds()
	return b.offsetOf(sr, sc), b.offsetOf(er, ec), true
}

// SelectedText returns the selected text, or "" without a selection.
func (b *Buffer) SelectedText() string {
	if !b.HasSelection() {
		return ""
	}
	sr, sc, er, ec := b.bounds()
	if sr == er {
		return string(b.lines[sr][sc:ec])
	}
	var sb strings.Builder
	sb.WriteString(string(b.lines[sr][sc:]))
	for i := sr + 1; i < er; i++ {
		sb.WriteByte('\n')
		sb.WriteString(string(b.lines[i]))
	}
	sb.WriteByte('\n')
	sb.WriteString(string(b.lines[er][:ec]))
	return sb.String()
}

// DeleteSelection removes the selected text, leaves the cursor where it
// started and returns it. Without a selection it does nothing.
func (b *Buffer) DeleteSelection() string {
	text := b.SelectedText()
	b.selecting = false
	if text == "" {
		return ""
	}
	sr, sc, er, ec := b.boundsOf(b.anchorRow, b.anchorCol, b.row, b.col)
	joined := make([]rune, 0, sc+len(b.lines[er])-ec)
	joined = append(joined, b.lines[sr][:sc]...)
	joined = append(joined, b.lines[er][ec:]...)
	b.lines = append(b.lines[:sr+1], b.lines[er+1:]...)
	b.lines[sr] = joined
	b.row, b.col, b.goal = sr, sc, sc
	b.modified = true
	return text
}

func (b *Buffer) bounds() (sr, sc, er, ec int) {
	return b.boundsOf(b.anchorRow, b.anchorCol, b.row, b.col)
}

func (b *Buffer) boundsOf(r1, c1, r2, c2 int) (sr, sc, er, ec int) {
	if r1 > r2 || (r1 == r2 && c1 > c2) {
		return r2, c2, r1, c1
	}
	return r1, c1, r2, c2
}

func (b *Buffer) offsetOf(row, col int) int {
	n := 0
	for i := 0; i < row; i++ {
		n += len(b.lines[i]) + 1
	}
	return n + col
}

func (b *Buffer) vertical(delta int) {
	b.row = clamp(b.row+delta, 0, len(b.lines)-1)
	b.col = min(b.goal, len(b.lines[b.row]))
}

func (b *Buffer) insertRunes(rs []rune) {
	if len(rs) == 0 {
		return
	}
	line := b.lines[b.row]
	out := make([]rune, 0, len(line)+len(rs))
	out = append(out, line[:b.col]...)
	out = append(out, rs...)
	out = append(out, line[b.col:]...)
	b.lines[b.row] = out
	b.col += len(rs)
}

func (b *Buffer) splitLine() {
	line := b.lines[b.row]
	head := append([]rune(nil), line[:b.col]...)
	tail := append([]rune(nil), line[b.col:]...)
	b.lines[b.row] = head
	b.lines = append(b.lines, nil)
	copy(b.lines[b.row+2:], b.lines[b.row+1:])
	b.lines[b.row+1] = tail
	b.row++
	b.col = 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
