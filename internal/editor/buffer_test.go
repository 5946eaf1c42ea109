package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_InsertAndContent(t *testing.T) {
	b := NewBuffer("", 4)
	assert.True(t, b.Empty())

	b.Insert("hello")
	b.Newline()
	b.Insert("world\nagain")

	assert.Equal(t, "hello\nworld\nagain", b.Content())
	assert.Equal(t, []string{"hello", "world", "again"}, b.Lines())
	assert.True(t, b.Modified())
	row, col := b.Cursor()
	assert.Equal(t, 2, row)
	assert.Equal(t, 5, col)
	assert.Equal(t, "Ln 3, Col 6", b.Position())
}

func TestBuffer_SetContentClearsModified(t *testing.T) {
	b := NewBuffer("a", 4)
	b.Insert("x")
	b.SetContent("new\ntext")

	assert.False(t, b.Modified())
	assert.Equal(t, 2, b.LineCount())
	row, col := b.Cursor()
	assert.Zero(t, row)
	assert.Zero(t, col)
}

func TestBuffer_ReplaceKeepsOffset(t *testing.T) {
	b := NewBuffer("foo bar\nfoo", 4)
	b.SetCursor(1, 2)

	b.Replace("x bar\nx")

	assert.True(t, b.Modified())
	assert.Equal(t, 7, b.Offset(), "clamped to the new end")

	b.SetCursor(0, 1)
	b.Replace("yy bar")
	assert.Equal(t, 1, b.Offset())
}

func TestBuffer_InsertMidLineWithArabic(t *testing.T) {
	b := NewBuffer("مرحبا world", 4)
	b.SetCursor(0, 5)

	b.Insert(" ,")

	assert.Equal(t, "مرحبا , world", b.Content())
	assert.Equal(t, "Ln 1, Col 8", b.Position())
}

func TestBuffer_BackspaceJoinsLines(t *testing.T) {
	b := NewBuffer("ab\ncd", 4)
	b.SetCursor(1, 0)

	b.Backspace()

	assert.Equal(t, "abcd", b.Content())
	row, col := b.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 2, col)

	b.SetCursor(0, 0)
	b.MarkSaved()
	b.Backspace()
	assert.False(t, b.Modified(), "backspace at start is a no-op")
}

func TestBuffer_DeleteJoinsLines(t *testing.T) {
	b := NewBuffer("ab\ncd", 4)
	b.SetCursor(0, 2)

	b.Delete()
	assert.Equal(t, "abcd", b.Content())

	b.Delete()
	assert.Equal(t, "abd", b.Content())

	b.End()
	b.MarkSaved()
	b.Delete()
	assert.False(t, b.Modified())
}

func TestBuffer_VerticalMovesKeepGoalColumn(t *testing.T) {
	b := NewBuffer("long line\nab\nanother long", 4)
	b.SetCursor(0, 7)

	b.Down()
	_, col := b.Cursor()
	assert.Equal(t, 2, col)

	b.Down()
	_, col = b.Cursor()
	assert.Equal(t, 7, col)

	b.PageUp(10)
	row, _ := b.Cursor()
	assert.Equal(t, 0, row)
	b.PageDown(10)
	row, _ = b.Cursor()
	assert.Equal(t, 2, row)
}

func TestBuffer_LeftRightWrap(t *testing.T) {
	b := NewBuffer("ab\ncd", 4)
	b.SetCursor(0, 2)

	b.Right()
	row, col := b.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)

	b.Left()
	row, col = b.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 2, col)

	b.Home()
	_, col = b.Cursor()
	assert.Zero(t, col)
}

func TestBuffer_Offsets(t *testing.T) {
	b := NewBuffer("Hello\nHello world", 4)

	b.SetOffset(6)
	row, col := b.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)
	assert.Equal(t, 6, b.Offset())

	b.SetOffset(100)
	assert.Equal(t, len([]rune(b.Content())), b.Offset())
}

func TestBuffer_GotoLine(t *testing.T) {
	b := NewBuffer("a\nb\nc", 4)

	require.NoError(t, b.GotoLine(3))
	row, _ := b.Cursor()
	assert.Equal(t, 2, row)

	assert.Error(t, b.GotoLine(0))
	assert.Error(t, b.GotoLine(4))
}

func TestBuffer_TabAndTimestamp(t *testing.T) {
	b := NewBuffer("ab", 4)
	b.End()

	b.InsertTab()
	assert.Equal(t, "ab  ", b.Content())

	b.InsertTimestamp(time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC))
	assert.Equal(t, "ab  2024-03-09 07:05:01", b.Content())
}

func TestBuffer_CutLine(t *testing.T) {
	b := NewBuffer("one\ntwo\nthree", 4)
	b.SetCursor(1, 1)

	assert.Equal(t, "two\n", b.CutLine())
	assert.Equal(t, "one\nthree", b.Content())
	assert.Equal(t, "three", b.CurrentLine())

	single := NewBuffer("only", 4)
	assert.Equal(t, "only", single.CutLine())
	assert.True(t, single.Empty())
	assert.Equal(t, "", single.CutLine())
}

func TestHistory_UndoRedo(t *testing.T) {
	b := NewBuffer("", 4)
	h := NewHistory(10)

	h.Capture(b)
	b.Insert("first")
	h.Capture(b)
	b.Insert(" second")

	require.True(t, h.Undo(b))
	assert.Equal(t, "first", b.Content())
	require.True(t, h.Undo(b))
	assert.Equal(t, "", b.Content())
	assert.False(t, h.Undo(b))

	require.True(t, h.Redo(b))
	assert.Equal(t, "first", b.Content())
	require.True(t, h.Redo(b))
	assert.Equal(t, "first second", b.Content())
	assert.False(t, h.Redo(b))
}

func TestHistory_CaptureClearsRedo(t *testing.T) {
	b := NewBuffer("", 4)
	h := NewHistory(10)
	h.Capture(b)
	b.Insert("x")
	h.Undo(b)
	require.True(t, h.CanRedo())

	h.Capture(b)
	b.Insert("y")

	assert.False(t, h.CanRedo())
}

func TestHistory_Limit(t *testing.T) {
	b := NewBuffer("", 4)
	h := NewHistory(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		h.Capture(b)
		b.Insert(s)
	}

	undone := 0
	for h.Undo(b) {
		undone++
	}

	assert.Equal(t, 3, undone)
	assert.Equal(t, "ab", b.Content())
}

func TestHistory_CollapsesIdenticalSnapshots(t *testing.T) {
	b := NewBuffer("same", 4)
	h := NewHistory(10)

	h.Capture(b)
	h.Capture(b)
	b.Insert("!")

	require.True(t, h.Undo(b))
	assert.False(t, h.CanUndo())
	assert.Equal(t, "same", b.Content())
}

func TestBuffer_SelectionAcrossLines(t *testing.T) {
	b := NewBuffer("one\ntwo\nthree", 4)
	b.SetCursor(0, 1)

	b.Select()
	b.Down()
	b.Down()

	require.True(t, b.HasSelection())
	assert.Equal(t, "ne\ntwo\nt", b.SelectedText())
	start, end, ok := b.Selection()
	require.True(t, ok)
	assert.Equal(t, 1, start)
	assert.Equal(t, 9, end)

	assert.Equal(t, "ne\ntwo\nt", b.DeleteSelection())
	assert.Equal(t, "ohree", b.Content())
	assert.Equal(t, "Ln 1, Col 2", b.Position())
	assert.False(t, b.HasSelection())
}

func TestBuffer_SelectionBackwards(t *testing.T) {
	b := NewBuffer("hello world", 4)
	b.End()

	b.Select()
	for range 5 {
		b.Left()
	}

	assert.Equal(t, "world", b.SelectedText())
	b.Backspace()
	assert.Equal(t, "hello ", b.Content())
}

func TestBuffer_TypingReplacesSelection(t *testing.T) {
	b := NewBuffer("abc", 4)
	b.SetCursor(0, 1)
	b.Select()
	b.Right()

	b.Insert("XY")

	assert.Equal(t, "aXYc", b.Content())
	assert.False(t, b.HasSelection())
}

func TestBuffer_SelectAll(t *testing.T) {
	b := NewBuffer("a\nbc", 4)

	b.SelectAll()

	assert.Equal(t, "a\nbc", b.SelectedText())
	b.Delete()
	assert.True(t, b.Empty())
	assert.True(t, b.Modified())
}

func TestBuffer_EmptySelection(t *testing.T) {
	b := NewBuffer("abc", 4)
	b.Select()

	assert.False(t, b.HasSelection())
	_, _, ok := b.Selection()
	assert.False(t, ok)
	assert.Equal(t, "", b.DeleteSelection())
	assert.False(t, b.Modified())

	b.Delete()
	assert.Equal(t, "bc", b.Content(), "without a range delete removes one rune")
}
