package editor

// Snapshot is the buffer state restored by undo and redo.
type Snapshot struct {
	Content  string
	Row, Col int
}

// History keeps whole-content snapshots. The oldest undo step is dropped
// once limit is reached.
type History struct {
	limit int
	undo  []Snapshot
	redo  []Snapshot
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 100
	}
	return &History{limit: limit}
}

// Capture records b before an edit and forgets anything redoable.
func (h *History) Capture(b *Buffer) {
	s := snapshot(b)
	if n := len(h.undo); n > 0 && h.undo[n-1].Content == s.Content {
		h.undo[n-1] = s
		h.redo = h.redo[:0]
		return
	}
	if len(h.undo) == h.limit {
		h.undo = append(h.undo[:0], h.undo[1:]...)
	}
	h.undo = append(h.undo, s)
	h.redo = h.redo[:0]
}

// Undo restores the previous snapshot. It reports false when there is none.
func (h *History) Undo(b *Buffer) bool {
	if len(h.undo) == 0 {
		return false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, snapshot(b))
	restore(b, prev)
	return true
}

func (h *History) Redo(b *Buffer) bool {
	if len(h.redo) == 0 {
		return false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, snapshot(b))
	restore(b, next)
	return true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Reset forgets everything, used after loading a different document.
func (h *History) Reset() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}

func snapshot(b *Buffer) Snapshot {
	row, col := b.Cursor()
	return Snapshot{Content: b.Content(), Row: row, Col: col}
}

func restore(b *Buffer, s Snapshot) {
	b.SetContent(s.Content)
	b.SetCursor(s.Row, s.Col)
	b.modified = true
}
