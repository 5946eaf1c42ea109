package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"quill/internal/dictation"
	"quill/internal/domain"
	"quill/internal/narration"
)

const (
	spanText = iota
	spanMatch
	spanCurrent
	spanSelected
)

// View renders the document, the prompt or notice line and the status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		title := m.styles.Prompt.Render("Quill keys")
		return title + "\n" + m.helpView.View() + "\n" + m.styles.Help.Render("esc or f1 to close")
	}
	message := lipgloss.NewStyle().MaxWidth(m.width).Render(m.renderMessage())
	return m.renderBody() + "\n" + message + "\n" + m.renderStatus()
}

func (m Model) renderBody() string {
	lines := m.buf.Lines()
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len([]rune(l)) + 1
	}
	h := m.bodyHeight()
	out := make([]string, 0, h)
	for r := m.top; r < m.top+h; r++ {
		if r >= len(lines) {
			out = append(out, m.styles.Gutter.Render(pad("~", m.gutterWidth()))+m.styles.Text.Render(strings.Repeat(" ", m.textWidth())))
			continue
		}
		out = append(out, m.renderLine(r, []rune(lines[r]), starts[r]))
	}
	return strings.Join(out, "\n")
}

// renderLine draws one line with its number, search highlights, the
// selection and the cursor. Right-to-left lines are aligned to the right
// edge. Everything is measured in terminal cells: tabs expand to the next
// stop and wide runes take two cells.
func (m Model) renderLine(r int, line []rune, start int) string {
	gw, tw := m.gutterWidth(), m.textWidth()
	gutter := m.styles.Gutter.Render(fmt.Sprintf("%*d ", gw-1, r+1))

	kinds := m.spans(start, len(line))
	crow, ccol := m.buf.Cursor()
	tab := m.buf.TabWidth()

	var sb, run strings.Builder
	runKind := spanText
	flush := func() {
		if run.Len() > 0 {
			sb.WriteString(m.spanStyle(runKind).Render(run.String()))
			run.Reset()
		}
	}
	used, x := 0, 0
	for i, ch := range line {
		glyph, w := cell(ch, x, tab)
		x0 := x
		x += w
		if x0 < m.left {
			if x <= m.left {
				continue
			}
			// a tab or wide rune cut by the left edge
			glyph, w, x0 = strings.Repeat(" ", x-m.left), x-m.left, m.left
		}
		if x0-m.left+w > tw {
			break
		}
		kind := spanText
		if kinds != nil {
			kind = kinds[i]
		}
		used += w
		if r == crow && i == ccol {
			flush()
			if ch == '\t' && w > 1 {
				sb.WriteString(m.styles.Cursor.Render(" "))
				sb.WriteString(m.spanStyle(kind).Render(strings.Repeat(" ", w-1)))
			} else {
				sb.WriteString(m.styles.Cursor.Render(glyph))
			}
			continue
		}
		if kind != runKind {
			flush()
			runKind = kind
		}
		run.WriteString(glyph)
	}
	flush()
	if r == crow && ccol == len(line) && x >= m.left && used < tw {
		sb.WriteString(m.styles.Cursor.Render(" "))
		used++
	}

	fill := m.styles.Text.Render(strings.Repeat(" ", max(0, tw-used)))
	if r < len(m.dirs) && m.dirs[r] == domain.RTL {
		return gutter + fill + sb.String()
	}
	return gutter + sb.String() + fill
}

// cell returns how r is drawn at display column x and how many terminal
// cells it takes. Control characters other than tab show as '?'.
func cell(r rune, x, tabWidth int) (string, int) {
	switch {
	case r == '\t':
		n := tabWidth - x%tabWidth
		return strings.Repeat(" ", n), n
	case unicode.IsControl(r):
		return "?", 1
	}
	return string(r), runewidth.RuneWidth(r)
}

// displayColumn is the cell offset of rune column col in line.
func displayColumn(line []rune, col, tabWidth int) int {
	x := 0
	for _, ch := range line[:min(col, len(line))] {
		_, w := cell(ch, x, tabWidth)
		x += w
	}
	return x
}

func (m Model) spanStyle(kind int) lipgloss.Style {
	switch kind {
	case spanMatch:
		return m.styles.Match
	case spanCurrent:
		return m.styles.CurrentMatch
	case spanSelected:
		return m.styles.Selection
	default:
		return m.styles.Text
	}
}

// spans marks which runes of the line at rune offset start fall inside a
// search match or the selection. It returns nil when nothing is marked.
func (m Model) spans(start, n int) []int {
	var kinds []int
	end := start + n
	mark := func(from, to, kind int) {
		from, to = max(from, start), min(to, end)
		if from >= to {
			return
		}
		if kinds == nil {
			kinds = make([]int, n)
		}
		for i := from; i < to; i++ {
			kinds[i-start] = kind
		}
	}
	if m.highlight && m.index.Len() > 0 {
		matches := m.index.Matches()
		first := sort.Search(len(matches), func(i int) bool { return matches[i].End > start })
		cur, hasCur := m.index.Current()
		for _, mt := range matches[first:] {
			if mt.Start >= end {
				break
			}
			kind := spanMatch
			if hasCur && mt == cur {
				kind = spanCurrent
			}
			mark(mt.Start, mt.End, kind)
		}
	}
	if from, to, ok := m.buf.Selection(); ok {
		mark(from, to, spanSelected)
	}
	return kinds
}

func (m Model) renderMessage() string {
	switch {
	case m.prompt == promptConfirm:
		return m.styles.Prompt.Render(fmt.Sprintf("Save changes to %s? (y/n, esc cancels)", m.displayName()))
	case m.prompt != promptNone:
		return m.input.View()
	case m.notice != "" && m.noticeErr:
		return m.styles.Error.Render(m.notice)
	case m.notice != "":
		return m.styles.Notice.Render(m.notice)
	default:
		return m.help.ShortHelpView(m.keys.ShortHelp())
	}
}

func (m Model) renderStatus() string {
	left := m.displayName()
	if m.buf.Modified() {
		left += " [+]"
	}
	var modes []string
	if m.deps.Dictation != nil && m.deps.Dictation.State() == dictation.Listening {
		modes = append(modes, "● REC")
	}
	if m.deps.Narration != nil && m.deps.Narration.State() == narration.Speaking {
		modes = append(modes, "♪ READING")
	}
	if len(modes) > 0 {
		left += "  " + m.styles.StatusMode.Render(strings.Join(modes, " "))
	}

	row, _ := m.buf.Cursor()
	dir := domain.LTR
	if row < len(m.dirs) {
		dir = m.dirs[row]
	}
	right := []string{}
	if m.highlight && m.index.Len() > 0 {
		if c := m.index.Cursor(); c >= 0 {
			right = append(right, fmt.Sprintf("%d/%d", c+1, m.index.Len()))
		} else {
			right = append(right, fmt.Sprintf("%d matches", m.index.Len()))
		}
	}
	right = append(right, dir.String(), m.buf.Position())
	rightText := strings.Join(right, "  ")

	inner := max(0, m.width-2)
	gap := max(1, inner-lipgloss.Width(left)-lipgloss.Width(rightText))
	return m.styles.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + rightText)
}

func (m Model) displayName() string {
	if m.path == "" {
		return "Untitled"
	}
	return filepath.Base(m.path)
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
