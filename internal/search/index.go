// Package search finds literal, case-insensitive occurrences of a query in
// document content and steps through them cyclically.
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"quill/internal/domain"
)

// Build returns every non-overlapping case-insensitive occurrence of query in
// content, left to right. An empty query yields no matches.
func Build(content, query string) []domain.Match {
	if query == "" {
		return nil
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	locs := re.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]domain.Match, 0, len(locs))
	// runes counts characters up to byteAt; locs are ascending so one pass suffices
	runes, byteAt := 0, 0
	for _, loc := range locs {
		runes += utf8.RuneCountInString(content[byteAt:loc[0]])
		start := runes
		runes += utf8.RuneCountInString(content[loc[0]:loc[1]])
		byteAt = loc[1]
		matches = append(matches, domain.Match{
			Start:     start,
			End:       runes,
			ByteStart: loc[0],
			ByteEnd:   loc[1],
		})
	}
	return matches
}

// Index is the match list for the current query plus a cyclic cursor.
type Index struct {
	query   string
	matches []domain.Match
	current int
}

// New returns an empty index.
func New() *Index { return &Index{current: -1} }

// Rebuild recomputes the matches for query and resets the cursor.
func (ix *Index) Rebuild(content, query string) int {
	ix.query = query
	ix.matches = Build(content, query)
	ix.current = -1
	return len(ix.matches)
}

// Refresh recomputes matches for the existing query after the content changed.
func (ix *Index) Refresh(content string) int {
	if ix.query == "" {
		return 0
	}
	return ix.Rebuild(content, ix.query)
}

// Reset drops the query and all matches.
func (ix *Index) Reset() {
	ix.query = ""
	ix.matches = nil
	ix.current = -1
}

func (ix *Index) Query() string { return ix.query }

func (ix *Index) Len() int { return len(ix.matches) }

func (ix *Index) Matches() []domain.Match { return ix.matches }

// Current reports the match most recently returned by Next or Prev.
func (ix *Index) Current() (domain.Match, bool) {
	if ix.current < 0 || ix.current >= len(ix.matches) {
		return domain.Match{}, false
	}
	return ix.matches[ix.current], true
}

// Cursor is the position of Current within Matches, or -1 before the first
// step.
func (ix *Index) Cursor() int { return ix.current }

// Next returns the match after the last returned one, wrapping to the first.
// The first call after a rebuild returns the first match.
func (ix *Index) Next() (domain.Match, bool) {
	return ix.step(1)
}

// Prev returns the match before the last returned one, wrapping to the last.
func (ix *Index) Prev() (domain.Match, bool) {
	return ix.step(-1)
}

func (ix *Index) step(delta int) (domain.Match, bool) {
	n := len(ix.matches)
	if n == 0 {
		return domain.Match{}, false
	}
	if ix.current < 0 {
		if delta > 0 {
			ix.current = 0
		} else {
			ix.current = n - 1
		}
	} else {
		ix.current = ((ix.current+delta)%n + n) % n
	}
	return ix.matches[ix.current], true
}

// ReplaceAll replaces every case-sensitive literal occurrence of find with
// repl and reports how many were replaced. An empty find is a no-op.
func ReplaceAll(content, find, repl string) (string, int) {
	if find == "" {
		return content, 0
	}
	n := strings.Count(content, find)
	if n == 0 {
		return content, 0
	}
	return strings.ReplaceAll(content, find, repl), n
}
