package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SentenceChunker packs whole sentences into segments of at most maxChars
// runes. A sentence longer than maxChars is split on spaces, and a word longer
// than maxChars is cut.
type SentenceChunker struct {
	maxChars int
	splitter *regexp.Regexp
}

func NewSentenceChunker(maxChars int) *SentenceChunker {
	if maxChars <= 0 {
		maxChars = 4096
	}
	return &SentenceChunker{
		maxChars: maxChars,
		splitter: regexp.MustCompile(`(?m)(?U)([^.!?؟\n]+[.!?؟\n])`),
	}
}

// Chunk splits text into ordered segments. Blank text yields none.
func (c *SentenceChunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var sentences []string
	end := 0
	for _, loc := range c.splitter.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[loc[0]:loc[1]])
		end = loc[1]
	}
	// tail without terminal punctuation
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		sentences = append(sentences, rest)
	}

	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
		curLen = 0
	}
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		for _, piece := range c.fit(s) {
			n := utf8.RuneCountInString(piece)
			sep := 0
			if curLen > 0 {
				sep = 1
			}
			if curLen+sep+n > c.maxChars {
				flush()
				sep = 0
			}
			if sep == 1 {
				cur.WriteByte(' ')
			}
			cur.WriteString(piece)
			curLen += sep + n
		}
	}
	flush()
	return out
}

// fit breaks a single sentence into pieces no longer than maxChars.
func (c *SentenceChunker) fit(s string) []string {
	if utf8.RuneCountInString(s) <= c.maxChars {
		return []string{s}
	}
	var pieces []string
	var cur []rune
	for _, w := range strings.Fields(s) {
		wr := []rune(w)
		for len(wr) > c.maxChars {
			if len(cur) > 0 {
				pieces = append(pieces, string(cur))
				cur = nil
			}
			pieces = append(pieces, string(wr[:c.maxChars]))
			wr = wr[c.maxChars:]
		}
		if len(cur) > 0 && len(cur)+1+len(wr) > c.maxChars {
			pieces = append(pieces, string(cur))
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
	}
	if len(cur) > 0 {
		pieces = append(pieces, string(cur))
	}
	return pieces
}
