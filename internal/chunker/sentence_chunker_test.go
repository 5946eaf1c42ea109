package chunker

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestChunk_PacksSentences(t *testing.T) {
	c := NewSentenceChunker(20)

	assert.Equal(t, []string{"One. Two. Three."}, c.Chunk("One. Two. Three."))
}

func TestChunk_FlushesAtLimit(t *testing.T) {
	c := NewSentenceChunker(10)

	assert.Equal(t, []string{"One. Two.", "Three."}, c.Chunk("One. Two. Three."))
}

func TestChunk_TailWithoutPunctuation(t *testing.T) {
	c := NewSentenceChunker(100)

	assert.Equal(t, []string{"First. and the rest"}, c.Chunk("First. and the rest"))
	assert.Equal(t, []string{"hello world"}, c.Chunk("hello world"))
}

func TestChunk_SplitsLongSentence(t *testing.T) {
	c := NewSentenceChunker(5)

	assert.Equal(t, []string{"abcde", "fghij", "klm"}, c.Chunk("abcdefghij klm"))
}

func TestChunk_Blank(t *testing.T) {
	c := NewSentenceChunker(5)

	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("  \n "))
}

func TestChunk_RespectsLimitInRunes(t *testing.T) {
	c := NewSentenceChunker(12)
	text := "مرحبا بالعالم. كيف حالك؟ هذا نص طويل نسبيا للتجربة."

	chunks := c.Chunk(text)

	assert.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), 12, "chunk %q", ch)
	}
}

func TestNewSentenceChunker_Default(t *testing.T) {
	c := NewSentenceChunker(0)

	assert.Equal(t, 4096, c.maxChars)
}
