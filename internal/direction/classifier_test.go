package direction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quill/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want domain.Direction
	}{
		{"empty", "", domain.LTR},
		{"ascii", "Hello world", domain.LTR},
		{"arabic", "مرحبا", domain.RTL},
		{"mixed keeps rtl", "Hello مرحبا world", domain.RTL},
		{"block start", "\u0600", domain.RTL},
		{"block end", "x\u06ff", domain.RTL},
		{"just below block", "\u05ff", domain.LTR},
		{"just above block", "\u0700", domain.LTR},
		{"hebrew is not tagged", "שלום", domain.LTR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

func TestClassify_TrailingWhitespaceInvariant(t *testing.T) {
	lines := []string{"", "abc", "مرحبا", "a ب c", "123"}
	for _, l := range lines {
		for _, ws := range []string{" ", "\t", "   \t "} {
			assert.Equal(t, Classify(l), Classify(l+ws), "line %q", l)
		}
	}
}

func TestClassifyDocument(t *testing.T) {
	lines := Lines("first line\nالسطر الثاني\n\nlast")

	got := ClassifyDocument(lines)

	assert.Equal(t, []domain.Direction{domain.LTR, domain.RTL, domain.LTR, domain.LTR}, got)
}

func TestClassifyDocument_Empty(t *testing.T) {
	assert.Empty(t, ClassifyDocument(nil))
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "LTR", domain.LTR.String())
	assert.Equal(t, "RTL", domain.RTL.String())
}
