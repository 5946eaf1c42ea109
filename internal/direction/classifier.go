// Package direction tags document lines as right-to-left or left-to-right.
package direction

import (
	"strings"

	"quill/internal/domain"
)

// Classify returns RTL when any rune of line falls in the Arabic block
// (U+0600–U+06FF) and LTR otherwise. Mixed lines are never downgraded.
func Classify(line string) domain.Direction {
	for _, r := range line {
		if isArabic(r) {
			return domain.RTL
		}
	}
	return domain.LTR
}

// ClassifyDocument classifies every line, preserving order.
func ClassifyDocument(lines []string) []domain.Direction {
	tags := make([]domain.Direction, len(lines))
	for i, l := range lines {
		tags[i] = Classify(l)
	}
	return tags
}

// Lines splits content the same way the editor buffer does.
func Lines(content string) []string {
	return strings.Split(content, "\n")
}

func isArabic(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}
