package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderShare renders part's share of total as a bar like [████░░░░] 45%,
// colored in the feeding type's style.
func RenderShare(part, total, width int, style func(string) string) string {
	pct := 0.0
	if total > 0 {
		pct = float64(part) / float64(total)
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	if width < 2 {
		width = 2
	}

	filled := int(pct*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)
	if style != nil {
		bar = style(bar)
	}
	return fmt.Sprintf("[%s] %3.0f%%", bar, pct*100)
}
