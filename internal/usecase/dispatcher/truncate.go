package dispatcher

import (
	"fmt"
	"unicode/utf8"
)

// truncateHeadTail keeps the first and last halves of output and notes how
// much was removed from the middle. Cuts land on rune boundaries.
func truncateHeadTail(output string, maxChars int) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	half := maxChars / 2

	headEnd := half
	for headEnd > 0 && !utf8.RuneStart(output[headEnd]) {
		headEnd--
	}
	tailStart := len(output) - half
	for tailStart < len(output) && !utf8.RuneStart(output[tailStart]) {
		tailStart++
	}

	removed := tailStart - headEnd
	return output[:headEnd] +
		fmt.Sprintf("\n[... %d characters truncated ...]\n", removed) +
		output[tailStart:]
}
