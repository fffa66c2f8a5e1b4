package textgen

import "strings"

// TruncateTitle enforces the marketplace title ceiling. Titles at or under
// max pass through unchanged. Longer titles are cut at the last word boundary
// that fits within max-3 characters and get a trailing "..."; when even the
// first word does not fit, the cut is a hard one at max-3. The result never
// exceeds max characters.
func TruncateTitle(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	keep := max - 3
	if keep <= 0 {
		return string(runes[:max])
	}

	cut := string(runes[:keep])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + "..."
}

// fitHead cuts s to at most max characters without adding an ellipsis,
// preferring a word boundary. Used when a reserved suffix must survive intact.
func fitHead(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ")
}
