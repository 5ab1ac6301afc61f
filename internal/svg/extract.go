package svg

import "strings"

// Extract returns the first complete <svg>...</svg> span found in markup.
// Nested <svg> elements are handled with a depth count rather than a regex,
// so pathological inputs cannot backtrack. When the markup contains no svg
// element (or the element never closes) the input is returned unchanged;
// callers must tolerate non-SVG-wrapped output in that case.
func Extract(markup string) string {
	lower := strings.ToLower(markup)
	start := findOpenTag(lower, 0)
	if start < 0 {
		return markup
	}

	depth := 0
	pos := start
	for pos < len(lower) {
		openIdx := findOpenTag(lower, pos)
		closeIdx := strings.Index(lower[pos:], "</svg>")
		if closeIdx >= 0 {
			closeIdx += pos
		}

		if openIdx >= 0 && (closeIdx < 0 || openIdx < closeIdx) {
			end := strings.IndexByte(lower[openIdx:], '>')
			if end < 0 {
				return markup
			}
			end += openIdx
			if lower[end-1] == '/' {
				// Self-closing; counts as opened and closed.
				if depth == 0 {
					return markup[start : end+1]
				}
			} else {
				depth++
			}
			pos = end + 1
			continue
		}

		if closeIdx < 0 {
			return markup
		}
		depth--
		pos = closeIdx + len("</svg>")
		if depth == 0 {
			return markup[start:pos]
		}
	}
	return markup
}

// findOpenTag locates the next "<svg" that starts a tag, skipping names that
// merely share the prefix (e.g. "<svgfoo").
func findOpenTag(lower string, from int) int {
	for {
		idx := strings.Index(lower[from:], "<svg")
		if idx < 0 {
			return -1
		}
		idx += from
		next := idx + len("<svg")
		if next >= len(lower) {
			return -1
		}
		switch lower[next] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return idx
		}
		from = next
	}
}
