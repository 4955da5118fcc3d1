package render

import "strings"

const ellipsis = "..."

// WrapText splits text into lines no wider than width, breaking at spaces and,
// for words longer than a line, between runes. It always returns at least one
// line. measure is usually RenderContext.Measure, which makes the result match
// what the table draws.
func WrapText(text string, width float64, measure MeasureFunc) []string {
	var lines []string

	for _, paragraph := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(paragraph) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if measure(candidate) <= width {
				line = candidate
				continue
			}

			if line != "" {
				lines = append(lines, line)
			}
			line = word
			if measure(word) <= width {
				continue
			}

			chunks := breakWord(word, width, measure)
			lines = append(lines, chunks[:len(chunks)-1]...)
			line = chunks[len(chunks)-1]
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// breakWord cuts a word into chunks that fit width. Each chunk holds at least
// one rune, so the result is finite even when width is smaller than a glyph.
func breakWord(word string, width float64, measure MeasureFunc) []string {
	var chunks []string
	chunk := ""
	for _, r := range word {
		next := chunk + string(r)
		if chunk != "" && measure(next) > width {
			chunks = append(chunks, chunk)
			next = string(r)
		}
		chunk = next
	}
	return append(chunks, chunk)
}

// rowHeight is the height of a table row whose description wraps to n lines.
func rowHeight(n int) float64 {
	return float64(max(n, 1)) * rowLineHeight
}

// fitText shortens text with an ellipsis until it fits width.
func fitText(text string, width float64, measure MeasureFunc) string {
	if measure(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimRight(string(runes), " ") + ellipsis
		if measure(candidate) <= width {
			return candidate
		}
	}
	return ellipsis
}
