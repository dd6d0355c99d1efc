// Package block carves brace-balanced blocks out of source text.
//
// The scanner counts '{' and '}' only. Braces inside string literals, char
// literals and comments are counted too, so unbalanced braces in those
// positions shift the block end.
package block

// Block locates a balanced region of text.
//
// Start is the caller-supplied start of the region (usually a declaration
// match), Open the index of its first '{', and End the index of the matching
// '}'. A Truncated block hit the scan limit or end of text before the braces
// balanced; End is then the last byte scanned.
type Block struct {
	Start     int
	Open      int
	End       int
	Truncated bool
}

// Find locates the first '{' at or after from and scans forward to its
// matching '}'. A positive limit caps the scan at limit bytes after the
// opening brace. It returns false when there is no opening brace.
func Find(text string, start, from, limit int) (Block, bool) {
	if from < 0 {
		from = 0
	}
	if start < 0 || start > from {
		start = from
	}
	open := -1
	for i := from; i < len(text); i++ {
		if text[i] == '{' {
			open = i
			break
		}
	}
	if open < 0 {
		return Block{}, false
	}

	end := len(text)
	if limit > 0 && open+limit < end {
		end = open + limit
	}

	depth := 0
	for i := open; i < end; i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return Block{Start: start, Open: open, End: i}, true
			}
		}
	}
	return Block{Start: start, Open: open, End: end - 1, Truncated: true}, true
}

// Text returns the block's text from Start through End inclusive.
func (b Block) Text(text string) string {
	end := b.End + 1
	if end > len(text) {
		end = len(text)
	}
	if b.Start >= end {
		return ""
	}
	return text[b.Start:end]
}

// Body returns the block's text from its opening brace through End.
func (b Block) Body(text string) string {
	end := b.End + 1
	if end > len(text) {
		end = len(text)
	}
	if b.Open >= end {
		return ""
	}
	return text[b.Open:end]
}

// Extract returns the balanced block beginning at start. Without an opening
// brace it falls back to the rest of the buffer from start.
func Extract(text string, start, limit int) string {
	if start < 0 {
		start = 0
	}
	if start >= len(text) {
		return ""
	}
	b, ok := Find(text, start, start, limit)
	if !ok {
		return text[start:]
	}
	return b.Text(text)
}
