package audit

import (
	"strings"
	"unicode/utf8"
)

// Snippet sizes keep attempt rows small while preserving enough context to
// diagnose a failed extraction. HTML gets a wider slice because markup
// dilutes the interesting text.
const (
	maxSnippetLen   = 500
	textContextPos  = 100
	textContextLen  = 200
	htmlContextPos  = 200
	htmlContextLen  = 400
)

// TextSnippet returns a bounded excerpt of a plain-text body. When
// searchTerm is found the excerpt centers on its first occurrence so the
// field that failed to parse is visible in the audit row.
func TextSnippet(body, searchTerm string) string {
	return snippet(body, searchTerm, textContextPos, textContextLen)
}

// HTMLSnippet returns a bounded excerpt of an HTML body around the first
// occurrence of searchTerm
func HTMLSnippet(body, searchTerm string) string {
	return snippet(body, searchTerm, htmlContextPos, htmlContextLen)
}

func snippet(body, searchTerm string, contextBefore, contextLen int) string {
	if body == "" {
		return ""
	}

	start, length := 0, maxSnippetLen
	if searchTerm != "" {
		if pos := strings.Index(strings.ToLower(body), strings.ToLower(searchTerm)); pos >= 0 {
			start = pos - contextBefore
			if start < 0 {
				start = 0
			}
			length = contextLen
		}
	}

	end := start + length
	if end > len(body) {
		end = len(body)
	}
	if end-start > maxSnippetLen {
		end = start + maxSnippetLen
	}

	return sanitizeUTF8(body[start:end])
}

// sanitizeUTF8 drops bytes that do not form valid UTF-8 sequences. Byte
// slicing can split a multi-byte rune at either edge, and the attempt
// store rejects invalid text.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.ToValidUTF8(s, ""))
}
