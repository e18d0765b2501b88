// Package normalize produces the canonical plain text every extraction
// pattern runs against.
//
// Bank alert emails arrive quoted-printable encoded and soft-wrapped by the
// mail transport, frequently in the middle of the long description digit
// run. Both bodies are therefore decoded before any pattern is evaluated:
// '=XX' hex escapes become their octets, soft line breaks are removed so
// split digit runs rejoin, and HTML is flattened to text with entities
// decoded and whitespace collapsed.
//
// Nothing in this package returns an error: malformed escape sequences are
// stripped rather than surfaced, because a partially readable body is more
// useful to the extractor than no body at all.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	hexEscape     = regexp.MustCompile(`=([0-9A-Fa-f]{2})`)
	softBreak     = regexp.MustCompile(`=\r?\n`)
	danglingEqual = regexp.MustCompile(`=\s*\n`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	strayEquals   = regexp.MustCompile(`\s*=\s*`)
)

// DecodeQuotedPrintable decodes '=XX' hex escapes and soft line breaks.
// Invalid escape sequences pass through untouched and non-printable decoded
// octets are dropped, so the result is always usable text.
func DecodeQuotedPrintable(s string) string {
	if s == "" {
		return ""
	}

	// Soft breaks first, so a digit run wrapped mid-sequence rejoins
	// before the hex pass can misread the break as an escape.
	s = softBreak.ReplaceAllString(s, "")
	s = danglingEqual.ReplaceAllString(s, "\n")

	return hexEscape.ReplaceAllStringFunc(s, func(m string) string {
		v, err := strconv.ParseUint(m[1:], 16, 8)
		if err != nil {
			return m
		}
		b := byte(v)
		// Keep printable ASCII plus the whitespace the patterns rely on.
		if b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			return string(b)
		}
		return ""
	})
}

// CleanEncodedArtifacts removes quoted-printable residue from an extracted
// value: literal "=20" sequences and stray '=' signs become spaces and
// whitespace collapses. Used on field candidates, not whole bodies.
func CleanEncodedArtifacts(s string) string {
	s = strings.ReplaceAll(s, "=20", " ")
	s = strayEquals.ReplaceAllString(s, " ")
	return CollapseWhitespace(s)
}

// CollapseWhitespace trims and squeezes all whitespace runs to one space
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// HTMLToText flattens HTML to plain text while preserving the structure the
// extraction patterns need: table rows and block elements become line
// breaks, cells become spaces, script and style content disappears, and
// entities decode. The tokenizer never fails; truncated markup simply ends
// the output.
func HTMLToText(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))

	skipDepth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "br":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "tr", "li", "table":
				b.WriteByte('\n')
			case "td", "th":
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = CollapseWhitespace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Text produces canonical plain text from a raw text body: quoted-printable
// decoded, entities resolved, tags stripped, whitespace collapsed onto
// single lines.
func Text(body string) string {
	if body == "" {
		return ""
	}
	s := DecodeQuotedPrintable(body)
	s = html.UnescapeString(s)
	if strings.ContainsRune(s, '<') {
		s = HTMLToText(s)
	}
	return strings.TrimSpace(s)
}

// Markup produces canonical HTML from a raw HTML body: quoted-printable
// decoded and entities resolved, but tags left in place so the table-cell
// patterns can still see structure.
func Markup(body string) string {
	if body == "" {
		return ""
	}
	s := DecodeQuotedPrintable(body)
	return html.UnescapeString(s)
}
