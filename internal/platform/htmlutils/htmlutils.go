// Package htmlutils prepares text for Telegram's HTML parse mode.
//
// Telegram measures message length in UTF-16 code units and rejects messages with unknown
// tags or unbalanced markup, so model output is escaped and operator text is sanitized.
package htmlutils

import (
	"html"
	"regexp"
	"strings"
)

// Length returns the number of UTF-16 code units Telegram counts for s.
func Length(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}

	return n
}

func runeUnits(r rune) int {
	if r > 0xFFFF {
		return 2
	}

	return 1
}

// EscapeLimited escapes text for HTML mode and cuts it so the escaped form fits in maxUnits.
// Entities are never split.
func EscapeLimited(text string, maxUnits int) string {
	var sb strings.Builder

	units := 0

	for _, r := range text {
		piece := html.EscapeString(string(r))

		n := 0
		for _, pr := range piece {
			n += runeUnits(pr)
		}

		if units+n > maxUnits {
			break
		}

		sb.WriteString(piece)
		units += n
	}

	return sb.String()
}

const emptyAnchorTag = "<a>"

var (
	tagRegex  = regexp.MustCompile(`<(/?)([a-zA-Z0-9-]+)([^>]*)>`)
	hrefRegex = regexp.MustCompile(`(?i)\s*href\s*=\s*["']([^"']*)["']`)
)

var allowedTags = map[string]bool{
	"b":          true,
	"i":          true,
	"u":          true,
	"s":          true,
	"code":       true,
	"pre":        true,
	"a":          true,
	"blockquote": true,
	"tg-spoiler": true,
}

var unsafeSchemes = []string{"javascript:", "vbscript:", "data:"}

// SanitizeHTML keeps only tags Telegram understands, escapes everything else and closes
// tags left open. Anchors keep a single safe href.
func SanitizeHTML(text string) string {
	var (
		sb   strings.Builder
		open []string
	)

	last := 0

	for _, idx := range tagRegex.FindAllStringSubmatchIndex(text, -1) {
		sb.WriteString(html.EscapeString(text[last:idx[0]]))
		last = idx[1]

		closing := idx[3] > idx[2]
		name := strings.ToLower(text[idx[4]:idx[5]])

		if !allowedTags[name] {
			continue
		}

		if closing {
			open = closeTag(&sb, name, open)

			continue
		}

		if name == "a" {
			sb.WriteString(anchor(text[idx[0]:idx[1]]))
		} else {
			sb.WriteString("<" + name + ">")
		}

		open = append(open, name)
	}

	sb.WriteString(html.EscapeString(text[last:]))

	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString("</" + open[i] + ">")
	}

	return sb.String()
}

// closeTag writes a closing tag only when it matches an open one, closing anything opened after it.
func closeTag(sb *strings.Builder, name string, open []string) []string {
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] != name {
			continue
		}

		for j := len(open) - 1; j >= i; j-- {
			sb.WriteString("</" + open[j] + ">")
		}

		return open[:i]
	}

	return open
}

func anchor(tag string) string {
	m := hrefRegex.FindStringSubmatch(tag)
	if m == nil {
		return emptyAnchorTag
	}

	href := strings.ToLower(strings.TrimSpace(m[1]))
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(href, scheme) {
			return emptyAnchorTag
		}
	}

	return `<a href="` + html.EscapeString(m[1]) + `">`
}
