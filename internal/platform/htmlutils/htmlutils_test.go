package htmlutils

import (
	"strings"
	"testing"
)

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "Namaste sabko",
			expected: "Namaste sabko",
		},
		{
			name:     "allowed tags",
			input:    "<b>Sale</b> <i>aaj</i>",
			expected: "<b>Sale</b> <i>aaj</i>",
		},
		{
			name:     "unsupported tags dropped",
			input:    "<h1>Title</h1><script>alert(1)</script>",
			expected: "Titlealert(1)",
		},
		{
			name:     "escapes special characters",
			input:    "Tom & Jerry > Oggy",
			expected: "Tom &amp; Jerry &gt; Oggy",
		},
		{
			name:     "closes unclosed tags",
			input:    "<b>Bold <i>both",
			expected: "<b>Bold <i>both</i></b>",
		},
		{
			name:     "stray closing tag ignored",
			input:    "text</b>",
			expected: "text",
		},
		{
			name:     "closing outer tag closes inner",
			input:    "<b><i>x</b>",
			expected: "<b><i>x</i></b>",
		},
		{
			name:     "malformed tag escaped",
			input:    "<b malformed",
			expected: "&lt;b malformed",
		},
		{
			name:     "strips javascript href",
			input:    `<a href=" JavaScript:alert(1)">Click</a>`,
			expected: "<a>Click</a>",
		},
		{
			name:     "keeps only href on anchor",
			input:    `<a href="https://t.me/ekki?x=1&y=2" onclick="x()">Link</a>`,
			expected: `<a href="https://t.me/ekki?x=1&amp;y=2">Link</a>`,
		},
		{
			name:     "attributes stripped from other tags",
			input:    `<blockquote expandable>Quote</blockquote>`,
			expected: `<blockquote>Quote</blockquote>`,
		},
		{
			name:     "upper-case tags normalized",
			input:    `<B>Bold</B>`,
			expected: `<b>Bold</b>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeHTML(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeHTML() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEscapeLimited(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{
			name:     "escapes markup",
			input:    "<b>hi</b> & bye",
			limit:    100,
			expected: "&lt;b&gt;hi&lt;/b&gt; &amp; bye",
		},
		{
			name:     "cuts plain text",
			input:    "abcdef",
			limit:    4,
			expected: "abcd",
		},
		{
			name:     "never splits an entity",
			input:    "ab&c",
			limit:    4,
			expected: "ab",
		},
		{
			name:     "emoji counts two units",
			input:    "a💅b",
			limit:    2,
			expected: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeLimited(tt.input, tt.limit)
			if got != tt.expected {
				t.Errorf("EscapeLimited() = %q, want %q", got, tt.expected)
			}

			if Length(got) > tt.limit {
				t.Errorf("EscapeLimited() length %d exceeds %d", Length(got), tt.limit)
			}
		})
	}
}

func TestLength(t *testing.T) {
	if got := Length(strings.Repeat("💅", 3)); got != 6 {
		t.Errorf("Length() = %d, want 6", got)
	}

	if got := Length("नमस्ते"); got != 6 {
		t.Errorf("Length() = %d, want 6", got)
	}

	if got := Length("ok \xff"); got != 4 {
		t.Errorf("Length() with invalid byte = %d, want 4", got)
	}
}

func TestLengthDoesNotAllocate(t *testing.T) {
	text := strings.Repeat("Ekki 💅 नमस्ते ", 64)

	allocs := testing.AllocsPerRun(100, func() {
		_ = Length(text)
	})
	if allocs != 0 {
		t.Errorf("Length() allocated %.0f times per call, want 0", allocs)
	}
}
