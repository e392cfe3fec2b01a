// Package sanitize turns post bodies (Markdown with embedded HTML) into the
// short plain-text descriptions used in previews and manifests:
//  1. Markdown is rendered to HTML (raw HTML passes through)
//  2. every tag and attribute is stripped
//  3. whitespace is collapsed and the result is cut to MaxLength runes
package sanitize

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// MaxLength is the description limit in runes.
const MaxLength = 160

const maxStripPasses = 8

// DescriptionSanitizer implements core.Sanitizer. It is safe for concurrent use.
type DescriptionSanitizer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a DescriptionSanitizer.
func New() *DescriptionSanitizer {
	return &DescriptionSanitizer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize returns a tag-free, whitespace-collapsed description of at most
// MaxLength runes. The output is plain text; callers escape it for their
// own output context.
func (s *DescriptionSanitizer) Sanitize(raw string) string {
	var buf bytes.Buffer
	rendered := raw
	if err := s.md.Convert([]byte(raw), &buf); err == nil {
		rendered = buf.String()
	}

	text := strings.Join(strings.Fields(s.stripTags(rendered)), " ")
	return truncate(text, MaxLength)
}

// stripTags removes markup and decodes entities until the text stops
// changing, so encoded markup such as "&lt;b&gt;" cannot decode into a tag.
// Encodings nested deeper than maxStripPasses are returned still escaped.
func (s *DescriptionSanitizer) stripTags(text string) string {
	for range maxStripPasses {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			return text
		}
		text = next
	}
	return s.policy.Sanitize(text)
}

// truncate cuts s to at most n runes. The cut is not word aware.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimRight(s[:i], " ")
		}
		count++
	}
	return s
}
