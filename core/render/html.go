// Package render provides the artifact renderers for the dluxgate pipeline.
// This file implements the HTML renderer: a head-only document carrying the
// social-preview metadata (Open Graph, canonical link, JSON-LD) of a post.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dlux-io/dluxgate/core"
	"github.com/dlux-io/dluxgate/core/assets"
)

// TitlePrefix is prepended to every page and Open Graph title.
const TitlePrefix = "DLUX | "

// htmlShell is a head-only document.
var htmlShell = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html>
    <head>
        <title>` + TitlePrefix + `{{.Title}}</title>
        <meta property="og:type" content="website">
        <meta property="og:url" content="{{.URL}}">
        <meta property="og:image" content="{{.Image}}">
        <meta property="og:title" content="` + TitlePrefix + `{{.Title}}">
        <meta property="og:description" content="{{.Description}}">
        <link rel="canonical" href="{{.URL}}">
        <script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Article",
  "headline": "` + TitlePrefix + `{{.Title}}",
  "image": "{{.Image}}",
  "author": "{{.Author}}",
  "description": "{{.Description}}"
}
</script>
    </head>
</html>`))

type htmlFields struct {
	Title       string
	Image       string
	Description string
	Author      string
	URL         string
}

// CanonicalURL builds {protocol}://{host}[/{tag}]/@{author}/{permlink}.
func CanonicalURL(rc core.RequestContext, author, permlink string) string {
	base := rc.Protocol + "://" + rc.Host
	if rc.RouteTag != "" {
		base += "/" + rc.RouteTag
	}
	return base + assets.PagePath(author, permlink)
}

// HTMLRenderer renders the social-preview document.
type HTMLRenderer struct {
	sanitizer core.Sanitizer
}

// NewHTMLRenderer creates an HTMLRenderer using s for descriptions.
func NewHTMLRenderer(s core.Sanitizer) *HTMLRenderer {
	return &HTMLRenderer{sanitizer: s}
}

// Render fills the shell with the post's title, image and sanitized
// description. Every placeholder occurrence is filled and context-escaped.
func (r *HTMLRenderer) Render(meta core.Metadata, author, permlink string, rc core.RequestContext) (*core.Artifact, error) {
	var buf bytes.Buffer
	err := htmlShell.Execute(&buf, htmlFields{
		Title:       meta.Title,
		Image:       meta.Image,
		Description: r.sanitizer.Sanitize(meta.Description),
		Author:      author,
		URL:         CanonicalURL(rc, author, permlink),
	})
	if err != nil {
		return nil, fmt.Errorf("executing html template: %w", err)
	}
	return &core.Artifact{
		Kind:        core.ArtifactHTML,
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}
