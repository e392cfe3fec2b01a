// Package render — web app manifest renderer.
// Builds the installable-app manifest for a post. Availability follows the
// post's service worker flag.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dlux-io/dluxgate/core"
)

const (
	manifestSchema  = "https://json.schemastore.org/web-manifest-combined.json"
	manifestShort   = "DLUX-dApp"
	manifestDisplay = "standalone"
	manifestColor   = "#111222"
)

// Icon is a web app manifest icon entry.
type Icon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
}

// DefaultIcons are used when a post does not declare appIcons.
var DefaultIcons = []Icon{
	{Src: "https://dlux.io/img/dlux-hive-logo-alpha.svg", Sizes: "192x192", Type: "image/svg"},
	{Src: "https://dlux.io/img/dlux-logo-icon.png", Sizes: "695x695", Type: "image/png", Purpose: "any"},
	{Src: "https://dlux.io/img/dlux-icon-192.png", Sizes: "192x192", Type: "image/png", Purpose: "any maskable"},
}

// Manifest is the rendered manifest document. Field order is output order.
type Manifest struct {
	Schema          string `json:"$schema"`
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	StartURL        string `json:"start_url"`
	Scope           string `json:"scope"`
	Display         string `json:"display"`
	BackgroundColor string `json:"background_color"`
	ThemeColor      string `json:"theme_color"`
	Description     string `json:"description"`
	Icons           any    `json:"icons"`
}

// ManifestRenderer renders a post's web app manifest.
type ManifestRenderer struct {
	sanitizer core.Sanitizer
}

// NewManifestRenderer creates a ManifestRenderer using s for descriptions.
func NewManifestRenderer(s core.Sanitizer) *ManifestRenderer {
	return &ManifestRenderer{sanitizer: s}
}

// Build returns the manifest document, or core.ErrNotSupported when the post
// disabled its service worker.
func (r *ManifestRenderer) Build(meta core.Metadata, author, permlink string, rc core.RequestContext) (*Manifest, error) {
	if !meta.ServiceWorkerEnabled {
		return nil, fmt.Errorf("manifest for @%s/%s: %w", author, permlink, core.ErrNotSupported)
	}

	var icons any = DefaultIcons
	if len(meta.AppIcons) > 0 {
		icons = meta.AppIcons
	}
	url := CanonicalURL(rc, author, permlink)
	return &Manifest{
		Schema:          manifestSchema,
		Name:            meta.Title,
		ShortName:       manifestShort,
		StartURL:        url,
		Scope:           url,
		Display:         manifestDisplay,
		BackgroundColor: manifestColor,
		ThemeColor:      manifestColor,
		Description:     r.sanitizer.Sanitize(meta.Description),
		Icons:           icons,
	}, nil
}

// Render marshals the manifest as two-space indented JSON.
func (r *ManifestRenderer) Render(meta core.Metadata, author, permlink string, rc core.RequestContext) (*core.Artifact, error) {
	m, err := r.Build(meta, author, permlink, rc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return &core.Artifact{
		Kind:        core.ArtifactManifest,
		ContentType: "application/manifest+json",
		Body:        bytes.TrimRight(buf.Bytes(), "\n"),
	}, nil
}

// Extension returns the file extension for manifest output.
func (r *ManifestRenderer) Extension() string {
	return ".webmanifest"
}
