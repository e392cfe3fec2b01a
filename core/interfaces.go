// Package core defines the pipeline types and interfaces for dluxgate.
// Each stage of the pipeline (fetch, normalize, sanitize, render) is a clean,
// testable interface; the HTTP layer and the CLI only wire them together.
package core

import (
	"context"
	"encoding/json"
)

// ContentRecord is a post as returned by the upstream content API.
type ContentRecord struct {
	Author       string `json:"author"`
	Permlink     string `json:"permlink"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	JSONMetadata string `json:"json_metadata"` // JSON document encoded as a string
}

// RequestContext carries the routing details needed to build absolute URLs.
type RequestContext struct {
	Protocol string
	Host     string
	RouteTag string // optional leading path segment, e.g. "hive"
}

// Metadata is the normalized view of a content record.
// It is derived once per request and never shared.
type Metadata struct {
	Title       string
	Description string // raw, sanitized by the renderers
	Image       string

	DappCID     string
	ContentHash string // vrHash -> arHash -> appHash -> audHash
	PrimaryHash string // dappCID, then the ContentHash chain

	AssetHashes       []string
	ExtraPrecacheURLs []string
	AppIcons          json.RawMessage

	ServiceWorkerEnabled bool
	ServiceWorkerURL     string
}

// ArtifactKind names one of the renderable outputs.
type ArtifactKind string

const (
	ArtifactHTML          ArtifactKind = "html"
	ArtifactServiceWorker ArtifactKind = "service-worker"
	ArtifactManifest      ArtifactKind = "manifest"
)

// Artifact is a finished rendering, ready to be written to a response or a file.
type Artifact struct {
	Kind        ArtifactKind
	ContentType string
	Body        []byte
}

// StorageObject is a blob retrieved from the content-addressed storage network.
type StorageObject struct {
	Path        string
	ContentType string
	Body        []byte
}

// ContentFetcher resolves a content record for an author/permalink pair.
type ContentFetcher interface {
	FetchContent(ctx context.Context, author, permlink string) (*ContentRecord, error)
}

// StorageFetcher retrieves a path (e.g. "/ipfs/<cid>") from the storage network.
type StorageFetcher interface {
	FetchPath(ctx context.Context, path string) (*StorageObject, error)
}

// Sanitizer flattens rich text into a short plain-text description.
type Sanitizer interface {
	Sanitize(raw string) string
}
