// Package gateway runs the dluxgate pipeline for one request:
// fetch → normalize → (sanitize, asset list) → render.
//
// It also resolves dApp bundles for the proxy route. Nothing here is cached;
// every call fetches the record again.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/dlux-io/dluxgate/core"
	"github.com/dlux-io/dluxgate/core/assets"
	"github.com/dlux-io/dluxgate/core/normalize"
	"github.com/dlux-io/dluxgate/core/render"
)

// DefaultWalletScript is injected into proxied dApp bundles.
const DefaultWalletScript = "https://dlux.io/js/dlux-wallet.js"

var (
	// ErrNoBundle means the post has no dApp bundle to proxy.
	ErrNoBundle = errors.New("post has no dApp bundle")
	// ErrNotText means the bundle is not an HTML/text document.
	ErrNotText = errors.New("bundle is not a text document")
)

// Options configures a Service.
type Options struct {
	ImagePath    string // host-relative fallback preview image
	WalletScript string // script URL injected into dApp bundles
	Logger       *zap.Logger
}

// Service wires the pipeline stages together.
type Service struct {
	content    core.ContentFetcher
	storage    core.StorageFetcher
	normalizer *normalize.Normalizer
	html       *render.HTMLRenderer
	sw         *render.ServiceWorkerRenderer
	manifest   *render.ManifestRenderer
	wallet     string
	logger     *zap.Logger
}

// New creates a Service.
func New(content core.ContentFetcher, storage core.StorageFetcher, sanitizer core.Sanitizer, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WalletScript == "" {
		opts.WalletScript = DefaultWalletScript
	}
	return &Service{
		content:    content,
		storage:    storage,
		normalizer: normalize.New(opts.ImagePath),
		html:       render.NewHTMLRenderer(sanitizer),
		sw:         render.NewServiceWorkerRenderer(storage),
		manifest:   render.NewManifestRenderer(sanitizer),
		wallet:     opts.WalletScript,
		logger:     opts.Logger,
	}
}

// resolve fetches and normalizes a record. Fetch errors pass through unchanged.
func (s *Service) resolve(ctx context.Context, author, permlink string, rc core.RequestContext) (core.Metadata, error) {
	rec, err := s.content.FetchContent(ctx, author, permlink)
	if err != nil {
		return core.Metadata{}, fmt.Errorf("fetch: %w", err)
	}
	sm, malformed := normalize.ParseMetadata(rec.JSONMetadata)
	if malformed {
		s.logger.Debug("malformed json_metadata, using defaults",
			zap.String("author", author), zap.String("permlink", permlink))
	}
	return s.normalizer.FromStructured(rec, sm, rc), nil
}

// HTML renders the social-preview document.
func (s *Service) HTML(ctx context.Context, author, permlink string, rc core.RequestContext) (*core.Artifact, error) {
	meta, err := s.resolve(ctx, author, permlink, rc)
	if err != nil {
		return nil, err
	}
	return s.html.Render(meta, author, permlink, rc)
}

// ServiceWorker renders the post's service worker script.
func (s *Service) ServiceWorker(ctx context.Context, author, permlink string, rc core.RequestContext) (*core.Artifact, error) {
	meta, err := s.resolve(ctx, author, permlink, rc)
	if err != nil {
		return nil, err
	}
	return s.sw.Render(ctx, meta, author, permlink)
}

// Manifest renders the post's web app manifest.
func (s *Service) Manifest(ctx context.Context, author, permlink string, rc core.RequestContext) (*core.Artifact, error) {
	meta, err := s.resolve(ctx, author, permlink, rc)
	if err != nil {
		return nil, err
	}
	return s.manifest.Render(meta, author, permlink, rc)
}

// Render dispatches on kind.
func (s *Service) Render(ctx context.Context, kind core.ArtifactKind, author, permlink string, rc core.RequestContext) (*core.Artifact, error) {
	switch kind {
	case core.ArtifactHTML:
		return s.HTML(ctx, author, permlink, rc)
	case core.ArtifactServiceWorker:
		return s.ServiceWorker(ctx, author, permlink, rc)
	case core.ArtifactManifest:
		return s.Manifest(ctx, author, permlink, rc)
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// Extension returns the output file extension for kind.
func (s *Service) Extension(kind core.ArtifactKind) string {
	switch kind {
	case core.ArtifactHTML:
		return s.html.Extension()
	case core.ArtifactServiceWorker:
		return s.sw.Extension()
	case core.ArtifactManifest:
		return s.manifest.Extension()
	default:
		return ""
	}
}

// DApp fetches the post's dApp bundle and injects the wallet script before
// the first </head>. Any error means the caller should fall back to the
// canonical page.
func (s *Service) DApp(ctx context.Context, author, permlink string) (*core.Artifact, error) {
	rec, err := s.content.FetchContent(ctx, author, permlink)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	sm, _ := normalize.ParseMetadata(rec.JSONMetadata)
	if sm.DappCID == "" {
		return nil, ErrNoBundle
	}
	if _, err := cid.Decode(sm.DappCID); err != nil {
		return nil, fmt.Errorf("invalid dappCID %q: %w", sm.DappCID, err)
	}

	obj, err := s.storage.FetchPath(ctx, assets.IPFSPath(sm.DappCID))
	if err != nil {
		return nil, fmt.Errorf("fetching bundle: %w", err)
	}
	if !isText(obj.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrNotText, obj.ContentType)
	}

	tag := `<script src="` + s.wallet + `"></script>`
	body := strings.Replace(string(obj.Body), "</head>", tag+"</head>", 1)
	return &core.Artifact{
		Kind:        core.ArtifactHTML,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}, nil
}

func isText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}
