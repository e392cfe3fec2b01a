// Package normalize derives the gateway's Metadata from a raw content record.
// It applies the fallback chains for title, description, image and hashes,
// and never fails: bad metadata degrades to defaults.
package normalize

import (
	"github.com/dlux-io/dluxgate/core"
)

const (
	DefaultTitle       = "Untitled"
	DefaultDescription = "No description available"
	DefaultImagePath   = "/img/dlux-icon-192.png"
)

// Normalizer builds core.Metadata from content records.
type Normalizer struct {
	imagePath string
}

// New creates a Normalizer. imagePath is the host-relative path of the
// fallback preview image; empty means DefaultImagePath.
func New(imagePath string) *Normalizer {
	if imagePath == "" {
		imagePath = DefaultImagePath
	}
	return &Normalizer{imagePath: imagePath}
}

// Normalize converts a record into Metadata. rc is only used to build the
// absolute URL of the fallback image.
func (n *Normalizer) Normalize(rec *core.ContentRecord, rc core.RequestContext) core.Metadata {
	sm, _ := ParseMetadata(rec.JSONMetadata)
	return n.FromStructured(rec, sm, rc)
}

// FromStructured is Normalize for callers that already parsed the metadata.
func (n *Normalizer) FromStructured(rec *core.ContentRecord, sm StructuredMetadata, rc core.RequestContext) core.Metadata {
	contentHash := firstNonEmpty(sm.VRHash, sm.ARHash, sm.AppHash, sm.AudHash)

	meta := core.Metadata{
		Title:                firstNonEmpty(rec.Title, DefaultTitle),
		Description:          firstNonEmpty(sm.ContentDescription, sm.VideoContentDescription, rec.Body, DefaultDescription),
		Image:                n.DefaultImage(rc),
		DappCID:              sm.DappCID,
		ContentHash:          contentHash,
		PrimaryHash:          firstNonEmpty(sm.DappCID, contentHash),
		AppIcons:             sm.AppIcons,
		ServiceWorkerEnabled: sm.EnableServiceWorker == nil || *sm.EnableServiceWorker,
		ServiceWorkerURL:     sm.SW,
	}
	if len(sm.Image) > 0 && sm.Image[0] != "" {
		meta.Image = sm.Image[0]
	}
	for _, a := range sm.Assets {
		meta.AssetHashes = append(meta.AssetHashes, a.Hash)
	}
	meta.ExtraPrecacheURLs = append(meta.ExtraPrecacheURLs, sm.MorePrecacheURLs...)
	return meta
}

// DefaultImage returns the absolute URL of the fallback preview image.
func (n *Normalizer) DefaultImage(rc core.RequestContext) string {
	return rc.Protocol + "://" + rc.Host + n.imagePath
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
