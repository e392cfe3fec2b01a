package normalize

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Asset is one entry of the metadata "assets" list.
type Asset struct {
	Hash string
}

// StructuredMetadata is the subset of a post's json_metadata the gateway
// understands. Every field is optional; a field of the wrong JSON type is
// treated as absent.
type StructuredMetadata struct {
	DappCID string
	SW      string

	// EnableServiceWorker is nil when the key is absent or not a boolean.
	EnableServiceWorker *bool

	VRHash  string
	ARHash  string
	AppHash string
	AudHash string

	Assets           []Asset
	MorePrecacheURLs []string
	AppIcons         json.RawMessage
	Image            []string

	ContentDescription      string
	VideoContentDescription string
}

// ParseMetadata reads the structured metadata document. The second return
// value reports whether raw was malformed; a malformed or empty document
// yields the zero StructuredMetadata.
func ParseMetadata(raw string) (StructuredMetadata, bool) {
	var m StructuredMetadata
	if raw == "" {
		return m, false
	}
	if !gjson.Valid(raw) {
		return m, true
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return m, false
	}

	m.DappCID = str(doc.Get("dappCID"))
	m.SW = str(doc.Get("sw"))

	switch doc.Get("enableServiceWorker").Type {
	case gjson.True:
		enabled := true
		m.EnableServiceWorker = &enabled
	case gjson.False:
		enabled := false
		m.EnableServiceWorker = &enabled
	}

	m.VRHash = str(doc.Get("vrHash"))
	m.ARHash = str(doc.Get("arHash"))
	m.AppHash = str(doc.Get("appHash"))
	m.AudHash = str(doc.Get("audHash"))

	if assets := doc.Get("assets"); assets.IsArray() {
		for _, a := range assets.Array() {
			if !a.IsObject() {
				continue
			}
			if h := str(a.Get("hash")); h != "" {
				m.Assets = append(m.Assets, Asset{Hash: h})
			}
		}
	}

	if urls := doc.Get("morePrecacheUrls"); urls.IsArray() {
		for _, u := range urls.Array() {
			if s := str(u); s != "" {
				m.MorePrecacheURLs = append(m.MorePrecacheURLs, s)
			}
		}
	}

	if icons := doc.Get("appIcons"); icons.IsArray() || icons.IsObject() {
		m.AppIcons = json.RawMessage(icons.Raw)
	}

	if images := doc.Get("image"); images.IsArray() {
		for _, img := range images.Array() {
			m.Image = append(m.Image, str(img))
		}
	}

	m.ContentDescription = str(doc.Get("content.description"))
	m.VideoContentDescription = str(doc.Get("video.content.description"))
	return m, false
}

// str returns the value of a string or non-zero number; anything else is "".
func str(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		if r.Num != 0 {
			return r.Raw
		}
	}
	return ""
}
