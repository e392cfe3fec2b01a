package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlux-io/dluxgate/core"
)

var rc = core.RequestContext{Protocol: "https", Host: "alice.dlux.io"}

func TestNormalizeDefaults(t *testing.T) {
	rec := &core.ContentRecord{Author: "alice", Title: "My Post", Body: "Hello world", JSONMetadata: "{}"}

	meta := New("").Normalize(rec, rc)

	assert.Equal(t, "My Post", meta.Title)
	assert.Equal(t, "Hello world", meta.Description)
	assert.Equal(t, "https://alice.dlux.io/img/dlux-icon-192.png", meta.Image)
	assert.Empty(t, meta.PrimaryHash)
	assert.Empty(t, meta.ContentHash)
	assert.True(t, meta.ServiceWorkerEnabled)
	assert.Empty(t, meta.ServiceWorkerURL)
	assert.Nil(t, meta.AppIcons)
}

func TestNormalizeEmptyRecord(t *testing.T) {
	meta := New("/logo.png").Normalize(&core.ContentRecord{Author: "alice"}, rc)

	assert.Equal(t, DefaultTitle, meta.Title)
	assert.Equal(t, DefaultDescription, meta.Description)
	assert.Equal(t, "https://alice.dlux.io/logo.png", meta.Image)
}

func TestNormalizeDescriptionChain(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		body     string
		want     string
	}{
		{"content wins", `{"content":{"description":"c"},"video":{"content":{"description":"v"}}}`, "b", "c"},
		{"video next", `{"video":{"content":{"description":"v"}}}`, "b", "v"},
		{"empty content skipped", `{"content":{"description":""},"video":{"content":{"description":"v"}}}`, "b", "v"},
		{"body next", `{"content":{}}`, "b", "b"},
		{"literal last", `{}`, "", DefaultDescription},
		{"wrong type ignored", `{"content":{"description":["x"]}}`, "b", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &core.ContentRecord{Author: "alice", Body: tt.body, JSONMetadata: tt.metadata}
			assert.Equal(t, tt.want, New("").Normalize(rec, rc).Description)
		})
	}
}

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		want     string
	}{
		{"first image", `{"image":["https://img/a.png","https://img/b.png"]}`, "https://img/a.png"},
		{"empty list", `{"image":[]}`, "https://alice.dlux.io/img/dlux-icon-192.png"},
		{"empty first", `{"image":[""]}`, "https://alice.dlux.io/img/dlux-icon-192.png"},
		{"not a list", `{"image":"https://img/a.png"}`, "https://alice.dlux.io/img/dlux-icon-192.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &core.ContentRecord{Author: "alice", JSONMetadata: tt.metadata}
			assert.Equal(t, tt.want, New("").Normalize(rec, rc).Image)
		})
	}
}

func TestNormalizeHashChains(t *testing.T) {
	tests := []struct {
		name        string
		metadata    string
		wantPrimary string
		wantContent string
	}{
		{"dapp first", `{"dappCID":"QmD","vrHash":"QmV"}`, "QmD", "QmV"},
		{"vr", `{"vrHash":"QmV","arHash":"QmA"}`, "QmV", "QmV"},
		{"ar", `{"arHash":"QmA","appHash":"QmP"}`, "QmA", "QmA"},
		{"app", `{"vrHash":"","appHash":"QmP","audHash":"QmU"}`, "QmP", "QmP"},
		{"aud", `{"audHash":"QmU"}`, "QmU", "QmU"},
		{"none", `{}`, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := New("").Normalize(&core.ContentRecord{Author: "alice", JSONMetadata: tt.metadata}, rc)
			assert.Equal(t, tt.wantPrimary, meta.PrimaryHash)
			assert.Equal(t, tt.wantContent, meta.ContentHash)
		})
	}
}

func TestNormalizeServiceWorkerFlag(t *testing.T) {
	tests := []struct {
		metadata string
		want     bool
	}{
		{`{}`, true},
		{`{"enableServiceWorker":true}`, true},
		{`{"enableServiceWorker":false}`, false},
		{`{"enableServiceWorker":"false"}`, true},
		{`{"enableServiceWorker":0}`, true},
		{`{"enableServiceWorker":null}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.metadata, func(t *testing.T) {
			meta := New("").Normalize(&core.ContentRecord{Author: "a", JSONMetadata: tt.metadata}, rc)
			assert.Equal(t, tt.want, meta.ServiceWorkerEnabled)
		})
	}
}

func TestNormalizeLists(t *testing.T) {
	rec := &core.ContentRecord{Author: "bob", JSONMetadata: `{
		"assets": [{"hash":"Qm1","name":"a"}, {"name":"no hash"}, "bogus", {"hash":"Qm2"}],
		"morePrecacheUrls": ["/a.css", 3, "/b.js"],
		"appIcons": [{"src":"/i.png","sizes":"64x64"}],
		"sw": "/custom-sw.js"
	}`}

	meta := New("").Normalize(rec, rc)

	assert.Equal(t, []string{"Qm1", "Qm2"}, meta.AssetHashes)
	assert.Equal(t, []string{"/a.css", "3", "/b.js"}, meta.ExtraPrecacheURLs)
	assert.JSONEq(t, `[{"src":"/i.png","sizes":"64x64"}]`, string(meta.AppIcons))
	assert.Equal(t, "/custom-sw.js", meta.ServiceWorkerURL)
}

func TestParseMetadataMalformed(t *testing.T) {
	sm, malformed := ParseMetadata(`{"dappCID":`)
	assert.True(t, malformed)
	assert.Equal(t, StructuredMetadata{}, sm)

	sm, malformed = ParseMetadata("")
	assert.False(t, malformed)
	assert.Equal(t, StructuredMetadata{}, sm)

	sm, malformed = ParseMetadata(`["not","an","object"]`)
	assert.False(t, malformed)
	assert.Equal(t, StructuredMetadata{}, sm)
}

func TestNormalizeMalformedDegradesToDefaults(t *testing.T) {
	rec := &core.ContentRecord{Author: "alice", Title: "T", Body: "B", JSONMetadata: `{not json`}

	meta := New("").Normalize(rec, rc)

	assert.Equal(t, "T", meta.Title)
	assert.Equal(t, "B", meta.Description)
	assert.True(t, meta.ServiceWorkerEnabled)
}

func TestNormalizeDeterministic(t *testing.T) {
	rec := &core.ContentRecord{Author: "alice", Title: "T", JSONMetadata: `{"assets":[{"hash":"a"},{"hash":"b"}],"image":["x"]}`}
	n := New("")
	first := n.Normalize(rec, rc)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, n.Normalize(rec, rc))
	}
}
