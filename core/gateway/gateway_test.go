package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlux-io/dluxgate/core"
	"github.com/dlux-io/dluxgate/core/fetch"
	"github.com/dlux-io/dluxgate/core/sanitize"
)

const bundleCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

var rc = core.RequestContext{Protocol: "https", Host: "alice.dlux.io"}

// hiveServer answers get_content with the given result for every request.
func hiveServer(t *testing.T, result map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type stubStorage struct {
	objects map[string]*core.StorageObject
}

func (s *stubStorage) FetchPath(_ context.Context, path string) (*core.StorageObject, error) {
	if obj, ok := s.objects[path]; ok {
		return obj, nil
	}
	return nil, core.ErrTransport
}

func newService(t *testing.T, result map[string]string, storage core.StorageFetcher) *Service {
	t.Helper()
	srv := hiveServer(t, result)
	if storage == nil {
		storage = &stubStorage{}
	}
	return New(fetch.NewRPCFetcher(srv.URL, time.Second), storage, sanitize.New(), Options{})
}

func TestHTMLExample(t *testing.T) {
	svc := newService(t, map[string]string{
		"author": "alice", "title": "My Post", "body": "Hello world", "json_metadata": "{}",
	}, nil)

	art, err := svc.HTML(context.Background(), "alice", "my-post", rc)
	require.NoError(t, err)
	body := string(art.Body)
	assert.Contains(t, body, "DLUX | My Post")
	assert.Contains(t, body, `<meta property="og:description" content="Hello world">`)
	assert.Contains(t, body, `<meta property="og:image" content="https://alice.dlux.io/img/dlux-icon-192.png">`)
}

func TestServiceWorkerExample(t *testing.T) {
	svc := newService(t, map[string]string{
		"author":        "bob",
		"json_metadata": `{"assets":[{"hash":"Qm1"},{"hash":"Qm2"}],"dappCID":"Qm1"}`,
	}, nil)

	art, err := svc.ServiceWorker(context.Background(), "bob", "post1", rc)
	require.NoError(t, err)
	assert.Contains(t, string(art.Body), `const PRECACHE_URLS = ["/@bob/post1", "/ipfs/Qm1", "/ipfs/Qm2"];`)
}

func TestServiceWorkerExplicitScript(t *testing.T) {
	storage := &stubStorage{objects: map[string]*core.StorageObject{
		"/custom-sw.js": {Path: "/custom-sw.js", ContentType: "application/javascript", Body: []byte("/* mine */")},
	}}
	svc := newService(t, map[string]string{"author": "bob", "json_metadata": `{"sw":"/custom-sw.js"}`}, storage)

	art, err := svc.ServiceWorker(context.Background(), "bob", "post1", rc)
	require.NoError(t, err)
	assert.Equal(t, "/* mine */", string(art.Body))
}

func TestAuthorMismatchIsNotFoundEverywhere(t *testing.T) {
	svc := newService(t, map[string]string{"author": "mallory", "title": "x", "json_metadata": "{}"}, nil)

	for _, kind := range []core.ArtifactKind{core.ArtifactHTML, core.ArtifactServiceWorker, core.ArtifactManifest} {
		_, err := svc.Render(context.Background(), kind, "alice", "p", rc)
		assert.ErrorIs(t, err, core.ErrNotFound, string(kind))
	}
	_, err := svc.DApp(context.Background(), "alice", "p")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDisabledFlagBlocksWorkerAndManifest(t *testing.T) {
	svc := newService(t, map[string]string{
		"author":        "alice",
		"json_metadata": `{"enableServiceWorker":false,"sw":"/custom-sw.js","appIcons":[{"src":"x"}],"vrHash":"QmV"}`,
	}, nil)

	_, err := svc.ServiceWorker(context.Background(), "alice", "p", rc)
	assert.ErrorIs(t, err, core.ErrNotSupported)
	_, err = svc.Manifest(context.Background(), "alice", "p", rc)
	assert.ErrorIs(t, err, core.ErrNotSupported)

	_, err = svc.HTML(context.Background(), "alice", "p", rc)
	assert.NoError(t, err)
}

func TestMalformedMetadataDegrades(t *testing.T) {
	svc := newService(t, map[string]string{"author": "alice", "title": "T", "body": "B", "json_metadata": "{oops"}, nil)

	art, err := svc.ServiceWorker(context.Background(), "alice", "p", rc)
	require.NoError(t, err)
	assert.Contains(t, string(art.Body), `["/@alice/p", "/ipfs/"]`)

	art, err = svc.Manifest(context.Background(), "alice", "p", rc)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(art.Body, &m))
	assert.Equal(t, "T", m["name"])
	assert.Equal(t, "B", m["description"])
}

func TestTransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	svc := New(fetch.NewRPCFetcher(srv.URL, time.Second), &stubStorage{}, sanitize.New(), Options{})

	_, err := svc.HTML(context.Background(), "alice", "p", rc)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.NotErrorIs(t, err, core.ErrNotFound)
}

func TestRenderUnknownKind(t *testing.T) {
	svc := newService(t, map[string]string{"author": "alice"}, nil)
	_, err := svc.Render(context.Background(), "pdf", "alice", "p", rc)
	assert.Error(t, err)
	assert.Empty(t, svc.Extension("pdf"))
	assert.Equal(t, ".html", svc.Extension(core.ArtifactHTML))
}

func TestDAppInjectsWalletScript(t *testing.T) {
	storage := &stubStorage{objects: map[string]*core.StorageObject{
		"/ipfs/" + bundleCID: {
			ContentType: "text/html; charset=utf-8",
			Body:        []byte("<html><head><title>app</title></head><body></head></body></html>"),
		},
	}}
	svc := newService(t, map[string]string{"author": "alice", "json_metadata": `{"dappCID":"` + bundleCID + `"}`}, storage)

	art, err := svc.DApp(context.Background(), "alice", "p")
	require.NoError(t, err)
	body := string(art.Body)
	assert.Equal(t, "text/html; charset=utf-8", art.ContentType)
	assert.Contains(t, body, `<title>app</title><script src="https://dlux.io/js/dlux-wallet.js"></script></head>`)
	assert.Equal(t, 1, strings.Count(body, "dlux-wallet.js"))
}

func TestDAppFailures(t *testing.T) {
	html := &core.StorageObject{ContentType: "text/html", Body: []byte("<head></head>")}
	binary := &core.StorageObject{ContentType: "application/octet-stream", Body: []byte{0, 1, 2}}

	tests := []struct {
		name     string
		metadata string
		objects  map[string]*core.StorageObject
		want     error
	}{
		{"no bundle", `{"vrHash":"` + bundleCID + `"}`, nil, ErrNoBundle},
		{"malformed metadata", `{`, nil, ErrNoBundle},
		{"fetch failure", `{"dappCID":"` + bundleCID + `"}`, nil, core.ErrTransport},
		{"not text", `{"dappCID":"` + bundleCID + `"}`, map[string]*core.StorageObject{"/ipfs/" + bundleCID: binary}, ErrNotText},
		{"invalid cid", `{"dappCID":"not-a-cid"}`, map[string]*core.StorageObject{"/ipfs/not-a-cid": html}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, map[string]string{"author": "alice", "json_metadata": tt.metadata}, &stubStorage{objects: tt.objects})
			_, err := svc.DApp(context.Background(), "alice", "p")
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), err.Error())
			}
		})
	}
}

func TestOversizedObjectsAreRejected(t *testing.T) {
	ipfs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head></head><body>" + strings.Repeat("x", 64) + "</body></html>"))
	}))
	t.Cleanup(ipfs.Close)
	storage := fetch.NewGatewayFetcher(ipfs.URL, time.Second, 20)

	svc := newService(t, map[string]string{"author": "alice", "json_metadata": `{"dappCID":"` + bundleCID + `","sw":"/big-sw.js"}`}, storage)

	_, err := svc.DApp(context.Background(), "alice", "p")
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.ErrorIs(t, err, fetch.ErrTooLarge)

	_, err = svc.ServiceWorker(context.Background(), "alice", "p", rc)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.ErrorIs(t, err, fetch.ErrTooLarge)
}

func TestIsText(t *testing.T) {
	assert.True(t, isText("text/html; charset=utf-8"))
	assert.True(t, isText("text/plain"))
	assert.True(t, isText("application/xhtml+xml"))
	assert.False(t, isText("application/octet-stream"))
	assert.False(t, isText("image/png"))
	assert.False(t, isText(""))
}
