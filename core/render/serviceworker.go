// Package render — service worker renderer.
// Produces a precache / runtime-cache worker for a post, or passes through
// the post's own worker script from the storage network.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/dlux-io/dluxgate/core"
	"github.com/dlux-io/dluxgate/core/assets"
)

// Install precaches PRECACHE_URLS, activate drops caches outside the
// allow-list, fetch serves same-origin requests cache first.
var swTemplate = template.Must(template.New("sw").Parse(`const PRECACHE = 'precache-v1';
const RUNTIME = 'runtime';
const PRECACHE_URLS = [{{.Assets}}];

self.addEventListener('install', event => {
    event.waitUntil(
        caches.open(PRECACHE)
            .then(cache => cache.addAll(PRECACHE_URLS))
            .then(self.skipWaiting())
    );
});
self.addEventListener('activate', event => {
    const currentCaches = [PRECACHE, RUNTIME];
    event.waitUntil(
        caches.keys().then(cacheNames => {
            return cacheNames.filter(cacheName => !currentCaches.includes(cacheName));
        }).then(cachesToDelete => {
            return Promise.all(cachesToDelete.map(cacheToDelete => caches.delete(cacheToDelete)));
        }).then(() => self.clients.claim())
    );
});
self.addEventListener('fetch', event => {
    if (event.request.url.startsWith(self.location.origin)) {
        event.respondWith(
            caches.match(event.request).then(cachedResponse => {
                if (cachedResponse) return cachedResponse;
                return caches.open(RUNTIME).then(cache => {
                    return fetch(event.request).then(response => {
                        return cache.put(event.request, response.clone()).then(() => response);
                    });
                });
            })
        );
    }
});`))

// ServiceWorkerRenderer renders a post's service worker script.
type ServiceWorkerRenderer struct {
	storage core.StorageFetcher
}

// NewServiceWorkerRenderer creates a ServiceWorkerRenderer. storage is used
// when a post points at its own worker script.
func NewServiceWorkerRenderer(storage core.StorageFetcher) *ServiceWorkerRenderer {
	return &ServiceWorkerRenderer{storage: storage}
}

// Render returns core.ErrNotSupported when the post disabled its service
// worker. A post-supplied script is fetched and returned verbatim; otherwise
// the precache template is filled with the post's asset list.
func (r *ServiceWorkerRenderer) Render(ctx context.Context, meta core.Metadata, author, permlink string) (*core.Artifact, error) {
	if !meta.ServiceWorkerEnabled {
		return nil, fmt.Errorf("service worker for @%s/%s: %w", author, permlink, core.ErrNotSupported)
	}

	if meta.ServiceWorkerURL != "" {
		path := meta.ServiceWorkerURL
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		obj, err := r.storage.FetchPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("fetching service worker %s: %w", path, err)
		}
		return jsArtifact(obj.Body), nil
	}

	list, err := quoteAll(assets.Build(meta, author, permlink))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := swTemplate.Execute(&buf, struct{ Assets string }{list}); err != nil {
		return nil, fmt.Errorf("executing service worker template: %w", err)
	}
	return jsArtifact(buf.Bytes()), nil
}

// Extension returns the file extension for service worker output.
func (r *ServiceWorkerRenderer) Extension() string {
	return ".sw.js"
}

func jsArtifact(body []byte) *core.Artifact {
	return &core.Artifact{
		Kind:        core.ArtifactServiceWorker,
		ContentType: "application/javascript",
		Body:        body,
	}
}

// quoteAll renders each URL as a JavaScript string literal, comma joined.
func quoteAll(urls []string) (string, error) {
	quoted := make([]string, len(urls))
	for i, u := range urls {
		b, err := json.Marshal(u)
		if err != nil {
			return "", fmt.Errorf("quoting %q: %w", u, err)
		}
		quoted[i] = string(b)
	}
	return strings.Join(quoted, ", "), nil
}
