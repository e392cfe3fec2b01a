package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/dlux-io/dluxgate/core"
)

const defaultMaxBytes int64 = 32 << 20

// ErrTooLarge means a stored object exceeds the configured size limit.
var ErrTooLarge = errors.New("object exceeds size limit")

// GatewayFetcher reads paths from an HTTP IPFS gateway ({base}/ipfs/{hash}).
type GatewayFetcher struct {
	base     string
	maxBytes int64
	client   *http.Client
}

// NewGatewayFetcher creates a GatewayFetcher rooted at base.
func NewGatewayFetcher(base string, timeout time.Duration, maxBytes int64) *GatewayFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &GatewayFetcher{
		base:     strings.TrimSuffix(base, "/"),
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: timeout},
	}
}

// FetchPath GETs base+path and returns the body with its content type.
func (f *GatewayFetcher) FetchPath(ctx context.Context, path string) (*core.StorageObject, error) {
	url := f.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", core.ErrTransport, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d for %s", core.ErrTransport, resp.StatusCode, url)
	}

	body, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", core.ErrTransport, url, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return &core.StorageObject{Path: path, ContentType: contentType, Body: body}, nil
}

// ShellFetcher reads paths through a kubo RPC API with `cat`.
type ShellFetcher struct {
	sh       *shell.Shell
	maxBytes int64
}

// NewShellFetcher creates a ShellFetcher for the kubo RPC API at apiURL.
func NewShellFetcher(apiURL string, timeout time.Duration, maxBytes int64) *ShellFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &ShellFetcher{
		sh:       shell.NewShellWithClient(apiURL, &http.Client{Timeout: timeout}),
		maxBytes: maxBytes,
	}
}

// FetchPath cats the given IPFS path. The content type is sniffed since the
// RPC API does not report one.
func (f *ShellFetcher) FetchPath(ctx context.Context, path string) (*core.StorageObject, error) {
	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rc, err := f.sh.Cat(path)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer rc.Close()
		body, err := readLimited(rc, f.maxBytes)
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: cat %s: %w", core.ErrTransport, path, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: cat %s: %w", core.ErrTransport, path, r.err)
		}
		return &core.StorageObject{Path: path, ContentType: http.DetectContentType(r.body), Body: r.body}, nil
	}
}

// readLimited reads all of r, failing with ErrTooLarge past maxBytes
// instead of returning a cut-off body.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return body, nil
}
