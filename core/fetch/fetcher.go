// Package fetch implements the ContentFetcher and StorageFetcher interfaces.
// Content records come from a Hive-style JSON-RPC API; blobs come from an
// IPFS gateway or a kubo RPC endpoint.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dlux-io/dluxgate/core"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "dluxgate/1.0 (https://github.com/dlux-io/dluxgate)"

	getContentMethod = "condenser_api.get_content"
)

// RPCFetcher fetches content records via JSON-RPC.
type RPCFetcher struct {
	endpoint string
	client   *http.Client
}

// NewRPCFetcher creates an RPCFetcher for the given API endpoint.
// A non-positive timeout falls back to the default.
func NewRPCFetcher(endpoint string, timeout time.Duration) *RPCFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RPCFetcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
	ID      int      `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result *core.ContentRecord `json:"result"`
	Error  *rpcError           `json:"error"`
}

// FetchContent issues a single get_content call. It returns core.ErrNotFound
// unless the result's author matches the requested author exactly, and
// core.ErrTransport for any network, status or decoding failure.
func (f *RPCFetcher) FetchContent(ctx context.Context, author, permlink string) (*core.ContentRecord, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  getContentMethod,
		Params:  []string{author, permlink},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling %s: %w", core.ErrTransport, f.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", core.ErrTransport, resp.StatusCode, f.endpoint)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", core.ErrTransport, err)
	}

	if out.Error != nil {
		return nil, fmt.Errorf("%w: @%s/%s: rpc error %d: %s", core.ErrNotFound, author, permlink, out.Error.Code, out.Error.Message)
	}
	if out.Result == nil || out.Result.Author != author {
		return nil, fmt.Errorf("%w: @%s/%s", core.ErrNotFound, author, permlink)
	}
	return out.Result, nil
}
