package core

import "errors"

var (
	// ErrNotFound means the record is absent or its author does not match the request.
	ErrNotFound = errors.New("not found")
	// ErrNotSupported means the post disabled the requested feature in its metadata.
	ErrNotSupported = errors.New("not supported")
	// ErrTransport covers network, status and decoding failures talking to upstream.
	ErrTransport = errors.New("transport error")
)
