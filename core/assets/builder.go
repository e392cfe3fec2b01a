// Package assets builds the ordered precache list for a post's service worker.
package assets

import "github.com/dlux-io/dluxgate/core"

// PagePath returns the canonical host-relative path of a post.
func PagePath(author, permlink string) string {
	return "/@" + author + "/" + permlink
}

// IPFSPath returns the storage path of a content hash.
func IPFSPath(hash string) string {
	return "/ipfs/" + hash
}

// Build returns the URLs the service worker must precache, in order:
// the post page, the primary hash (even when empty), every asset hash other
// than the primary one, then the extra precache URLs verbatim.
func Build(meta core.Metadata, author, permlink string) []string {
	urls := make([]string, 0, 2+len(meta.AssetHashes)+len(meta.ExtraPrecacheURLs))
	urls = append(urls, PagePath(author, permlink), IPFSPath(meta.PrimaryHash))
	for _, hash := range meta.AssetHashes {
		if hash != meta.PrimaryHash {
			urls = append(urls, IPFSPath(hash))
		}
	}
	return append(urls, meta.ExtraPrecacheURLs...)
}
