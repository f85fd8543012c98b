// Package assets manages chart screenshot storage. Uploads land under a
// staging prefix via presigned URLs; saving a trade promotes referenced
// staged objects to the permanent prefix so abandoned uploads never become
// permanent.
package assets

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const (
	// TempPrefix is where presigned uploads land.
	TempPrefix = "temp/"
	// PermanentPrefix is where promoted images live.
	PermanentPrefix = "setups/"
)

// PresignExpiry bounds how long an upload URL stays valid.
const PresignExpiry = 10 * time.Minute

// BlobStore is the object storage boundary.
type BlobStore interface {
	// PresignPut returns a URL that allows a single direct upload to key.
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Copy duplicates srcKey to dstKey within the bucket.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// BaseURL is the public URL prefix objects are served from, without a
	// trailing slash.
	BaseURL() string
}

// allowedExternalHosts are chart hosts whose links may be stored directly on
// a trade without passing through the bucket.
var allowedExternalHosts = []string{
	"drive.google.com",
	"tradingview.com",
}

// IsExternalLink reports whether rawURL points at an allowed external chart
// host rather than the bucket.
func IsExternalLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, allowed := range allowedExternalHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// keyFromURL extracts the object key from a bucket URL, or "" when the URL
// is not under baseURL.
func keyFromURL(rawURL, baseURL string) string {
	prefix := baseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return ""
	}
	return strings.TrimPrefix(rawURL, prefix)
}
