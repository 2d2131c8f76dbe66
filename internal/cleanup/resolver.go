package cleanup

import (
	"net/url"
	"strings"
)

// downloadMarker separates the bucket part of a storage download URL from the
// percent-encoded object path, e.g.
// https://firebasestorage.googleapis.com/v0/b/<bucket>/o/permits%2F123.jpg?alt=media
const downloadMarker = "/o/"

// StoragePathFromURL recovers the object path embedded in a download URL.
// It is a best-effort heuristic: absent, non-string, relative or malformed
// input and URLs without the marker all report false.
func StoragePathFromURL(v any) (string, bool) {
	raw, ok := v.(string)
	if !ok || raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	_, encoded, found := strings.Cut(u.EscapedPath(), downloadMarker)
	if !found || encoded == "" {
		return "", false
	}

	path, err := url.PathUnescape(encoded)
	if err != nil || path == "" {
		return "", false
	}
	return path, true
}
