// Package links builds the URLs the download page hands to the browser.
package links

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint paths of the LocalSend download API.
const (
	PrepareDownloadPath = "/api/localsend/v2/prepare-download"
	DownloadPath        = "/api/localsend/v2/download"
)

// Placeholder is returned when no manifest has been loaded yet.
const Placeholder = "#"

// Builder builds download and share URLs against a fixed origin.
type Builder struct {
	origin *url.URL
}

// NewBuilder parses origin (scheme://host[:port]). Any path, query or
// fragment on origin is dropped.
func NewBuilder(origin string) (*Builder, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q must include scheme and host", origin)
	}
	return &Builder{origin: &url.URL{Scheme: u.Scheme, Host: u.Host}}, nil
}

// Origin returns the builder's origin as a string.
func (b *Builder) Origin() string {
	return b.origin.String()
}

// BuildURL returns the download URL for fileID within the session the
// manifest echoed back. Without a manifest session id it returns "#".
func (b *Builder) BuildURL(manifestSessionID, fileID string) string {
	if manifestSessionID == "" {
		return Placeholder
	}
	u := *b.origin
	u.Path = DownloadPath
	q := url.Values{}
	q.Set("sessionId", manifestSessionID)
	q.Set("fileId", fileID)
	u.RawQuery = q.Encode()
	return u.String()
}

// ShareURL returns the page link a sender hands out: pagePath?session=<id>.
func (b *Builder) ShareURL(pagePath, sessionID string) string {
	u := *b.origin
	u.Path = pagePath
	if u.Path == "" {
		u.Path = "/"
	}
	q := url.Values{}
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String()
}
