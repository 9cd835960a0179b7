package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/localsend-web/server/internal/links"
	"github.com/localsend-web/server/internal/logging"
	"github.com/localsend-web/server/internal/metrics"
	"github.com/localsend-web/server/internal/models"
	"go.uber.org/zap"
)

// User-visible messages used when the upstream gives nothing better.
const (
	MissingSessionMessage = "Missing session ID. Please use the share link provided by the sender."
	DefaultPinMessage     = "PIN required"
	DefaultFetchMessage   = "Failed to fetch file list"
)

// DefaultMaxManifestBytes caps a prepare-download response body.
const DefaultMaxManifestBytes int64 = 8 << 20

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// BaseURL of the LocalSend peer, e.g. https://192.168.1.20:53317.
	BaseURL string

	// Timeout for one prepare-download request. Zero keeps the transport default.
	Timeout time.Duration

	// InsecureSkipVerify accepts the self-signed certificates LocalSend peers use.
	InsecureSkipVerify bool

	// MaxManifestBytes caps the response body. Default: 8MB
	MaxManifestBytes int64

	// HTTPClient overrides the client built from the fields above.
	HTTPClient *http.Client
}

// Loader fetches a session manifest from the upstream prepare-download endpoint.
type Loader struct {
	client   *http.Client
	baseURL  *url.URL
	maxBytes int64
}

// NewLoader creates a Loader for the peer at opts.BaseURL.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream url %q must include scheme and host", opts.BaseURL)
	}

	client := opts.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		client = &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		}
	}

	maxBytes := opts.MaxManifestBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxManifestBytes
	}

	return &Loader{client: client, baseURL: base, maxBytes: maxBytes}, nil
}

// BaseURL returns the upstream base URL.
func (l *Loader) BaseURL() string {
	return l.baseURL.String()
}

// Load requests the manifest for sessionID, passing pin when it is non-empty.
// Every failure is returned as a *LoadError. An empty sessionID fails with
// KindMissingSession before any request is made.
func (l *Loader) Load(ctx context.Context, sessionID, pin string) (*models.Manifest, error) {
	sessionID = strings.TrimSpace(sessionID)
	logger := logging.WithContext(ctx).With(zap.String("session_id", sessionID))

	if sessionID == "" {
		metrics.RecordSessionLoad(string(models.ErrorKindMissingSession), 0)
		return nil, &LoadError{Kind: models.ErrorKindMissingSession, Message: MissingSessionMessage}
	}

	start := time.Now()
	manifest, err := l.fetch(ctx, sessionID, pin)
	elapsed := time.Since(start)

	outcome := "ready"
	if err != nil {
		outcome = string(KindOf(err))
	}
	metrics.RecordSessionLoad(outcome, elapsed)

	fields := []zap.Field{
		zap.String("outcome", outcome),
		zap.Bool("with_pin", pin != ""),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		var le *LoadError
		if asLoadError(err, &le) && le.Status != 0 {
			fields = append(fields, zap.Int("status", le.Status))
		}
		logger.Warn("prepare-download failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	logger.Info("prepare-download succeeded", append(fields, zap.Int("files", len(manifest.Files)))...)
	return manifest, nil
}

func (l *Loader) endpoint(sessionID, pin string) string {
	u := *l.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + links.PrepareDownloadPath
	q := url.Values{}
	q.Set("sessionId", sessionID)
	if pin != "" {
		q.Set("pin", pin)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (l *Loader) fetch(ctx context.Context, sessionID, pin string) (*models.Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint(sessionID, pin), nil)
	if err != nil {
		return nil, networkError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, networkError(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &LoadError{
			Kind:    models.ErrorKindAuthRequired,
			Status:  resp.StatusCode,
			Message: errorField(body, DefaultPinMessage),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &LoadError{
			Kind:    models.ErrorKindRequestFailed,
			Status:  resp.StatusCode,
			Message: errorField(body, fmt.Sprintf("Request failed: %d", resp.StatusCode)),
		}
	}

	if int64(len(body)) > l.maxBytes {
		return nil, &LoadError{
			Kind:    models.ErrorKindParseFailed,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("manifest exceeds %d bytes", l.maxBytes),
		}
	}

	var manifest models.Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, &LoadError{
			Kind:    models.ErrorKindParseFailed,
			Status:  resp.StatusCode,
			Message: err.Error(),
			Err:     err,
		}
	}
	if manifest.Files == nil {
		manifest.Files = make(map[string]models.FileDescriptor)
	}
	return &manifest, nil
}

// errorField extracts {"error": "..."} from body. fallback is used only when
// the field is absent or the body is not JSON; an empty string is kept.
func errorField(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}
	var payload struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == nil {
		return fallback
	}
	return *payload.Error
}

// networkError wraps a transport failure. Transport errors quote the request
// URL, so the pin parameter is stripped before the text is kept anywhere.
func networkError(err error) *LoadError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = &url.Error{Op: urlErr.Op, URL: redactURL(urlErr.URL), Err: urlErr.Err}
	}
	msg := err.Error()
	if msg == "" {
		msg = DefaultFetchMessage
	}
	return &LoadError{Kind: models.ErrorKindNetworkFailed, Message: msg, Err: err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid url]"
	}
	q := u.Query()
	if !q.Has("pin") {
		return raw
	}
	q.Del("pin")
	u.RawQuery = q.Encode()
	return u.String()
}
