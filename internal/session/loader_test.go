package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/localsend-web/server/internal/logging"
	"github.com/localsend-web/server/internal/models"
	"github.com/localsend-web/server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLoader(t *testing.T, upstream *testutil.FakeUpstream) *Loader {
	t.Helper()
	loader, err := NewLoader(LoaderOptions{BaseURL: upstream.URL()})
	require.NoError(t, err)
	return loader
}

func requireLoadError(t *testing.T, err error) *LoadError {
	t.Helper()
	require.Error(t, err)
	var le *LoadError
	require.True(t, errors.As(err, &le), "expected *LoadError, got %T", err)
	return le
}

func TestLoadMissingSessionMakesNoRequest(t *testing.T) {
	upstream := testutil.NewFakeUpstream()
	defer upstream.Close()
	loader := newTestLoader(t, upstream)

	for _, id := range []string{"", "   "} {
		manifest, err := loader.Load(context.Background(), id, "1234")
		assert.Nil(t, manifest)
		le := requireLoadError(t, err)
		assert.Equal(t, models.ErrorKindMissingSession, le.Kind)
		assert.Equal(t, MissingSessionMessage, le.Message)
		assert.False(t, le.Retryable())
	}
	assert.Equal(t, 0, upstream.Calls())
}

func TestLoadSuccessPreservesFiles(t *testing.T) {
	upstream := testutil.NewFakeUpstream()
	defer upstream.Close()
	want := testutil.SampleManifest("echoed-S1")
	upstream.AddSession("S1", "", want, nil)

	manifest, err := newTestLoader(t, upstream).Load(context.Background(), "S1", "")
	require.NoError(t, err)

	assert.Equal(t, want, manifest)
	assert.Equal(t, "echoed-S1", manifest.SessionID)
	assert.Len(t, manifest.Files, 2)

	reqs := upstream.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "S1", reqs[0].SessionID)
	assert.False(t, reqs[0].HasPin, "pin must not be sent when empty")
}

func TestLoadSendsPin(t *testing.T) {
	upstream := testutil.NewFakeUpstream()
	defer upstream.Close()
	upstream.AddSession("S1", "4321", testutil.SampleManifest("S1"), nil)
	loader := newTestLoader(t, upstream)

	_, err := loader.Load(context.Background(), "S1", "4321")
	require.NoError(t, err)

	reqs := upstream.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].HasPin)
	assert.Equal(t, "4321", reqs[0].Pin)
}

func TestLoadAuthChallenge(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"error field", `{"error":"Invalid PIN"}`, "Invalid PIN"},
		{"empty body", ``, "PIN required"},
		{"plain text body", "invalid pin\n", "PIN required"},
		{"json without error", `{"message":"nope"}`, "PIN required"},
		{"null error", `{"error":null}`, "PIN required"},
		{"empty error kept", `{"error":""}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := testutil.NewFakeUpstream()
			defer upstream.Close()
			upstream.HandlePrepareDownload(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(tt.body))
			})

			_, err := newTestLoader(t, upstream).Load(context.Background(), "S1", "")
			le := requireLoadError(t, err)
			assert.Equal(t, models.ErrorKindAuthRequired, le.Kind)
			assert.Equal(t, tt.wantMsg, le.Message)
			assert.Equal(t, http.StatusUnauthorized, le.Status)
			assert.True(t, IsAuthChallenge(err))
			assert.False(t, le.Retryable())
		})
	}
}

func TestLoadRequestFailed(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", http.StatusForbidden, `{"error":"Rejected"}`, "Rejected"},
		{"empty body", http.StatusServiceUnavailable, ``, "Request failed: 503"},
		{"unparseable body", http.StatusInternalServerError, `<html>oops</html>`, "Request failed: 500"},
		{"not found", http.StatusNotFound, `{"error":"Session not found"}`, "Session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := testutil.NewFakeUpstream()
			defer upstream.Close()
			upstream.HandlePrepareDownload(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := newTestLoader(t, upstream).Load(context.Background(), "S1", "")
			le := requireLoadError(t, err)
			assert.Equal(t, models.ErrorKindRequestFailed, le.Kind)
			assert.Equal(t, tt.wantMsg, le.Message)
			assert.Equal(t, tt.status, le.Status)
			assert.True(t, le.Retryable())
			assert.False(t, IsAuthChallenge(err))
		})
	}
}

func TestLoadMalformedBody(t *testing.T) {
	upstream := testutil.NewFakeUpstream()
	defer upstream.Close()
	const body = `{"info": {"alias": "x"}, "files": [`
	upstream.HandlePrepareDownload(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})

	_, err := newTestLoader(t, upstream).Load(context.Background(), "S1", "")
	le := requireLoadError(t, err)
	assert.Equal(t, models.ErrorKindParseFailed, le.Kind)

	var m models.Manifest
	parseErr := json.Unmarshal([]byte(body), &m)
	require.Error(t, parseErr)
	assert.Equal(t, parseErr.Error(), le.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestLoadOversizedBody(t *testing.T) {
	upstream := testutil.NewFakeUpstream()
	defer upstream.Close()
	upstream.HandlePrepareDownload(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"sessionId":"` + strings.Repeat("a", 256) + `"}`))
	})

	loader, err := NewLoader(LoaderOptions{BaseURL: upstream.URL(), MaxManifestBytes: 64})
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), "S1", "")
	le := requireLoadError(t, err)
	assert.Equal(t, models.ErrorKindParseFailed, le.Kind)
	assert.Contains(t, le.Message, "exceeds 64 bytes")
}

func TestLoadEmptyFilesBecomesEmptyMap(t *testing.T) {
	upstream := testutil.NewFakeUpstream()
	defer upstream.Close()
	upstream.HandlePrepareDownload(func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, map[string]any{
			"info":      map[string]any{"alias": "Lone", "version": "2.0", "fingerprint": "x"},
			"sessionId": "S1",
		})
	})

	manifest, err := newTestLoader(t, upstream).Load(context.Background(), "S1", "")
	require.NoError(t, err)
	assert.NotNil(t, manifest.Files)
	assert.Empty(t, manifest.Files)
	assert.Nil(t, manifest.Info.DeviceModel)
	assert.Nil(t, manifest.Info.Download)
}

func TestLoadNetworkFailure(t *testing.T) {
	upstream := testutil.NewFakeUpstream()
	loader := newTestLoader(t, upstream)
	upstream.Close()

	_, err := loader.Load(context.Background(), "S1", "")
	le := requireLoadError(t, err)
	assert.Equal(t, models.ErrorKindNetworkFailed, le.Kind)
	assert.NotEmpty(t, le.Message)
	assert.True(t, le.Retryable())
	assert.Equal(t, 0, le.Status)
}

func TestLoadNetworkFailureHidesPin(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logging.Set(zap.New(core))
	defer logging.Set(nil)

	upstream := testutil.NewFakeUpstream()
	loader := newTestLoader(t, upstream)
	upstream.Close()

	_, err := loader.Load(context.Background(), "S1", "secret-4242")
	le := requireLoadError(t, err)
	assert.Equal(t, models.ErrorKindNetworkFailed, le.Kind)
	assert.NotContains(t, le.Message, "secret-4242")
	assert.NotContains(t, le.Error(), "secret-4242")
	assert.Contains(t, le.Message, "sessionId=S1")

	var urlErr *url.Error
	require.True(t, errors.As(err, &urlErr))
	assert.NotContains(t, urlErr.URL, "secret-4242")

	entries := logs.FilterMessage("prepare-download failed").All()
	require.Len(t, entries, 1)
	for key, value := range entries[0].ContextMap() {
		assert.NotContains(t, fmt.Sprint(value), "secret-4242", key)
	}
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "http://peer/x?sessionId=S1", redactURL("http://peer/x?pin=1234&sessionId=S1"))
	assert.Equal(t, "http://peer/x?sessionId=S1", redactURL("http://peer/x?sessionId=S1"))
}

func TestNewLoaderRejectsBadURL(t *testing.T) {
	_, err := NewLoader(LoaderOptions{BaseURL: "localhost:53317"})
	assert.Error(t, err)

	_, err = NewLoader(LoaderOptions{BaseURL: "://"})
	assert.Error(t, err)
}

func TestEndpointKeepsBasePath(t *testing.T) {
	loader, err := NewLoader(LoaderOptions{BaseURL: "https://peer:53317/prefix/"})
	require.NoError(t, err)
	assert.Equal(t, "https://peer:53317/prefix/api/localsend/v2/prepare-download?pin=1&sessionId=a+b", loader.endpoint("a b", "1"))
	assert.Equal(t, "https://peer:53317/prefix/api/localsend/v2/prepare-download?sessionId=x", loader.endpoint("x", ""))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, models.ErrorKindAuthRequired, KindOf(&LoadError{Kind: models.ErrorKindAuthRequired}))
	assert.Equal(t, models.ErrorKindNetworkFailed, KindOf(errors.New("other")))
}
