// fake_upstream.go - In-process LocalSend peer for tests
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/localsend-web/server/internal/models"
)

// PrepareDownloadRequest records one call to the fake prepare-download endpoint.
type PrepareDownloadRequest struct {
	Method    string
	SessionID string
	Pin       string
	HasPin    bool
}

// FakeUpstream serves /api/localsend/v2/prepare-download and
// /api/localsend/v2/download from in-memory data.
type FakeUpstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	sessions map[string]*fakeSession
	requests []PrepareDownloadRequest
	handler  http.HandlerFunc
	calls    atomic.Int64
}

type fakeSession struct {
	manifest *models.Manifest
	pin      string
	content  map[string][]byte
}

// NewFakeUpstream starts the fake peer. It is closed through t.Cleanup by callers.
func NewFakeUpstream() *FakeUpstream {
	f := &FakeUpstream{sessions: make(map[string]*fakeSession)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/localsend/v2/prepare-download", f.handlePrepareDownload)
	mux.HandleFunc("/api/localsend/v2/download", f.handleDownload)
	f.Server = httptest.NewServer(mux)
	return f
}

// URL returns the base URL of the fake peer.
func (f *FakeUpstream) URL() string {
	return f.Server.URL
}

// Close shuts the server down.
func (f *FakeUpstream) Close() {
	f.Server.Close()
}

// AddSession registers a manifest under id, optionally protected by pin.
// content maps file ids to bytes served by the download endpoint.
func (f *FakeUpstream) AddSession(id, pin string, manifest *models.Manifest, content map[string][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = &fakeSession{manifest: manifest, pin: pin, content: content}
}

// HandlePrepareDownload replaces the default prepare-download behaviour.
func (f *FakeUpstream) HandlePrepareDownload(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

// Calls returns how many prepare-download requests were received.
func (f *FakeUpstream) Calls() int {
	return int(f.calls.Load())
}

// Requests returns a copy of the recorded prepare-download requests.
func (f *FakeUpstream) Requests() []PrepareDownloadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PrepareDownloadRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *FakeUpstream) handlePrepareDownload(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	q := r.URL.Query()
	_, hasPin := q["pin"]

	f.mu.Lock()
	f.requests = append(f.requests, PrepareDownloadRequest{
		Method:    r.Method,
		SessionID: q.Get("sessionId"),
		Pin:       q.Get("pin"),
		HasPin:    hasPin,
	})
	custom := f.handler
	session := f.sessions[q.Get("sessionId")]
	f.mu.Unlock()

	if custom != nil {
		custom(w, r)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if session.pin != "" {
		pin := q.Get("pin")
		if pin == "" {
			writeError(w, http.StatusUnauthorized, "PIN required")
			return
		}
		if pin != session.pin {
			writeError(w, http.StatusUnauthorized, "Invalid PIN")
			return
		}
	}

	WriteJSON(w, http.StatusOK, session.manifest)
}

func (f *FakeUpstream) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	session := f.sessions[q.Get("sessionId")]
	f.mu.Unlock()

	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	data, ok := session.content[q.Get("fileId")]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// SampleManifest returns a two-file manifest with the given echoed session id.
func SampleManifest(sessionID string) *models.Manifest {
	model := "Pixel 8"
	sum := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	return &models.Manifest{
		Info: models.DeviceInfo{
			Alias:       "Nice Orange",
			Version:     "2.1",
			DeviceModel: &model,
			Fingerprint: "fp-123",
		},
		SessionID: sessionID,
		Files: map[string]models.FileDescriptor{
			"f1": {
				FileName: "Arknight_Endfield/Launcher/1.0.0/res/web/version.json",
				Size:     2048,
				FileType: "application/json",
				SHA256:   &sum,
			},
			"f2": {
				FileName: "photo.jpg",
				Size:     5242880,
				FileType: "image/jpeg",
			},
		},
	}
}
