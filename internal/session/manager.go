package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localsend-web/server/internal/logging"
	"github.com/localsend-web/server/internal/metrics"
	"github.com/localsend-web/server/internal/models"
	"go.uber.org/zap"
)

// DefaultMaxPages limits page instances held in memory.
const DefaultMaxPages = 1000

// PageMaxAge is how long an untouched page is kept before cleanup.
const PageMaxAge = 30 * time.Minute

// ManifestLoader fetches a manifest. *Loader implements it.
type ManifestLoader interface {
	Load(ctx context.Context, sessionID, pin string) (*models.Manifest, error)
}

// Manager holds download page instances in memory and runs their loads.
// Nothing it holds is ever written to disk.
type Manager struct {
	pages    map[string]*Page
	mu       sync.RWMutex
	loader   ManifestLoader
	maxPages int
	now      func() time.Time
}

// NewManager creates a page manager backed by loader.
func NewManager(loader ManifestLoader, maxPages int) *Manager {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Manager{
		pages:    make(map[string]*Page),
		loader:   loader,
		maxPages: maxPages,
		now:      time.Now,
	}
}

// Open registers a new page for sessionID. An empty sessionID gives a page
// that is already in the terminal missing-session state.
func (m *Manager) Open(sessionID string) *Page {
	page := newPage(uuid.New().String(), strings.TrimSpace(sessionID), m.now())

	m.mu.Lock()
	if len(m.pages) >= m.maxPages {
		m.evictOldestLocked()
	}
	m.pages[page.ID] = page
	count := len(m.pages)
	m.mu.Unlock()

	metrics.SetPagesActive(count)
	return page
}

// Start opens a page for sessionID and runs its first load.
func (m *Manager) Start(ctx context.Context, sessionID string) (*Page, models.PageState) {
	page := m.Open(sessionID)
	return page, m.run(ctx, page, "")
}

// Get returns the page with id and marks it accessed.
func (m *Manager) Get(id string) (*Page, bool) {
	m.mu.RLock()
	page, ok := m.pages[id]
	m.mu.RUnlock()
	if ok {
		page.touch(m.now())
	}
	return page, ok
}

// Touch marks a page accessed without reading it. It reports whether the
// page exists.
func (m *Manager) Touch(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Remove drops a page.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.pages, id)
	count := len(m.pages)
	m.mu.Unlock()
	metrics.SetPagesActive(count)
}

// Count returns the number of pages held.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// Load runs a load with pin on the page and returns its resulting state.
// Settled pages return their state without contacting the upstream.
func (m *Manager) Load(ctx context.Context, pageID, pin string) (models.PageState, error) {
	page, ok := m.Get(pageID)
	if !ok {
		return nil, ErrPageNotFound
	}
	return m.run(ctx, page, pin), nil
}

// SubmitPin loads the page again with a user-supplied PIN.
func (m *Manager) SubmitPin(ctx context.Context, pageID, pin string) (models.PageState, error) {
	return m.Load(ctx, pageID, strings.TrimSpace(pin))
}

// Retry reloads a failed page with the last PIN it used.
func (m *Manager) Retry(ctx context.Context, pageID string) (models.PageState, error) {
	page, ok := m.Get(pageID)
	if !ok {
		return nil, ErrPageNotFound
	}
	failed, isFailed := page.State().(models.Failed)
	if !isFailed || !failed.Retryable {
		return page.State(), ErrNotRetryable
	}
	return m.run(ctx, page, page.LastPin()), nil
}

func (m *Manager) run(ctx context.Context, page *Page, pin string) models.PageState {
	gen, err := page.Begin(pin)
	if err != nil {
		return page.State()
	}

	// A client that goes away must not leave the page stuck in Loading.
	manifest, err := m.loader.Load(context.WithoutCancel(ctx), page.SessionID, pin)

	if !page.Settle(gen, manifest, err) {
		metrics.RecordStaleResponse()
		logging.WithContext(ctx).Debug("discarded superseded load",
			zap.String("page_id", page.ID),
			zap.Uint64("generation", gen),
			zap.Uint64("latest_generation", page.Generation()),
		)
	}
	page.touch(m.now())
	return page.State()
}

// CleanupOldPages removes pages not accessed within maxAge and returns how
// many were removed.
func (m *Manager) CleanupOldPages(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	removed := 0
	for id, page := range m.pages {
		if page.LastAccessed().Before(cutoff) {
			delete(m.pages, id)
			removed++
		}
	}
	count := len(m.pages)
	m.mu.Unlock()

	metrics.SetPagesActive(count)
	if removed > 0 {
		logging.L().Info("cleaned up pages", zap.Int("removed", removed), zap.Int("remaining", count))
	}
	return removed
}

// List returns page summaries, most recently accessed first.
func (m *Manager) List() []models.PageInfo {
	m.mu.RLock()
	infos := make([]models.PageInfo, 0, len(m.pages))
	for _, page := range m.pages {
		infos = append(infos, page.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastAccessed.After(infos[j].LastAccessed)
	})
	return infos
}

func (m *Manager) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, page := range m.pages {
		accessed := page.LastAccessed()
		if oldestID == "" || accessed.Before(oldest) {
			oldestID, oldest = id, accessed
		}
	}
	if oldestID != "" {
		delete(m.pages, oldestID)
	}
}
