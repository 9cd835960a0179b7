package session

import (
	"sync"
	"time"

	"github.com/localsend-web/server/internal/models"
)

// Page is one download page instance: the requested session, the last PIN
// used and the current PageState. Loads are stamped with a generation and
// only the latest one may settle the state.
type Page struct {
	ID        string
	SessionID string
	CreatedAt time.Time

	mu                sync.RWMutex
	state             models.PageState
	generation        uint64
	lastPin           string
	manifestSessionID string
	lastAccessed      time.Time
}

func newPage(id, sessionID string, now time.Time) *Page {
	p := &Page{
		ID:           id,
		SessionID:    sessionID,
		CreatedAt:    now,
		lastAccessed: now,
		state:        models.Loading{},
	}
	if sessionID == "" {
		p.state = models.Failed{
			Kind:    models.ErrorKindMissingSession,
			Message: MissingSessionMessage,
		}
	}
	return p
}

// Begin moves the page to Loading for a load using pin and returns the
// generation that load must present to Settle. Ready pages and pages
// without a session id refuse with ErrPageSettled.
func (p *Page) Begin(pin string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch s := p.state.(type) {
	case models.Ready:
		return 0, ErrPageSettled
	case models.Failed:
		if s.Kind == models.ErrorKindMissingSession {
			return 0, ErrPageSettled
		}
	}

	p.generation++
	p.lastPin = pin
	p.state = models.Loading{}
	return p.generation, nil
}

// Settle applies the outcome of the load stamped gen. It returns false and
// leaves the state untouched when a newer load has started since.
func (p *Page) Settle(gen uint64, manifest *models.Manifest, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return false
	}

	if err == nil && manifest != nil {
		p.state = models.Ready{Manifest: manifest}
		p.manifestSessionID = manifest.SessionID
		return true
	}

	var le *LoadError
	switch {
	case err == nil:
		p.state = models.Failed{Kind: models.ErrorKindParseFailed, Message: "empty manifest", Retryable: true}
	case !asLoadError(err, &le):
		p.state = models.Failed{Kind: models.ErrorKindNetworkFailed, Message: err.Error(), Retryable: true}
	case le.Kind == models.ErrorKindAuthRequired:
		p.state = models.NeedsPin{Message: le.Message}
	default:
		p.state = models.Failed{Kind: le.Kind, Message: le.Message, Retryable: le.Retryable()}
	}
	return true
}

// State returns the current state.
func (p *Page) State() models.PageState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// LastPin returns the PIN used by the most recent load.
func (p *Page) LastPin() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPin
}

// ManifestSessionID is the session id echoed by the upstream, empty until Ready.
func (p *Page) ManifestSessionID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.manifestSessionID
}

// Generation returns the number of loads begun on this page.
func (p *Page) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

// LastAccessed returns when the page was last read or loaded.
func (p *Page) LastAccessed() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAccessed
}

// Info returns a summary of the page.
func (p *Page) Info() models.PageInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return models.PageInfo{
		ID:           p.ID,
		SessionID:    p.SessionID,
		Status:       p.state.Status(),
		CreatedAt:    p.CreatedAt,
		LastAccessed: p.lastAccessed,
	}
}

func (p *Page) touch(now time.Time) {
	p.mu.Lock()
	p.lastAccessed = now
	p.mu.Unlock()
}
