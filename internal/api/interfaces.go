// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/localsend-web/server/internal/models"
	"github.com/localsend-web/server/internal/session"
)

// PageHandler serves the server-rendered download page
type PageHandler interface {
	HandleIndex(c echo.Context) error
	HandlePage(c echo.Context) error
	HandleSubmitPin(c echo.Context) error
	HandleRetry(c echo.Context) error
	HandleFileDetail(c echo.Context) error
	HandleQRCode(c echo.Context) error
}

// StateHandler exposes page state to scripts and other clients
type StateHandler interface {
	HandleCreatePage(c echo.Context) error
	HandleListPages(c echo.Context) error
	HandleGetState(c echo.Context) error
	HandleGetStateMsgpack(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// PageManager defines the page operations handlers need.
// This allows mocking in tests
type PageManager interface {
	Open(sessionID string) *session.Page
	Start(ctx context.Context, sessionID string) (*session.Page, models.PageState)
	Get(id string) (*session.Page, bool)
	Touch(id string) bool
	Load(ctx context.Context, pageID, pin string) (models.PageState, error)
	SubmitPin(ctx context.Context, pageID, pin string) (models.PageState, error)
	Retry(ctx context.Context, pageID string) (models.PageState, error)
	List() []models.PageInfo
	Count() int
}
