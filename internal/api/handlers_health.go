// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	upstream string
	pages    func() int
}

// NewHealthHandler creates a new health handler. pages reports the number
// of page instances in memory.
func NewHealthHandler(version, upstream string, pages func() int) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		upstream: upstream,
		pages:    pages,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	pages := 0
	if h.pages != nil {
		pages = h.pages()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"upstream": h.upstream,
		"pages":    pages,
	})
}
