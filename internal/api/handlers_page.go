// handlers_page.go - Server-rendered download page handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/localsend-web/server/internal/logging"
	"github.com/localsend-web/server/internal/models"
	"github.com/localsend-web/server/internal/session"
	"github.com/localsend-web/server/internal/web"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const qrSize = 256

// PageHandlerImpl implements the PageHandler interface
type PageHandlerImpl struct {
	manager PageManager
	origins LinkOrigins
}

// NewPageHandler creates a new page handler
func NewPageHandler(manager PageManager, origins LinkOrigins) PageHandler {
	return &PageHandlerImpl{
		manager: manager,
		origins: origins,
	}
}

// HandleIndex opens a page for the session in the share link and redirects
// to it. Without a session id it renders the missing-session page directly.
func (h *PageHandlerImpl) HandleIndex(c echo.Context) error {
	sessionID := sessionParam(c)
	if sessionID == "" {
		return c.Render(http.StatusBadRequest, web.TemplatePage, missingSessionView())
	}

	page, _ := h.manager.Start(c.Request().Context(), sessionID)
	return c.Redirect(http.StatusSeeOther, pagePath(page.ID))
}

// HandlePage renders the current state of a page
func (h *PageHandlerImpl) HandlePage(c echo.Context) error {
	page, ok := h.manager.Get(c.Param("pageId"))
	if !ok {
		return h.renderNotFound(c, "This download page has expired. Open the share link again.")
	}

	downloads, err := h.origins.DownloadBuilder(c)
	if err != nil {
		return NewInternalError("failed to resolve download origin", err)
	}
	shares, err := h.origins.ShareBuilder(c)
	if err != nil {
		return NewInternalError("failed to resolve share origin", err)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Render(http.StatusOK, web.TemplatePage, buildPageView(page, page.State(), downloads, shares))
}

// HandleSubmitPin loads the page again with the submitted PIN
func (h *PageHandlerImpl) HandleSubmitPin(c echo.Context) error {
	pageID := c.Param("pageId")
	if _, err := h.manager.SubmitPin(c.Request().Context(), pageID, c.FormValue("pin")); err != nil {
		if errors.Is(err, session.ErrPageNotFound) {
			return h.renderNotFound(c, "This download page has expired. Open the share link again.")
		}
		return fromPageError(err, pageID)
	}
	return c.Redirect(http.StatusSeeOther, pagePath(pageID))
}

// HandleRetry reloads a failed page with its last PIN
func (h *PageHandlerImpl) HandleRetry(c echo.Context) error {
	pageID := c.Param("pageId")
	_, err := h.manager.Retry(c.Request().Context(), pageID)
	switch {
	case errors.Is(err, session.ErrPageNotFound):
		return h.renderNotFound(c, "This download page has expired. Open the share link again.")
	case errors.Is(err, session.ErrNotRetryable):
		// A double submit after the page settled lands here; show the page as it is.
		logging.WithContext(c.Request().Context()).Debug("retry ignored", zap.String("page_id", pageID))
	case err != nil:
		return fromPageError(err, pageID)
	}
	return c.Redirect(http.StatusSeeOther, pagePath(pageID))
}

// HandleFileDetail renders the detail view of one file
func (h *PageHandlerImpl) HandleFileDetail(c echo.Context) error {
	page, ok := h.manager.Get(c.Param("pageId"))
	if !ok {
		return h.renderNotFound(c, "This download page has expired. Open the share link again.")
	}
	ready, ok := page.State().(models.Ready)
	if !ok {
		return c.Redirect(http.StatusSeeOther, pagePath(page.ID))
	}

	downloads, err := h.origins.DownloadBuilder(c)
	if err != nil {
		return NewInternalError("failed to resolve download origin", err)
	}

	fileID := fileIDParam(c)
	for _, row := range fileRows(page, ready.Manifest, downloads) {
		if row.ID == fileID {
			return c.Render(http.StatusOK, web.TemplateDetail, web.DetailView{
				Meta:    web.Meta{Title: row.Name},
				File:    row,
				BackURL: pagePath(page.ID),
			})
		}
	}
	return h.renderNotFound(c, "File not found in this session.")
}

// HandleQRCode returns the share link of a page as a PNG QR code
func (h *PageHandlerImpl) HandleQRCode(c echo.Context) error {
	pageID := c.Param("pageId")
	page, ok := h.manager.Get(pageID)
	if !ok || page.SessionID == "" {
		return NewNotFoundError("page", pageID)
	}

	shares, err := h.origins.ShareBuilder(c)
	if err != nil {
		return NewInternalError("failed to resolve share origin", err)
	}

	png, err := qrcode.Encode(shares.ShareURL("/", page.SessionID), qrcode.Medium, qrSize)
	if err != nil {
		return NewInternalError("failed to encode QR code", err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *PageHandlerImpl) renderNotFound(c echo.Context, message string) error {
	return c.Render(http.StatusNotFound, web.TemplateNotFound, notFoundView(message))
}
