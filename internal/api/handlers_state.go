// handlers_state.go - JSON and msgpack page state handlers
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// StateHandlerImpl implements the StateHandler interface
type StateHandlerImpl struct {
	manager PageManager
	origins LinkOrigins
}

// NewStateHandler creates a new state handler
func NewStateHandler(manager PageManager, origins LinkOrigins) StateHandler {
	return &StateHandlerImpl{
		manager: manager,
		origins: origins,
	}
}

type createPageRequest struct {
	SessionID string `json:"sessionId"`
	Pin       string `json:"pin"`
}

// HandleCreatePage opens a page for a session and runs its first load
func (h *StateHandlerImpl) HandleCreatePage(c echo.Context) error {
	var req createPageRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return NewValidationError("sessionId")
	}

	page := h.manager.Open(req.SessionID)
	state, err := h.manager.Load(c.Request().Context(), page.ID, strings.TrimSpace(req.Pin))
	if err != nil {
		return fromPageError(err, page.ID)
	}

	downloads, err := h.origins.DownloadBuilder(c)
	if err != nil {
		return NewInternalError("failed to resolve download origin", err)
	}
	return c.JSON(http.StatusCreated, buildStateView(page, state, downloads))
}

// HandleListPages returns summaries of the pages held in memory
func (h *StateHandlerImpl) HandleListPages(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.List())
}

// HandleGetState returns the state of one page as JSON
func (h *StateHandlerImpl) HandleGetState(c echo.Context) error {
	view, err := h.stateView(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// HandleGetStateMsgpack returns the state of one page encoded with msgpack
func (h *StateHandlerImpl) HandleGetStateMsgpack(c echo.Context) error {
	view, err := h.stateView(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(view)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleKeepAlive marks a page accessed so cleanup keeps it
func (h *StateHandlerImpl) HandleKeepAlive(c echo.Context) error {
	pageID := c.Param("pageId")
	if !h.manager.Touch(pageID) {
		return NewNotFoundError("page", pageID)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StateHandlerImpl) stateView(c echo.Context) (StateView, error) {
	pageID := c.Param("pageId")
	page, ok := h.manager.Get(pageID)
	if !ok {
		return StateView{}, NewNotFoundError("page", pageID)
	}
	downloads, err := h.origins.DownloadBuilder(c)
	if err != nil {
		return StateView{}, NewInternalError("failed to resolve download origin", err)
	}
	return buildStateView(page, page.State(), downloads), nil
}
