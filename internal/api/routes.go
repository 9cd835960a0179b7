// routes.go - Route registration helpers
// This file provides a clean way to register all routes
package api

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/localsend-web/server/internal/logging"
)

// localSendAPIPrefix is forwarded to the upstream when proxying is enabled.
const localSendAPIPrefix = "/api/localsend/v2"

// Dependencies holds all handler dependencies
type Dependencies struct {
	Manager     PageManager
	Origins     LinkOrigins
	UpstreamURL string
	Version     string
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Page   PageHandler
	State  StateHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.UpstreamURL, deps.Manager.Count),
		Page:   NewPageHandler(deps.Manager, deps.Origins),
		State:  NewStateHandler(deps.Manager, deps.Origins),
	}
}

// RegisterRoutes registers all page and API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Download page
	e.GET("/", handlers.Page.HandleIndex)
	e.GET("/download", handlers.Page.HandleIndex)

	pageGroup := e.Group("/pages")
	pageGroup.GET("/:pageId", handlers.Page.HandlePage)
	pageGroup.POST("/:pageId/pin", handlers.Page.HandleSubmitPin)
	pageGroup.POST("/:pageId/retry", handlers.Page.HandleRetry)
	pageGroup.GET("/:pageId/files/:fileId", handlers.Page.HandleFileDetail)
	pageGroup.GET("/:pageId/qr.png", handlers.Page.HandleQRCode)

	// Page state API
	stateGroup := e.Group("/api/pages")
	stateGroup.POST("", handlers.State.HandleCreatePage)
	stateGroup.GET("", handlers.State.HandleListPages)
	stateGroup.GET("/:pageId/state", handlers.State.HandleGetState)
	stateGroup.GET("/:pageId/state/msgpack", handlers.State.HandleGetStateMsgpack)
	stateGroup.POST("/:pageId/keepalive", handlers.State.HandleKeepAlive)
}

// RegisterUpstreamProxy forwards /api/localsend/v2/* to the LocalSend peer
// so download links can stay on this server's origin.
func RegisterUpstreamProxy(e *echo.Echo, upstreamURL string, insecureSkipVerify bool) error {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return fmt.Errorf("parse upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return fmt.Errorf("upstream url %q must include scheme and host", upstreamURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	e.Group(localSendAPIPrefix, clearWriteDeadline, middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer:  middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: target}}),
		Transport: transport,
	}))
	return nil
}

// clearWriteDeadline lifts the server's WriteTimeout for one response.
// Proxied file downloads last as long as the transfer does.
func clearWriteDeadline(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rc := http.NewResponseController(c.Response().Writer)
		if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return next(c)
	}
}

// MiddlewareOptions selects the optional middleware
type MiddlewareOptions struct {
	RequestLogging   bool
	Compression      bool
	CompressionLevel int
	BodyLimit        string
	EnableCORS       bool
	AllowOrigins     []string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestID())

	if opts.RequestLogging {
		e.Use(logging.Middleware(func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/health" ||
				path == "/metrics" ||
				strings.HasPrefix(path, "/static/")
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	// Compression middleware
	if opts.Compression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: opts.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				// Proxied downloads are streamed as the upstream sends them.
				return strings.HasPrefix(c.Request().URL.Path, localSendAPIPrefix)
			},
		}))
	}

	// Body limit middleware
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	// CORS configuration
	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
