package logging

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Middleware logs every request through zap and stores a request-scoped
// logger in the request context. It expects echo's RequestID middleware to
// run first; without it the request_id field is empty.
func Middleware(skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			start := time.Now()
			req := c.Request()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := WithRequestID(req.Context(), requestID)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			WithContext(ctx).Info("request completed",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Int64("size", c.Response().Size),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}
