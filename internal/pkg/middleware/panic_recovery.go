package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	reqctx "github.com/piresc/trackwash/internal/pkg/context"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/utils"
)

// PanicRecoveryWithZapMiddleware turns a handler panic into a logged,
// New Relic-reported 500 in the standard error envelope. It must be the
// outermost middleware.
func PanicRecoveryWithZapMiddleware(zl *logger.ZapLogger) echo.MiddlewareFunc {
	if zl == nil {
		panic("PanicRecoveryWithZapMiddleware requires a logger")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					recovered(c, zl, r, debug.Stack())
					err = nil
				}
			}()
			return next(c)
		}
	}
}

func requestIDOf(c echo.Context) string {
	if id := reqctx.GetRequestID(c.Request().Context()); id != "" {
		return id
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

func recovered(c echo.Context, zl *logger.ZapLogger, r interface{}, stack []byte) {
	req := c.Request()
	requestID := requestIDOf(c)
	panicType := fmt.Sprintf("%T", r)

	txn := newrelic.FromContext(req.Context())
	if txn != nil {
		txn.NoticeError(newrelic.Error{
			Message: fmt.Sprintf("panic: %v", r),
			Class:   "PanicError",
			Attributes: map[string]interface{}{
				"panic.type":  panicType,
				"http.method": req.Method,
				"http.route":  c.Path(),
				"request_id":  requestID,
			},
		})
	}

	fields := []logger.Field{
		logger.Any("panic", r),
		logger.String("panic_type", panicType),
		logger.String("stack", string(stack)),
		logger.String("method", req.Method),
		logger.String("route", c.Path()),
		logger.String("request_id", requestID),
	}
	if uid := c.Get("user_id"); uid != nil {
		fields = append(fields, logger.String("user_id", fmt.Sprint(uid)))
	}
	zl.WithNewRelicContext(txn).Error("Recovered from panic", fields...)

	if c.Response().Committed {
		return
	}
	msg := "An unexpected error occurred"
	if requestID != "" {
		msg += " (request " + requestID + ")"
	}
	if err := utils.InternalServerErrorResponse(c, msg); err != nil {
		_ = c.NoContent(http.StatusInternalServerError)
	}
}
