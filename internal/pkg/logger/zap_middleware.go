package logger

import (
	"fmt"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"
)

// quiet paths are probed every few seconds and not worth a log line
var quietPaths = map[string]bool{
	"/health/live":  true,
	"/health/ready": true,
	"/metrics":      true,
}

// redactedParams never reach the logs; browsers pass the JWT this way on
// the live booking websocket
var redactedParams = []string{"access_token", "token"}

// HTTPRequestLog is one served request
type HTTPRequestLog struct {
	Method    string
	Path      string
	ClientIP  string
	UserID    string
	RequestID string
	Status    int
	Latency   time.Duration
	Err       error
}

// ZapEchoMiddleware logs every request except probe and scrape traffic
func ZapEchoMiddleware(zl *ZapLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if quietPaths[req.URL.Path] {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// render now so the logged status matches the response
				c.Error(err)
			}

			entry := HTTPRequestLog{
				Method:    req.Method,
				Path:      loggablePath(req.URL),
				ClientIP:  c.RealIP(),
				UserID:    "anonymous",
				RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
				Status:    c.Response().Status,
				Latency:   time.Since(start),
				Err:       err,
			}
			if uid := c.Get("user_id"); uid != nil {
				entry.UserID = fmt.Sprint(uid)
			}

			txn := newrelic.FromContext(req.Context())
			if txn != nil {
				txn.AddAttribute("user_id", entry.UserID)
				txn.AddAttribute("request_id", entry.RequestID)
				if err != nil {
					txn.NoticeError(err)
				}
			}

			zl.LogHTTPRequest(txn, entry)
			return nil
		}
	}
}

func loggablePath(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	q := u.Query()
	for _, p := range redactedParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}
	return u.Path + "?" + q.Encode()
}

// LogHTTPRequest logs r at a level derived from its status
func (zl *ZapLogger) LogHTTPRequest(txn *newrelic.Transaction, r HTTPRequestLog) {
	l := zl.WithNewRelicContext(txn).With(
		zap.String("method", r.Method),
		zap.String("path", r.Path),
		zap.Int("status", r.Status),
		zap.Int64("latency_ms", r.Latency.Milliseconds()),
		zap.String("client_ip", r.ClientIP),
		zap.String("user_id", r.UserID),
		zap.String("request_id", r.RequestID),
	)

	switch {
	case r.Status >= 500:
		l.Error("Server error", zap.Error(r.Err))
	case r.Status >= 400:
		l.Warn("Client error")
	default:
		l.Info("Request processed")
	}
}
