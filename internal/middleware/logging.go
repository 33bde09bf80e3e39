package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"authcore/internal/logger"
)

// RequestLogger writes one structured line per request. 5xx responses are logged
// at error level and 4xx at warn.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			kv := []interface{}{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"duration_ms", float64(v.Latency.Microseconds()) / 1000,
				"remote_ip", v.RemoteIP,
			}
			if v.RequestID != "" {
				kv = append(kv, "request_id", v.RequestID)
			}
			if ac := AuthContext(c); ac != nil && ac.User != nil {
				kv = append(kv, "user_id", ac.User.ID.String())
			}
			if v.Error != nil {
				kv = append(kv, "error", v.Error.Error())
			}

			switch {
			case v.Status >= 500:
				log.Error("http_request", kv...)
			case v.Status >= 400:
				log.Warn("http_request", kv...)
			default:
				log.Info("http_request", kv...)
			}
			return nil
		},
	})
}
