package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"qwenmt-translator/pkg/logging/logging"
)

// LoggingContext attaches a request-scoped logger to the context.
func LoggingContext(baseLogger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			}

			// Set by chimw.RequestID when it runs first.
			if reqID := chimw.GetReqID(ctx); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}

			// RemoteAddr is rewritten by chimw.RealIP.
			if r.RemoteAddr != "" {
				fields = append(fields, zap.String("remote_ip", r.RemoteAddr))
			}

			if ua := r.UserAgent(); ua != "" {
				fields = append(fields, zap.String("user_agent", ua))
			}

			ctx = logging.WithLogger(ctx, baseLogger.With(fields...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
