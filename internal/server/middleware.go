package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"payment-relay/internal/logcontext"
)

// requestMiddleware tags every request with a correlation id and logs the
// request line. The SSE endpoint is skipped from duration logging since its
// requests are expected to stay open for minutes.
func requestMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logcontext.AppendCtx(r.Context(), slog.String("requestId", requestID))
		r = r.WithContext(ctx)

		streaming := strings.Contains(r.Header.Get("Accept"), "text/event-stream") ||
			(r.Method == http.MethodGet && r.URL.Path == "/store/payment")

		startTime := time.Now()
		next.ServeHTTP(w, r)

		if !streaming {
			logger.InfoContext(ctx, "Request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"durationMs", time.Since(startTime).Milliseconds())
		}
	})
}
