// Package middleware provides HTTP middleware components for the credit API.
package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/virtustage/creditcore/internal/models"
)

const idempotencyKeyHeader = "Idempotency-Key"

// replayedHeader marks a response that was served from the idempotency
// cache rather than produced by the handler.
const replayedHeader = "X-Idempotent-Replayed"

// Only the generation submission needs client-retry protection; webhook
// dedup is handled by the ingestor's own event table.
var idempotentPaths = map[string]struct{}{
	"/api/v1/generations": {},
}

// IdempotencyRepository defines the interface for idempotency storage
type IdempotencyRepository interface {
	Get(ctx context.Context, key, requestPath string) (*models.IdempotencyKey, error)
	Store(ctx context.Context, idemKey *models.IdempotencyKey) error
}

// recordingWriter buffers the response body while passing it through, so a
// successful response can be cached after the handler returns.
type recordingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.buf.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency returns middleware that replays cached responses for repeated
// POSTs carrying the same Idempotency-Key. Cache lookup failures fall
// through to the handler; a retried request is then processed fresh, which
// the reservation engine's duplicate checks already tolerate.
func Idempotency(repo IdempotencyRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := strings.TrimSuffix(r.URL.Path, "/")
			if _, ok := idempotentPaths[path]; !ok || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(idempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cached, err := repo.Get(ctx, key, path)
			if err != nil {
				logger.Error("idempotency cache lookup failed", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}
			if cached != nil {
				logger.Debug("replaying cached response",
					"key", key,
					"path", path,
					"status", cached.ResponseStatus,
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(replayedHeader, "true")
				w.WriteHeader(cached.ResponseStatus)
				//nolint:errcheck // Best effort response writing
				w.Write([]byte(cached.ResponseBody))
				return
			}

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			// Only successful outcomes are worth replaying; a failed
			// attempt should be retried for real.
			if rw.status < 200 || rw.status >= 300 {
				return
			}

			record := &models.IdempotencyKey{
				Key:            key,
				RequestPath:    path,
				ResponseStatus: rw.status,
				ResponseBody:   rw.buf.String(),
				CreatedAt:      time.Now(),
			}
			if err := repo.Store(ctx, record); err != nil {
				logger.Error("failed to store idempotency record", "error", err, "key", key)
			}
		})
	}
}
