package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/kv"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency returns middleware that makes POST requests carrying an
// Idempotency-Key safe to retry: the first completed response is stored for
// ttl and replayed for later requests with the same key and body. A retry
// that arrives while the first request is still running gets 409.
func Idempotency(store kv.Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeError(w, r, http.StatusBadRequest, "Idempotency-Key is too long")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes))
			if err != nil {
				writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			fingerprint := requestFingerprint(r, body)
			respKey := "idempotency:" + r.URL.Path + ":" + key
			lockKey := respKey + ":lock"

			if stored, ok := loadResponse(r, store, respKey); ok {
				replay(w, r, stored, fingerprint)
				return
			}

			locked, err := store.SetNX(ctx, lockKey, []byte(GetRequestID(ctx)), config.IdempotencyLockTTL)
			if err != nil {
				slog.Error("idempotency lock failed", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}
			if !locked {
				writeError(w, r, http.StatusConflict, domain.ErrIdempotencyConflict.Error())
				return
			}
			defer func() {
				if err := store.Del(ctx, lockKey); err != nil {
					slog.Warn("idempotency unlock failed", "error", err, "key", key)
				}
			}()

			// The first request may have finished between the lookup and the lock.
			if stored, ok := loadResponse(r, store, respKey); ok {
				replay(w, r, stored, fingerprint)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Server errors stay retryable.
			if rec.status >= http.StatusInternalServerError {
				return
			}
			data, err := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				slog.Error("idempotency encode failed", "error", err, "key", key)
				return
			}
			if err := store.Set(ctx, respKey, data, ttl); err != nil {
				slog.Error("idempotency store failed", "error", err, "key", key)
			}
		})
	}
}

func loadResponse(r *http.Request, store kv.Store, key string) (*storedResponse, bool) {
	data, err := store.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			slog.Error("idempotency lookup failed", "error", err, "key", key)
		}
		return nil, false
	}
	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Error("idempotency decode failed", "error", err, "key", key)
		return nil, false
	}
	return &stored, true
}

func replay(w http.ResponseWriter, r *http.Request, stored *storedResponse, fingerprint string) {
	if stored.Fingerprint != fingerprint {
		writeError(w, r, http.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request")
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func requestFingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.RequestURI() + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// recorder passes the response through while keeping a copy of it.
type recorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
