package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/crispyspin/crispyspin-backend/api/responses"
	"github.com/crispyspin/crispyspin-backend/api/validators"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"

	spinReplayTTL       = 24 * time.Hour
	settlementReplayTTL = 7 * 24 * time.Hour
	// A reservation outlives any single request; a crashed handler frees the
	// key once it expires.
	reservationTTL = 2 * time.Minute
)

// replayTTLs lists the routes whose responses can be replayed, keyed by
// "METHOD path".
var replayTTLs = map[string]time.Duration{
	http.MethodPost + " /api/v1/spin":          spinReplayTTL,
	http.MethodPost + " /api/v1/market/verify": settlementReplayTTL,
}

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type replayState string

const (
	statePending  replayState = "pending"
	stateComplete replayState = "complete"
)

type replayRecord struct {
	State       replayState `json:"state"`
	RequestHash string      `json:"requestHash"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	Body        []byte      `json:"body,omitempty"`
}

// Idempotency replays the stored response when a request on a covered route
// repeats its Idempotency-Key. Keys are scoped per wallet. A repeat that
// arrives while the first request is still running gets a 409. Requests
// without the header pass through.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, requestPath(r))
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !covered || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := validators.ReadBody(w, r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(WalletFromContext(ctx)+"|"+r.Method+"|"+requestPath(r), clientKey)
			hash := hashBody(body)

			reservation, _ := json.Marshal(replayRecord{State: statePending, RequestHash: hash})
			reserved, err := store.SetNX(ctx, key, string(reservation), reservationTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayExisting(ctx, store, logg, w, key, hash)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := defaultStatus(ww.Status())
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "idempotency.release_failed", err)
				}
				return
			}
			final, _ := json.Marshal(replayRecord{
				State:       stateComplete,
				RequestHash: hash,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			})
			if err := store.Set(ctx, key, string(final), ttl); err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, store idempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request still in progress, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record replayRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State != stateComplete:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request still in progress, retry"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

func routeTTL(method, path string) (time.Duration, bool) {
	ttl, ok := replayTTLs[method+" "+path]
	return ttl, ok
}

// requestPath uses the URL path because the chi route pattern is not final
// while a subrouter middleware runs.
func requestPath(r *http.Request) string {
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func defaultStatus(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
