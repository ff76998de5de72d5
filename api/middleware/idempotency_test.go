package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/crispyspin/crispyspin-backend/api/validators"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
)

type fakeStore struct {
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func idemRequest(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestRouteTTLSelection(t *testing.T) {
	ttl, ok := routeTTL(http.MethodPost, "/api/v1/spin")
	require.True(t, ok)
	require.Equal(t, spinReplayTTL, ttl)

	ttl, ok = routeTTL(http.MethodPost, "/api/v1/market/verify")
	require.True(t, ok)
	require.Equal(t, settlementReplayTTL, ttl)

	_, ok = routeTTL(http.MethodGet, "/api/v1/spin/history")
	require.False(t, ok)
	_, ok = routeTTL(http.MethodPost, "/api/v1/auth/verify")
	require.False(t, ok)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, idemRequest("/api/v1/spin", "", `{}`))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 2, calls)
	require.Empty(t, store.data)
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"success":true}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idemRequest("/api/v1/spin", "abc", `{"path":"free"}`))
	require.Equal(t, http.StatusOK, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, idemRequest("/api/v1/spin", "abc", `{"path":"free"}`))
	require.Equal(t, http.StatusOK, replay.Code)
	require.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	require.Equal(t, `{"data":{"success":true}}`, replay.Body.String())
	require.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		require.Equal(t, spinReplayTTL, ttl, key)
	}
}

func TestIdempotencyScopesKeysPerWallet(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for _, wallet := range []string{"0xaaaa", "0xbbbb"} {
		req := idemRequest("/api/v1/spin", "shared", `{}`)
		req = req.WithContext(WithCaller(req.Context(), Caller{Wallet: wallet}))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, 2, calls)
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest("/api/v1/spin", "retry-me", `{}`))
	require.Empty(t, store.data)

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest("/api/v1/spin", "retry-me", `{}`))
	require.Equal(t, 2, calls)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), idemRequest("/api/v1/market/verify", "xyz", `{"sku":"spin_pack_small"}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, idemRequest("/api/v1/market/verify", "xyz", `{"sku":"spin_pack_medium"}`))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	var inner http.Handler
	calls := 0
	outer := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		rec := httptest.NewRecorder()
		inner.ServeHTTP(rec, idemRequest("/api/v1/spin", "dup", `{}`))
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, rec))
	}))
	inner = outer

	outer.ServeHTTP(httptest.NewRecorder(), idemRequest("/api/v1/spin", "dup", `{}`))
	require.Equal(t, 1, calls)
}

func TestIdempotencyReservationUsesShortTTL(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("redis down")
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, idemRequest("/api/v1/spin", "short", `{}`))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.ttls, 1)
	for _, ttl := range store.ttls {
		require.Equal(t, reservationTTL, ttl)
	}
}

func TestIdempotencyRefusesOversizedBody(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	body := `{"sku":"` + strings.Repeat("a", validators.MaxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, idemRequest("/api/v1/market/verify", "big", body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
	require.Zero(t, calls)
	require.Empty(t, store.data)
}
