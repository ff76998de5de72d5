package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/crispyspin/crispyspin-backend/api/responses"
	"github.com/crispyspin/crispyspin-backend/pkg/address"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

const maxThrottleBody = 16 << 10

type windowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Throttle caps how often one client IP and one wallet may hit a route
// within a fixed window. A zero limit disables that dimension.
type Throttle struct {
	name   string
	window time.Duration
	rules  []throttleRule
}

type throttleRule struct {
	subject   func(*http.Request) (string, error)
	dimension string
	limit     int64
}

func NewThrottle(name string, window time.Duration, ipLimit, walletLimit int) Throttle {
	t := Throttle{name: strings.ToLower(strings.TrimSpace(name)), window: window}
	if t.name == "" {
		t.name = "auth"
	}
	if ipLimit > 0 {
		t.rules = append(t.rules, throttleRule{subject: clientIP, dimension: "ip", limit: int64(ipLimit)})
	}
	if walletLimit > 0 {
		t.rules = append(t.rules, throttleRule{subject: requestWallet, dimension: "wallet", limit: int64(walletLimit)})
	}
	return t
}

// Throttled applies t in front of a handler. Counter failures surface as
// dependency errors rather than letting traffic through unmetered.
func Throttled(t Throttle, counter windowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if t.window <= 0 || len(t.rules) == 0 || counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, rule := range t.rules {
				subject, err := rule.subject(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request"))
					return
				}
				if subject == "" {
					continue
				}
				allowed, count, err := counter.FixedWindowAllow(ctx, rule.dimension+":"+t.name+":"+subject, rule.limit, t.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if !allowed {
					t.reject(ctx, logg, w, rule, subject, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (t Throttle) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, rule throttleRule, subject string, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"throttle":  t.name,
			"dimension": rule.dimension,
			"subject":   subject,
			"attempts":  count,
			"limit":     rule.limit,
		}), "http.throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(t.window.Round(time.Second)/time.Second)))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, slow down"))
}

// requestWallet finds the wallet a login request is for: the address query
// parameter, or the second line of the signed message in a JSON body. The
// body is restored for the handler.
func requestWallet(r *http.Request) (string, error) {
	if wallet, err := address.Normalize(r.URL.Query().Get("address")); err == nil {
		return wallet, nil
	}
	if r.Body == nil || r.Method == http.MethodGet {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxThrottleBody))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return "", nil
	}
	_, rest, _ := strings.Cut(strings.ReplaceAll(body.Message, "\r\n", "\n"), "\n")
	line, _, _ := strings.Cut(rest, "\n")
	wallet, err := address.Normalize(line)
	if err != nil {
		return "", nil
	}
	return wallet, nil
}

// clientIP prefers the first parseable X-Forwarded-For hop, then X-Real-IP,
// then the socket peer.
func clientIP(r *http.Request) (string, error) {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
			return ip.String(), nil
		}
	}
	if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return ip.String(), nil
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host, nil
	}
	return r.RemoteAddr, nil
}
