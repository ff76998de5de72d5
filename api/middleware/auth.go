package middleware

import (
	"net/http"
	"strings"

	"github.com/crispyspin/crispyspin-backend/api/responses"
	pkgAuth "github.com/crispyspin/crispyspin-backend/pkg/auth"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

// SessionTokenHeader carries a freshly minted access token on login responses.
const SessionTokenHeader = "X-CS-Token"

// Auth requires a bearer access token and attaches the Caller it names.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithCaller(r.Context(), Caller{UserID: claims.UserID, Wallet: claims.Wallet})
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id": claims.UserID.String(),
					"wallet":  claims.Wallet,
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
