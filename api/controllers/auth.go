package controllers

import (
	"net/http"

	"github.com/crispyspin/crispyspin-backend/api/middleware"
	"github.com/crispyspin/crispyspin-backend/api/responses"
	"github.com/crispyspin/crispyspin-backend/api/validators"
	"github.com/crispyspin/crispyspin-backend/internal/auth"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

var errAuthUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")

type nonceQuery struct {
	Address string `json:"address" validate:"required,wallet"`
}

// AuthNonce hands out a one-time sign-in message for ?address=.
func AuthNonce(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, errAuthUnavailable)
			return
		}

		query := nonceQuery{Address: r.URL.Query().Get("address")}
		if err := validators.ValidateStruct(&query); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		challenge, err := svc.Challenge(ctx, query.Address)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, challenge)
	}
}

// AuthVerify trades a signed sign-in message for an access token. The token
// is also mirrored into a response header for clients that skip the body.
func AuthVerify(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, errAuthUnavailable)
			return
		}

		var req auth.VerifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		session, err := svc.Verify(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.Header().Set(middleware.SessionTokenHeader, session.AccessToken)
		responses.WriteSuccess(w, session)
	}
}
