package controllers

import (
	"net/http"
	"strings"

	"github.com/crispyspin/crispyspin-backend/api/responses"
	"github.com/crispyspin/crispyspin-backend/api/validators"
	"github.com/crispyspin/crispyspin-backend/internal/spins"
	"github.com/crispyspin/crispyspin-backend/pkg/enums"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/pagination"
)

// SpinRequest optionally forces the consumption path.
type SpinRequest struct {
	Path string `json:"path" validate:"omitempty,oneof=free credit auto"`
}

var historyLimits = validators.IntRange{Default: pagination.DefaultLimit, Min: 1, Max: pagination.MaxLimit}

func SpinEligibility(svc spins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := requireWallet(w, r, logg)
		if !ok {
			return
		}
		decision, err := svc.CheckEligibility(r.Context(), wallet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}

// SpinIssue runs one spin. Ineligible outcomes are written as successful
// envelopes carrying success=false.
func SpinIssue(svc spins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := requireWallet(w, r, logg)
		if !ok {
			return
		}

		var body SpinRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pref, err := enums.ParseSpinPreference(body.Path)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid path"))
			return
		}

		result, err := svc.IssueSpin(r.Context(), wallet, pref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SpinHistory(svc spins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := requireWallet(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.QueryInt(r, "limit", historyLimits)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), wallet, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
