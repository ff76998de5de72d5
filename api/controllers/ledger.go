package controllers

import (
	"net/http"

	"github.com/crispyspin/crispyspin-backend/api/responses"
	"github.com/crispyspin/crispyspin-backend/api/validators"
	"github.com/crispyspin/crispyspin-backend/internal/ledger"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

// LedgerBalance returns the caller's balance, zero-valued before the first spin.
func LedgerBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := requireWallet(w, r, logg)
		if !ok {
			return
		}
		balance, err := svc.Balance(r.Context(), wallet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

func OrdersList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
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
		orders, err := svc.Orders(r.Context(), wallet, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": orders})
	}
}
