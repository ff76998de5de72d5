package controllers

import (
	"net/http"

	"github.com/crispyspin/crispyspin-backend/api/middleware"
	"github.com/crispyspin/crispyspin-backend/api/responses"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

// requireWallet writes a 401 and reports false when the request carries no
// authenticated wallet.
func requireWallet(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	wallet := middleware.WalletFromContext(r.Context())
	if wallet == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "wallet context missing"))
		return "", false
	}
	return wallet, true
}
