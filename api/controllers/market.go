package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/crispyspin/crispyspin-backend/api/responses"
	"github.com/crispyspin/crispyspin-backend/api/validators"
	"github.com/crispyspin/crispyspin-backend/internal/payments"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

const maxSKULength = 64

// MarketVerifyRequest reports an on-chain payment for a catalog item.
type MarketVerifyRequest struct {
	TxHash     string          `json:"txHash" validate:"required,txhash"`
	SKU        string          `json:"sku" validate:"required,max=64"`
	AmountUSDC decimal.Decimal `json:"amountUsdc"`
}

func MarketSKUs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"skus": payments.Catalog()})
	}
}

// MarketVerify settles a payment for the authenticated wallet. Replaying a
// settled transaction succeeds without crediting again.
func MarketVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := requireWallet(w, r, logg)
		if !ok {
			return
		}

		var body MarketVerifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Settle(r.Context(), payments.SettleInput{
			PaymentRef: body.TxHash,
			Wallet:     wallet,
			SKU:        validators.Clip(body.SKU, maxSKULength),
			AmountUSDC: body.AmountUSDC,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
