package payments

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PurchaseBonusPoints is credited alongside any purchase that grants credits.
const PurchaseBonusPoints = 2

// SKU is a purchasable market item.
type SKU struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Credits   int64           `json:"credits"`
	PriceUSDC decimal.Decimal `json:"priceUsdc"`
}

var catalog = map[string]SKU{
	"spin_pack_small": {
		ID:        "spin_pack_small",
		Name:      "5 Spin Pack",
		Credits:   5,
		PriceUSDC: decimal.RequireFromString("1.00"),
	},
	"spin_pack_medium": {
		ID:        "spin_pack_medium",
		Name:      "20 Spin Pack",
		Credits:   20,
		PriceUSDC: decimal.RequireFromString("3.00"),
	},
	// Boosters are fulfilled as NFTs, not credits.
	"booster_sauce": {
		ID:        "booster_sauce",
		Name:      "Sauce Booster",
		Credits:   0,
		PriceUSDC: decimal.RequireFromString("0.50"),
	},
}

// Lookup returns the SKU for id, case-insensitively.
func Lookup(id string) (SKU, bool) {
	sku, ok := catalog[normalizeSKU(id)]
	return sku, ok
}

// CreditsFor maps a SKU to spin credits; unknown SKUs credit zero.
func CreditsFor(id string) int64 {
	sku, ok := Lookup(id)
	if !ok {
		return 0
	}
	return sku.Credits
}

// Catalog lists every SKU ordered by price.
func Catalog() []SKU {
	out := make([]SKU, 0, len(catalog))
	for _, sku := range catalog {
		out = append(out, sku)
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].PriceUSDC.Cmp(out[j].PriceUSDC); cmp != 0 {
			return cmp < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func normalizeSKU(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
