package payments

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreditsFor(t *testing.T) {
	require.Equal(t, int64(5), CreditsFor("spin_pack_small"))
	require.Equal(t, int64(20), CreditsFor(" SPIN_PACK_MEDIUM "))
	require.Equal(t, int64(0), CreditsFor("booster_sauce"))
	require.Equal(t, int64(0), CreditsFor("golden_ticket"))
}

func TestCatalogOrderedByPrice(t *testing.T) {
	skus := Catalog()
	require.Len(t, skus, 3)
	require.Equal(t, "booster_sauce", skus[0].ID)
	require.Equal(t, "spin_pack_small", skus[1].ID)
	require.Equal(t, "spin_pack_medium", skus[2].ID)
	require.Equal(t, "3", skus[2].PriceUSDC.String())
}
