package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("  0xAbC0000000000000000000000000000000000DeF ")
	require.NoError(t, err)
	require.Equal(t, "0xabc0000000000000000000000000000000000def", got)

	got, err = Normalize("abc0000000000000000000000000000000000def")
	require.NoError(t, err)
	require.Equal(t, "0xabc0000000000000000000000000000000000def", got)

	for _, bad := range []string{"", "0x123", "0xZZZ0000000000000000000000000000000000def", "not-an-address"} {
		_, err := Normalize(bad)
		require.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestEqualIgnoresCase(t *testing.T) {
	require.True(t, Equal("0xABC0000000000000000000000000000000000DEF", "0xabc0000000000000000000000000000000000def"))
	require.False(t, Equal("0xabc0000000000000000000000000000000000def", "0xabc0000000000000000000000000000000000dee"))
	require.False(t, Equal("bogus", "bogus"))
}

func TestNormalizeTxHash(t *testing.T) {
	raw := "0xDEF0000000000000000000000000000000000000000000000000000000000001"
	got, err := NormalizeTxHash(raw)
	require.NoError(t, err)
	require.Equal(t, "0xdef0000000000000000000000000000000000000000000000000000000000001", got)

	_, err = NormalizeTxHash("0xdef")
	require.ErrorIs(t, err, ErrInvalidTxHash)
}

func TestMustNormalizePanicsOnInvalid(t *testing.T) {
	require.Panics(t, func() { MustNormalize("0x1") })
}
