// Package address normalizes EVM addresses into the lowercase form used as
// the identity key for wallets, contracts, and payment references.
package address

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidTxHash  = errors.New("invalid transaction hash")
)

var txHashRe = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// Normalize validates an address and returns it lowercased with its 0x prefix.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}

// MustNormalize panics on invalid input. Use for configuration constants only.
func MustNormalize(raw string) string {
	normalized, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return normalized
}

// Parse returns the typed address for an already validated value.
func Parse(raw string) (common.Address, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(normalized), nil
}

// Equal compares two addresses case-insensitively.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	return errA == nil && errB == nil && na == nb
}

// NormalizeTxHash validates a 32-byte transaction hash and lowercases it.
func NormalizeTxHash(raw string) (string, error) {
	hash := strings.ToLower(strings.TrimSpace(raw))
	if !txHashRe.MatchString(hash) {
		return "", ErrInvalidTxHash
	}
	return hash, nil
}
