package rewards

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Source yields uniform integers in [0, n).
type Source interface {
	Int63n(n int64) (int64, error)
}

// CryptoSource draws from crypto/rand.Reader.
type CryptoSource struct{}

func (CryptoSource) Int63n(n int64) (int64, error) {
	if n <= 0 {
		return 0, errors.New("bound must be positive")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}
