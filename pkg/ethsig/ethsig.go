// Package ethsig produces and checks EIP-191 personal-message signatures in
// the 65-byte r||s||v form wallets emit (v in {27,28}).
package ethsig

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

var ErrMalformedSignature = errors.New("malformed signature")

// SignText signs the EIP-191 hash of data.
func SignText(key *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("signing key is required")
	}
	sig, err := crypto.Sign(accounts.TextHash(data), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverText returns the address that produced sig over the EIP-191 hash of data.
func RecoverText(data, sig []byte) (common.Address, error) {
	if len(sig) != signatureLength {
		return common.Address{}, ErrMalformedSignature
	}
	normalized := make([]byte, signatureLength)
	copy(normalized, sig)
	switch v := normalized[crypto.RecoveryIDOffset]; {
	case v == 27 || v == 28:
		normalized[crypto.RecoveryIDOffset] -= 27
	case v == 0 || v == 1:
	default:
		return common.Address{}, ErrMalformedSignature
	}
	pub, err := crypto.SigToPub(accounts.TextHash(data), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// DecodeSignature parses a 0x-prefixed hex signature.
func DecodeSignature(raw string) ([]byte, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil || len(sig) != signatureLength {
		return nil, ErrMalformedSignature
	}
	return sig, nil
}

// ParsePrivateKey accepts a hex secp256k1 key with or without the 0x prefix.
func ParsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	material := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if material == "" {
		return nil, errors.New("private key is empty")
	}
	key, err := crypto.HexToECDSA(material)
	if err != nil {
		return nil, fmt.Errorf("invalid private key material: %w", err)
	}
	return key, nil
}
