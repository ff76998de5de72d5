package claims

import (
	"context"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crispyspin/crispyspin-backend/pkg/ethsig"
)

// Signer produces EIP-191 signatures over 32-byte digests.
type Signer interface {
	Address() common.Address
	SignDigest(ctx context.Context, digest common.Hash) ([]byte, error)
}

// KeySigner signs with an in-process secp256k1 key. The key is read-only
// after construction and safe for concurrent use.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex-encoded private key.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := ethsig.ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *KeySigner) Address() common.Address {
	if s == nil {
		return common.Address{}
	}
	return s.address
}

func (s *KeySigner) SignDigest(ctx context.Context, digest common.Hash) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, errors.New("signer not configured")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return ethsig.SignText(s.key, digest.Bytes())
}
