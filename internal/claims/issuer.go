package claims

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/crispyspin/crispyspin-backend/internal/rewards"
	"github.com/crispyspin/crispyspin-backend/pkg/address"
	"github.com/crispyspin/crispyspin-backend/pkg/enums"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
)

// DefaultClaimTTL bounds how long a vault claim stays redeemable.
const DefaultClaimTTL = 24 * time.Hour

// nonceBytes sizes issued nonces at 128 bits.
const nonceBytes = 16

// Kind names the on-chain redemption path an attestation authorizes.
type Kind string

const (
	KindMint  Kind = "mint"
	KindClaim Kind = "claim"
)

// MintPayload is what the wallet submits to the mint contract.
type MintPayload struct {
	ContractAddress string `json:"contractAddress"`
	TokenID         string `json:"tokenId"`
	Amount          string `json:"amount"`
	Nonce           string `json:"nonce"`
}

// ClaimPayload is what the wallet submits to the reward vault.
type ClaimPayload struct {
	VaultAddress string `json:"vaultAddress"`
	Token        string `json:"token"`
	Amount       string `json:"amount"`
	TokenID      string `json:"tokenId"`
	Expiry       int64  `json:"expiry"`
	Nonce        string `json:"nonce"`
	IsMultiToken bool   `json:"isMultiToken"`
}

// Attestation is a signed redemption authorization. It is never persisted;
// only Ref is journaled.
type Attestation struct {
	Kind      Kind          `json:"kind"`
	Wallet    string        `json:"wallet"`
	Digest    string        `json:"digest"`
	Signature string        `json:"signature"`
	Ref       string        `json:"-"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
	Mint      *MintPayload  `json:"mint,omitempty"`
	Claim     *ClaimPayload `json:"claim,omitempty"`
}

// Payload returns the kind-specific body handed back to the client.
func (a *Attestation) Payload() any {
	if a == nil {
		return nil
	}
	if a.Mint != nil {
		return a.Mint
	}
	return a.Claim
}

// NonceSource returns a fresh unpredictable nonce per call.
type NonceSource func() (*uint256.Int, error)

// RandomNonce draws a 128-bit nonce from crypto/rand.
func RandomNonce() (*uint256.Int, error) {
	var b [nonceBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b[:]), nil
}

// IssuerParams bundles the key and contract addresses an Issuer signs for.
type IssuerParams struct {
	Signer         Signer
	MintContract   string
	ClaimVault     string
	PartnerToken   string
	PartnerAmount  *uint256.Int
	PartnerTokenID uint64
	ClaimTTL       time.Duration
	Nonces         NonceSource
	Now            func() time.Time
}

// Issuer builds domain-separated digests and signs them. It holds no
// mutable state.
type Issuer struct {
	signer         Signer
	mintContract   common.Address
	claimVault     common.Address
	partnerToken   common.Address
	partnerAmount  *uint256.Int
	partnerTokenID uint64
	claimTTL       time.Duration
	nonces         NonceSource
	now            func() time.Time
}

func NewIssuer(params IssuerParams) (*Issuer, error) {
	if params.Signer == nil {
		return nil, errors.New("signer is required")
	}
	mint, err := address.Parse(params.MintContract)
	if err != nil {
		return nil, fmt.Errorf("mint contract: %w", err)
	}
	vault, err := address.Parse(params.ClaimVault)
	if err != nil {
		return nil, fmt.Errorf("claim vault: %w", err)
	}
	partner, err := address.Parse(params.PartnerToken)
	if err != nil {
		return nil, fmt.Errorf("partner token: %w", err)
	}
	if params.PartnerAmount == nil || params.PartnerAmount.IsZero() {
		return nil, errors.New("partner amount must be positive")
	}
	ttl := params.ClaimTTL
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	nonces := params.Nonces
	if nonces == nil {
		nonces = RandomNonce
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		signer:         params.Signer,
		mintContract:   mint,
		claimVault:     vault,
		partnerToken:   partner,
		partnerAmount:  new(uint256.Int).Set(params.PartnerAmount),
		partnerTokenID: params.PartnerTokenID,
		claimTTL:       ttl,
		nonces:         nonces,
		now:            now,
	}, nil
}

// SignerAddress is the address the contracts must trust.
func (i *Issuer) SignerAddress() string {
	return address.MustNormalize(i.signer.Address().Hex())
}

// NewNonce draws a fresh nonce.
func (i *Issuer) NewNonce() (*uint256.Int, error) {
	n, err := i.nonces()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSigning, err, "draw nonce")
	}
	return n, nil
}

// SignMint authorizes the mint contract to mint amount of tokenID to wallet.
func (i *Issuer) SignMint(ctx context.Context, wallet string, tokenID, amount uint64, nonce *uint256.Int) (*Attestation, error) {
	walletAddr, err := address.Parse(wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSigning, err, "mint wallet")
	}
	if nonce == nil {
		return nil, pkgerrors.New(pkgerrors.CodeSigning, "nonce is required")
	}
	fields := MintFields{
		Wallet:       walletAddr,
		TokenID:      uint256.NewInt(tokenID),
		Amount:       uint256.NewInt(amount),
		Nonce:        nonce,
		MintContract: i.mintContract,
	}
	digest := fields.Digest()
	sig, err := i.signer.SignDigest(ctx, digest)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSigning, err, "sign mint digest")
	}
	return &Attestation{
		Kind:      KindMint,
		Wallet:    address.MustNormalize(walletAddr.Hex()),
		Digest:    digest.Hex(),
		Signature: hexutil.Encode(sig),
		Ref:       attestationRef(sig),
		Mint: &MintPayload{
			ContractAddress: address.MustNormalize(i.mintContract.Hex()),
			TokenID:         fields.TokenID.Dec(),
			Amount:          fields.Amount.Dec(),
			Nonce:           nonce.Dec(),
		},
	}, nil
}

// SignClaim authorizes the vault to release amount of token to wallet until
// now+ttl. A non-zero tokenID marks a multi-token (ERC-1155) claim.
func (i *Issuer) SignClaim(ctx context.Context, wallet, token string, amount *uint256.Int, tokenID uint64, nonce *uint256.Int) (*Attestation, error) {
	walletAddr, err := address.Parse(wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSigning, err, "claim wallet")
	}
	tokenAddr, err := address.Parse(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSigning, err, "claim token")
	}
	if amount == nil || nonce == nil {
		return nil, pkgerrors.New(pkgerrors.CodeSigning, "amount and nonce are required")
	}
	expiresAt := i.now().UTC().Add(i.claimTTL).Truncate(time.Second)
	fields := ClaimFields{
		Wallet:       walletAddr,
		Token:        tokenAddr,
		Amount:       amount,
		TokenID:      uint256.NewInt(tokenID),
		Expiry:       uint256.NewInt(uint64(expiresAt.Unix())),
		Nonce:        nonce,
		IsMultiToken: tokenID > 0,
		Vault:        i.claimVault,
	}
	digest := fields.Digest()
	sig, err := i.signer.SignDigest(ctx, digest)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSigning, err, "sign claim digest")
	}
	return &Attestation{
		Kind:      KindClaim,
		Wallet:    address.MustNormalize(walletAddr.Hex()),
		Digest:    digest.Hex(),
		Signature: hexutil.Encode(sig),
		Ref:       attestationRef(sig),
		ExpiresAt: &expiresAt,
		Claim: &ClaimPayload{
			VaultAddress: address.MustNormalize(i.claimVault.Hex()),
			Token:        address.MustNormalize(tokenAddr.Hex()),
			Amount:       amount.Dec(),
			TokenID:      fields.TokenID.Dec(),
			Expiry:       expiresAt.Unix(),
			Nonce:        nonce.Dec(),
			IsMultiToken: fields.IsMultiToken,
		},
	}, nil
}

// Attest signs the redemption for reward with a fresh nonce. Points rewards
// settle off-chain and are rejected.
func (i *Issuer) Attest(ctx context.Context, wallet string, reward rewards.Reward) (*Attestation, error) {
	if !reward.Kind.RequiresAttestation() {
		return nil, pkgerrors.New(pkgerrors.CodeSigning, fmt.Sprintf("reward kind %s is not redeemed on-chain", reward.Kind))
	}
	nonce, err := i.NewNonce()
	if err != nil {
		return nil, err
	}
	switch reward.Kind {
	case enums.RewardKindNFT:
		if reward.Amount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeSigning, "nft amount must be positive")
		}
		return i.SignMint(ctx, wallet, reward.TokenID, uint64(reward.Amount), nonce)
	default:
		return i.SignClaim(ctx, wallet, i.partnerToken.Hex(), i.partnerAmount, i.partnerTokenID, nonce)
	}
}

// attestationRef is a stable handle for journaling that does not expose the
// signature bytes.
func attestationRef(sig []byte) string {
	return crypto.Keccak256Hash(sig).Hex()
}
