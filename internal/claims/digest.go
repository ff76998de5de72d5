package claims

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// packer accumulates Solidity abi.encodePacked output.
type packer struct {
	buf []byte
}

func (p *packer) address(a common.Address) *packer {
	p.buf = append(p.buf, a.Bytes()...)
	return p
}

func (p *packer) uint256(v *uint256.Int) *packer {
	if v == nil {
		v = new(uint256.Int)
	}
	word := v.Bytes32()
	p.buf = append(p.buf, word[:]...)
	return p
}

func (p *packer) boolean(b bool) *packer {
	if b {
		p.buf = append(p.buf, 1)
	} else {
		p.buf = append(p.buf, 0)
	}
	return p
}

func (p *packer) bytes() []byte {
	return p.buf
}

// MintFields is the mint authorization in contract field order.
type MintFields struct {
	Wallet       common.Address
	TokenID      *uint256.Int
	Amount       *uint256.Int
	Nonce        *uint256.Int
	MintContract common.Address
}

// Pack returns abi.encodePacked(address,uint256,uint256,uint256,address).
func (f MintFields) Pack() []byte {
	p := &packer{buf: make([]byte, 0, 20+32*3+20)}
	return p.address(f.Wallet).
		uint256(f.TokenID).
		uint256(f.Amount).
		uint256(f.Nonce).
		address(f.MintContract).
		bytes()
}

// Digest is keccak256 over the packed fields.
func (f MintFields) Digest() common.Hash {
	return crypto.Keccak256Hash(f.Pack())
}

// ClaimFields is the vault claim authorization in contract field order.
type ClaimFields struct {
	Wallet       common.Address
	Token        common.Address
	Amount       *uint256.Int
	TokenID      *uint256.Int
	Expiry       *uint256.Int
	Nonce        *uint256.Int
	IsMultiToken bool
	Vault        common.Address
}

// Pack returns abi.encodePacked(address,address,uint256,uint256,uint256,uint256,bool,address).
func (f ClaimFields) Pack() []byte {
	p := &packer{buf: make([]byte, 0, 20*2+32*4+1+20)}
	return p.address(f.Wallet).
		address(f.Token).
		uint256(f.Amount).
		uint256(f.TokenID).
		uint256(f.Expiry).
		uint256(f.Nonce).
		boolean(f.IsMultiToken).
		address(f.Vault).
		bytes()
}

// Digest is keccak256 over the packed fields.
func (f ClaimFields) Digest() common.Hash {
	return crypto.Keccak256Hash(f.Pack())
}
