package claims

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	testWallet = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testMint   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testVault  = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func sampleMint() MintFields {
	return MintFields{
		Wallet:       testWallet,
		TokenID:      uint256.NewInt(2),
		Amount:       uint256.NewInt(1),
		Nonce:        uint256.NewInt(42),
		MintContract: testMint,
	}
}

func sampleClaim() ClaimFields {
	return ClaimFields{
		Wallet:       testWallet,
		Token:        testToken,
		Amount:       uint256.NewInt(1_000_000_000_000_000_000),
		TokenID:      uint256.NewInt(0),
		Expiry:       uint256.NewInt(1_900_000_000),
		Nonce:        uint256.NewInt(7),
		IsMultiToken: false,
		Vault:        testVault,
	}
}

func TestMintPackLayout(t *testing.T) {
	packed := sampleMint().Pack()
	require.Len(t, packed, 136)
	require.Equal(t, testWallet.Bytes(), packed[:20])
	require.Equal(t, byte(2), packed[20+31])
	require.Equal(t, byte(1), packed[52+31])
	require.Equal(t, byte(42), packed[84+31])
	require.Equal(t, testMint.Bytes(), packed[116:])
}

func TestClaimPackLayout(t *testing.T) {
	fields := sampleClaim()
	fields.IsMultiToken = true
	packed := fields.Pack()
	require.Len(t, packed, 189)
	require.Equal(t, testWallet.Bytes(), packed[:20])
	require.Equal(t, testToken.Bytes(), packed[20:40])
	require.Equal(t, byte(1), packed[168])
	require.Equal(t, testVault.Bytes(), packed[169:])
}

// Vectors match ethers solidityPackedKeccak256 over the same field types.
func TestDigestKnownAnswers(t *testing.T) {
	require.Equal(t,
		"0x1c306e978125bfbdbd3886dab767fe47150aabac8df59963708778be83be1fe2",
		sampleMint().Digest().Hex())
	require.Equal(t,
		"0x19c8120d35042ac654ddf93c6d9226c273dfe3b45b4291f56bc9254db95b6186",
		sampleClaim().Digest().Hex())
}

func TestDigestIsDeterministic(t *testing.T) {
	require.Equal(t, sampleMint().Digest(), sampleMint().Digest())
	require.Equal(t, sampleClaim().Digest(), sampleClaim().Digest())
}

func TestMintDigestChangesWithEachField(t *testing.T) {
	base := sampleMint().Digest()
	mutations := map[string]func(*MintFields){
		"wallet":   func(f *MintFields) { f.Wallet = testToken },
		"tokenId":  func(f *MintFields) { f.TokenID = uint256.NewInt(3) },
		"amount":   func(f *MintFields) { f.Amount = uint256.NewInt(2) },
		"nonce":    func(f *MintFields) { f.Nonce = uint256.NewInt(43) },
		"contract": func(f *MintFields) { f.MintContract = testVault },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			fields := sampleMint()
			mutate(&fields)
			require.NotEqual(t, base, fields.Digest())
		})
	}
}

func TestClaimDigestChangesWithEachField(t *testing.T) {
	base := sampleClaim().Digest()
	mutations := map[string]func(*ClaimFields){
		"wallet":       func(f *ClaimFields) { f.Wallet = testMint },
		"token":        func(f *ClaimFields) { f.Token = testMint },
		"amount":       func(f *ClaimFields) { f.Amount = uint256.NewInt(5) },
		"tokenId":      func(f *ClaimFields) { f.TokenID = uint256.NewInt(1) },
		"expiry":       func(f *ClaimFields) { f.Expiry = uint256.NewInt(1_900_000_001) },
		"nonce":        func(f *ClaimFields) { f.Nonce = uint256.NewInt(8) },
		"isMultiToken": func(f *ClaimFields) { f.IsMultiToken = true },
		"vault":        func(f *ClaimFields) { f.Vault = testMint },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			fields := sampleClaim()
			mutate(&fields)
			require.NotEqual(t, base, fields.Digest())
		})
	}
}

func TestMintAndClaimDigestsAreDomainSeparated(t *testing.T) {
	mint := sampleMint()
	claim := sampleClaim()
	require.NotEqual(t, len(mint.Pack()), len(claim.Pack()))
	require.NotEqual(t, mint.Digest(), claim.Digest())
}
