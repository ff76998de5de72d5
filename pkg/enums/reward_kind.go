package enums

import "fmt"

// RewardKind identifies the category of a spin outcome.
type RewardKind string

const (
	RewardKindNFT     RewardKind = "nft"
	RewardKindPoints  RewardKind = "points"
	RewardKindPartner RewardKind = "partner"
)

var validRewardKinds = []RewardKind{
	RewardKindNFT,
	RewardKindPoints,
	RewardKindPartner,
}

// String implements fmt.Stringer.
func (k RewardKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known RewardKind.
func (k RewardKind) IsValid() bool {
	for _, candidate := range validRewardKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// RequiresAttestation reports whether the reward is redeemed on-chain.
func (k RewardKind) RequiresAttestation() bool {
	return k == RewardKindNFT || k == RewardKindPartner
}

// ParseRewardKind converts raw input into a RewardKind.
func ParseRewardKind(value string) (RewardKind, error) {
	for _, candidate := range validRewardKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward kind %q", value)
}
