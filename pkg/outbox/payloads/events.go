package payloads

import (
	"time"

	"github.com/crispyspin/crispyspin-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SpinIssuedEvent is emitted for every committed spin.
type SpinIssuedEvent struct {
	SpinID         uuid.UUID        `json:"spin_id"`
	Wallet         string           `json:"wallet"`
	RewardKind     enums.RewardKind `json:"reward_kind"`
	RewardValue    string           `json:"reward_value"`
	Path           enums.SpinPath   `json:"path"`
	PointsAwarded  int64            `json:"points_awarded"`
	AttestationRef *string          `json:"attestation_ref,omitempty"`
	IssuedAt       time.Time        `json:"issued_at"`
}

// PaymentSettledEvent is emitted the first time a payment reference is settled.
type PaymentSettledEvent struct {
	PaymentRef   string          `json:"payment_ref"`
	Wallet       string          `json:"wallet"`
	SKU          string          `json:"sku"`
	AmountUSDC   decimal.Decimal `json:"amount_usdc"`
	CreditsAdded int64           `json:"credits_added"`
	PointsAdded  int64           `json:"points_added"`
	SettledAt    time.Time       `json:"settled_at"`
}
