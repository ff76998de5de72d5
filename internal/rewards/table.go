package rewards

import (
	"fmt"

	"github.com/crispyspin/crispyspin-backend/pkg/enums"
)

const (
	// DrawSpace is the exclusive upper bound of the band selector.
	DrawSpace = 100

	// ParticipationBonus is credited on every committed spin.
	ParticipationBonus = 10

	MinPoints = 50
	MaxPoints = 200

	PartnerRewardValue   = "PARTNER_REWARD"
	partnerRewardMessage = "Partner reward available!"
)

// Reward is the outcome of one draw. TokenID and Amount are meaningful for
// NFT rewards; Amount carries the point value for points rewards.
type Reward struct {
	Kind    enums.RewardKind `json:"type"`
	TokenID uint64           `json:"tokenId,omitempty"`
	Amount  int64            `json:"amount,omitempty"`
	Value   string           `json:"value"`
	Message string           `json:"message,omitempty"`
}

// PointsCredited is the balance increase the reward itself grants, excluding
// the participation bonus.
func (r Reward) PointsCredited() int64 {
	if r.Kind == enums.RewardKindPoints {
		return r.Amount
	}
	return 0
}

type band struct {
	upper  int64 // inclusive
	reward func(src Source) (Reward, error)
}

func nft(tokenID uint64, value string) func(Source) (Reward, error) {
	return func(Source) (Reward, error) {
		return Reward{Kind: enums.RewardKindNFT, TokenID: tokenID, Amount: 1, Value: value}, nil
	}
}

func points(src Source) (Reward, error) {
	offset, err := src.Int63n(MaxPoints - MinPoints + 1)
	if err != nil {
		return Reward{}, fmt.Errorf("draw points amount: %w", err)
	}
	amount := MinPoints + offset
	return Reward{Kind: enums.RewardKindPoints, Amount: amount, Value: fmt.Sprintf("%d_POINTS", amount)}, nil
}

func partner(Source) (Reward, error) {
	return Reward{Kind: enums.RewardKindPartner, Value: PartnerRewardValue, Message: partnerRewardMessage}, nil
}

var bands = []band{
	{upper: 5, reward: nft(1, "BASKET")},
	{upper: 20, reward: nft(2, "FRIES")},
	{upper: 40, reward: nft(3, "SAUCE")},
	{upper: 70, reward: points},
	{upper: DrawSpace - 1, reward: partner},
}

// Table maps uniform draws onto the fixed reward bands.
type Table struct {
	src Source
}

// NewTable builds a table over src; a nil source uses the crypto reader.
func NewTable(src Source) *Table {
	if src == nil {
		src = CryptoSource{}
	}
	return &Table{src: src}
}

// Draw selects a reward using a fresh value in [0, DrawSpace).
func (t *Table) Draw() (Reward, error) {
	v, err := t.src.Int63n(DrawSpace)
	if err != nil {
		return Reward{}, fmt.Errorf("draw band: %w", err)
	}
	return t.Resolve(v)
}

// Resolve maps an explicit draw value to its band.
func (t *Table) Resolve(v int64) (Reward, error) {
	if v < 0 || v >= DrawSpace {
		return Reward{}, fmt.Errorf("draw value %d outside [0,%d)", v, DrawSpace)
	}
	for _, b := range bands {
		if v <= b.upper {
			return b.reward(t.src)
		}
	}
	return Reward{}, fmt.Errorf("no band for draw value %d", v)
}
