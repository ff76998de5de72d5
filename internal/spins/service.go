package spins

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crispyspin/crispyspin-backend/internal/claims"
	"github.com/crispyspin/crispyspin-backend/internal/eligibility"
	"github.com/crispyspin/crispyspin-backend/internal/ledger"
	"github.com/crispyspin/crispyspin-backend/internal/rewards"
	"github.com/crispyspin/crispyspin-backend/pkg/address"
	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	"github.com/crispyspin/crispyspin-backend/pkg/enums"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox/payloads"
	"github.com/crispyspin/crispyspin-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type drawer interface {
	Draw() (rewards.Reward, error)
}

type attester interface {
	Attest(ctx context.Context, wallet string, reward rewards.Reward) (*claims.Attestation, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service runs eligibility checks and spin issuance.
type Service interface {
	CheckEligibility(ctx context.Context, wallet string) (*eligibility.Decision, error)
	IssueSpin(ctx context.Context, wallet string, pref enums.SpinPreference) (*Result, error)
	History(ctx context.Context, wallet string, params pagination.Params) (*HistoryPage, error)
}

// Result is the outcome of one spin request. Ineligible requests carry
// Success=false with a reason and are not errors.
type Result struct {
	Success          bool                `json:"success"`
	Reason           enums.FailureReason `json:"reason,omitempty"`
	RemainingSeconds int64               `json:"remainingSeconds,omitempty"`
	SpinID           *uuid.UUID          `json:"spinId,omitempty"`
	Path             enums.SpinPath      `json:"path,omitempty"`
	Reward           *rewards.Reward     `json:"reward,omitempty"`
	Signature        string              `json:"signature,omitempty"`
	ClaimPayload     any                 `json:"claimPayload,omitempty"`
	ExpiresAt        *time.Time          `json:"expiresAt,omitempty"`
	PointsAwarded    int64               `json:"pointsAwarded,omitempty"`
	Balance          *ledger.Balance     `json:"balance,omitempty"`
	attestation      *claims.Attestation
}

// Attestation exposes the signed redemption, if any.
func (r *Result) Attestation() *claims.Attestation {
	return r.attestation
}

// HistoryPage is one page of a wallet's spin journal.
type HistoryPage struct {
	Spins      []models.SpinRecord `json:"spins"`
	NextCursor string              `json:"nextCursor,omitempty"`
}

// ServiceParams wires the engine's collaborators.
type ServiceParams struct {
	Tx      txRunner
	Ledger  ledger.Repository
	Gate    *eligibility.Gate
	Table   drawer
	Issuer  attester
	Outbox  outboxPublisher
	Metrics *metrics.EngineMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	tx      txRunner
	ledger  ledger.Repository
	gate    *eligibility.Gate
	table   drawer
	issuer  attester
	outbox  outboxPublisher
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
	clock   func() time.Time
}

// NewService builds the spin engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Issuer == nil {
		return nil, fmt.Errorf("claim issuer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	gate := params.Gate
	if gate == nil {
		gate = eligibility.NewGate(eligibility.Cooldown)
	}
	var table drawer = params.Table
	if table == nil {
		table = rewards.NewTable(nil)
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		tx:      params.Tx,
		ledger:  params.Ledger,
		gate:    gate,
		table:   table,
		issuer:  params.Issuer,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		clock:   clock,
	}, nil
}

// CheckEligibility is advisory only; IssueSpin re-evaluates under the row lock.
func (s *service) CheckEligibility(ctx context.Context, wallet string) (*eligibility.Decision, error) {
	normalized, err := normalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	entry, err := s.ledger.FindEntry(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load ledger entry")
	}
	decision := s.gate.Evaluate(entry, s.clock(), enums.SpinPreferenceAuto)
	return &decision, nil
}

func (s *service) IssueSpin(ctx context.Context, wallet string, pref enums.SpinPreference) (*Result, error) {
	normalized, err := normalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	if pref == "" {
		pref = enums.SpinPreferenceAuto
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)

		entry, err := repo.LockEntry(ctx, normalized)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "lock ledger entry")
		}

		now := s.clock().UTC()
		decision := s.gate.Evaluate(entry, now, pref)
		if !decision.Allowed {
			result = &Result{Reason: decision.Reason, RemainingSeconds: decision.RemainingSeconds}
			return pkgerrors.New(pkgerrors.CodeIneligible, "spin not available").WithDetails(decision)
		}

		reward, err := s.table.Draw()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "draw reward")
		}

		points := int64(rewards.ParticipationBonus) + reward.PointsCredited()
		if err := ledger.ApplySpin(entry, decision.Path, points, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply spin")
		}
		if err := repo.SaveEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save ledger entry")
		}

		var attestation *claims.Attestation
		if reward.Kind.RequiresAttestation() {
			attestation, err = s.issuer.Attest(ctx, normalized, reward)
			if err != nil {
				return err
			}
		}

		record := &models.SpinRecord{
			Wallet:        normalized,
			RewardKind:    reward.Kind,
			RewardValue:   reward.Value,
			Path:          decision.Path,
			PointsAwarded: points,
			CreatedAt:     now,
		}
		if attestation != nil {
			ref := attestation.Ref
			record.AttestationRef = &ref
		}
		if err := repo.AppendSpin(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "append spin record")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSpinIssued,
			AggregateType: enums.AggregateSpin,
			AggregateID:   record.ID.String(),
			Actor:         &outbox.Actor{Wallet: normalized},
			Data: payloads.SpinIssuedEvent{
				SpinID:         record.ID,
				Wallet:         normalized,
				RewardKind:     reward.Kind,
				RewardValue:    reward.Value,
				Path:           decision.Path,
				PointsAwarded:  points,
				AttestationRef: record.AttestationRef,
				IssuedAt:       now,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "emit spin event")
		}

		spinID := record.ID
		result = &Result{
			Success:       true,
			SpinID:        &spinID,
			Path:          decision.Path,
			Reward:        &reward,
			PointsAwarded: points,
			Balance: &ledger.Balance{
				Wallet:      entry.Wallet,
				PointsTotal: entry.PointsTotal,
				SpinCredits: entry.SpinCredits,
				LastSpinAt:  entry.LastSpinAt,
			},
			attestation: attestation,
		}
		if attestation != nil {
			result.Signature = attestation.Signature
			result.ClaimPayload = attestation.Payload()
			result.ExpiresAt = attestation.ExpiresAt
		}
		return nil
	})

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithWallet(ctx, normalized)
	}

	if pkgerrors.Is(err, pkgerrors.CodeIneligible) && result != nil {
		s.metrics.IncSpin(metrics.ResultIneligible, "", "")
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(logCtx, "reason", result.Reason), "spin rejected")
		}
		return result, nil
	}
	if err != nil {
		s.metrics.IncSpin(metrics.ResultFailed, "", "")
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "spin transaction")
		}
		return nil, err
	}

	s.metrics.IncSpin(metrics.ResultIssued, result.Reward.Kind.String(), result.Path.String())
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"spin_id":      result.SpinID.String(),
			"reward_kind":  result.Reward.Kind,
			"reward_value": result.Reward.Value,
			"path":         result.Path,
		}), "spin issued")
	}
	return result, nil
}

func (s *service) History(ctx context.Context, wallet string, params pagination.Params) (*HistoryPage, error) {
	normalized, err := normalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	records, next, err := s.ledger.ListSpins(ctx, normalized, params)
	if err != nil {
		if _, cursorErr := pagination.ParseCursor(params.Cursor); cursorErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, cursorErr, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list spins")
	}
	if records == nil {
		records = []models.SpinRecord{}
	}
	return &HistoryPage{Spins: records, NextCursor: next}, nil
}

func normalizeWallet(wallet string) (string, error) {
	normalized, err := address.Normalize(wallet)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	return normalized, nil
}
