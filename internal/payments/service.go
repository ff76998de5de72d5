package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crispyspin/crispyspin-backend/internal/ledger"
	"github.com/crispyspin/crispyspin-backend/pkg/address"
	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	"github.com/crispyspin/crispyspin-backend/pkg/enums"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service settles verified payments into spin credits.
type Service interface {
	Settle(ctx context.Context, input SettleInput) (*SettleResult, error)
}

// SettleInput is one payment notification.
type SettleInput struct {
	PaymentRef string
	Wallet     string
	SKU        string
	AmountUSDC decimal.Decimal
}

// SettleResult reports the credited amounts. Replays of a settled reference
// succeed with AlreadySettled set and nothing credited.
type SettleResult struct {
	Success        bool                `json:"success"`
	AlreadySettled bool                `json:"alreadySettled"`
	Reason         enums.FailureReason `json:"reason,omitempty"`
	CreditsAdded   int64               `json:"creditsAdded"`
	PointsAdded    int64               `json:"pointsAdded"`
	Order          *models.Order       `json:"order,omitempty"`
	Balance        *ledger.Balance     `json:"balance,omitempty"`
}

// ServiceParams wires the settlement collaborators. With RequirePayerMatch set,
// a receipt must be sent from the settling wallet.
type ServiceParams struct {
	Tx                txRunner
	Ledger            ledger.Repository
	Verifier          Verifier
	Outbox            outboxPublisher
	TreasuryAddress   string
	RequirePayerMatch bool
	Metrics           *metrics.EngineMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
}

type service struct {
	tx       txRunner
	ledger   ledger.Repository
	verifier Verifier
	outbox   outboxPublisher
	treasury string
	payer    bool
	metrics  *metrics.EngineMetrics
	logg     *logger.Logger
	clock    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	treasury := ""
	if strings.TrimSpace(params.TreasuryAddress) != "" {
		normalized, err := address.Normalize(params.TreasuryAddress)
		if err != nil {
			return nil, fmt.Errorf("treasury address: %w", err)
		}
		treasury = normalized
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		tx:       params.Tx,
		ledger:   params.Ledger,
		verifier: params.Verifier,
		outbox:   params.Outbox,
		treasury: treasury,
		payer:    params.RequirePayerMatch,
		metrics:  params.Metrics,
		logg:     params.Logger,
		clock:    clock,
	}, nil
}

func (s *service) Settle(ctx context.Context, input SettleInput) (*SettleResult, error) {
	ref, err := address.NormalizeTxHash(input.PaymentRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment reference")
	}
	wallet, err := address.Normalize(input.Wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	sku := normalizeSKU(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.AmountUSDC.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(s.logg.WithWallet(ctx, wallet), map[string]any{"payment_ref": ref, "sku": sku})
	}

	if err := s.verify(ctx, ref, wallet); err != nil {
		s.metrics.IncSettlement(metrics.ResultRejected)
		return nil, err
	}

	var result *SettleResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)

		entry, err := repo.LockEntry(ctx, wallet)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "lock ledger entry")
		}

		credits := CreditsFor(sku)
		var bonus int64
		if credits > 0 {
			bonus = PurchaseBonusPoints
		}
		now := s.clock().UTC()
		order := &models.Order{
			ID:           ref,
			Wallet:       wallet,
			SKU:          sku,
			AmountUSDC:   input.AmountUSDC,
			CreditsAdded: credits,
			PointsAdded:  bonus,
			Status:       enums.OrderStatusCompleted,
			CompletedAt:  now,
		}
		inserted, err := repo.InsertOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert order")
		}
		if !inserted {
			existing, err := repo.FindOrder(ctx, ref)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load settled order")
			}
			if !address.Equal(existing.Wallet, wallet) {
				return pkgerrors.New(pkgerrors.CodeVerification, "payment reference settled for another wallet")
			}
			result = &SettleResult{
				Success:        true,
				AlreadySettled: true,
				Reason:         enums.ReasonAlreadySettled,
				Order:          existing,
				Balance:        balanceOf(entry),
			}
			return nil
		}

		if err := ledger.ApplyCredits(entry, credits, bonus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply credits")
		}
		if err := repo.SaveEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save ledger entry")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   ref,
			Actor:         &outbox.Actor{Wallet: wallet},
			Data: payloads.PaymentSettledEvent{
				PaymentRef:   ref,
				Wallet:       wallet,
				SKU:          sku,
				AmountUSDC:   input.AmountUSDC,
				CreditsAdded: credits,
				PointsAdded:  bonus,
				SettledAt:    now,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "emit settlement event")
		}

		result = &SettleResult{
			Success:      true,
			CreditsAdded: credits,
			PointsAdded:  bonus,
			Order:        order,
			Balance:      balanceOf(entry),
		}
		return nil
	})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeVerification) {
			s.metrics.IncSettlement(metrics.ResultRejected)
			return nil, err
		}
		s.metrics.IncSettlement(metrics.ResultFailed)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "settlement transaction")
		}
		return nil, err
	}

	if result.AlreadySettled {
		s.metrics.IncSettlement(metrics.ResultAlreadySettled)
		if s.logg != nil {
			s.logg.Info(logCtx, "payment already settled")
		}
		return result, nil
	}
	s.metrics.IncSettlement(metrics.ResultSettled)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(logCtx, "credits_added", result.CreditsAdded), "payment settled")
	}
	return result, nil
}

// verify fails closed: transport errors and timeouts reject the payment.
func (s *service) verify(ctx context.Context, ref, wallet string) error {
	started := time.Now()
	receipt, err := s.verifier.Verify(ctx, ref)
	outcome := "ok"
	defer func() {
		s.metrics.ObserveVerification(outcome, time.Since(started))
	}()

	switch {
	case err != nil:
		outcome = "error"
		return pkgerrors.Wrap(pkgerrors.CodeVerification, err, "payment source unavailable")
	case receipt == nil || !receipt.Exists:
		outcome = "not_found"
		return pkgerrors.New(pkgerrors.CodeVerification, "transaction not found")
	case !receipt.StatusOK:
		outcome = "reverted"
		return pkgerrors.New(pkgerrors.CodeVerification, "transaction failed")
	case s.treasury != "" && !address.Equal(receipt.To, s.treasury):
		outcome = "wrong_recipient"
		return pkgerrors.New(pkgerrors.CodeVerification, "transaction recipient mismatch")
	case s.payer && !address.Equal(receipt.From, wallet):
		outcome = "wrong_payer"
		return pkgerrors.New(pkgerrors.CodeVerification, "transaction sender mismatch")
	}
	return nil
}

func balanceOf(entry *models.LedgerEntry) *ledger.Balance {
	return &ledger.Balance{
		Wallet:      entry.Wallet,
		PointsTotal: entry.PointsTotal,
		SpinCredits: entry.SpinCredits,
		LastSpinAt:  entry.LastSpinAt,
	}
}
