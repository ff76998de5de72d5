package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/crispyspin/crispyspin-backend/pkg/address"
	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
)

// Balance is the public view of a wallet's ledger entry.
type Balance struct {
	Wallet      string     `json:"wallet"`
	PointsTotal int64      `json:"pointsTotal"`
	SpinCredits int64      `json:"spinCredits"`
	LastSpinAt  *time.Time `json:"lastSpinAt"`
}

// Service exposes read access to wallet balances and orders.
type Service interface {
	Balance(ctx context.Context, wallet string) (*Balance, error)
	Orders(ctx context.Context, wallet string, limit int) ([]models.Order, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Balance returns a zero-valued balance for wallets that never interacted.
func (s *service) Balance(ctx context.Context, wallet string) (*Balance, error) {
	normalized, err := address.Normalize(wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	entry, err := s.repo.FindEntry(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load ledger entry")
	}
	if entry == nil {
		return &Balance{Wallet: normalized}, nil
	}
	return &Balance{
		Wallet:      entry.Wallet,
		PointsTotal: entry.PointsTotal,
		SpinCredits: entry.SpinCredits,
		LastSpinAt:  entry.LastSpinAt,
	}, nil
}

func (s *service) Orders(ctx context.Context, wallet string, limit int) ([]models.Order, error) {
	normalized, err := address.Normalize(wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	orders, err := s.repo.ListOrders(ctx, normalized, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list orders")
	}
	return orders, nil
}
