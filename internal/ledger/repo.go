package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	"github.com/crispyspin/crispyspin-backend/pkg/pagination"
)

// Repository owns LedgerEntry, SpinRecord and Order persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockEntry(ctx context.Context, wallet string) (*models.LedgerEntry, error)
	FindEntry(ctx context.Context, wallet string) (*models.LedgerEntry, error)
	SaveEntry(ctx context.Context, entry *models.LedgerEntry) error
	AppendSpin(ctx context.Context, record *models.SpinRecord) error
	ListSpins(ctx context.Context, wallet string, params pagination.Params) ([]models.SpinRecord, string, error)
	InsertOrder(ctx context.Context, order *models.Order) (bool, error)
	FindOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, wallet string, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockEntry creates the wallet's entry if missing and returns it under a row
// lock held until the surrounding transaction ends.
func (r *repository) LockEntry(ctx context.Context, wallet string) (*models.LedgerEntry, error) {
	seed := &models.LedgerEntry{Wallet: wallet}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "wallet"}}, DoNothing: true}).
		Create(seed).Error; err != nil {
		return nil, err
	}

	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("wallet = ?", wallet).
		Take(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindEntry returns nil without error when the wallet has no entry yet.
func (r *repository) FindEntry(ctx context.Context, wallet string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Where("wallet = ?", wallet).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) SaveEntry(ctx context.Context, entry *models.LedgerEntry) error {
	result := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("wallet = ?", entry.Wallet).
		Updates(map[string]any{
			"points_total": entry.PointsTotal,
			"last_spin_at": entry.LastSpinAt,
			"spin_credits": entry.SpinCredits,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AppendSpin(ctx context.Context, record *models.SpinRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListSpins pages newest first and returns the cursor for the next page, or
// an empty cursor on the last page.
func (r *repository) ListSpins(ctx context.Context, wallet string, params pagination.Params) ([]models.SpinRecord, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).Where("wallet = ?", wallet)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []models.SpinRecord
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&records).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return records, next, nil
}

// InsertOrder reports false when an order with the same payment reference
// already exists.
func (r *repository) InsertOrder(ctx context.Context, order *models.Order) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(order)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, wallet string, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("completed_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
