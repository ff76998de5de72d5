package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
)

// Profile is the account view returned after sign-in.
type Profile struct {
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	MemberSince time.Time  `json:"memberSince"`
	Wallet      string     `json:"wallet"`
	ID          uuid.UUID  `json:"id"`
}

func NewProfile(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{LastLoginAt: u.LastLoginAt, MemberSince: u.CreatedAt, Wallet: u.Wallet, ID: u.ID}
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertLogin records a sign-in for wallet, creating its row the first time.
// wallet must already be normalized.
func (r *Repository) UpsertLogin(ctx context.Context, wallet string, at time.Time) (*models.User, error) {
	at = at.UTC()
	row := models.User{Wallet: wallet, LastLoginAt: &at}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet"}},
		DoUpdates: clause.Assignments(map[string]any{"last_login_at": at, "updated_at": at}),
	}
	if err := r.db.WithContext(ctx).Clauses(onConflict).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", wallet, err)
	}

	// On conflict the generated id in row is not the stored one.
	var stored models.User
	if err := r.db.WithContext(ctx).Where("wallet = ?", wallet).Take(&stored).Error; err != nil {
		return nil, fmt.Errorf("load user %s: %w", wallet, err)
	}
	return &stored, nil
}
