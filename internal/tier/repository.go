package tier

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTierNotFound = errors.New("tier not found")

type Repository interface {
	GetTier(ctx context.Context, tierID uuid.UUID) (*Tier, error)
	ListActiveTiers(ctx context.Context, hospitalID uuid.UUID) ([]Tier, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetTier(ctx context.Context, tierID uuid.UUID) (*Tier, error) {
	var t Tier
	if err := r.db.WithContext(ctx).Where("id = ?", tierID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) ListActiveTiers(ctx context.Context, hospitalID uuid.UUID) ([]Tier, error) {
	var tiers []Tier
	err := r.db.WithContext(ctx).
		Where("hospital_id = ? AND is_active = true", hospitalID).
		Order("min_payment_amount asc").
		Find(&tiers).Error
	return tiers, err
}
