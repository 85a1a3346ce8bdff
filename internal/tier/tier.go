package tier

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is a purchasable loyalty package. Master data, read-only here.
type Tier struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	HospitalID          uuid.UUID       `gorm:"type:uuid;not null" json:"hospital_id"`
	Name                string          `gorm:"not null" json:"name"`
	MinPaymentAmount    decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"min_payment_amount"`
	TotalPointsCredited int64           `gorm:"not null" json:"total_points_credited"`
	ValidityMonths      int             `gorm:"not null;default:12" json:"validity_months"`
	DiscountPercent     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percent"`
	IsActive            bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (Tier) TableName() string {
	return "wallet_tiers"
}
