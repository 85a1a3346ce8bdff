package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletActive WalletStatus = "ACTIVE"
	WalletClosed WalletStatus = "CLOSED"
)

type TransactionType string

const (
	TransactionLoad          TransactionType = "LOAD"
	TransactionRedeem        TransactionType = "REDEEM"
	TransactionRefundService TransactionType = "REFUND_SERVICE"
	TransactionRefundWallet  TransactionType = "REFUND_WALLET"
	TransactionExpire        TransactionType = "EXPIRE"
)

type TierChangeType string

const (
	TierChangeNew     TierChangeType = "NEW"
	TierChangeUpgrade TierChangeType = "UPGRADE"
)

// Wallet holds loyalty points for one patient at one hospital.
// Points carry a 1:1 monetary value. Version guards concurrent updates:
// every write is a compare-and-swap on it.
type Wallet struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	PatientID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_wallet_patient_hospital,unique" json:"patient_id"`
	HospitalID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_wallet_patient_hospital,unique" json:"hospital_id"`
	PointsBalance       int64           `gorm:"not null;default:0" json:"points_balance"`
	PointsValue         decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"points_value"`
	Status              WalletStatus    `gorm:"not null;default:ACTIVE" json:"status"`
	CurrentTierID       *uuid.UUID      `gorm:"type:uuid" json:"current_tier_id,omitempty"`
	TotalAmountLoaded   decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"total_amount_loaded"`
	TotalPointsLoaded   int64           `gorm:"not null;default:0" json:"total_points_loaded"`
	TotalPointsRedeemed int64           `gorm:"not null;default:0" json:"total_points_redeemed"`
	TotalBonusPoints    int64           `gorm:"not null;default:0" json:"total_bonus_points"`
	Version             int64           `gorm:"not null;default:0" json:"-"`
	ClosedAt            *time.Time      `json:"closed_at,omitempty"`
	ClosedBy            *string         `json:"closed_by,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "patient_wallets"
}

// PointsBatch is one lot of points sharing a load date and expiry date.
// SequenceNo is strictly increasing per wallet and defines redemption order.
// At all times PointsLoaded == PointsRemaining + PointsRedeemed + PointsExpired.
type PointsBatch struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	WalletID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"wallet_id"`
	LoadTransactionID uuid.UUID  `gorm:"type:uuid;not null" json:"load_transaction_id"`
	PointsLoaded      int64      `gorm:"not null" json:"points_loaded"`
	PointsRemaining   int64      `gorm:"not null" json:"points_remaining"`
	PointsRedeemed    int64      `gorm:"not null;default:0" json:"points_redeemed"`
	PointsExpired     int64      `gorm:"not null;default:0" json:"points_expired"`
	LoadDate          time.Time  `gorm:"not null" json:"load_date"`
	ExpiryDate        time.Time  `gorm:"not null" json:"expiry_date"`
	IsExpired         bool       `gorm:"not null;default:false" json:"is_expired"`
	ExpiredAt         *time.Time `json:"expired_at,omitempty"`
	SequenceNo        int64      `gorm:"not null;index:idx_batch_wallet_seq,unique" json:"sequence_no"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (PointsBatch) TableName() string {
	return "wallet_points_batches"
}

// WalletTransaction is the append-only log of wallet-affecting events.
// Rows are never updated after creation except for JournalEntryID, which is
// written back once the GL posting succeeds.
type WalletTransaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	WalletID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"wallet_id"`
	Type          TransactionType `gorm:"column:transaction_type;not null" json:"transaction_type"`
	BalanceBefore int64           `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64           `gorm:"not null" json:"balance_after"`

	// load / upgrade
	AmountPaid        *decimal.Decimal `gorm:"type:numeric(20,4)" json:"amount_paid,omitempty"`
	BasePoints        int64            `gorm:"not null;default:0" json:"base_points"`
	BonusPoints       int64            `gorm:"not null;default:0" json:"bonus_points"`
	TotalPointsLoaded int64            `gorm:"not null;default:0" json:"total_points_loaded"`
	ExpiryDate        *time.Time       `json:"expiry_date,omitempty"`
	PaymentMode       *string          `json:"payment_mode,omitempty"`
	Reference         *string          `json:"reference,omitempty"`

	// redeem
	PointsRedeemed  int64            `gorm:"not null;default:0" json:"points_redeemed"`
	RedemptionValue *decimal.Decimal `gorm:"type:numeric(20,4)" json:"redemption_value,omitempty"`
	InvoiceID       *uuid.UUID       `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	InvoiceNumber   *string          `json:"invoice_number,omitempty"`

	// refund_service
	PointsCreditedBack    int64      `gorm:"not null;default:0" json:"points_credited_back"`
	RefundReason          *string    `json:"refund_reason,omitempty"`
	OriginalTransactionID *uuid.UUID `gorm:"type:uuid" json:"original_transaction_id,omitempty"`

	// refund_wallet (closure)
	WalletClosureAmount *decimal.Decimal `gorm:"type:numeric(20,4)" json:"wallet_closure_amount,omitempty"`
	PointsForfeited     int64            `gorm:"not null;default:0" json:"points_forfeited"`

	// expire
	PointsExpired int64 `gorm:"not null;default:0" json:"points_expired"`

	JournalEntryID *uuid.UUID `gorm:"type:uuid" json:"journal_entry_id,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// TierHistory records every tier assignment on a wallet.
type TierHistory struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	WalletID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"wallet_id"`
	ChangeType     TierChangeType  `gorm:"not null" json:"change_type"`
	PreviousTierID *uuid.UUID      `gorm:"type:uuid" json:"previous_tier_id,omitempty"`
	TierID         uuid.UUID       `gorm:"type:uuid;not null" json:"tier_id"`
	AmountPaid     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount_paid"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (TierHistory) TableName() string {
	return "wallet_tier_history"
}
