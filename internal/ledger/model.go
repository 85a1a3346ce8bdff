package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountRevenue   AccountType = "REVENUE"
	AccountExpense   AccountType = "EXPENSE"
)

// ChartAccount is one entry in a hospital's chart of accounts.
type ChartAccount struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	HospitalID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_account_hospital_number,unique" json:"hospital_id"`
	AccountNumber string      `gorm:"not null;index:idx_account_hospital_number,unique" json:"account_number"`
	Name          string      `gorm:"not null" json:"name"`
	Type          AccountType `gorm:"column:account_type;not null" json:"account_type"`
	IsActive      bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (ChartAccount) TableName() string {
	return "chart_of_accounts"
}

// GLTransaction is one balanced journal. TotalDebit always equals
// TotalCredit; ReferenceID links back to the wallet transaction it reflects.
type GLTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	HospitalID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"hospital_id"`
	TransactionDate time.Time       `gorm:"not null" json:"transaction_date"`
	ReferenceType   string          `gorm:"not null" json:"reference_type"`
	ReferenceID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"reference_id"`
	Narration       string          `json:"narration"`
	TotalDebit      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_debit"`
	TotalCredit     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_credit"`
	Entries         []GLEntry       `gorm:"foreignKey:GLTransactionID" json:"entries"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (GLTransaction) TableName() string {
	return "gl_transactions"
}

// GLEntry is one account line of a journal. Exactly one of DebitAmount and
// CreditAmount is non-zero.
type GLEntry struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	GLTransactionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"gl_transaction_id"`
	AccountID       uuid.UUID       `gorm:"type:uuid;not null" json:"account_id"`
	DebitAmount     decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"debit_amount"`
	CreditAmount    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"credit_amount"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (GLEntry) TableName() string {
	return "gl_entries"
}

const (
	AREntryPayment    = "PAYMENT"
	PaymentModeWallet = "WALLET"

	ReferenceWalletTransaction = "wallet_transaction"
)

// ARSubledgerEntry reduces a patient's receivable balance. Wallet
// redemptions applied to an invoice post here as WALLET payments.
type ARSubledgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	HospitalID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"hospital_id"`
	PatientID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"patient_id"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	EntryType     string          `gorm:"not null" json:"entry_type"`
	PaymentMode   string          `gorm:"not null" json:"payment_mode"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	ReferenceID   uuid.UUID       `gorm:"type:uuid;not null" json:"reference_id"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (ARSubledgerEntry) TableName() string {
	return "ar_subledger_entries"
}
