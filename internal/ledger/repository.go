package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medipoint/loyalty-wallet/internal/wallet"
)

var ErrAccountNotFound = errors.New("chart account not found")

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	AccountByNumber(ctx context.Context, hospitalID uuid.UUID, number string) (*ChartAccount, error)
	AccountByNamePattern(ctx context.Context, hospitalID uuid.UUID, pattern string, accountType AccountType) (*ChartAccount, error)

	CreateGLTransaction(ctx context.Context, tx *GLTransaction) error
	CreateAREntry(ctx context.Context, entry *ARSubledgerEntry) error

	WalletTransaction(ctx context.Context, txID uuid.UUID) (*wallet.WalletTransaction, error)
	Wallet(ctx context.Context, walletID uuid.UUID) (*wallet.Wallet, error)
	SetJournalEntry(ctx context.Context, walletTxID, glTransactionID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) AccountByNumber(ctx context.Context, hospitalID uuid.UUID, number string) (*ChartAccount, error) {
	var a ChartAccount
	err := r.db.WithContext(ctx).
		Where("hospital_id = ? AND account_number = ? AND is_active = true", hospitalID, number).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) AccountByNamePattern(ctx context.Context, hospitalID uuid.UUID, pattern string, accountType AccountType) (*ChartAccount, error) {
	var a ChartAccount
	err := r.db.WithContext(ctx).
		Where("hospital_id = ? AND account_type = ? AND is_active = true AND name ILIKE ?",
			hospitalID, accountType, "%"+pattern+"%").
		Order("account_number asc").
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) CreateGLTransaction(ctx context.Context, tx *GLTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *repository) CreateAREntry(ctx context.Context, entry *ARSubledgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) WalletTransaction(ctx context.Context, txID uuid.UUID) (*wallet.WalletTransaction, error) {
	var tx wallet.WalletTransaction
	if err := r.db.WithContext(ctx).Where("id = ?", txID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repository) Wallet(ctx context.Context, walletID uuid.UUID) (*wallet.Wallet, error) {
	var w wallet.Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", walletID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *repository) SetJournalEntry(ctx context.Context, walletTxID, glTransactionID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&wallet.WalletTransaction{}).
		Where("id = ?", walletTxID).
		Update("journal_entry_id", glTransactionID).Error
}
