package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Transaction runs fn against a repository bound to one database
	// transaction. Any error from fn rolls the whole unit of work back.
	Transaction(ctx context.Context, fn func(Repository) error) error

	GetWallet(ctx context.Context, patientID, hospitalID uuid.UUID) (*Wallet, error)
	GetWalletByID(ctx context.Context, walletID uuid.UUID) (*Wallet, error)
	CreateWallet(ctx context.Context, w *Wallet) error
	UpdateWallet(ctx context.Context, w *Wallet) error

	NextSequenceNo(ctx context.Context, walletID uuid.UUID) (int64, error)
	CreateBatch(ctx context.Context, b *PointsBatch) error
	UpdateBatch(ctx context.Context, b *PointsBatch) error
	GetBatch(ctx context.Context, batchID uuid.UUID) (*PointsBatch, error)
	ActiveBatches(ctx context.Context, walletID uuid.UUID) ([]PointsBatch, error)
	ExpirableBatches(ctx context.Context, walletID uuid.UUID) ([]PointsBatch, error)

	CreateTransaction(ctx context.Context, tx *WalletTransaction) error
	LatestRedemptionForInvoice(ctx context.Context, invoiceID uuid.UUID) (*WalletTransaction, error)
	RecentTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]WalletTransaction, error)

	CreateTierHistory(ctx context.Context, h *TierHistory) error
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

func (r *repository) GetWallet(ctx context.Context, patientID, hospitalID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND hospital_id = ?", patientID, hospitalID).
		First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *repository) GetWalletByID(ctx context.Context, walletID uuid.UUID) (*Wallet, error) {
	var w Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", walletID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *repository) CreateWallet(ctx context.Context, w *Wallet) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// UpdateWallet is a compare-and-swap on the wallet version. A concurrent
// writer bumping the version first surfaces as ErrConflict, never as a
// silent lost update.
func (r *repository) UpdateWallet(ctx context.Context, w *Wallet) error {
	current := w.Version
	res := r.db.WithContext(ctx).Model(&Wallet{}).
		Where("id = ? AND version = ?", w.ID, current).
		Updates(map[string]interface{}{
			"points_balance":        w.PointsBalance,
			"points_value":          w.PointsValue,
			"status":                w.Status,
			"current_tier_id":       w.CurrentTierID,
			"total_amount_loaded":   w.TotalAmountLoaded,
			"total_points_loaded":   w.TotalPointsLoaded,
			"total_points_redeemed": w.TotalPointsRedeemed,
			"total_bonus_points":    w.TotalBonusPoints,
			"closed_at":             w.ClosedAt,
			"closed_by":             w.ClosedBy,
			"version":               current + 1,
			"updated_at":            time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	w.Version = current + 1
	return nil
}

func (r *repository) NextSequenceNo(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&PointsBatch{}).
		Where("wallet_id = ?", walletID).
		Select("COALESCE(MAX(sequence_no), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *repository) CreateBatch(ctx context.Context, b *PointsBatch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *repository) UpdateBatch(ctx context.Context, b *PointsBatch) error {
	return r.db.WithContext(ctx).Model(&PointsBatch{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"points_remaining": b.PointsRemaining,
			"points_redeemed":  b.PointsRedeemed,
			"points_expired":   b.PointsExpired,
			"is_expired":       b.IsExpired,
			"expired_at":       b.ExpiredAt,
			"updated_at":       time.Now(),
		}).Error
}

func (r *repository) GetBatch(ctx context.Context, batchID uuid.UUID) (*PointsBatch, error) {
	var b PointsBatch
	if err := r.db.WithContext(ctx).Where("id = ?", batchID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ActiveBatches returns consumable batches in FIFO order.
func (r *repository) ActiveBatches(ctx context.Context, walletID uuid.UUID) ([]PointsBatch, error) {
	var batches []PointsBatch
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND is_expired = false AND points_remaining > 0", walletID).
		Order("sequence_no asc").
		Find(&batches).Error
	return batches, err
}

// ExpirableBatches returns every batch not yet marked expired, including
// fully drained ones, in FIFO order.
func (r *repository) ExpirableBatches(ctx context.Context, walletID uuid.UUID) ([]PointsBatch, error) {
	var batches []PointsBatch
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND is_expired = false", walletID).
		Order("sequence_no asc").
		Find(&batches).Error
	return batches, err
}

func (r *repository) CreateTransaction(ctx context.Context, tx *WalletTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *repository) LatestRedemptionForInvoice(ctx context.Context, invoiceID uuid.UUID) (*WalletTransaction, error) {
	var tx WalletTransaction
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND transaction_type = ?", invoiceID, TransactionRedeem).
		Order("created_at desc").
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repository) RecentTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]WalletTransaction, error) {
	var txs []WalletTransaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at desc").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *repository) CreateTierHistory(ctx context.Context, h *TierHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}
