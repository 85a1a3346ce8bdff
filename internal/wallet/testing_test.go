package wallet

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medipoint/loyalty-wallet/internal/tier"
)

// memRepo is an in-memory Repository for service tests. Values are stored
// by copy so mutations only land through the repository methods, matching
// how the gorm implementation behaves.
type memRepo struct {
	wallets map[uuid.UUID]Wallet
	batches map[uuid.UUID]PointsBatch
	txs     []WalletTransaction
	history []TierHistory

	// afterGetWallet runs on every wallet read, used to simulate a
	// concurrent writer between read and compare-and-swap.
	afterGetWallet func(*memRepo, uuid.UUID)
}

func newMemRepo() *memRepo {
	return &memRepo{
		wallets: make(map[uuid.UUID]Wallet),
		batches: make(map[uuid.UUID]PointsBatch),
	}
}

func (m *memRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *memRepo) GetWallet(ctx context.Context, patientID, hospitalID uuid.UUID) (*Wallet, error) {
	for _, w := range m.wallets {
		if w.PatientID == patientID && w.HospitalID == hospitalID {
			cp := w
			if m.afterGetWallet != nil {
				m.afterGetWallet(m, w.ID)
			}
			return &cp, nil
		}
	}
	return nil, ErrWalletNotFound
}

func (m *memRepo) GetWalletByID(ctx context.Context, walletID uuid.UUID) (*Wallet, error) {
	w, ok := m.wallets[walletID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	cp := w
	if m.afterGetWallet != nil {
		m.afterGetWallet(m, walletID)
	}
	return &cp, nil
}

func (m *memRepo) CreateWallet(ctx context.Context, w *Wallet) error {
	m.wallets[w.ID] = *w
	return nil
}

func (m *memRepo) UpdateWallet(ctx context.Context, w *Wallet) error {
	stored, ok := m.wallets[w.ID]
	if !ok {
		return ErrWalletNotFound
	}
	if stored.Version != w.Version {
		return ErrConflict
	}
	w.Version++
	m.wallets[w.ID] = *w
	return nil
}

func (m *memRepo) NextSequenceNo(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var max int64
	for _, b := range m.batches {
		if b.WalletID == walletID && b.SequenceNo > max {
			max = b.SequenceNo
		}
	}
	return max + 1, nil
}

func (m *memRepo) CreateBatch(ctx context.Context, b *PointsBatch) error {
	m.batches[b.ID] = *b
	return nil
}

func (m *memRepo) UpdateBatch(ctx context.Context, b *PointsBatch) error {
	if _, ok := m.batches[b.ID]; !ok {
		return ErrBatchNotFound
	}
	m.batches[b.ID] = *b
	return nil
}

func (m *memRepo) GetBatch(ctx context.Context, batchID uuid.UUID) (*PointsBatch, error) {
	b, ok := m.batches[batchID]
	if !ok {
		return nil, ErrBatchNotFound
	}
	cp := b
	return &cp, nil
}

func (m *memRepo) ActiveBatches(ctx context.Context, walletID uuid.UUID) ([]PointsBatch, error) {
	var out []PointsBatch
	for _, b := range m.batches {
		if b.WalletID == walletID && !b.IsExpired && b.PointsRemaining > 0 {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNo < out[j].SequenceNo })
	return out, nil
}

func (m *memRepo) ExpirableBatches(ctx context.Context, walletID uuid.UUID) ([]PointsBatch, error) {
	var out []PointsBatch
	for _, b := range m.batches {
		if b.WalletID == walletID && !b.IsExpired {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNo < out[j].SequenceNo })
	return out, nil
}

func (m *memRepo) CreateTransaction(ctx context.Context, tx *WalletTransaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memRepo) LatestRedemptionForInvoice(ctx context.Context, invoiceID uuid.UUID) (*WalletTransaction, error) {
	for i := len(m.txs) - 1; i >= 0; i-- {
		tx := m.txs[i]
		if tx.Type == TransactionRedeem && tx.InvoiceID != nil && *tx.InvoiceID == invoiceID {
			cp := tx
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *memRepo) RecentTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]WalletTransaction, error) {
	var out []WalletTransaction
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txs[i].WalletID == walletID {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func (m *memRepo) CreateTierHistory(ctx context.Context, h *TierHistory) error {
	m.history = append(m.history, *h)
	return nil
}

func (m *memRepo) walletByPatient(patientID uuid.UUID) *Wallet {
	for _, w := range m.wallets {
		if w.PatientID == patientID {
			cp := w
			return &cp
		}
	}
	return nil
}

func (m *memRepo) batchesOf(walletID uuid.UUID) []PointsBatch {
	var out []PointsBatch
	for _, b := range m.batches {
		if b.WalletID == walletID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNo < out[j].SequenceNo })
	return out
}

func (m *memRepo) transactionsOf(walletID uuid.UUID) []WalletTransaction {
	var out []WalletTransaction
	for _, tx := range m.txs {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out
}

// racingCreateRepo loses the first wallet insert to a rival writer,
// simulating two first-touch callers hitting the unique index on
// (patient_id, hospital_id) at the same time.
type racingCreateRepo struct {
	*memRepo
	raced bool
}

func (r *racingCreateRepo) CreateWallet(ctx context.Context, w *Wallet) error {
	if !r.raced {
		r.raced = true
		rival := *w
		rival.ID = uuid.New()
		r.wallets[rival.ID] = rival
		return errors.New(`duplicate key value violates unique constraint "idx_wallet_patient_hospital"`)
	}
	return r.memRepo.CreateWallet(ctx, w)
}

// memTiers is an in-memory tier.Repository.
type memTiers struct {
	tiers map[uuid.UUID]tier.Tier
}

func newMemTiers(tiers ...tier.Tier) *memTiers {
	m := &memTiers{tiers: make(map[uuid.UUID]tier.Tier)}
	for _, t := range tiers {
		m.tiers[t.ID] = t
	}
	return m
}

func (m *memTiers) GetTier(ctx context.Context, tierID uuid.UUID) (*tier.Tier, error) {
	t, ok := m.tiers[tierID]
	if !ok {
		return nil, tier.ErrTierNotFound
	}
	cp := t
	return &cp, nil
}

func (m *memTiers) ListActiveTiers(ctx context.Context, hospitalID uuid.UUID) ([]tier.Tier, error) {
	var out []tier.Tier
	for _, t := range m.tiers {
		if t.HospitalID == hospitalID && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}
