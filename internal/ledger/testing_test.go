package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medipoint/loyalty-wallet/internal/wallet"
)

// memRepo is an in-memory Repository for posting tests.
type memRepo struct {
	accounts  []ChartAccount
	glTxs     []GLTransaction
	arEntries []ARSubledgerEntry
	walletTxs map[uuid.UUID]wallet.WalletTransaction
	wallets   map[uuid.UUID]wallet.Wallet
}

func newMemRepo() *memRepo {
	return &memRepo{
		walletTxs: make(map[uuid.UUID]wallet.WalletTransaction),
		wallets:   make(map[uuid.UUID]wallet.Wallet),
	}
}

func (m *memRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *memRepo) AccountByNumber(ctx context.Context, hospitalID uuid.UUID, number string) (*ChartAccount, error) {
	for _, a := range m.accounts {
		if a.HospitalID == hospitalID && a.AccountNumber == number && a.IsActive {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memRepo) AccountByNamePattern(ctx context.Context, hospitalID uuid.UUID, pattern string, accountType AccountType) (*ChartAccount, error) {
	for _, a := range m.accounts {
		if a.HospitalID == hospitalID && a.Type == accountType && a.IsActive &&
			strings.Contains(strings.ToLower(a.Name), strings.ToLower(pattern)) {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memRepo) CreateGLTransaction(ctx context.Context, tx *GLTransaction) error {
	m.glTxs = append(m.glTxs, *tx)
	return nil
}

func (m *memRepo) CreateAREntry(ctx context.Context, entry *ARSubledgerEntry) error {
	m.arEntries = append(m.arEntries, *entry)
	return nil
}

func (m *memRepo) WalletTransaction(ctx context.Context, txID uuid.UUID) (*wallet.WalletTransaction, error) {
	tx, ok := m.walletTxs[txID]
	if !ok {
		return nil, wallet.ErrTransactionNotFound
	}
	cp := tx
	return &cp, nil
}

func (m *memRepo) Wallet(ctx context.Context, walletID uuid.UUID) (*wallet.Wallet, error) {
	w, ok := m.wallets[walletID]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	cp := w
	return &cp, nil
}

func (m *memRepo) SetJournalEntry(ctx context.Context, walletTxID, glTransactionID uuid.UUID) error {
	tx, ok := m.walletTxs[walletTxID]
	if !ok {
		return wallet.ErrTransactionNotFound
	}
	tx.JournalEntryID = &glTransactionID
	m.walletTxs[walletTxID] = tx
	return nil
}
