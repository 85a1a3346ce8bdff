package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medipoint/loyalty-wallet/internal/wallet"
	"github.com/medipoint/loyalty-wallet/pkg/id"
	"github.com/medipoint/loyalty-wallet/pkg/logger"
)

// PostingResult reports the outcome of one GL posting attempt. Account
// configuration problems and zero amounts come back as Success=false with a
// message; only datastore failures surface as errors.
type PostingResult struct {
	Success         bool            `json:"success"`
	GLTransactionID *uuid.UUID      `json:"gl_transaction_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Message         string          `json:"message,omitempty"`
}

// PostingService turns committed wallet transactions into balanced GL
// journals. Posting is idempotent per wallet transaction: a transaction
// that already carries a journal id is skipped, so retries are safe.
type PostingService struct {
	repo     Repository
	resolver *AccountResolver
}

func NewPostingService(repo Repository, resolver *AccountResolver) *PostingService {
	return &PostingService{repo: repo, resolver: resolver}
}

// PostWalletTransaction dispatches on the wallet transaction type.
func (p *PostingService) PostWalletTransaction(ctx context.Context, walletTxID uuid.UUID, actor string) (*PostingResult, error) {
	tx, err := p.repo.WalletTransaction(ctx, walletTxID)
	if err != nil {
		return nil, err
	}

	switch tx.Type {
	case wallet.TransactionLoad:
		return p.PostLoad(ctx, walletTxID, actor)
	case wallet.TransactionRedeem:
		return p.PostRedemption(ctx, walletTxID, actor)
	case wallet.TransactionRefundService:
		return p.PostRefund(ctx, walletTxID, actor)
	case wallet.TransactionRefundWallet:
		return p.PostClosure(ctx, walletTxID, actor)
	case wallet.TransactionExpire:
		return p.PostExpiry(ctx, walletTxID, actor)
	default:
		return &PostingResult{Success: false, Message: fmt.Sprintf("unknown transaction type %s", tx.Type)}, nil
	}
}

// PostLoad records a tier purchase: debit cash, credit wallet liability.
func (p *PostingService) PostLoad(ctx context.Context, walletTxID uuid.UUID, actor string) (*PostingResult, error) {
	return p.post(ctx, walletTxID, actor, wallet.TransactionLoad, func(tx *wallet.WalletTransaction) decimal.Decimal {
		if tx.AmountPaid == nil {
			return decimal.Zero
		}
		return *tx.AmountPaid
	}, func(a *WalletAccounts, amount decimal.Decimal, narr string) ([]GLEntry, string) {
		if a.Cash == nil {
			return nil, "cash account not configured"
		}
		return []GLEntry{
			debit(a.Cash.ID, amount, narr),
			credit(a.Liability.ID, amount, narr),
		}, ""
	}, "wallet tier load")
}

// PostRedemption records spending points: debit wallet liability, credit
// revenue, and a WALLET payment in the AR subledger when an invoice is
// attached.
func (p *PostingService) PostRedemption(ctx context.Context, walletTxID uuid.UUID, actor string) (*PostingResult, error) {
	return p.post(ctx, walletTxID, actor, wallet.TransactionRedeem, func(tx *wallet.WalletTransaction) decimal.Decimal {
		if tx.RedemptionValue == nil {
			return decimal.Zero
		}
		return *tx.RedemptionValue
	}, func(a *WalletAccounts, amount decimal.Decimal, narr string) ([]GLEntry, string) {
		if a.Revenue == nil {
			return nil, "revenue account not configured"
		}
		return []GLEntry{
			debit(a.Liability.ID, amount, narr),
			credit(a.Revenue.ID, amount, narr),
		}, ""
	}, "wallet points redemption")
}

// PostRefund reverses the redeemed portion: debit revenue, credit wallet
// liability.
func (p *PostingService) PostRefund(ctx context.Context, walletTxID uuid.UUID, actor string) (*PostingResult, error) {
	return p.post(ctx, walletTxID, actor, wallet.TransactionRefundService, func(tx *wallet.WalletTransaction) decimal.Decimal {
		return decimal.NewFromInt(tx.PointsCreditedBack)
	}, func(a *WalletAccounts, amount decimal.Decimal, narr string) ([]GLEntry, string) {
		if a.Revenue == nil {
			return nil, "revenue account not configured"
		}
		return []GLEntry{
			debit(a.Revenue.ID, amount, narr),
			credit(a.Liability.ID, amount, narr),
		}, ""
	}, "wallet service refund")
}

// PostClosure records the wallet closure cash refund: debit wallet
// liability, credit cash.
func (p *PostingService) PostClosure(ctx context.Context, walletTxID uuid.UUID, actor string) (*PostingResult, error) {
	return p.post(ctx, walletTxID, actor, wallet.TransactionRefundWallet, func(tx *wallet.WalletTransaction) decimal.Decimal {
		if tx.WalletClosureAmount == nil {
			return decimal.Zero
		}
		return *tx.WalletClosureAmount
	}, func(a *WalletAccounts, amount decimal.Decimal, narr string) ([]GLEntry, string) {
		if a.Cash == nil {
			return nil, "cash account not configured"
		}
		return []GLEntry{
			debit(a.Liability.ID, amount, narr),
			credit(a.Cash.ID, amount, narr),
		}, ""
	}, "wallet closure refund")
}

// PostExpiry recognises expired points as revenue: debit wallet liability,
// credit revenue.
func (p *PostingService) PostExpiry(ctx context.Context, walletTxID uuid.UUID, actor string) (*PostingResult, error) {
	return p.post(ctx, walletTxID, actor, wallet.TransactionExpire, func(tx *wallet.WalletTransaction) decimal.Decimal {
		return decimal.NewFromInt(tx.PointsExpired)
	}, func(a *WalletAccounts, amount decimal.Decimal, narr string) ([]GLEntry, string) {
		if a.Revenue == nil {
			return nil, "revenue account not configured"
		}
		return []GLEntry{
			debit(a.Liability.ID, amount, narr),
			credit(a.Revenue.ID, amount, narr),
		}, ""
	}, "wallet points expiry")
}

type amountFn func(tx *wallet.WalletTransaction) decimal.Decimal
type entriesFn func(a *WalletAccounts, amount decimal.Decimal, narration string) ([]GLEntry, string)

func (p *PostingService) post(ctx context.Context, walletTxID uuid.UUID, actor string, wantType wallet.TransactionType, amountOf amountFn, build entriesFn, narration string) (*PostingResult, error) {
	tx, err := p.repo.WalletTransaction(ctx, walletTxID)
	if err != nil {
		return nil, err
	}
	if tx.Type != wantType {
		return &PostingResult{Success: false,
			Message: fmt.Sprintf("transaction %s is %s, expected %s", walletTxID, tx.Type, wantType)}, nil
	}
	if tx.JournalEntryID != nil {
		return &PostingResult{
			Success:         true,
			GLTransactionID: tx.JournalEntryID,
			Amount:          amountOf(tx),
			Message:         "already posted",
		}, nil
	}

	amount := amountOf(tx)
	if amount.IsZero() || amount.IsNegative() {
		return &PostingResult{Success: false, Message: "zero-amount transaction, no GL entries created"}, nil
	}

	w, err := p.repo.Wallet(ctx, tx.WalletID)
	if err != nil {
		return nil, err
	}

	accounts, err := p.resolver.Resolve(ctx, w.HospitalID)
	if err != nil {
		logger.Error("GL posting account resolution failed", logger.Fields{
			"wallet_transaction_id": walletTxID.String(),
			logger.HospitalIDKey:    w.HospitalID.String(),
			logger.ErrorKey:         err.Error(),
		})
		return &PostingResult{Success: false, Message: err.Error()}, nil
	}

	entries, missing := build(accounts, amount, narration)
	if missing != "" {
		return &PostingResult{Success: false, Message: missing}, nil
	}

	glTx := &GLTransaction{
		ID:              id.Generate(),
		HospitalID:      w.HospitalID,
		TransactionDate: time.Now(),
		ReferenceType:   ReferenceWalletTransaction,
		ReferenceID:     tx.ID,
		Narration:       narration,
		TotalDebit:      amount,
		TotalCredit:     amount,
		Entries:         entries,
		CreatedBy:       actor,
	}
	for i := range glTx.Entries {
		glTx.Entries[i].GLTransactionID = glTx.ID
	}

	err = p.repo.Transaction(ctx, func(r Repository) error {
		if err := r.CreateGLTransaction(ctx, glTx); err != nil {
			return err
		}
		if tx.Type == wallet.TransactionRedeem && tx.InvoiceID != nil {
			arEntry := &ARSubledgerEntry{
				ID:          id.Generate(),
				HospitalID:  w.HospitalID,
				PatientID:   w.PatientID,
				InvoiceID:   *tx.InvoiceID,
				EntryType:   AREntryPayment,
				PaymentMode: PaymentModeWallet,
				Amount:      amount,
				ReferenceID: tx.ID,
				CreatedBy:   actor,
			}
			if tx.InvoiceNumber != nil {
				arEntry.InvoiceNumber = *tx.InvoiceNumber
			}
			if err := r.CreateAREntry(ctx, arEntry); err != nil {
				return err
			}
		}
		return r.SetJournalEntry(ctx, tx.ID, glTx.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("GL posting recorded", logger.Fields{
		"wallet_transaction_id": tx.ID.String(),
		"gl_transaction_id":     glTx.ID.String(),
		"amount":                amount.String(),
		"type":                  string(tx.Type),
	})
	return &PostingResult{Success: true, GLTransactionID: &glTx.ID, Amount: amount}, nil
}

func debit(accountID uuid.UUID, amount decimal.Decimal, description string) GLEntry {
	return GLEntry{
		ID:          id.Generate(),
		AccountID:   accountID,
		DebitAmount: amount,
		Description: description,
	}
}

func credit(accountID uuid.UUID, amount decimal.Decimal, description string) GLEntry {
	return GLEntry{
		ID:           id.Generate(),
		AccountID:    accountID,
		CreditAmount: amount,
		Description:  description,
	}
}
