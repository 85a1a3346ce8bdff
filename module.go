// Package loyaltywallet wires the patient loyalty wallet and its ledger
// integration into one unit the billing flow can depend on. Callers take
// the WalletOperations contract at startup instead of resolving services
// at runtime.
package loyaltywallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medipoint/loyalty-wallet/internal/ledger"
	"github.com/medipoint/loyalty-wallet/internal/tier"
	"github.com/medipoint/loyalty-wallet/internal/wallet"
	"github.com/medipoint/loyalty-wallet/pkg/config"
	"github.com/medipoint/loyalty-wallet/pkg/database"
	"github.com/medipoint/loyalty-wallet/pkg/events"
)

// WalletOperations is the contract exposed to the billing/checkout flow.
type WalletOperations interface {
	GetOrCreateWallet(ctx context.Context, patientID, hospitalID uuid.UUID, actor string) (*wallet.Wallet, error)
	LoadTier(ctx context.Context, patientID, hospitalID, tierID uuid.UUID, amountPaid decimal.Decimal, paymentMode, reference, actor string) (*wallet.LoadResult, error)
	UpgradeTier(ctx context.Context, patientID, hospitalID, newTierID uuid.UUID, amountPaid decimal.Decimal, paymentMode, reference, actor string) (*wallet.UpgradeResult, error)
	GetAvailableBalance(ctx context.Context, patientID, hospitalID uuid.UUID) (*wallet.BalanceView, error)
	ValidateRedemption(ctx context.Context, patientID uuid.UUID, points int64, hospitalID uuid.UUID) (*wallet.RedemptionCheck, error)
	RedeemPoints(ctx context.Context, patientID, hospitalID uuid.UUID, points int64, invoiceID *uuid.UUID, invoiceNumber, actor string) (uuid.UUID, error)
	RefundService(ctx context.Context, invoiceID uuid.UUID, points int64, reason, actor string) (*wallet.RefundResult, error)
	CloseWallet(ctx context.Context, patientID, hospitalID uuid.UUID, reason, actor string) (*wallet.ClosureResult, error)
	ExpirePointsBatch(ctx context.Context, batchID uuid.UUID, actor string) (*wallet.ExpiryResult, error)
	GetTierDiscount(ctx context.Context, patientID, hospitalID uuid.UUID) (decimal.Decimal, error)
	GetWalletSummary(ctx context.Context, patientID, hospitalID uuid.UUID) (*wallet.Summary, error)
}

var _ WalletOperations = (*wallet.Service)(nil)

// Module holds the assembled wallet subsystem.
type Module struct {
	Wallets WalletOperations
	Posting *ledger.PostingService
	Tiers   tier.Repository

	worker *ledger.PostingWorker
}

// New connects the datastore and posting queue and assembles the module.
func New(cfg config.Config) *Module {
	database.Connect(cfg.DBUrl)
	redisClient := events.NewRedisClient(cfg)

	walletRepo := wallet.NewRepository(database.DB)
	tierRepo := tier.NewRepository(database.DB)
	ledgerRepo := ledger.NewRepository(database.DB)

	resolver := ledger.NewAccountResolver(ledgerRepo, cfg)
	posting := ledger.NewPostingService(ledgerRepo, resolver)

	return &Module{
		Wallets: wallet.NewService(walletRepo, tierRepo, redisClient, cfg),
		Posting: posting,
		Tiers:   tierRepo,
		worker:  ledger.NewPostingWorker(posting, redisClient),
	}
}

// StartPostingWorker begins draining deferred GL posting jobs.
func (m *Module) StartPostingWorker() {
	m.worker.Start()
}
