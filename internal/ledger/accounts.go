package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medipoint/loyalty-wallet/pkg/config"
)

// WalletAccounts are the chart-of-accounts entries wallet postings touch.
// Liability is always present; Cash and Revenue may be nil when the tenant
// has not configured them, and each posting type checks the ones it needs.
type WalletAccounts struct {
	Liability *ChartAccount
	Cash      *ChartAccount
	Revenue   *ChartAccount
}

// AccountResolver finds the fixed wallet posting accounts for a tenant.
type AccountResolver struct {
	repo Repository
	cfg  config.Config
}

func NewAccountResolver(repo Repository, cfg config.Config) *AccountResolver {
	return &AccountResolver{repo: repo, cfg: cfg}
}

// Resolve looks the three accounts up by their convention numbers. The
// wallet liability account is mandatory and its absence is an error; cash
// falls back to a name match on asset accounts.
func (ar *AccountResolver) Resolve(ctx context.Context, hospitalID uuid.UUID) (*WalletAccounts, error) {
	liability, err := ar.repo.AccountByNumber(ctx, hospitalID, ar.cfg.LiabilityAccountNo)
	if err == ErrAccountNotFound {
		return nil, fmt.Errorf("wallet liability account %s not configured for hospital %s",
			ar.cfg.LiabilityAccountNo, hospitalID)
	}
	if err != nil {
		return nil, err
	}

	accounts := &WalletAccounts{Liability: liability}

	cash, err := ar.repo.AccountByNumber(ctx, hospitalID, ar.cfg.CashAccountNo)
	if err == ErrAccountNotFound {
		cash, err = ar.repo.AccountByNamePattern(ctx, hospitalID, "cash", AccountAsset)
	}
	if err != nil && err != ErrAccountNotFound {
		return nil, err
	}
	if err == nil {
		accounts.Cash = cash
	}

	revenue, err := ar.repo.AccountByNumber(ctx, hospitalID, ar.cfg.RevenueAccountNo)
	if err != nil && err != ErrAccountNotFound {
		return nil, err
	}
	if err == nil {
		accounts.Revenue = revenue
	}

	return accounts, nil
}
