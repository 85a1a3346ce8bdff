package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medipoint/loyalty-wallet/internal/tier"
	"github.com/medipoint/loyalty-wallet/pkg/config"
	"github.com/medipoint/loyalty-wallet/pkg/events"
	"github.com/medipoint/loyalty-wallet/pkg/id"
	"github.com/medipoint/loyalty-wallet/pkg/logger"
)

// PostingPublisher hands a committed wallet transaction to the deferred
// GL posting pipeline. Implemented by events.RedisClient.
type PostingPublisher interface {
	PublishPostingJob(ctx context.Context, job events.PostingJob) error
}

type Service struct {
	repo    Repository
	tiers   tier.Repository
	posting PostingPublisher
	cfg     config.Config
}

func NewService(repo Repository, tiers tier.Repository, posting PostingPublisher, cfg config.Config) *Service {
	return &Service{repo: repo, tiers: tiers, posting: posting, cfg: cfg}
}

type LoadResult struct {
	TransactionID       uuid.UUID       `json:"transaction_id"`
	BatchID             uuid.UUID       `json:"batch_id"`
	PointsCredited      int64           `json:"points_credited"`
	NewBalance          int64           `json:"new_balance"`
	ExpiryDate          time.Time       `json:"expiry_date"`
	TierName            string          `json:"tier_name"`
	TierDiscountPercent decimal.Decimal `json:"tier_discount_percent"`
}

type UpgradeResult struct {
	TransactionID      uuid.UUID       `json:"transaction_id"`
	PreviousTierID     uuid.UUID       `json:"previous_tier_id"`
	NewTierID          uuid.UUID       `json:"new_tier_id"`
	AdditionalPoints   int64           `json:"additional_points"`
	NewBalance         int64           `json:"new_balance"`
	NewDiscountPercent decimal.Decimal `json:"new_discount_percent"`
}

type BalanceView struct {
	PointsBalance       int64           `json:"points_balance"`
	PointsValue         decimal.Decimal `json:"points_value"`
	ExpiryDate          *time.Time      `json:"expiry_date,omitempty"`
	IsExpiringSoon      bool            `json:"is_expiring_soon"`
	IsExpired           bool            `json:"is_expired"`
	TierName            string          `json:"tier_name,omitempty"`
	TierDiscountPercent decimal.Decimal `json:"tier_discount_percent"`
}

type RedemptionCheck struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
	Available int64  `json:"available"`
}

type RefundResult struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	PointsRefunded int64     `json:"points_refunded"`
	NewBalance     int64     `json:"new_balance"`
	NewExpiryDate  time.Time `json:"new_expiry_date"`
}

type ClosureResult struct {
	TransactionID   uuid.UUID       `json:"transaction_id"`
	CashRefund      decimal.Decimal `json:"cash_refund"`
	PointsForfeited int64           `json:"points_forfeited"`
}

type ExpiryResult struct {
	Expired       bool  `json:"expired"`
	PointsExpired int64 `json:"points_expired"`
}

type Summary struct {
	Balance             BalanceView         `json:"balance"`
	Transactions        []WalletTransaction `json:"transactions"`
	ExpiringBatches     []PointsBatch       `json:"expiring_batches"`
	WalletStatus        WalletStatus        `json:"wallet_status"`
	TotalAmountLoaded   decimal.Decimal     `json:"total_amount_loaded"`
	TotalPointsLoaded   int64               `json:"total_points_loaded"`
	TotalPointsRedeemed int64               `json:"total_points_redeemed"`
}

// GetOrCreateWallet returns the patient's wallet, creating a zero-balance
// active one on first use.
func (s *Service) GetOrCreateWallet(ctx context.Context, patientID, hospitalID uuid.UUID, actor string) (*Wallet, error) {
	existing, err := s.repo.GetWallet(ctx, patientID, hospitalID)
	if err == nil {
		return existing, nil
	}
	if err != ErrWalletNotFound {
		return nil, err
	}

	w, err := s.getOrCreate(ctx, s.repo, patientID, hospitalID)
	if err != nil {
		return nil, err
	}

	logger.Info("Wallet created", logger.Fields{
		logger.WalletIDKey:   w.ID.String(),
		logger.PatientIDKey:  patientID.String(),
		logger.HospitalIDKey: hospitalID.String(),
		logger.ActorKey:      actor,
	})
	return w, nil
}

// LoadTier purchases a loyalty tier: credits the tier's points as one new
// batch and assigns the tier to the wallet.
func (s *Service) LoadTier(ctx context.Context, patientID, hospitalID, tierID uuid.UUID, amountPaid decimal.Decimal, paymentMode, reference, actor string) (*LoadResult, error) {
	t, err := s.tiers.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}

	if amountPaid.LessThan(t.MinPaymentAmount) {
		return nil, validationError("insufficient payment for tier: paid %s, minimum %s",
			amountPaid.String(), t.MinPaymentAmount.String())
	}

	basePoints := amountPaid.Floor().IntPart()
	bonusPoints := t.TotalPointsCredited - t.MinPaymentAmount.Floor().IntPart()
	if bonusPoints < 0 {
		bonusPoints = 0
	}
	totalPoints := t.TotalPointsCredited
	expiryDate := time.Now().AddDate(0, t.ValidityMonths, 0)

	var result *LoadResult
	err = s.repo.Transaction(ctx, func(r Repository) error {
		w, err := s.getOrCreate(ctx, r, patientID, hospitalID)
		if err != nil {
			return err
		}
		if w.Status == WalletClosed {
			return ErrWalletClosed
		}

		txRecord := &WalletTransaction{
			ID:                id.Generate(),
			WalletID:          w.ID,
			Type:              TransactionLoad,
			BalanceBefore:     w.PointsBalance,
			BalanceAfter:      w.PointsBalance + totalPoints,
			AmountPaid:        &amountPaid,
			BasePoints:        basePoints,
			BonusPoints:       bonusPoints,
			TotalPointsLoaded: totalPoints,
			ExpiryDate:        &expiryDate,
			PaymentMode:       strPtr(paymentMode),
			Reference:         strPtr(reference),
			CreatedBy:         actor,
		}
		if err := r.CreateTransaction(ctx, txRecord); err != nil {
			return err
		}

		seq, err := r.NextSequenceNo(ctx, w.ID)
		if err != nil {
			return err
		}
		batch := &PointsBatch{
			ID:                id.Generate(),
			WalletID:          w.ID,
			LoadTransactionID: txRecord.ID,
			PointsLoaded:      totalPoints,
			PointsRemaining:   totalPoints,
			LoadDate:          time.Now(),
			ExpiryDate:        expiryDate,
			SequenceNo:        seq,
		}
		if err := r.CreateBatch(ctx, batch); err != nil {
			return err
		}

		w.PointsBalance += totalPoints
		w.PointsValue = decimal.NewFromInt(w.PointsBalance)
		w.TotalAmountLoaded = w.TotalAmountLoaded.Add(amountPaid)
		w.TotalPointsLoaded += totalPoints
		w.TotalBonusPoints += bonusPoints
		tierRef := t.ID
		w.CurrentTierID = &tierRef
		if err := r.UpdateWallet(ctx, w); err != nil {
			return err
		}

		history := &TierHistory{
			ID:         id.Generate(),
			WalletID:   w.ID,
			ChangeType: TierChangeNew,
			TierID:     t.ID,
			AmountPaid: amountPaid,
			CreatedBy:  actor,
		}
		if err := r.CreateTierHistory(ctx, history); err != nil {
			return err
		}

		result = &LoadResult{
			TransactionID:       txRecord.ID,
			BatchID:             batch.ID,
			PointsCredited:      totalPoints,
			NewBalance:          w.PointsBalance,
			ExpiryDate:          expiryDate,
			TierName:            t.Name,
			TierDiscountPercent: t.DiscountPercent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueuePosting(ctx, result.TransactionID, TransactionLoad, hospitalID, actor)
	logger.Info("Tier loaded", logger.Fields{
		logger.PatientIDKey: patientID.String(),
		"tier":              t.Name,
		"points_credited":   totalPoints,
		"new_balance":       result.NewBalance,
	})
	return result, nil
}

// UpgradeTier moves the wallet to a strictly higher tier and credits the
// additional points as a fresh batch with the new tier's validity.
func (s *Service) UpgradeTier(ctx context.Context, patientID, hospitalID, newTierID uuid.UUID, amountPaid decimal.Decimal, paymentMode, reference, actor string) (*UpgradeResult, error) {
	newTier, err := s.tiers.GetTier(ctx, newTierID)
	if err != nil {
		return nil, err
	}

	var result *UpgradeResult
	err = s.repo.Transaction(ctx, func(r Repository) error {
		w, err := r.GetWallet(ctx, patientID, hospitalID)
		if err != nil {
			return err
		}
		if w.Status == WalletClosed {
			return ErrWalletClosed
		}
		if w.CurrentTierID == nil {
			return ErrInvalidTierUpgrade
		}

		currentTier, err := s.tiers.GetTier(ctx, *w.CurrentTierID)
		if err != nil {
			return err
		}
		if !newTier.MinPaymentAmount.GreaterThan(currentTier.MinPaymentAmount) {
			return ErrInvalidTierUpgrade
		}

		minUpgradePayment := newTier.MinPaymentAmount.Sub(currentTier.MinPaymentAmount)
		if amountPaid.LessThan(minUpgradePayment) {
			return validationError("insufficient payment for tier upgrade: paid %s, minimum %s",
				amountPaid.String(), minUpgradePayment.String())
		}

		additionalPoints := newTier.TotalPointsCredited - currentTier.TotalPointsCredited
		basePoints := amountPaid.Floor().IntPart()
		bonusPoints := additionalPoints - basePoints
		if bonusPoints < 0 {
			bonusPoints = 0
		}
		expiryDate := time.Now().AddDate(0, newTier.ValidityMonths, 0)

		txRecord := &WalletTransaction{
			ID:                id.Generate(),
			WalletID:          w.ID,
			Type:              TransactionLoad,
			BalanceBefore:     w.PointsBalance,
			BalanceAfter:      w.PointsBalance + additionalPoints,
			AmountPaid:        &amountPaid,
			BasePoints:        basePoints,
			BonusPoints:       bonusPoints,
			TotalPointsLoaded: additionalPoints,
			ExpiryDate:        &expiryDate,
			PaymentMode:       strPtr(paymentMode),
			Reference:         strPtr(reference),
			CreatedBy:         actor,
		}
		if err := r.CreateTransaction(ctx, txRecord); err != nil {
			return err
		}

		seq, err := r.NextSequenceNo(ctx, w.ID)
		if err != nil {
			return err
		}
		batch := &PointsBatch{
			ID:                id.Generate(),
			WalletID:          w.ID,
			LoadTransactionID: txRecord.ID,
			PointsLoaded:      additionalPoints,
			PointsRemaining:   additionalPoints,
			LoadDate:          time.Now(),
			ExpiryDate:        expiryDate,
			SequenceNo:        seq,
		}
		if err := r.CreateBatch(ctx, batch); err != nil {
			return err
		}

		previousTierID := *w.CurrentTierID
		w.PointsBalance += additionalPoints
		w.PointsValue = decimal.NewFromInt(w.PointsBalance)
		w.TotalAmountLoaded = w.TotalAmountLoaded.Add(amountPaid)
		w.TotalPointsLoaded += additionalPoints
		w.TotalBonusPoints += bonusPoints
		newTierRef := newTier.ID
		w.CurrentTierID = &newTierRef
		if err := r.UpdateWallet(ctx, w); err != nil {
			return err
		}

		history := &TierHistory{
			ID:             id.Generate(),
			WalletID:       w.ID,
			ChangeType:     TierChangeUpgrade,
			PreviousTierID: &previousTierID,
			TierID:         newTier.ID,
			AmountPaid:     amountPaid,
			CreatedBy:      actor,
		}
		if err := r.CreateTierHistory(ctx, history); err != nil {
			return err
		}

		result = &UpgradeResult{
			TransactionID:      txRecord.ID,
			PreviousTierID:     previousTierID,
			NewTierID:          newTier.ID,
			AdditionalPoints:   additionalPoints,
			NewBalance:         w.PointsBalance,
			NewDiscountPercent: newTier.DiscountPercent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueuePosting(ctx, result.TransactionID, TransactionLoad, hospitalID, actor)
	return result, nil
}

// GetAvailableBalance is a pure read of the wallet's spendable state.
func (s *Service) GetAvailableBalance(ctx context.Context, patientID, hospitalID uuid.UUID) (*BalanceView, error) {
	w, err := s.repo.GetWallet(ctx, patientID, hospitalID)
	if err != nil {
		return nil, err
	}
	return s.balanceView(ctx, w)
}

// ValidateRedemption checks whether points can be redeemed without mutating
// anything. RedeemPoints applies the same checks before consuming batches.
func (s *Service) ValidateRedemption(ctx context.Context, patientID uuid.UUID, points int64, hospitalID uuid.UUID) (*RedemptionCheck, error) {
	w, err := s.repo.GetWallet(ctx, patientID, hospitalID)
	if err == ErrWalletNotFound {
		return &RedemptionCheck{Valid: false, Message: "wallet not found"}, nil
	}
	if err != nil {
		return nil, err
	}

	if reason := s.redemptionFailure(ctx, s.repo, w, points); reason != nil {
		return &RedemptionCheck{Valid: false, Message: reason.Error(), Available: w.PointsBalance}, nil
	}
	return &RedemptionCheck{Valid: true, Available: w.PointsBalance}, nil
}

// RedeemPoints spends points against an invoice, consuming batches oldest
// first. Batches expire independently, so draining them out of sequence
// would let newer points outlive older ones that should already be gone.
func (s *Service) RedeemPoints(ctx context.Context, patientID, hospitalID uuid.UUID, points int64, invoiceID *uuid.UUID, invoiceNumber, actor string) (uuid.UUID, error) {
	var txID uuid.UUID
	err := s.repo.Transaction(ctx, func(r Repository) error {
		w, err := r.GetWallet(ctx, patientID, hospitalID)
		if err != nil {
			return err
		}
		if reason := s.redemptionFailure(ctx, r, w, points); reason != nil {
			return reason
		}

		batches, err := r.ActiveBatches(ctx, w.ID)
		if err != nil {
			return err
		}

		needed := points
		for i := range batches {
			if needed == 0 {
				break
			}
			b := &batches[i]
			take := b.PointsRemaining
			if take > needed {
				take = needed
			}
			b.PointsRemaining -= take
			b.PointsRedeemed += take
			needed -= take
			if err := r.UpdateBatch(ctx, b); err != nil {
				return err
			}
		}
		if needed > 0 {
			// batches disagreed with the wallet balance
			return ErrInsufficientPoints
		}

		redemptionValue := decimal.NewFromInt(points)
		txRecord := &WalletTransaction{
			ID:              id.Generate(),
			WalletID:        w.ID,
			Type:            TransactionRedeem,
			BalanceBefore:   w.PointsBalance,
			BalanceAfter:    w.PointsBalance - points,
			PointsRedeemed:  points,
			RedemptionValue: &redemptionValue,
			InvoiceID:       invoiceID,
			InvoiceNumber:   strPtr(invoiceNumber),
			CreatedBy:       actor,
		}
		if err := r.CreateTransaction(ctx, txRecord); err != nil {
			return err
		}

		w.PointsBalance -= points
		w.PointsValue = decimal.NewFromInt(w.PointsBalance)
		w.TotalPointsRedeemed += points
		if err := r.UpdateWallet(ctx, w); err != nil {
			return err
		}

		txID = txRecord.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.enqueuePosting(ctx, txID, TransactionRedeem, hospitalID, actor)
	logger.Info("Points redeemed", logger.Fields{
		logger.PatientIDKey: patientID.String(),
		"points":            points,
		"invoice_number":    invoiceNumber,
	})
	return txID, nil
}

// RefundService credits back points redeemed against an invoice. The
// refunded points land in a brand-new batch with a full validity window
// dated from the refund, not from the original load.
func (s *Service) RefundService(ctx context.Context, invoiceID uuid.UUID, points int64, reason, actor string) (*RefundResult, error) {
	if points <= 0 {
		return nil, validationError("refund points must be positive")
	}

	var result *RefundResult
	var hospitalID uuid.UUID
	err := s.repo.Transaction(ctx, func(r Repository) error {
		original, err := r.LatestRedemptionForInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if points > original.PointsRedeemed {
			return validationError("refund of %d points exceeds original redemption of %d",
				points, original.PointsRedeemed)
		}

		w, err := r.GetWalletByID(ctx, original.WalletID)
		if err != nil {
			return err
		}
		if w.Status == WalletClosed {
			return ErrWalletClosed
		}

		expiryDate := time.Now().AddDate(0, s.validityMonths(), 0)
		txRecord := &WalletTransaction{
			ID:                    id.Generate(),
			WalletID:              w.ID,
			Type:                  TransactionRefundService,
			BalanceBefore:         w.PointsBalance,
			BalanceAfter:          w.PointsBalance + points,
			PointsCreditedBack:    points,
			RefundReason:          strPtr(reason),
			OriginalTransactionID: &original.ID,
			InvoiceID:             &invoiceID,
			InvoiceNumber:         original.InvoiceNumber,
			ExpiryDate:            &expiryDate,
			CreatedBy:             actor,
		}
		if err := r.CreateTransaction(ctx, txRecord); err != nil {
			return err
		}

		seq, err := r.NextSequenceNo(ctx, w.ID)
		if err != nil {
			return err
		}
		batch := &PointsBatch{
			ID:                id.Generate(),
			WalletID:          w.ID,
			LoadTransactionID: txRecord.ID,
			PointsLoaded:      points,
			PointsRemaining:   points,
			LoadDate:          time.Now(),
			ExpiryDate:        expiryDate,
			SequenceNo:        seq,
		}
		if err := r.CreateBatch(ctx, batch); err != nil {
			return err
		}

		w.PointsBalance += points
		w.PointsValue = decimal.NewFromInt(w.PointsBalance)
		w.TotalPointsRedeemed -= points
		if w.TotalPointsRedeemed < 0 {
			w.TotalPointsRedeemed = 0
		}
		if err := r.UpdateWallet(ctx, w); err != nil {
			return err
		}

		hospitalID = w.HospitalID
		result = &RefundResult{
			TransactionID:  txRecord.ID,
			PointsRefunded: points,
			NewBalance:     w.PointsBalance,
			NewExpiryDate:  expiryDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueuePosting(ctx, result.TransactionID, TransactionRefundService, hospitalID, actor)
	return result, nil
}

// CloseWallet terminates the wallet. The patient recovers the cash they
// paid minus what they already consumed as points; bonus and unused points
// are forfeited.
func (s *Service) CloseWallet(ctx context.Context, patientID, hospitalID uuid.UUID, reason, actor string) (*ClosureResult, error) {
	var result *ClosureResult
	err := s.repo.Transaction(ctx, func(r Repository) error {
		w, err := r.GetWallet(ctx, patientID, hospitalID)
		if err != nil {
			return err
		}
		if w.Status == WalletClosed {
			return ErrWalletClosed
		}

		cashRefund := w.TotalAmountLoaded.Sub(decimal.NewFromInt(w.TotalPointsRedeemed))
		if cashRefund.IsNegative() {
			cashRefund = decimal.Zero
		}
		pointsForfeited := w.PointsBalance

		batches, err := r.ExpirableBatches(ctx, w.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		for i := range batches {
			b := &batches[i]
			b.PointsExpired += b.PointsRemaining
			b.PointsRemaining = 0
			b.IsExpired = true
			b.ExpiredAt = &now
			if err := r.UpdateBatch(ctx, b); err != nil {
				return err
			}
		}

		txRecord := &WalletTransaction{
			ID:                  id.Generate(),
			WalletID:            w.ID,
			Type:                TransactionRefundWallet,
			BalanceBefore:       w.PointsBalance,
			BalanceAfter:        0,
			WalletClosureAmount: &cashRefund,
			PointsForfeited:     pointsForfeited,
			RefundReason:        strPtr(reason),
			CreatedBy:           actor,
		}
		if err := r.CreateTransaction(ctx, txRecord); err != nil {
			return err
		}

		w.PointsBalance = 0
		w.PointsValue = decimal.Zero
		w.Status = WalletClosed
		w.ClosedAt = &now
		w.ClosedBy = strPtr(actor)
		if err := r.UpdateWallet(ctx, w); err != nil {
			return err
		}

		result = &ClosureResult{
			TransactionID:   txRecord.ID,
			CashRefund:      cashRefund,
			PointsForfeited: pointsForfeited,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueuePosting(ctx, result.TransactionID, TransactionRefundWallet, hospitalID, actor)
	logger.Info("Wallet closed", logger.Fields{
		logger.PatientIDKey: patientID.String(),
		"cash_refund":       result.CashRefund.String(),
		"points_forfeited":  result.PointsForfeited,
		logger.ActorKey:     actor,
	})
	return result, nil
}

// ExpirePointsBatch retires a single batch. Invoked per batch by an
// external scheduler once the expiry date passes.
func (s *Service) ExpirePointsBatch(ctx context.Context, batchID uuid.UUID, actor string) (*ExpiryResult, error) {
	var result *ExpiryResult
	var txID uuid.UUID
	var hospitalID uuid.UUID
	err := s.repo.Transaction(ctx, func(r Repository) error {
		b, err := r.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if b.IsExpired {
			result = &ExpiryResult{Expired: false}
			return nil
		}

		w, err := r.GetWalletByID(ctx, b.WalletID)
		if err != nil {
			return err
		}

		expired := b.PointsRemaining
		now := time.Now()
		b.PointsExpired += expired
		b.PointsRemaining = 0
		b.IsExpired = true
		b.ExpiredAt = &now
		if err := r.UpdateBatch(ctx, b); err != nil {
			return err
		}

		txRecord := &WalletTransaction{
			ID:            id.Generate(),
			WalletID:      w.ID,
			Type:          TransactionExpire,
			BalanceBefore: w.PointsBalance,
			BalanceAfter:  w.PointsBalance - expired,
			PointsExpired: expired,
			CreatedBy:     actor,
		}
		if err := r.CreateTransaction(ctx, txRecord); err != nil {
			return err
		}

		w.PointsBalance -= expired
		w.PointsValue = decimal.NewFromInt(w.PointsBalance)
		if err := r.UpdateWallet(ctx, w); err != nil {
			return err
		}

		txID = txRecord.ID
		hospitalID = w.HospitalID
		result = &ExpiryResult{Expired: true, PointsExpired: expired}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Expired {
		s.enqueuePosting(ctx, txID, TransactionExpire, hospitalID, actor)
	}
	return result, nil
}

// GetTierDiscount returns the wallet's current tier discount, or zero when
// there is no wallet, no tier, or nothing left to spend.
func (s *Service) GetTierDiscount(ctx context.Context, patientID, hospitalID uuid.UUID) (decimal.Decimal, error) {
	w, err := s.repo.GetWallet(ctx, patientID, hospitalID)
	if err == ErrWalletNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if w.Status == WalletClosed || w.CurrentTierID == nil {
		return decimal.Zero, nil
	}

	expired, err := s.allBatchesExpired(ctx, s.repo, w)
	if err != nil {
		return decimal.Zero, err
	}
	if expired {
		return decimal.Zero, nil
	}

	t, err := s.tiers.GetTier(ctx, *w.CurrentTierID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.DiscountPercent, nil
}

// GetWalletSummary aggregates the balance view, recent activity, and
// batches expiring within the configured window.
func (s *Service) GetWalletSummary(ctx context.Context, patientID, hospitalID uuid.UUID) (*Summary, error) {
	w, err := s.repo.GetWallet(ctx, patientID, hospitalID)
	if err != nil {
		return nil, err
	}

	view, err := s.balanceView(ctx, w)
	if err != nil {
		return nil, err
	}

	txs, err := s.repo.RecentTransactions(ctx, w.ID, 10)
	if err != nil {
		return nil, err
	}

	batches, err := s.repo.ActiveBatches(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().AddDate(0, 0, s.expiringSoonDays())
	expiring := make([]PointsBatch, 0)
	for _, b := range batches {
		if !b.ExpiryDate.After(cutoff) {
			expiring = append(expiring, b)
		}
	}

	return &Summary{
		Balance:             *view,
		Transactions:        txs,
		ExpiringBatches:     expiring,
		WalletStatus:        w.Status,
		TotalAmountLoaded:   w.TotalAmountLoaded,
		TotalPointsLoaded:   w.TotalPointsLoaded,
		TotalPointsRedeemed: w.TotalPointsRedeemed,
	}, nil
}

func (s *Service) getOrCreate(ctx context.Context, r Repository, patientID, hospitalID uuid.UUID) (*Wallet, error) {
	w, err := r.GetWallet(ctx, patientID, hospitalID)
	if err == nil {
		return w, nil
	}
	if err != ErrWalletNotFound {
		return nil, err
	}
	w = &Wallet{
		ID:          id.Generate(),
		PatientID:   patientID,
		HospitalID:  hospitalID,
		Status:      WalletActive,
		PointsValue: decimal.Zero,
	}
	if err := r.CreateWallet(ctx, w); err != nil {
		// a concurrent first-touch caller may have won the unique index
		// on (patient_id, hospital_id); take their row
		if existing, readErr := r.GetWallet(ctx, patientID, hospitalID); readErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return w, nil
}

// redemptionFailure returns the typed error a redemption of points against
// w would fail with, or nil when it would succeed.
func (s *Service) redemptionFailure(ctx context.Context, r Repository, w *Wallet, points int64) error {
	if w.Status == WalletClosed {
		return ErrWalletClosed
	}
	if points <= 0 {
		return validationError("redemption amount must be positive")
	}

	// checked before the balance: once every batch has expired the
	// balance is zero, and a plain shortfall would mask the real cause
	expired, err := s.allBatchesExpired(ctx, r, w)
	if err != nil {
		return err
	}
	if expired {
		return ErrPointsExpired
	}

	if w.PointsBalance < points {
		return ErrInsufficientPoints
	}
	return nil
}

// allBatchesExpired reports whether every batch the wallet ever held has
// lapsed. Fully redeemed batches stay non-expired, so a wallet that just
// spent everything is drained, not expired.
func (s *Service) allBatchesExpired(ctx context.Context, r Repository, w *Wallet) (bool, error) {
	batches, err := r.ExpirableBatches(ctx, w.ID)
	if err != nil {
		return false, err
	}
	return len(batches) == 0 && w.TotalPointsLoaded > 0, nil
}

func (s *Service) balanceView(ctx context.Context, w *Wallet) (*BalanceView, error) {
	view := &BalanceView{
		PointsBalance:       w.PointsBalance,
		PointsValue:         w.PointsValue,
		TierDiscountPercent: decimal.Zero,
	}

	batches, err := s.repo.ActiveBatches(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if view.ExpiryDate == nil || b.ExpiryDate.Before(*view.ExpiryDate) {
			expiry := b.ExpiryDate
			view.ExpiryDate = &expiry
		}
	}
	if view.ExpiryDate != nil {
		view.IsExpiringSoon = !view.ExpiryDate.After(time.Now().AddDate(0, 0, s.expiringSoonDays()))
	}
	expired, err := s.allBatchesExpired(ctx, s.repo, w)
	if err != nil {
		return nil, err
	}
	view.IsExpired = expired

	if w.CurrentTierID != nil && w.Status == WalletActive {
		t, err := s.tiers.GetTier(ctx, *w.CurrentTierID)
		if err != nil && err != tier.ErrTierNotFound {
			return nil, err
		}
		if err == nil {
			view.TierName = t.Name
			if !view.IsExpired {
				view.TierDiscountPercent = t.DiscountPercent
			}
		}
	}
	return view, nil
}

// enqueuePosting hands the committed transaction to the GL posting
// pipeline. Publish failures are logged, not returned: the wallet change
// is already durable and the posting worker reconciles from the queue.
func (s *Service) enqueuePosting(ctx context.Context, txID uuid.UUID, txType TransactionType, hospitalID uuid.UUID, actor string) {
	if s.posting == nil {
		return
	}
	job := events.PostingJob{
		WalletTransactionID: txID.String(),
		TransactionType:     string(txType),
		HospitalID:          hospitalID.String(),
		Actor:               actor,
		EnqueuedAt:          time.Now(),
	}
	if err := s.posting.PublishPostingJob(ctx, job); err != nil {
		logger.Error("Failed to enqueue GL posting job", logger.Fields{
			"wallet_transaction_id": txID.String(),
			logger.ErrorKey:         err.Error(),
		})
	}
}

func (s *Service) validityMonths() int {
	if s.cfg.DefaultValidityMonths > 0 {
		return s.cfg.DefaultValidityMonths
	}
	return 12
}

func (s *Service) expiringSoonDays() int {
	if s.cfg.ExpiringSoonDays > 0 {
		return s.cfg.ExpiringSoonDays
	}
	return 30
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
