package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkalyan/chitfund/internal/cache"
	"github.com/mkalyan/chitfund/internal/models"
	"github.com/mkalyan/chitfund/internal/storage"
	"github.com/mkalyan/chitfund/pkg/metrics"
)

// PaymentService tracks per-round contribution obligations.
type PaymentService struct {
	store storage.Store
	cache *cache.Cache
}

// NewPaymentService creates a new PaymentService with the given storage
// backend and (optional) view cache.
func NewPaymentService(store storage.Store, c *cache.Cache) *PaymentService {
	return &PaymentService{store: store, cache: c}
}

// PaymentResult reports what a recorded contribution triggered.
type PaymentResult struct {
	Payment *models.Payment

	// BiddingOpened is true when this was the last expected contribution
	// and the round moved from upcoming to bidding.
	BiddingOpened bool

	// RoundCompleted is true when this contribution closed the fund's
	// terminal round; Settlement carries the outcome.
	RoundCompleted bool
	Settlement     *models.WinningInfo
}

// RecordPayment marks the caller's contribution for a round completed.
// Re-recording an already-completed payment is a no-op success.
//
// Side effects, inside the same transaction: when the last expected
// contribution lands, an upcoming round opens for bidding — or, on the
// fund's terminal round, the round settles immediately in favor of the
// one member who has never won.
func (s *PaymentService) RecordPayment(ctx context.Context, userID, fundID, roundID, method, transactionRef string) (*PaymentResult, error) {
	slog.Info("RecordPayment received",
		"user_id", userID,
		"fund_id", fundID,
		"round_id", roundID,
		"method", method,
	)

	result := &PaymentResult{}
	var memberIDs []string

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		fund, round, err := loadFundRound(ctx, tx, fundID, roundID)
		if err != nil {
			return err
		}

		if round.Completed() {
			return fmt.Errorf("%w: round %d is already completed", ErrInvalidState, round.RoundNumber)
		}

		payment, err := tx.GetPayment(ctx, round.ID, userID)
		if err != nil {
			return err
		}
		if payment == nil {
			// Payments are provisioned at round creation, so a missing row
			// means the caller has no obligation here (not a member).
			return fmt.Errorf("%w: no contribution obligation for user %s in round %d", ErrNotFound, userID, round.RoundNumber)
		}

		if payment.Status == models.PaymentStatusCompleted {
			result.Payment = payment
			return nil // idempotent no-op
		}

		now := time.Now().Unix()
		updated, err := tx.CompletePayment(ctx, payment.ID, method, transactionRef, now)
		if err != nil {
			return err
		}
		if updated {
			payment.Status = models.PaymentStatusCompleted
			payment.Method = method
			payment.TransactionRef = transactionRef
			payment.PaidAt = now
			metrics.PaymentsRecorded.Inc()
		}
		result.Payment = payment

		memberIDs, err = tx.FundMemberIDs(ctx, fund.ID)
		if err != nil {
			return err
		}

		completed, err := tx.ListCompletedPayments(ctx, round.ID)
		if err != nil {
			return err
		}
		if len(completed) < fund.MemberCount {
			return nil // still waiting on contributions
		}

		// Everyone expected has paid.
		if round.RoundNumber == fund.Duration {
			info, err := settleTerminal(ctx, tx, fund, round)
			if err != nil {
				return err
			}
			result.RoundCompleted = true
			result.Settlement = info
			return nil
		}

		if round.Status == models.RoundStatusUpcoming {
			opened, err := tx.TransitionRound(ctx, round.ID, models.RoundStatusUpcoming, models.RoundStatusBidding)
			if err != nil {
				return err
			}
			if opened {
				result.BiddingOpened = true
				slog.Info("Round opened for bidding",
					"fund_id", fund.ID,
					"round", round.RoundNumber,
				)
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("RecordPayment failed", "user_id", userID, "round_id", roundID, "error", err)
		return nil, err
	}

	s.invalidateFundViews(ctx, fundID, memberIDs, roundID)

	return result, nil
}

// PooledAmount returns the sum of completed contributions for a round.
func (s *PaymentService) PooledAmount(ctx context.Context, fundID, roundID string) (float64, error) {
	var pooled float64
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		_, round, err := loadFundRound(ctx, tx, fundID, roundID)
		if err != nil {
			return err
		}
		pooled, err = tx.PooledAmount(ctx, round.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return pooled, nil
}

// AllMembersPaid reports whether every expected contribution for the
// round is completed. Winners of earlier rounds keep contributing, so
// the expected count is always the fund's full membership.
func (s *PaymentService) AllMembersPaid(ctx context.Context, fundID, roundID string) (bool, error) {
	var allPaid bool
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		fund, round, err := loadFundRound(ctx, tx, fundID, roundID)
		if err != nil {
			return err
		}
		completed, err := tx.ListCompletedPayments(ctx, round.ID)
		if err != nil {
			return err
		}
		allPaid = len(completed) == fund.MemberCount
		return nil
	})
	if err != nil {
		return false, err
	}
	return allPaid, nil
}

// loadFundRound resolves a fund and one of its rounds, mapping missing
// rows and mismatched parents to ErrNotFound.
func loadFundRound(ctx context.Context, tx storage.Store, fundID, roundID string) (*models.Fund, *models.Round, error) {
	fund, err := tx.GetFund(ctx, fundID)
	if err != nil {
		return nil, nil, err
	}
	if fund == nil {
		return nil, nil, fmt.Errorf("%w: fund %s", ErrNotFound, fundID)
	}

	round, err := tx.GetRound(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	if round == nil || round.FundID != fund.ID {
		return nil, nil, fmt.Errorf("%w: round %s in fund %s", ErrNotFound, roundID, fundID)
	}

	return fund, round, nil
}

// invalidateFundViews drops cached views touched by a mutation. Cache
// errors are logged, never surfaced: the TTL bounds staleness anyway.
func (s *PaymentService) invalidateFundViews(ctx context.Context, fundID string, memberIDs []string, roundIDs ...string) {
	invalidateFundViews(ctx, s.cache, fundID, memberIDs, roundIDs...)
}

func invalidateFundViews(ctx context.Context, c *cache.Cache, fundID string, memberIDs []string, roundIDs ...string) {
	keys := make([]string, 0, len(memberIDs)+len(roundIDs))
	for _, id := range memberIDs {
		keys = append(keys, cache.FundStatusKey(fundID, id))
	}
	for _, id := range roundIDs {
		keys = append(keys, cache.WinningInfoKey(id))
	}
	if err := c.Delete(ctx, keys...); err != nil {
		slog.Warn("Failed to invalidate cached views", "fund_id", fundID, "error", err)
	}
}
