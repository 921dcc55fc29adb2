package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkalyan/chitfund/internal/calculator"
	"github.com/mkalyan/chitfund/internal/models"
	"github.com/mkalyan/chitfund/internal/storage"
	"github.com/mkalyan/chitfund/pkg/metrics"
)

// Round settlement engine. Both entry points run inside the caller's
// transaction: either every balance update and state transition commits,
// or none does. The compare-and-set in CompleteRound guarantees at most
// one settlement per round can commit even if two transactions race to
// the same conclusion.

// settleByBidding settles a round once every eligible member has bid:
// picks the lowest bid, distributes the remainder of the pool evenly to
// the other paid members, closes the round, and provisions the next one.
func settleByBidding(ctx context.Context, tx storage.Store, fund *models.Fund, round *models.Round) (*models.WinningInfo, error) {
	if round.Status != models.RoundStatusBidding {
		return nil, fmt.Errorf("%w: round %d is %s, not open for settlement", ErrInvalidState, round.RoundNumber, round.Status)
	}

	payments, err := tx.ListCompletedPayments(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	winners, err := tx.WinnerIDs(ctx, fund.ID)
	if err != nil {
		return nil, err
	}
	wonBefore := make(map[string]bool, len(winners))
	for _, id := range winners {
		wonBefore[id] = true
	}

	members, err := tx.FundMemberIDs(ctx, fund.ID)
	if err != nil {
		return nil, err
	}

	// Eligible bidders: every member who has not won a prior round.
	// Derived from the membership, not from completed payments, so the
	// auction cannot close while a member still owes their contribution:
	// an unpaid member has no bid (PlaceBid requires payment), which
	// keeps the bidder count below the eligible count.
	eligible := make(map[string]bool)
	for _, id := range members {
		if !wonBefore[id] {
			eligible[id] = true
		}
	}

	bids, err := tx.ListBids(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	calcBids := make([]calculator.Bid, 0, len(bids))
	bidders := make(map[string]bool)
	for _, b := range bids {
		if eligible[b.UserID] {
			calcBids = append(calcBids, calculator.Bid{
				ID:        b.ID,
				UserID:    b.UserID,
				Amount:    b.Amount,
				CreatedAt: b.CreatedAt,
			})
			bidders[b.UserID] = true
		}
	}

	if len(bidders) < len(eligible) {
		return nil, fmt.Errorf("%w: %d of %d eligible members have bid", ErrInvalidState, len(bidders), len(eligible))
	}

	pool, err := tx.PooledAmount(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	outcome, err := calculator.Settle(calcBids, pool, len(payments))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if err := applySettlement(ctx, tx, fund, round, round.Status, outcome, payments); err != nil {
		return nil, err
	}

	// Provision the next round up front: pending payment rows for every
	// member (the winner keeps contributing; they only leave the bidding
	// pool).
	if round.RoundNumber < fund.Duration {
		next := &models.Round{
			FundID:      fund.ID,
			RoundNumber: round.RoundNumber + 1,
			Status:      models.RoundStatusUpcoming,
		}
		if err := tx.CreateRound(ctx, next); err != nil {
			return nil, err
		}
		for _, id := range members {
			if err := tx.CreatePayment(ctx, &models.Payment{
				FundID:  fund.ID,
				RoundID: next.ID,
				UserID:  id,
				Amount:  fund.MonthlyContribution,
				Status:  models.PaymentStatusPending,
			}); err != nil {
				return nil, err
			}
		}
		if err := tx.SetCurrentRound(ctx, fund.ID, next.RoundNumber); err != nil {
			return nil, err
		}
	}

	metrics.RoundsSettled.WithLabelValues("bidding").Inc()
	metrics.SettlementPool.Observe(pool)

	slog.Info("Round settled",
		"fund_id", fund.ID,
		"round", round.RoundNumber,
		"winner_id", outcome.WinnerID,
		"winning_bid", outcome.WinningBid,
		"dividend", outcome.DividendPerMember,
		"pool", pool,
	)

	return winningInfo(ctx, tx, round, outcome)
}

// settleTerminal settles the fund's last round: the single member who
// has never won receives the full pool, no bidding, no dividend.
func settleTerminal(ctx context.Context, tx storage.Store, fund *models.Fund, round *models.Round) (*models.WinningInfo, error) {
	winners, err := tx.WinnerIDs(ctx, fund.ID)
	if err != nil {
		return nil, err
	}
	wonBefore := make(map[string]bool, len(winners))
	for _, id := range winners {
		wonBefore[id] = true
	}

	members, err := tx.FundMemberIDs(ctx, fund.ID)
	if err != nil {
		return nil, err
	}

	var remaining []string
	for _, id := range members {
		if !wonBefore[id] {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one member without a win, found %d", ErrInvalidState, len(remaining))
	}

	pool, err := tx.PooledAmount(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	payments, err := tx.ListCompletedPayments(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	outcome := &calculator.Outcome{
		WinnerID:          remaining[0],
		WinningBid:        pool, // full pool, no auction
		TotalPool:         pool,
		DividendPerMember: 0,
	}

	if err := applySettlement(ctx, tx, fund, round, round.Status, outcome, payments); err != nil {
		return nil, err
	}

	metrics.RoundsSettled.WithLabelValues("terminal").Inc()
	metrics.SettlementPool.Observe(pool)

	slog.Info("Terminal round settled",
		"fund_id", fund.ID,
		"round", round.RoundNumber,
		"winner_id", outcome.WinnerID,
		"payout", pool,
	)

	return winningInfo(ctx, tx, round, outcome)
}

// applySettlement performs the shared atomic core: close the round under
// a status guard, credit the winner, credit every other paid member, and
// advance the fund pointer.
func applySettlement(ctx context.Context, tx storage.Store, fund *models.Fund, round *models.Round, fromStatus string, outcome *calculator.Outcome, payments []*models.Payment) error {
	ok, err := tx.CompleteRound(ctx, round.ID, fromStatus, outcome.WinnerID,
		outcome.WinningBid, outcome.DividendPerMember, time.Now().Unix())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: round %d was settled by another request", ErrConflict, round.RoundNumber)
	}

	if err := tx.AddSavings(ctx, outcome.WinnerID, outcome.WinningBid); err != nil {
		return err
	}
	if outcome.DividendPerMember > 0 {
		for _, p := range payments {
			if p.UserID == outcome.WinnerID {
				continue
			}
			if err := tx.AddSavings(ctx, p.UserID, outcome.DividendPerMember); err != nil {
				return err
			}
		}
	}

	return tx.SetCurrentRound(ctx, fund.ID, round.RoundNumber)
}

func winningInfo(ctx context.Context, tx storage.Store, round *models.Round, outcome *calculator.Outcome) (*models.WinningInfo, error) {
	info := &models.WinningInfo{
		RoundID:           round.ID,
		RoundNumber:       round.RoundNumber,
		WinnerID:          outcome.WinnerID,
		WinningBid:        outcome.WinningBid,
		TotalPool:         outcome.TotalPool,
		DividendPerMember: outcome.DividendPerMember,
	}
	winner, err := tx.GetUserByID(ctx, outcome.WinnerID)
	if err != nil {
		return nil, err
	}
	if winner != nil {
		info.WinnerName = winner.Username
	}
	return info, nil
}
