package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkalyan/chitfund/internal/cache"
	"github.com/mkalyan/chitfund/internal/models"
	"github.com/mkalyan/chitfund/internal/storage"
	"github.com/mkalyan/chitfund/pkg/metrics"
)

// BidService records per-round bids and triggers settlement when the
// last eligible member has bid.
type BidService struct {
	store storage.Store
	cache *cache.Cache
}

// NewBidService creates a new BidService with the given storage backend
// and (optional) view cache.
func NewBidService(store storage.Store, c *cache.Cache) *BidService {
	return &BidService{store: store, cache: c}
}

// BidOutcome reports an accepted bid and, when it was the final one, the
// settlement it triggered.
type BidOutcome struct {
	Bid *models.Bid

	// BidsReceived counts unique eligible bidders so far; BidsExpected
	// counts the members still in the bidding pool (never won).
	BidsReceived int
	BidsExpected int

	// RoundCompleted is true when this bid completed the auction;
	// Settlement carries the outcome.
	RoundCompleted bool
	Settlement     *models.WinningInfo
}

// PlaceBid validates and persists a bid. The validation ladder, in
// order: the round must be open for bidding; the amount must be positive
// and strictly below the pooled contributions; the bidder must have paid
// for the round, must not have won a prior round of the fund, and must
// not have bid already.
//
// When every member who has not yet won a round has bid, the round
// settles synchronously inside the same transaction.
func (s *BidService) PlaceBid(ctx context.Context, userID, fundID, roundID string, amount float64) (*BidOutcome, error) {
	slog.Info("PlaceBid received",
		"user_id", userID,
		"fund_id", fundID,
		"round_id", roundID,
		"amount", amount,
	)

	outcome := &BidOutcome{}
	var memberIDs []string

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		fund, round, err := loadFundRound(ctx, tx, fundID, roundID)
		if err != nil {
			return err
		}

		if round.Status != models.RoundStatusBidding {
			return fmt.Errorf("%w: round %d is not open for bidding (status %s)", ErrInvalidState, round.RoundNumber, round.Status)
		}

		if amount <= 0 {
			return fmt.Errorf("%w: bid amount must be positive", ErrValidation)
		}

		pooled, err := tx.PooledAmount(ctx, round.ID)
		if err != nil {
			return err
		}
		if amount >= pooled {
			return fmt.Errorf("%w: bid %.2f must be less than the pooled amount %.2f", ErrInvalidBid, amount, pooled)
		}

		payment, err := tx.GetPayment(ctx, round.ID, userID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status != models.PaymentStatusCompleted {
			return fmt.Errorf("%w: contribution for round %d must be completed before bidding", ErrPaymentRequired, round.RoundNumber)
		}

		winners, err := tx.WinnerIDs(ctx, fund.ID)
		if err != nil {
			return err
		}
		wonBefore := make(map[string]bool, len(winners))
		for _, id := range winners {
			wonBefore[id] = true
		}
		// Round 1 has no prior winners by construction, so this check
		// only bites from round 2 onward.
		if wonBefore[userID] {
			return fmt.Errorf("%w: user %s already won a round of this fund", ErrAlreadyWon, userID)
		}

		existing, err := tx.GetBid(ctx, round.ID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: user %s already bid in round %d", ErrDuplicateBid, userID, round.RoundNumber)
		}

		bid := &models.Bid{
			FundID:  fund.ID,
			RoundID: round.ID,
			UserID:  userID,
			Amount:  amount,
		}
		if err := tx.CreateBid(ctx, bid); err != nil {
			return err
		}
		outcome.Bid = bid
		metrics.BidsPlaced.Inc()

		memberIDs, err = tx.FundMemberIDs(ctx, fund.ID)
		if err != nil {
			return err
		}

		// Eligibility set: the membership minus prior winners. A member
		// who has not paid cannot have a bid, so counting bidders against
		// this set keeps the auction open until every non-winner member
		// has both paid and bid.
		eligible := make(map[string]bool)
		for _, id := range memberIDs {
			if !wonBefore[id] {
				eligible[id] = true
			}
		}

		bids, err := tx.ListBids(ctx, round.ID)
		if err != nil {
			return err
		}
		bidders := make(map[string]bool)
		for _, b := range bids {
			if eligible[b.UserID] {
				bidders[b.UserID] = true
			}
		}

		outcome.BidsReceived = len(bidders)
		outcome.BidsExpected = len(eligible)

		if len(bidders) < len(eligible) {
			return nil // auction still open
		}

		info, err := settleByBidding(ctx, tx, fund, round)
		if err != nil {
			return err
		}
		outcome.RoundCompleted = true
		outcome.Settlement = info
		return nil
	})
	if err != nil {
		slog.Warn("PlaceBid failed", "user_id", userID, "round_id", roundID, "error", err)
		return nil, err
	}

	invalidateFundViews(ctx, s.cache, fundID, memberIDs, roundID)

	return outcome, nil
}
