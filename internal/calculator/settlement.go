// Package calculator holds the pure arithmetic of round settlement:
// winning-bid selection and dividend distribution. It has no storage or
// service dependencies so the rules can be tested exhaustively in
// isolation.
package calculator

import (
	"fmt"
)

// Bid carries the minimal bid information needed for winner selection.
type Bid struct {
	ID        string
	UserID    string
	Amount    float64
	CreatedAt int64 // Unix seconds; earlier bids win ties
}

// Outcome is the computed result of settling a round.
type Outcome struct {
	WinnerID          string
	WinningBid        float64
	TotalPool         float64
	DividendPerMember float64
}

// SelectWinningBid returns the most competitive bid: the minimum amount,
// with ties broken by earliest placement, then by lowest ID so repeated
// runs over the same data always agree.
func SelectWinningBid(bids []Bid) (Bid, error) {
	if len(bids) == 0 {
		return Bid{}, fmt.Errorf("no bids to select from")
	}

	winner := bids[0]
	for _, bid := range bids[1:] {
		if beats(bid, winner) {
			winner = bid
		}
	}
	return winner, nil
}

func beats(a, b Bid) bool {
	if a.Amount != b.Amount {
		return a.Amount < b.Amount
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// Dividend computes each non-winner's share of the pool after the
// winner's payout: (totalPool - winningBid) / (paidCount - 1).
//
// Commission is deliberately not deducted here. The organizer's declared
// commission is reported alongside fund views but never drawn from the
// pool, so winner payout plus dividends always conserves the pool
// exactly.
func Dividend(totalPool, winningBid float64, paidCount int) (float64, error) {
	if paidCount < 2 {
		return 0, fmt.Errorf("need at least two paid members to distribute a dividend, got %d", paidCount)
	}
	if winningBid >= totalPool {
		return 0, fmt.Errorf("winning bid %.2f must be below the pool %.2f", winningBid, totalPool)
	}
	if winningBid < 0 {
		return 0, fmt.Errorf("winning bid cannot be negative")
	}

	return (totalPool - winningBid) / float64(paidCount-1), nil
}

// Settle combines winner selection and dividend distribution for a round
// with the given pooled total and completed-payment count.
func Settle(bids []Bid, totalPool float64, paidCount int) (*Outcome, error) {
	winning, err := SelectWinningBid(bids)
	if err != nil {
		return nil, err
	}

	dividend, err := Dividend(totalPool, winning.Amount, paidCount)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		WinnerID:          winning.UserID,
		WinningBid:        winning.Amount,
		TotalPool:         totalPool,
		DividendPerMember: dividend,
	}, nil
}
