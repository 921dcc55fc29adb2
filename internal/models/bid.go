package models

// Bid is one member's offer to accept Amount as the round payout. Lower
// is more competitive: the difference between the pool and the winning
// bid funds the other members' dividends.
type Bid struct {
	// ID is the unique identifier for the bid (UUID format).
	ID string

	// FundID and RoundID locate the auction.
	FundID  string
	RoundID string

	// UserID is the bidder. At most one bid per (fund, round, user).
	UserID string

	// Amount is the payout the bidder is willing to accept. Must be
	// strictly less than the round's pooled completed contributions.
	Amount float64

	// CreatedAt is the Unix timestamp when the bid was placed. Ties on
	// Amount are broken in favor of the earlier bid.
	CreatedAt int64
}
