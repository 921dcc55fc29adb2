package models

// Typed read models returned to the embedding layer. These replace the
// dict-shaped query results of the original dashboard endpoints.

// RoundSummary is a completed round as shown in fund history.
type RoundSummary struct {
	RoundID           string
	RoundNumber       int
	WinnerID          string
	WinnerName        string
	WinningBid        float64
	DividendPerMember float64
	EndDate           int64
}

// FundStatus is one member's view of a fund: the active round, their own
// payment state, and whether they may bid right now.
type FundStatus struct {
	FundID              string
	Name                string
	MemberCount         int
	MonthlyContribution float64
	Duration            int
	CommissionRate      float64

	// CommissionAmount is the organizer's declared per-round cut
	// (TotalPoolAmount * CommissionRate). Reported, never deducted.
	CommissionAmount float64

	// CurrentRound is the active round number; CurrentRoundID its row.
	CurrentRound       int
	CurrentRoundID     string
	CurrentRoundStatus string

	// TotalPooled is the sum of completed contributions for the active round.
	TotalPooled float64

	// PaymentStatus is the caller's payment status for the active round.
	PaymentStatus string

	// CanBid reports whether the caller may place a bid right now:
	// round is bidding, everyone has paid, and the caller has paid, has
	// not bid yet, and has never won a round of this fund.
	CanBid bool

	// PreviousRounds lists completed rounds, most recent first.
	PreviousRounds []RoundSummary
}

// WinningInfo describes the outcome of a completed round.
type WinningInfo struct {
	RoundID           string
	RoundNumber       int
	WinnerID          string
	WinnerName        string
	WinningBid        float64
	TotalPool         float64
	DividendPerMember float64
}
