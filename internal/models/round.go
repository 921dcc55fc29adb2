package models

// Round statuses. Transitions only move forward; see RoundCanTransition.
const (
	RoundStatusUpcoming  = "upcoming"
	RoundStatusBidding   = "bidding"
	RoundStatusCompleted = "completed"
)

// roundTransitions lists the allowed forward transitions per status.
// A fund's terminal round settles without bidding, so upcoming can move
// straight to completed.
var roundTransitions = map[string][]string{
	RoundStatusUpcoming: {RoundStatusBidding, RoundStatusCompleted},
	RoundStatusBidding:  {RoundStatusCompleted},
}

// RoundCanTransition reports whether a round may move from one status to
// another. Completed is terminal.
func RoundCanTransition(from, to string) bool {
	for _, s := range roundTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Round represents one contribution + bid + payout cycle of a fund.
type Round struct {
	// ID is the unique identifier for the round (UUID format).
	ID string

	// FundID is the fund this round belongs to.
	FundID string

	// RoundNumber is the 1-based sequence number, unique per fund.
	RoundNumber int

	// Status is one of the RoundStatus* constants.
	Status string

	// WinnerID is the member who won this round. Set exactly once, at
	// completion; empty before that.
	WinnerID string

	// WinningBid is the payout amount the winner accepted.
	WinningBid float64

	// DividendPerMember is the amount each other paid member received.
	DividendPerMember float64

	// StartDate is the Unix timestamp when the round was opened.
	StartDate int64

	// EndDate is the Unix timestamp when the round completed (0 until then).
	EndDate int64
}

// Completed reports whether the round has been settled.
func (r *Round) Completed() bool {
	return r.Status == RoundStatusCompleted
}
