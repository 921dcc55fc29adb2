package models

// Fund represents a rotating-savings group. Membership, contribution and
// duration are fixed at creation; one member wins each round, so Duration
// always equals MemberCount.
type Fund struct {
	// ID is the unique identifier for the fund (UUID format).
	ID string

	// Name is the display name of the fund (e.g. "Office Chit 2026").
	Name string

	// CreatorID is the user who organized the fund. The creator is always
	// enrolled as a member.
	CreatorID string

	// MemberCount is the number of enrolled members, fixed at creation.
	MemberCount int

	// MonthlyContribution is the amount each member owes per round.
	MonthlyContribution float64

	// Duration is the total number of rounds (== MemberCount).
	Duration int

	// CurrentRound is the active round number (1-based). It is monotone
	// non-decreasing and never exceeds Duration.
	CurrentRound int

	// CommissionRate is the fraction of the pool the organizer declares as
	// commission. Settlement does not deduct it; it is reported so members
	// can see the organizer's cut. See CommissionAmount.
	CommissionRate float64

	// StartDate is the Unix timestamp when the fund started (round 1 opened).
	StartDate int64

	// CreatedAt is the Unix timestamp when the fund was created.
	CreatedAt int64
}

// TotalPoolAmount returns the full per-round pool when every member has
// contributed.
func (f *Fund) TotalPoolAmount() float64 {
	return f.MonthlyContribution * float64(f.MemberCount)
}

// CommissionAmount returns the organizer's declared per-round commission.
func (f *Fund) CommissionAmount() float64 {
	return f.TotalPoolAmount() * f.CommissionRate
}
