package service

import "errors"

// Failure taxonomy for the chit fund core. Callers discriminate with
// errors.Is; every mutating operation rolls back fully before returning
// one of these, so none of them leaves partial writes behind.
var (
	// ErrValidation reports malformed or missing input, e.g. a member
	// count that does not match the fund duration.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState reports an operation attempted outside its valid
	// round status, e.g. bidding on a round that is not open.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidBid reports a bid at or above the pooled amount.
	ErrInvalidBid = errors.New("invalid bid")

	// ErrPaymentRequired reports a bid from a member who has not
	// completed their contribution for the round.
	ErrPaymentRequired = errors.New("payment required")

	// ErrAlreadyWon reports a bid from a member who already won a prior
	// round of the fund.
	ErrAlreadyWon = errors.New("already won a round")

	// ErrDuplicateBid reports a second bid in the same round.
	ErrDuplicateBid = errors.New("bid already placed")

	// ErrNotFound reports an unknown fund, round, user, or obligation.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a lost settlement race: another transaction
	// completed the round first.
	ErrConflict = errors.New("concurrent settlement conflict")
)
