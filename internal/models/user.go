package models

// User represents a registered chit fund member.
//
// Authentication lives in the embedding application; this core only needs
// a stable identity per caller. Users are never deleted while payments,
// bids, or rounds reference them.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique handle used to find and enroll members.
	Username string

	// FullName is the display name of the user.
	FullName string

	// MobileNumber is the user's contact number (unique).
	MobileNumber string

	// Savings is the running total of payouts and dividends the user has
	// received across all funds. Only round settlement mutates it.
	Savings float64

	// CreatedAt is the Unix timestamp when the user was registered.
	CreatedAt int64
}
