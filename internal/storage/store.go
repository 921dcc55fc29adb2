// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"

	"github.com/mkalyan/chitfund/internal/models"
)

// Store defines the interface for ledger storage operations. The
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Read methods that look up a single row return (nil, nil) when the row
// does not exist; the service layer maps that to its NotFound error.
//
// Compare-and-set methods return false when the guarded row was not in
// the expected prior state. They are the storage half of the concurrency
// design: at most one settlement attempt per round can flip the round to
// completed, so a racing attempt fails cleanly instead of double-paying.
type Store interface {
	// InTx runs fn against a transactional view of the store. If fn
	// returns an error the transaction rolls back, otherwise it commits.
	// Nested calls reuse the ambient transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	// Users

	// CreateUser persists a new user, assigning ID/CreatedAt if unset.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUsersByIDs returns a map of user ID to user. Missing IDs are
	// omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	// AddSavings atomically increments a user's cumulative savings.
	AddSavings(ctx context.Context, userID string, delta float64) error

	// Funds

	// CreateFund persists a fund together with its membership rows.
	CreateFund(ctx context.Context, fund *models.Fund, memberIDs []string) error
	GetFund(ctx context.Context, id string) (*models.Fund, error)
	FundMemberIDs(ctx context.Context, fundID string) ([]string, error)
	IsFundMember(ctx context.Context, fundID, userID string) (bool, error)
	// SetCurrentRound advances the fund's current round pointer. The
	// pointer never moves backwards.
	SetCurrentRound(ctx context.Context, fundID string, round int) error

	// Rounds

	CreateRound(ctx context.Context, round *models.Round) error
	GetRound(ctx context.Context, id string) (*models.Round, error)
	GetRoundByNumber(ctx context.Context, fundID string, number int) (*models.Round, error)
	// ListCompletedRounds returns completed rounds, most recent first.
	ListCompletedRounds(ctx context.Context, fundID string) ([]*models.Round, error)
	// WinnerIDs returns the winners of all completed rounds of a fund.
	WinnerIDs(ctx context.Context, fundID string) ([]string, error)
	// TransitionRound compare-and-sets the round status.
	TransitionRound(ctx context.Context, roundID, from, to string) (bool, error)
	// CompleteRound compare-and-sets the round from the given status to
	// completed, recording winner, winning bid, dividend and end date.
	CompleteRound(ctx context.Context, roundID, from, winnerID string, winningBid, dividend float64, endDate int64) (bool, error)

	// Payments

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, roundID, userID string) (*models.Payment, error)
	// CompletePayment compare-and-sets a payment from pending to completed.
	CompletePayment(ctx context.Context, paymentID, method, transactionRef string, paidAt int64) (bool, error)
	ListCompletedPayments(ctx context.Context, roundID string) ([]*models.Payment, error)
	// PooledAmount sums completed payment amounts for a round.
	PooledAmount(ctx context.Context, roundID string) (float64, error)

	// Bids

	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, roundID, userID string) (*models.Bid, error)
	ListBids(ctx context.Context, roundID string) ([]*models.Bid, error)

	// Close releases any resources held by the store.
	Close() error
}
