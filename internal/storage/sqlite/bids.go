package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkalyan/chitfund/internal/models"
)

// CreateBid persists a new bid. The (round_id, user_id) unique index is
// the backstop for the one-bid-per-member rule.
func (s *SQLiteStore) CreateBid(ctx context.Context, bid *models.Bid) error {
	if bid.ID == "" {
		bid.ID = uuid.New().String()
	}
	if bid.CreatedAt == 0 {
		bid.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO bids (id, fund_id, round_id, user_id, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		bid.ID, bid.FundID, bid.RoundID, bid.UserID, bid.Amount, bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}

	return nil
}

// GetBid retrieves one member's bid for a round.
func (s *SQLiteStore) GetBid(ctx context.Context, roundID, userID string) (*models.Bid, error) {
	bid := &models.Bid{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, fund_id, round_id, user_id, amount, created_at
		 FROM bids WHERE round_id = ? AND user_id = ?`,
		roundID, userID,
	).Scan(&bid.ID, &bid.FundID, &bid.RoundID, &bid.UserID, &bid.Amount, &bid.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil // Bid not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	return bid, nil
}

// ListBids returns all bids for a round in placement order.
func (s *SQLiteStore) ListBids(ctx context.Context, roundID string) ([]*models.Bid, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, fund_id, round_id, user_id, amount, created_at
		 FROM bids WHERE round_id = ? ORDER BY created_at, id`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		bid := &models.Bid{}
		if err := rows.Scan(&bid.ID, &bid.FundID, &bid.RoundID, &bid.UserID, &bid.Amount, &bid.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bids: %w", err)
	}

	return bids, nil
}
