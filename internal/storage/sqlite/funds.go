package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkalyan/chitfund/internal/models"
)

// CreateFund persists a fund together with its membership rows. The
// caller is expected to run this inside InTx when seeding round 1 and
// payments alongside.
func (s *SQLiteStore) CreateFund(ctx context.Context, fund *models.Fund, memberIDs []string) error {
	if fund.ID == "" {
		fund.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if fund.CreatedAt == 0 {
		fund.CreatedAt = now
	}
	if fund.StartDate == 0 {
		fund.StartDate = now
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO funds (id, name, creator_id, member_count, monthly_contribution,
		                    duration, current_round, commission_rate, start_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fund.ID, fund.Name, fund.CreatorID, fund.MemberCount, fund.MonthlyContribution,
		fund.Duration, fund.CurrentRound, fund.CommissionRate, fund.StartDate, fund.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fund: %w", err)
	}

	for _, memberID := range memberIDs {
		_, err = s.q.ExecContext(ctx,
			"INSERT INTO fund_members (fund_id, user_id) VALUES (?, ?)",
			fund.ID, memberID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fund member: %w", err)
		}
	}

	return nil
}

// GetFund retrieves a fund by ID.
func (s *SQLiteStore) GetFund(ctx context.Context, id string) (*models.Fund, error) {
	fund := &models.Fund{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, creator_id, member_count, monthly_contribution,
		        duration, current_round, commission_rate, start_date, created_at
		 FROM funds WHERE id = ?`,
		id,
	).Scan(&fund.ID, &fund.Name, &fund.CreatorID, &fund.MemberCount, &fund.MonthlyContribution,
		&fund.Duration, &fund.CurrentRound, &fund.CommissionRate, &fund.StartDate, &fund.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil // Fund not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}

	return fund, nil
}

// FundMemberIDs returns the IDs of all enrolled members, ordered for
// deterministic iteration.
func (s *SQLiteStore) FundMemberIDs(ctx context.Context, fundID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT user_id FROM fund_members WHERE fund_id = ? ORDER BY user_id",
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get fund members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fund member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fund members: %w", err)
	}

	return ids, nil
}

// IsFundMember reports whether the user is enrolled in the fund.
func (s *SQLiteStore) IsFundMember(ctx context.Context, fundID, userID string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx,
		"SELECT 1 FROM fund_members WHERE fund_id = ? AND user_id = ?",
		fundID, userID,
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return true, nil
}

// SetCurrentRound advances the fund's current round pointer. The guard
// keeps the pointer monotone even if an out-of-order update slips in.
func (s *SQLiteStore) SetCurrentRound(ctx context.Context, fundID string, round int) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE funds SET current_round = ? WHERE id = ? AND current_round <= ?",
		round, fundID, round,
	)
	if err != nil {
		return fmt.Errorf("failed to set current round: %w", err)
	}
	return nil
}
