package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkalyan/chitfund/internal/models"
)

const roundColumns = `id, fund_id, round_number, status, winner_id,
	winning_bid, dividend_per_member, start_date, end_date`

// CreateRound persists a new round.
func (s *SQLiteStore) CreateRound(ctx context.Context, round *models.Round) error {
	if round.ID == "" {
		round.ID = uuid.New().String()
	}
	if round.StartDate == 0 {
		round.StartDate = time.Now().Unix()
	}
	if round.Status == "" {
		round.Status = models.RoundStatusUpcoming
	}

	var winnerID any
	if round.WinnerID != "" {
		winnerID = round.WinnerID
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO rounds (id, fund_id, round_number, status, winner_id,
		                     winning_bid, dividend_per_member, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.FundID, round.RoundNumber, round.Status, winnerID,
		round.WinningBid, round.DividendPerMember, round.StartDate, round.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}

	return nil
}

func scanRound(row interface{ Scan(...any) error }) (*models.Round, error) {
	round := &models.Round{}
	var winnerID sql.NullString
	err := row.Scan(&round.ID, &round.FundID, &round.RoundNumber, &round.Status, &winnerID,
		&round.WinningBid, &round.DividendPerMember, &round.StartDate, &round.EndDate)
	if err != nil {
		return nil, err
	}
	if winnerID.Valid {
		round.WinnerID = winnerID.String
	}
	return round, nil
}

// GetRound retrieves a round by ID.
func (s *SQLiteStore) GetRound(ctx context.Context, id string) (*models.Round, error) {
	round, err := scanRound(s.q.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil // Round not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// GetRoundByNumber retrieves a fund's round by its sequence number.
func (s *SQLiteStore) GetRoundByNumber(ctx context.Context, fundID string, number int) (*models.Round, error) {
	round, err := scanRound(s.q.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE fund_id = ? AND round_number = ?`,
		fundID, number,
	))
	if err == sql.ErrNoRows {
		return nil, nil // Round not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round by number: %w", err)
	}
	return round, nil
}

// ListCompletedRounds returns completed rounds, most recent first.
func (s *SQLiteStore) ListCompletedRounds(ctx context.Context, fundID string) ([]*models.Round, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds
		 WHERE fund_id = ? AND status = ?
		 ORDER BY round_number DESC`,
		fundID, models.RoundStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rounds: %w", err)
	}

	return rounds, nil
}

// WinnerIDs returns the winners of all completed rounds of a fund.
func (s *SQLiteStore) WinnerIDs(ctx context.Context, fundID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT winner_id FROM rounds
		 WHERE fund_id = ? AND status = ? AND winner_id IS NOT NULL`,
		fundID, models.RoundStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winners: %w", err)
	}

	return ids, nil
}

// TransitionRound compare-and-sets the round status. Returns false when
// the round was not in the expected prior status, and errors when the
// transition itself is not a legal forward move.
func (s *SQLiteStore) TransitionRound(ctx context.Context, roundID, from, to string) (bool, error) {
	if !models.RoundCanTransition(from, to) {
		return false, fmt.Errorf("round cannot move from %s to %s", from, to)
	}

	res, err := s.q.ExecContext(ctx,
		"UPDATE rounds SET status = ? WHERE id = ? AND status = ?",
		to, roundID, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition round: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check round transition: %w", err)
	}
	return n > 0, nil
}

// CompleteRound compare-and-sets the round from the given status to
// completed, recording the settlement outcome. The status guard is what
// makes settlement single-shot: a concurrent attempt that lost the race
// updates zero rows.
func (s *SQLiteStore) CompleteRound(ctx context.Context, roundID, from, winnerID string, winningBid, dividend float64, endDate int64) (bool, error) {
	if !models.RoundCanTransition(from, models.RoundStatusCompleted) {
		return false, fmt.Errorf("round cannot complete from %s", from)
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE rounds
		 SET status = ?, winner_id = ?, winning_bid = ?, dividend_per_member = ?, end_date = ?
		 WHERE id = ? AND status = ?`,
		models.RoundStatusCompleted, winnerID, winningBid, dividend, endDate,
		roundID, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete round: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check round completion: %w", err)
	}
	return n > 0, nil
}
