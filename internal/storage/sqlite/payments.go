package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkalyan/chitfund/internal/models"
)

const paymentColumns = `id, fund_id, round_id, user_id, amount, method,
	transaction_ref, status, paid_at, created_at`

// CreatePayment provisions a payment row, typically pending.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payments (id, fund_id, round_id, user_id, amount, method,
		                       transaction_ref, status, paid_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.FundID, payment.RoundID, payment.UserID, payment.Amount,
		payment.Method, payment.TransactionRef, payment.Status, payment.PaidAt, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.FundID, &p.RoundID, &p.UserID, &p.Amount, &p.Method,
		&p.TransactionRef, &p.Status, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPayment retrieves one member's payment for a round.
func (s *SQLiteStore) GetPayment(ctx context.Context, roundID, userID string) (*models.Payment, error) {
	payment, err := scanPayment(s.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE round_id = ? AND user_id = ?`,
		roundID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil // Payment not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// CompletePayment compare-and-sets a payment from pending to completed.
// Returns false when the payment was already completed (or missing), so
// the caller can treat repeats as a no-op.
func (s *SQLiteStore) CompletePayment(ctx context.Context, paymentID, method, transactionRef string, paidAt int64) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE payments
		 SET status = ?, method = ?, transaction_ref = ?, paid_at = ?
		 WHERE id = ? AND status = ?`,
		models.PaymentStatusCompleted, method, transactionRef, paidAt,
		paymentID, models.PaymentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete payment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check payment completion: %w", err)
	}
	return n > 0, nil
}

// ListCompletedPayments returns completed payments for a round, ordered
// by payment time.
func (s *SQLiteStore) ListCompletedPayments(ctx context.Context, roundID string) ([]*models.Payment, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE round_id = ? AND status = ?
		 ORDER BY paid_at, id`,
		roundID, models.PaymentStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}

// PooledAmount sums completed payment amounts for a round.
func (s *SQLiteStore) PooledAmount(ctx context.Context, roundID string) (float64, error) {
	var total float64
	err := s.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE round_id = ? AND status = ?",
		roundID, models.PaymentStatusCompleted,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum pooled amount: %w", err)
	}
	return total, nil
}
