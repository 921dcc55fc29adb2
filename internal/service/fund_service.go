package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mkalyan/chitfund/internal/cache"
	"github.com/mkalyan/chitfund/internal/models"
	"github.com/mkalyan/chitfund/internal/storage"
)

// FundService creates funds, enrolls members, and serves the typed read
// views consumed by the embedding layer.
type FundService struct {
	store storage.Store
	cache *cache.Cache
}

// NewFundService creates a new FundService with the given storage
// backend and (optional) view cache.
func NewFundService(store storage.Store, c *cache.Cache) *FundService {
	return &FundService{store: store, cache: c}
}

// RegisterUser provisions a member identity. Credentials are the
// embedding application's concern; this core only stores the identity
// fields settlement needs.
func (s *FundService) RegisterUser(ctx context.Context, username, fullName, mobileNumber string) (*models.User, error) {
	username = strings.TrimSpace(username)
	fullName = strings.TrimSpace(fullName)
	mobileNumber = strings.TrimSpace(mobileNumber)
	if username == "" || fullName == "" || mobileNumber == "" {
		return nil, fmt.Errorf("%w: username, full name and mobile number are required", ErrValidation)
	}

	user := &models.User{
		Username:     username,
		FullName:     fullName,
		MobileNumber: mobileNumber,
	}

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		existing, err := tx.GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: username %q is taken", ErrValidation, username)
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		slog.Warn("RegisterUser failed", "username", username, "error", err)
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID, "username", username)
	return user, nil
}

// CreateFund creates a fund, enrolls the members (creator included),
// opens round 1 for bidding, and provisions a pending contribution for
// every member — all in one transaction.
//
// One member wins per round, so the member count must equal the duration.
func (s *FundService) CreateFund(ctx context.Context, creatorID, name string, memberIDs []string, monthlyContribution float64, duration int, commissionRate float64) (*models.Fund, error) {
	slog.Info("CreateFund received",
		"creator_id", creatorID,
		"name", name,
		"members_count", len(memberIDs),
		"duration", duration,
	)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: fund name is required", ErrValidation)
	}
	if monthlyContribution <= 0 {
		return nil, fmt.Errorf("%w: monthly contribution must be positive", ErrValidation)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if commissionRate < 0 || commissionRate >= 1 {
		return nil, fmt.Errorf("%w: commission rate must be in [0, 1)", ErrValidation)
	}

	// Creator is always enrolled; dedupe before the count check.
	seen := map[string]bool{creatorID: true}
	members := []string{creatorID}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	sort.Strings(members)

	if len(members) != duration {
		return nil, fmt.Errorf("%w: member count (%d) must match duration (%d)", ErrValidation, len(members), duration)
	}

	fund := &models.Fund{
		Name:                name,
		CreatorID:           creatorID,
		MemberCount:         len(members),
		MonthlyContribution: monthlyContribution,
		Duration:            duration,
		CurrentRound:        1,
		CommissionRate:      commissionRate,
	}

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		users, err := tx.GetUsersByIDs(ctx, members)
		if err != nil {
			return err
		}
		for _, id := range members {
			if users[id] == nil {
				return fmt.Errorf("%w: user %s", ErrNotFound, id)
			}
		}

		if err := tx.CreateFund(ctx, fund, members); err != nil {
			return err
		}

		first := &models.Round{
			FundID:      fund.ID,
			RoundNumber: 1,
			Status:      models.RoundStatusBidding,
		}
		if err := tx.CreateRound(ctx, first); err != nil {
			return err
		}

		for _, id := range members {
			if err := tx.CreatePayment(ctx, &models.Payment{
				FundID:  fund.ID,
				RoundID: first.ID,
				UserID:  id,
				Amount:  monthlyContribution,
				Status:  models.PaymentStatusPending,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("CreateFund failed", "name", name, "error", err)
		return nil, err
	}

	slog.Info("Fund created",
		"fund_id", fund.ID,
		"name", name,
		"member_count", fund.MemberCount,
		"contribution", monthlyContribution,
	)
	return fund, nil
}

// GetFundStatus returns one member's view of a fund: the active round,
// their payment status, whether they can bid, the pooled amount, and the
// fund's completed history.
func (s *FundService) GetFundStatus(ctx context.Context, fundID, userID string) (*models.FundStatus, error) {
	key := cache.FundStatusKey(fundID, userID)
	cached := &models.FundStatus{}
	if hit, err := s.cache.Get(ctx, key, cached); err != nil {
		slog.Warn("Fund status cache read failed", "fund_id", fundID, "error", err)
	} else if hit {
		return cached, nil
	}

	status := &models.FundStatus{}
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		fund, err := tx.GetFund(ctx, fundID)
		if err != nil {
			return err
		}
		if fund == nil {
			return fmt.Errorf("%w: fund %s", ErrNotFound, fundID)
		}

		member, err := tx.IsFundMember(ctx, fund.ID, userID)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("%w: user %s is not a member of fund %s", ErrNotFound, userID, fundID)
		}

		status.FundID = fund.ID
		status.Name = fund.Name
		status.MemberCount = fund.MemberCount
		status.MonthlyContribution = fund.MonthlyContribution
		status.Duration = fund.Duration
		status.CommissionRate = fund.CommissionRate
		status.CommissionAmount = fund.CommissionAmount()
		status.CurrentRound = fund.CurrentRound

		round, err := tx.GetRoundByNumber(ctx, fund.ID, fund.CurrentRound)
		if err != nil {
			return err
		}
		if round != nil {
			status.CurrentRoundID = round.ID
			status.CurrentRoundStatus = round.Status

			status.TotalPooled, err = tx.PooledAmount(ctx, round.ID)
			if err != nil {
				return err
			}

			payment, err := tx.GetPayment(ctx, round.ID, userID)
			if err != nil {
				return err
			}
			if payment != nil {
				status.PaymentStatus = payment.Status
			}

			status.CanBid, err = canBid(ctx, tx, fund, round, userID, payment)
			if err != nil {
				return err
			}
		}

		status.PreviousRounds, err = previousRounds(ctx, tx, fund)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, status); err != nil {
		slog.Warn("Fund status cache write failed", "fund_id", fundID, "error", err)
	}
	return status, nil
}

// GetRoundWinningInfo returns the outcome of a completed round.
func (s *FundService) GetRoundWinningInfo(ctx context.Context, roundID string) (*models.WinningInfo, error) {
	key := cache.WinningInfoKey(roundID)
	cached := &models.WinningInfo{}
	if hit, err := s.cache.Get(ctx, key, cached); err != nil {
		slog.Warn("Winning info cache read failed", "round_id", roundID, "error", err)
	} else if hit {
		return cached, nil
	}

	info := &models.WinningInfo{}
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		round, err := tx.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		if round == nil {
			return fmt.Errorf("%w: round %s", ErrNotFound, roundID)
		}
		if !round.Completed() {
			return fmt.Errorf("%w: round %d has no winner yet", ErrInvalidState, round.RoundNumber)
		}

		pool, err := tx.PooledAmount(ctx, round.ID)
		if err != nil {
			return err
		}

		info.RoundID = round.ID
		info.RoundNumber = round.RoundNumber
		info.WinnerID = round.WinnerID
		info.WinningBid = round.WinningBid
		info.TotalPool = pool
		info.DividendPerMember = round.DividendPerMember

		winner, err := tx.GetUserByID(ctx, round.WinnerID)
		if err != nil {
			return err
		}
		if winner != nil {
			info.WinnerName = winner.Username
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Completed rounds are immutable, so caching the outcome is safe.
	if err := s.cache.Set(ctx, key, info); err != nil {
		slog.Warn("Winning info cache write failed", "round_id", roundID, "error", err)
	}
	return info, nil
}

// canBid mirrors the PlaceBid validation ladder without mutating: open
// round, everyone paid, caller paid, no bid yet, never won.
func canBid(ctx context.Context, tx storage.Store, fund *models.Fund, round *models.Round, userID string, payment *models.Payment) (bool, error) {
	if round.Status != models.RoundStatusBidding {
		return false, nil
	}
	if payment == nil || payment.Status != models.PaymentStatusCompleted {
		return false, nil
	}

	completed, err := tx.ListCompletedPayments(ctx, round.ID)
	if err != nil {
		return false, err
	}
	if len(completed) < fund.MemberCount {
		return false, nil
	}

	existing, err := tx.GetBid(ctx, round.ID, userID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	winners, err := tx.WinnerIDs(ctx, fund.ID)
	if err != nil {
		return false, err
	}
	for _, id := range winners {
		if id == userID {
			return false, nil
		}
	}
	return true, nil
}

func previousRounds(ctx context.Context, tx storage.Store, fund *models.Fund) ([]models.RoundSummary, error) {
	rounds, err := tx.ListCompletedRounds(ctx, fund.ID)
	if err != nil {
		return nil, err
	}

	winnerIDs := make([]string, 0, len(rounds))
	for _, r := range rounds {
		if r.WinnerID != "" {
			winnerIDs = append(winnerIDs, r.WinnerID)
		}
	}
	winners, err := tx.GetUsersByIDs(ctx, winnerIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.RoundSummary, 0, len(rounds))
	for _, r := range rounds {
		summary := models.RoundSummary{
			RoundID:           r.ID,
			RoundNumber:       r.RoundNumber,
			WinnerID:          r.WinnerID,
			WinningBid:        r.WinningBid,
			DividendPerMember: r.DividendPerMember,
			EndDate:           r.EndDate,
		}
		if w := winners[r.WinnerID]; w != nil {
			summary.WinnerName = w.Username
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
