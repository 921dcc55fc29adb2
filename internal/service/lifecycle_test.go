package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mkalyan/chitfund/internal/models"
)

// TestFundRoundLifecycle drives one fund through its complete life:
// three members, 100/month, three rounds. Subtests run in order and
// share state, mirroring the fund's own progression.
func TestFundRoundLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	members := registerMembers(t, env, 3)
	m0, m1, m2 := members[0], members[1], members[2]

	fund, err := env.funds.CreateFund(ctx, m0, "Lifecycle Chit", []string{m1, m2}, 100, 3, 0)
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	round1, err := env.store.GetRoundByNumber(ctx, fund.ID, 1)
	if err != nil || round1 == nil {
		t.Fatalf("round 1 not found: %v", err)
	}

	savings := func(userID string) float64 {
		t.Helper()
		user, err := env.store.GetUserByID(ctx, userID)
		if err != nil || user == nil {
			t.Fatalf("user %s not found: %v", userID, err)
		}
		return user.Savings
	}

	t.Run("bid rejected while pool is empty", func(t *testing.T) {
		_, err := env.bids.PlaceBid(ctx, m0, fund.ID, round1.ID, 80)
		if !errors.Is(err, ErrInvalidBid) {
			t.Errorf("error = %v, want ErrInvalidBid", err)
		}
	})

	t.Run("round 1 contributions pool up", func(t *testing.T) {
		for _, id := range []string{m0, m1} {
			if _, err := env.payments.RecordPayment(ctx, id, fund.ID, round1.ID, models.PaymentMethodUPI, "txn-"+id[:8]); err != nil {
				t.Fatalf("RecordPayment failed: %v", err)
			}
		}
		pooled, err := env.payments.PooledAmount(ctx, fund.ID, round1.ID)
		if err != nil {
			t.Fatalf("PooledAmount failed: %v", err)
		}
		if pooled != 200 {
			t.Errorf("pooled = %v, want 200", pooled)
		}
	})

	t.Run("unpaid member cannot bid", func(t *testing.T) {
		// m2 has not paid; the pool (200) exceeds the bid, so the
		// payment check is what rejects it.
		_, err := env.bids.PlaceBid(ctx, m2, fund.ID, round1.ID, 80)
		if !errors.Is(err, ErrPaymentRequired) {
			t.Errorf("error = %v, want ErrPaymentRequired", err)
		}
	})

	t.Run("last contribution completes the pool", func(t *testing.T) {
		result, err := env.payments.RecordPayment(ctx, m2, fund.ID, round1.ID, models.PaymentMethodBankTransfer, "")
		if err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if result.RoundCompleted {
			t.Error("round 1 must not settle on payment; it settles on bids")
		}
		allPaid, err := env.payments.AllMembersPaid(ctx, fund.ID, round1.ID)
		if err != nil {
			t.Fatalf("AllMembersPaid failed: %v", err)
		}
		if !allPaid {
			t.Error("expected all members paid")
		}
	})

	t.Run("repeat payment is a no-op", func(t *testing.T) {
		result, err := env.payments.RecordPayment(ctx, m2, fund.ID, round1.ID, models.PaymentMethodCash, "")
		if err != nil {
			t.Fatalf("repeat RecordPayment failed: %v", err)
		}
		if result.Payment.Status != models.PaymentStatusCompleted {
			t.Errorf("payment status = %s, want completed", result.Payment.Status)
		}
		pooled, err := env.payments.PooledAmount(ctx, fund.ID, round1.ID)
		if err != nil {
			t.Fatalf("PooledAmount failed: %v", err)
		}
		if pooled != 300 {
			t.Errorf("pooled = %v, want 300 (no double count)", pooled)
		}
	})

	t.Run("bid equal to the pool is rejected", func(t *testing.T) {
		_, err := env.bids.PlaceBid(ctx, m0, fund.ID, round1.ID, 300)
		if !errors.Is(err, ErrInvalidBid) {
			t.Errorf("error = %v, want ErrInvalidBid", err)
		}
	})

	t.Run("nonpositive bid is rejected", func(t *testing.T) {
		_, err := env.bids.PlaceBid(ctx, m0, fund.ID, round1.ID, -5)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("round 1 settles on the final bid", func(t *testing.T) {
		out, err := env.bids.PlaceBid(ctx, m0, fund.ID, round1.ID, 80)
		if err != nil {
			t.Fatalf("PlaceBid failed: %v", err)
		}
		if out.RoundCompleted || out.BidsReceived != 1 || out.BidsExpected != 3 {
			t.Errorf("after first bid: completed=%v received=%d expected=%d",
				out.RoundCompleted, out.BidsReceived, out.BidsExpected)
		}

		if _, err := env.bids.PlaceBid(ctx, m1, fund.ID, round1.ID, 90); err != nil {
			t.Fatalf("PlaceBid failed: %v", err)
		}

		// A second bid from the same member is rejected.
		if _, err := env.bids.PlaceBid(ctx, m1, fund.ID, round1.ID, 85); !errors.Is(err, ErrDuplicateBid) {
			t.Errorf("error = %v, want ErrDuplicateBid", err)
		}

		out, err = env.bids.PlaceBid(ctx, m2, fund.ID, round1.ID, 95)
		if err != nil {
			t.Fatalf("final PlaceBid failed: %v", err)
		}
		if !out.RoundCompleted {
			t.Fatal("expected final bid to settle the round")
		}

		// Lowest bid 80 wins; dividend (300-80)/2 = 110 each.
		if out.Settlement.WinnerID != m0 {
			t.Errorf("winner = %s, want %s", out.Settlement.WinnerID, m0)
		}
		if math.Abs(out.Settlement.WinningBid-80) > 0.01 {
			t.Errorf("winning bid = %v, want 80", out.Settlement.WinningBid)
		}
		if math.Abs(out.Settlement.DividendPerMember-110) > 0.01 {
			t.Errorf("dividend = %v, want 110", out.Settlement.DividendPerMember)
		}

		if got := savings(m0); math.Abs(got-80) > 0.01 {
			t.Errorf("winner savings = %v, want 80", got)
		}
		if got := savings(m1); math.Abs(got-110) > 0.01 {
			t.Errorf("m1 savings = %v, want 110", got)
		}
		if got := savings(m2); math.Abs(got-110) > 0.01 {
			t.Errorf("m2 savings = %v, want 110", got)
		}
	})

	t.Run("round 2 provisioned for every member", func(t *testing.T) {
		got, err := env.store.GetFund(ctx, fund.ID)
		if err != nil {
			t.Fatalf("GetFund failed: %v", err)
		}
		if got.CurrentRound != 2 {
			t.Errorf("current round = %d, want 2", got.CurrentRound)
		}

		round2, err := env.store.GetRoundByNumber(ctx, fund.ID, 2)
		if err != nil || round2 == nil {
			t.Fatalf("round 2 not found: %v", err)
		}
		if round2.Status != models.RoundStatusUpcoming {
			t.Errorf("round 2 status = %s, want upcoming", round2.Status)
		}

		// Winner keeps contributing: all three get pending payments.
		for _, id := range members {
			payment, err := env.store.GetPayment(ctx, round2.ID, id)
			if err != nil || payment == nil {
				t.Fatalf("round 2 payment for %s missing: %v", id, err)
			}
			if payment.Status != models.PaymentStatusPending {
				t.Errorf("round 2 payment status = %s, want pending", payment.Status)
			}
		}
	})

	t.Run("settled round cannot take payments or bids", func(t *testing.T) {
		if _, err := env.payments.RecordPayment(ctx, m0, fund.ID, round1.ID, models.PaymentMethodUPI, ""); !errors.Is(err, ErrInvalidState) {
			t.Errorf("payment on completed round: error = %v, want ErrInvalidState", err)
		}
		if _, err := env.bids.PlaceBid(ctx, m1, fund.ID, round1.ID, 50); !errors.Is(err, ErrInvalidState) {
			t.Errorf("bid on completed round: error = %v, want ErrInvalidState", err)
		}
	})

	var round2 *models.Round
	t.Run("round 2 opens when fully paid", func(t *testing.T) {
		var err error
		round2, err = env.store.GetRoundByNumber(ctx, fund.ID, 2)
		if err != nil || round2 == nil {
			t.Fatalf("round 2 not found: %v", err)
		}

		// Bidding on an upcoming round is an invalid state.
		if _, err := env.bids.PlaceBid(ctx, m1, fund.ID, round2.ID, 50); !errors.Is(err, ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}

		var opened bool
		for _, id := range members {
			result, err := env.payments.RecordPayment(ctx, id, fund.ID, round2.ID, models.PaymentMethodUPI, "")
			if err != nil {
				t.Fatalf("RecordPayment failed: %v", err)
			}
			opened = opened || result.BiddingOpened
		}
		if !opened {
			t.Error("expected the last contribution to open bidding")
		}
	})

	t.Run("previous winner cannot bid again", func(t *testing.T) {
		_, err := env.bids.PlaceBid(ctx, m0, fund.ID, round2.ID, 120)
		if !errors.Is(err, ErrAlreadyWon) {
			t.Errorf("error = %v, want ErrAlreadyWon", err)
		}
	})

	t.Run("round 2 settles among the remaining members", func(t *testing.T) {
		if _, err := env.bids.PlaceBid(ctx, m1, fund.ID, round2.ID, 150); err != nil {
			t.Fatalf("PlaceBid failed: %v", err)
		}
		out, err := env.bids.PlaceBid(ctx, m2, fund.ID, round2.ID, 160)
		if err != nil {
			t.Fatalf("PlaceBid failed: %v", err)
		}
		if !out.RoundCompleted {
			t.Fatal("expected round 2 to settle: both eligible members have bid")
		}
		if out.Settlement.WinnerID != m1 {
			t.Errorf("winner = %s, want %s", out.Settlement.WinnerID, m1)
		}

		// Dividend (300-150)/2 = 75 goes to the other paid members,
		// the round 1 winner included.
		if math.Abs(out.Settlement.DividendPerMember-75) > 0.01 {
			t.Errorf("dividend = %v, want 75", out.Settlement.DividendPerMember)
		}
		if got := savings(m0); math.Abs(got-155) > 0.01 {
			t.Errorf("m0 savings = %v, want 155 (80 + 75)", got)
		}
		if got := savings(m1); math.Abs(got-260) > 0.01 {
			t.Errorf("m1 savings = %v, want 260 (110 + 150)", got)
		}
	})

	t.Run("terminal round settles on the last payment", func(t *testing.T) {
		round3, err := env.store.GetRoundByNumber(ctx, fund.ID, 3)
		if err != nil || round3 == nil {
			t.Fatalf("round 3 not found: %v", err)
		}
		if round3.Status != models.RoundStatusUpcoming {
			t.Errorf("round 3 status = %s, want upcoming", round3.Status)
		}

		var final *PaymentResult
		for _, id := range members {
			result, err := env.payments.RecordPayment(ctx, id, fund.ID, round3.ID, models.PaymentMethodUPI, "")
			if err != nil {
				t.Fatalf("RecordPayment failed: %v", err)
			}
			if result.RoundCompleted {
				final = result
			}
		}
		if final == nil {
			t.Fatal("expected the last contribution to settle the terminal round")
		}

		// The one member who never won takes the full pool, no bidding.
		if final.Settlement.WinnerID != m2 {
			t.Errorf("terminal winner = %s, want %s", final.Settlement.WinnerID, m2)
		}
		if math.Abs(final.Settlement.WinningBid-300) > 0.01 {
			t.Errorf("terminal payout = %v, want full pool 300", final.Settlement.WinningBid)
		}
		if final.Settlement.DividendPerMember != 0 {
			t.Errorf("terminal dividend = %v, want 0", final.Settlement.DividendPerMember)
		}

		got, err := env.store.GetFund(ctx, fund.ID)
		if err != nil {
			t.Fatalf("GetFund failed: %v", err)
		}
		if got.CurrentRound != 3 {
			t.Errorf("current round = %d, want 3 (bounded by duration)", got.CurrentRound)
		}
	})

	t.Run("funds are conserved across the whole fund", func(t *testing.T) {
		// Three rounds of 300 pooled, all distributed back to members.
		total := savings(m0) + savings(m1) + savings(m2)
		if math.Abs(total-900) > 0.01 {
			t.Errorf("total savings = %v, want 900", total)
		}
	})

	t.Run("winning info for settled rounds", func(t *testing.T) {
		info, err := env.funds.GetRoundWinningInfo(ctx, round1.ID)
		if err != nil {
			t.Fatalf("GetRoundWinningInfo failed: %v", err)
		}
		if info.WinnerID != m0 || math.Abs(info.WinningBid-80) > 0.01 {
			t.Errorf("round 1 info = %+v, want winner %s at 80", info, m0)
		}
		if math.Abs(info.TotalPool-300) > 0.01 {
			t.Errorf("round 1 pool = %v, want 300", info.TotalPool)
		}
		if info.WinnerName == "" {
			t.Error("winner name should be resolved")
		}
	})

	t.Run("fund history lists settled rounds", func(t *testing.T) {
		status, err := env.funds.GetFundStatus(ctx, fund.ID, m0)
		if err != nil {
			t.Fatalf("GetFundStatus failed: %v", err)
		}
		if len(status.PreviousRounds) != 3 {
			t.Fatalf("previous rounds = %d, want 3", len(status.PreviousRounds))
		}
		// Most recent first.
		if status.PreviousRounds[0].RoundNumber != 3 {
			t.Errorf("first history entry = round %d, want 3", status.PreviousRounds[0].RoundNumber)
		}
	})
}

// TestAuctionWaitsForEveryMember pins down that a round cannot settle
// while a member still owes their contribution: the expected bidder set
// comes from the membership, not from whoever happens to have paid.
func TestAuctionWaitsForEveryMember(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	members := registerMembers(t, env, 3)
	m0, m1, m2 := members[0], members[1], members[2]

	fund, err := env.funds.CreateFund(ctx, m0, "Patience Chit", []string{m1, m2}, 100, 3, 0)
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	round1, err := env.store.GetRoundByNumber(ctx, fund.ID, 1)
	if err != nil || round1 == nil {
		t.Fatalf("round 1 not found: %v", err)
	}

	// Two of three members pay and bid; the third does neither.
	for _, id := range []string{m0, m1} {
		if _, err := env.payments.RecordPayment(ctx, id, fund.ID, round1.ID, models.PaymentMethodUPI, ""); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
	}
	if _, err := env.bids.PlaceBid(ctx, m0, fund.ID, round1.ID, 80); err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}
	out, err := env.bids.PlaceBid(ctx, m1, fund.ID, round1.ID, 90)
	if err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}

	if out.RoundCompleted {
		t.Fatal("round settled with a member unpaid")
	}
	if out.BidsReceived != 2 || out.BidsExpected != 3 {
		t.Errorf("bids received/expected = %d/%d, want 2/3", out.BidsReceived, out.BidsExpected)
	}

	round, err := env.store.GetRound(ctx, round1.ID)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if round.Status != models.RoundStatusBidding {
		t.Errorf("round status = %s, want bidding (auction still open)", round.Status)
	}
	for _, id := range members {
		user, err := env.store.GetUserByID(ctx, id)
		if err != nil || user == nil {
			t.Fatalf("user %s not found: %v", id, err)
		}
		if user.Savings != 0 {
			t.Errorf("savings for %s = %v, want 0 before settlement", id, user.Savings)
		}
	}

	// Once the last member pays and bids, the round settles over the
	// full 300 pool and round 2 is provisioned for all three members.
	if _, err := env.payments.RecordPayment(ctx, m2, fund.ID, round1.ID, models.PaymentMethodUPI, ""); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	out, err = env.bids.PlaceBid(ctx, m2, fund.ID, round1.ID, 95)
	if err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}
	if !out.RoundCompleted {
		t.Fatal("expected the last member's bid to settle the round")
	}
	if math.Abs(out.Settlement.DividendPerMember-110) > 0.01 {
		t.Errorf("dividend = %v, want 110 over the full pool", out.Settlement.DividendPerMember)
	}

	round2, err := env.store.GetRoundByNumber(ctx, fund.ID, 2)
	if err != nil || round2 == nil {
		t.Fatalf("round 2 not found: %v", err)
	}
	for _, id := range members {
		payment, err := env.store.GetPayment(ctx, round2.ID, id)
		if err != nil || payment == nil {
			t.Fatalf("round 2 payment for %s missing: %v", id, err)
		}
	}
}

func TestGetRoundWinningInfoErrors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	members := registerMembers(t, env, 2)

	fund, err := env.funds.CreateFund(ctx, members[0], "Pair Chit", members[1:], 100, 2, 0)
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	round, err := env.store.GetRoundByNumber(ctx, fund.ID, 1)
	if err != nil || round == nil {
		t.Fatalf("round 1 not found: %v", err)
	}

	t.Run("unsettled round", func(t *testing.T) {
		_, err := env.funds.GetRoundWinningInfo(ctx, round.ID)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("unknown round", func(t *testing.T) {
		_, err := env.funds.GetRoundWinningInfo(ctx, "no-such-round")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("unknown fund on payment", func(t *testing.T) {
		_, err := env.payments.RecordPayment(ctx, members[0], "no-such-fund", round.ID, models.PaymentMethodUPI, "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("non-member payment", func(t *testing.T) {
		outsider, err := env.funds.RegisterUser(ctx, "stray", "Stray Member", "9222222222")
		if err != nil {
			t.Fatalf("RegisterUser failed: %v", err)
		}
		_, err = env.payments.RecordPayment(ctx, outsider.ID, fund.ID, round.ID, models.PaymentMethodUPI, "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}
