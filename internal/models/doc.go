// Package models defines the core domain models for the chit fund ledger.
//
// # Entities
//
//   - User: a registered member; Savings accumulates payouts and dividends
//   - Fund: a rotating-savings group with fixed membership and duration
//   - Round: one contribution + bid + payout cycle within a fund
//   - Payment: one member's contribution obligation for one round
//   - Bid: one member's offer to accept a given payout for one round
//
// # Design Principles
//
//  1. **Typed views**: read paths return explicit structs (FundStatus,
//     WinningInfo) rather than ad-hoc maps
//  2. **Avoid circular references**: relationships are ID strings, never
//     pointers between models
//  3. **Forward-only statuses**: Round and Payment statuses only move
//     forward; the transition tables live next to the constants
//
// Timestamps are Unix seconds. Monetary amounts are float64, matching the
// ledger schema.
package models
