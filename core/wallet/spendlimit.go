// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// Rolling daily spend allowance. The window reset is lazy: no clock tick
// rewrites the state, the effective allowance is re-derived from the
// stored reset timestamp on every read and every spend.

package wallet

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidAmount    = errors.New("Invalid amount")
	ErrExceedDailyLimit = errors.New("Exceed daily limit")
)

// SpendLimitInfo is the read-only projection of the spend-limit state.
type SpendLimitInfo struct {
	Limit     *big.Int
	Available *big.Int
	ResetTime uint64
	Enabled   bool
}

// spendLimitState is the stored allowance state. available never exceeds
// limit while enforcement is enabled.
type spendLimitState struct {
	limit     *uint256.Int
	available *uint256.Int
	resetTime uint64
	enabled   bool
}

func newSpendLimitState() spendLimitState {
	return spendLimitState{
		limit:     uint256.NewInt(0),
		available: uint256.NewInt(0),
	}
}

// rolled derives the effective state at time now: once the stored window
// has elapsed, the allowance is replenished to the limit and the window
// advanced by one further period. It returns an independent copy, shared
// by the read path and the spend path so the two can never diverge.
func (s spendLimitState) rolled(now, period uint64) spendLimitState {
	out := spendLimitState{
		limit:     s.limit.Clone(),
		available: s.available.Clone(),
		resetTime: s.resetTime,
		enabled:   s.enabled,
	}
	if out.enabled && out.resetTime != 0 && now > out.resetTime {
		out.available = out.limit.Clone()
		out.resetTime = now + period
	}
	return out
}

// EnableSpendLimit turns enforcement on. Owner only. Limit and allowance
// stay at zero until a limit is configured.
func (a *Account) EnableSpendLimit(caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner {
		return ErrOnlyOwner
	}
	a.spendLimit.enabled = true
	return nil
}

// SetSpendingLimit configures the rolling allowance: limit and available
// are set to amount and a fresh window starts now. Owner only; a zero or
// negative amount is rejected. Any prior limit state is overwritten.
func (a *Account) SetSpendingLimit(caller common.Address, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner {
		return ErrOnlyOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrInvalidAmount
	}
	a.spendLimit.limit = v.Clone()
	a.spendLimit.available = v.Clone()
	a.spendLimit.resetTime = a.now() + a.spendPeriod
	return nil
}

// RemoveSpendingLimit zeroes the limit state and disables enforcement.
// Owner only.
func (a *Account) RemoveSpendingLimit(caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner {
		return ErrOnlyOwner
	}
	a.spendLimit = newSpendLimitState()
	return nil
}

// GetLimitInfo returns the effective spend-limit state at the current
// time. The lazy window reset is computed at read time without a write.
func (a *Account) GetLimitInfo() SpendLimitInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.spendLimit.rolled(a.now(), a.spendPeriod)
	return SpendLimitInfo{
		Limit:     s.limit.ToBig(),
		Available: s.available.ToBig(),
		ResetTime: s.resetTime,
		Enabled:   s.enabled,
	}
}
