// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// Guardian-mediated ownership recovery: a designated guardian may initiate
// an ownership transfer, which only takes effect after a mandatory
// confirmation delay during which the current owner can cancel.

package wallet

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrMsgSenderInvalid          = errors.New("msg sender invalid")
	ErrRequestInvalid            = errors.New("request invalid")
	ErrConfirmationTimeNotPassed = errors.New("recovery confirmation time not passed")
)

// RecoveryRequest is a pending ownership transfer. The zero value means no
// recovery is pending.
type RecoveryRequest struct {
	NewOwner     common.Address
	ExecuteAfter uint64
}

// Pending reports whether a recovery request is in flight.
func (r RecoveryRequest) Pending() bool {
	return r.NewOwner != (common.Address{})
}

// Guardian returns the guardian identity, or the zero address if none is
// set.
func (a *Account) Guardian() common.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.guardian
}

// RecoveryConfirmationTime returns the delay in seconds enforced between
// initiating and executing a recovery.
func (a *Account) RecoveryConfirmationTime() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recoveryConfirmationTime
}

// GetRecoveryRequest returns the pending recovery request, zero if none.
func (a *Account) GetRecoveryRequest() RecoveryRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recoveryRequest
}

// SetGuardian designates the guardian identity. Owner only; an existing
// guardian is overwritten unconditionally.
func (a *Account) SetGuardian(caller, guardian common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner {
		return ErrOnlyOwner
	}
	a.guardian = guardian
	return nil
}

// SetRecoveryConfirmationTime configures the recovery delay in seconds.
// Owner only.
func (a *Account) SetRecoveryConfirmationTime(caller common.Address, seconds uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner {
		return ErrOnlyOwner
	}
	a.recoveryConfirmationTime = seconds
	return nil
}

// InitRecovery starts an ownership transfer to newOwner, executable after
// the confirmation delay. Guardian only. A pending request is superseded:
// the guardian can always replace a stale request.
func (a *Account) InitRecovery(caller, newOwner common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.guardian {
		return ErrMsgSenderInvalid
	}
	a.recoveryRequest = RecoveryRequest{
		NewOwner:     newOwner,
		ExecuteAfter: a.now() + a.recoveryConfirmationTime,
	}
	log.Info("Recovery initiated", "account", a.address, "newOwner", newOwner, "executeAfter", a.recoveryRequest.ExecuteAfter)
	return nil
}

// CancelRecovery clears the pending recovery request. Owner only; the
// authorization check runs before the request-existence check.
func (a *Account) CancelRecovery(caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner {
		return ErrMsgSenderInvalid
	}
	if !a.recoveryRequest.Pending() {
		return ErrRequestInvalid
	}
	a.recoveryRequest = RecoveryRequest{}
	log.Info("Recovery cancelled", "account", a.address)
	return nil
}

// ExecuteRecovery completes a pending recovery once the confirmation delay
// has elapsed, transferring ownership to the requested new owner. Callable
// by the owner or the guardian. Nothing but the owner and the request
// change: nonce and balances are untouched.
func (a *Account) ExecuteRecovery(caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner && caller != a.guardian {
		return ErrMsgSenderInvalid
	}
	if !a.recoveryRequest.Pending() {
		return ErrRequestInvalid
	}
	if a.now() < a.recoveryRequest.ExecuteAfter {
		return ErrConfirmationTimeNotPassed
	}
	old := a.owner
	a.owner = a.recoveryRequest.NewOwner
	a.recoveryRequest = RecoveryRequest{}
	log.Info("Recovery executed", "account", a.address, "oldOwner", old, "newOwner", a.owner)
	return nil
}
