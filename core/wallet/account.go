// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// Account is a smart contract wallet instance: owner-signature validation
// with replay protection, the execute gate for outgoing calls, and the
// guardian-recovery and spend-limit policy machines layered on top.

package wallet

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/weiihann/eth-smart-contracts/core/aa"
)

var (
	ErrNotOwnerOrEntryPoint = errors.New("account: not Owner or EntryPoint")
	ErrInvalidNonce         = errors.New("account: invalid nonce")
	ErrInsufficientBalance  = errors.New("account: insufficient balance")
	ErrOnlyOwner            = errors.New("only owner")
)

var (
	// ValidSignatureMagic is the ERC-1271 success selector,
	// keccak256("isValidSignature(bytes32,bytes)")[:4].
	ValidSignatureMagic = [4]byte{0x16, 0x26, 0xba, 0x7e}

	// InvalidSignatureMagic is returned for a signature that does not
	// recover to the account owner.
	InvalidSignatureMagic = [4]byte{0xff, 0xff, 0xff, 0xff}
)

const (
	// DefaultRecoveryConfirmationTime is the recovery delay in seconds
	// until the owner overrides it.
	DefaultRecoveryConfirmationTime uint64 = 24 * 60 * 60

	// DefaultSpendPeriod is the rolling allowance window in seconds.
	DefaultSpendPeriod uint64 = 24 * 60 * 60
)

// Account is one deployed smart contract wallet. Every state-mutating
// method is a single atomic unit: checks run before any write, and a
// failed call leaves no partial effects.
type Account struct {
	mu sync.Mutex

	address    common.Address
	entryPoint common.Address

	owner common.Address
	nonce uint64

	guardian                 common.Address
	recoveryConfirmationTime uint64
	recoveryRequest          RecoveryRequest

	spendLimit  spendLimitState
	spendPeriod uint64

	// now supplies the monotonically non-decreasing clock the time guards
	// compare against. Overridden in tests.
	now func() uint64
}

// NewAccount creates an account owned by owner that trusts the given
// entrypoint address.
func NewAccount(address, owner, entryPoint common.Address) *Account {
	return &Account{
		address:                  address,
		entryPoint:               entryPoint,
		owner:                    owner,
		recoveryConfirmationTime: DefaultRecoveryConfirmationTime,
		spendLimit:               newSpendLimitState(),
		spendPeriod:              DefaultSpendPeriod,
		now:                      func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// Address returns the account address.
func (a *Account) Address() common.Address {
	return a.address
}

// EntryPoint returns the entrypoint address the account trusts.
func (a *Account) EntryPoint() common.Address {
	return a.entryPoint
}

// Owner returns the current owner identity.
func (a *Account) Owner() common.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}

// Nonce returns the current operation nonce.
func (a *Account) Nonce() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nonce
}

// ValidateUserOp authenticates an incoming operation and accounts for the
// prepayment owed to the entrypoint. A nonce mismatch is a hard error; a
// signature mismatch completes the call and returns SigValidationFailed,
// with the nonce advanced and the prefund still attempted.
func (a *Account) ValidateUserOp(statedb aa.StateDB, caller common.Address, op *aa.UserOperation, userOpHash common.Hash, missingAccountFunds *big.Int) (aa.ValidationData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.entryPoint && caller != a.owner {
		return 0, ErrNotOwnerOrEntryPoint
	}
	if op == nil || op.Nonce == nil || !op.Nonce.IsUint64() || op.Nonce.Uint64() != a.nonce {
		return 0, ErrInvalidNonce
	}
	// Advance before anything else, so a failed operation can never be
	// replayed with the same nonce.
	a.nonce++

	vd := aa.ValidationSuccess
	signer, err := aa.RecoverSigner(aa.PersonalDigest(userOpHash), op.Signature)
	if err != nil || signer != a.owner {
		vd = aa.SigValidationFailed
	}

	a.payPrefund(statedb, caller, missingAccountFunds)
	return vd, nil
}

// payPrefund transfers up to missingAccountFunds to the caller. Partial
// payment is allowed: deciding whether a short payment sinks the whole
// operation is the entrypoint's job, not the account's.
func (a *Account) payPrefund(statedb aa.StateDB, caller common.Address, missingAccountFunds *big.Int) {
	if missingAccountFunds == nil || missingAccountFunds.Sign() <= 0 {
		return
	}
	pay := new(big.Int).Set(missingAccountFunds)
	if balance := statedb.GetBalance(a.address); balance.Cmp(pay) < 0 {
		pay = balance
	}
	if pay.Sign() > 0 {
		statedb.SubBalance(a.address, pay)
		statedb.AddBalance(caller, pay)
	}
}

// Execute performs an outgoing call: a native-asset transfer of value to
// target, with data passed through to the callee. Only the owner or the
// entrypoint may call it. Value transfers are gated by the spending limit
// when one is enabled; a gated or underfunded transfer fails with no side
// effects.
func (a *Account) Execute(statedb aa.StateDB, caller, target common.Address, value *big.Int, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.owner && caller != a.entryPoint {
		return ErrNotOwnerOrEntryPoint
	}
	if value == nil || value.Sign() == 0 {
		return nil
	}
	if value.Sign() < 0 {
		return ErrInvalidAmount
	}

	rolled := a.spendLimit.rolled(a.now(), a.spendPeriod)
	if rolled.enabled && rolled.available.ToBig().Cmp(value) < 0 {
		return ErrExceedDailyLimit
	}
	if statedb.GetBalance(a.address).Cmp(value) < 0 {
		return ErrInsufficientBalance
	}

	if rolled.enabled {
		rolled.available.Sub(rolled.available, uint256.MustFromBig(value))
		a.spendLimit = rolled
	}
	statedb.SubBalance(a.address, value)
	statedb.AddBalance(target, value)
	log.Debug("Account transfer", "account", a.address, "target", target, "value", value)
	return nil
}

// ExecuteUserOp dispatches entrypoint-relayed call data: it decodes an
// execute(address,uint256,bytes) payload and runs it through the execute
// gate.
func (a *Account) ExecuteUserOp(statedb aa.StateDB, caller common.Address, callData []byte) error {
	if len(callData) == 0 {
		return nil
	}
	target, value, data, err := UnpackExecuteCall(callData)
	if err != nil {
		return err
	}
	return a.Execute(statedb, caller, target, value, data)
}

// IsValidSignature implements the ERC-1271 signature query: it recovers
// the signer of signature over the raw hash and reports whether it is the
// current owner. A mismatch is a normal outcome, never an error.
func (a *Account) IsValidSignature(hash common.Hash, signature []byte) [4]byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	signer, err := aa.RecoverSigner(hash, signature)
	if err != nil || signer != a.owner {
		return InvalidSignatureMagic
	}
	return ValidSignatureMagic
}
