// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// EntryPoint is the trusted execution environment that relays
// UserOperations against registered smart contract accounts: it computes
// the canonical digest, asks the account to validate and prefund the
// operation, dispatches the call data, and settles gas.

package aa

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

var (
	// EntryPointAddress is the well-known address the EntryPoint acts from.
	EntryPointAddress = common.HexToAddress("0x0000000000000000000000000000000000AA4337")

	ErrInvalidUserOp       = errors.New("invalid user operation")
	ErrValidationFailed    = errors.New("user operation validation failed")
	ErrUnknownAccount      = errors.New("sender account not registered")
	ErrInsufficientPrefund = errors.New("insufficient prefund for user operation")
)

// maxOpGas bounds each gas field of a UserOperation so the uint64 gas
// sums can never wrap.
const maxOpGas = 1 << 32

// EntryPoint processes UserOperations against registered accounts.
type EntryPoint struct {
	address common.Address
	hasher  *OperationHasher

	// Registered account validators, by account address.
	accounts map[common.Address]AccountValidator

	// Deposit ledger: address -> balance prepaid for gas.
	deposits map[common.Address]*big.Int
}

// NewEntryPoint creates an EntryPoint for the given chain id.
func NewEntryPoint(chainID *big.Int) *EntryPoint {
	return &EntryPoint{
		address:  EntryPointAddress,
		hasher:   NewOperationHasher(EntryPointAddress, chainID),
		accounts: make(map[common.Address]AccountValidator),
		deposits: make(map[common.Address]*big.Int),
	}
}

// Address returns the entrypoint address.
func (ep *EntryPoint) Address() common.Address {
	return ep.address
}

// Hasher returns the operation hasher bound to this entrypoint.
func (ep *EntryPoint) Hasher() *OperationHasher {
	return ep.hasher
}

// RegisterAccount registers the validator for a deployed account address.
func (ep *EntryPoint) RegisterAccount(addr common.Address, v AccountValidator) {
	ep.accounts[addr] = v
}

// GetDeposit returns the deposit balance for an address.
func (ep *EntryPoint) GetDeposit(addr common.Address) *big.Int {
	if d, ok := ep.deposits[addr]; ok {
		return new(big.Int).Set(d)
	}
	return big.NewInt(0)
}

// AddDeposit adds to the deposit balance for an address.
func (ep *EntryPoint) AddDeposit(addr common.Address, amount *big.Int) {
	if _, ok := ep.deposits[addr]; !ok {
		ep.deposits[addr] = new(big.Int)
	}
	ep.deposits[addr].Add(ep.deposits[addr], amount)
}

// WithdrawDeposit withdraws from the deposit balance.
func (ep *EntryPoint) WithdrawDeposit(addr common.Address, amount *big.Int) error {
	deposit := ep.GetDeposit(addr)
	if deposit.Cmp(amount) < 0 {
		return fmt.Errorf("withdraw amount %s exceeds deposit %s", amount, deposit)
	}
	ep.deposits[addr].Sub(ep.deposits[addr], amount)
	return nil
}

// HandleOps processes a batch of UserOperations. Failed operations produce
// a receipt with Success=false; the batch itself never aborts.
func (ep *EntryPoint) HandleOps(statedb StateDB, ops []*UserOperation, beneficiary common.Address) []*UserOpReceipt {
	receipts := make([]*UserOpReceipt, 0, len(ops))

	for _, op := range ops {
		receipt, err := ep.handleSingleOp(statedb, op, beneficiary)
		if err != nil {
			log.Warn("UserOp failed", "sender", opSender(op), "err", err)
			if receipt == nil {
				receipt = &UserOpReceipt{
					Sender:  opSender(op),
					Nonce:   opNonce(op),
					Success: false,
					Reason:  err.Error(),
				}
			}
		}
		receipts = append(receipts, receipt)
	}

	return receipts
}

// handleSingleOp processes one UserOperation through the full lifecycle.
func (ep *EntryPoint) handleSingleOp(statedb StateDB, op *UserOperation, beneficiary common.Address) (*UserOpReceipt, error) {
	if op == nil || op.Nonce == nil || op.MaxFeePerGas == nil || op.MaxPriorityFeePerGas == nil {
		return nil, ErrInvalidUserOp
	}
	if op.MaxFeePerGas.Sign() <= 0 || op.MaxPriorityFeePerGas.Sign() < 0 {
		return nil, ErrInvalidUserOp
	}
	if op.CallGasLimit > maxOpGas || op.VerificationGasLimit > maxOpGas || op.PreVerificationGas > maxOpGas {
		return nil, ErrInvalidUserOp
	}
	validator, ok := ep.accounts[op.Sender]
	if !ok {
		return nil, ErrUnknownAccount
	}

	userOpHash, err := ep.hasher.Hash(op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUserOp, err)
	}

	// Phase 1: required prefund, covered by the deposit first. The account
	// is only asked for the part the deposit does not cover.
	requiredPrefund := ep.requiredPrefund(op)
	depositUsed := ep.GetDeposit(op.Sender)
	if depositUsed.Cmp(requiredPrefund) > 0 {
		depositUsed = new(big.Int).Set(requiredPrefund)
	}
	missing := new(big.Int).Sub(requiredPrefund, depositUsed)

	// Phase 2: validation. The account pays the missing prefund to the
	// entrypoint as part of a successful nonce check, even when the
	// signature turns out to be invalid.
	balBefore := statedb.GetBalance(ep.address)
	vd, err := validator.ValidateUserOp(statedb, ep.address, op, userOpHash, missing)
	if err != nil {
		err = fmt.Errorf("validation: %w", err)
		return failedReceipt(op, userOpHash, err), err
	}
	paid := new(big.Int).Sub(statedb.GetBalance(ep.address), balBefore)

	if vd != ValidationSuccess {
		ep.returnPayment(statedb, op.Sender, paid)
		return failedReceipt(op, userOpHash, ErrValidationFailed), ErrValidationFailed
	}
	if paid.Cmp(missing) < 0 {
		// Underfunded account: hand back what was paid and drop the op.
		ep.returnPayment(statedb, op.Sender, paid)
		return failedReceipt(op, userOpHash, ErrInsufficientPrefund), ErrInsufficientPrefund
	}
	ep.deposits[op.Sender] = new(big.Int).Sub(ep.GetDeposit(op.Sender), depositUsed)

	// Phase 3: dispatch the call data on the account.
	execSuccess := true
	var execReason string
	gasUsed := op.PreVerificationGas + op.VerificationGasLimit
	if len(op.CallData) > 0 {
		execGas := ep.estimateCallGas(op)
		if execGas > op.CallGasLimit {
			execSuccess = false
			execReason = "out of gas during execution"
			execGas = op.CallGasLimit
		} else if executor, ok := validator.(AccountExecutor); ok {
			if err := executor.ExecuteUserOp(statedb, ep.address, op.CallData); err != nil {
				execSuccess = false
				execReason = err.Error()
			}
		}
		gasUsed += execGas
	}

	// Phase 4: gas settlement. The actual cost never exceeds the prefund;
	// unused prefund is returned deposit-first.
	actualGasCost := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), op.MaxFeePerGas)
	if actualGasCost.Cmp(requiredPrefund) > 0 {
		actualGasCost = new(big.Int).Set(requiredPrefund)
	}
	refund := new(big.Int).Sub(requiredPrefund, actualGasCost)
	refundDeposit := new(big.Int).Set(refund)
	if refundDeposit.Cmp(depositUsed) > 0 {
		refundDeposit = new(big.Int).Set(depositUsed)
	}
	if refundDeposit.Sign() > 0 {
		ep.AddDeposit(op.Sender, refundDeposit)
	}
	refundBalance := new(big.Int).Sub(refund, refundDeposit)
	if refundBalance.Sign() > 0 {
		statedb.SubBalance(ep.address, refundBalance)
		statedb.AddBalance(op.Sender, refundBalance)
	}

	// Phase 5: pay the beneficiary (bundler) and release the remaining
	// held payment.
	statedb.AddBalance(beneficiary, actualGasCost)
	held := new(big.Int).Sub(paid, refundBalance)
	if held.Sign() > 0 {
		statedb.SubBalance(ep.address, held)
	}

	return &UserOpReceipt{
		UserOpHash:    userOpHash,
		Sender:        op.Sender,
		Nonce:         op.Nonce,
		Success:       execSuccess,
		ActualGasCost: actualGasCost,
		ActualGasUsed: gasUsed,
		Reason:        execReason,
	}, nil
}

// failedReceipt builds the receipt for an operation dropped after its
// digest was computed, so the hash still reaches the caller.
func failedReceipt(op *UserOperation, userOpHash common.Hash, err error) *UserOpReceipt {
	return &UserOpReceipt{
		UserOpHash: userOpHash,
		Sender:     opSender(op),
		Nonce:      opNonce(op),
		Success:    false,
		Reason:     err.Error(),
	}
}

// returnPayment hands a partial or useless prefund payment back to the
// account, so a dropped operation has no lasting balance effect.
func (ep *EntryPoint) returnPayment(statedb StateDB, sender common.Address, paid *big.Int) {
	if paid.Sign() > 0 {
		statedb.SubBalance(ep.address, paid)
		statedb.AddBalance(sender, paid)
	}
}

// requiredPrefund computes the max gas cost for a UserOperation.
func (ep *EntryPoint) requiredPrefund(op *UserOperation) *big.Int {
	return new(big.Int).Mul(
		new(big.Int).SetUint64(op.TotalGasLimit()),
		safeBig(op.MaxFeePerGas),
	)
}

// estimateCallGas estimates gas for call execution.
func (ep *EntryPoint) estimateCallGas(op *UserOperation) uint64 {
	// Base cost: 21000 + 16 per non-zero calldata byte + 4 per zero byte
	gas := uint64(21000)
	for _, b := range op.CallData {
		if b == 0 {
			gas += 4
		} else {
			gas += 16
		}
	}
	return gas
}

func opSender(op *UserOperation) common.Address {
	if op == nil {
		return common.Address{}
	}
	return op.Sender
}

func opNonce(op *UserOperation) *big.Int {
	if op == nil {
		return nil
	}
	return op.Nonce
}

func safeBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
