// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// Core types for EIP-4337 style account abstraction: the UserOperation
// value object, the validation-result encoding, and the minimal ledger
// interface the core needs.

package aa

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UserOperation represents an EIP-4337 compatible user operation.
// All fields except Signature are covered by the signed digest.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *big.Int       `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         uint64         `json:"callGasLimit"`
	VerificationGasLimit uint64         `json:"verificationGasLimit"`
	PreVerificationGas   uint64         `json:"preVerificationGas"`
	MaxFeePerGas         *big.Int       `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int       `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// TotalGasLimit returns total gas required for the operation.
func (op *UserOperation) TotalGasLimit() uint64 {
	return op.CallGasLimit + op.VerificationGasLimit + op.PreVerificationGas
}

// ValidationData is the result an account returns from ValidateUserOp.
// A signature mismatch is reported through this value, never through an
// error, so the EntryPoint can aggregate validity without catching faults.
type ValidationData uint64

const (
	// ValidationSuccess indicates the operation signature matched the
	// account owner.
	ValidationSuccess ValidationData = 0

	// SigValidationFailed is the sentinel returned when signature recovery
	// does not yield the account owner.
	SigValidationFailed ValidationData = 1
)

// StateDB is the minimal ledger interface the account abstraction core
// needs for native-asset accounting.
type StateDB interface {
	GetBalance(addr common.Address) *big.Int
	SubBalance(addr common.Address, amount *big.Int)
	AddBalance(addr common.Address, amount *big.Int)
}

// AccountValidator is called on the smart contract account to validate a
// UserOperation. The caller address models the ledger's message sender.
type AccountValidator interface {
	ValidateUserOp(statedb StateDB, caller common.Address, op *UserOperation, userOpHash common.Hash, missingAccountFunds *big.Int) (ValidationData, error)
}

// AccountExecutor is implemented by accounts that can dispatch the
// operation callData after validation succeeded.
type AccountExecutor interface {
	ExecuteUserOp(statedb StateDB, caller common.Address, callData []byte) error
}

// UserOpReceipt contains the processing result for a UserOperation.
type UserOpReceipt struct {
	UserOpHash    common.Hash    `json:"userOpHash"`
	Sender        common.Address `json:"sender"`
	Nonce         *big.Int       `json:"nonce"`
	Success       bool           `json:"success"`
	ActualGasCost *big.Int       `json:"actualGasCost"`
	ActualGasUsed uint64         `json:"actualGasUsed"`
	Reason        string         `json:"reason,omitempty"` // failure reason if Success is false
}
