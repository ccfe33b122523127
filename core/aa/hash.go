// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// Canonical UserOperation digest. The digest binds the operation fields,
// the verifying EntryPoint address and the chain id, so a signed operation
// cannot be replayed against another account or another network.

package aa

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	userOpTupleArgs = abi.Arguments{{Type: mustTupleType()}}

	userOpHashArgs = abi.Arguments{
		{Type: mustType("bytes32")},
		{Type: mustType("address")},
		{Type: mustType("uint256")},
	}
)

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("aa: bad abi type " + t + ": " + err.Error())
	}
	return ty
}

func mustTupleType() abi.Type {
	ty, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "sender", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "initCode", Type: "bytes"},
		{Name: "callData", Type: "bytes"},
		{Name: "callGasLimit", Type: "uint256"},
		{Name: "verificationGasLimit", Type: "uint256"},
		{Name: "preVerificationGas", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymasterAndData", Type: "bytes"},
		{Name: "signature", Type: "bytes"},
	})
	if err != nil {
		panic("aa: bad user operation tuple type: " + err.Error())
	}
	return ty
}

// packedUserOp is the reflection target for ABI tuple packing.
type packedUserOp struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

// PackUserOp ABI-encodes a UserOperation for hashing. The signature is
// encoded as zero-length bytes; the leading tuple offset word and the
// trailing empty-signature length word are stripped, so the result covers
// exactly the signed fields.
func PackUserOp(op *UserOperation) ([]byte, error) {
	enc, err := userOpTupleArgs.Pack(packedUserOp{
		Sender:               op.Sender,
		Nonce:                safeBig(op.Nonce),
		InitCode:             op.InitCode,
		CallData:             op.CallData,
		CallGasLimit:         new(big.Int).SetUint64(op.CallGasLimit),
		VerificationGasLimit: new(big.Int).SetUint64(op.VerificationGasLimit),
		PreVerificationGas:   new(big.Int).SetUint64(op.PreVerificationGas),
		MaxFeePerGas:         safeBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: safeBig(op.MaxPriorityFeePerGas),
		PaymasterAndData:     op.PaymasterAndData,
		Signature:            nil,
	})
	if err != nil {
		return nil, err
	}
	return enc[32 : len(enc)-32], nil
}

// OperationHasher produces the canonical digest a UserOperation must be
// signed over. It is stateless and safe to share across accounts.
type OperationHasher struct {
	entryPoint common.Address
	chainID    *big.Int
}

// NewOperationHasher creates a hasher bound to a verifying EntryPoint
// address and chain id.
func NewOperationHasher(entryPoint common.Address, chainID *big.Int) *OperationHasher {
	return &OperationHasher{entryPoint: entryPoint, chainID: new(big.Int).Set(chainID)}
}

// Hash returns the canonical digest of a UserOperation.
func (h *OperationHasher) Hash(op *UserOperation) (common.Hash, error) {
	packed, err := PackUserOp(op)
	if err != nil {
		return common.Hash{}, err
	}
	inner := crypto.Keccak256Hash(packed)
	enc, err := userOpHashArgs.Pack([32]byte(inner), h.entryPoint, h.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}
