// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// ABI codec for the execute(address,uint256,bytes) call data relayed by
// the entrypoint inside a UserOperation.

package wallet

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidCallData = errors.New("account: invalid call data")

var (
	executeArgs     abi.Arguments
	executeSelector []byte
)

func init() {
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	bytesTy, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	executeArgs = abi.Arguments{
		{Name: "target", Type: addressTy},
		{Name: "value", Type: uint256Ty},
		{Name: "data", Type: bytesTy},
	}
	executeSelector = crypto.Keccak256([]byte("execute(address,uint256,bytes)"))[:4]
}

// PackExecuteCall encodes an execute(target, value, data) invocation as
// selector-prefixed call data, the form carried in UserOperation.CallData.
func PackExecuteCall(target common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	enc, err := executeArgs.Pack(target, value, data)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, executeSelector...), enc...), nil
}

// UnpackExecuteCall decodes selector-prefixed execute call data.
func UnpackExecuteCall(callData []byte) (target common.Address, value *big.Int, data []byte, err error) {
	if len(callData) < 4 || !bytes.Equal(callData[:4], executeSelector) {
		return common.Address{}, nil, nil, ErrInvalidCallData
	}
	vals, err := executeArgs.Unpack(callData[4:])
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("%w: %v", ErrInvalidCallData, err)
	}
	target = vals[0].(common.Address)
	value = vals[1].(*big.Int)
	data, _ = vals[2].([]byte)
	return target, value, data, nil
}
