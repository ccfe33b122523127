// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.

package wallet

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"

	"github.com/weiihann/eth-smart-contracts/core/rawdb"
)

var ErrAccountNotFound = errors.New("account: record not found")

// SaveAccount persists the full account state as one record keyed by the
// account address.
func SaveAccount(db ethdb.KeyValueWriter, a *Account) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rawdb.WriteAccountRecord(db, a.address, &rawdb.AccountRecord{
		Owner:                    a.owner,
		Nonce:                    a.nonce,
		EntryPoint:               a.entryPoint,
		Guardian:                 a.guardian,
		RecoveryConfirmationTime: a.recoveryConfirmationTime,
		RecoveryNewOwner:         a.recoveryRequest.NewOwner,
		RecoveryExecuteAfter:     a.recoveryRequest.ExecuteAfter,
		SpendLimit:               a.spendLimit.limit.Clone(),
		SpendAvailable:           a.spendLimit.available.Clone(),
		SpendResetTime:           a.spendLimit.resetTime,
		SpendEnabled:             a.spendLimit.enabled,
		SpendPeriod:              a.spendPeriod,
	})
}

// LoadAccount restores an account from its persisted record.
func LoadAccount(db ethdb.KeyValueReader, addr common.Address) (*Account, error) {
	record := rawdb.ReadAccountRecord(db, addr)
	if record == nil {
		return nil, ErrAccountNotFound
	}
	a := &Account{
		address:                  addr,
		entryPoint:               record.EntryPoint,
		owner:                    record.Owner,
		nonce:                    record.Nonce,
		guardian:                 record.Guardian,
		recoveryConfirmationTime: record.RecoveryConfirmationTime,
		recoveryRequest: RecoveryRequest{
			NewOwner:     record.RecoveryNewOwner,
			ExecuteAfter: record.RecoveryExecuteAfter,
		},
		spendLimit: spendLimitState{
			limit:     record.SpendLimit.Clone(),
			available: record.SpendAvailable.Clone(),
			resetTime: record.SpendResetTime,
			enabled:   record.SpendEnabled,
		},
		spendPeriod: record.SpendPeriod,
		now:         func() uint64 { return uint64(time.Now().Unix()) },
	}
	return a, nil
}
