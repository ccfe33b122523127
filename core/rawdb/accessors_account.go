// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// Database accessors for smart contract wallet account records. One record
// is stored per deployed account instance, keyed by the account address.

package rawdb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// accountPrefix is the prefix for account record storage.
// accountPrefix + account address -> RLP(AccountRecord)
var accountPrefix = []byte("acct-")

// accountKey returns the database key for an account record.
func accountKey(addr common.Address) []byte {
	return append(accountPrefix, addr.Bytes()...)
}

// AccountRecord is the persisted form of one wallet account: owner and
// nonce, the trusted entrypoint, the guardian recovery state, and the
// spend-limit state.
type AccountRecord struct {
	Owner      common.Address
	Nonce      uint64
	EntryPoint common.Address

	Guardian                 common.Address
	RecoveryConfirmationTime uint64
	RecoveryNewOwner         common.Address
	RecoveryExecuteAfter     uint64

	SpendLimit     *uint256.Int
	SpendAvailable *uint256.Int
	SpendResetTime uint64
	SpendEnabled   bool
	SpendPeriod    uint64
}

// HasAccountRecord checks if a record exists for the account address.
func HasAccountRecord(db ethdb.KeyValueReader, addr common.Address) bool {
	has, _ := db.Has(accountKey(addr))
	return has
}

// WriteAccountRecord writes an account record to the database.
func WriteAccountRecord(db ethdb.KeyValueWriter, addr common.Address, record *AccountRecord) {
	data, err := rlp.EncodeToBytes(record)
	if err != nil {
		panic("failed to encode account record: " + err.Error())
	}
	if err := db.Put(accountKey(addr), data); err != nil {
		panic("failed to write account record: " + err.Error())
	}
}

// ReadAccountRecord reads the record for an account address, returning nil
// if none is stored.
func ReadAccountRecord(db ethdb.KeyValueReader, addr common.Address) *AccountRecord {
	data, err := db.Get(accountKey(addr))
	if err != nil || len(data) == 0 {
		return nil
	}
	record := new(AccountRecord)
	if err := rlp.DecodeBytes(data, record); err != nil {
		log.Error("Corrupt account record", "address", addr, "err", err)
		return nil
	}
	return record
}

// DeleteAccountRecord removes an account record from the database.
func DeleteAccountRecord(db ethdb.KeyValueWriter, addr common.Address) {
	if err := db.Delete(accountKey(addr)); err != nil {
		panic("failed to delete account record: " + err.Error())
	}
}
