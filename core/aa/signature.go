// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.
//
// Owner signature recovery for UserOperations and ERC-1271 queries.

package aa

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
)

// RecoverSigner extracts the signing address from a 65-byte r||s||v
// signature over digest. The recovery id accepts both the raw {0,1} and
// the RPC {27,28} encodings. Malformed or unrecoverable signatures return
// an error; callers treat any error as "signer unknown", they must not
// escalate it into a hard failure of the surrounding call.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	s := make([]byte, crypto.SignatureLength)
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	if s[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, ErrInvalidSignature
	}
	pubkey, err := crypto.Ecrecover(digest.Bytes(), s)
	if err != nil {
		return common.Address{}, err
	}
	var signer common.Address
	copy(signer[:], crypto.Keccak256(pubkey[1:])[12:])
	return signer, nil
}

// PersonalDigest applies the EIP-191 personal-message prefix to a
// UserOperation hash. Operations are signed over this digest, not over the
// raw hash.
func PersonalDigest(userOpHash common.Hash) common.Hash {
	return common.BytesToHash(accounts.TextHash(userOpHash.Bytes()))
}

// SignUserOp signs the canonical digest of op with the given key and
// returns the 65-byte signature in RPC form (v in {27,28}). It is the
// off-chain counterpart of the validation path and is used by bundlers
// and tests.
func SignUserOp(op *UserOperation, key *ecdsa.PrivateKey, hasher *OperationHasher) ([]byte, error) {
	userOpHash, err := hasher.Hash(op)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(PersonalDigest(userOpHash).Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
