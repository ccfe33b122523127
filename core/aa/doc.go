// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.

/*
Package aa implements EIP-4337 style account abstraction for smart
contract wallets.

The package provides the pieces shared by every account: the
UserOperation value object, the canonical operation digest, owner
signature recovery, and the EntryPoint that relays pre-signed operations
against registered accounts.

# Operation Flow

	User signs a UserOperation over the canonical digest
	    → EntryPoint.HandleOps:
	        1. Compute the digest (bound to EntryPoint address + chain id)
	        2. Account.ValidateUserOp: nonce check, signature check, prefund
	        3. Dispatch callData on the account (execute gate)
	        4. Settle gas: refund unused prefund, pay the beneficiary

Validation failures split into two classes. A signature mismatch is a soft
failure: ValidateUserOp returns the SigValidationFailed sentinel and the
call completes, because the EntryPoint needs a non-throwing way to
aggregate validity. A nonce mismatch or a caller-authorization violation
is a hard failure carried as an error, and the operation is dropped with
no balance effect.

The account-side state machines (ownership recovery, spending limits, the
transfer gate) live in core/wallet.
*/
package aa
