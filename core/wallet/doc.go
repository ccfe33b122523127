// Copyright 2025 The eth-smart-contracts Authors
// This file is part of the eth-smart-contracts library.

/*
Package wallet implements the smart contract wallet account: the
validation engine behind ValidateUserOp, the execute gate for outgoing
value transfers, guardian-mediated ownership recovery with a confirmation
delay, and a rolling daily spend allowance.

Each Account is an independent instance owning its state exclusively;
multiple accounts share only the stateless digest and signature helpers in
core/aa. Every call is atomic: authorization and precondition checks run
before any write, so a rejected call leaves no partial effects.
*/
package wallet
