// Copyright 2025 The eth-smart-contracts Authors

package wallet

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/weiihann/eth-smart-contracts/core/aa"
)

const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var (
	accountAddr = common.HexToAddress("0xAcc0000000000000000000000000000000000001")
	entryPoint  = common.HexToAddress("0xE111000000000000000000000000000000004337")
	ownerAddr   = common.HexToAddress("0x00AA000000000000000000000000000000000001")
	otherAddr   = common.HexToAddress("0x00BB000000000000000000000000000000000002")
	recipient   = common.HexToAddress("0x00CC000000000000000000000000000000000003")
)

// testStateDB implements aa.StateDB for testing.
type testStateDB struct {
	balances map[common.Address]*big.Int
}

func newTestStateDB() *testStateDB {
	return &testStateDB{balances: make(map[common.Address]*big.Int)}
}

func (m *testStateDB) GetBalance(addr common.Address) *big.Int {
	if b, ok := m.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (m *testStateDB) SubBalance(addr common.Address, amount *big.Int) {
	if _, ok := m.balances[addr]; !ok {
		m.balances[addr] = big.NewInt(0)
	}
	m.balances[addr].Sub(m.balances[addr], amount)
}

func (m *testStateDB) AddBalance(addr common.Address, amount *big.Int) {
	if _, ok := m.balances[addr]; !ok {
		m.balances[addr] = big.NewInt(0)
	}
	m.balances[addr].Add(m.balances[addr], amount)
}

// testClock drives the account's time guards in tests.
type testClock struct {
	now uint64
}

func (c *testClock) advance(seconds uint64) { c.now += seconds }

func newTestAccount(owner common.Address) (*Account, *testClock) {
	a := NewAccount(accountAddr, owner, entryPoint)
	clock := &testClock{now: 1700000000}
	a.now = func() uint64 { return clock.now }
	return a, clock
}

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("bad test key: %v", err)
	}
	return key
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func defaultUserOp(sender common.Address, nonce uint64) *aa.UserOperation {
	return &aa.UserOperation{
		Sender:               sender,
		Nonce:                new(big.Int).SetUint64(nonce),
		CallGasLimit:         200000,
		VerificationGasLimit: 100000,
		PreVerificationGas:   21000,
		MaxFeePerGas:         big.NewInt(3e9),
		MaxPriorityFeePerGas: big.NewInt(1e9),
	}
}

func TestOwnerCanTransfer(t *testing.T) {
	a, _ := newTestAccount(ownerAddr)
	db := newTestStateDB()
	db.balances[accountAddr] = ether(2)

	if err := a.Execute(db, ownerAddr, recipient, ether(1), nil); err != nil {
		t.Fatalf("owner transfer failed: %v", err)
	}
	if db.GetBalance(recipient).Cmp(ether(1)) != 0 {
		t.Errorf("recipient balance %s, want 1 ether", db.GetBalance(recipient))
	}
	if db.GetBalance(accountAddr).Cmp(ether(1)) != 0 {
		t.Errorf("account balance %s, want 1 ether", db.GetBalance(accountAddr))
	}
}

func TestOtherAccountCannotTransfer(t *testing.T) {
	a, _ := newTestAccount(ownerAddr)
	db := newTestStateDB()
	db.balances[accountAddr] = ether(2)

	err := a.Execute(db, otherAddr, recipient, ether(1), nil)
	if !errors.Is(err, ErrNotOwnerOrEntryPoint) {
		t.Fatalf("got %v, want %v", err, ErrNotOwnerOrEntryPoint)
	}
	if db.GetBalance(recipient).Sign() != 0 {
		t.Error("transfer executed despite rejected caller")
	}
}

func TestNegativeTransferRejected(t *testing.T) {
	a, _ := newTestAccount(ownerAddr)
	db := newTestStateDB()
	db.balances[accountAddr] = ether(1)
	db.balances[recipient] = ether(1)
	enableLimit(t, a, big.NewInt(200))

	err := a.Execute(db, ownerAddr, recipient, big.NewInt(-100), nil)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("got %v, want %v", err, ErrInvalidAmount)
	}
	if db.GetBalance(accountAddr).Cmp(ether(1)) != 0 {
		t.Errorf("account balance %s changed by rejected transfer", db.GetBalance(accountAddr))
	}
	if db.GetBalance(recipient).Cmp(ether(1)) != 0 {
		t.Errorf("recipient balance %s changed by rejected transfer", db.GetBalance(recipient))
	}
	if got := a.GetLimitInfo().Available; got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("allowance %s consumed by rejected transfer", got)
	}
}

func TestEntryPointCanTransfer(t *testing.T) {
	a, _ := newTestAccount(ownerAddr)
	db := newTestStateDB()
	db.balances[accountAddr] = ether(2)

	if err := a.Execute(db, entryPoint, recipient, ether(1), nil); err != nil {
		t.Fatalf("entrypoint transfer failed: %v", err)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	a, _ := newTestAccount(ownerAddr)
	db := newTestStateDB()
	db.balances[accountAddr] = big.NewInt(100)

	err := a.Execute(db, ownerAddr, recipient, ether(1), nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want %v", err, ErrInsufficientBalance)
	}
	if db.GetBalance(accountAddr).Cmp(big.NewInt(100)) != 0 {
		t.Error("balance changed by failed transfer")
	}
}

func TestValidateUserOp(t *testing.T) {
	key := testKey(t)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	a, _ := newTestAccount(owner)
	db := newTestStateDB()
	db.balances[accountAddr] = ether(1)

	hasher := aa.NewOperationHasher(entryPoint, big.NewInt(1337))
	op := defaultUserOp(accountAddr, 0)
	sig, err := aa.SignUserOp(op, key, hasher)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	op.Signature = sig
	userOpHash, err := hasher.Hash(op)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	expectedPay := new(big.Int).Mul(big.NewInt(1e9), big.NewInt(200000+100000))
	preBalance := db.GetBalance(accountAddr)

	vd, err := a.ValidateUserOp(db, entryPoint, op, userOpHash, expectedPay)
	if err != nil {
		t.Fatalf("validateUserOp failed: %v", err)
	}
	if vd != aa.ValidationSuccess {
		t.Fatalf("validation data %d, want success", vd)
	}

	// Should pay exactly the requested prefund.
	paid := new(big.Int).Sub(preBalance, db.GetBalance(accountAddr))
	if paid.Cmp(expectedPay) != 0 {
		t.Errorf("account paid %s, want %s", paid, expectedPay)
	}
	if db.GetBalance(entryPoint).Cmp(expectedPay) != 0 {
		t.Errorf("entrypoint received %s, want %s", db.GetBalance(entryPoint), expectedPay)
	}

	// Should increment nonce.
	if a.Nonce() != 1 {
		t.Errorf("nonce %d, want 1", a.Nonce())
	}

	// Should reject the same operation on nonce error.
	if _, err := a.ValidateUserOp(db, entryPoint, op, userOpHash, big.NewInt(0)); !errors.Is(err, ErrInvalidNonce) {
		t.Errorf("got %v, want %v", err, ErrInvalidNonce)
	}

	// Should return the sentinel on a wrong signature, not an error.
	op2 := defaultUserOp(accountAddr, 1)
	op2.Signature = sig
	vd, err = a.ValidateUserOp(db, entryPoint, op2, common.Hash{}, big.NewInt(0))
	if err != nil {
		t.Fatalf("signature mismatch must not error: %v", err)
	}
	if vd != aa.SigValidationFailed {
		t.Errorf("validation data %d, want %d", vd, aa.SigValidationFailed)
	}
	// The nonce advances regardless of the signature outcome.
	if a.Nonce() != 2 {
		t.Errorf("nonce %d, want 2", a.Nonce())
	}
}

func TestValidateUserOpCallerGate(t *testing.T) {
	a, _ := newTestAccount(ownerAddr)
	db := newTestStateDB()

	op := defaultUserOp(accountAddr, 0)
	_, err := a.ValidateUserOp(db, otherAddr, op, common.Hash{}, big.NewInt(0))
	if !errors.Is(err, ErrNotOwnerOrEntryPoint) {
		t.Fatalf("got %v, want %v", err, ErrNotOwnerOrEntryPoint)
	}
	if a.Nonce() != 0 {
		t.Error("nonce advanced for unauthorized caller")
	}
}

func TestValidateUserOpPartialPrefund(t *testing.T) {
	key := testKey(t)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	a, _ := newTestAccount(owner)
	db := newTestStateDB()
	db.balances[accountAddr] = big.NewInt(1000)

	op := defaultUserOp(accountAddr, 0)
	op.Signature = make([]byte, 65)

	// The account pays what it can and leaves the shortfall decision to
	// the entrypoint.
	if _, err := a.ValidateUserOp(db, entryPoint, op, common.Hash{}, big.NewInt(5000)); err != nil {
		t.Fatalf("validateUserOp failed: %v", err)
	}
	if db.GetBalance(accountAddr).Sign() != 0 {
		t.Errorf("account balance %s, want 0", db.GetBalance(accountAddr))
	}
	if db.GetBalance(entryPoint).Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("entrypoint received %s, want 1000", db.GetBalance(entryPoint))
	}
}

func TestExecuteUserOpDispatch(t *testing.T) {
	a, _ := newTestAccount(ownerAddr)
	db := newTestStateDB()
	db.balances[accountAddr] = ether(2)

	callData, err := PackExecuteCall(recipient, ether(1), nil)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	if err := a.ExecuteUserOp(db, entryPoint, callData); err != nil {
		t.Fatalf("executeUserOp failed: %v", err)
	}
	if db.GetBalance(recipient).Cmp(ether(1)) != 0 {
		t.Errorf("recipient balance %s, want 1 ether", db.GetBalance(recipient))
	}

	if err := a.ExecuteUserOp(db, entryPoint, []byte{0xde, 0xad}); !errors.Is(err, ErrInvalidCallData) {
		t.Errorf("got %v, want %v", err, ErrInvalidCallData)
	}
}
