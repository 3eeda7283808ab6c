package bank

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"challengechain/core/types"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrUnauthorized        = errors.New("bank: authority cannot debit account")
	ErrAccountInUse        = errors.New("bank: account already in use")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
	errNilState            = errors.New("bank: state not configured")
)

// Authority proves the right to debit an account. Account owners sign with
// Owner; programs holding an escrow capability implement their own.
type Authority interface {
	CanDebit(addr [20]byte) bool
}

// Owner authorises debits from the owner's own account.
type Owner [20]byte

// CanDebit implements Authority.
func (o Owner) CanDebit(addr [20]byte) bool { return [20]byte(o) == addr }

type accountState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	AccountExists(addr []byte) (bool, error)
}

// Bank moves balances between accounts held in state.
type Bank struct {
	state accountState
}

// New wraps the account store.
func New(state accountState) *Bank {
	return &Bank{state: state}
}

// Denom selects which balance a transfer moves.
type Denom uint8

const (
	Token Denom = iota
	Native
)

func (d Denom) String() string {
	if d == Native {
		return "native"
	}
	return "token"
}

func (d Denom) balance(acc *types.Account) *uint64 {
	if d == Native {
		return &acc.BalanceNative
	}
	return &acc.BalanceToken
}

// Transfer moves amount tokens from one account to another. The authority
// must be allowed to debit from. Zero amounts succeed without touching state.
func (b *Bank) Transfer(from, to [20]byte, authority Authority, amount uint64) error {
	return b.move(Token, from, to, authority, amount)
}

// TransferNative is Transfer for the native balance.
func (b *Bank) TransferNative(from, to [20]byte, authority Authority, amount uint64) error {
	return b.move(Native, from, to, authority, amount)
}

func (b *Bank) move(denom Denom, from, to [20]byte, authority Authority, amount uint64) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if authority == nil || !authority.CanDebit(from) {
		return ErrUnauthorized
	}
	if amount == 0 || from == to {
		return nil
	}
	fromAcc, err := b.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := b.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Clone()
	toAcc = toAcc.Clone()
	src := denom.balance(fromAcc)
	if *src < amount {
		return fmt.Errorf("%w: %s balance %d below %d", ErrInsufficientBalance, denom, *src, amount)
	}
	dst := denom.balance(toAcc)
	sum, err := addChecked(*dst, amount)
	if err != nil {
		return err
	}
	*src -= amount
	*dst = sum
	if err := b.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return b.state.PutAccount(to[:], toAcc)
}

// Open creates addr and funds it with native currency taken from payer. It
// fails with ErrAccountInUse when addr already holds a record.
func (b *Bank) Open(addr, payer [20]byte, authority Authority, funding uint64) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	exists, err := b.state.AccountExists(addr[:])
	if err != nil {
		return err
	}
	if exists {
		return ErrAccountInUse
	}
	if authority == nil || !authority.CanDebit(payer) {
		return ErrUnauthorized
	}
	if err := b.state.PutAccount(addr[:], &types.Account{}); err != nil {
		return err
	}
	return b.move(Native, payer, addr, authority, funding)
}

// Balance returns the token balance of addr.
func (b *Bank) Balance(addr [20]byte) (uint64, error) {
	if b == nil || b.state == nil {
		return 0, errNilState
	}
	acc, err := b.state.GetAccount(addr[:])
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, nil
	}
	return acc.BalanceToken, nil
}

// Credit mints amount into addr. Only genesis allocation uses it.
func (b *Bank) Credit(addr [20]byte, denom Denom, amount uint64) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	acc, err := b.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	acc = acc.Clone()
	bal := denom.balance(acc)
	sum, err := addChecked(*bal, amount)
	if err != nil {
		return err
	}
	*bal = sum
	return b.state.PutAccount(addr[:], acc)
}

func addChecked(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !sum.IsUint64() {
		return 0, ErrBalanceOverflow
	}
	return sum.Uint64(), nil
}
