package payment

import (
	"context"
	"math/big"
	"sync"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
)

// Token is an in-memory fungible ledger with balances and spender
// allowances. Safe for concurrent use.
type Token struct {
	mu         sync.Mutex
	balances   map[identity.Address]*big.Int
	allowances map[identity.Address]map[identity.Address]*big.Int
}

var _ Ledger = (*Token)(nil)

// NewToken creates an empty token ledger.
func NewToken() *Token {
	return &Token{
		balances:   make(map[identity.Address]*big.Int),
		allowances: make(map[identity.Address]map[identity.Address]*big.Int),
	}
}

// Mint credits amount to account.
func (t *Token) Mint(account identity.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.creditLocked(account, amount)
}

// Approve sets spender's allowance from owner to amount, replacing any
// previous allowance.
func (t *Token) Approve(owner, spender identity.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[identity.Address]*big.Int)
		t.allowances[owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
}

// Allowance reports what spender may still draw from owner.
func (t *Token) Allowance(owner, spender identity.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if allowed, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(allowed)
	}
	return new(big.Int)
}

// BalanceOf implements Ledger.
func (t *Token) BalanceOf(_ context.Context, account identity.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if bal, ok := t.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

// Transfer moves amount from the caller's own balance.
func (t *Token) Transfer(from, to identity.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.debitLocked(from, amount) {
		return InsufficientFundsError{Payer: from, Amount: new(big.Int).Set(amount)}
	}
	t.creditLocked(to, amount)
	return nil
}

// TransferFrom implements Ledger. The spender's allowance from the payer is
// consumed alongside the payer's balance; a zero-amount charge always
// succeeds. The payer's own approval is required like anyone else's.
func (t *Token) TransferFrom(_ context.Context, spender, from, to identity.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount.Sign() == 0 {
		return nil
	}

	allowed, ok := t.allowances[from][spender]
	if !ok || allowed.Cmp(amount) < 0 {
		return InsufficientFundsError{Payer: from, Amount: new(big.Int).Set(amount)}
	}
	if !t.debitLocked(from, amount) {
		return InsufficientFundsError{Payer: from, Amount: new(big.Int).Set(amount)}
	}
	allowed.Sub(allowed, amount)

	t.creditLocked(to, amount)
	return nil
}

func (t *Token) creditLocked(account identity.Address, amount *big.Int) {
	bal, ok := t.balances[account]
	if !ok {
		bal = new(big.Int)
		t.balances[account] = bal
	}
	bal.Add(bal, amount)
}

func (t *Token) debitLocked(account identity.Address, amount *big.Int) bool {
	bal, ok := t.balances[account]
	if !ok || bal.Cmp(amount) < 0 {
		return false
	}
	bal.Sub(bal, amount)
	return true
}
