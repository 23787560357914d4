// Package payment defines the fungible balance ledger coffees are paid
// through, plus an in-memory token for local deployments and tests.
package payment

import (
	"context"
	"fmt"
	"math/big"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
)

// Ledger is the external balance ledger issuance charges against. A
// TransferFrom moves amount from the payer to the recipient on the authority
// of spender, who must hold a sufficient allowance from the payer.
type Ledger interface {
	TransferFrom(ctx context.Context, spender, from, to identity.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, account identity.Address) (*big.Int, error)
}

// InsufficientFundsError reports a charge the payer's balance or allowance
// could not cover.
type InsufficientFundsError struct {
	Payer  identity.Address
	Amount *big.Int
}

// Error implements error.
func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds or approval: account %s cannot pay %s", e.Payer.Hex(), e.Amount)
}
