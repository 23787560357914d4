// Package storage defines the persistence interfaces for the coffeeshop
// engine. Implementations must be safe for concurrent use; multi-entry
// operations (batch appends, axis replacement, minting) are atomic within a
// single call.
package storage

import (
	"context"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/coffee"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/menu"
)

// CatalogStore persists the five catalog collections. Appends allocate the
// next sequential indices; revokes zero the slot without freeing the index.
// Get returns catalog.IndexOutOfRangeError past the allocated range and the
// zero entry for in-range revoked slots. Revoke returns catalog.NotFoundError
// past the allocated range and is idempotent on already-revoked slots.
type CatalogStore interface {
	AppendSizes(ctx context.Context, entries []catalog.Size) ([]uint32, error)
	RevokeSize(ctx context.Context, index uint32) error
	GetSize(ctx context.Context, index uint32) (catalog.Size, error)
	SizeCount(ctx context.Context) (uint32, error)

	AppendBases(ctx context.Context, entries []catalog.Base) ([]uint32, error)
	RevokeBase(ctx context.Context, index uint32) error
	GetBase(ctx context.Context, index uint32) (catalog.Base, error)
	BaseCount(ctx context.Context) (uint32, error)

	AppendSyrups(ctx context.Context, entries []catalog.Syrup) ([]uint32, error)
	RevokeSyrup(ctx context.Context, index uint32) error
	GetSyrup(ctx context.Context, index uint32) (catalog.Syrup, error)
	SyrupCount(ctx context.Context) (uint32, error)

	AppendPowders(ctx context.Context, entries []catalog.Powder) ([]uint32, error)
	RevokePowder(ctx context.Context, index uint32) error
	GetPowder(ctx context.Context, index uint32) (catalog.Powder, error)
	PowderCount(ctx context.Context) (uint32, error)

	AppendMilks(ctx context.Context, entries []catalog.Milk) ([]uint32, error)
	RevokeMilk(ctx context.Context, index uint32) error
	GetMilk(ctx context.Context, index uint32) (catalog.Milk, error)
	MilkCount(ctx context.Context) (uint32, error)
}

// MenuStore persists the allowed-product matrix. SetAllowedProduct replaces
// all four axes for the base in one atomic write.
type MenuStore interface {
	SetAllowedProduct(ctx context.Context, base uint32, axes menu.Axes) error
	GetAllowedProduct(ctx context.Context, base uint32) (menu.Axes, error)
	IsAllowedProduct(ctx context.Context, base, size, milk, syrup, powder uint32) (bool, error)
}

// RoleStore persists role grants. Grant and revoke are idempotent.
type RoleStore interface {
	GrantRole(ctx context.Context, role access.Role, account identity.Address) error
	RevokeRole(ctx context.Context, role access.Role, account identity.Address) error
	HasRole(ctx context.Context, role access.Role, account identity.Address) (bool, error)
}

// CoffeeStore persists minted items and the owner index. Minting allocates
// sequential ids that are never reused, including after removal. CoffeesOf
// returns ids in insertion (mint/transfer) order; removal may compact the
// owner's sequence, so order is not preserved across removals.
type CoffeeStore interface {
	MintCoffees(ctx context.Context, owner identity.Address, compositions []coffee.Composition) ([]coffee.Coffee, error)
	GetCoffee(ctx context.Context, id uint64) (coffee.Coffee, error)
	CoffeesOf(ctx context.Context, owner identity.Address) ([]uint64, error)
	TransferCoffee(ctx context.Context, id uint64, from, to identity.Address) error
	RemoveCoffee(ctx context.Context, id uint64) error
}
