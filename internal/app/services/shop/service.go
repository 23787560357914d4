// Package shop implements the issuance, transfer and destruction engine for
// coffee items.
package shop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/coffee"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/metrics"
	"github.com/coffeechain-labs/coffeeshop/internal/app/payment"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage"
	"github.com/coffeechain-labs/coffeeshop/internal/crypto"
	"github.com/coffeechain-labs/coffeeshop/pkg/logger"
)

// Authorizer checks that an account holds a role.
type Authorizer interface {
	Require(ctx context.Context, account identity.Address, role access.Role) error
}

// InvalidCompositionError reports a composition issuance must reject: an
// absent base, an off-menu tuple, or a component index past its collection.
type InvalidCompositionError struct {
	Composition coffee.Composition
	Reason      string
}

// Error implements error.
func (e InvalidCompositionError) Error() string {
	return fmt.Sprintf("invalid composition (base %d, size %d, milk %d, syrup %d, powder %d): %s",
		e.Composition.Base, e.Composition.Size, e.Composition.Milk, e.Composition.Syrup, e.Composition.Powder, e.Reason)
}

// ErrZeroRecipient rejects transfers aimed at the zero address.
var ErrZeroRecipient = errors.New("cannot transfer to the zero address")

// BurnAuthorization pairs an item id with the owner's signature over the
// item's digest.
type BurnAuthorization struct {
	ItemID    uint64
	Signature []byte
}

// Service is the issuance, transfer and destruction engine. A single mutex
// serializes the mutating operations so each call observes and produces a
// consistent ledger state.
type Service struct {
	mu sync.Mutex

	catalog storage.CatalogStore
	menu    storage.MenuStore
	coffees storage.CoffeeStore
	ledger  payment.Ledger
	auth    Authorizer
	custody identity.Address
	log     *logger.Logger
}

// New constructs a shop service. Issuance proceeds are paid to the custody
// account.
func New(
	catalogStore storage.CatalogStore,
	menuStore storage.MenuStore,
	coffeeStore storage.CoffeeStore,
	ledger payment.Ledger,
	auth Authorizer,
	custody identity.Address,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.NewDefault("shop")
	}
	return &Service{
		catalog: catalogStore,
		menu:    menuStore,
		coffees: coffeeStore,
		ledger:  ledger,
		auth:    auth,
		custody: custody,
		log:     log,
	}
}

// Issue validates every requested composition, charges the buyer the summed
// price in one ledger transfer, and mints one item per composition. The
// charge is drawn as the custody account, so the buyer must hold an approval
// for custody covering the total. Any rejection leaves balances and
// ownership untouched.
func (s *Service) Issue(ctx context.Context, buyer identity.Address, compositions []coffee.Composition) ([]coffee.Coffee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := new(big.Int)
	for _, comp := range compositions {
		price, err := s.priceOf(ctx, comp)
		if err != nil {
			var invalid InvalidCompositionError
			if errors.As(err, &invalid) {
				metrics.RecordIssuanceFailure("invalid_composition")
			}
			return nil, err
		}
		total.Add(total, price)
	}

	if err := s.ledger.TransferFrom(ctx, s.custody, buyer, s.custody, total); err != nil {
		var insufficient payment.InsufficientFundsError
		if errors.As(err, &insufficient) {
			metrics.RecordIssuanceFailure("insufficient_funds")
		}
		return nil, err
	}

	minted, err := s.coffees.MintCoffees(ctx, buyer, compositions)
	if err != nil {
		return nil, err
	}

	metrics.RecordMinted(len(minted))
	s.log.WithField("buyer", buyer.Hex()).
		WithField("count", len(minted)).
		WithField("total", total.String()).
		Info("coffees issued")
	return minted, nil
}

// Transfer moves an item the caller owns to another account.
func (s *Service) Transfer(ctx context.Context, caller identity.Address, id uint64, to identity.Address) error {
	if to.IsZero() {
		return ErrZeroRecipient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.coffees.TransferCoffee(ctx, id, caller, to); err != nil {
		return err
	}

	metrics.RecordTransferred()
	s.log.WithField("coffee_id", id).
		WithField("from", caller.Hex()).
		WithField("to", to.Hex()).
		Info("coffee transferred")
	return nil
}

// Burn destroys a batch of items. The caller must hold the coffee house
// role, and each item must carry its current owner's signature over the
// item's digest. Every authorization is checked before any item is removed;
// one bad entry rejects the whole batch.
func (s *Service) Burn(ctx context.Context, caller identity.Address, auths []BurnAuthorization) error {
	if err := s.auth.Require(ctx, caller, access.RoleCoffeeHouse); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An id may appear once per batch; the second occurrence refers to an
	// item the batch has already consumed.
	pending := make(map[uint64]struct{}, len(auths))
	for _, auth := range auths {
		if _, dup := pending[auth.ItemID]; dup {
			return coffee.InvalidSignatureError{ItemID: auth.ItemID, Reason: "item already consumed by this batch"}
		}

		item, err := s.coffees.GetCoffee(ctx, auth.ItemID)
		if errors.Is(err, coffee.ErrNotFound) {
			return coffee.InvalidSignatureError{ItemID: auth.ItemID, Reason: "item does not exist"}
		}
		if err != nil {
			return err
		}

		signer, err := crypto.RecoverSigner(crypto.ItemDigest(auth.ItemID), auth.Signature)
		if err != nil {
			return coffee.InvalidSignatureError{ItemID: auth.ItemID, Reason: "malformed signature"}
		}
		if signer != item.Owner {
			return coffee.InvalidSignatureError{ItemID: auth.ItemID, Reason: "signer does not match owner"}
		}
		pending[auth.ItemID] = struct{}{}
	}

	for _, auth := range auths {
		if err := s.coffees.RemoveCoffee(ctx, auth.ItemID); err != nil {
			return err
		}
	}

	metrics.RecordBurned(len(auths))
	s.log.WithField("caller", caller.Hex()).
		WithField("count", len(auths)).
		Info("coffees burned")
	return nil
}

// GetCoffee returns a minted item.
func (s *Service) GetCoffee(ctx context.Context, id uint64) (coffee.Coffee, error) {
	return s.coffees.GetCoffee(ctx, id)
}

// CoffeesOf returns the ids currently owned by an account.
func (s *Service) CoffeesOf(ctx context.Context, owner identity.Address) ([]uint64, error) {
	return s.coffees.CoffeesOf(ctx, owner)
}

// priceOf validates one composition and returns its price. The base must be
// a live catalog entry and the tuple must be on the menu; the other
// components must be in range, but revoked slots are tolerated and priced at
// zero.
func (s *Service) priceOf(ctx context.Context, comp coffee.Composition) (*big.Int, error) {
	base, err := s.catalog.GetBase(ctx, comp.Base)
	if err != nil {
		var oor catalog.IndexOutOfRangeError
		if errors.As(err, &oor) {
			return nil, InvalidCompositionError{Composition: comp, Reason: "base does not exist"}
		}
		return nil, err
	}
	if !base.Exists {
		return nil, InvalidCompositionError{Composition: comp, Reason: "base does not exist"}
	}

	allowed, err := s.menu.IsAllowedProduct(ctx, comp.Base, comp.Size, comp.Milk, comp.Syrup, comp.Powder)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, InvalidCompositionError{Composition: comp, Reason: "composition is not on the menu"}
	}

	price := new(big.Int)
	addPrice(price, base.Price)

	size, err := s.catalog.GetSize(ctx, comp.Size)
	if err != nil {
		return nil, componentError(comp, "size", err)
	}
	addPrice(price, size.Price)

	if _, err := s.catalog.GetMilk(ctx, comp.Milk); err != nil {
		return nil, componentError(comp, "milk", err)
	}

	syrup, err := s.catalog.GetSyrup(ctx, comp.Syrup)
	if err != nil {
		return nil, componentError(comp, "syrup", err)
	}
	addPrice(price, syrup.Price)

	powder, err := s.catalog.GetPowder(ctx, comp.Powder)
	if err != nil {
		return nil, componentError(comp, "powder", err)
	}
	addPrice(price, powder.Price)

	return price, nil
}

func componentError(comp coffee.Composition, component string, err error) error {
	var oor catalog.IndexOutOfRangeError
	if errors.As(err, &oor) {
		return InvalidCompositionError{Composition: comp, Reason: component + " index out of range"}
	}
	return err
}

func addPrice(total, price *big.Int) {
	if price != nil {
		total.Add(total, price)
	}
}
