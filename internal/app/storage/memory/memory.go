// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/coffee"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/menu"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces.
type Store struct {
	mu sync.RWMutex

	sizes   []catalog.Size
	bases   []catalog.Base
	syrups  []catalog.Syrup
	powders []catalog.Powder
	milks   []catalog.Milk

	allowed map[uint32]axisSets

	roles map[access.Role]map[identity.Address]struct{}

	nextCoffeeID uint64
	coffees      map[uint64]coffee.Coffee
	owned        map[identity.Address][]uint64
}

type axisSets struct {
	sizes   map[uint32]struct{}
	milks   map[uint32]struct{}
	syrups  map[uint32]struct{}
	powders map[uint32]struct{}
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.MenuStore = (*Store)(nil)
var _ storage.RoleStore = (*Store)(nil)
var _ storage.CoffeeStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		allowed: make(map[uint32]axisSets),
		roles:   make(map[access.Role]map[identity.Address]struct{}),
		coffees: make(map[uint64]coffee.Coffee),
		owned:   make(map[identity.Address][]uint64),
	}
}

// CatalogStore implementation -------------------------------------------------

func (s *Store) AppendSizes(_ context.Context, entries []catalog.Size) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]uint32, 0, len(entries))
	for _, e := range entries {
		e.Price = cloneBig(e.Price)
		indices = append(indices, uint32(len(s.sizes)))
		s.sizes = append(s.sizes, e)
	}
	return indices, nil
}

func (s *Store) RevokeSize(_ context.Context, index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint32(len(s.sizes)) {
		return catalog.NotFoundError{Kind: catalog.KindSize, Index: index}
	}
	s.sizes[index] = catalog.Size{}
	return nil
}

func (s *Store) GetSize(_ context.Context, index uint32) (catalog.Size, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint32(len(s.sizes)) {
		return catalog.Size{}, catalog.IndexOutOfRangeError{Kind: catalog.KindSize, Index: index, Length: uint32(len(s.sizes))}
	}
	e := s.sizes[index]
	e.Price = cloneBig(e.Price)
	return e, nil
}

func (s *Store) SizeCount(_ context.Context) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint32(len(s.sizes)), nil
}

func (s *Store) AppendBases(_ context.Context, entries []catalog.Base) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]uint32, 0, len(entries))
	for _, e := range entries {
		e.Price = cloneBig(e.Price)
		indices = append(indices, uint32(len(s.bases)))
		s.bases = append(s.bases, e)
	}
	return indices, nil
}

func (s *Store) RevokeBase(_ context.Context, index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint32(len(s.bases)) {
		return catalog.NotFoundError{Kind: catalog.KindBase, Index: index}
	}
	s.bases[index] = catalog.Base{}
	return nil
}

func (s *Store) GetBase(_ context.Context, index uint32) (catalog.Base, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint32(len(s.bases)) {
		return catalog.Base{}, catalog.IndexOutOfRangeError{Kind: catalog.KindBase, Index: index, Length: uint32(len(s.bases))}
	}
	e := s.bases[index]
	e.Price = cloneBig(e.Price)
	return e, nil
}

func (s *Store) BaseCount(_ context.Context) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint32(len(s.bases)), nil
}

func (s *Store) AppendSyrups(_ context.Context, entries []catalog.Syrup) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]uint32, 0, len(entries))
	for _, e := range entries {
		e.Price = cloneBig(e.Price)
		indices = append(indices, uint32(len(s.syrups)))
		s.syrups = append(s.syrups, e)
	}
	return indices, nil
}

func (s *Store) RevokeSyrup(_ context.Context, index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint32(len(s.syrups)) {
		return catalog.NotFoundError{Kind: catalog.KindSyrup, Index: index}
	}
	s.syrups[index] = catalog.Syrup{}
	return nil
}

func (s *Store) GetSyrup(_ context.Context, index uint32) (catalog.Syrup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint32(len(s.syrups)) {
		return catalog.Syrup{}, catalog.IndexOutOfRangeError{Kind: catalog.KindSyrup, Index: index, Length: uint32(len(s.syrups))}
	}
	e := s.syrups[index]
	e.Price = cloneBig(e.Price)
	return e, nil
}

func (s *Store) SyrupCount(_ context.Context) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint32(len(s.syrups)), nil
}

func (s *Store) AppendPowders(_ context.Context, entries []catalog.Powder) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]uint32, 0, len(entries))
	for _, e := range entries {
		e.Price = cloneBig(e.Price)
		indices = append(indices, uint32(len(s.powders)))
		s.powders = append(s.powders, e)
	}
	return indices, nil
}

func (s *Store) RevokePowder(_ context.Context, index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint32(len(s.powders)) {
		return catalog.NotFoundError{Kind: catalog.KindPowder, Index: index}
	}
	s.powders[index] = catalog.Powder{}
	return nil
}

func (s *Store) GetPowder(_ context.Context, index uint32) (catalog.Powder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint32(len(s.powders)) {
		return catalog.Powder{}, catalog.IndexOutOfRangeError{Kind: catalog.KindPowder, Index: index, Length: uint32(len(s.powders))}
	}
	e := s.powders[index]
	e.Price = cloneBig(e.Price)
	return e, nil
}

func (s *Store) PowderCount(_ context.Context) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint32(len(s.powders)), nil
}

func (s *Store) AppendMilks(_ context.Context, entries []catalog.Milk) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]uint32, 0, len(entries))
	for _, e := range entries {
		indices = append(indices, uint32(len(s.milks)))
		s.milks = append(s.milks, e)
	}
	return indices, nil
}

func (s *Store) RevokeMilk(_ context.Context, index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint32(len(s.milks)) {
		return catalog.NotFoundError{Kind: catalog.KindMilk, Index: index}
	}
	s.milks[index] = catalog.Milk{}
	return nil
}

func (s *Store) GetMilk(_ context.Context, index uint32) (catalog.Milk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint32(len(s.milks)) {
		return catalog.Milk{}, catalog.IndexOutOfRangeError{Kind: catalog.KindMilk, Index: index, Length: uint32(len(s.milks))}
	}
	return s.milks[index], nil
}

func (s *Store) MilkCount(_ context.Context) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint32(len(s.milks)), nil
}

// MenuStore implementation ----------------------------------------------------

func (s *Store) SetAllowedProduct(_ context.Context, base uint32, axes menu.Axes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowed[base] = axisSets{
		sizes:   toSet(axes.Sizes),
		milks:   toSet(axes.Milks),
		syrups:  toSet(axes.Syrups),
		powders: toSet(axes.Powders),
	}
	return nil
}

func (s *Store) GetAllowedProduct(_ context.Context, base uint32) (menu.Axes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sets, ok := s.allowed[base]
	if !ok {
		return menu.Axes{}, nil
	}
	return menu.Axes{
		Sizes:   fromSet(sets.sizes),
		Milks:   fromSet(sets.milks),
		Syrups:  fromSet(sets.syrups),
		Powders: fromSet(sets.powders),
	}, nil
}

func (s *Store) IsAllowedProduct(_ context.Context, base, size, milk, syrup, powder uint32) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sets, ok := s.allowed[base]
	if !ok {
		return false, nil
	}
	if _, ok := sets.sizes[size]; !ok {
		return false, nil
	}
	if _, ok := sets.milks[milk]; !ok {
		return false, nil
	}
	if _, ok := sets.syrups[syrup]; !ok {
		return false, nil
	}
	if _, ok := sets.powders[powder]; !ok {
		return false, nil
	}
	return true, nil
}

// RoleStore implementation ----------------------------------------------------

func (s *Store) GrantRole(_ context.Context, role access.Role, account identity.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	holders, ok := s.roles[role]
	if !ok {
		holders = make(map[identity.Address]struct{})
		s.roles[role] = holders
	}
	holders[account] = struct{}{}
	return nil
}

func (s *Store) RevokeRole(_ context.Context, role access.Role, account identity.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if holders, ok := s.roles[role]; ok {
		delete(holders, account)
	}
	return nil
}

func (s *Store) HasRole(_ context.Context, role access.Role, account identity.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holders, ok := s.roles[role]
	if !ok {
		return false, nil
	}
	_, held := holders[account]
	return held, nil
}

// CoffeeStore implementation --------------------------------------------------

func (s *Store) MintCoffees(_ context.Context, owner identity.Address, compositions []coffee.Composition) ([]coffee.Coffee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	minted := make([]coffee.Coffee, 0, len(compositions))
	for _, comp := range compositions {
		c := coffee.Coffee{
			ID:          s.nextCoffeeID,
			Composition: comp,
			Owner:       owner,
			MintedAt:    now,
		}
		s.nextCoffeeID++
		s.coffees[c.ID] = c
		s.owned[owner] = append(s.owned[owner], c.ID)
		minted = append(minted, c)
	}
	return minted, nil
}

func (s *Store) GetCoffee(_ context.Context, id uint64) (coffee.Coffee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coffees[id]
	if !ok {
		return coffee.Coffee{}, coffee.ErrNotFound
	}
	return c, nil
}

func (s *Store) CoffeesOf(_ context.Context, owner identity.Address) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.owned[owner]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *Store) TransferCoffee(_ context.Context, id uint64, from, to identity.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coffees[id]
	if !ok {
		return coffee.ErrNotFound
	}
	if c.Owner != from {
		return coffee.NotOwnerError{Account: from, ItemID: id}
	}

	s.removeOwnedLocked(from, id)
	c.Owner = to
	s.coffees[id] = c
	s.owned[to] = append(s.owned[to], id)
	return nil
}

func (s *Store) RemoveCoffee(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coffees[id]
	if !ok {
		return coffee.ErrNotFound
	}
	s.removeOwnedLocked(c.Owner, id)
	delete(s.coffees, id)
	return nil
}

// removeOwnedLocked drops id from the owner's sequence by swapping the last
// element into its slot. O(1), at the cost of sequence order.
func (s *Store) removeOwnedLocked(owner identity.Address, id uint64) {
	ids := s.owned[owner]
	for i, v := range ids {
		if v == id {
			ids[i] = ids[len(ids)-1]
			s.owned[owner] = ids[:len(ids)-1]
			return
		}
	}
}

func toSet(indices []uint32) map[uint32]struct{} {
	set := make(map[uint32]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	return set
}

func fromSet(set map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	return out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
