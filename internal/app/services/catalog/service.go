// Package catalog manages the five component collections coffees are
// assembled from. Mutations are restricted to administrators; reads are open.
package catalog

import (
	"context"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage"
	"github.com/coffeechain-labs/coffeeshop/pkg/logger"
)

// Authorizer checks that an account holds a role.
type Authorizer interface {
	Require(ctx context.Context, account identity.Address, role access.Role) error
}

// Service manages catalog entries.
type Service struct {
	store storage.CatalogStore
	auth  Authorizer
	log   *logger.Logger
}

// New constructs a catalog service.
func New(store storage.CatalogStore, auth Authorizer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, auth: auth, log: log}
}

// AddSizes appends size entries and returns their allocated indices.
func (s *Service) AddSizes(ctx context.Context, caller identity.Address, entries []catalog.Size) ([]uint32, error) {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return nil, err
	}
	indices, err := s.store.AppendSizes(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.log.WithField("kind", catalog.KindSize).WithField("count", len(entries)).Info("catalog entries added")
	return indices, nil
}

// RevokeSize zeroes a size slot. The index stays allocated.
func (s *Service) RevokeSize(ctx context.Context, caller identity.Address, index uint32) error {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.RevokeSize(ctx, index); err != nil {
		return err
	}
	s.log.WithField("kind", catalog.KindSize).WithField("index", index).Info("catalog entry revoked")
	return nil
}

// GetSize reads a size slot. Revoked in-range slots return the zero entry.
func (s *Service) GetSize(ctx context.Context, index uint32) (catalog.Size, error) {
	return s.store.GetSize(ctx, index)
}

// SizeCount returns the number of allocated size slots.
func (s *Service) SizeCount(ctx context.Context) (uint32, error) {
	return s.store.SizeCount(ctx)
}

// AddBases appends base entries and returns their allocated indices.
func (s *Service) AddBases(ctx context.Context, caller identity.Address, entries []catalog.Base) ([]uint32, error) {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return nil, err
	}
	indices, err := s.store.AppendBases(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.log.WithField("kind", catalog.KindBase).WithField("count", len(entries)).Info("catalog entries added")
	return indices, nil
}

// RevokeBase zeroes a base slot.
func (s *Service) RevokeBase(ctx context.Context, caller identity.Address, index uint32) error {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.RevokeBase(ctx, index); err != nil {
		return err
	}
	s.log.WithField("kind", catalog.KindBase).WithField("index", index).Info("catalog entry revoked")
	return nil
}

// GetBase reads a base slot.
func (s *Service) GetBase(ctx context.Context, index uint32) (catalog.Base, error) {
	return s.store.GetBase(ctx, index)
}

// BaseCount returns the number of allocated base slots.
func (s *Service) BaseCount(ctx context.Context) (uint32, error) {
	return s.store.BaseCount(ctx)
}

// AddSyrups appends syrup entries and returns their allocated indices.
func (s *Service) AddSyrups(ctx context.Context, caller identity.Address, entries []catalog.Syrup) ([]uint32, error) {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return nil, err
	}
	indices, err := s.store.AppendSyrups(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.log.WithField("kind", catalog.KindSyrup).WithField("count", len(entries)).Info("catalog entries added")
	return indices, nil
}

// RevokeSyrup zeroes a syrup slot.
func (s *Service) RevokeSyrup(ctx context.Context, caller identity.Address, index uint32) error {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.RevokeSyrup(ctx, index); err != nil {
		return err
	}
	s.log.WithField("kind", catalog.KindSyrup).WithField("index", index).Info("catalog entry revoked")
	return nil
}

// GetSyrup reads a syrup slot.
func (s *Service) GetSyrup(ctx context.Context, index uint32) (catalog.Syrup, error) {
	return s.store.GetSyrup(ctx, index)
}

// SyrupCount returns the number of allocated syrup slots.
func (s *Service) SyrupCount(ctx context.Context) (uint32, error) {
	return s.store.SyrupCount(ctx)
}

// AddPowders appends powder entries and returns their allocated indices.
func (s *Service) AddPowders(ctx context.Context, caller identity.Address, entries []catalog.Powder) ([]uint32, error) {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return nil, err
	}
	indices, err := s.store.AppendPowders(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.log.WithField("kind", catalog.KindPowder).WithField("count", len(entries)).Info("catalog entries added")
	return indices, nil
}

// RevokePowder zeroes a powder slot.
func (s *Service) RevokePowder(ctx context.Context, caller identity.Address, index uint32) error {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.RevokePowder(ctx, index); err != nil {
		return err
	}
	s.log.WithField("kind", catalog.KindPowder).WithField("index", index).Info("catalog entry revoked")
	return nil
}

// GetPowder reads a powder slot.
func (s *Service) GetPowder(ctx context.Context, index uint32) (catalog.Powder, error) {
	return s.store.GetPowder(ctx, index)
}

// PowderCount returns the number of allocated powder slots.
func (s *Service) PowderCount(ctx context.Context) (uint32, error) {
	return s.store.PowderCount(ctx)
}

// AddMilks appends milk entries and returns their allocated indices.
func (s *Service) AddMilks(ctx context.Context, caller identity.Address, entries []catalog.Milk) ([]uint32, error) {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return nil, err
	}
	indices, err := s.store.AppendMilks(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.log.WithField("kind", catalog.KindMilk).WithField("count", len(entries)).Info("catalog entries added")
	return indices, nil
}

// RevokeMilk zeroes a milk slot.
func (s *Service) RevokeMilk(ctx context.Context, caller identity.Address, index uint32) error {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.RevokeMilk(ctx, index); err != nil {
		return err
	}
	s.log.WithField("kind", catalog.KindMilk).WithField("index", index).Info("catalog entry revoked")
	return nil
}

// GetMilk reads a milk slot.
func (s *Service) GetMilk(ctx context.Context, index uint32) (catalog.Milk, error) {
	return s.store.GetMilk(ctx, index)
}

// MilkCount returns the number of allocated milk slots.
func (s *Service) MilkCount(ctx context.Context) (uint32, error) {
	return s.store.MilkCount(ctx)
}
