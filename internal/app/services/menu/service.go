// Package menu manages the allowed-product matrix that gates which
// compositions may be issued.
package menu

import (
	"context"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/menu"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage"
	"github.com/coffeechain-labs/coffeeshop/pkg/logger"
)

// Authorizer checks that an account holds a role.
type Authorizer interface {
	Require(ctx context.Context, account identity.Address, role access.Role) error
}

// Service manages the allowed-product matrix.
type Service struct {
	store storage.MenuStore
	auth  Authorizer
	log   *logger.Logger
}

// New constructs a menu service.
func New(store storage.MenuStore, auth Authorizer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("menu")
	}
	return &Service{store: store, auth: auth, log: log}
}

// SetAllowedProduct replaces all four axes for a base in one write. Indices
// not re-listed lose their membership. The base index is not required to
// name a live catalog entry; a configuration against an absent base is
// simply unreachable until that base exists.
func (s *Service) SetAllowedProduct(ctx context.Context, caller identity.Address, base uint32, axes menu.Axes) error {
	if err := s.auth.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.SetAllowedProduct(ctx, base, axes); err != nil {
		return err
	}
	s.log.WithField("base", base).
		WithField("sizes", len(axes.Sizes)).
		WithField("milks", len(axes.Milks)).
		WithField("syrups", len(axes.Syrups)).
		WithField("powders", len(axes.Powders)).
		Info("allowed product configured")
	return nil
}

// GetAllowedProduct returns the configured axes for a base. An unconfigured
// base returns empty axes.
func (s *Service) GetAllowedProduct(ctx context.Context, base uint32) (menu.Axes, error) {
	return s.store.GetAllowedProduct(ctx, base)
}

// IsAllowedProduct reports whether each component index is a member of its
// axis for the base.
func (s *Service) IsAllowedProduct(ctx context.Context, base, size, milk, syrup, powder uint32) (bool, error) {
	return s.store.IsAllowedProduct(ctx, base, size, milk, syrup, powder)
}
