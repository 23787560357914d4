// Package access manages role grants and enforces role checks for the
// mutating operations of the shop.
package access

import (
	"context"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage"
	"github.com/coffeechain-labs/coffeeshop/pkg/logger"
)

// Service manages role grants.
type Service struct {
	store storage.RoleStore
	log   *logger.Logger
}

// New constructs an access service.
func New(store storage.RoleStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("access")
	}
	return &Service{store: store, log: log}
}

// Bootstrap grants the administrator role to the deploying account. Called
// once at startup; re-granting an existing role is a no-op.
func (s *Service) Bootstrap(ctx context.Context, admin identity.Address) error {
	if err := s.store.GrantRole(ctx, access.RoleAdmin, admin); err != nil {
		return err
	}
	s.log.WithField("account", admin.Hex()).Info("administrator bootstrapped")
	return nil
}

// Require returns an UnauthorizedError unless account holds role.
func (s *Service) Require(ctx context.Context, account identity.Address, role access.Role) error {
	held, err := s.store.HasRole(ctx, role, account)
	if err != nil {
		return err
	}
	if !held {
		return access.UnauthorizedError{Account: account, Role: role}
	}
	return nil
}

// HasRole reports whether account holds role.
func (s *Service) HasRole(ctx context.Context, role access.Role, account identity.Address) (bool, error) {
	return s.store.HasRole(ctx, role, account)
}

// GrantCoffeeHouse grants the coffee house role to account. Caller must be
// an administrator. Granting an already-held role succeeds.
func (s *Service) GrantCoffeeHouse(ctx context.Context, caller, account identity.Address) error {
	if err := s.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.GrantRole(ctx, access.RoleCoffeeHouse, account); err != nil {
		return err
	}
	s.log.WithField("account", account.Hex()).
		WithField("granted_by", caller.Hex()).
		Info("coffee house role granted")
	return nil
}

// RevokeCoffeeHouse revokes the coffee house role from account. Caller must
// be an administrator. Revoking an unheld role succeeds.
func (s *Service) RevokeCoffeeHouse(ctx context.Context, caller, account identity.Address) error {
	if err := s.Require(ctx, caller, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.store.RevokeRole(ctx, access.RoleCoffeeHouse, account); err != nil {
		return err
	}
	s.log.WithField("account", account.Hex()).
		WithField("revoked_by", caller.Hex()).
		Info("coffee house role revoked")
	return nil
}
