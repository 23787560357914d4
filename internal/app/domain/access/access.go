// Package access defines the engine's roles and the structured error raised
// when a caller is missing one.
package access

import (
	"fmt"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
)

// Role names a capability granted to an account.
type Role string

const (
	// RoleAdmin gates catalog and menu mutation and role management. It is
	// granted to the deployer account at bootstrap.
	RoleAdmin Role = "ADMIN"

	// RoleCoffeeHouse gates the destruction protocol: only holders may
	// submit burn requests, which additionally require owner signatures.
	RoleCoffeeHouse Role = "COFFEE_HOUSE"
)

// UnauthorizedError reports a failed role check with enough context for the
// caller to correct the request.
type UnauthorizedError struct {
	Account identity.Address
	Role    Role
}

// Error implements error.
func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("access control: account %s is missing role %s", e.Account.Hex(), e.Role)
}
