// Package app assembles the coffeeshop services over a set of stores.
package app

import (
	"context"
	"fmt"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/payment"
	accesssvc "github.com/coffeechain-labs/coffeeshop/internal/app/services/access"
	catalogsvc "github.com/coffeechain-labs/coffeeshop/internal/app/services/catalog"
	menusvc "github.com/coffeechain-labs/coffeeshop/internal/app/services/menu"
	shopsvc "github.com/coffeechain-labs/coffeeshop/internal/app/services/shop"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage/memory"
	"github.com/coffeechain-labs/coffeeshop/pkg/logger"
)

// Stores carries the persistence backends. Leave a field nil to fall back to
// the shared in-memory store.
type Stores struct {
	Catalog storage.CatalogStore
	Menu    storage.MenuStore
	Roles   storage.RoleStore
	Coffees storage.CoffeeStore
}

// Config configures an Application.
type Config struct {
	// Admin is granted the administrator role at startup.
	Admin identity.Address
	// Custody receives issuance proceeds.
	Custody identity.Address
	// Ledger is the balance ledger issuance charges against. Defaults to an
	// in-memory token.
	Ledger payment.Ledger
	// Logger is the root logger. Defaults to a logger named "app".
	Logger *logger.Logger
}

// Application bundles the running services.
type Application struct {
	Access  *accesssvc.Service
	Catalog *catalogsvc.Service
	Menu    *menusvc.Service
	Shop    *shopsvc.Service
	Ledger  payment.Ledger
	Log     *logger.Logger
}

// New wires the services and bootstraps the administrator role.
func New(ctx context.Context, stores Stores, cfg Config) (*Application, error) {
	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("admin address is required")
	}
	if cfg.Custody.IsZero() {
		return nil, fmt.Errorf("custody address is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("app")
	}

	if stores.Catalog == nil || stores.Menu == nil || stores.Roles == nil || stores.Coffees == nil {
		mem := memory.New()
		if stores.Catalog == nil {
			stores.Catalog = mem
		}
		if stores.Menu == nil {
			stores.Menu = mem
		}
		if stores.Roles == nil {
			stores.Roles = mem
		}
		if stores.Coffees == nil {
			stores.Coffees = mem
		}
	}

	ledger := cfg.Ledger
	if ledger == nil {
		ledger = payment.NewToken()
	}

	access := accesssvc.New(stores.Roles, log.WithField("component", "access"))
	if err := access.Bootstrap(ctx, cfg.Admin); err != nil {
		return nil, fmt.Errorf("bootstrap administrator: %w", err)
	}

	return &Application{
		Access:  access,
		Catalog: catalogsvc.New(stores.Catalog, access, log.WithField("component", "catalog")),
		Menu:    menusvc.New(stores.Menu, access, log.WithField("component", "menu")),
		Shop:    shopsvc.New(stores.Catalog, stores.Menu, stores.Coffees, ledger, access, cfg.Custody, log.WithField("component", "shop")),
		Ledger:  ledger,
		Log:     log,
	}, nil
}
