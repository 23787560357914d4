package catalog

import (
	"context"
	"errors"
	"math/big"
	"testing"

	domainaccess "github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	accesssvc "github.com/coffeechain-labs/coffeeshop/internal/app/services/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage/memory"
)

func addr(b byte) identity.Address {
	var a identity.Address
	a[19] = b
	return a
}

func newService(t *testing.T) (*Service, identity.Address) {
	t.Helper()
	store := memory.New()
	auth := accesssvc.New(store, nil)
	admin := addr(1)
	if err := auth.Bootstrap(context.Background(), admin); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return New(store, auth, nil), admin
}

func TestAddSizesRequiresAdmin(t *testing.T) {
	svc, admin := newService(t)
	ctx := context.Background()

	_, err := svc.AddSizes(ctx, addr(9), []catalog.Size{{Exists: true, Name: "tall"}})
	var unauthorized domainaccess.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}

	indices, err := svc.AddSizes(ctx, admin, []catalog.Size{
		{Exists: true, Name: "tall", Price: big.NewInt(100)},
		{Exists: true, Name: "venti", Price: big.NewInt(200)},
	})
	if err != nil {
		t.Fatalf("add sizes: %v", err)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 1 {
		t.Fatalf("unexpected indices %v", indices)
	}
}

func TestRevokedEntryReadsAsZero(t *testing.T) {
	svc, admin := newService(t)
	ctx := context.Background()

	if _, err := svc.AddBases(ctx, admin, []catalog.Base{
		{Exists: true, Name: "espresso", Price: big.NewInt(300), DefaultSize: 1},
	}); err != nil {
		t.Fatalf("add bases: %v", err)
	}

	if err := svc.RevokeBase(ctx, addr(9), 0); err == nil {
		t.Fatal("revoke by non-admin succeeded")
	}
	if err := svc.RevokeBase(ctx, admin, 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	got, err := svc.GetBase(ctx, 0)
	if err != nil {
		t.Fatalf("get revoked base: %v", err)
	}
	if got.Exists || got.Name != "" || got.Price != nil || got.DefaultSize != 0 {
		t.Fatalf("expected zero entry, got %+v", got)
	}
	if n, _ := svc.BaseCount(ctx); n != 1 {
		t.Fatalf("revoke freed the index: count %d", n)
	}
}

func TestReadsAreOpen(t *testing.T) {
	svc, admin := newService(t)
	ctx := context.Background()

	if _, err := svc.AddMilks(ctx, admin, []catalog.Milk{{Exists: true, Name: "oat"}}); err != nil {
		t.Fatalf("add milks: %v", err)
	}

	// No caller needed on reads.
	got, err := svc.GetMilk(ctx, 0)
	if err != nil || got.Name != "oat" {
		t.Fatalf("open read failed: %+v %v", got, err)
	}

	var oor catalog.IndexOutOfRangeError
	if _, err := svc.GetMilk(ctx, 5); !errors.As(err, &oor) {
		t.Fatalf("expected IndexOutOfRangeError, got %v", err)
	}
}

func TestAppendAfterRevokeContinuesSequence(t *testing.T) {
	svc, admin := newService(t)
	ctx := context.Background()

	if _, err := svc.AddSyrups(ctx, admin, []catalog.Syrup{
		{Exists: true, Name: "vanilla"},
		{Exists: true, Name: "caramel"},
	}); err != nil {
		t.Fatalf("add syrups: %v", err)
	}
	if err := svc.RevokeSyrup(ctx, admin, 1); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	indices, err := svc.AddSyrups(ctx, admin, []catalog.Syrup{{Exists: true, Name: "hazelnut"}})
	if err != nil {
		t.Fatalf("add after revoke: %v", err)
	}
	if indices[0] != 2 {
		t.Fatalf("revoked index reused: got %d, want 2", indices[0])
	}
}
