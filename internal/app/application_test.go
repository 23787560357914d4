package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/coffee"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/menu"
	"github.com/coffeechain-labs/coffeeshop/internal/app/payment"
	shopsvc "github.com/coffeechain-labs/coffeeshop/internal/app/services/shop"
	"github.com/coffeechain-labs/coffeeshop/internal/crypto"
)

func addr(b byte) identity.Address {
	var a identity.Address
	a[19] = b
	return a
}

// TestFullLifecycle walks the whole flow: catalog setup, menu configuration,
// role grants, funded issuance, transfer, and a signature-gated burn.
func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()

	token := payment.NewToken()
	admin, custody, house := addr(1), addr(2), addr(3)

	application, err := New(ctx, Stores{}, Config{Admin: admin, Custody: custody, Ledger: token})
	require.NoError(t, err)

	// Catalog.
	baseIdx, err := application.Catalog.AddBases(ctx, admin, []catalog.Base{
		{Exists: true, Name: "espresso", Price: big.NewInt(300), DefaultSize: 0},
		{Exists: true, Name: "latte", Price: big.NewInt(350), DefaultSize: 1},
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1}, baseIdx)

	_, err = application.Catalog.AddSizes(ctx, admin, []catalog.Size{
		{Exists: true, Name: "tall", Price: big.NewInt(100)},
		{Exists: true, Name: "venti", Price: big.NewInt(200)},
	})
	require.NoError(t, err)
	_, err = application.Catalog.AddMilks(ctx, admin, []catalog.Milk{{Exists: true, Name: "oat"}})
	require.NoError(t, err)
	_, err = application.Catalog.AddSyrups(ctx, admin, []catalog.Syrup{{Exists: true, Name: "vanilla", Price: big.NewInt(50)}})
	require.NoError(t, err)
	_, err = application.Catalog.AddPowders(ctx, admin, []catalog.Powder{{Exists: true, Name: "cocoa", Price: big.NewInt(25)}})
	require.NoError(t, err)

	// Menu.
	require.NoError(t, application.Menu.SetAllowedProduct(ctx, admin, 0, menu.Axes{
		Sizes: []uint32{0, 1}, Milks: []uint32{0}, Syrups: []uint32{0}, Powders: []uint32{0},
	}))

	// Roles.
	require.NoError(t, application.Access.GrantCoffeeHouse(ctx, admin, house))

	// A buyer whose address is derived from a signing key.
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	buyer := crypto.PubkeyToAddress(key.PubKey())
	token.Mint(buyer, big.NewInt(10000))
	token.Approve(buyer, custody, big.NewInt(10000))

	comp := coffee.Composition{Base: 0, Size: 0, Milk: 0, Syrup: 0, Powder: 0}
	minted, err := application.Shop.Issue(ctx, buyer, []coffee.Composition{comp, comp, comp, comp, comp})
	require.NoError(t, err)
	require.Len(t, minted, 5)
	require.Equal(t, uint64(4), minted[4].ID)

	// 5 * (300 + 100 + 50 + 25).
	custodyBal, err := token.BalanceOf(ctx, custody)
	require.NoError(t, err)
	require.Zero(t, custodyBal.Cmp(big.NewInt(2375)))

	// Transfer item 3 away.
	friend := addr(9)
	require.NoError(t, application.Shop.Transfer(ctx, buyer, 3, friend))
	owned, err := application.Shop.CoffeesOf(ctx, buyer)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{0, 1, 2, 4}, owned)

	// Burn 1 and 2 with the owner's signatures.
	var auths []shopsvc.BurnAuthorization
	for _, id := range []uint64{1, 2} {
		sig, err := crypto.SignDigest(crypto.ItemDigest(id), key)
		require.NoError(t, err)
		auths = append(auths, shopsvc.BurnAuthorization{ItemID: id, Signature: sig})
	}
	require.NoError(t, application.Shop.Burn(ctx, house, auths))

	owned, err = application.Shop.CoffeesOf(ctx, buyer)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{0, 4}, owned)

	// Burned ids are never reissued.
	minted, err = application.Shop.Issue(ctx, buyer, []coffee.Composition{comp})
	require.NoError(t, err)
	require.Equal(t, uint64(5), minted[0].ID)
}

func TestNewRequiresAddresses(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Stores{}, Config{Custody: addr(2)})
	require.Error(t, err)

	_, err = New(ctx, Stores{}, Config{Admin: addr(1)})
	require.Error(t, err)
}
