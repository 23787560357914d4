package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tidwall/gjson"

	app "github.com/coffeechain-labs/coffeeshop/internal/app"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/payment"
	"github.com/coffeechain-labs/coffeeshop/internal/crypto"
)

type apiFixture struct {
	handler http.Handler
	token   *payment.Token
	admin   identity.Address
	custody identity.Address
}

func addr(b byte) identity.Address {
	var a identity.Address
	a[19] = b
	return a
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	token := payment.NewToken()
	admin, custody := addr(1), addr(2)
	application, err := app.New(context.Background(), app.Stores{}, app.Config{
		Admin:   admin,
		Custody: custody,
		Ledger:  token,
	})
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	return &apiFixture{handler: NewHandler(application), token: token, admin: admin, custody: custody}
}

// fund mints a balance and approves custody to draw it.
func (f *apiFixture) fund(account identity.Address, amount int64) {
	f.token.Mint(account, big.NewInt(amount))
	f.token.Approve(account, f.custody, big.NewInt(amount))
}

func (f *apiFixture) do(t *testing.T, method, path string, caller identity.Address, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if !caller.IsZero() {
		req.Header.Set("X-Caller-Address", caller.Hex())
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// seedMenu populates one base, two sizes, one milk, one syrup, one powder and
// puts the full matrix on the menu.
func (f *apiFixture) seedMenu(t *testing.T) {
	t.Helper()

	steps := []struct {
		path string
		body any
	}{
		{"/v1/catalog/bases", []map[string]any{{"exists": true, "name": "espresso", "price": 300, "default_size": 0, "image": []string{"", ""}}}},
		{"/v1/catalog/sizes", []map[string]any{
			{"exists": true, "name": "tall", "price": 100, "image": []string{"", "", ""}},
			{"exists": true, "name": "venti", "price": 200, "image": []string{"", "", ""}},
		}},
		{"/v1/catalog/milks", []map[string]any{{"exists": true, "name": "oat", "image": []string{"", "", ""}}}},
		{"/v1/catalog/syrups", []map[string]any{{"exists": true, "name": "vanilla", "price": 50, "image": []string{"", "", ""}}}},
		{"/v1/catalog/powders", []map[string]any{{"exists": true, "name": "cocoa", "price": 25, "image": []string{"", "", ""}}}},
	}
	for _, step := range steps {
		if rec := f.do(t, http.MethodPost, step.path, f.admin, step.body); rec.Code != http.StatusCreated {
			t.Fatalf("seed %s: status %d: %s", step.path, rec.Code, rec.Body.String())
		}
	}

	rec := f.do(t, http.MethodPut, "/v1/menu/0", f.admin, map[string]any{
		"sizes": []uint32{0, 1}, "milks": []uint32{0}, "syrups": []uint32{0}, "powders": []uint32{0},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("seed menu: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", identity.Address{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if gjson.Get(rec.Body.String(), "status").String() != "ok" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCatalogLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	f.seedMenu(t)

	rec := f.do(t, http.MethodGet, "/v1/catalog/sizes", identity.Address{}, nil)
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "count").Int() != 2 {
		t.Fatalf("count: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/catalog/sizes/1", identity.Address{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get size: status %d", rec.Code)
	}
	body := rec.Body.String()
	if gjson.Get(body, "name").String() != "venti" || gjson.Get(body, "price").Int() != 200 {
		t.Fatalf("unexpected entry %s", body)
	}

	// Mutation without admin rights.
	rec = f.do(t, http.MethodDelete, "/v1/catalog/sizes/1", addr(9), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("revoke by stranger: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/v1/catalog/sizes/1", f.admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: status %d: %s", rec.Code, rec.Body.String())
	}

	// Revoked slot reads as the zero entry; the index stays allocated.
	rec = f.do(t, http.MethodGet, "/v1/catalog/sizes/1", identity.Address{}, nil)
	if rec.Code != http.StatusOK || gjson.Get(rec.Body.String(), "exists").Bool() {
		t.Fatalf("revoked read: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/catalog/sizes/7", identity.Address{}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("out of range read: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/catalog/teas/0", identity.Address{}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown kind: status %d", rec.Code)
	}
}

func TestMenuEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.seedMenu(t)

	rec := f.do(t, http.MethodGet, "/v1/menu/0", identity.Address{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get menu: status %d", rec.Code)
	}
	if sizes := gjson.Get(rec.Body.String(), "sizes").Array(); len(sizes) != 2 {
		t.Fatalf("unexpected axes %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/menu/0/allowed?size=1&milk=0&syrup=0&powder=0", identity.Address{}, nil)
	if rec.Code != http.StatusOK || !gjson.Get(rec.Body.String(), "allowed").Bool() {
		t.Fatalf("allowed check: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/menu/0/allowed?size=5&milk=0&syrup=0&powder=0", identity.Address{}, nil)
	if gjson.Get(rec.Body.String(), "allowed").Bool() {
		t.Fatal("off-menu size reported allowed")
	}

	rec = f.do(t, http.MethodPut, "/v1/menu/0", addr(9), map[string]any{"sizes": []uint32{0}, "milks": []uint32{0}, "syrups": []uint32{0}, "powders": []uint32{0}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("menu write by stranger: status %d", rec.Code)
	}
}

func TestIssueTransferAndQuery(t *testing.T) {
	f := newAPIFixture(t)
	f.seedMenu(t)

	buyer, friend := addr(10), addr(11)
	f.fund(buyer, 10000)

	rec := f.do(t, http.MethodPost, "/v1/coffees", buyer, map[string]any{
		"compositions": []map[string]any{
			{"base": 0, "size": 0, "milk": 0, "syrup": 0, "powder": 0},
			{"base": 0, "size": 1, "milk": 0, "syrup": 0, "powder": 0},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue: status %d: %s", rec.Code, rec.Body.String())
	}
	minted := gjson.Get(rec.Body.String(), "coffees.#.id").Array()
	if len(minted) != 2 || minted[0].Uint() != 0 || minted[1].Uint() != 1 {
		t.Fatalf("unexpected ids in %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/v1/coffees/1/transfer", buyer, map[string]any{"to": friend.Hex()})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("transfer: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/coffees/1", identity.Address{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get coffee: status %d", rec.Code)
	}
	if gjson.Get(rec.Body.String(), "owner").String() != friend.Hex() {
		t.Fatalf("owner not updated: %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/accounts/"+friend.Hex()+"/coffees", identity.Address{}, nil)
	ids := gjson.Get(rec.Body.String(), "coffees").Array()
	if rec.Code != http.StatusOK || len(ids) != 1 || ids[0].Uint() != 1 {
		t.Fatalf("owned query: status %d body %s", rec.Code, rec.Body.String())
	}

	// Transferring an item the caller no longer owns.
	rec = f.do(t, http.MethodPost, "/v1/coffees/1/transfer", buyer, map[string]any{"to": friend.Hex()})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("transfer by non-owner: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/coffees/99", identity.Address{}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing coffee: status %d", rec.Code)
	}
}

func TestIssueErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	f.seedMenu(t)
	buyer := addr(10)

	// Unpayable order.
	rec := f.do(t, http.MethodPost, "/v1/coffees", buyer, map[string]any{
		"compositions": []map[string]any{{"base": 0, "size": 0, "milk": 0, "syrup": 0, "powder": 0}},
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("insufficient funds: status %d: %s", rec.Code, rec.Body.String())
	}

	// Off-menu composition.
	f.fund(buyer, 10000)
	rec = f.do(t, http.MethodPost, "/v1/coffees", buyer, map[string]any{
		"compositions": []map[string]any{{"base": 0, "size": 9, "milk": 0, "syrup": 0, "powder": 0}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid composition: status %d: %s", rec.Code, rec.Body.String())
	}

	// Missing caller header.
	rec = f.do(t, http.MethodPost, "/v1/coffees", identity.Address{}, map[string]any{
		"compositions": []map[string]any{{"base": 0, "size": 0, "milk": 0, "syrup": 0, "powder": 0}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing caller: status %d", rec.Code)
	}
}

func TestRolesAndBurn(t *testing.T) {
	f := newAPIFixture(t)
	f.seedMenu(t)

	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := crypto.PubkeyToAddress(key.PubKey())
	house := addr(20)

	f.fund(owner, 10000)

	// Grant gated on admin.
	rec := f.do(t, http.MethodPut, "/v1/roles/coffee-house/"+house.Hex(), addr(9), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("grant by stranger: status %d", rec.Code)
	}
	rec = f.do(t, http.MethodPut, "/v1/roles/coffee-house/"+house.Hex(), f.admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("grant: status %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/v1/roles/coffee-house/"+house.Hex(), identity.Address{}, nil)
	if !gjson.Get(rec.Body.String(), "held").Bool() {
		t.Fatalf("role not reported held: %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/v1/coffees", owner, map[string]any{
		"compositions": []map[string]any{
			{"base": 0, "size": 0, "milk": 0, "syrup": 0, "powder": 0},
			{"base": 0, "size": 0, "milk": 0, "syrup": 0, "powder": 0},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue: status %d: %s", rec.Code, rec.Body.String())
	}

	sign := func(id uint64) string {
		sig, err := crypto.SignDigest(crypto.ItemDigest(id), key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return base64.StdEncoding.EncodeToString(sig)
	}

	// Burn without the role.
	rec = f.do(t, http.MethodPost, "/v1/coffees/burn", addr(9), map[string]any{
		"items": []map[string]any{{"id": 0, "signature": sign(0)}},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("burn by stranger: status %d", rec.Code)
	}

	// Signature over the wrong item.
	rec = f.do(t, http.MethodPost, "/v1/coffees/burn", house, map[string]any{
		"items": []map[string]any{{"id": 1, "signature": sign(0)}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("transplanted signature: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/v1/coffees/burn", house, map[string]any{
		"items": []map[string]any{
			{"id": 0, "signature": sign(0)},
			{"id": 1, "signature": sign(1)},
		},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("burn: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/coffees/0", identity.Address{}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("burned item readable: status %d", rec.Code)
	}
}

func TestRevokeCoffeeHouseRole(t *testing.T) {
	f := newAPIFixture(t)
	house := addr(20)

	rec := f.do(t, http.MethodPut, "/v1/roles/coffee-house/"+house.Hex(), f.admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("grant: status %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/v1/roles/coffee-house/"+house.Hex(), f.admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: status %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/v1/roles/coffee-house/"+house.Hex(), identity.Address{}, nil)
	if gjson.Get(rec.Body.String(), "held").Bool() {
		t.Fatal("role still held after revoke")
	}
}
