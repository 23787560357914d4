// Package httpapi exposes the coffeeshop services over REST. Mutating
// endpoints identify the caller through the X-Caller-Address header; the
// services decide whether that caller may act.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	app "github.com/coffeechain-labs/coffeeshop/internal/app"
	domainaccess "github.com/coffeechain-labs/coffeeshop/internal/app/domain/access"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/catalog"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/coffee"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/menu"
	"github.com/coffeechain-labs/coffeeshop/internal/app/metrics"
	"github.com/coffeechain-labs/coffeeshop/internal/app/payment"
	shopsvc "github.com/coffeechain-labs/coffeeshop/internal/app/services/shop"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/catalog/{kind}", h.addCatalogEntries).Methods(http.MethodPost)
	v1.HandleFunc("/catalog/{kind}", h.catalogCount).Methods(http.MethodGet)
	v1.HandleFunc("/catalog/{kind}/{index}", h.getCatalogEntry).Methods(http.MethodGet)
	v1.HandleFunc("/catalog/{kind}/{index}", h.revokeCatalogEntry).Methods(http.MethodDelete)

	v1.HandleFunc("/menu/{base}", h.setAllowedProduct).Methods(http.MethodPut)
	v1.HandleFunc("/menu/{base}", h.getAllowedProduct).Methods(http.MethodGet)
	v1.HandleFunc("/menu/{base}/allowed", h.isAllowedProduct).Methods(http.MethodGet)

	v1.HandleFunc("/roles/coffee-house/{account}", h.grantCoffeeHouse).Methods(http.MethodPut)
	v1.HandleFunc("/roles/coffee-house/{account}", h.revokeCoffeeHouse).Methods(http.MethodDelete)
	v1.HandleFunc("/roles/coffee-house/{account}", h.hasCoffeeHouse).Methods(http.MethodGet)

	v1.HandleFunc("/coffees", h.issue).Methods(http.MethodPost)
	v1.HandleFunc("/coffees/burn", h.burn).Methods(http.MethodPost)
	v1.HandleFunc("/coffees/{id}", h.getCoffee).Methods(http.MethodGet)
	v1.HandleFunc("/coffees/{id}/transfer", h.transfer).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{account}/coffees", h.coffeesOf).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- catalog ----------------------------------------------------------------

func (h *handler) addCatalogEntries(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	var (
		indices []uint32
		err     error
	)
	switch mux.Vars(r)["kind"] {
	case "sizes":
		var entries []catalog.Size
		if err := decodeJSON(r.Body, &entries); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		indices, err = h.app.Catalog.AddSizes(r.Context(), caller, entries)
	case "bases":
		var entries []catalog.Base
		if err := decodeJSON(r.Body, &entries); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		indices, err = h.app.Catalog.AddBases(r.Context(), caller, entries)
	case "syrups":
		var entries []catalog.Syrup
		if err := decodeJSON(r.Body, &entries); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		indices, err = h.app.Catalog.AddSyrups(r.Context(), caller, entries)
	case "powders":
		var entries []catalog.Powder
		if err := decodeJSON(r.Body, &entries); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		indices, err = h.app.Catalog.AddPowders(r.Context(), caller, entries)
	case "milks":
		var entries []catalog.Milk
		if err := decodeJSON(r.Body, &entries); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		indices, err = h.app.Catalog.AddMilks(r.Context(), caller, entries)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown catalog kind %q", mux.Vars(r)["kind"]))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]uint32{"indices": indices})
}

func (h *handler) catalogCount(w http.ResponseWriter, r *http.Request) {
	var (
		count uint32
		err   error
	)
	switch mux.Vars(r)["kind"] {
	case "sizes":
		count, err = h.app.Catalog.SizeCount(r.Context())
	case "bases":
		count, err = h.app.Catalog.BaseCount(r.Context())
	case "syrups":
		count, err = h.app.Catalog.SyrupCount(r.Context())
	case "powders":
		count, err = h.app.Catalog.PowderCount(r.Context())
	case "milks":
		count, err = h.app.Catalog.MilkCount(r.Context())
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown catalog kind %q", mux.Vars(r)["kind"]))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"count": count})
}

func (h *handler) getCatalogEntry(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}

	var (
		entry any
		err   error
	)
	switch mux.Vars(r)["kind"] {
	case "sizes":
		entry, err = h.app.Catalog.GetSize(r.Context(), index)
	case "bases":
		entry, err = h.app.Catalog.GetBase(r.Context(), index)
	case "syrups":
		entry, err = h.app.Catalog.GetSyrup(r.Context(), index)
	case "powders":
		entry, err = h.app.Catalog.GetPowder(r.Context(), index)
	case "milks":
		entry, err = h.app.Catalog.GetMilk(r.Context(), index)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown catalog kind %q", mux.Vars(r)["kind"]))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *handler) revokeCatalogEntry(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}

	var err error
	switch mux.Vars(r)["kind"] {
	case "sizes":
		err = h.app.Catalog.RevokeSize(r.Context(), caller, index)
	case "bases":
		err = h.app.Catalog.RevokeBase(r.Context(), caller, index)
	case "syrups":
		err = h.app.Catalog.RevokeSyrup(r.Context(), caller, index)
	case "powders":
		err = h.app.Catalog.RevokePowder(r.Context(), caller, index)
	case "milks":
		err = h.app.Catalog.RevokeMilk(r.Context(), caller, index)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown catalog kind %q", mux.Vars(r)["kind"]))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- menu -------------------------------------------------------------------

func (h *handler) setAllowedProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	base, ok := pathIndex(w, r, "base")
	if !ok {
		return
	}

	var axes menu.Axes
	if err := decodeJSON(r.Body, &axes); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Menu.SetAllowedProduct(r.Context(), caller, base, axes); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getAllowedProduct(w http.ResponseWriter, r *http.Request) {
	base, ok := pathIndex(w, r, "base")
	if !ok {
		return
	}
	axes, err := h.app.Menu.GetAllowedProduct(r.Context(), base)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, axes)
}

func (h *handler) isAllowedProduct(w http.ResponseWriter, r *http.Request) {
	base, ok := pathIndex(w, r, "base")
	if !ok {
		return
	}

	q := r.URL.Query()
	components := make(map[string]uint32, 4)
	for _, name := range []string{"size", "milk", "syrup", "powder"} {
		v, err := strconv.ParseUint(q.Get(name), 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("query parameter %q must be an index", name))
			return
		}
		components[name] = uint32(v)
	}

	allowed, err := h.app.Menu.IsAllowedProduct(r.Context(), base,
		components["size"], components["milk"], components["syrup"], components["powder"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

// --- roles ------------------------------------------------------------------

func (h *handler) grantCoffeeHouse(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	account, ok := pathAddress(w, r, "account")
	if !ok {
		return
	}
	if err := h.app.Access.GrantCoffeeHouse(r.Context(), caller, account); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) revokeCoffeeHouse(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	account, ok := pathAddress(w, r, "account")
	if !ok {
		return
	}
	if err := h.app.Access.RevokeCoffeeHouse(r.Context(), caller, account); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) hasCoffeeHouse(w http.ResponseWriter, r *http.Request) {
	account, ok := pathAddress(w, r, "account")
	if !ok {
		return
	}
	held, err := h.app.Access.HasRole(r.Context(), domainaccess.RoleCoffeeHouse, account)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"held": held})
}

// --- coffees ----------------------------------------------------------------

func (h *handler) issue(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	var payload struct {
		Compositions []coffee.Composition `json:"compositions"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(payload.Compositions) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("at least one composition is required"))
		return
	}

	minted, err := h.app.Shop.Issue(r.Context(), caller, payload.Compositions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]coffee.Coffee{"coffees": minted})
}

func (h *handler) burn(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}

	var payload struct {
		Items []struct {
			ID        uint64 `json:"id"`
			Signature string `json:"signature"`
		} `json:"items"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	auths := make([]shopsvc.BurnAuthorization, 0, len(payload.Items))
	for _, item := range payload.Items {
		sig, err := base64.StdEncoding.DecodeString(item.Signature)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("signature for item %d is not base64: %w", item.ID, err))
			return
		}
		auths = append(auths, shopsvc.BurnAuthorization{ItemID: item.ID, Signature: sig})
	}

	if err := h.app.Shop.Burn(r.Context(), caller, auths); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getCoffee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("coffee id must be an unsigned integer"))
		return
	}
	item, err := h.app.Shop.GetCoffee(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handler) transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("coffee id must be an unsigned integer"))
		return
	}

	var payload struct {
		To string `json:"to"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := identity.ParseAddress(payload.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid recipient: %w", err))
		return
	}

	if err := h.app.Shop.Transfer(r.Context(), caller, id, to); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) coffeesOf(w http.ResponseWriter, r *http.Request) {
	account, ok := pathAddress(w, r, "account")
	if !ok {
		return
	}
	ids, err := h.app.Shop.CoffeesOf(r.Context(), account)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"coffees": ids})
}

// --- helpers ----------------------------------------------------------------

func callerAddress(w http.ResponseWriter, r *http.Request) (identity.Address, bool) {
	raw := r.Header.Get("X-Caller-Address")
	if raw == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("X-Caller-Address header is required"))
		return identity.Address{}, false
	}
	addr, err := identity.ParseAddress(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid caller address: %w", err))
		return identity.Address{}, false
	}
	return addr, true
}

func pathAddress(w http.ResponseWriter, r *http.Request, name string) (identity.Address, bool) {
	addr, err := identity.ParseAddress(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s address: %w", name, err))
		return identity.Address{}, false
	}
	return addr, true
}

func pathIndex(w http.ResponseWriter, r *http.Request, name string) (uint32, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%s must be an unsigned index", name))
		return 0, false
	}
	return uint32(v), true
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		unauthorized domainaccess.UnauthorizedError
		notOwner     coffee.NotOwnerError
		outOfRange   catalog.IndexOutOfRangeError
		notFound     catalog.NotFoundError
		invalidComp  shopsvc.InvalidCompositionError
		invalidSig   coffee.InvalidSignatureError
		insufficient payment.InsufficientFundsError
	)

	switch {
	case errors.As(err, &unauthorized), errors.As(err, &notOwner):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, coffee.ErrNotFound), errors.As(err, &outOfRange), errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &invalidComp), errors.As(err, &invalidSig):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &insufficient):
		writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, shopsvc.ErrZeroRecipient):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
