// Package coffee defines minted coffee items and the errors raised by
// ownership and destruction operations.
package coffee

import (
	"errors"
	"fmt"
	"time"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
)

// Composition is the 5-tuple of catalog indices a coffee is assembled from.
type Composition struct {
	Base   uint32 `json:"base"`
	Size   uint32 `json:"size"`
	Milk   uint32 `json:"milk"`
	Syrup  uint32 `json:"syrup"`
	Powder uint32 `json:"powder"`
}

// Coffee is a minted item. Ids are sequential, unique and never reused, even
// after the item is destroyed.
type Coffee struct {
	ID          uint64           `json:"id"`
	Composition Composition      `json:"composition"`
	Owner       identity.Address `json:"owner"`
	MintedAt    time.Time        `json:"minted_at"`
}

// ErrNotFound is returned by stores when an item id has never been minted or
// has been destroyed.
var ErrNotFound = errors.New("coffee does not exist")

// NotOwnerError reports a transfer attempted by an account that does not own
// the item.
type NotOwnerError struct {
	Account identity.Address
	ItemID  uint64
}

// Error implements error.
func (e NotOwnerError) Error() string {
	return fmt.Sprintf("account %s is not the owner of coffee %d", e.Account.Hex(), e.ItemID)
}

// InvalidSignatureError reports a destruction authorization that failed to
// recover to the item's current owner.
type InvalidSignatureError struct {
	ItemID uint64
	Reason string
}

// Error implements error.
func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid destruction signature for coffee %d: %s", e.ItemID, e.Reason)
}
