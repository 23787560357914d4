// Package catalog defines the five configurable component collections a
// coffee is assembled from. Entries are identified by their position in the
// collection; revoking an entry zeroes the slot but never frees the index,
// so reads of a revoked slot succeed and return the type's zero value.
package catalog

import (
	"fmt"
	"math/big"
)

// Kind names one of the five catalog collections.
type Kind string

const (
	KindSize   Kind = "size"
	KindBase   Kind = "base"
	KindSyrup  Kind = "syrup"
	KindPowder Kind = "powder"
	KindMilk   Kind = "milk"
)

// Size is a cup size option. Its image tuple holds the open, middle and
// close presentation layers.
type Size struct {
	Exists bool      `json:"exists"`
	Name   string    `json:"name"`
	Image  [3]string `json:"image"`
	Price  *big.Int  `json:"price"`
}

// Base is a drink base. DefaultSize indexes the Sizes collection and is used
// by presentation tooling when no explicit size is rendered.
type Base struct {
	Exists      bool      `json:"exists"`
	DefaultSize uint32    `json:"default_size"`
	Price       *big.Int  `json:"price"`
	Name        string    `json:"name"`
	Image       [2]string `json:"image"`
}

// Syrup is a syrup additive.
type Syrup struct {
	Exists bool      `json:"exists"`
	Name   string    `json:"name"`
	Image  [3]string `json:"image"`
	Price  *big.Int  `json:"price"`
}

// Powder is a powder additive.
type Powder struct {
	Exists bool      `json:"exists"`
	Name   string    `json:"name"`
	Image  [3]string `json:"image"`
	Price  *big.Int  `json:"price"`
}

// Milk is a milk option. Milk carries no price of its own; its cost is part
// of the base pricing.
type Milk struct {
	Exists bool      `json:"exists"`
	Name   string    `json:"name"`
	Image  [3]string `json:"image"`
}

// IndexOutOfRangeError reports a read past the allocated range of a
// collection. Reads of in-range revoked slots do not error.
type IndexOutOfRangeError struct {
	Kind   Kind
	Index  uint32
	Length uint32
}

// Error implements error.
func (e IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range (collection has %d slots)", e.Kind, e.Index, e.Length)
}

// NotFoundError reports a revoke aimed past the allocated range.
type NotFoundError struct {
	Kind  Kind
	Index uint32
}

// Error implements error.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.Index)
}
