// Package menu defines the allowed-product matrix: for each base, the sets
// of size, milk, syrup and powder indices that may be combined with it.
package menu

// Axes holds the four independent membership sets configured for a base.
// A composition is on the menu iff each component index is a member of its
// axis; membership on one axis never constrains another.
type Axes struct {
	Sizes   []uint32 `json:"sizes"`
	Milks   []uint32 `json:"milks"`
	Syrups  []uint32 `json:"syrups"`
	Powders []uint32 `json:"powders"`
}
