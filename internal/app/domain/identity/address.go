// Package identity defines the account identifier used across the engine.
package identity

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

// Address identifies an account. It is a 20-byte value rendered as a
// 0x-prefixed lowercase hex string, matching the address format produced by
// secp256k1 key derivation in internal/crypto.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. No account ever holds it.
var ZeroAddress Address

// ParseAddress decodes a 0x-prefixed (or bare) hex address string.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	trimmed = strings.TrimPrefix(trimmed, "0X")

	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("address must be hex: %w", err)
	}
	if len(raw) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(raw))
	}

	var addr Address
	copy(addr[:], raw)
	return addr, nil
}

// BytesToAddress builds an address from raw bytes, left-truncating to the
// rightmost AddressLength bytes when the input is longer.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(addr[AddressLength-len(b):], b)
	return addr
}

// Hex returns the 0x-prefixed lowercase hex encoding.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// MarshalText implements encoding.TextMarshaler so addresses render as hex
// strings in JSON payloads and map keys.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
