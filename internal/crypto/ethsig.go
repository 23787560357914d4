// Package crypto implements the signature scheme used by the destruction
// protocol: keccak-256 digests over item ids and recoverable secp256k1
// signatures whose signer maps to an account address.
package crypto

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
)

// SignatureLength is the byte length of a recoverable signature (r || s || v).
const SignatureLength = 65

// Keccak256 computes the legacy Keccak-256 hash over the concatenation of the
// given byte slices.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// ItemDigest returns the digest an owner signs to authorize destruction of an
// item: keccak-256 over the 32-byte big-endian encoding of the item id.
func ItemDigest(itemID uint64) []byte {
	var word [32]byte
	new(big.Int).SetUint64(itemID).FillBytes(word[:])
	return Keccak256(word[:])
}

// SignDigest produces a 65-byte recoverable signature (r || s || v, v in
// {27, 28}) over a 32-byte digest.
func SignDigest(digest []byte, key *secp256k1.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("key is required")
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}

	// SignCompact emits [v][r][s]; callers expect [r][s][v].
	compact := secpecdsa.SignCompact(key, digest, false)
	sig := make([]byte, SignatureLength)
	copy(sig[:64], compact[1:])
	sig[64] = compact[0]
	return sig, nil
}

// RecoverSigner recovers the address that produced a 65-byte recoverable
// signature over the given 32-byte digest.
func RecoverSigner(digest, sig []byte) (identity.Address, error) {
	if len(digest) != 32 {
		return identity.Address{}, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	if len(sig) != SignatureLength {
		return identity.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	v := sig[64]
	if v == 0 || v == 1 {
		v += 27
	}
	if v != 27 && v != 28 {
		return identity.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}

	compact := make([]byte, SignatureLength)
	compact[0] = v
	copy(compact[1:], sig[:64])

	pub, _, err := secpecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return identity.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return PubkeyToAddress(pub), nil
}

// PubkeyToAddress derives the account address for a secp256k1 public key:
// the rightmost 20 bytes of the keccak-256 hash of the uncompressed key
// without its format prefix.
func PubkeyToAddress(pub *secp256k1.PublicKey) identity.Address {
	uncompressed := pub.SerializeUncompressed()
	return identity.BytesToAddress(Keccak256(uncompressed[1:]))
}
