package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestKeccak256KnownVector(t *testing.T) {
	// keccak256("") per the legacy (pre-SHA3) padding.
	got := hex.EncodeToString(Keccak256(nil))
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got != want {
		t.Fatalf("keccak256(\"\") = %s, want %s", got, want)
	}
}

func TestItemDigestIsWordEncoded(t *testing.T) {
	var word [32]byte
	word[31] = 7
	want := Keccak256(word[:])
	if !bytes.Equal(ItemDigest(7), want) {
		t.Fatal("digest does not cover the 32-byte big-endian id")
	}

	if bytes.Equal(ItemDigest(1), ItemDigest(2)) {
		t.Fatal("distinct ids share a digest")
	}
}

func TestSignAndRecoverRoundTrip(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	digest := ItemDigest(42)
	sig, err := SignDigest(digest, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != SignatureLength {
		t.Fatalf("signature length %d, want %d", len(sig), SignatureLength)
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("recovery id %d, want 27 or 28", sig[64])
	}

	signer, err := RecoverSigner(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if signer != PubkeyToAddress(key.PubKey()) {
		t.Fatalf("recovered %s, want %s", signer.Hex(), PubkeyToAddress(key.PubKey()).Hex())
	}
}

func TestRecoverAcceptsZeroBasedRecoveryID(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	digest := ItemDigest(1)
	sig, err := SignDigest(digest, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[64] -= 27

	signer, err := RecoverSigner(digest, sig)
	if err != nil {
		t.Fatalf("recover with v in {0,1}: %v", err)
	}
	if signer != PubkeyToAddress(key.PubKey()) {
		t.Fatal("recovered wrong signer")
	}
}

func TestRecoverRejectsWrongDigest(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sig, err := SignDigest(ItemDigest(1), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Recovery over a different digest yields a different (or no) signer.
	signer, err := RecoverSigner(ItemDigest(2), sig)
	if err == nil && signer == PubkeyToAddress(key.PubKey()) {
		t.Fatal("signature transplanted to another item still recovers the signer")
	}
}

func TestRecoverRejectsMalformedInput(t *testing.T) {
	if _, err := RecoverSigner(ItemDigest(1), make([]byte, 10)); err == nil {
		t.Fatal("short signature accepted")
	}
	bad := make([]byte, SignatureLength)
	bad[64] = 99
	if _, err := RecoverSigner(ItemDigest(1), bad); err == nil {
		t.Fatal("invalid recovery id accepted")
	}
	if _, err := RecoverSigner(make([]byte, 16), make([]byte, SignatureLength)); err == nil {
		t.Fatal("short digest accepted")
	}
}
