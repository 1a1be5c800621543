package testutils

import (
	"crypto/ecdsa"
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/types"
)

// RandomAddress returns a new random non-zero account address.
func RandomAddress(t *testing.T) types.Address {
	t.Helper()
	var addr types.Address
	if _, err := rand.Read(addr[:]); err != nil {
		t.Fatal("failed to generate address:", err)
	}
	if types.IsZero(addr) {
		t.Fatal("generated the reserved zero address")
	}
	return addr
}

// RandomTokenID returns a new random 256-bit token identifier.
func RandomTokenID(t *testing.T) *uint256.Int {
	t.Helper()
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal("failed to generate token ID:", err)
	}
	return new(uint256.Int).SetBytes(buf)
}

// NewKey generates a secp256k1 key pair and returns the key with the
// account address derived from the public key.
func NewKey(t *testing.T) (*ecdsa.PrivateKey, types.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal("failed to generate key:", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// Sign signs the 32-byte digest and returns the signature components the
// permit call surface expects.
func Sign(t *testing.T, key *ecdsa.PrivateKey, digest []byte) (v byte, r, s [32]byte) {
	t.Helper()
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatal("failed to sign digest:", err)
	}
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	return sig[64] + 27, r, s
}
