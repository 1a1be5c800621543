package token

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/types"
)

// permitVersion is the domain version string bound into every permit
// signature.
const permitVersion = "2"

var (
	domainTypeHash = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash = crypto.Keccak256([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

func unixNow() uint64 {
	return uint64(time.Now().Unix())
}

// NonceOf returns the replay protection counter of the owner, incremented
// exactly once per successful permit.
func (e *Engine) NonceOf(owner types.Address) uint64 {
	return e.nonces[owner]
}

/*
DomainSeparator returns the digest binding permit signatures to this ledger
instance and chain. The value computed at initialization is returned as
long as the live chain identifier still matches the one observed then,
otherwise the separator is recomputed from the live identifier so that
signatures cannot be replayed across a chain split.
*/
func (e *Engine) DomainSeparator() [32]byte {
	if chainID := e.chainID(); chainID != e.initChainID {
		return e.buildDomainSeparator(chainID)
	}
	return e.domainSeparator
}

func (e *Engine) buildDomainSeparator(chainID uint64) [32]byte {
	return [32]byte(crypto.Keccak256(
		domainTypeHash,
		crypto.Keccak256([]byte(e.name)),
		crypto.Keccak256([]byte(permitVersion)),
		uint256.NewInt(chainID).PaddedBytes(32),
		common.LeftPadBytes(e.address.Bytes(), 32),
	))
}

/*
Permit grants spender an allowance of value over the owner's tokens,
authorized by the owner's signature instead of a direct call. A successful
permit advances the owner's nonce by one and routes the grant through
Approve, any failure leaves both untouched.

The deadline is checked against the engine clock before any cryptographic
work, an expired permit is rejected no matter whether the signature would
have verified.
*/
func (e *Engine) Permit(owner, spender types.Address, value *uint256.Int, deadline uint64, v byte, r, s [32]byte) error {
	if e.now() > deadline {
		return &types.PermitExpiredError{Deadline: deadline}
	}

	digest := e.permitDigest(owner, spender, value, e.nonces[owner], deadline)
	signer, err := recoverSigner(digest, v, r, s)
	if err != nil {
		return err
	}
	if signer != owner {
		return fmt.Errorf("recovered %s, expected %s: %w", signer, owner, types.ErrInvalidSignature)
	}

	e.nonces[owner]++
	e.approve(owner, spender, value)
	return nil
}

// permitDigest builds the final EIP-712 digest: the typed struct hash
// combined with the domain separator under the two-byte 0x19 0x01 prefix.
func (e *Engine) permitDigest(owner, spender types.Address, value *uint256.Int, nonce, deadline uint64) []byte {
	structHash := crypto.Keccak256(
		permitTypeHash,
		common.LeftPadBytes(owner.Bytes(), 32),
		common.LeftPadBytes(spender.Bytes(), 32),
		value.PaddedBytes(32),
		uint256.NewInt(nonce).PaddedBytes(32),
		uint256.NewInt(deadline).PaddedBytes(32),
	)
	separator := e.DomainSeparator()
	return crypto.Keccak256([]byte{0x19, 0x01}, separator[:], structHash)
}

/*
recoverSigner recovers the signing account from the digest and the
signature components. A malformed signature, or one that recovers to the
zero account, fails with the zero address error, interpretation of the
recovered account is left to the caller.
*/
func recoverSigner(digest []byte, v byte, r, s [32]byte) (types.Address, error) {
	if v != 27 && v != 28 {
		return types.ZeroAddress, fmt.Errorf("invalid recovery id %d: %w", v, types.ErrZeroAddress)
	}
	if !crypto.ValidateSignatureValues(v-27, new(big.Int).SetBytes(r[:]), new(big.Int).SetBytes(s[:]), true) {
		return types.ZeroAddress, fmt.Errorf("malformed signature values: %w", types.ErrZeroAddress)
	}
	sig := make([]byte, 65)
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v - 27
	pubKey, err := crypto.Ecrecover(digest, sig)
	if err != nil {
		return types.ZeroAddress, fmt.Errorf("recovering signer: %w", types.ErrZeroAddress)
	}
	signer := types.Address(common.BytesToAddress(crypto.Keccak256(pubKey[1:])[12:]))
	if types.IsZero(signer) {
		return types.ZeroAddress, fmt.Errorf("recovered the zero account: %w", types.ErrZeroAddress)
	}
	return signer, nil
}
