package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type (
	// Address is the 160-bit account identifier used as the key into
	// balance, allowance and ownership maps.
	Address = common.Address

	// TokenID is the 256-bit identifier of a unique token. The value type
	// is comparable so it can be used as a map key directly.
	TokenID = uint256.Int
)

// ZeroAddress is the reserved "no account" identifier. It is used as the
// mint source / burn sink in notifications and as the signature recovery
// failure sentinel; it must never hold a balance or own a token.
var ZeroAddress = Address{}

func IsZero(addr Address) bool {
	return addr == ZeroAddress
}
