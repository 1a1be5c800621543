package nft

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/types"
)

// ReceiverMagic is the fixed selector a receiver callback must return for
// the transfer to be accepted.
var ReceiverMagic = [4]byte{0x15, 0x0b, 0x7a, 0x02}

type (
	// Receiver is the callback contract of a code-bearing destination.
	// Unique-token transfers to a destination that cannot act on them are
	// typically unrecoverable, so such destinations must acknowledge the
	// transfer by returning ReceiverMagic.
	Receiver interface {
		OnTokenReceived(operator, from types.Address, id *uint256.Int, data []byte) ([4]byte, error)
	}

	// ReceiverResolver reports whether a destination is code-bearing: a
	// non-nil Receiver subjects the destination to receiver verification,
	// nil marks a plain account which accepts transfers unconditionally.
	ReceiverResolver func(types.Address) Receiver
)

/*
checkReceiver runs the receiver verification for the destination. It is
invoked after this registry's own state has been mutated, so a reentrant
query observes consistent post-transfer state. Reentrant mutations are
rejected for the duration of the callback: the caller rolls the mutation
back if verification fails, which is only sound while the pre-callback
state is the only committed one.
*/
func (r *Registry) checkReceiver(operator, from, to types.Address, id *uint256.Int, data []byte) error {
	if r.resolve == nil {
		return nil
	}
	receiver := r.resolve(to)
	if receiver == nil {
		return nil
	}
	r.inCallback = true
	defer func() { r.inCallback = false }()
	magic, err := receiver.OnTokenReceived(operator, from, id, data)
	if err != nil {
		return fmt.Errorf("receiver %s rejected token %s: %v: %w", to, id, err, types.ErrInvalidReceiver)
	}
	if magic != ReceiverMagic {
		return fmt.Errorf("receiver %s returned wrong magic %x: %w", to, magic, types.ErrInvalidReceiver)
	}
	return nil
}
