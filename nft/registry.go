/*
Package nft implements the unique-identifier ownership registry: one owner
per 256-bit identifier, a single approved spender per identifier, blanket
operator approvals per (owner, operator) pair, and safe transfers with
receiver verification.

Like the fungible ledger, the registry executes operations strictly
serialized and atomically: an operation either applies fully or fails with
zero observable mutation.
*/
package nft

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/owner"
	"github.com/tokenledger-org/tokenledger-go-base/types"
	"github.com/tokenledger-org/tokenledger-go-base/util"
)

// Capability tags answered by Supports.
var (
	CapDiscovery = [4]byte{0x01, 0xff, 0xc9, 0xa7}
	CapRegistry  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	CapMetadata  = [4]byte{0x5b, 0x5e, 0x13, 0x9f}
)

type (
	// Registry is a single ownership registry instance. An identifier
	// exists iff its recorded owner is non-zero.
	Registry struct {
		name    string
		symbol  string
		baseURI string

		gate    *owner.Gate
		sink    types.EventSink
		resolve ReceiverResolver

		owners    map[types.TokenID]types.Address
		approvals map[types.TokenID]types.Address
		operators map[operatorKey]bool
		counts    map[types.Address]uint64
		supply    uint64

		// set while a receiver callback runs. A rejected safe operation is
		// rolled back after the callback returns, so no other mutation may
		// commit in between - queries remain allowed.
		inCallback bool
	}

	operatorKey struct {
		owner    types.Address
		operator types.Address
	}

	Option func(*Registry)
)

// WithEventSink overrides the notification sink (defaults to an in-memory log).
func WithEventSink(sink types.EventSink) Option {
	return func(r *Registry) { r.sink = sink }
}

// WithReceiverResolver installs the code-bearing destination detector used
// by the safe transfer paths (defaults to treating every destination as a
// plain account).
func WithReceiverResolver(resolve ReceiverResolver) Option {
	return func(r *Registry) { r.resolve = resolve }
}

// NewRegistry creates a new ownership registry, gate holds the privileged
// role required for minting.
func NewRegistry(name, symbol, baseURI string, gate *owner.Gate, opts ...Option) (*Registry, error) {
	if gate == nil {
		return nil, fmt.Errorf("privilege gate is nil")
	}
	r := &Registry{
		name:      name,
		symbol:    symbol,
		baseURI:   baseURI,
		gate:      gate,
		owners:    map[types.TokenID]types.Address{},
		approvals: map[types.TokenID]types.Address{},
		operators: map[operatorKey]bool{},
		counts:    map[types.Address]uint64{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sink == nil {
		r.sink = &types.EventLog{}
	}
	return r, nil
}

func (r *Registry) Name() string   { return r.name }
func (r *Registry) Symbol() string { return r.symbol }

// Gate returns the privilege gate of this instance.
func (r *Registry) Gate() *owner.Gate { return r.gate }

// Supports reports whether the registry implements the capability set
// identified by the 4-byte tag.
func (r *Registry) Supports(tag [4]byte) bool {
	return tag == CapDiscovery || tag == CapRegistry || tag == CapMetadata
}

// TotalSupply returns the number of live tokens.
func (r *Registry) TotalSupply() uint64 {
	return r.supply
}

// BalanceOf returns the number of tokens owned by the account.
func (r *Registry) BalanceOf(account types.Address) uint64 {
	return r.counts[account]
}

// OwnerOf returns the owner of the token.
func (r *Registry) OwnerOf(id *uint256.Int) (types.Address, error) {
	tokenOwner, ok := r.owners[*id]
	if !ok {
		return types.ZeroAddress, fmt.Errorf("token %s: %w", id, types.ErrTokenNotFound)
	}
	return tokenOwner, nil
}

// Approved returns the approved spender of the token, or the zero address
// if none is set.
func (r *Registry) Approved(id *uint256.Int) (types.Address, error) {
	if _, ok := r.owners[*id]; !ok {
		return types.ZeroAddress, fmt.Errorf("token %s: %w", id, types.ErrTokenNotFound)
	}
	return r.approvals[*id], nil
}

// IsOperator reports whether the operator holds blanket approval over all
// of the owner's tokens.
func (r *Registry) IsOperator(tokenOwner, operator types.Address) bool {
	return r.operators[operatorKey{owner: tokenOwner, operator: operator}]
}

// TokenURI returns the metadata resource of the token, the base URI
// suffixed with the decimal identifier.
func (r *Registry) TokenURI(id *uint256.Int) (string, error) {
	if _, ok := r.owners[*id]; !ok {
		return "", fmt.Errorf("token %s: %w", id, types.ErrTokenNotFound)
	}
	if r.baseURI == "" {
		return "", nil
	}
	return r.baseURI + id.Dec(), nil
}

// Mint records "to" as the owner of a new token. The caller must hold the
// privileged role.
func (r *Registry) Mint(caller, to types.Address, id *uint256.Int) error {
	if err := r.mint(caller, to, id); err != nil {
		return err
	}
	r.emitTransfer(types.ZeroAddress, to, id)
	return nil
}

// SafeMint is Mint followed by receiver verification of the destination.
func (r *Registry) SafeMint(caller, to types.Address, id *uint256.Int, data []byte) error {
	if err := r.mint(caller, to, id); err != nil {
		return err
	}
	if err := r.checkReceiver(caller, types.ZeroAddress, to, id, data); err != nil {
		r.unmint(to, id)
		return err
	}
	r.emitTransfer(types.ZeroAddress, to, id)
	return nil
}

// guard fails mutating operations invoked from within a receiver callback.
func (r *Registry) guard() error {
	if r.inCallback {
		return fmt.Errorf("mutating the registry from a receiver callback: %w", types.ErrReentrantCall)
	}
	return nil
}

func (r *Registry) mint(caller, to types.Address, id *uint256.Int) error {
	if err := r.guard(); err != nil {
		return err
	}
	if err := r.gate.RequireHolder(caller); err != nil {
		return fmt.Errorf("minting: %w", err)
	}
	if types.IsZero(to) {
		return fmt.Errorf("mint to: %w", types.ErrZeroAddress)
	}
	if _, ok := r.owners[*id]; ok {
		return fmt.Errorf("token %s: %w", id, types.ErrTokenExists)
	}
	r.owners[*id] = to
	delete(r.approvals, *id)
	r.counts[to]++
	r.supply++
	return nil
}

// unmint reverses a mint whose receiver verification failed. The mutation
// is still in place: the callback cannot have committed another one.
func (r *Registry) unmint(to types.Address, id *uint256.Int) {
	delete(r.owners, *id)
	delete(r.approvals, *id)
	r.counts[to], _ = util.SafeSub(r.counts[to], 1)
	r.supply, _ = util.SafeSub(r.supply, 1)
}

/*
Approve sets spender as the single approved spender of the token. The
caller must be the recorded owner or an approved operator of the owner,
approving the owner itself is rejected. The zero spender clears the
approval.
*/
func (r *Registry) Approve(caller, spender types.Address, id *uint256.Int) error {
	if err := r.guard(); err != nil {
		return err
	}
	tokenOwner, ok := r.owners[*id]
	if !ok {
		return fmt.Errorf("token %s: %w", id, types.ErrTokenNotFound)
	}
	if caller != tokenOwner && !r.IsOperator(tokenOwner, caller) {
		return fmt.Errorf("caller %s: %w", caller, types.ErrUnauthorized)
	}
	if spender == tokenOwner {
		return fmt.Errorf("spender %s: %w", spender, types.ErrSelfApproval)
	}
	r.approvals[*id] = spender
	r.sink.Emit(types.ApprovalEvent{Owner: tokenOwner, Spender: spender, Value: new(uint256.Int).Set(id)})
	return nil
}

// SetApprovalForAll grants or revokes the operator's blanket approval over
// all of the owner's tokens.
func (r *Registry) SetApprovalForAll(tokenOwner, operator types.Address, approved bool) error {
	if err := r.guard(); err != nil {
		return err
	}
	if approved {
		r.operators[operatorKey{owner: tokenOwner, operator: operator}] = true
	} else {
		delete(r.operators, operatorKey{owner: tokenOwner, operator: operator})
	}
	r.sink.Emit(types.OperatorApprovalEvent{Owner: tokenOwner, Operator: operator, Approved: approved})
	return nil
}

/*
Transfer moves the token from its current owner to the destination. The
caller must be the owner, the approved spender, or an approved operator of
the owner. Transferring to the zero address is rejected, burning must use
the dedicated Burn path. The per-token approval is cleared by the move.
*/
func (r *Registry) Transfer(caller, from, to types.Address, id *uint256.Int) error {
	if _, err := r.transfer(caller, from, to, id); err != nil {
		return err
	}
	r.emitTransfer(from, to, id)
	return nil
}

// SafeTransfer is Transfer followed by receiver verification of the
// destination.
func (r *Registry) SafeTransfer(caller, from, to types.Address, id *uint256.Int, data []byte) error {
	prevApproval, err := r.transfer(caller, from, to, id)
	if err != nil {
		return err
	}
	if err := r.checkReceiver(caller, from, to, id, data); err != nil {
		r.untransfer(from, to, id, prevApproval)
		return err
	}
	r.emitTransfer(from, to, id)
	return nil
}

func (r *Registry) transfer(caller, from, to types.Address, id *uint256.Int) (prevApproval types.Address, _ error) {
	if err := r.guard(); err != nil {
		return types.ZeroAddress, err
	}
	tokenOwner, ok := r.owners[*id]
	if !ok {
		return types.ZeroAddress, fmt.Errorf("token %s: %w", id, types.ErrTokenNotFound)
	}
	if !r.isAuthorized(caller, tokenOwner, id) {
		return types.ZeroAddress, fmt.Errorf("caller %s: %w", caller, types.ErrUnauthorized)
	}
	if from != tokenOwner {
		return types.ZeroAddress, fmt.Errorf("from %s does not own token %s: %w", from, id, types.ErrUnauthorized)
	}
	if types.IsZero(to) {
		return types.ZeroAddress, fmt.Errorf("transfer to: %w", types.ErrZeroAddress)
	}
	prevApproval = r.approvals[*id]
	delete(r.approvals, *id)
	r.owners[*id] = to
	// counts cannot underflow, the owner owns at least this token
	r.counts[from], _ = util.SafeSub(r.counts[from], 1)
	r.counts[to]++
	return prevApproval, nil
}

// untransfer reverses a transfer whose receiver verification failed. The
// mutation is still in place: the callback cannot have committed another one.
func (r *Registry) untransfer(from, to types.Address, id *uint256.Int, prevApproval types.Address) {
	r.owners[*id] = from
	if !types.IsZero(prevApproval) {
		r.approvals[*id] = prevApproval
	}
	r.counts[to], _ = util.SafeSub(r.counts[to], 1)
	r.counts[from], _ = util.SafeAdd(r.counts[from], 1)
}

/*
Burn destroys the token. The caller must be the owner, the approved
spender, an approved operator of the owner, or the holder of the
registry's privileged role.
*/
func (r *Registry) Burn(caller types.Address, id *uint256.Int) error {
	if err := r.guard(); err != nil {
		return err
	}
	tokenOwner, ok := r.owners[*id]
	if !ok {
		return fmt.Errorf("token %s: %w", id, types.ErrTokenNotFound)
	}
	if !r.isAuthorized(caller, tokenOwner, id) && r.gate.RequireHolder(caller) != nil {
		return fmt.Errorf("caller %s: %w", caller, types.ErrUnauthorized)
	}
	delete(r.approvals, *id)
	delete(r.owners, *id)
	r.counts[tokenOwner], _ = util.SafeSub(r.counts[tokenOwner], 1)
	r.supply--
	r.emitTransfer(tokenOwner, types.ZeroAddress, id)
	return nil
}

func (r *Registry) isAuthorized(caller, tokenOwner types.Address, id *uint256.Int) bool {
	if types.IsZero(caller) {
		return false
	}
	return caller == tokenOwner || r.approvals[*id] == caller || r.IsOperator(tokenOwner, caller)
}

func (r *Registry) emitTransfer(from, to types.Address, id *uint256.Int) {
	r.sink.Emit(types.TransferEvent{From: from, To: to, Value: new(uint256.Int).Set(id)})
}
