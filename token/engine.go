/*
Package token implements the fungible value ledger: per-account balances
with total supply tracking, delegated spending allowances and the
signature-based ("permit") allowance grant protocol.

The engine executes operations strictly serialized, one invocation at a
time. Every operation either applies fully, with all state mutations and
notifications, or fails with zero observable mutation.
*/
package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/owner"
	"github.com/tokenledger-org/tokenledger-go-base/types"
	"github.com/tokenledger-org/tokenledger-go-base/util"
)

type (
	// Engine is a single ledger instance. All maps are exclusively owned
	// by the instance, there is no cross-instance sharing.
	Engine struct {
		name     string
		symbol   string
		decimals uint8

		// identity of this ledger instance for permit domain binding
		address types.Address
		chainID func() uint64

		gate *owner.Gate
		sink types.EventSink
		hook TransferHook
		now  func() uint64

		balances    map[types.Address]*uint256.Int
		totalSupply *uint256.Int
		allowances  map[allowanceKey]*uint256.Int
		nonces      map[types.Address]uint64

		// permit domain separator cached at init, recomputed on use only
		// if the live chain ID no longer matches initChainID
		domainSeparator [32]byte
		initChainID     uint64
	}

	allowanceKey struct {
		owner   types.Address
		spender types.Address
	}

	// TransferHook is invoked after all validations and before any state
	// is written, for every balance mutating operation. Mint is reported
	// with the zero "from", burn with the zero "to". A non-nil return
	// aborts the operation.
	TransferHook func(from, to types.Address, amount *uint256.Int) error

	Option func(*Engine)
)

// WithEventSink overrides the notification sink (defaults to an in-memory log).
func WithEventSink(sink types.EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithTransferHook installs the pre-write extension point (defaults to no-op).
func WithTransferHook(hook TransferHook) Option {
	return func(e *Engine) { e.hook = hook }
}

// WithClock overrides the time source used for permit deadlines
// (defaults to the wall clock, unix seconds).
func WithClock(now func() uint64) Option {
	return func(e *Engine) { e.now = now }
}

// WithChainID overrides the chain identifier source. The value observed at
// initialization is bound into the cached permit domain separator.
func WithChainID(chainID func() uint64) Option {
	return func(e *Engine) { e.chainID = chainID }
}

/*
NewEngine creates a new ledger instance.

The instance address together with the chain identifier binds permit
signatures to this deployment, gate holds the privileged role required
for minting.
*/
func NewEngine(name, symbol string, decimals uint8, instance types.Address, chainID uint64, gate *owner.Gate, opts ...Option) (*Engine, error) {
	if types.IsZero(instance) {
		return nil, fmt.Errorf("instance address: %w", types.ErrZeroAddress)
	}
	if gate == nil {
		return nil, fmt.Errorf("privilege gate is nil")
	}
	e := &Engine{
		name:        name,
		symbol:      symbol,
		decimals:    decimals,
		address:     instance,
		chainID:     func() uint64 { return chainID },
		gate:        gate,
		balances:    map[types.Address]*uint256.Int{},
		totalSupply: uint256.NewInt(0),
		allowances:  map[allowanceKey]*uint256.Int{},
		nonces:      map[types.Address]uint64{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = &types.EventLog{}
	}
	if e.now == nil {
		e.now = unixNow
	}
	e.initChainID = e.chainID()
	e.domainSeparator = e.buildDomainSeparator(e.initChainID)
	return e, nil
}

func (e *Engine) Name() string    { return e.name }
func (e *Engine) Symbol() string  { return e.symbol }
func (e *Engine) Decimals() uint8 { return e.decimals }

// Gate returns the privilege gate of this instance.
func (e *Engine) Gate() *owner.Gate { return e.gate }

func (e *Engine) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(e.totalSupply)
}

func (e *Engine) BalanceOf(account types.Address) *uint256.Int {
	return new(uint256.Int).Set(e.balance(account))
}

/*
Transfer moves amount from one account to another. Zero amount is a valid
no-op transfer which still emits the Transfer notification.
*/
func (e *Engine) Transfer(from, to types.Address, amount *uint256.Int) error {
	if types.IsZero(from) {
		return fmt.Errorf("transfer from: %w", types.ErrZeroAddress)
	}
	if types.IsZero(to) {
		return fmt.Errorf("transfer to: %w", types.ErrZeroAddress)
	}
	if err := e.checkBalance(from, amount); err != nil {
		return err
	}
	if err := e.runHook(from, to, amount); err != nil {
		return err
	}
	e.applyTransfer(from, to, amount)
	return nil
}

/*
Mint creates amount new tokens on the "to" account. The caller must hold
the privileged role.
*/
func (e *Engine) Mint(caller, to types.Address, amount *uint256.Int) error {
	if err := e.gate.RequireHolder(caller); err != nil {
		return fmt.Errorf("minting: %w", err)
	}
	if types.IsZero(to) {
		return fmt.Errorf("mint to: %w", types.ErrZeroAddress)
	}
	supply, ok := util.SafeAdd256(e.totalSupply, amount)
	if !ok {
		return types.ErrTotalSupplyOverflow
	}
	if err := e.runHook(types.ZeroAddress, to, amount); err != nil {
		return err
	}
	e.totalSupply = supply
	// balance cannot overflow, it is bounded by the total supply
	e.balances[to], _ = util.SafeAdd256(e.balance(to), amount)
	e.sink.Emit(types.TransferEvent{From: types.ZeroAddress, To: to, Value: new(uint256.Int).Set(amount)})
	return nil
}

// Burn destroys amount tokens of the "from" account, reducing total supply.
func (e *Engine) Burn(from types.Address, amount *uint256.Int) error {
	if types.IsZero(from) {
		return fmt.Errorf("burn from: %w", types.ErrZeroAddress)
	}
	if err := e.checkBalance(from, amount); err != nil {
		return err
	}
	if err := e.runHook(from, types.ZeroAddress, amount); err != nil {
		return err
	}
	e.applyBurn(from, amount)
	return nil
}

/*
TransferFrom moves amount between accounts on behalf of the owner,
consuming the spender's allowance. The allowance decrement is reported
with an Approval notification before the Transfer notification.
*/
func (e *Engine) TransferFrom(spender, from, to types.Address, amount *uint256.Int) error {
	if types.IsZero(from) {
		return fmt.Errorf("transfer from: %w", types.ErrZeroAddress)
	}
	if types.IsZero(to) {
		return fmt.Errorf("transfer to: %w", types.ErrZeroAddress)
	}
	if err := e.checkBalance(from, amount); err != nil {
		return err
	}
	remaining, consumed, err := e.allowanceAfterSpend(from, spender, amount)
	if err != nil {
		return err
	}
	if err := e.runHook(from, to, amount); err != nil {
		return err
	}
	if consumed {
		e.approve(from, spender, remaining)
	}
	e.applyTransfer(from, to, amount)
	return nil
}

// BurnFrom destroys amount tokens of the owner's account on behalf of the
// spender, consuming the spender's allowance.
func (e *Engine) BurnFrom(spender, from types.Address, amount *uint256.Int) error {
	if types.IsZero(from) {
		return fmt.Errorf("burn from: %w", types.ErrZeroAddress)
	}
	if err := e.checkBalance(from, amount); err != nil {
		return err
	}
	remaining, consumed, err := e.allowanceAfterSpend(from, spender, amount)
	if err != nil {
		return err
	}
	if err := e.runHook(from, types.ZeroAddress, amount); err != nil {
		return err
	}
	if consumed {
		e.approve(from, spender, remaining)
	}
	e.applyBurn(from, amount)
	return nil
}

func (e *Engine) balance(account types.Address) *uint256.Int {
	if bal, ok := e.balances[account]; ok {
		return bal
	}
	return uint256.NewInt(0)
}

func (e *Engine) checkBalance(from types.Address, amount *uint256.Int) error {
	if bal := e.balance(from); bal.Lt(amount) {
		return &types.InsufficientBalanceError{Have: new(uint256.Int).Set(bal), Need: new(uint256.Int).Set(amount)}
	}
	return nil
}

func (e *Engine) runHook(from, to types.Address, amount *uint256.Int) error {
	if e.hook == nil {
		return nil
	}
	if err := e.hook(from, to, amount); err != nil {
		return fmt.Errorf("transfer hook: %w", err)
	}
	return nil
}

// applyTransfer writes the balance mutations, the preconditions must have
// been validated by the caller.
func (e *Engine) applyTransfer(from, to types.Address, amount *uint256.Int) {
	e.balances[from], _ = util.SafeSub256(e.balance(from), amount)
	e.balances[to], _ = util.SafeAdd256(e.balance(to), amount)
	e.sink.Emit(types.TransferEvent{From: from, To: to, Value: new(uint256.Int).Set(amount)})
}

func (e *Engine) applyBurn(from types.Address, amount *uint256.Int) {
	e.balances[from], _ = util.SafeSub256(e.balance(from), amount)
	e.totalSupply, _ = util.SafeSub256(e.totalSupply, amount)
	e.sink.Emit(types.TransferEvent{From: from, To: types.ZeroAddress, Value: new(uint256.Int).Set(amount)})
}
