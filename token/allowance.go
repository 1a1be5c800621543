package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/types"
	"github.com/tokenledger-org/tokenledger-go-base/util"
)

// unlimited is the maximum representable allowance, exempt from
// decrement-on-spend.
var unlimited = new(uint256.Int).Not(uint256.NewInt(0))

// Unlimited returns the allowance value that is never decremented by
// spending.
func Unlimited() *uint256.Int {
	return new(uint256.Int).Set(unlimited)
}

// Allowance returns the remaining spend limit of the (owner, spender) pair.
func (e *Engine) Allowance(owner, spender types.Address) *uint256.Int {
	return new(uint256.Int).Set(e.allowance(owner, spender))
}

/*
Approve overwrites the allowance of the (owner, spender) pair with the
given value. This is the single choke point for the Approval notification,
every allowance mutation routes through it - including a repeated approval
of the current value, which emits the notification again.
*/
func (e *Engine) Approve(owner, spender types.Address, value *uint256.Int) error {
	if types.IsZero(owner) {
		return fmt.Errorf("approve owner: %w", types.ErrZeroAddress)
	}
	e.approve(owner, spender, value)
	return nil
}

// IncreaseAllowance raises the allowance by the given amount via checked
// addition.
func (e *Engine) IncreaseAllowance(owner, spender types.Address, added *uint256.Int) error {
	if types.IsZero(owner) {
		return fmt.Errorf("approve owner: %w", types.ErrZeroAddress)
	}
	current := e.allowance(owner, spender)
	value, ok := util.SafeAdd256(current, added)
	if !ok {
		return &types.AllowanceOverflowError{Have: new(uint256.Int).Set(current), Added: new(uint256.Int).Set(added)}
	}
	e.approve(owner, spender, value)
	return nil
}

// DecreaseAllowance lowers the allowance by the given amount via checked
// subtraction.
func (e *Engine) DecreaseAllowance(owner, spender types.Address, subtracted *uint256.Int) error {
	if types.IsZero(owner) {
		return fmt.Errorf("approve owner: %w", types.ErrZeroAddress)
	}
	current := e.allowance(owner, spender)
	value, ok := util.SafeSub256(current, subtracted)
	if !ok {
		return &types.AllowanceExceededError{Have: new(uint256.Int).Set(current), Need: new(uint256.Int).Set(subtracted)}
	}
	e.approve(owner, spender, value)
	return nil
}

/*
SpendAllowance consumes amount of the (owner, spender) allowance. Spending
an unlimited allowance is a no-op with no notification, any other spend
routes through Approve and is reported with an Approval notification.
*/
func (e *Engine) SpendAllowance(owner, spender types.Address, amount *uint256.Int) error {
	remaining, consumed, err := e.allowanceAfterSpend(owner, spender, amount)
	if err != nil {
		return err
	}
	if consumed {
		e.approve(owner, spender, remaining)
	}
	return nil
}

func (e *Engine) allowance(owner, spender types.Address) *uint256.Int {
	if value, ok := e.allowances[allowanceKey{owner: owner, spender: spender}]; ok {
		return value
	}
	return uint256.NewInt(0)
}

/*
allowanceAfterSpend validates a spend of the (owner, spender) allowance
without writing anything, so that callers can order the write after their
own validations. It returns the decremented value and whether it has to be
written back (the unlimited sentinel is never decremented).
*/
func (e *Engine) allowanceAfterSpend(owner, spender types.Address, amount *uint256.Int) (*uint256.Int, bool, error) {
	current := e.allowance(owner, spender)
	if current.Eq(unlimited) {
		return nil, false, nil
	}
	remaining, ok := util.SafeSub256(current, amount)
	if !ok {
		return nil, false, &types.InsufficientBalanceError{Have: new(uint256.Int).Set(current), Need: new(uint256.Int).Set(amount)}
	}
	return remaining, true, nil
}

// approve writes the allowance and emits the Approval notification, the
// owner must have been validated by the caller.
func (e *Engine) approve(owner, spender types.Address, value *uint256.Int) {
	e.allowances[allowanceKey{owner: owner, spender: spender}] = new(uint256.Int).Set(value)
	e.sink.Emit(types.ApprovalEvent{Owner: owner, Spender: spender, Value: new(uint256.Int).Set(value)})
}
