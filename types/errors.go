package types

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Shared failure taxonomy. Every failure aborts the whole operation: no
// partial state mutation, no notification. Parameterized kinds are struct
// errors that unwrap to the matching sentinel so callers can use both
// errors.Is and errors.As.
var (
	ErrZeroAddress         = errors.New("zero address")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAllowanceExceeded   = errors.New("allowance exceeded")
	ErrAllowanceOverflow   = errors.New("allowance overflow")
	ErrTotalSupplyOverflow = errors.New("total supply overflow")
	ErrPermitExpired       = errors.New("permit expired")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrNotOwner            = errors.New("caller is not the owner")
	ErrUnauthorized        = errors.New("caller is not owner nor approved")
	ErrTokenNotFound       = errors.New("token does not exist")
	ErrTokenExists         = errors.New("token already minted")
	ErrInvalidReceiver     = errors.New("invalid receiver")
	ErrReentrantCall       = errors.New("reentrant call")
	ErrSelfApproval        = errors.New("approval to current owner")
	ErrHandoverPending     = errors.New("handover already pending")
	ErrSelfHandover        = errors.New("new holder already holds the role")
	ErrNoHandover          = errors.New("no pending handover")
	ErrNotPendingOwner     = errors.New("caller is not the pending owner")
)

type InsufficientBalanceError struct {
	Have *uint256.Int
	Need *uint256.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Have, e.Need)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type AllowanceExceededError struct {
	Have *uint256.Int
	Need *uint256.Int
}

func (e *AllowanceExceededError) Error() string {
	return fmt.Sprintf("allowance exceeded: have %s, need %s", e.Have, e.Need)
}

func (e *AllowanceExceededError) Unwrap() error { return ErrAllowanceExceeded }

type AllowanceOverflowError struct {
	Have  *uint256.Int
	Added *uint256.Int
}

func (e *AllowanceOverflowError) Error() string {
	return fmt.Sprintf("allowance overflow: have %s, adding %s", e.Have, e.Added)
}

func (e *AllowanceOverflowError) Unwrap() error { return ErrAllowanceOverflow }

type PermitExpiredError struct {
	Deadline uint64
}

func (e *PermitExpiredError) Error() string {
	return fmt.Sprintf("permit expired: deadline %d", e.Deadline)
}

func (e *PermitExpiredError) Unwrap() error { return ErrPermitExpired }
