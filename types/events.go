package types

import (
	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/cbor"
)

// Notification kinds, also used as CBOR tags when a log is exported.
const (
	KindTransfer EventKind = 1 + iota
	KindApproval
	KindOperatorApproval
	KindHandoverRequested
	KindHandoverCancelled
	KindHandoverCommitted
)

type (
	EventKind uint64

	// Event is a notification of a single state mutation. Events are
	// emitted exactly once per successful mutating operation, in the
	// order the mutations were applied; failed operations emit nothing.
	Event interface {
		EventKind() EventKind
	}

	// EventSink receives the notifications of an engine instance.
	EventSink interface {
		Emit(Event)
	}

	// TransferEvent reports a balance move on the fungible ledger or an
	// ownership move on the registry. Mint is reported with the zero From,
	// burn with the zero To. Value holds the amount or the token ID.
	TransferEvent struct {
		_     struct{}     `cbor:",toarray"`
		From  Address      `json:"from"`
		To    Address      `json:"to"`
		Value *uint256.Int `json:"value"`
	}

	// ApprovalEvent reports an allowance grant or a per-token approval.
	ApprovalEvent struct {
		_       struct{}     `cbor:",toarray"`
		Owner   Address      `json:"owner"`
		Spender Address      `json:"spender"`
		Value   *uint256.Int `json:"value"`
	}

	OperatorApprovalEvent struct {
		_        struct{} `cbor:",toarray"`
		Owner    Address  `json:"owner"`
		Operator Address  `json:"operator"`
		Approved bool     `json:"approved"`
	}

	HandoverRequestedEvent struct {
		_        struct{} `cbor:",toarray"`
		Previous Address  `json:"previous"`
		Pending  Address  `json:"pending"`
	}

	HandoverCancelledEvent struct {
		_        struct{} `cbor:",toarray"`
		Previous Address  `json:"previous"`
	}

	HandoverCommittedEvent struct {
		_        struct{} `cbor:",toarray"`
		Previous Address  `json:"previous"`
		New      Address  `json:"new"`
	}
)

func (TransferEvent) EventKind() EventKind          { return KindTransfer }
func (ApprovalEvent) EventKind() EventKind          { return KindApproval }
func (OperatorApprovalEvent) EventKind() EventKind  { return KindOperatorApproval }
func (HandoverRequestedEvent) EventKind() EventKind { return KindHandoverRequested }
func (HandoverCancelledEvent) EventKind() EventKind { return KindHandoverCancelled }
func (HandoverCommittedEvent) EventKind() EventKind { return KindHandoverCommitted }

// EventLog is an in-memory append-only EventSink.
// The zero value is ready to use.
type EventLog struct {
	entries []Event
}

func (l *EventLog) Emit(e Event) {
	l.entries = append(l.entries, e)
}

func (l *EventLog) Events() []Event {
	return l.entries
}

func (l *EventLog) Len() int {
	return len(l.entries)
}

// Marshal encodes the log as a CBOR array, each entry tagged with its kind.
func (l *EventLog) Marshal() ([]byte, error) {
	raw := make([]cbor.RawCBOR, 0, len(l.entries))
	for _, e := range l.entries {
		buf, err := cbor.MarshalTaggedValue(uint64(e.EventKind()), e)
		if err != nil {
			return nil, err
		}
		raw = append(raw, buf)
	}
	return cbor.Marshal(raw)
}
