package nft

import (
	"bytes"
	"crypto"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/tokenledger-org/tokenledger-go-base/cbor"
	abhash "github.com/tokenledger-org/tokenledger-go-base/hash"
	"github.com/tokenledger-org/tokenledger-go-base/types"
)

type (
	// Snapshot is the canonical serializable form of the registry state.
	// Records are sorted by identifier so that equal states always encode
	// to equal bytes. Per-account counts are derived, not recorded.
	Snapshot struct {
		_         struct{}         `cbor:",toarray"`
		Name      string           `json:"name"`
		Symbol    string           `json:"symbol"`
		BaseURI   string           `json:"baseUri"`
		Tokens    []TokenRecord    `json:"tokens"`
		Operators []OperatorRecord `json:"operators"`
	}

	TokenRecord struct {
		_        struct{}      `cbor:",toarray"`
		ID       hexutil.Bytes `json:"id"`
		Owner    types.Address `json:"owner"`
		Approved types.Address `json:"approved"`
	}

	OperatorRecord struct {
		_        struct{}      `cbor:",toarray"`
		Owner    types.Address `json:"owner"`
		Operator types.Address `json:"operator"`
	}
)

// Snapshot captures the current registry state.
func (r *Registry) Snapshot() *Snapshot {
	s := &Snapshot{
		Name:    r.name,
		Symbol:  r.symbol,
		BaseURI: r.baseURI,
	}
	for id, tokenOwner := range r.owners {
		s.Tokens = append(s.Tokens, TokenRecord{
			ID:       id.Bytes(),
			Owner:    tokenOwner,
			Approved: r.approvals[id],
		})
	}
	slices.SortFunc(s.Tokens, func(a, b TokenRecord) int {
		return bytes.Compare(a.ID, b.ID)
	})
	for key := range r.operators {
		s.Operators = append(s.Operators, OperatorRecord{Owner: key.owner, Operator: key.operator})
	}
	slices.SortFunc(s.Operators, func(a, b OperatorRecord) int {
		if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
			return c
		}
		return bytes.Compare(a.Operator[:], b.Operator[:])
	})
	return s
}

// Restore replaces the registry state with the snapshot content,
// rebuilding the per-account counts from the ownership records.
func (r *Registry) Restore(s *Snapshot) error {
	if err := r.guard(); err != nil {
		return err
	}
	owners := make(map[types.TokenID]types.Address, len(s.Tokens))
	approvals := make(map[types.TokenID]types.Address)
	counts := make(map[types.Address]uint64)
	for _, rec := range s.Tokens {
		id := *new(uint256.Int).SetBytes(rec.ID)
		if types.IsZero(rec.Owner) {
			return fmt.Errorf("token record %s owner: %w", &id, types.ErrZeroAddress)
		}
		if _, ok := owners[id]; ok {
			return fmt.Errorf("duplicate token record %s", &id)
		}
		owners[id] = rec.Owner
		if !types.IsZero(rec.Approved) {
			approvals[id] = rec.Approved
		}
		counts[rec.Owner]++
	}
	operators := make(map[operatorKey]bool, len(s.Operators))
	for _, rec := range s.Operators {
		operators[operatorKey{owner: rec.Owner, operator: rec.Operator}] = true
	}
	r.name = s.Name
	r.symbol = s.Symbol
	r.baseURI = s.BaseURI
	r.owners = owners
	r.approvals = approvals
	r.operators = operators
	r.counts = counts
	r.supply = uint64(len(owners))
	return nil
}

// Copy returns a deep copy of the snapshot.
func (s *Snapshot) Copy() *Snapshot {
	c := &Snapshot{
		Name:      s.Name,
		Symbol:    s.Symbol,
		BaseURI:   s.BaseURI,
		Tokens:    slices.Clone(s.Tokens),
		Operators: slices.Clone(s.Operators),
	}
	for i, rec := range c.Tokens {
		c.Tokens[i].ID = bytes.Clone(rec.ID)
	}
	return c
}

func (s *Snapshot) Write(hasher abhash.Hasher) {
	hasher.Write(s)
}

// Bytes returns the deterministic CBOR encoding of the snapshot.
func (s *Snapshot) Bytes() ([]byte, error) {
	return cbor.Marshal(s)
}

// StateHash digests the current registry state.
func (r *Registry) StateHash() []byte {
	return abhash.Sum(crypto.SHA256, r.Snapshot())
}
