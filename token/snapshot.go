package token

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
	"github.com/tokenledger-org/tokenledger-go-base/util"
)

type (
	// Snapshot is the canonical serializable form of the ledger state.
	// Records are sorted and amounts are minimal big-endian bytes so that
	// equal states always encode to equal bytes.
	Snapshot struct {
		_           struct{}          `cbor:",toarray"`
		Name        string            `json:"name"`
		Symbol      string            `json:"symbol"`
		Decimals    uint8             `json:"decimals"`
		TotalSupply hexutil.Bytes     `json:"totalSupply"`
		Balances    []BalanceRecord   `json:"balances"`
		Allowances  []AllowanceRecord `json:"allowances"`
		Nonces      []NonceRecord     `json:"nonces"`
	}

	BalanceRecord struct {
		_       struct{}      `cbor:",toarray"`
		Account types.Address `json:"account"`
		Balance hexutil.Bytes `json:"balance"`
	}

	AllowanceRecord struct {
		_       struct{}      `cbor:",toarray"`
		Owner   types.Address `json:"owner"`
		Spender types.Address `json:"spender"`
		Value   hexutil.Bytes `json:"value"`
	}

	NonceRecord struct {
		_       struct{}      `cbor:",toarray"`
		Account types.Address `json:"account"`
		Nonce   uint64        `json:"nonce,string"`
	}
)

// Snapshot captures the current ledger state. Zero balances and zero
// allowances are omitted, they are equivalent to absent records.
func (e *Engine) Snapshot() *Snapshot {
	s := &Snapshot{
		Name:        e.name,
		Symbol:      e.symbol,
		Decimals:    e.decimals,
		TotalSupply: e.totalSupply.Bytes(),
	}
	for account, balance := range e.balances {
		if balance.IsZero() {
			continue
		}
		s.Balances = append(s.Balances, BalanceRecord{Account: account, Balance: balance.Bytes()})
	}
	slices.SortFunc(s.Balances, func(a, b BalanceRecord) int {
		return bytes.Compare(a.Account[:], b.Account[:])
	})
	for key, value := range e.allowances {
		if value.IsZero() {
			continue
		}
		s.Allowances = append(s.Allowances, AllowanceRecord{Owner: key.owner, Spender: key.spender, Value: value.Bytes()})
	}
	slices.SortFunc(s.Allowances, func(a, b AllowanceRecord) int {
		if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
			return c
		}
		return bytes.Compare(a.Spender[:], b.Spender[:])
	})
	for account, nonce := range e.nonces {
		if nonce == 0 {
			continue
		}
		s.Nonces = append(s.Nonces, NonceRecord{Account: account, Nonce: nonce})
	}
	slices.SortFunc(s.Nonces, func(a, b NonceRecord) int {
		return bytes.Compare(a.Account[:], b.Account[:])
	})
	return s
}

// Restore replaces the ledger state with the snapshot content. The sum of
// the balances must equal the recorded total supply.
func (e *Engine) Restore(s *Snapshot) error {
	supply := new(uint256.Int).SetBytes(s.TotalSupply)
	balances := make(map[types.Address]*uint256.Int, len(s.Balances))
	sum := uint256.NewInt(0)
	for _, rec := range s.Balances {
		if types.IsZero(rec.Account) {
			return fmt.Errorf("balance record: %w", types.ErrZeroAddress)
		}
		if _, ok := balances[rec.Account]; ok {
			return fmt.Errorf("duplicate balance record for %s", rec.Account)
		}
		balance := new(uint256.Int).SetBytes(rec.Balance)
		balances[rec.Account] = balance
		var ok bool
		if sum, ok = util.SafeAdd256(sum, balance); !ok {
			return types.ErrTotalSupplyOverflow
		}
	}
	if !sum.Eq(supply) {
		return fmt.Errorf("balance sum %s does not match total supply %s", sum, supply)
	}
	allowances := make(map[allowanceKey]*uint256.Int, len(s.Allowances))
	for _, rec := range s.Allowances {
		if types.IsZero(rec.Owner) {
			return fmt.Errorf("allowance record: %w", types.ErrZeroAddress)
		}
		allowances[allowanceKey{owner: rec.Owner, spender: rec.Spender}] = new(uint256.Int).SetBytes(rec.Value)
	}
	nonces := make(map[types.Address]uint64, len(s.Nonces))
	for _, rec := range s.Nonces {
		nonces[rec.Account] = rec.Nonce
	}
	e.name = s.Name
	e.symbol = s.Symbol
	e.decimals = s.Decimals
	e.totalSupply = supply
	e.balances = balances
	e.allowances = allowances
	e.nonces = nonces
	// the name is bound into the permit domain, the cached separator must
	// follow it
	e.initChainID = e.chainID()
	e.domainSeparator = e.buildDomainSeparator(e.initChainID)
	return nil
}

// Copy returns a deep copy of the snapshot.
func (s *Snapshot) Copy() *Snapshot {
	c := &Snapshot{
		Name:        s.Name,
		Symbol:      s.Symbol,
		Decimals:    s.Decimals,
		TotalSupply: bytes.Clone(s.TotalSupply),
		Balances:    slices.Clone(s.Balances),
		Allowances:  slices.Clone(s.Allowances),
		Nonces:      slices.Clone(s.Nonces),
	}
	for i, rec := range c.Balances {
		c.Balances[i].Balance = bytes.Clone(rec.Balance)
	}
	for i, rec := range c.Allowances {
		c.Allowances[i].Value = bytes.Clone(rec.Value)
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

// StateHash digests the current ledger state.
func (e *Engine) StateHash() []byte {
	return abhash.Sum(crypto.SHA256, e.Snapshot())
}
