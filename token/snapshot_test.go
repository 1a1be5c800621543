package token

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/tokenledger-org/tokenledger-go-base/cbor"
	"github.com/tokenledger-org/tokenledger-go-base/testutils"
)

func Test_Engine_Snapshot(t *testing.T) {
	admin := testutils.RandomAddress(t)
	alice := testutils.RandomAddress(t)
	bob := testutils.RandomAddress(t)
	spender := testutils.RandomAddress(t)

	populate := func(t *testing.T) *Engine {
		e, _ := newTestEngine(t, admin)
		require.NoError(t, e.Mint(admin, alice, uint256.NewInt(1000)))
		require.NoError(t, e.Transfer(alice, bob, uint256.NewInt(250)))
		require.NoError(t, e.Approve(alice, spender, uint256.NewInt(77)))
		return e
	}

	t.Run("snapshot round-trips through CBOR", func(t *testing.T) {
		e := populate(t)
		buf, err := e.Snapshot().Bytes()
		require.NoError(t, err)

		restored, _ := newTestEngine(t, admin)
		var s Snapshot
		require.NoError(t, cbor.Unmarshal(buf, &s))
		require.NoError(t, restored.Restore(&s))

		require.Equal(t, e.BalanceOf(alice), restored.BalanceOf(alice))
		require.Equal(t, e.BalanceOf(bob), restored.BalanceOf(bob))
		require.Equal(t, e.Allowance(alice, spender), restored.Allowance(alice, spender))
		require.Equal(t, e.TotalSupply(), restored.TotalSupply())
		require.Equal(t, e.StateHash(), restored.StateHash())
	})

	t.Run("restore rebinds the permit domain to the restored name", func(t *testing.T) {
		e := populate(t)
		before := e.DomainSeparator()

		s := e.Snapshot()
		s.Name = "Beta Token"
		require.NoError(t, e.Restore(s))
		require.NotEqual(t, before, e.DomainSeparator())

		// a permit signed against the restored name's domain verifies
		key, owner := testutils.NewKey(t)
		digest := e.permitDigest(owner, spender, uint256.NewInt(5), 0, e.now()+60)
		v, rr, ss := testutils.Sign(t, key, digest)
		require.NoError(t, e.Permit(owner, spender, uint256.NewInt(5), e.now()+60, v, rr, ss))
	})

	t.Run("copy is deep", func(t *testing.T) {
		s := populate(t).Snapshot()
		c := s.Copy()
		require.Equal(t, s, c)
		c.Balances[0].Balance[0] ^= 0xff
		c.Nonces = append(c.Nonces, NonceRecord{Account: alice, Nonce: 9})
		require.NotEqual(t, s.Balances[0].Balance, c.Balances[0].Balance)
		require.NotEqual(t, len(s.Nonces), len(c.Nonces))
	})

	t.Run("state hash is deterministic and change sensitive", func(t *testing.T) {
		e := populate(t)
		h1 := e.StateHash()
		require.Equal(t, h1, e.StateHash())
		require.NoError(t, e.Transfer(bob, alice, uint256.NewInt(1)))
		require.NotEqual(t, h1, e.StateHash())
	})

	t.Run("restore rejects a broken supply invariant", func(t *testing.T) {
		e := populate(t)
		s := e.Snapshot()
		s.TotalSupply = uint256.NewInt(123).Bytes()
		restored, _ := newTestEngine(t, admin)
		require.ErrorContains(t, restored.Restore(s), "does not match total supply")
	})

	t.Run("restore rejects duplicate balance records", func(t *testing.T) {
		e := populate(t)
		s := e.Snapshot()
		s.Balances = append(s.Balances, s.Balances[0])
		restored, _ := newTestEngine(t, admin)
		require.ErrorContains(t, restored.Restore(s), "duplicate balance record")
	})

	t.Run("zero balances are omitted", func(t *testing.T) {
		e := populate(t)
		require.NoError(t, e.Transfer(bob, alice, e.BalanceOf(bob)))
		s := e.Snapshot()
		for _, rec := range s.Balances {
			require.NotEqual(t, bob, rec.Account)
		}
	})

	t.Run("nonces survive the round-trip", func(t *testing.T) {
		e, _ := newTestEngine(t, admin, WithClock(func() uint64 { return 1000 }))
		key, carol := testutils.NewKey(t)
		digest := e.permitDigest(carol, spender, uint256.NewInt(5), 0, 2000)
		v, r, s := testutils.Sign(t, key, digest)
		require.NoError(t, e.Permit(carol, spender, uint256.NewInt(5), 2000, v, r, s))

		restored, _ := newTestEngine(t, admin)
		require.NoError(t, restored.Restore(e.Snapshot()))
		require.EqualValues(t, 1, restored.NonceOf(carol))
		require.Equal(t, uint256.NewInt(5), restored.Allowance(carol, spender))
	})
}
