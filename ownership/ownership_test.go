package ownership

import (
	"math"
	"testing"

	"github.com/alphabill-org/chainauthority/types"
	"github.com/stretchr/testify/require"
)

var (
	ownerA = types.NewAddress32Owner([32]byte{0xa})
	ownerB = types.NewAddress32Owner([32]byte{0xb})
	ownerC = types.NewAddress32Owner([32]byte{0xc})
	ownerX = types.NewAddress20Owner([20]byte{0xf})
)

func secs(s uint64) types.TimeDelta { return types.TimeDeltaFromSecs(s) }

func TestConstructors(t *testing.T) {
	t.Run("single super owner", func(t *testing.T) {
		co := SingleSuper(ownerA)
		require.Equal(t, []types.AccountOwner{ownerA}, co.SuperOwners())
		require.Empty(t, co.Owners())
		require.EqualValues(t, 2, co.MultiLeaderRounds())
		require.False(t, co.OpenMultiLeaderRounds())
		require.Equal(t, DefaultTimeoutConfig(), co.TimeoutConfig())
		require.True(t, co.IsActive())
	})

	t.Run("single owner", func(t *testing.T) {
		co := Single(ownerA)
		require.Empty(t, co.SuperOwners())
		w, ok := co.Weight(ownerA)
		require.True(t, ok)
		require.EqualValues(t, 100, w)
		require.EqualValues(t, 2, co.MultiLeaderRounds())
		require.True(t, co.IsActive())
	})

	t.Run("multiple owners", func(t *testing.T) {
		co := Multiple(map[types.AccountOwner]uint64{ownerC: 3, ownerA: 1, ownerB: 2}, 5, DefaultTimeoutConfig())
		require.Empty(t, co.SuperOwners())
		require.Equal(t, []WeightedOwner{{Owner: ownerA, Weight: 1}, {Owner: ownerB, Weight: 2}, {Owner: ownerC, Weight: 3}}, co.Owners())
		require.EqualValues(t, 5, co.MultiLeaderRounds())
		require.False(t, co.OpenMultiLeaderRounds())
	})

	t.Run("default", func(t *testing.T) {
		co := Default()
		require.False(t, co.IsActive())
		require.Equal(t, types.ValidatorRound(0), co.FirstRound())
	})
}

func TestDefaultTimeoutConfig(t *testing.T) {
	tc := DefaultTimeoutConfig()
	require.Nil(t, tc.FastRoundDuration)
	require.Equal(t, secs(10), tc.BaseTimeout)
	require.Equal(t, secs(1), tc.TimeoutIncrement)
	require.Equal(t, types.MaxTimeDelta, tc.FallbackDuration)
}

func TestWithRegularOwner(t *testing.T) {
	co := Single(ownerB)
	co2 := co.WithRegularOwner(ownerA, 7)
	// receiver is not modified
	require.Len(t, co.Owners(), 1)
	require.Equal(t, []WeightedOwner{{Owner: ownerA, Weight: 7}, {Owner: ownerB, Weight: 100}}, co2.Owners())

	co3 := co2.WithRegularOwner(ownerB, 1)
	w, ok := co3.Weight(ownerB)
	require.True(t, ok)
	require.EqualValues(t, 1, w)
	w, _ = co2.Weight(ownerB)
	require.EqualValues(t, 100, w)
}

func TestCopyOnWrite(t *testing.T) {
	co := Single(ownerA)
	require.Equal(t, []types.AccountOwner{ownerB}, co.WithSuperOwner(ownerB).SuperOwners())
	require.Empty(t, co.SuperOwners())

	require.True(t, co.WithOpenMultiLeaderRounds(true).OpenMultiLeaderRounds())
	require.False(t, co.OpenMultiLeaderRounds())

	require.EqualValues(t, 9, co.WithMultiLeaderRounds(9).MultiLeaderRounds())
	require.EqualValues(t, 2, co.MultiLeaderRounds())

	tc := DefaultTimeoutConfig().WithFastRoundDuration(secs(5))
	co2 := co.WithTimeoutConfig(tc)
	*tc.FastRoundDuration = secs(1)
	d, ok := co2.RoundTimeout(types.FastRound())
	require.True(t, ok)
	require.Equal(t, secs(5), d)
	_, ok = co.RoundTimeout(types.FastRound())
	require.False(t, ok)

	owners := co2.Owners()
	owners[0].Weight = 1
	w, _ := co2.Weight(ownerA)
	require.EqualValues(t, 100, w)
}

func TestIsActive(t *testing.T) {
	require.True(t, SingleSuper(ownerA).IsActive())
	require.True(t, Single(ownerA).IsActive())
	require.False(t, Multiple(nil, 0, DefaultTimeoutConfig()).IsActive())

	tc := DefaultTimeoutConfig()
	tc.FallbackDuration = 0
	require.True(t, Multiple(nil, 0, tc).IsActive())
}

func TestVerifyOwner(t *testing.T) {
	co := SingleSuper(ownerA).WithRegularOwner(ownerB, 0)
	require.True(t, co.VerifyOwner(ownerA))
	require.True(t, co.VerifyOwner(ownerB))
	require.False(t, co.VerifyOwner(ownerC))
	require.True(t, co.IsSuperOwner(ownerA))
	require.False(t, co.IsSuperOwner(ownerB))

	for o := range co.AllOwners() {
		require.True(t, co.VerifyOwner(o))
	}
}

func TestFirstRound(t *testing.T) {
	// super owners start with the fast round
	require.Equal(t, types.FastRound(), SingleSuper(ownerA).FirstRound())
	require.Equal(t, types.FastRound(), Single(ownerB).WithSuperOwner(ownerA).FirstRound())
	// no owners at all
	require.Equal(t, types.ValidatorRound(0), Multiple(nil, 3, DefaultTimeoutConfig()).FirstRound())
	// regular owners with and without multi-leader rounds
	require.Equal(t, types.MultiLeaderRound(0), Single(ownerA).FirstRound())
	require.Equal(t, types.SingleLeaderRound(0), Single(ownerA).WithMultiLeaderRounds(0).FirstRound())
}

func TestRoundTimeouts(t *testing.T) {
	tc := TimeoutConfig{
		BaseTimeout:      secs(10),
		TimeoutIncrement: secs(1),
		FallbackDuration: types.MaxTimeDelta,
	}.WithFastRoundDuration(secs(5))
	co := Multiple(map[types.AccountOwner]uint64{ownerA: 100}, 10, tc).WithSuperOwner(ownerB)

	cases := []struct {
		round types.Round
		want  types.TimeDelta
		ok    bool
	}{
		{round: types.FastRound(), want: secs(5), ok: true},
		{round: types.MultiLeaderRound(0)},
		{round: types.MultiLeaderRound(8)},
		{round: types.MultiLeaderRound(9), want: secs(10), ok: true},
		{round: types.MultiLeaderRound(10)},
		{round: types.SingleLeaderRound(0), want: secs(10), ok: true},
		{round: types.SingleLeaderRound(1), want: secs(11), ok: true},
		{round: types.SingleLeaderRound(8), want: secs(18), ok: true},
		{round: types.ValidatorRound(0), want: secs(10), ok: true},
		{round: types.ValidatorRound(3), want: secs(13), ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.round.String(), func(t *testing.T) {
			d, ok := co.RoundTimeout(tc.round)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, d)
		})
	}
}

func TestRoundTimeouts_Saturation(t *testing.T) {
	tc := DefaultTimeoutConfig()
	tc.TimeoutIncrement = types.MaxTimeDelta / 2
	co := Single(ownerA).WithTimeoutConfig(tc)

	var prev types.TimeDelta
	for _, idx := range []uint32{0, 1, 2, 3, 1000, math.MaxUint32} {
		for _, r := range []types.Round{types.SingleLeaderRound(idx), types.ValidatorRound(idx)} {
			d, ok := co.RoundTimeout(r)
			require.True(t, ok)
			require.GreaterOrEqual(t, uint64(d), uint64(prev), r.String())
		}
		prev, _ = co.RoundTimeout(types.SingleLeaderRound(idx))
	}
	d, _ := co.RoundTimeout(types.SingleLeaderRound(math.MaxUint32))
	require.Equal(t, types.MaxTimeDelta, d)

	// r+1 saturates at MaxUint32, ie the last multi-leader round
	co = co.WithMultiLeaderRounds(math.MaxUint32)
	d, ok := co.RoundTimeout(types.MultiLeaderRound(math.MaxUint32))
	require.True(t, ok)
	require.Equal(t, tc.BaseTimeout, d)
	d, ok = co.RoundTimeout(types.MultiLeaderRound(math.MaxUint32 - 1))
	require.True(t, ok)
	require.Equal(t, tc.BaseTimeout, d)
	_, ok = co.RoundTimeout(types.MultiLeaderRound(math.MaxUint32 - 2))
	require.False(t, ok)
}

func TestNextRound(t *testing.T) {
	cases := []struct {
		name  string
		mlr   uint32
		round types.Round
		want  types.Round
		ok    bool
	}{
		{name: "fast without multi-leader rounds", mlr: 0, round: types.FastRound(), want: types.SingleLeaderRound(0), ok: true},
		{name: "fast with multi-leader rounds", mlr: 3, round: types.FastRound(), want: types.MultiLeaderRound(0), ok: true},
		{name: "multi-leader continues", mlr: 3, round: types.MultiLeaderRound(1), want: types.MultiLeaderRound(2), ok: true},
		{name: "last multi-leader", mlr: 3, round: types.MultiLeaderRound(2), want: types.SingleLeaderRound(0), ok: true},
		{name: "multi-leader beyond configured", mlr: 3, round: types.MultiLeaderRound(7), want: types.SingleLeaderRound(0), ok: true},
		{name: "multi-leader without multi-leader rounds", mlr: 0, round: types.MultiLeaderRound(0), want: types.SingleLeaderRound(0), ok: true},
		{name: "multi-leader index overflow", mlr: math.MaxUint32, round: types.MultiLeaderRound(math.MaxUint32), want: types.SingleLeaderRound(0), ok: true},
		{name: "single-leader continues", mlr: 3, round: types.SingleLeaderRound(4), want: types.SingleLeaderRound(5), ok: true},
		{name: "single-leader overflow", mlr: 3, round: types.SingleLeaderRound(math.MaxUint32), want: types.ValidatorRound(0), ok: true},
		{name: "validator continues", mlr: 3, round: types.ValidatorRound(0), want: types.ValidatorRound(1), ok: true},
		{name: "validator overflow", mlr: 3, round: types.ValidatorRound(math.MaxUint32), ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			co := Single(ownerA).WithMultiLeaderRounds(tc.mlr)
			next, ok := co.NextRound(tc.round)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, next)
			if ok {
				require.True(t, tc.round.Less(next), "escalation must move forward")
			}
		})
	}
}

func TestNextRound_FastNeverRecurs(t *testing.T) {
	co := SingleSuper(ownerA)
	r := co.FirstRound()
	require.True(t, r.IsFast())
	for i := 0; i < 100; i++ {
		next, ok := co.NextRound(r)
		require.True(t, ok)
		require.False(t, next.IsFast())
		require.True(t, r.Less(next))
		r = next
	}
	require.Equal(t, types.SingleLeaderRound(97), r)
}

func TestAllOwners(t *testing.T) {
	co := Multiple(map[types.AccountOwner]uint64{ownerX: 1, ownerB: 1}, 0, DefaultTimeoutConfig()).
		WithSuperOwner(ownerC).
		WithSuperOwner(ownerA)

	var got []types.AccountOwner
	for o := range co.AllOwners() {
		got = append(got, o)
	}
	require.Equal(t, []types.AccountOwner{ownerA, ownerC, ownerB, ownerX}, got)

	// restartable and stops early
	got = got[:0]
	for o := range co.AllOwners() {
		got = append(got, o)
		if len(got) == 3 {
			break
		}
	}
	require.Equal(t, []types.AccountOwner{ownerA, ownerC, ownerB}, got)

	count := 0
	for range Default().AllOwners() {
		count++
	}
	require.Zero(t, count)
}

func TestRoundLeader(t *testing.T) {
	co := Multiple(map[types.AccountOwner]uint64{ownerA: 1, ownerB: 1, ownerC: 1}, 0, DefaultTimeoutConfig())
	for idx := uint32(0); idx < 50; idx++ {
		l, ok := co.RoundLeader(types.SingleLeaderRound(idx))
		require.True(t, ok)
		require.True(t, co.VerifyOwner(l))
		// deterministic across equal records built in a different order
		other := Single(ownerC).WithRegularOwner(ownerB, 1).WithRegularOwner(ownerA, 1).WithRegularOwner(ownerC, 1).WithMultiLeaderRounds(0)
		l2, ok := other.RoundLeader(types.SingleLeaderRound(idx))
		require.True(t, ok)
		require.Equal(t, l, l2)
	}

	_, ok := co.RoundLeader(types.MultiLeaderRound(0))
	require.False(t, ok)
	_, ok = co.RoundLeader(types.ValidatorRound(0))
	require.False(t, ok)
	_, ok = Multiple(map[types.AccountOwner]uint64{ownerA: 0}, 0, DefaultTimeoutConfig()).RoundLeader(types.SingleLeaderRound(0))
	require.False(t, ok)
	_, ok = SingleSuper(ownerA).RoundLeader(types.SingleLeaderRound(0))
	require.False(t, ok)
}

func TestCanPropose(t *testing.T) {
	co := Multiple(map[types.AccountOwner]uint64{ownerB: 1}, 2, DefaultTimeoutConfig()).WithSuperOwner(ownerA)

	t.Run("fast round", func(t *testing.T) {
		require.True(t, co.CanPropose(ownerA, types.FastRound()))
		require.False(t, co.CanPropose(ownerB, types.FastRound()))
		require.False(t, co.CanPropose(ownerC, types.FastRound()))
	})

	t.Run("closed multi-leader round", func(t *testing.T) {
		require.True(t, co.CanPropose(ownerA, types.MultiLeaderRound(0)))
		require.True(t, co.CanPropose(ownerB, types.MultiLeaderRound(0)))
		require.False(t, co.CanPropose(ownerC, types.MultiLeaderRound(0)))
	})

	t.Run("open multi-leader round", func(t *testing.T) {
		open := co.WithOpenMultiLeaderRounds(true)
		require.True(t, open.CanPropose(ownerC, types.MultiLeaderRound(1)))
	})

	t.Run("single-leader round", func(t *testing.T) {
		// the only weighted owner leads every single-leader round
		require.True(t, co.CanPropose(ownerB, types.SingleLeaderRound(3)))
		require.True(t, co.CanPropose(ownerA, types.SingleLeaderRound(3)))
		require.False(t, co.CanPropose(ownerC, types.SingleLeaderRound(3)))
	})

	t.Run("validator round", func(t *testing.T) {
		require.True(t, co.CanPropose(ownerA, types.ValidatorRound(0)))
		require.False(t, co.CanPropose(ownerB, types.ValidatorRound(0)))
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, Single(ownerA).Validate())

	co := Multiple(map[types.AccountOwner]uint64{ownerA: math.MaxUint64, ownerB: 1}, 2, DefaultTimeoutConfig()).WithSuperOwner(ownerB)
	err := co.Validate()
	require.ErrorContains(t, err, "uint64 sum overflow")
	// overflowing weights leave single-leader rounds without leader
	_, ok := co.RoundLeader(types.SingleLeaderRound(0))
	require.False(t, ok)
}

func TestValidate_SuperOwnerAlsoRegularOwner(t *testing.T) {
	co := SingleSuper(ownerA).WithRegularOwner(ownerA, 100)
	require.NoError(t, co.Validate())
	require.True(t, co.IsSuperOwner(ownerA))
	w, ok := co.Weight(ownerA)
	require.True(t, ok)
	require.EqualValues(t, 100, w)

	var all []types.AccountOwner
	for o := range co.AllOwners() {
		all = append(all, o)
	}
	require.Equal(t, []types.AccountOwner{ownerA, ownerA}, all)
}

func TestEqualAndHash(t *testing.T) {
	a := Multiple(map[types.AccountOwner]uint64{ownerA: 1, ownerB: 2}, 3, DefaultTimeoutConfig())
	b := Single(ownerB).WithRegularOwner(ownerA, 1).WithRegularOwner(ownerB, 2).WithMultiLeaderRounds(3)
	require.True(t, a.Equal(b))

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	require.Equal(t, ha, hb)
	require.Len(t, ha, 32)

	c := b.WithOpenMultiLeaderRounds(true)
	require.False(t, a.Equal(c))
	hc, err := c.Hash()
	require.NoError(t, err)
	require.NotEqual(t, ha, hc)

	require.False(t, a.Equal(nil))
	require.True(t, (*ChainOwnership)(nil).Equal(nil))
}

func TestCBOR(t *testing.T) {
	co := Multiple(map[types.AccountOwner]uint64{ownerA: 1, ownerX: 5}, 4, DefaultTimeoutConfig().WithFastRoundDuration(secs(3))).
		WithSuperOwner(ownerC).
		WithOpenMultiLeaderRounds(true)

	data, err := types.Cbor.Marshal(co)
	require.NoError(t, err)

	decoded := &ChainOwnership{}
	require.NoError(t, types.Cbor.Unmarshal(data, decoded))
	require.True(t, co.Equal(decoded))
	for idx := uint32(0); idx < 10; idx++ {
		l1, _ := co.RoundLeader(types.SingleLeaderRound(idx))
		l2, _ := decoded.RoundLeader(types.SingleLeaderRound(idx))
		require.Equal(t, l1, l2)
	}

	// encoding is canonical
	again, err := types.Cbor.Marshal(decoded)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestCBOR_NonCanonicalRejected(t *testing.T) {
	data, err := types.Cbor.Marshal(chainOwnershipCBOR{
		Owners:        []WeightedOwner{{Owner: ownerB, Weight: 1}, {Owner: ownerA, Weight: 1}},
		TimeoutConfig: DefaultTimeoutConfig(),
	})
	require.NoError(t, err)
	co := &ChainOwnership{}
	require.ErrorContains(t, types.Cbor.Unmarshal(data, co), "owners are not in canonical order at index 1")

	data, err = types.Cbor.Marshal(chainOwnershipCBOR{
		SuperOwners:   []types.AccountOwner{ownerA, ownerA},
		TimeoutConfig: DefaultTimeoutConfig(),
	})
	require.NoError(t, err)
	require.ErrorContains(t, types.Cbor.Unmarshal(data, co), "super owners are not in canonical order at index 1")
}

func TestConcurrentReads(t *testing.T) {
	co := Multiple(map[types.AccountOwner]uint64{ownerA: 1, ownerB: 2, ownerC: 3}, 2, DefaultTimeoutConfig())
	done := make(chan types.AccountOwner, 8)
	for i := 0; i < cap(done); i++ {
		go func() {
			l, _ := co.RoundLeader(types.SingleLeaderRound(42))
			done <- l
		}()
	}
	first := <-done
	for i := 1; i < cap(done); i++ {
		require.Equal(t, first, <-done)
	}
}

func TestCanChangeOwnership(t *testing.T) {
	co := Single(ownerB)
	require.True(t, co.CanChangeOwnership(ownerB))
	require.False(t, co.CanChangeOwnership(ownerC))

	co = co.WithSuperOwner(ownerA)
	require.True(t, co.CanChangeOwnership(ownerA))
	require.False(t, co.CanChangeOwnership(ownerB))
}
