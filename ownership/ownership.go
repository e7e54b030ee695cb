package ownership

import (
	"crypto/sha256"
	"fmt"
	"iter"

	"github.com/alphabill-org/chainauthority/consensus/leader"
	"github.com/alphabill-org/chainauthority/internal/util"
	"github.com/alphabill-org/chainauthority/types"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	defaultMultiLeaderRounds = 2
	defaultOwnerWeight       = 100
)

// WeightedOwner is a regular owner of the chain together with its weight in
// the leader selection of single-leader rounds.
type WeightedOwner struct {
	_      struct{} `cbor:",toarray"`
	Owner  types.AccountOwner
	Weight uint64
}

// ChainOwnership describes who may propose blocks on a chain and in which
// rounds, and how the rounds escalate when the chain makes no progress.
//
// ChainOwnership is immutable, the With* methods return a modified copy.
// Owner collections are kept in canonical order so that every party derives
// the same round leaders and the same encoding of the record.
type ChainOwnership struct {
	superOwners           []types.AccountOwner
	owners                []WeightedOwner
	multiLeaderRounds     uint32
	openMultiLeaderRounds bool
	timeoutConfig         TimeoutConfig
	// nil when regular owners have no weight in total
	selection *leader.Weighted
}

// Default returns ownership with no owners, ie the chain is inactive.
func Default() *ChainOwnership {
	return newChainOwnership(nil, nil, 0, false, DefaultTimeoutConfig())
}

// SingleSuper returns ownership with a single super owner.
func SingleSuper(owner types.AccountOwner) *ChainOwnership {
	return newChainOwnership([]types.AccountOwner{owner}, nil, defaultMultiLeaderRounds, false, DefaultTimeoutConfig())
}

// Single returns ownership with a single regular owner.
func Single(owner types.AccountOwner) *ChainOwnership {
	return newChainOwnership(nil, []WeightedOwner{{Owner: owner, Weight: defaultOwnerWeight}}, defaultMultiLeaderRounds, false, DefaultTimeoutConfig())
}

// Multiple returns ownership with the given regular owners and their weights.
func Multiple(owners map[types.AccountOwner]uint64, multiLeaderRounds uint32, timeoutConfig TimeoutConfig) *ChainOwnership {
	weighted := make([]WeightedOwner, 0, len(owners))
	for o, w := range owners {
		weighted = append(weighted, WeightedOwner{Owner: o, Weight: w})
	}
	return newChainOwnership(nil, weighted, multiLeaderRounds, false, timeoutConfig)
}

func newChainOwnership(superOwners []types.AccountOwner, owners []WeightedOwner, multiLeaderRounds uint32, open bool, timeoutConfig TimeoutConfig) *ChainOwnership {
	weights := make(map[types.AccountOwner]uint64, len(owners))
	for _, o := range owners {
		weights[o.Owner] = o.Weight
	}
	co := &ChainOwnership{
		superOwners:           sortedSuperOwners(superOwners),
		owners:                sortedOwners(weights),
		multiLeaderRounds:     multiLeaderRounds,
		openMultiLeaderRounds: open,
		timeoutConfig:         timeoutConfig.clone(),
	}
	co.selection = newSelection(co.owners)
	return co
}

func sortedSuperOwners(owners []types.AccountOwner) []types.AccountOwner {
	res := slices.Clone(owners)
	slices.SortFunc(res, func(a, b types.AccountOwner) bool { return a.Compare(b) < 0 })
	return slices.Compact(res)
}

func sortedOwners(weights map[types.AccountOwner]uint64) []WeightedOwner {
	keys := maps.Keys(weights)
	slices.SortFunc(keys, func(a, b types.AccountOwner) bool { return a.Compare(b) < 0 })
	res := make([]WeightedOwner, len(keys))
	for i, k := range keys {
		res[i] = WeightedOwner{Owner: k, Weight: weights[k]}
	}
	return res
}

func newSelection(owners []WeightedOwner) *leader.Weighted {
	if len(owners) == 0 {
		return nil
	}
	candidates := make([]types.AccountOwner, len(owners))
	weights := make([]uint64, len(owners))
	for i, o := range owners {
		candidates[i] = o.Owner
		weights[i] = o.Weight
	}
	// zero or overflowing total weight means single-leader rounds have no leader
	sel, err := leader.NewWeighted(candidates, weights)
	if err != nil {
		return nil
	}
	return sel
}

func (co *ChainOwnership) clone() *ChainOwnership {
	return newChainOwnership(co.superOwners, co.owners, co.multiLeaderRounds, co.openMultiLeaderRounds, co.timeoutConfig)
}

// WithRegularOwner returns copy of the ownership with the owner added, or
// with the owner's weight replaced if it already is a regular owner.
func (co *ChainOwnership) WithRegularOwner(owner types.AccountOwner, weight uint64) *ChainOwnership {
	owners := append(slices.Clone(co.owners), WeightedOwner{Owner: owner, Weight: weight})
	return newChainOwnership(co.superOwners, owners, co.multiLeaderRounds, co.openMultiLeaderRounds, co.timeoutConfig)
}

func (co *ChainOwnership) WithSuperOwner(owner types.AccountOwner) *ChainOwnership {
	superOwners := append(slices.Clone(co.superOwners), owner)
	return newChainOwnership(superOwners, co.owners, co.multiLeaderRounds, co.openMultiLeaderRounds, co.timeoutConfig)
}

func (co *ChainOwnership) WithTimeoutConfig(tc TimeoutConfig) *ChainOwnership {
	res := co.clone()
	res.timeoutConfig = tc.clone()
	return res
}

func (co *ChainOwnership) WithMultiLeaderRounds(rounds uint32) *ChainOwnership {
	res := co.clone()
	res.multiLeaderRounds = rounds
	return res
}

func (co *ChainOwnership) WithOpenMultiLeaderRounds(open bool) *ChainOwnership {
	res := co.clone()
	res.openMultiLeaderRounds = open
	return res
}

func (co *ChainOwnership) SuperOwners() []types.AccountOwner {
	return slices.Clone(co.superOwners)
}

func (co *ChainOwnership) Owners() []WeightedOwner {
	return slices.Clone(co.owners)
}

func (co *ChainOwnership) MultiLeaderRounds() uint32 {
	return co.multiLeaderRounds
}

func (co *ChainOwnership) OpenMultiLeaderRounds() bool {
	return co.openMultiLeaderRounds
}

func (co *ChainOwnership) TimeoutConfig() TimeoutConfig {
	return co.timeoutConfig.clone()
}

// IsActive returns true if the chain has owners who can propose blocks or
// the chain immediately falls back to validator rounds.
func (co *ChainOwnership) IsActive() bool {
	return len(co.superOwners) > 0 ||
		len(co.owners) > 0 ||
		co.timeoutConfig.FallbackDuration == 0
}

func (co *ChainOwnership) IsSuperOwner(owner types.AccountOwner) bool {
	_, found := slices.BinarySearchFunc(co.superOwners, owner, types.AccountOwner.Compare)
	return found
}

// Weight returns the weight of the regular owner, false if the owner is not
// a regular owner.
func (co *ChainOwnership) Weight(owner types.AccountOwner) (uint64, bool) {
	idx, found := slices.BinarySearchFunc(co.owners, owner, func(o WeightedOwner, target types.AccountOwner) int {
		return o.Owner.Compare(target)
	})
	if !found {
		return 0, false
	}
	return co.owners[idx].Weight, true
}

// VerifyOwner returns true if the owner is a super owner or a regular owner.
func (co *ChainOwnership) VerifyOwner(owner types.AccountOwner) bool {
	if co.IsSuperOwner(owner) {
		return true
	}
	_, found := co.Weight(owner)
	return found
}

// RoundTimeout returns the duration of the round, false if the round does
// not time out.
func (co *ChainOwnership) RoundTimeout(round types.Round) (types.TimeDelta, bool) {
	tc := co.timeoutConfig
	switch round.Kind {
	case types.RoundFast:
		if tc.FastRoundDuration == nil {
			return 0, false
		}
		return *tc.FastRoundDuration, true
	case types.RoundMultiLeader:
		// only the last multi-leader round is time-boxed
		if util.SaturatingAdd(round.Index, 1) == co.multiLeaderRounds {
			return tc.BaseTimeout, true
		}
		return 0, false
	case types.RoundSingleLeader, types.RoundValidator:
		return tc.BaseTimeout.SaturatingAdd(tc.TimeoutIncrement.SaturatingMul(uint64(round.Index))), true
	default:
		return 0, false
	}
}

// FirstRound returns the round in which the chain starts a new block height.
func (co *ChainOwnership) FirstRound() types.Round {
	switch {
	case len(co.superOwners) > 0:
		return types.FastRound()
	case len(co.owners) == 0:
		return types.ValidatorRound(0)
	case co.multiLeaderRounds > 0:
		return types.MultiLeaderRound(0)
	default:
		return types.SingleLeaderRound(0)
	}
}

// NextRound returns the round which follows the given round, false if there
// is no next round.
func (co *ChainOwnership) NextRound(round types.Round) (types.Round, bool) {
	switch round.Kind {
	case types.RoundFast:
		if co.multiLeaderRounds == 0 {
			return types.SingleLeaderRound(0), true
		}
		return types.MultiLeaderRound(0), true
	case types.RoundMultiLeader:
		if uint64(round.Index)+1 < uint64(co.multiLeaderRounds) {
			return types.MultiLeaderRound(round.Index + 1), true
		}
		return types.SingleLeaderRound(0), true
	case types.RoundSingleLeader:
		if round.Index == ^uint32(0) {
			return types.ValidatorRound(0), true
		}
		return types.SingleLeaderRound(round.Index + 1), true
	case types.RoundValidator:
		if round.Index == ^uint32(0) {
			return types.Round{}, false
		}
		return types.ValidatorRound(round.Index + 1), true
	default:
		return types.Round{}, false
	}
}

// AllOwners returns sequence of the super owners followed by the regular
// owners, both in canonical order. An owner who is both a super owner and a
// regular owner is yielded twice.
func (co *ChainOwnership) AllOwners() iter.Seq[types.AccountOwner] {
	return func(yield func(types.AccountOwner) bool) {
		for _, o := range co.superOwners {
			if !yield(o) {
				return
			}
		}
		for _, o := range co.owners {
			if !yield(o.Owner) {
				return
			}
		}
	}
}

// RoundLeader returns the leader of the single-leader round, selected from
// the regular owners proportionally to their weight. Returns false for other
// kinds of rounds and when the regular owners have no weight.
func (co *ChainOwnership) RoundLeader(round types.Round) (types.AccountOwner, bool) {
	if !round.IsSingleLeader() || co.selection == nil {
		return types.AccountOwner{}, false
	}
	return co.selection.Leader(uint64(round.Index)), true
}

// CanPropose returns true if the owner may propose a block in the round.
// In validator rounds only super owners are permitted by the ownership,
// the validator committee leader is admitted by the consensus driver.
func (co *ChainOwnership) CanPropose(owner types.AccountOwner, round types.Round) bool {
	switch round.Kind {
	case types.RoundFast:
		return co.IsSuperOwner(owner)
	case types.RoundMultiLeader:
		return co.openMultiLeaderRounds || co.VerifyOwner(owner)
	case types.RoundSingleLeader:
		if co.IsSuperOwner(owner) {
			return true
		}
		l, ok := co.RoundLeader(round)
		return ok && l == owner
	case types.RoundValidator:
		return co.IsSuperOwner(owner)
	default:
		return false
	}
}

// CanChangeOwnership returns true if the owner may replace the ownership of
// the chain: a super owner when the chain has any, otherwise any owner.
func (co *ChainOwnership) CanChangeOwnership(owner types.AccountOwner) bool {
	if len(co.superOwners) > 0 {
		return co.IsSuperOwner(owner)
	}
	return co.VerifyOwner(owner)
}

// Validate returns error when the total weight of the regular owners
// overflows. An owner may be both a super owner and a regular owner.
func (co *ChainOwnership) Validate() error {
	weights := make([]uint64, len(co.owners))
	for i, o := range co.owners {
		weights[i] = o.Weight
	}
	if _, overflow, err := util.AddUint64(weights...); overflow {
		return fmt.Errorf("total weight of owners: %w", err)
	}
	return nil
}

// Equal reports whether both records describe the same ownership.
func (co *ChainOwnership) Equal(other *ChainOwnership) bool {
	if co == nil || other == nil {
		return co == other
	}
	return slices.Equal(co.superOwners, other.superOwners) &&
		slices.Equal(co.owners, other.owners) &&
		co.multiLeaderRounds == other.multiLeaderRounds &&
		co.openMultiLeaderRounds == other.openMultiLeaderRounds &&
		co.timeoutConfig.Equal(other.timeoutConfig)
}

// Hash returns SHA-256 hash of the canonical CBOR encoding of the record.
func (co *ChainOwnership) Hash() (types.Bytes, error) {
	data, err := co.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encoding chain ownership: %w", err)
	}
	h := sha256.Sum256(data)
	return h[:], nil
}

type chainOwnershipCBOR struct {
	_                     struct{} `cbor:",toarray"`
	SuperOwners           []types.AccountOwner
	Owners                []WeightedOwner
	MultiLeaderRounds     uint32
	OpenMultiLeaderRounds bool
	TimeoutConfig         TimeoutConfig
}

func (co *ChainOwnership) MarshalCBOR() ([]byte, error) {
	return types.Cbor.Marshal(chainOwnershipCBOR{
		SuperOwners:           co.superOwners,
		Owners:                co.owners,
		MultiLeaderRounds:     co.multiLeaderRounds,
		OpenMultiLeaderRounds: co.openMultiLeaderRounds,
		TimeoutConfig:         co.timeoutConfig,
	})
}

// UnmarshalCBOR decodes the record, owner collections must be in canonical
// order without duplicates.
func (co *ChainOwnership) UnmarshalCBOR(data []byte) error {
	var v chainOwnershipCBOR
	if err := types.Cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	for i := 1; i < len(v.SuperOwners); i++ {
		if v.SuperOwners[i-1].Compare(v.SuperOwners[i]) >= 0 {
			return fmt.Errorf("super owners are not in canonical order at index %d", i)
		}
	}
	for i := 1; i < len(v.Owners); i++ {
		if v.Owners[i-1].Owner.Compare(v.Owners[i].Owner) >= 0 {
			return fmt.Errorf("owners are not in canonical order at index %d", i)
		}
	}
	*co = *newChainOwnership(v.SuperOwners, v.Owners, v.MultiLeaderRounds, v.OpenMultiLeaderRounds, v.TimeoutConfig)
	return nil
}
