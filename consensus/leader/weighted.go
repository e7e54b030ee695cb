package leader

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/alphabill-org/chainauthority/internal/util"
	"github.com/alphabill-org/chainauthority/types"
	"golang.org/x/exp/slices"
)

var (
	ErrNoCandidates    = errors.New("leader selection candidate list is empty")
	ErrZeroTotalWeight = errors.New("total weight of leader selection candidates is zero")
)

// Weighted selects leader from candidates with probability proportional to
// the candidate's weight. The selection is deterministic: the same candidates
// (in the same order) and the same key always produce the same leader, so every
// party following the chain agrees on the leader without communication.
type Weighted struct {
	candidates []types.AccountOwner
	// weightSums[i] is the sum of weights of candidates[0..i]
	weightSums  []uint64
	totalWeight uint64
}

// NewWeighted returns weighted leader selection over the candidates. It is
// assumed that the candidates are in the same (canonical) order for all the
// parties. Candidates with zero weight are never selected.
func NewWeighted(candidates []types.AccountOwner, weights []uint64) (*Weighted, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if len(candidates) != len(weights) {
		return nil, fmt.Errorf("candidate count %d does not match weight count %d", len(candidates), len(weights))
	}
	total, overflow, err := util.AddUint64(weights...)
	if overflow {
		return nil, fmt.Errorf("total weight of leader selection candidates: %w", err)
	}
	if total == 0 {
		return nil, ErrZeroTotalWeight
	}
	sums := make([]uint64, len(weights))
	var sum uint64
	for i, w := range weights {
		sum += w
		sums[i] = sum
	}
	return &Weighted{
		candidates:  slices.Clone(candidates),
		weightSums:  sums,
		totalWeight: total,
	}, nil
}

// Leader returns the leader for the key (ie round number).
func (w *Weighted) Leader(key uint64) types.AccountOwner {
	return w.candidates[binarySearchStrictlyBigger(draw(key)%w.totalWeight, w.weightSums)]
}

func (w *Weighted) Candidates() []types.AccountOwner {
	return slices.Clone(w.candidates)
}

func (w *Weighted) TotalWeight() uint64 {
	return w.totalWeight
}

// draw derives pseudo-random number from the key. The hash spreads
// consecutive keys evenly over the weight range.
func draw(key uint64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	h := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(h[:8])
}

// binarySearchStrictlyBigger returns index of the first element in the
// non-decreasing slice which is strictly bigger than value. The value must
// be smaller than the last element of the slice.
func binarySearchStrictlyBigger(value uint64, sorted []uint64) int {
	left, right := 0, len(sorted)-1
	for left < right {
		mid := int(uint(left+right) >> 1)
		if sorted[mid] > value {
			right = mid
		} else {
			left = mid + 1
		}
	}
	return left
}
