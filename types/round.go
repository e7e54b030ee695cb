package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RoundKind is the variant tag of the Round. The order of the constants
// defines the order of the round kinds.
type RoundKind uint8

const (
	RoundFast RoundKind = iota
	RoundMultiLeader
	RoundSingleLeader
	RoundValidator
)

var roundKindNames = [...]string{
	RoundFast:         "fast",
	RoundMultiLeader:  "multi-leader",
	RoundSingleLeader: "single-leader",
	RoundValidator:    "validator",
}

func (k RoundKind) String() string {
	if int(k) < len(roundKindNames) {
		return roundKindNames[k]
	}
	return fmt.Sprintf("RoundKind(%d)", uint8(k))
}

var errInvalidRound = errors.New("invalid round")

// Round is a consensus round of a chain. Rounds are totally ordered:
// the fast round comes first, then multi-leader, single-leader and
// validator rounds, each ordered by index.
type Round struct {
	_     struct{} `cbor:",toarray"`
	Kind  RoundKind
	Index uint32
}

func FastRound() Round {
	return Round{Kind: RoundFast}
}

func MultiLeaderRound(index uint32) Round {
	return Round{Kind: RoundMultiLeader, Index: index}
}

func SingleLeaderRound(index uint32) Round {
	return Round{Kind: RoundSingleLeader, Index: index}
}

func ValidatorRound(index uint32) Round {
	return Round{Kind: RoundValidator, Index: index}
}

func (r Round) IsFast() bool         { return r.Kind == RoundFast }
func (r Round) IsMultiLeader() bool  { return r.Kind == RoundMultiLeader }
func (r Round) IsSingleLeader() bool { return r.Kind == RoundSingleLeader }
func (r Round) IsValidator() bool    { return r.Kind == RoundValidator }

// Compare returns -1, 0 or +1 depending on whether r is before, equal to or
// after other.
func (r Round) Compare(other Round) int {
	switch {
	case r.Kind < other.Kind:
		return -1
	case r.Kind > other.Kind:
		return 1
	case r.Index < other.Index:
		return -1
	case r.Index > other.Index:
		return 1
	default:
		return 0
	}
}

func (r Round) Less(other Round) bool {
	return r.Compare(other) < 0
}

// Valid returns error when the round kind is unknown or the fast round has
// a non-zero index.
func (r Round) Valid() error {
	if r.Kind > RoundValidator {
		return fmt.Errorf("%w: unknown kind %d", errInvalidRound, r.Kind)
	}
	if r.Kind == RoundFast && r.Index != 0 {
		return fmt.Errorf("%w: fast round has index %d", errInvalidRound, r.Index)
	}
	return nil
}

func (r Round) String() string {
	if r.Kind == RoundFast {
		return r.Kind.String()
	}
	return r.Kind.String() + "-" + strconv.FormatUint(uint64(r.Index), 10)
}

// ParseRound parses the textual form of the round, ie "fast",
// "multi-leader-2", "single-leader-0" or "validator-7".
func ParseRound(s string) (Round, error) {
	if s == roundKindNames[RoundFast] {
		return FastRound(), nil
	}
	for kind := RoundMultiLeader; kind <= RoundValidator; kind++ {
		prefix := roundKindNames[kind] + "-"
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		idx, err := strconv.ParseUint(s[len(prefix):], 10, 32)
		if err != nil {
			return Round{}, fmt.Errorf("%w %q: %w", errInvalidRound, s, err)
		}
		return Round{Kind: kind, Index: uint32(idx)}, nil
	}
	return Round{}, fmt.Errorf("%w %q", errInvalidRound, s)
}

func (r Round) MarshalText() ([]byte, error) {
	if err := r.Valid(); err != nil {
		return nil, err
	}
	return []byte(r.String()), nil
}

func (r *Round) UnmarshalText(src []byte) error {
	v, err := ParseRound(string(src))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r *Round) UnmarshalCBOR(data []byte) error {
	type round Round
	var v round
	if err := Cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := Round(v).Valid(); err != nil {
		return err
	}
	*r = Round(v)
	return nil
}
