package ownership

import (
	"github.com/alphabill-org/chainauthority/types"
)

const (
	defaultBaseTimeoutSecs      = 10
	defaultTimeoutIncrementSecs = 1
)

// TimeoutConfig contains the timeouts of the chain's rounds.
type TimeoutConfig struct {
	_ struct{} `cbor:",toarray"`
	// FastRoundDuration is the duration of the fast round, nil means the
	// fast round never times out.
	FastRoundDuration *types.TimeDelta `yaml:"fastRoundDuration,omitempty" json:"fastRoundDuration,omitempty"`
	// BaseTimeout is the duration of the first single-leader and the first
	// validator round, and of the last multi-leader round.
	BaseTimeout types.TimeDelta `yaml:"baseTimeout" json:"baseTimeout"`
	// TimeoutIncrement is added to the timeout of each following
	// single-leader and validator round.
	TimeoutIncrement types.TimeDelta `yaml:"timeoutIncrement" json:"timeoutIncrement"`
	// FallbackDuration is how long a message may wait for confirmation
	// before the chain falls back to validator rounds.
	FallbackDuration types.TimeDelta `yaml:"fallbackDuration" json:"fallbackDuration"`
}

func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		BaseTimeout:      types.TimeDeltaFromSecs(defaultBaseTimeoutSecs),
		TimeoutIncrement: types.TimeDeltaFromSecs(defaultTimeoutIncrementSecs),
		FallbackDuration: types.MaxTimeDelta,
	}
}

// WithFastRoundDuration returns copy of the config with fast round duration set.
func (c TimeoutConfig) WithFastRoundDuration(d types.TimeDelta) TimeoutConfig {
	c.FastRoundDuration = &d
	return c
}

func (c TimeoutConfig) clone() TimeoutConfig {
	if c.FastRoundDuration != nil {
		d := *c.FastRoundDuration
		c.FastRoundDuration = &d
	}
	return c
}

// Equal reports whether both configs have the same durations.
func (c TimeoutConfig) Equal(other TimeoutConfig) bool {
	if (c.FastRoundDuration == nil) != (other.FastRoundDuration == nil) {
		return false
	}
	if c.FastRoundDuration != nil && *c.FastRoundDuration != *other.FastRoundDuration {
		return false
	}
	return c.BaseTimeout == other.BaseTimeout &&
		c.TimeoutIncrement == other.TimeoutIncrement &&
		c.FallbackDuration == other.FallbackDuration
}
