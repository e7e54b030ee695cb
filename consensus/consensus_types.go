package consensus

import (
	"github.com/alphabill-org/chainauthority/types"
	"github.com/benbjohnson/clock"
)

const (
	// MaxClockSkewMs is how far in the future the block timestamp may be
	// compared to the local clock.
	MaxClockSkewMs = 1000
)

type (
	// Parameters are the chain manager parameters that need to be the same
	// for all the parties following the chain.
	Parameters struct {
		MaxClockSkew types.TimeDelta
	}

	// Optional are optional parameters for the chain manager
	Optional struct {
		Params *Parameters
		// Committee is the validator committee with voting weights, its
		// leader may propose in validator rounds.
		Committee map[types.AccountOwner]uint64
		Clock     clock.Clock
	}

	Option func(c *Optional)
)

func NewConsensusParams() *Parameters {
	return &Parameters{
		MaxClockSkew: types.TimeDeltaFromMillis(MaxClockSkewMs),
	}
}

func WithConsensusParams(params Parameters) Option {
	return func(c *Optional) {
		c.Params = &params
	}
}

func WithCommittee(weights map[types.AccountOwner]uint64) Option {
	return func(c *Optional) {
		c.Committee = weights
	}
}

// WithClock sets the clock used to drive round timeouts.
func WithClock(clk clock.Clock) Option {
	return func(c *Optional) {
		c.Clock = clk
	}
}

func LoadConf(opts []Option) (*Optional, error) {
	conf := &Optional{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(conf)
	}

	if conf.Params == nil {
		conf.Params = NewConsensusParams()
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	return conf, nil
}
