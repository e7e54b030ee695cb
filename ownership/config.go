package ownership

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alphabill-org/chainauthority/types"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the YAML representation of the chain ownership.
	Config struct {
		SuperOwners           []types.AccountOwner `yaml:"superOwners,omitempty" json:"superOwners,omitempty"`
		Owners                []OwnerConfig        `yaml:"owners,omitempty" json:"owners,omitempty"`
		MultiLeaderRounds     uint32               `yaml:"multiLeaderRounds" json:"multiLeaderRounds"`
		OpenMultiLeaderRounds bool                 `yaml:"openMultiLeaderRounds" json:"openMultiLeaderRounds"`
		Timeouts              TimeoutConfig        `yaml:"timeouts" json:"timeouts"`
	}

	OwnerConfig struct {
		Owner  types.AccountOwner `yaml:"owner" json:"owner"`
		Weight uint64             `yaml:"weight" json:"weight"`
	}
)

// DefaultConfig returns config with the default number of multi-leader rounds
// and default timeouts. Fields missing from a loaded file keep these values.
func DefaultConfig() *Config {
	return &Config{
		MultiLeaderRounds: defaultMultiLeaderRounds,
		Timeouts:          DefaultTimeoutConfig(),
	}
}

// LoadConfig reads ownership config from the YAML file.
func LoadConfig(fileName string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read ownership config file: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	conf := DefaultConfig()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ownership config: %w", err)
	}
	return conf, nil
}

// ConfigFrom returns config describing the ownership.
func ConfigFrom(co *ChainOwnership) *Config {
	conf := &Config{
		SuperOwners:           co.SuperOwners(),
		MultiLeaderRounds:     co.multiLeaderRounds,
		OpenMultiLeaderRounds: co.openMultiLeaderRounds,
		Timeouts:              co.TimeoutConfig(),
	}
	for _, o := range co.owners {
		conf.Owners = append(conf.Owners, OwnerConfig{Owner: o.Owner, Weight: o.Weight})
	}
	return conf
}

// Build validates the config and returns the ownership it describes.
func (c *Config) Build() (*ChainOwnership, error) {
	var errs []error
	seen := make(map[types.AccountOwner]struct{}, len(c.Owners))
	owners := make([]WeightedOwner, 0, len(c.Owners))
	for _, o := range c.Owners {
		if _, ok := seen[o.Owner]; ok {
			errs = append(errs, fmt.Errorf("owner %s is listed more than once", o.Owner))
			continue
		}
		seen[o.Owner] = struct{}{}
		owners = append(owners, WeightedOwner{Owner: o.Owner, Weight: o.Weight})
	}
	co := newChainOwnership(c.SuperOwners, owners, c.MultiLeaderRounds, c.OpenMultiLeaderRounds, c.Timeouts)
	if err := co.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid ownership config: %w", err)
	}
	return co, nil
}

// Save writes the config to the YAML file.
func (c *Config) Save(fileName string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal ownership config: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(fileName), data, 0600); err != nil {
		return fmt.Errorf("failed to write ownership config file: %w", err)
	}
	return nil
}
