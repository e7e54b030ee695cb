package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/alphabill-org/chainauthority/types"
	"github.com/spf13/cobra"
)

const (
	chainIDCmdFlag   = "chain-id"
	chainDescCmdFlag = "chain-description"
)

type registerConfig struct {
	Base          *baseConfiguration
	Registry      registryFlags
	OwnershipFile string
	ChainID       string
	Description   string
}

func newRegisterCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &registerConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "register",
		Short: "Stores the chain ownership in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return registerRunFun(cmd.OutOrStdout(), config)
		},
	}
	config.Registry.addFlags(cmd)
	cmd.Flags().StringVarP(&config.OwnershipFile, ownershipCmdFlag, "o", "", "path to the chain ownership YAML file")
	cmd.Flags().StringVar(&config.ChainID, chainIDCmdFlag, "", "0x prefixed hex of the chain identifier")
	cmd.Flags().StringVar(&config.Description, chainDescCmdFlag, "", "description of the chain, the chain identifier is derived from it")
	cmd.MarkFlagsMutuallyExclusive(chainIDCmdFlag, chainDescCmdFlag)
	if err := cmd.MarkFlagRequired(ownershipCmdFlag); err != nil {
		panic(err)
	}
	return cmd
}

func (c *registerConfig) chainID() (types.ChainID, error) {
	switch {
	case c.ChainID != "":
		return types.ChainIDFromString(c.ChainID)
	case c.Description != "":
		return types.NewChainID([]byte(c.Description)), nil
	default:
		return types.ChainID{}, errors.New("either --chain-id or --chain-description must be set")
	}
}

func registerRunFun(out io.Writer, config *registerConfig) (rErr error) {
	chainID, err := config.chainID()
	if err != nil {
		return fmt.Errorf("invalid chain identifier: %w", err)
	}
	co, err := loadOwnership(config.OwnershipFile)
	if err != nil {
		return err
	}
	reg, closeDB, err := config.Registry.openRegistry(config.Base)
	if err != nil {
		return err
	}
	defer func() { rErr = errors.Join(rErr, closeDB()) }()

	if err := reg.Create(chainID, co); err != nil {
		return err
	}
	fmt.Fprintf(out, "registered chain %s\n", chainID)
	return nil
}
