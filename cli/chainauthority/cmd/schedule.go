package cmd

import (
	"fmt"
	"io"

	"github.com/alphabill-org/chainauthority/ownership"
	"github.com/alphabill-org/chainauthority/types"
	"github.com/spf13/cobra"
)

const (
	ownershipCmdFlag = "ownership"
	roundsCmdFlag    = "rounds"
)

type scheduleConfig struct {
	Base          *baseConfiguration
	OwnershipFile string
	Rounds        uint32
}

func newScheduleCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &scheduleConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "schedule",
		Short: "Prints the round escalation schedule of the chain ownership",
		RunE: func(cmd *cobra.Command, args []string) error {
			return scheduleRunFun(cmd.OutOrStdout(), config)
		},
	}
	cmd.Flags().StringVarP(&config.OwnershipFile, ownershipCmdFlag, "o", "", "path to the chain ownership YAML file")
	cmd.Flags().Uint32VarP(&config.Rounds, roundsCmdFlag, "n", 10, "number of rounds to print")
	if err := cmd.MarkFlagRequired(ownershipCmdFlag); err != nil {
		panic(err)
	}
	return cmd
}

func scheduleRunFun(out io.Writer, config *scheduleConfig) error {
	co, err := loadOwnership(config.OwnershipFile)
	if err != nil {
		return err
	}
	if !co.IsActive() {
		fmt.Fprintln(out, "chain is not active")
	}
	fmt.Fprintf(out, "%-24s %-12s %s\n", "ROUND", "TIMEOUT", "LEADER")
	round, ok := co.FirstRound(), true
	for i := uint32(0); i < config.Rounds && ok; i++ {
		fmt.Fprintf(out, "%-24s %-12s %s\n", round, timeoutText(co, round), leaderText(co, round))
		round, ok = co.NextRound(round)
	}
	return nil
}

func loadOwnership(fileName string) (*ownership.ChainOwnership, error) {
	conf, err := ownership.LoadConfig(fileName)
	if err != nil {
		return nil, err
	}
	return conf.Build()
}

func timeoutText(co *ownership.ChainOwnership, round types.Round) string {
	if d, ok := co.RoundTimeout(round); ok {
		return d.String()
	}
	return "none"
}

func leaderText(co *ownership.ChainOwnership, round types.Round) string {
	switch {
	case round.IsFast():
		return "super owners"
	case round.IsMultiLeader():
		if co.OpenMultiLeaderRounds() {
			return "anyone"
		}
		return "owners"
	case round.IsValidator():
		return "validators"
	}
	if l, ok := co.RoundLeader(round); ok {
		return l.String()
	}
	return "-"
}
