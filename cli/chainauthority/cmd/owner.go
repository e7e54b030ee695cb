package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/alphabill-org/chainauthority/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

const (
	pubKeyCmdFlag     = "pubkey"
	evmAddressCmdFlag = "evm-address"
	generateCmdFlag   = "generate"
)

type ownerConfig struct {
	Base       *baseConfiguration
	PubKey     string
	EVMAddress string
	Generate   bool
}

func newOwnerCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &ownerConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "owner",
		Short: "Derives the account owner identifier from a public key or an EVM address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ownerRunFun(cmd.OutOrStdout(), config)
		},
	}
	cmd.Flags().StringVarP(&config.PubKey, pubKeyCmdFlag, "p", "", "0x prefixed hex of the secp256k1 (compressed or uncompressed) or Ed25519 public key")
	cmd.Flags().StringVar(&config.EVMAddress, evmAddressCmdFlag, "", "0x prefixed hex of the EVM address")
	cmd.Flags().BoolVar(&config.Generate, generateCmdFlag, false, "generate a new secp256k1 key pair")
	cmd.MarkFlagsMutuallyExclusive(pubKeyCmdFlag, evmAddressCmdFlag, generateCmdFlag)
	return cmd
}

func ownerRunFun(out io.Writer, config *ownerConfig) error {
	switch {
	case config.Generate:
		key, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		fmt.Fprintf(out, "private key: %s\n", types.Bytes(crypto.FromECDSA(key)))
		fmt.Fprintf(out, "public key:  %s\n", types.Bytes(crypto.CompressPubkey(&key.PublicKey)))
		fmt.Fprintf(out, "owner:       %s\n", types.NewOwnerFromSecp256k1(&key.PublicKey))
	case config.PubKey != "":
		var pubKey types.Bytes
		if err := pubKey.UnmarshalText([]byte(config.PubKey)); err != nil {
			return fmt.Errorf("invalid public key: %w", err)
		}
		owner, err := types.NewOwnerFromPublicKey(pubKey)
		if err != nil {
			return fmt.Errorf("invalid public key: %w", err)
		}
		fmt.Fprintln(out, owner)
	case config.EVMAddress != "":
		if !common.IsHexAddress(config.EVMAddress) {
			return fmt.Errorf("invalid EVM address %q", config.EVMAddress)
		}
		fmt.Fprintln(out, types.NewOwnerFromEVMAddress(common.HexToAddress(config.EVMAddress)))
	default:
		return errors.New("one of the flags --pubkey, --evm-address or --generate must be set")
	}
	return nil
}
