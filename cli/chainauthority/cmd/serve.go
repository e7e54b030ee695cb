package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alphabill-org/chainauthority/internal/logger"
	"github.com/alphabill-org/chainauthority/rpc"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	addressCmdFlag     = "address"
	maxBodySizeCmdFlag = "max-body-size"

	defaultAddress     = "localhost:26866"
	defaultMaxBodySize = 1 << 20 // 1 MB
)

var log = logger.CreateForPackage()

type serveConfig struct {
	Base        *baseConfiguration
	Registry    registryFlags
	Address     string
	MaxBodySize int64
}

func newServeCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &serveConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "Serves the ownership registry over the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRunFun(cmd.Context(), config)
		},
	}
	config.Registry.addFlags(cmd)
	cmd.Flags().StringVar(&config.Address, addressCmdFlag, defaultAddress, "address the REST server listens on")
	cmd.Flags().Int64Var(&config.MaxBodySize, maxBodySizeCmdFlag, defaultMaxBodySize, "maximum size of the request body in bytes")
	return cmd
}

func serveRunFun(ctx context.Context, config *serveConfig) (rErr error) {
	reg, closeDB, err := config.Registry.openRegistry(config.Base)
	if err != nil {
		return err
	}
	defer func() { rErr = errors.Join(rErr, closeDB()) }()

	server := rpc.NewRESTServer(config.Address, config.MaxBodySize, rpc.RegistryEndpoints(reg), rpc.MetricsEndpoints())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("REST server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("REST server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		if err := server.Close(); err != nil {
			log.Warning("REST server close error: %v", err)
		}
		log.Info("REST server exited")
		return ctx.Err()
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
