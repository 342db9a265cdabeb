package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pscheid92/chatledger/internal/adapter/backend"
	"github.com/pscheid92/chatledger/internal/platform/config"
	"github.com/pscheid92/chatledger/internal/platform/logging"
	"github.com/pscheid92/chatledger/internal/platform/version"
)

type storeOpener func(ctx context.Context) (*backend.Stores, *config.Config, error)

func openStores(ctx context.Context) (*backend.Stores, *config.Config, error) {
	cfg, err := config.LoadStore()
	if err != nil {
		return nil, nil, err
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	stores, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	return stores, cfg, nil
}

func newRootCmd(open storeOpener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Maintenance commands for the interaction ledger",
		Long:          "ledgerctl imports legacy ledger exports and repairs stored records. It reads the same environment as the server.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newImportCmd(open),
		newRepairCmd(open),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return err
		},
	}
}
