// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/luxfi/deft/vms/deftvm"
)

const (
	httpHostKey        = "http-host"
	httpPortKey        = "http-port"
	allowedOriginsKey  = "http-allowed-origins"
	allowedHostsKey    = "http-allowed-hosts"
	shutdownTimeoutKey = "http-shutdown-timeout"
	genesisFileKey     = "genesis-file"
	configFileKey      = "config-file"
	dbDirKey           = "db-dir"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "deftvm",
		Short:         "Deft constant product exchange",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCommand(),
		newVersionCommand(),
	)
	return root
}

func newRunCommand() *cobra.Command {
	cfg := nodeConfig{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the exchange and serve its API",
		Long: `Run the exchange and serve its API.

The genesis file deploys the factory, router, wrapped native token, tokens and
pairs on first start. Later starts against the same --db-dir restore them.

Example:
  $ deftvm run --genesis-file genesis.json --db-dir ./db --http-port 9650`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, err := newNode(cfg, log.NewLogger("deftvm"))
			if err != nil {
				return err
			}
			return n.run(ctx)
		},
	}
	addNodeFlags(cmd.Flags(), &cfg)
	return cmd
}

func addNodeFlags(fs *pflag.FlagSet, cfg *nodeConfig) {
	fs.StringVar(&cfg.HTTPHost, httpHostKey, "127.0.0.1", "Address of the HTTP server")
	fs.Uint16Var(&cfg.HTTPPort, httpPortKey, 9650, "Port of the HTTP server")
	fs.StringSliceVar(&cfg.AllowedOrigins, allowedOriginsKey, []string{"*"}, "Origins to allow on the HTTP port")
	fs.StringSliceVar(&cfg.AllowedHosts, allowedHostsKey, []string{"localhost"}, "Hostnames the HTTP server accepts requests for")
	fs.DurationVar(&cfg.ShutdownTimeout, shutdownTimeoutKey, 10*time.Second, "Maximum time to wait for in-flight requests on shutdown")
	fs.StringVar(&cfg.GenesisFile, genesisFileKey, "", "Path to the genesis JSON file")
	fs.StringVar(&cfg.ConfigFile, configFileKey, "", "Path to the VM config JSON file")
	fs.StringVar(&cfg.DBDir, dbDirKey, "", "Database directory; the ledger is kept in memory when empty")
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the VM version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vm, err := (&deftvm.Factory{}).New(log.NewNoOpLogger())
			if err != nil {
				return err
			}
			version, err := vm.Version(context.Background())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
