// Package cmd implements the CLI commands for dluxgate using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dlux-io/dluxgate/config"
	"github.com/dlux-io/dluxgate/core"
	"github.com/dlux-io/dluxgate/core/fetch"
	"github.com/dlux-io/dluxgate/core/gateway"
	"github.com/dlux-io/dluxgate/core/sanitize"
	"github.com/dlux-io/dluxgate/logging"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	v = viper.New()

	rootCmd = &cobra.Command{
		Use:   "dluxgate",
		Short: "dluxgate — previews, service workers and manifests for Hive posts",
		Long: `dluxgate serves social-preview HTML, service worker scripts and web app
manifests for Hive posts, and proxies dApp bundles stored on IPFS.

Usage:
  dluxgate serve [flags]
  dluxgate render @author/permlink --html|--sw|--manifest [flags]`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().String("hapi", "", "Hive API endpoint")
	rootCmd.PersistentFlags().String("ipfs", "", "IPFS gateway base URL")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	cobra.CheckErr(v.BindPFlag("hapi", rootCmd.PersistentFlags().Lookup("hapi")))
	cobra.CheckErr(v.BindPFlag("ipfs", rootCmd.PersistentFlags().Lookup("ipfs")))
	cobra.CheckErr(v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dluxgate version %s\n", Version)
		},
	})
}

// setup loads configuration and builds the logger and the pipeline.
func setup() (*config.Config, *zap.Logger, *gateway.Service, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, nil, err
	}

	var storage core.StorageFetcher
	switch cfg.IPFSBackend {
	case config.BackendShell:
		storage = fetch.NewShellFetcher(cfg.IPFSAPI, cfg.Timeout, cfg.MaxBundleBytes)
	default:
		storage = fetch.NewGatewayFetcher(cfg.IPFS, cfg.Timeout, cfg.MaxBundleBytes)
	}

	svc := gateway.New(
		fetch.NewRPCFetcher(cfg.HAPI, cfg.Timeout),
		storage,
		sanitize.New(),
		gateway.Options{
			ImagePath:    cfg.Img,
			WalletScript: cfg.WalletScript,
			Logger:       logger.Named("gateway"),
		},
	)
	return cfg, logger, svc, nil
}
