package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/server"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/paths"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func execute(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "shelld",
		Short:   "Desktop application tracking daemon",
		Version: Version,
		Long: `shelld tracks installed applications and the windows they own.

It serves an HTTP and WebSocket API for docks and panels, and accepts
window events from a compositor over the /wm socket.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newDescriptorsCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		port     string
		host     string
		logLevel string
		dev      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if dev {
				cfg.Logging.Development = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.NewServer(ctx, cfg, Version)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8077", "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host (overrides HOST)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (overrides LOG_LEVEL)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development logging")
	return cmd
}

func newDescriptorsCmd() *cobra.Command {
	var (
		dirs   []string
		all    bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "descriptors",
		Short: "Load app manifests and print the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(dirs) == 0 {
				dirs = paths.ManifestDirs()
			}

			logger := logging.Nop()
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				logger = logging.NewDevelopment()
			}
			defer logger.Close()

			catalog := registry.NewManager()
			_, failed, err := registry.NewSeeder(catalog, dirs, logger.Component("registry")).Seed(cmd.Context())
			if err != nil {
				return err
			}

			out, err := sonic.ConfigStd.MarshalIndent(catalog.ListMetadata(all), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if strict && failed > 0 {
				return fmt.Errorf("%d manifests failed to load", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "manifest directory (repeatable, default XDG app dirs)")
	cmd.Flags().BoolVar(&all, "all", false, "include hidden descriptors")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail if any manifest is broken")
	cmd.Flags().BoolP("verbose", "v", false, "log each manifest")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shelld %s\n", Version)
		},
	}
}
