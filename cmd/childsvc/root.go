package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"childsvc/config"
	"childsvc/security"
	"childsvc/server"
)

// 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "childsvc",
		Short:         "Child entity REST service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: ./childsvc.yaml, $"+config.EnvConfigFile+")")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT/SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := server.NewServer(server.WithConfigPath(opts.ConfigPath))
			engine := server.NewEngine(srv, server.WithVersion(version))
			return engine.Start(cmd.Context())
		},
	}
}

func newTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for the protected API paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			auth := cfg.Auth
			if ttl > 0 {
				auth.TokenTTL = ttl
			}
			token, err := security.NewGate(auth).Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: auth.token_ttl)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
