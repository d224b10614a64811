// Package commands wires configuration, the capability provider session, the
// reasoning engine and the agent into the agentloop command line.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vibe8n/agentloop/internal/config"
	"github.com/vibe8n/agentloop/pkg/log"
)

// Execute runs the root command.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(version)
	err := root.ExecuteContext(ctx)
	if err != nil {
		log.Error("Command failed: %v", err)
	}
	return err
}

func NewRootCmd(version string) *cobra.Command {
	var (
		configFile string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           "agentloop",
		Short:         "Tool-using agent loop over an MCP capability provider",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := os.Setenv("AGENT_CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			if logLevel != "" {
				if err := os.Setenv("LOG_LEVEL", logLevel); err != nil {
					return err
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML settings file (default: $AGENT_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: $LOG_LEVEL)")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewAskCmd())
	root.AddCommand(NewToolsCmd())

	// serving is the default action
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), "")
	}

	return root
}

// loadConfig reads the configuration and installs the global logger.
func loadConfig(opts ...config.Option) (*config.Config, error) {
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, err
	}
	log.InitLogger(log.ParseLevel(cfg.Log.Level))
	return cfg, nil
}
