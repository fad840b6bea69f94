// Package cmd holds the command-line entry points of the triage agent.
package cmd

import (
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/support-triage-agent/pkg/config"
	logx "github.com/tanpawarit/support-triage-agent/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:          "triage-agent",
	Short:        "Support ticket triage agent",
	Long:         `Classifies support tickets, resolves the order they refer to and drafts a customer reply.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)
		if envFile == "" {
			return nil
		}
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default: ./.env when present)")
}

func Execute() error {
	return rootCmd.Execute()
}
