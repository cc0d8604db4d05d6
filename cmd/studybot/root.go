package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/studybot/core/buildinfo"
)

const defaultConfigPath = "config.yaml"

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "studybot",
		Short:         "Telegram bot serving course documents through nested menus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or "+defaultConfigPath+")")

	cmd.AddCommand(
		serveCmd(&configPath),
		catalogCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
			},
		},
	)
	return cmd
}
