// Command gemini-chat runs the Gemini chat server or a terminal chat.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "./configs/config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "gemini-chat",
		Short:        "Multi-turn chat with Google Gemini",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the YAML config file")

	serveCmd := newServeCmd(&configPath)
	cmd.RunE = serveCmd.RunE
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(newChatCmd(&configPath))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
