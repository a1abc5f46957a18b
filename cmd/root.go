package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configDefault embedded default config, written out when no config file exists
// configDefault 内置默认配置，找不到配置文件时写出
var configDefault string

var rootCmd = &cobra.Command{
	Use:   "memory-server",
	Short: "Memory Server, a personal note store served over REST and MCP",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpTemplate()
		cmd.Help()
	},
}

func Execute(c string) {
	configDefault = c
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
