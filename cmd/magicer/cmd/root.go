// Package cmd implements the magicer CLI: a cobra root command with
// "serve" (default), "version", and "genauth" subcommands, modeled on
// cmd/altmount/cmd's init()-registers-to-rootCmd convention.
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "magicer",
	Short: "HTTP service that identifies file content via libmagic",
	Long: `magicer accepts raw bytes or a sandboxed local path and returns the
MIME type and description that libmagic would report for them, behind a
single shared Basic-Auth credential.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a TOML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
