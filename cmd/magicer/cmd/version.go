package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javi11/magicer/internal/version"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(versionString())
			return nil
		},
	})
}

func versionString() string {
	return fmt.Sprintf("%s (%s)", version.Version, version.GitCommit)
}
