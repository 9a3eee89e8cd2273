package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lexintake/lexintake/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize lexintake configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the intake service and writes a lexintake.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
