package main

import (
	"fmt"
	"os"

	"gihan9a/semilattice/internal/config"

	"github.com/spf13/cobra"
)

// generateConfigCmd represents the generate-config command
var generateConfigCmd = &cobra.Command{
	Use:   "generate-config [path]",
	Short: "Write a default configuration file",
	Long: `Write a default YAML configuration file with a freshly generated node id.
The file is written to the given path, or to config.yml.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "config.yml"
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil {
			fatal("Refusing to overwrite configuration", fmt.Errorf("%s already exists", path))
		}
		if err := config.SaveDefaultConfig(path); err != nil {
			fatal("Failed to write configuration", err)
		}

		fmt.Println("Default configuration written to", path)
	},
}

func init() {
	rootCmd.AddCommand(generateConfigCmd)
}
