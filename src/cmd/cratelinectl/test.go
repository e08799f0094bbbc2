package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crateline/crateline/src/internal/config"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify cratelinectl configuration",
	Long:  "Check the cratelinectl configuration file for completeness and consistency",
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.Test(cfgPath); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
