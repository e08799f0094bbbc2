package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var preamble = `cratelinectl ` + Version + `
A local-first music library engine for DJs and archivists.

cratelinectl comes with ABSOLUTELY NO WARRANTY. This is free software.`

var cfgPath string
var dbPath string

var rootCmd = &cobra.Command{
	Use:     "cratelinectl",
	Short:   "crateline library engine control plane",
	Long:    preamble,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.json (default /etc/crateline/config.json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the configured database_path")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
