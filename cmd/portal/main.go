package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "portal",
		Short:         "Municipal reporting portal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml, json or env)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(createUserCmd())
	rootCmd.AddCommand(importMunicipalitiesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
