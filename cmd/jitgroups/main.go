package main

import (
	"os"

	"github.com/spf13/cobra"

	"go.miloapis.com/jitgroups/cmd/jitgroups/catalog"
	"go.miloapis.com/jitgroups/cmd/jitgroups/reconcile"
	"go.miloapis.com/jitgroups/cmd/jitgroups/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jitgroups",
		Short: "jitgroups is an operator CLI for the JIT group-membership broker",
	}

	rootCmd.AddCommand(version.NewCommand())
	rootCmd.AddCommand(catalog.NewCommand())
	rootCmd.AddCommand(reconcile.NewCommand(nil))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
