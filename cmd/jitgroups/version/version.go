// Package version provides the jitgroups CLI's version subcommand.
package version

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// NewCommand builds the `version` subcommand, reporting the module version
// and VCS revision embedded by the Go toolchain in the binary's build info.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jitgroups CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "jitgroups version: unknown (no build info)")
				return nil
			}

			var revision, modified string
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					revision = s.Value
				case "vcs.modified":
					modified = s.Value
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "jitgroups %s\n", info.Main.Version)
			if revision != "" {
				dirty := ""
				if modified == "true" {
					dirty = "-dirty"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revision: %s%s\n", revision, dirty)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "go: %s\n", info.GoVersion)
			return nil
		},
	}
}
