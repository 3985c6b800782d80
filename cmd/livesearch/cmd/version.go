package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

// displayVersion returns Version in canonical vMAJOR.MINOR.PATCH form when it
// is a semantic version, and unchanged otherwise.
func displayVersion(v string) string {
	if !semver.IsValid(v) && semver.IsValid("v"+v) {
		v = "v" + v
	}
	if semver.IsValid(v) {
		c := semver.Canonical(v)
		if b := semver.Build(v); b != "" {
			c += b
		}
		return c
	}
	return v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "livesearch %s (commit %s, %s %s/%s)\n",
			displayVersion(Version), Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
