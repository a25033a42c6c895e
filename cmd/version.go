package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version info is owned by the main package; it injects an accessor here
// so the build flags stay in one place.
var getVersionInfo func() (version, commit, date string, dirty bool)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long: `Print the version information including:
- Version number (from git tags)
- Git commit hash
- Build date and time
- Repository status (clean/dirty)`,
	Run: func(cmd *cobra.Command, args []string) {
		if getVersionInfo != nil {
			version, commit, date, isDirty := getVersionInfo()
			status := "clean"
			if isDirty {
				status = "dirty"
			}
			fmt.Printf("crittrail version %s (commit: %s, built: %s, %s)\n", version, commit, date, status)
		} else {
			fmt.Println("crittrail version dev (commit: unknown, built: unknown, unknown)")
		}
	},
}

// SetVersionInfo sets the version information function
func SetVersionInfo(fn func() (string, string, string, bool)) {
	getVersionInfo = fn
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
