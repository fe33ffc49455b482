package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/vision"
)

// Set with -ldflags "-X github.com/kozaktomas/attendance/cmd.Version=..."
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build features",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("attendance %s (%s, built %s)\n", Version, CommitSHA, BuildDate)
		fmt.Printf("  Go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  OpenCV: %s\n", featureState(vision.Available()))
	},
}

func featureState(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled (build with -tags opencv)"
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
