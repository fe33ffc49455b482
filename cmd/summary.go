package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/notify"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <subject>",
	Short: "Summarize the attendance of a subject",
	Long: `Join every session file of a subject into one table with the attendance
percentage of each student and write it to Attendance/<subject>/attendance.csv.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().Bool("dry-run", false, "Print the summary without writing it")
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	dryRun := mustGetBool(cmd, "dry-run")

	var (
		sum *attendance.Summary
		err error
	)
	if dryRun {
		sum, err = attendance.Summarize(cfg.Storage.AttendanceDir, args[0])
	} else {
		sum, err = attendance.Aggregate(cfg.Storage.AttendanceDir, args[0])
	}
	if err != nil {
		return err
	}

	data, err := sum.CSV()
	if err != nil {
		return err
	}
	os.Stdout.Write(data)

	for _, name := range sum.Skipped {
		fmt.Fprintf(os.Stderr, "skipped unreadable session %s\n", name)
	}
	if dryRun {
		fmt.Println("\nDry run: summary not written.")
		return nil
	}
	announce(cmd.Context(), cfg, notify.Info("Attendance summary saved for %s.", sum.Subject))
	return nil
}
