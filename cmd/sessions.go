package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [subject]",
	Short: "List attendance sessions",
	Long: `List the session files of a subject. Without a subject, list every
subject folder. With --history the session ledger is shown instead, which
requires DATABASE_URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().Bool("history", false, "Show the session ledger")
	sessionsCmd.Flags().Int("limit", constants.DefaultHistoryLimit, "Maximum number of ledger entries")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	subject := ""
	if len(args) == 1 {
		subject = args[0]
	}

	if mustGetBool(cmd, "history") {
		return printHistory(cmd, cfg, subject)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if subject == "" {
		subjects, err := attendance.ListSubjects(cfg.Storage.AttendanceDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "SUBJECT\tSESSIONS")
		for _, s := range subjects {
			sessions, _ := attendance.ListSessions(cfg.Storage.AttendanceDir, s)
			fmt.Fprintf(w, "%s\t%d\n", s, len(sessions))
		}
		return w.Flush()
	}

	sessions, err := attendance.ListSessions(cfg.Storage.AttendanceDir, subject)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "SESSION\tSIZE\tMODIFIED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, humanize.Bytes(uint64(s.Size)), humanize.Time(s.Modified))
	}
	return w.Flush()
}

func printHistory(cmd *cobra.Command, cfg *config.Config, subject string) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("the session ledger requires DATABASE_URL")
	}
	closeLedger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	ledger, err := database.GetSessionLedger()
	if err != nil {
		return err
	}
	records, err := ledger.ListSessions(cmd.Context(), subject, mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tSESSION\tSTUDENTS\tUNKNOWN\tSOURCE\tRECORDED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", r.Subject, r.FileName, r.Students, r.Unknown, r.Source, humanize.Time(r.RecordedAt))
	}
	return w.Flush()
}
