package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/capture"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/notify"
	"github.com/kozaktomas/attendance/internal/vision"
)

var takeCmd = &cobra.Command{
	Use:   "take <subject>",
	Short: "Take attendance for a subject",
	Long: `Open the camera for one capture window and mark every recognized student
as present. The session is written to Attendance/<subject>/ and, when a
database is configured, recorded in the session ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: runTake,
}

func init() {
	rootCmd.AddCommand(takeCmd)

	takeCmd.Flags().Duration("duration", 0, "Length of the capture window (defaults to SESSION_DURATION)")
	takeCmd.Flags().Bool("preview", false, "Show the camera preview window (Esc stops early)")
}

func runTake(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	closeLedger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	backend, err := vision.New(cfg.Vision)
	if err != nil {
		return err
	}
	defer backend.Close()

	preview := cfg.Vision.Preview
	if cmd.Flags().Changed("preview") {
		preview = mustGetBool(cmd, "preview")
	}

	fmt.Printf("Taking attendance for %s, look at the camera...\n", args[0])
	session, err := capture.TakeAttendance(ctx, cfg, backend, capture.Request{
		Subject:  args[0],
		Duration: mustGetDuration(cmd, "duration"),
		Preview:  preview,
		OnMatch: func(e attendance.Entry, m vision.Match) {
			fmt.Printf("  %d %s\n", e.Enrollment, e.Name)
		},
	})
	if err != nil {
		return err
	}

	if err := database.RecordAttendance(ctx, session, database.SourceCLI); err != nil {
		log.Warnf("cli: recording session in ledger: %v", err)
	}

	fmt.Printf("%d students present, saved to %s\n", len(session.Entries), session.Path)
	announce(ctx, cfg, notify.Info("Attendance saved for %s.", session.Subject))
	return nil
}
