package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/logging"
	"github.com/kozaktomas/attendance/internal/notify"
)

var log = logging.Log

var rootCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Classroom attendance with face recognition",
	Long: `Attendance registers students, collects their face samples, trains a
recognizer and marks the students it sees through the camera as present.
Sessions are stored as CSV files per subject and can be summarized into an
attendance percentage per student.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		level := cfg.Log.Level
		if cmd.Flags().Changed("log-level") {
			level = mustGetString(cmd, "log-level")
		}
		logging.Configure(level, cfg.Log.Format, os.Stderr)
	},
}

// Execute runs the CLI. A failure is reported as an advisory (spoken when
// speech is enabled) and exits with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportFailure(err)
		os.Exit(1)
	}
}

func reportFailure(err error) {
	log.Debugf("cli: %v", err)
	advisory := notify.FromError(err)

	notifiers := notify.Multi{notify.Log{Logger: log}}
	cfg := config.Load()
	if speaker, closeFn := newSpeaker(context.Background(), cfg); speaker != nil {
		defer closeFn()
		notifiers = append(notifiers, speaker)
	}
	if nerr := notifiers.Notify(context.Background(), advisory); nerr != nil {
		log.Warnf("cli: speaking advisory: %v", nerr)
	}
	if advisory.Text != err.Error() {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
