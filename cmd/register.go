package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/roster"
)

var registerCmd = &cobra.Command{
	Use:   "register <enrollment> <name>",
	Short: "Register a student",
	Long: `Append a student to the roster and create their training sample folder.
The enrollment must be a positive number that is not registered yet. Names
with spaces must be quoted.`,
	Args: cobra.ExactArgs(2),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := roster.NewStudent(args[0], args[1])
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	dir, err := store.Enroll(cfg.Storage.RosterPath, st)
	if err != nil {
		return err
	}

	fmt.Printf("Registered %d %s\n", st.Enrollment, st.Name)
	fmt.Printf("Add face samples to %s or run: attendance samples add %d <folder>\n", dir, st.Enrollment)
	return nil
}
