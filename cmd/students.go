package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/roster"
)

var studentsCmd = &cobra.Command{
	Use:   "students [query]",
	Short: "List registered students",
	Long: `List the roster with the number of training samples per student.
An optional query matches an enrollment number or part of a name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
}

func runStudents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	students, err := roster.Load(cfg.Storage.RosterPath)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		students = roster.Find(students, args[0])
	}
	if len(students) == 0 {
		fmt.Println("No students found.")
		return nil
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENROLLMENT\tNAME\tSAMPLES")
	for _, st := range students {
		n, err := store.Count(st)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%d\n", st.Enrollment, st.Name, n)
	}
	return w.Flush()
}
