package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/roster"
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Manage training samples",
}

var samplesAddCmd = &cobra.Command{
	Use:   "add <enrollment> <folder>...",
	Short: "Add face samples of a student from image folders",
	Long: `Import every image of the given folders as training samples of a
registered student. Files that are not images are skipped and reported.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSamplesAdd,
}

func init() {
	rootCmd.AddCommand(samplesCmd)
	samplesCmd.AddCommand(samplesAddCmd)
}

func runSamplesAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	id, err := roster.ParseEnrollment(args[0])
	if err != nil {
		return err
	}
	students, err := roster.Load(cfg.Storage.RosterPath)
	if err != nil {
		return err
	}
	st, ok := roster.Index(students)[id]
	if !ok {
		return fmt.Errorf("student %d is not registered", id)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	var added, skipped int
	for _, dir := range args[1:] {
		res, err := store.ImportDir(st, dir)
		added += len(res.Added)
		skipped += len(res.Skipped)
		for _, path := range res.Skipped {
			fmt.Printf("  skipped %s (not an image)\n", path)
		}
		if err != nil {
			return err
		}
	}

	total, err := store.Count(st)
	if err != nil {
		return err
	}
	fmt.Printf("Added %d samples for %d %s (%d skipped, %d total)\n", added, st.Enrollment, st.Name, skipped, total)
	return nil
}
