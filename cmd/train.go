package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/notify"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/training"
	"github.com/kozaktomas/attendance/internal/vision"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the face recognition model",
	Long: `Train the recognizer from every training sample of a registered student
and write the model file. Sample folders that do not belong to a student on
the roster are skipped and reported.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	students, err := roster.Load(cfg.Storage.RosterPath)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	collection, err := training.Collect(store, students)
	if err != nil {
		return err
	}
	for _, dir := range collection.Unmapped {
		fmt.Printf("Skipping %s: not a registered student\n", dir)
	}

	backend, err := vision.New(cfg.Vision)
	if err != nil {
		return err
	}
	defer backend.Close()

	bar := progressbar.NewOptions(len(collection.Images),
		progressbar.OptionSetDescription("Loading samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	res, err := training.Train(ctx, backend, collection, cfg.Storage.ModelPath, func(done, total int) {
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	for _, path := range res.Skipped {
		fmt.Printf("Skipped unreadable image %s\n", path)
	}
	announce(ctx, cfg, notify.Info("Model trained with %d images of %d students", res.Images, res.Students))
	return nil
}
