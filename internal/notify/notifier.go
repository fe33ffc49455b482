package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/attendance/internal/speech"
)

// Notifier delivers advisories.
type Notifier interface {
	Notify(ctx context.Context, a Advisory) error
}

// Log writes advisories to a logrus logger.
type Log struct {
	Logger *logrus.Logger
}

func (l Log) Notify(_ context.Context, a Advisory) error {
	entry := l.Logger.WithField("advisory", true)
	if a.Level == LevelError {
		entry.Warn(a.Text)
	} else {
		entry.Info(a.Text)
	}
	return nil
}

// Speaker synthesizes the advisory and pipes the audio into a player command
// such as "aplay -q".
type Speaker struct {
	Synth  speech.Synthesizer
	Player string
}

func (s Speaker) Notify(ctx context.Context, a Advisory) error {
	audio, err := s.Synth.Synthesize(ctx, a.Text)
	if err != nil {
		return err
	}
	args := strings.Fields(s.Player)
	if len(args) == 0 {
		return errors.New("no audio player configured")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playing advisory: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Advisory) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
