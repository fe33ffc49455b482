package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/postgres"
	"github.com/kozaktomas/attendance/internal/database/sqlite"
	"github.com/kozaktomas/attendance/internal/notify"
	"github.com/kozaktomas/attendance/internal/samples"
	"github.com/kozaktomas/attendance/internal/speech"
	"github.com/kozaktomas/attendance/internal/vision"
)

// openStore returns the training sample store. Uploaded samples are cropped
// to the detected face when a pigo cascade is configured.
func openStore(cfg *config.Config) (*samples.Store, error) {
	var finder *vision.FaceFinder
	if cfg.Vision.PigoCascadePath != "" {
		f, err := vision.NewFaceFinder(cfg.Vision.PigoCascadePath)
		if err != nil {
			return nil, fmt.Errorf("loading face finder: %w", err)
		}
		finder = f
	}
	return samples.NewStore(cfg.Storage.TrainingDir, finder), nil
}

// openLedger connects the session ledger selected by DATABASE_URL and
// registers it as the active backend. Without a URL it returns a no-op closer.
func openLedger(cfg *config.Config) (func(), error) {
	switch cfg.Database.Driver() {
	case "":
		return func() {}, nil
	case "postgres":
		if err := postgres.Initialize(&cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		log.Debug("cli: using PostgreSQL ledger")
		return func() {
			database.Reset()
			if pool := postgres.GetGlobalPool(); pool != nil {
				pool.Close()
			}
		}, nil
	default:
		db, err := sqlite.Initialize(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Debugf("cli: using SQLite ledger %s", cfg.Database.DSN())
		return func() {
			database.Reset()
			db.Close()
		}, nil
	}
}

// newSynthesizer returns a cached Google synthesizer, or nil when speech is disabled.
func newSynthesizer(ctx context.Context, cfg *config.Config) speech.Synthesizer {
	if !cfg.Speech.Enabled {
		return nil
	}
	g, err := speech.NewGoogle(ctx, cfg.Speech)
	if err != nil {
		log.Warnf("cli: speech disabled: %v", err)
		return nil
	}
	return speech.NewCache(g, constants.SpeechCacheTTL*time.Minute)
}

// newSpeaker returns a notifier that speaks advisories through the configured
// player, or nil when speech or the player is not configured.
func newSpeaker(ctx context.Context, cfg *config.Config) (notify.Notifier, func()) {
	if cfg.Speech.PlayerCommand == "" {
		return nil, nil
	}
	synth := newSynthesizer(ctx, cfg)
	if synth == nil {
		return nil, nil
	}
	return notify.Speaker{Synth: synth, Player: cfg.Speech.PlayerCommand}, func() { synth.Close() }
}

// announce prints an advisory and speaks it when possible.
func announce(ctx context.Context, cfg *config.Config, a notify.Advisory) {
	fmt.Println(a.Text)
	if speaker, closeFn := newSpeaker(ctx, cfg); speaker != nil {
		defer closeFn()
		if err := speaker.Notify(ctx, a); err != nil {
			log.Warnf("cli: speaking advisory: %v", err)
		}
	}
}
