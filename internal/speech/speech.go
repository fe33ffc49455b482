// Package speech turns advisory text into audio.
package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	gocache "github.com/patrickmn/go-cache"
	"google.golang.org/api/option"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/logging"
)

var log = logging.Log

// SampleRate of the LINEAR16 audio returned by Synthesize.
const SampleRate = 16000

// Synthesizer returns WAV (LINEAR16) audio for a sentence.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Close() error
}

// Google synthesizes with Google Cloud Text-to-Speech.
type Google struct {
	client   *texttospeech.Client
	language string
	voice    string
}

// NewGoogle creates a client from the credentials file in cfg, or from the
// default application credentials when none is configured.
func NewGoogle(ctx context.Context, cfg config.SpeechConfig) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	language := cfg.LanguageCode
	if language == "" {
		language = "en-US"
	}
	return &Google{client: client, language: language, voice: cfg.VoiceName}, nil
}

func (g *Google) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			Name:         g.voice,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: SampleRate,
		},
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	log.Debugf("speech: synthesized %d bytes", len(resp.AudioContent))
	return resp.AudioContent, nil
}

func (g *Google) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Cache memoizes synthesized sentences; advisories repeat often.
type Cache struct {
	next  Synthesizer
	cache *gocache.Cache
}

// NewCache wraps next, keeping audio for ttl.
func NewCache(next Synthesizer, ttl time.Duration) *Cache {
	return &Cache{next: next, cache: gocache.New(ttl, 2*ttl)}
}

func (c *Cache) Synthesize(ctx context.Context, text string) ([]byte, error) {
	key := strings.TrimSpace(text)
	if audio, ok := c.cache.Get(key); ok {
		return audio.([]byte), nil
	}
	audio, err := c.next.Synthesize(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, audio)
	return audio, nil
}

// Len returns the number of cached sentences.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}

func (c *Cache) Close() error {
	c.cache.Flush()
	return c.next.Close()
}
