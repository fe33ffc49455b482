package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigure_Level(t *testing.T) {
	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{" error ", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			Configure(tt.level, "text", nil)
			if Log.GetLevel() != tt.expected {
				t.Errorf("level %q: got %v, want %v", tt.level, Log.GetLevel(), tt.expected)
			}
		})
	}
}

func TestConfigure_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Configure("info", "JSON", &buf)

	Log.WithField("subject", "math").Info("attendance: summary written")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["subject"] != "math" {
		t.Errorf("expected subject field, got %v", entry["subject"])
	}
}

func TestConfigure_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	Configure("info", "text", &buf)

	Log.Info("roster: loaded")

	if !strings.Contains(buf.String(), "roster: loaded") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}
