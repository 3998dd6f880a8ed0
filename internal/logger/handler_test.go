package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandler_NoColor(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &Options{Level: slog.LevelDebug, NoColor: true}))

	log.With("collection", "things").WithGroup("archive").Info("documents archived",
		"count", 2, slog.Group("cfg", "name", "archives"), "error", errors.New("none"))

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "INFO  documents archived")
	assert.Contains(t, out, " collection=things")
	assert.Contains(t, out, " archive.count=2")
	assert.Contains(t, out, " archive.cfg.name=archives")
	assert.Contains(t, out, " archive.error=none")
}

func TestPrettyHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &Options{Level: slog.LevelWarn, NoColor: true}))

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
