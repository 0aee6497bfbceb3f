package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]zerolog.Level{
		"DEBUG":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"":         zerolog.WarnLevel,
		"ERROR":    zerolog.ErrorLevel,
		"DISABLED": zerolog.Disabled,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("LOUD")
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	initLogger(&buf, "builder-test", "INFO")
	log.Debug().Msg("hidden")
	log.Info().Msg("visible")

	out := buf.String()
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "INFO")
	assert.NotContains(t, out, "hidden")
}
