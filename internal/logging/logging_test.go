package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"info":     zerolog.InfoLevel,
		"  DEBUG ": zerolog.DebugLevel,
		"trace":    zerolog.TraceLevel,
		"warn":     zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"fatal":    zerolog.FatalLevel,
		"disabled": zerolog.Disabled,
		"bogus":    zerolog.InfoLevel,
	}
	for input, want := range cases {
		assert.Equal(t, want, parseLevel(input), "level %q", input)
	}
}

func TestInitSetsGlobalLevel(t *testing.T) {
	defer Init(Config{Level: "info"})

	Init(Config{Level: "warn", Format: "json"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestInitWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "arcana.log")
	defer func() {
		Shutdown()
		Init(Config{Level: "info"})
	}()

	Init(Config{Level: "info", Format: "json", FilePath: path})
	log.Info().Msg("file output probe")
	Shutdown()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file output probe")
}
