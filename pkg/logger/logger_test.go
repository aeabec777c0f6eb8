package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Service: "console-access", Output: &buf})

	log.Debug().Str("identifier", "ana").Msg("login")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "console-access", entry["service"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "ana", entry["identifier"])
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Output: &buf})

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestInit_Singleton(t *testing.T) {
	Reset()
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	assert.Panics(t, func() { Get() })

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	Init(Options{Output: &second})

	got := Get()
	got.Info().Msg("hello")
	assert.NotZero(t, first.Len())
	assert.Zero(t, second.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, parseLevel("TRACE"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
	assert.True(t, PrettyFor("development"))
	assert.False(t, PrettyFor("production"))
}
