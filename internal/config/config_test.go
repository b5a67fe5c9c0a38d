package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, APIModeGemini, cfg.APIMode)
	assert.Equal(t, 20, cfg.MaxHistory)
	assert.Equal(t, 4096, cfg.MaxMessageLength)
	assert.Equal(t, 0.7, cfg.Gemini.Temperature)
	assert.Equal(t, 2048, cfg.Gemini.MaxOutputTokens)
	assert.Equal(t, 0.8, cfg.Gemini.TopP)
	assert.Equal(t, 40, cfg.Gemini.TopK)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.NoError(t, cfg.Normalize())
}

func TestGenerateContentURL(t *testing.T) {
	g := Defaults().Gemini
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent", g.GenerateContentURL())

	g.Endpoint = "http://localhost:9999/gen"
	assert.Equal(t, "http://localhost:9999/gen", g.GenerateContentURL())
}

func TestBindFlags_OverrideDefaults(t *testing.T) {
	cfg := Defaults()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	BindFlags(fs, cfg)

	require.NoError(t, fs.Parse([]string{
		"-api-mode", "stub",
		"-max-history", "6",
		"-store", "sqlite",
		"-store-path", "chat.db",
		"-request-timeout", "5s",
	}))
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, APIModeStub, cfg.APIMode)
	assert.Equal(t, 6, cfg.MaxHistory)
	assert.Equal(t, StoreSQLite, cfg.Store.Kind)
	assert.Equal(t, "chat.db", cfg.Store.Path)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestNormalize(t *testing.T) {
	cfg := Defaults()
	cfg.APIMode = " OpenAI "
	cfg.MaxHistory = -1
	cfg.MaxMessageLength = 0
	cfg.RateLimit = -2
	cfg.RequestTimeout = 0
	cfg.Gemini.Model = ""
	cfg.APIKey = "  key  "

	require.NoError(t, cfg.Normalize())
	assert.Equal(t, APIModeOpenAI, cfg.APIMode)
	assert.Equal(t, 20, cfg.MaxHistory)
	assert.Equal(t, 4096, cfg.MaxMessageLength)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "key", cfg.APIKey)
}

func TestNormalize_Rejects(t *testing.T) {
	cfg := Defaults()
	cfg.APIMode = "claude"
	assert.Error(t, cfg.Normalize())

	cfg = Defaults()
	cfg.Store.Kind = "redis"
	assert.Error(t, cfg.Normalize())

	cfg = Defaults()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Normalize())

	cfg.Store.Kind = StoreMemory
	assert.NoError(t, cfg.Normalize())
}

func TestNormalize_OddHistoryRoundsUp(t *testing.T) {
	cfg := Defaults()
	cfg.MaxHistory = 7
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, 8, cfg.MaxHistory)
}

func TestBlockedKeywords(t *testing.T) {
	cfg := Defaults()
	assert.Contains(t, cfg.BlockedKeywords, "спам")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	BindFlags(fs, cfg)
	require.NoError(t, fs.Parse([]string{"-blocked-keywords", " Казино ; ;лотерея"}))
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, []string{"казино", "лотерея"}, cfg.BlockedKeywords)

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	BindFlags(fs, cfg)
	require.NoError(t, fs.Parse([]string{"-blocked-keywords", ""}))
	require.NoError(t, cfg.Normalize())
	assert.Empty(t, cfg.BlockedKeywords, "empty value disables the filter")
}
