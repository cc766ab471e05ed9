// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/interview-coach/internal/cloud"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "GOOGLE_API_KEY", "COACH_ADDR", "COACH_PROVIDER",
		"COACH_LOG_LEVEL", "COACH_RATE_LIMIT", "COACH_RATE_WINDOW_MS", "COACH_IDENTIFIER",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, cloud.ProviderOpenAI, cfg.Provider.Name)
	assert.Equal(t, cloud.DefaultModels[cloud.ProviderOpenAI], cfg.Provider.Models)
	assert.Equal(t, 2000, cfg.Validation.MaxLength)
	assert.Equal(t, 50, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, IdentifierIP, cfg.RateLimit.Identifier)
	assert.Equal(t, 60*time.Second, cfg.ProviderTimeout())
	assert.NoError(t, cfg.Validate())
}

func TestSetDefaults_ModelsFollowProvider(t *testing.T) {
	cfg := &Config{Provider: ProviderConfig{Name: "Google"}}
	cfg.SetDefaults()

	assert.Equal(t, cloud.ProviderGoogle, cfg.Provider.Name)
	assert.Equal(t, cloud.DefaultModels[cloud.ProviderGoogle], cfg.Provider.Models)
	assert.Equal(t, 4000, cfg.Provider.MaxTokensLimit)
	assert.NoError(t, cfg.Validate())
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{RateLimit: RateLimitConfig{Limit: 5, WindowMs: 1000}}
	cfg.SetDefaults()

	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.Equal(t, time.Second, cfg.RateLimit.Window())
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_PartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[provider]
name = "google"
google_key = "g-key"

[rate_limit]
limit = 10
identifier = "session"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cloud.ProviderGoogle, cfg.Provider.Name)
	assert.Equal(t, "g-key", cfg.APIKey())
	assert.Equal(t, cloud.DefaultModels[cloud.ProviderGoogle], cfg.Provider.Models)
	assert.Equal(t, 10, cfg.RateLimit.Limit)
	assert.Equal(t, IdentifierSession, cfg.RateLimit.Identifier)
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestLoad_UnknownKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server]\nport = 3000\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[rate_limit]\nidentifier = \"cookie\"\n")

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "rate_limit.identifier", verrs[0].Field)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Provider.OpenAIKey = "sk-test"
	cfg.Moderation.ExtraPatterns = []string{`\bbadword\b`}
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# interview-coach configuration file"))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = "no-port"
	cfg.Server.TrustedProxies = []string{"not-a-cidr"}
	cfg.Provider.Name = "anthropic"
	cfg.Moderation.ExtraPatterns = []string{"("}
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{
		"server.addr",
		"server.trusted_proxies",
		"provider.name",
		"moderation.extra_patterns",
		"logging.format",
	}, fields)
}

func TestValidate_GlobalBurst(t *testing.T) {
	cfg := Default()
	cfg.Server.GlobalRPS = 10
	assert.Error(t, cfg.Validate())

	cfg.Server.GlobalBurst = 20
	assert.NoError(t, cfg.Validate())
}

func TestValidateErrors_Empty(t *testing.T) {
	assert.Equal(t, "no validation errors", ValidateErrors(nil).Error())
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("COACH_ADDR", "127.0.0.1:8080")
	t.Setenv("COACH_RATE_LIMIT", "7")
	t.Setenv("COACH_RATE_WINDOW_MS", "not-a-number")
	t.Setenv("COACH_IDENTIFIER", "RANDOM")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "sk-env", cfg.APIKey())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.RateLimit.Limit)
	assert.Equal(t, 60000, cfg.RateLimit.WindowMs)
	assert.Equal(t, IdentifierRandom, cfg.RateLimit.Identifier)
}

func TestApplyEnvOverrides_ProviderSwitchResetsModels(t *testing.T) {
	clearEnv(t)
	t.Setenv("COACH_PROVIDER", "google")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()

	assert.Equal(t, cloud.DefaultModels[cloud.ProviderGoogle], cfg.Provider.Models)
}

// =============================================================================
// HELPERS
// =============================================================================

func TestString_RedactsKeys(t *testing.T) {
	cfg := Default()
	cfg.Provider.OpenAIKey = "sk-secret"
	cfg.Provider.GoogleKey = "g-secret"

	s := cfg.String()
	assert.NotContains(t, s, "sk-secret")
	assert.NotContains(t, s, "g-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-secret", cfg.Provider.OpenAIKey)
}

func TestClone_IsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Provider.Models[0] = "changed"
	clone.Server.CORSOrigins = append(clone.Server.CORSOrigins, "http://x")

	assert.NotEqual(t, "changed", cfg.Provider.Models[0])
	assert.Len(t, cfg.Server.CORSOrigins, 2)
}

func TestGlobal(t *testing.T) {
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	assert.Equal(t, Default(), Global())

	cfg := Default()
	cfg.Server.Addr = ":9999"
	SetGlobal(cfg)
	assert.Equal(t, ":9999", Global().Server.Addr)
}
