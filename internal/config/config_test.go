package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("s", 32)

func setRequired(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", secret)
	t.Setenv("TRACKING_SECRET", secret+"t")
	t.Setenv("DATABASE_URL", "postgres://localhost/toitureai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SENDGRID_API_KEY", "SG.test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 70, cfg.HotLeadThreshold)
	assert.Equal(t, 3, cfg.HotOpenThreshold)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, "https://toitureai.fr", cfg.WebsiteURL)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "apikey", cfg.SMTP.User)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.Equal(t, 0.40, cfg.Tunables.Pricing.MainOeuvreRatio)
}

func TestLoadMissingSecretsFailsWithEveryProblem(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "short")
	t.Setenv("TRACKING_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SENDGRID_API_KEY", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)

	msg := err.Error()
	for _, key := range []string{"WEBHOOK_SECRET", "TRACKING_SECRET", "DATABASE_URL", "OPENAI_API_KEY", "SENDGRID_API_KEY"} {
		assert.Contains(t, msg, key)
	}
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	setRequired(t)
	t.Setenv("HOT_LEAD_THRESHOLD", "150")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOT_LEAD_THRESHOLD")
}

func TestLoadRejectsNonNumericThreshold(t *testing.T) {
	setRequired(t)
	t.Setenv("HOT_OPEN_THRESHOLD", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOT_OPEN_THRESHOLD must be an integer")
}

func TestLoadAppliesYAMLOverlay(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")

	path := filepath.Join(t.TempDir(), "toitureai.yaml")
	overlay := `
cors_origins:
  - https://example.fr
duplicate_window_minutes: 5
company:
  name: Couverture Test
`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.fr"}, cfg.AllowedOrigins())
	assert.Equal(t, 5, cfg.Tunables.DuplicateWindowMinutes)
	assert.Equal(t, "Couverture Test", cfg.Tunables.Company.Name)
	// untouched keys keep their defaults
	assert.Equal(t, 100.0, cfg.Tunables.Pricing.DefaultSurface)
}

func TestValidateRejectsBadPricing(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Tunables.Pricing.EvacuationRatio = 0.5
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricing ratios")
}
