package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
properties:
  solvr: "523300499"
  blog: "291040306"
ga4:
  timeout_seconds: 45
  max_retries: -1
report:
  default_days: 14
  activity_mode: daily_mean
insights:
  min_page_views: 25
email:
  recipients: ["ops@example.com"]
  from: reports@example.com
storage:
  type: local
  local_path: ./test-data
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "523300499", cfg.Properties["solvr"])
	assert.Equal(t, 45, cfg.GA4.TimeoutSeconds)
	assert.Equal(t, -1, cfg.GA4.MaxRetries)
	assert.Equal(t, 14, cfg.Report.DefaultDays)
	assert.Equal(t, ActivityDailyMean, cfg.Report.ActivityMode)
	assert.Equal(t, 25.0, cfg.Insights.MinPageViews)
	assert.True(t, cfg.Email.Enabled())
	assert.Equal(t, "./test-data", cfg.Storage.LocalPath)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://analyticsdata.googleapis.com", cfg.GA4.BaseURL)
	assert.Equal(t, 2, cfg.GA4.MaxRetries)
	assert.Equal(t, 30, cfg.Report.DefaultDays)
	assert.Equal(t, "text", cfg.Report.Output)
	assert.Equal(t, 7, cfg.Report.GrowthWindowDays)
	assert.Equal(t, ActivityCalendarDay, cfg.Report.ActivityMode)
	assert.Equal(t, 30, cfg.Report.MonthDays)
	assert.Equal(t, 0.70, cfg.Insights.ChannelConcentration)
	assert.Equal(t, 0.90, cfg.Insights.HighBounceRate)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "token.json", filepath.Base(cfg.GA4.TokenPath))
	assert.False(t, cfg.Email.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"activity mode": "report:\n  activity_mode: rolling_24h\n",
		"output":        "report:\n  output: xml\n",
		"storage":       "storage:\n  type: s3\n",
		"postgres url":  "storage:\n  type: postgres\n",
		"property id":   "properties:\n  blog: abc\n",
		"yaml":          "properties: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("GA4_PROPERTIES", "shop=111, blog=222")
	t.Setenv("GA4_REPORT_RECIPIENTS", "a@example.com, b@example.com")
	t.Setenv("EMAIL_FROM", "reports@example.com")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9191")

	cfg, err := LoadFromEnv(writeConfig(t, "properties:\n  blog: \"1\"\n"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"shop": "111", "blog": "222"}, cfg.Properties)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.Recipients)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadFromEnv_MissingFile(t *testing.T) {
	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Report.DefaultDays)
}

func TestLoadFromEnv_BadPropertyList(t *testing.T) {
	t.Setenv("GA4_PROPERTIES", "shop")
	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv_OverrideCompletesConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ga:ga@localhost/ga?sslmode=disable")

	path := writeConfig(t, "storage:\n  type: postgres\n")
	_, err := Load(path)
	require.Error(t, err)

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://ga:ga@localhost/ga?sslmode=disable", cfg.Storage.DatabaseURL)
}

func TestLoadFromEnv_StillValidatesAfterOverrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "postgres")
	_, err := LoadFromEnv(writeConfig(t, "log_level: info\n"))
	assert.ErrorContains(t, err, "database_url")
}

func TestValidate_CaseCollision(t *testing.T) {
	cfg := Default()
	cfg.Properties = map[string]string{"Shop": "1", "shop": "2"}
	assert.ErrorContains(t, cfg.Validate(), "differ only by case")
}

func TestResolveProperty_ExactNameFirst(t *testing.T) {
	cfg := Default()
	cfg.Properties = map[string]string{"Shop": "1", "shop": "2"}
	for i := 0; i < 20; i++ {
		p, err := cfg.ResolveProperty("shop")
		require.NoError(t, err)
		assert.Equal(t, "2", p.ID)

		p, err = cfg.ResolveProperty("SHOP")
		require.NoError(t, err)
		assert.Equal(t, "1", p.ID)
	}
}

func TestResolveProperty(t *testing.T) {
	cfg := Default()
	cfg.Properties = map[string]string{"Solvr": "523300499"}

	p, err := cfg.ResolveProperty("solvr")
	require.NoError(t, err)
	assert.Equal(t, domain.Property{Name: "Solvr", ID: "523300499"}, p)

	p, err = cfg.ResolveProperty("523300499")
	require.NoError(t, err)
	assert.Equal(t, "Solvr", p.Name)

	p, err = cfg.ResolveProperty("999")
	require.NoError(t, err)
	assert.Equal(t, domain.Property{Name: "999", ID: "999"}, p)

	_, err = cfg.ResolveProperty("nope")
	assert.ErrorIs(t, err, domain.ErrInvalidProperty)

	_, err = cfg.ResolveProperty("  ")
	assert.ErrorIs(t, err, domain.ErrInvalidProperty)
}

func TestPropertyList_Sorted(t *testing.T) {
	cfg := Default()
	cfg.Properties = map[string]string{"zeta": "3", "alpha": "1", "mid": "2"}

	list := cfg.PropertyList()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[2].Name)
}

func TestStorageConfig_GetAWSProfile(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")
	c := StorageConfig{AWSProfile: "reports"}

	t.Setenv("AWS_PROFILE_OVERRIDE", "")
	assert.Equal(t, "reports", c.GetAWSProfile())

	t.Setenv("AWS_PROFILE_OVERRIDE", "iam")
	assert.Equal(t, "", c.GetAWSProfile())
}
