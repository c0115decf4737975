package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

// Activity window modes for DAU.
const (
	ActivityCalendarDay = "calendar_day"
	ActivityDailyMean   = "daily_mean"
)

// Config holds all configuration for the application. It is loaded once at
// startup and passed down explicitly; nothing mutates it afterwards.
type Config struct {
	LogLevel   string            `yaml:"log_level"`
	Properties map[string]string `yaml:"properties"`
	GA4        GA4Config         `yaml:"ga4"`
	Report     ReportConfig      `yaml:"report"`
	Insights   InsightsConfig    `yaml:"insights"`
	Email      EmailConfig       `yaml:"email"`
	Storage    StorageConfig     `yaml:"storage"`
	Redis      RedisConfig       `yaml:"redis"`
	Server     ServerConfig      `yaml:"server"`
}

// GA4Config holds the Data API client and OAuth file settings.
type GA4Config struct {
	BaseURL         string  `yaml:"base_url"`
	TokenURL        string  `yaml:"token_url"`
	CredentialsPath string  `yaml:"credentials_path"`
	TokenPath       string  `yaml:"token_path"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	MaxRetries      int     `yaml:"max_retries"` // negative disables retries
	RetryBaseMillis int     `yaml:"retry_base_millis"`
	QPS             float64 `yaml:"qps"`
}

// Timeout returns the per-request timeout.
func (c GA4Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the first backoff step.
func (c GA4Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseMillis) * time.Millisecond
}

// ReportConfig controls the report window and user-activity counting.
type ReportConfig struct {
	DefaultDays      int    `yaml:"default_days"`
	Output           string `yaml:"output"`
	GrowthWindowDays int    `yaml:"growth_window_days"`
	ActivityMode     string `yaml:"activity_mode"`
	MonthDays        int    `yaml:"month_days"`
	TopN             int    `yaml:"top_n"`
	WeeklyDays       int    `yaml:"weekly_days"`
}

// InsightsConfig holds recommendation thresholds.
type InsightsConfig struct {
	ChannelConcentration float64 `yaml:"channel_concentration"`
	HighBounceRate       float64 `yaml:"high_bounce_rate"`
	MinPageViews         float64 `yaml:"min_page_views"`
	MinCountrySessions   float64 `yaml:"min_country_sessions"`
}

// EmailConfig holds report delivery settings.
type EmailConfig struct {
	Recipients      []string `yaml:"recipients"`
	From            string   `yaml:"from"`
	SubjectTemplate string   `yaml:"subject_template"`
	Region          string   `yaml:"region"`
	AccessKey       string   `yaml:"access_key"`
	SecretKey       string   `yaml:"secret_key"`
}

// Enabled reports whether there is anyone to send to.
func (c EmailConfig) Enabled() bool {
	return len(c.Recipients) > 0 && c.From != ""
}

// StorageConfig holds snapshot storage configuration
type StorageConfig struct {
	Type          string `yaml:"type"` // local, aws, postgres, none
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Prefix      string `yaml:"s3_prefix"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain
	DatabaseURL   string `yaml:"database_url"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda use the task role.
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// RedisConfig enables the response cache and the run lock.
type RedisConfig struct {
	URL             string `yaml:"url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
}

func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// load parses path and applies defaults without validating, so env
// overrides can still complete the configuration.
func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file in the working directory is loaded first when present, and
// a missing YAML file is not an error.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("GA4_PROPERTIES"); v != "" {
		props, err := parsePropertyList(v)
		if err != nil {
			return nil, err
		}
		if cfg.Properties == nil {
			cfg.Properties = map[string]string{}
		}
		for name, id := range props {
			cfg.Properties[name] = id
		}
	}
	if v := os.Getenv("GA4_TOKEN_PATH"); v != "" {
		cfg.GA4.TokenPath = v
	}
	if v := os.Getenv("GA4_CREDENTIALS_PATH"); v != "" {
		cfg.GA4.CredentialsPath = v
	}
	if v := os.Getenv("GA4_BASE_URL"); v != "" {
		cfg.GA4.BaseURL = v
	}
	if v := os.Getenv("GA4_REPORT_RECIPIENTS"); v != "" {
		cfg.Email.Recipients = splitList(v)
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Email.Region = v
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Properties == nil {
		cfg.Properties = map[string]string{}
	}

	home, _ := os.UserHomeDir()
	configDir := filepath.Join(home, ".config", "ga-deep-dive")
	if cfg.GA4.BaseURL == "" {
		cfg.GA4.BaseURL = "https://analyticsdata.googleapis.com"
	}
	if cfg.GA4.CredentialsPath == "" {
		cfg.GA4.CredentialsPath = filepath.Join(configDir, "credentials.json")
	}
	if cfg.GA4.TokenPath == "" {
		cfg.GA4.TokenPath = filepath.Join(configDir, "token.json")
	}
	if cfg.GA4.TimeoutSeconds == 0 {
		cfg.GA4.TimeoutSeconds = 30
	}
	if cfg.GA4.MaxRetries == 0 {
		cfg.GA4.MaxRetries = 2
	}
	if cfg.GA4.RetryBaseMillis == 0 {
		cfg.GA4.RetryBaseMillis = 1000
	}
	if cfg.GA4.QPS == 0 {
		cfg.GA4.QPS = 5
	}

	if cfg.Report.DefaultDays == 0 {
		cfg.Report.DefaultDays = 30
	}
	if cfg.Report.Output == "" {
		cfg.Report.Output = "text"
	}
	if cfg.Report.GrowthWindowDays == 0 {
		cfg.Report.GrowthWindowDays = 7
	}
	if cfg.Report.ActivityMode == "" {
		cfg.Report.ActivityMode = ActivityCalendarDay
	}
	if cfg.Report.MonthDays == 0 {
		cfg.Report.MonthDays = 30
	}
	if cfg.Report.TopN == 0 {
		cfg.Report.TopN = 10
	}
	if cfg.Report.WeeklyDays == 0 {
		cfg.Report.WeeklyDays = 7
	}

	if cfg.Insights.ChannelConcentration == 0 {
		cfg.Insights.ChannelConcentration = 0.70
	}
	if cfg.Insights.HighBounceRate == 0 {
		cfg.Insights.HighBounceRate = 0.90
	}
	if cfg.Insights.MinPageViews == 0 {
		cfg.Insights.MinPageViews = 10
	}
	if cfg.Insights.MinCountrySessions == 0 {
		cfg.Insights.MinCountrySessions = 20
	}

	if cfg.Email.SubjectTemplate == "" {
		cfg.Email.SubjectTemplate = "GA4 {{ property }} report {{ end_date }}"
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = "us-west-2"
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = filepath.Join("data", "snapshots")
	}
	if cfg.Storage.S3Prefix == "" {
		cfg.Storage.S3Prefix = "snapshots"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = cfg.Email.Region
	}

	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 300
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
}

// Validate rejects settings no run could succeed with.
func (cfg *Config) Validate() error {
	switch cfg.Report.ActivityMode {
	case ActivityCalendarDay, ActivityDailyMean:
	default:
		return fmt.Errorf("report.activity_mode %q: want %s or %s",
			cfg.Report.ActivityMode, ActivityCalendarDay, ActivityDailyMean)
	}
	switch cfg.Report.Output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("report.output %q: want text, json or yaml", cfg.Report.Output)
	}
	switch cfg.Storage.Type {
	case "local", "aws", "postgres", "none":
	default:
		return fmt.Errorf("storage.type %q: want local, aws, postgres or none", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "postgres" && cfg.Storage.DatabaseURL == "" {
		return errors.New("storage.database_url is required for postgres storage")
	}
	if cfg.Storage.Type == "aws" && (cfg.Storage.S3Bucket == "" || cfg.Storage.DynamoDBTable == "") {
		return errors.New("storage.s3_bucket and storage.dynamodb_table are required for aws storage")
	}
	folded := make(map[string]string, len(cfg.Properties))
	for name, id := range cfg.Properties {
		if !isNumeric(id) {
			return fmt.Errorf("property %q: id %q is not numeric", name, id)
		}
		lower := strings.ToLower(name)
		if other, ok := folded[lower]; ok {
			return fmt.Errorf("properties %q and %q differ only by case", other, name)
		}
		folded[lower] = name
	}
	return nil
}

// ResolveProperty maps a configured name (case-insensitive) or a bare
// numeric ID to a Property. Failures wrap domain.ErrInvalidProperty.
func (cfg *Config) ResolveProperty(nameOrID string) (domain.Property, error) {
	key := strings.TrimSpace(nameOrID)
	if key == "" {
		return domain.Property{}, fmt.Errorf("%w: empty identifier", domain.ErrInvalidProperty)
	}
	if id, ok := cfg.Properties[key]; ok {
		return domain.Property{Name: key, ID: id}, nil
	}
	// PropertyList is sorted, so ties resolve the same way every run
	props := cfg.PropertyList()
	for _, p := range props {
		if strings.EqualFold(p.Name, key) {
			return p, nil
		}
	}
	if isNumeric(key) {
		for _, p := range props {
			if p.ID == key {
				return p, nil
			}
		}
		return domain.Property{Name: key, ID: key}, nil
	}
	return domain.Property{}, fmt.Errorf("%w: %q", domain.ErrInvalidProperty, key)
}

// PropertyList returns the configured properties sorted by name.
func (cfg *Config) PropertyList() []domain.Property {
	out := make([]domain.Property, 0, len(cfg.Properties))
	for name, id := range cfg.Properties {
		out = append(out, domain.Property{Name: name, ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func parsePropertyList(v string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range splitList(v) {
		name, id, ok := strings.Cut(pair, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || !isNumeric(id) {
			return nil, fmt.Errorf("GA4_PROPERTIES: bad entry %q, want name=numeric_id", pair)
		}
		out[name] = id
	}
	return out, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
