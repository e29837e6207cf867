// Package config provides configuration loading and validation for the CLI.
//
// Values come from built-in defaults, then an optional YAML file, then
// environment variables (a .env file is loaded by main). CLI flags override last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "JOB_ALERTS_CONFIG"
	defaultConfigPath = "job_alerts.yaml"
)

// Config is the full runtime configuration.
type Config struct {
	API        APIConfig       `yaml:"api"`
	Database   DatabaseConfig  `yaml:"database"`
	Search     SearchConfig    `yaml:"search"`
	Pipeline   PipelineConfig  `yaml:"pipeline"`
	FollowUp   FollowUpConfig  `yaml:"followup"`
	Terms      TermsConfig     `yaml:"terms"`
	Digest     DigestConfig    `yaml:"digest"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
	Log        LogConfig       `yaml:"log"`
	Dictionary string          `yaml:"dictionary"` // keyword dictionary JSON; empty uses the built-in profile
	// Base is the home location for the distance bonus; null disables it.
	Base *BaseLocation `yaml:"base"`
}

type BaseLocation struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// APIConfig holds France Travail endpoints and credentials.
type APIConfig struct {
	Simulate     bool          `yaml:"simulate"`
	SamplePath   string        `yaml:"sample_path"` // simulated mode; empty uses the built-in sample
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	AuthURL      string        `yaml:"auth_url"`
	Scope        string        `yaml:"scope"`
	SearchURL    string        `yaml:"search_url"`
	DetailURL    string        `yaml:"detail_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	URL    string `yaml:"url"`
}

// SearchConfig describes the default query and the sweep.
type SearchConfig struct {
	Keywords           []string `yaml:"keywords"`
	Department         string   `yaml:"department"`
	RadiusKm           int      `yaml:"radius_km"`
	PublishedSinceDays int      `yaml:"published_since_days"`
	// Sweep lists keyword groups run one after another by sweep and run-daily.
	Sweep [][]string `yaml:"sweep"`
}

type PipelineConfig struct {
	PageSize          int           `yaml:"page_size"`
	MaxPages          int           `yaml:"max_pages"`
	PageDelay         time.Duration `yaml:"page_delay"`
	EnrichConcurrency int           `yaml:"enrich_concurrency"`
	// RelevanceGate drops postings the dictionary's relevance section rejects.
	RelevanceGate bool `yaml:"relevance_gate"`
}

type FollowUpConfig struct {
	FirstAfter  time.Duration `yaml:"first_after"`
	SecondAfter time.Duration `yaml:"second_after"`
}

type TermsConfig struct {
	MinDF          float64  `yaml:"min_df"`
	MaxDF          float64  `yaml:"max_df"`
	Alpha          float64  `yaml:"alpha"`
	TopN           int      `yaml:"top_n"`
	TargetTag      string   `yaml:"target_tag"`
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// DigestConfig selects the new postings reported by run-daily.
type DigestConfig struct {
	MinScore float64 `yaml:"min_score"`
	Top      int     `yaml:"top"`
}

type SchedulerConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration: simulated API and a local SQLite file.
func Default() Config {
	return Config{
		API: APIConfig{
			Simulate:  true,
			AuthURL:   "https://entreprise.francetravail.fr/connexion/oauth2/access_token?realm=/partenaire",
			Scope:     "api_offresdemploiv2 o2dsoffre",
			SearchURL: "https://api.francetravail.io/partenaire/offresdemploi/v2/offres/search",
			DetailURL: "https://api.francetravail.io/partenaire/offresdemploi/v2/offres/{id}",
			Timeout:   20 * time.Second,
		},
		Database: DatabaseConfig{Driver: "sqlite", URL: "job_alerts.db"},
		Search: SearchConfig{
			Keywords:           []string{"ros2", "c++", "vision"},
			Department:         "68",
			RadiusKm:           50,
			PublishedSinceDays: 7,
			Sweep: [][]string{
				{"ros2", "robotique"},
				{"vision industrielle", "opencv"},
				{"automaticien", "plc"},
			},
		},
		Pipeline: PipelineConfig{
			PageSize:          150,
			MaxPages:          5,
			PageDelay:         time.Second,
			EnrichConcurrency: 4,
			RelevanceGate:     true,
		},
		FollowUp: FollowUpConfig{FirstAfter: 5 * 24 * time.Hour, SecondAfter: 12 * 24 * time.Hour},
		Terms:    TermsConfig{MinDF: 0.005, MaxDF: 0.4, Alpha: 0.01, TopN: 30},
		Digest:   DigestConfig{MinScore: 2.0, Top: 20},
		Scheduler: SchedulerConfig{
			Cron:     "0 8 * * *",
			Timezone: "Europe/Paris",
		},
		Log:  LogConfig{Level: "info"},
		Base: &BaseLocation{Lat: 47.76, Lon: 7.34}, // Mulhouse
	}
}

// Load builds the configuration from defaults, the YAML file and the environment.
// An explicit path (argument or JOB_ALERTS_CONFIG) must exist; the default
// job_alerts.yaml is optional.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		path = defaultConfigPath
		explicit = false
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Unmarshalling onto the defaults keeps every key the file omits.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("FT_API_SIMULATE"); ok {
		c.API.Simulate = parseBool(v)
	}
	setString(&c.API.ClientID, "FT_CLIENT_ID")
	setString(&c.API.ClientSecret, "FT_CLIENT_SECRET")
	setString(&c.API.AuthURL, "FT_AUTH_URL")
	setString(&c.API.Scope, "FT_SCOPE")
	setString(&c.API.SearchURL, "FT_OFFRES_SEARCH_URL")
	setString(&c.API.DetailURL, "FT_OFFRES_DETAIL_URL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Search.Department, "DEFAULT_DEPT")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("DEFAULT_KEYWORDS"); v != "" {
		c.Search.Keywords = SplitList(v)
	}
	if v := os.Getenv("DEFAULT_RADIUS_KM"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ConfigurationError{Field: "DEFAULT_RADIUS_KM", Message: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Search.RadiusKm = n
	}
	if v, ok := os.LookupEnv("LOG_JSON"); ok {
		c.Log.JSON = parseBool(v)
	}

	lat, lon := os.Getenv("BASE_LAT"), os.Getenv("BASE_LON")
	if lat != "" || lon != "" {
		if c.Base == nil {
			c.Base = &BaseLocation{}
		}
		if err := setFloat(&c.Base.Lat, "BASE_LAT", lat); err != nil {
			return err
		}
		if err := setFloat(&c.Base.Lon, "BASE_LON", lon); err != nil {
			return err
		}
	}
	return nil
}

func setFloat(dst *float64, env, v string) error {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return &ConfigurationError{Field: env, Message: fmt.Sprintf("not a number: %q", v)}
	}
	*dst = f
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// parseBool treats anything but an explicit negative as true.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if !c.API.Simulate {
		if c.API.ClientID == "" {
			return &ConfigurationError{Field: "FT_CLIENT_ID", Message: "required when not in simulated mode"}
		}
		if c.API.ClientSecret == "" {
			return &ConfigurationError{Field: "FT_CLIENT_SECRET", Message: "required when not in simulated mode"}
		}
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		return &ConfigurationError{Field: "database.driver", Message: fmt.Sprintf("unsupported driver %q", c.Database.Driver)}
	}
	if c.Database.URL == "" {
		return &ConfigurationError{Field: "database.url", Message: "required"}
	}

	if c.Pipeline.PageSize < 1 || c.Pipeline.PageSize > 150 {
		return &ConfigurationError{Field: "pipeline.page_size", Message: "must be between 1 and 150"}
	}
	if c.Pipeline.MaxPages < 1 {
		return &ConfigurationError{Field: "pipeline.max_pages", Message: "must be at least 1"}
	}
	if c.Pipeline.PageDelay < 0 {
		return &ConfigurationError{Field: "pipeline.page_delay", Message: "must be non-negative"}
	}
	if c.Pipeline.EnrichConcurrency < 1 {
		return &ConfigurationError{Field: "pipeline.enrich_concurrency", Message: "must be at least 1"}
	}

	if c.FollowUp.FirstAfter <= 0 || c.FollowUp.SecondAfter <= c.FollowUp.FirstAfter {
		return &ConfigurationError{Field: "followup", Message: "delays must satisfy 0 < first_after < second_after"}
	}

	if c.Terms.MinDF < 0 || c.Terms.MaxDF > 1 || c.Terms.MinDF > c.Terms.MaxDF {
		return &ConfigurationError{Field: "terms", Message: "document frequencies must satisfy 0 <= min_df <= max_df <= 1"}
	}
	if c.Terms.Alpha <= 0 {
		return &ConfigurationError{Field: "terms.alpha", Message: "must be positive"}
	}

	if b := c.Base; b != nil {
		if b.Lat < -90 || b.Lat > 90 || b.Lon < -180 || b.Lon > 180 {
			return &ConfigurationError{Field: "base", Message: fmt.Sprintf("coordinates out of range: %v, %v", b.Lat, b.Lon)}
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigurationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}

	return nil
}
