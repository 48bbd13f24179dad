package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Segments  SegmentConfig   `yaml:"segments"`
	Outreach  OutreachConfig  `yaml:"outreach"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ScoringConfig holds the component weight table and the rescoring cooldown.
// Weights must sum to 1.0; Validate enforces it.
type ScoringConfig struct {
	Weights       WeightTable   `yaml:"weights"`
	CooldownHours int           `yaml:"cooldown_hours"`
}

// WeightTable is the fixed driver weighting. Field order is the declared
// tie-break order for primary-driver selection.
type WeightTable struct {
	DwellTime         float64 `yaml:"dwell_time"`
	SkillsGap         float64 `yaml:"skills_gap"`
	AfterHours        float64 `yaml:"after_hours"`
	InsurancePressure float64 `yaml:"insurance_pressure"`
	BreachCost        float64 `yaml:"breach_cost"`
}

// SegmentConfig holds the segmenter rule thresholds.
type SegmentConfig struct {
	BreachWindowDays    int     `yaml:"breach_window_days"`
	SkillsGapThreshold  float64 `yaml:"skills_gap_threshold"`
	InsuranceThreshold  float64 `yaml:"insurance_threshold"`
	DwellThreshold      float64 `yaml:"dwell_threshold"`
	SmallBusinessMax    int     `yaml:"small_business_max"`
}

// OutreachConfig holds scheduling caps and timing.
type OutreachConfig struct {
	DailyCap       int    `yaml:"daily_cap"`
	PerOrgCap      int    `yaml:"per_org_cap"`
	PerContactCap  int    `yaml:"per_contact_cap"`
	MaxContacts    int    `yaml:"max_contacts"`
	BusinessHour   int    `yaml:"business_hour"`
	Timezone       string `yaml:"timezone"`
}

// DeliveryConfig holds the external delivery collaborator settings.
type DeliveryConfig struct {
	Endpoint         string `yaml:"endpoint"`
	SigningSecret    string `yaml:"signing_secret"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	RetryBudget      int    `yaml:"retry_budget"`
	BackoffBaseMs    int    `yaml:"backoff_base_ms"`
}

// PipelineConfig holds cycle cadence and fan-out.
type PipelineConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	Concurrency     int `yaml:"concurrency"`
}

// Cooldown returns the rescoring cooldown as a duration.
func (c ScoringConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownHours) * time.Hour
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads the YAML config (if path is non-empty and exists) and
// applies .env plus environment variable overrides. Missing YAML is not an
// error; the pipeline can run entirely from env and defaults.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DELIVERY_ENDPOINT"); v != "" {
		cfg.Delivery.Endpoint = v
	}
	if v := os.Getenv("DELIVERY_SIGNING_SECRET"); v != "" {
		cfg.Delivery.SigningSecret = v
	}
	if v := os.Getenv("OUTREACH_DAILY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Outreach.DailyCap = n
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379"
	}

	zero := WeightTable{}
	if c.Scoring.Weights == zero {
		c.Scoring.Weights = WeightTable{
			DwellTime:         0.35,
			SkillsGap:         0.25,
			AfterHours:        0.15,
			InsurancePressure: 0.15,
			BreachCost:        0.10,
		}
	}
	if c.Scoring.CooldownHours == 0 {
		c.Scoring.CooldownHours = 24
	}

	if c.Segments.BreachWindowDays == 0 {
		c.Segments.BreachWindowDays = 90
	}
	if c.Segments.SkillsGapThreshold == 0 {
		c.Segments.SkillsGapThreshold = 0.7
	}
	if c.Segments.InsuranceThreshold == 0 {
		c.Segments.InsuranceThreshold = 0.7
	}
	if c.Segments.DwellThreshold == 0 {
		c.Segments.DwellThreshold = 0.6
	}
	if c.Segments.SmallBusinessMax == 0 {
		c.Segments.SmallBusinessMax = 500
	}

	if c.Outreach.DailyCap == 0 {
		c.Outreach.DailyCap = 500
	}
	if c.Outreach.PerOrgCap == 0 {
		c.Outreach.PerOrgCap = 3
	}
	if c.Outreach.PerContactCap == 0 {
		c.Outreach.PerContactCap = 1
	}
	if c.Outreach.MaxContacts == 0 {
		c.Outreach.MaxContacts = 3
	}
	if c.Outreach.BusinessHour == 0 {
		c.Outreach.BusinessHour = 10
	}
	if c.Outreach.Timezone == "" {
		c.Outreach.Timezone = "UTC"
	}

	if c.Delivery.TimeoutSeconds == 0 {
		c.Delivery.TimeoutSeconds = 30
	}
	if c.Delivery.RetryBudget == 0 {
		c.Delivery.RetryBudget = 3
	}
	if c.Delivery.BackoffBaseMs == 0 {
		c.Delivery.BackoffBaseMs = 1000
	}

	if c.Pipeline.IntervalMinutes == 0 {
		c.Pipeline.IntervalMinutes = 60
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 8
	}
}

// Validate checks cross-field constraints that defaults can't fix.
func (c *Config) Validate() error {
	w := c.Scoring.Weights
	sum := w.DwellTime + w.SkillsGap + w.AfterHours + w.InsurancePressure + w.BreachCost
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.3f", sum)
	}
	if c.Outreach.PerContactCap > c.Outreach.PerOrgCap {
		return fmt.Errorf("per_contact_cap (%d) cannot exceed per_org_cap (%d)",
			c.Outreach.PerContactCap, c.Outreach.PerOrgCap)
	}
	if _, err := time.LoadLocation(c.Outreach.Timezone); err != nil {
		return fmt.Errorf("invalid outreach timezone %q: %w", c.Outreach.Timezone, err)
	}
	return nil
}
