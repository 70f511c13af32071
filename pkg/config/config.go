package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"cardscan/pkg/logger"
)

// AppName names the per-user config directory.
const AppName = "cardscan"

// DefaultConfigFile is looked up in the working directory and the XDG config home.
const DefaultConfigFile = "cardscan.yaml"

// ErrConfigNotFound is returned when an explicit config file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Region is a fractional rectangle of the card image.
type Region struct {
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	W    float64 `yaml:"w"`
	H    float64 `yaml:"h"`
}

// Tuning holds the recognition and matching knobs. Everything here has a
// working default; the YAML file only needs the keys it changes.
type Tuning struct {
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	Scale               int      `yaml:"scale"`
	HalfWindow          int      `yaml:"half_window"`
	Bias                int      `yaml:"bias"`
	Regions             []Region `yaml:"regions"`
	MaxDistance         int      `yaml:"max_distance"`
	AutoAcceptDistance  int      `yaml:"auto_accept_distance"`
	YieldGapMS          int      `yaml:"yield_gap_ms"`
	PaidMaxSide         int      `yaml:"paid_max_side"`
	PaidJPEGQuality     int      `yaml:"paid_jpeg_quality"`
	PaidCostUnits       int64    `yaml:"paid_cost_units"`
}

// Config is the process configuration: defaults, then the YAML file, then env.
type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	CatalogSource string `yaml:"catalog_source"`
	DBDSN         string `yaml:"db_dsn"`
	DBAutoMigrate bool   `yaml:"db_auto_migrate"`
	JWTSecret     string `yaml:"-"`

	PaidProvider  string `yaml:"paid_provider"`
	GeminiAPIKey  string `yaml:"-"`
	GeminiModel   string `yaml:"gemini_model"`
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	TesseractLang string `yaml:"tesseract_lang"`

	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`

	Tuning Tuning `yaml:"tuning"`

	// Path of the YAML file that was applied, empty when none.
	File string `yaml:"-"`
}

// DefaultRegions are the identifier placements seen across catalog editions:
// bottom-left first, then bottom-right.
func DefaultRegions() []Region {
	return []Region{
		{Name: "bottom-left", X: 0.02, Y: 0.84, W: 0.40, H: 0.14},
		{Name: "bottom-right", X: 0.58, Y: 0.84, W: 0.40, H: 0.14},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	lc := logger.DefaultConfig()
	return &Config{
		ListenAddr:    ":8081",
		CatalogSource: "catalog.json",
		PaidProvider:  "gemini",
		GeminiModel:   "gemini-1.5-flash",
		OpenAIModel:   "gpt-4o-mini",
		TesseractLang: "eng",
		LogLevel:      lc.Level,
		LogFormat:     lc.Format,
		LogTimeFormat: lc.TimeFormat,
		LogOutput:     lc.Output,
		Tuning: Tuning{
			ConfidenceThreshold: 60,
			Scale:               3,
			HalfWindow:          10,
			Bias:                8,
			Regions:             DefaultRegions(),
			MaxDistance:         2,
			AutoAcceptDistance:  1,
			YieldGapMS:          50,
			PaidMaxSide:         1024,
			PaidJPEGQuality:     80,
			PaidCostUnits:       1,
		},
	}
}

// Load builds the configuration. An explicit path that does not exist is an
// error; when path is empty the default locations are searched and a missing
// file is fine.
func Load(path string) (*Config, error) {
	cfg := Default()
	file := FindConfigFile(path)
	if path != "" && file == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if file != "" {
		if err := cfg.applyFile(file); err != nil {
			return nil, fmt.Errorf("config file %s: %w", file, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// FindConfigFile resolves the YAML file to read. Order: explicit path,
// CARDSCAN_CONFIG, working directory, XDG config home.
func FindConfigFile(path string) string {
	if path == "" {
		path = os.Getenv("CARDSCAN_CONFIG")
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	candidates := []string{DefaultConfigFile, filepath.Join(xdg.ConfigHome, AppName, "config.yaml")}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	if len(c.Tuning.Regions) == 0 {
		c.Tuning.Regions = DefaultRegions()
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.CatalogSource = getEnv("CATALOG_SOURCE", c.CatalogSource)
	c.DBDSN = getEnv("DB_DSN", c.DBDSN)
	c.DBAutoMigrate = getEnvBool("DB_AUTO_MIGRATE", c.DBAutoMigrate)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.PaidProvider = strings.ToLower(getEnv("PAID_PROVIDER", c.PaidProvider))
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.TesseractLang = getEnv("TESSERACT_LANG", c.TesseractLang)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogTimeFormat = getEnv("LOG_TIME_FORMAT", c.LogTimeFormat)
	c.LogOutput = getEnv("LOG_OUTPUT", c.LogOutput)
	c.Tuning.ConfidenceThreshold = getEnvFloat("CONFIDENCE_THRESHOLD", c.Tuning.ConfidenceThreshold)
}

func (c *Config) validate() error {
	t := c.Tuning
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence threshold %.1f outside [0,100]", t.ConfidenceThreshold)
	}
	if t.Scale < 1 {
		return fmt.Errorf("scale must be >= 1")
	}
	if t.HalfWindow < 1 {
		return fmt.Errorf("half_window must be >= 1")
	}
	if t.AutoAcceptDistance < 0 || t.AutoAcceptDistance > t.MaxDistance {
		return fmt.Errorf("auto_accept_distance must be within [0,max_distance]")
	}
	for _, r := range t.Regions {
		if r.X < 0 || r.Y < 0 || r.W <= 0 || r.H <= 0 || r.X+r.W > 1 || r.Y+r.H > 1 {
			return fmt.Errorf("region %q is not a fraction of the image", r.Name)
		}
	}
	switch c.PaidProvider {
	case "gemini", "openai", "none":
	default:
		return fmt.Errorf("PAID_PROVIDER must be gemini, openai or none")
	}
	return nil
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// PaidAPIKey returns the credential for the selected provider.
func (c *Config) PaidAPIKey() string {
	switch c.PaidProvider {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}
