package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"graphspace/backend/internal/constants"
	apperrors "graphspace/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	// Storage
	DataPath      string `yaml:"data_path"`
	RepairCorrupt bool   `yaml:"repair_corrupt"`

	// Language model (OpenAI-compatible endpoint)
	LLMBaseURL        string `yaml:"llm_base_url"`
	LLMAPIKey         string `yaml:"llm_api_key"`
	LLMModel          string `yaml:"llm_model"`
	LLMEmbeddingModel string `yaml:"llm_embedding_model"` // empty keeps the adapter default

	// Neo4j mirror, disabled when Neo4jURI is empty
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Port:      "5000",
		Env:       "development",
		DataPath:  constants.DefaultDataPath,
		LLMModel:  "deepseek-chat",
		Neo4jUser: "neo4j",
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// Environment variables take precedence over file settings.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("GRAPHSPACE_CONFIG"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg = fileCfg
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile reads a YAML config file on top of the defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DataPath = getEnv("GRAPHSPACE_DATA_PATH", c.DataPath)
	c.RepairCorrupt = getEnvBool("GRAPHSPACE_REPAIR_CORRUPT", c.RepairCorrupt)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMAPIKey = getEnv("LLM_API_KEY", c.LLMAPIKey)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMEmbeddingModel = getEnv("LLM_EMBEDDING_MODEL", c.LLMEmbeddingModel)
	c.Neo4jURI = getEnv("NEO4J_URI", c.Neo4jURI)
	c.Neo4jUser = getEnv("NEO4J_USER", c.Neo4jUser)
	c.Neo4jPassword = getEnv("NEO4J_PASSWORD", c.Neo4jPassword)
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return apperrors.NewConfigMissingRequired("GRAPHSPACE_DATA_PATH")
	}
	if c.Port == "" {
		return apperrors.NewConfigMissingRequired("PORT")
	}
	if c.LLMBaseURL != "" && c.LLMModel == "" {
		return apperrors.NewConfigValidationFailed("LLM_MODEL", "required when LLM_BASE_URL is set")
	}
	if c.Neo4jURI != "" && c.Neo4jUser == "" {
		return apperrors.NewConfigValidationFailed("NEO4J_USER", "required when NEO4J_URI is set")
	}
	// LLM and Neo4j are optional
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LLMEnabled reports whether a language-model endpoint is configured
func (c *Config) LLMEnabled() bool {
	return c.LLMBaseURL != ""
}

// MirrorEnabled reports whether the Neo4j mirror is configured
func (c *Config) MirrorEnabled() bool {
	return c.Neo4jURI != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
