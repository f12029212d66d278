package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/bigram/pkg/bigram"
)

// ServerConfig holds the configuration for the HTTP server and the database.
type ServerConfig struct {
	ApiAddr      string `json:"api_addr"`
	LogLevel     string `json:"log_level"`
	ApiKey       string `json:"api_key"` // Empty leaves the API open.
	DataDir      string `json:"data_dir"`
	DatabasePath string `json:"database_path"`
}

// ModelConfig selects the corpus the served model is built from and the
// default generation settings.
type ModelConfig struct {
	CorpusName  string  `json:"corpus_name"`
	StartToken  string  `json:"start_token"`
	EndToken    string  `json:"end_token"`
	Smoothing   float64 `json:"smoothing"`
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	WordsPath   string  `json:"words_path"` // Trained into an empty corpus on startup, if set.
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Model  *ModelConfig  `json:"model_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:      ":7380",
		LogLevel:     "info",
		ApiKey:       "",
		DataDir:      "./data",
		DatabasePath: "./data/bigram.db",
	}
}

// DefaultModelConfig creates a model configuration with default values.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		CorpusName:  "names",
		StartToken:  bigram.DefaultStartToken,
		EndToken:    bigram.DefaultEndToken,
		Smoothing:   1,
		MaxLength:   bigram.DefaultMaxLength,
		Temperature: 1,
		TopK:        0,
		WordsPath:   "./data/names.txt",
	}
}

// DefaultConfig returns a complete configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: DefaultServerConfig(),
		Model:  DefaultModelConfig(),
	}
}

// Tokens returns the control tokens of the configured corpus.
func (mc *ModelConfig) Tokens() bigram.Tokens {
	return bigram.Tokens{Start: mc.StartToken, End: mc.EndToken}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server == nil || c.Model == nil {
		return errors.New("server_config and model_config are required")
	}
	if c.Model.CorpusName == "" {
		return errors.New("model_config.corpus_name must not be empty")
	}
	if err := c.Model.Tokens().Validate(); err != nil {
		return fmt.Errorf("model_config tokens: %w", err)
	}
	if c.Model.Smoothing < 0 || math.IsNaN(c.Model.Smoothing) || math.IsInf(c.Model.Smoothing, 0) {
		return fmt.Errorf("model_config.smoothing must be a non-negative finite number, got %v", c.Model.Smoothing)
	}
	if c.Model.MaxLength < 0 {
		return fmt.Errorf("model_config.max_length must be non-negative, got %d", c.Model.MaxLength)
	}
	if c.Model.TopK < 0 {
		return fmt.Errorf("model_config.top_k must be non-negative, got %d", c.Model.TopK)
	}
	return nil
}

// Level parses the configured log level, falling back to info.
func (sc *ServerConfig) Level() slog.Level {
	switch strings.ToLower(sc.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Sections missing from the file keep their defaults.
	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// ConfigManager handles thread-safe access to the configuration and its
// persistence.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		cm.logger = logger
	}
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	server := *cm.config.Server
	model := *cm.config.Model
	return Config{Server: &server, Model: &model}
}

// Update validates the new configuration, saves it to disk and makes it current.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.MarshalIndent(newConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	server := *newConfig.Server
	model := *newConfig.Model
	cm.config = &Config{Server: &server, Model: &model}
	cm.logger.Info("Configuration updated", slog.String("path", cm.configPath))
	return nil
}
