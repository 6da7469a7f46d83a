package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/file"
)

// Environment variables overriding provider api keys.
var apiKeyEnvironmentVariables = map[string]func(*Providers) *Provider{
	"OPENAI_API_KEY":    func(p *Providers) *Provider { return p.OpenAI },
	"GEMINI_API_KEY":    func(p *Providers) *Provider { return p.Gemini },
	"DEEPSEEK_API_KEY":  func(p *Providers) *Provider { return p.DeepSeek },
	"ANTHROPIC_API_KEY": func(p *Providers) *Provider { return p.Anthropic },
	"REPLICATE_API_KEY": func(p *Providers) *Provider { return p.Replicate },
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		RequestTimeout: 60,
		Providers: &Providers{
			OpenAI:    &Provider{APIHost: "https://api.openai.com/v1"},
			Gemini:    &Provider{APIHost: "https://generativelanguage.googleapis.com"},
			DeepSeek:  &Provider{APIHost: "https://api.deepseek.com/v1"},
			Anthropic: &Provider{APIHost: "https://api.anthropic.com/v1"},
			Replicate: &Provider{APIHost: "https://api.replicate.com"},
		},
		Chat: &ChatConfig{
			DefaultModel:     "gpt-4o-mini",
			MaxTokens:        4000,
			Temperature:      0.7,
			AutoSaveInterval: 30,
		},
		Store: &StoreConfig{
			Driver:      "sqlite",
			Path:        "~/.config/polychat/chats.db",
			MaxSessions: 50,
		},
		Image: &ImageConfig{
			Model: "sdxl",
		},
		Server: &ServerConfig{
			Port: 3030,
		},
		DebugLog: "/tmp/polychat-debug.log",
	}
}

// Config holds configuration for polychat.
type Config struct {
	// Timeout of a provider request, in seconds.
	RequestTimeout int    `json:"request_timeout"`
	DebugLog       string `json:"debug_log"`

	Providers *Providers    `json:"providers"`
	Chat      *ChatConfig   `json:"chat"`
	Store     *StoreConfig  `json:"store"`
	Image     *ImageConfig  `json:"image"`
	Server    *ServerConfig `json:"server"`
}

// Provider holds the credential and endpoint of a remote provider.
type Provider struct {
	APIKey  string `json:"api_key"`
	APIHost string `json:"api_host"`
}

// Providers holds the configuration of every supported provider.
type Providers struct {
	OpenAI    *Provider `json:"openai"`
	Gemini    *Provider `json:"gemini"`
	DeepSeek  *Provider `json:"deepseek"`
	Anthropic *Provider `json:"anthropic"`
	Replicate *Provider `json:"replicate"`
}

// ChatConfig holds configuration for chats.
type ChatConfig struct {
	// The model used when none is specified.
	DefaultModel string  `json:"default_model"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float32 `json:"temperature"`
	// Seconds between two automatic saves. Zero disables auto-save.
	AutoSaveInterval int `json:"auto_save_interval"`
}

// StoreConfig holds configuration for the session store.
type StoreConfig struct {
	// One of sqlite, bolt or memory.
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	MaxSessions int    `json:"max_sessions"`
}

// ImageConfig holds configuration for image generation.
type ImageConfig struct {
	// One of sdxl or hidream.
	Model string `json:"model"`
}

// ServerConfig holds configuration for the http server.
type ServerConfig struct {
	Port int `json:"port"`
}

// RequestTimeoutDuration returns the request timeout as a duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// AutoSaveIntervalDuration returns the auto-save interval as a duration.
func (c *Config) AutoSaveIntervalDuration() time.Duration {
	return time.Duration(c.Chat.AutoSaveInterval) * time.Second
}

// Parse a configuration file. The file is created from the defaults if it does not exist.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	// Values absent from the file keep their default, explicit zeros are kept.
	config := Default()
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	if err := config.restoreDefaults(); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}
	config.ApplyEnvironment(os.Getenv)

	expandedStorePath, err := file.ExpandPath(config.Store.Path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding store path")
	}
	config.Store.Path = expandedStorePath
	return config, nil
}

// restoreDefaults of sections set to null. Empty provider fields mean unset.
func (c *Config) restoreDefaults() error {
	defaults := Default()
	if c.Chat == nil {
		c.Chat = defaults.Chat
	}
	if c.Store == nil {
		c.Store = defaults.Store
	}
	if c.Image == nil {
		c.Image = defaults.Image
	}
	if c.Server == nil {
		c.Server = defaults.Server
	}
	if c.Providers == nil {
		c.Providers = defaults.Providers
	}
	return mergo.Merge(c.Providers, defaults.Providers)
}

// ApplyEnvironment overrides provider api keys with non-empty environment variables.
func (c *Config) ApplyEnvironment(getenv func(string) string) {
	for variable, providerFn := range apiKeyEnvironmentVariables {
		if value := getenv(variable); value != "" {
			providerFn(c.Providers).APIKey = value
		}
	}
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0600)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	// Create the directories.
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := Default().save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
