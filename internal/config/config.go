package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration for both the TUI client and the
// backend server. Each binary reads only its own section.
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings for the server process.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ClientConfig holds TUI client settings.
type ClientConfig struct {
	BaseURL      string `yaml:"base_url"`
	LanguageCode string `yaml:"language_code"`
	// VerifyToken, when set, is sent as X-Verification-Token on API calls.
	VerifyToken string `yaml:"verify_token"`
	// Pinned location. When both are zero the client geolocates by IP.
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
	// Recorder forces a capture backend (ffmpeg, arecord). Empty = probe.
	Recorder string `yaml:"recorder"`
}

// ServerConfig holds backend server settings.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeoutSec  int             `yaml:"read_timeout_sec"`
	WriteTimeoutSec int             `yaml:"write_timeout_sec"`
	ShutdownSec     int             `yaml:"shutdown_timeout_sec"`
	PlacesAPIKey    string          `yaml:"places_api_key"`
	MapsJSAPIKey    string          `yaml:"maps_js_api_key"`
	SpeechAPIKey    string          `yaml:"speech_api_key"`
	LLM             LLMConfig       `yaml:"llm"`
	Turnstile       TurnstileConfig `yaml:"turnstile"`
}

// LLMConfig holds settings for the interpretation model behind an
// OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// TurnstileConfig holds verification widget settings. With an empty
// SecretKey the server accepts requests without a token.
type TurnstileConfig struct {
	SiteKey   string `yaml:"site_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads configuration from a YAML file by environment name (local, dev,
// prod), expanding ${VAR} references from the environment.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = "http://localhost:8090"
	}
	if c.Client.LanguageCode == "" {
		c.Client.LanguageCode = "en-US"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8090
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = 30
	}
	if c.Server.ShutdownSec <= 0 {
		c.Server.ShutdownSec = 10
	}
	if c.Server.LLM.Model == "" {
		c.Server.LLM.Model = "gemini-2.5-flash-lite"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Client.BaseURL, "http://") && !strings.HasPrefix(c.Client.BaseURL, "https://") {
		return fmt.Errorf("client.base_url must be an http(s) URL, got %q", c.Client.BaseURL)
	}
	switch r := c.Client.Recorder; r {
	case "", "ffmpeg", "arecord":
	default:
		return fmt.Errorf("client.recorder must be \"ffmpeg\" or \"arecord\", got %q", r)
	}
	return nil
}

// findConfigPath locates the config file, checking ./config/ first and then
// the user config directory.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	if userDir, err := os.UserConfigDir(); err == nil {
		if path := filepath.Join(userDir, "find", filename); fileExists(path) {
			return path
		}
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
