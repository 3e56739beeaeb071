package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeanpaul/jarvis/internal/credential"
	"github.com/jeanpaul/jarvis/internal/memory"
	"github.com/jeanpaul/jarvis/internal/provider"
)

type Config struct {
	Offline OfflineConfig `yaml:"offline" mapstructure:"offline"`
	Cloud   CloudConfig   `yaml:"cloud" mapstructure:"cloud"`
	Memory  MemoryConfig  `yaml:"memory" mapstructure:"memory"`
	Weather WeatherConfig `yaml:"weather" mapstructure:"weather"`
	Wiki    WikiConfig    `yaml:"wiki" mapstructure:"wiki"`
	Crawler CrawlerConfig `yaml:"crawler" mapstructure:"crawler"`
	Voice   VoiceConfig   `yaml:"voice" mapstructure:"voice"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

type OfflineConfig struct {
	// Model is the Ollama model name; empty disables the offline source.
	Model     string `yaml:"model" mapstructure:"model"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Pull      bool   `yaml:"pull" mapstructure:"pull"`
}

type CloudConfig struct {
	Type      string   `yaml:"type" mapstructure:"type"`
	BaseURL   string   `yaml:"base_url" mapstructure:"base_url"`
	Model     string   `yaml:"model" mapstructure:"model"`
	MaxTokens int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	APIKeys   []string `yaml:"api_keys" mapstructure:"api_keys"`
}

type MemoryConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
	TopK    int    `yaml:"top_k" mapstructure:"top_k"`
}

type WeatherConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	APIURL    string `yaml:"api_url" mapstructure:"api_url"`
	LocateURL string `yaml:"locate_url" mapstructure:"locate_url"`
}

type WikiConfig struct {
	APIURL     string `yaml:"api_url" mapstructure:"api_url"`
	SummaryLen int    `yaml:"summary_len" mapstructure:"summary_len"`
}

type CrawlerConfig struct {
	Render      bool `yaml:"render" mapstructure:"render"`
	MaxWords    int  `yaml:"max_words" mapstructure:"max_words"`
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
}

type VoiceConfig struct {
	ListenTimeout time.Duration `yaml:"listen_timeout" mapstructure:"listen_timeout"`
	TTSCommand    []string      `yaml:"tts_command" mapstructure:"tts_command"`
	Markdown      bool          `yaml:"markdown" mapstructure:"markdown"`
}

type SessionConfig struct {
	UserID          string        `yaml:"user_id" mapstructure:"user_id"`
	Learning        bool          `yaml:"learning" mapstructure:"learning"`
	ExtractInterval time.Duration `yaml:"extract_interval" mapstructure:"extract_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ArchiveDir      string        `yaml:"archive_dir" mapstructure:"archive_dir"`
	Apology         string        `yaml:"apology" mapstructure:"apology"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func DefaultConfig() *Config {
	return &Config{
		Offline: OfflineConfig{
			BaseURL:   "http://localhost:11434",
			MaxTokens: 512,
		},
		Cloud: CloudConfig{
			Type:      provider.KindOpenAI,
			Model:     "gpt-4o-mini",
			MaxTokens: 500,
			APIKeys:   []string{},
		},
		Memory: MemoryConfig{
			Backend: memory.BackendJSON,
			TopK:    4,
		},
		Weather: WeatherConfig{
			APIURL:    "https://api.weatherapi.com/v1",
			LocateURL: "https://ipinfo.io/json",
		},
		Wiki: WikiConfig{
			APIURL:     "https://en.wikipedia.org/w/api.php",
			SummaryLen: 300,
		},
		Crawler: CrawlerConfig{
			MaxWords:    400,
			Concurrency: 3,
		},
		Voice: VoiceConfig{
			TTSCommand: []string{},
		},
		Session: SessionConfig{
			UserID:          "User",
			Learning:        true,
			ExtractInterval: time.Second,
			RequestTimeout:  10 * time.Second,
			ArchiveDir:      "courses",
			Apology:         "Sorry, I couldn't find an answer to that.",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from defaults, config.yaml, JARVIS_* environment
// variables and the legacy names OFFLINE_MODEL, WEATHERAPI_KEY and
// OPENAI_KEY_1..15. Legacy names are read from the process environment
// first and then from a .env file in dir (or the working directory).
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "jarvis"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "jarvis"))
	}

	v.SetEnvPrefix("JARVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else if err := validateFile(v.ConfigFileUsed()); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	dotenv, err := readDotEnv(dir)
	if err != nil {
		return nil, err
	}
	applyLegacy(cfg, lookupFunc(dotenv))
	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("offline.model", cfg.Offline.Model)
	v.SetDefault("offline.base_url", cfg.Offline.BaseURL)
	v.SetDefault("offline.max_tokens", cfg.Offline.MaxTokens)
	v.SetDefault("offline.pull", cfg.Offline.Pull)
	v.SetDefault("cloud.type", cfg.Cloud.Type)
	v.SetDefault("cloud.base_url", cfg.Cloud.BaseURL)
	v.SetDefault("cloud.model", cfg.Cloud.Model)
	v.SetDefault("cloud.max_tokens", cfg.Cloud.MaxTokens)
	v.SetDefault("cloud.api_keys", cfg.Cloud.APIKeys)
	v.SetDefault("memory.backend", cfg.Memory.Backend)
	v.SetDefault("memory.path", cfg.Memory.Path)
	v.SetDefault("memory.top_k", cfg.Memory.TopK)
	v.SetDefault("weather.api_key", cfg.Weather.APIKey)
	v.SetDefault("weather.api_url", cfg.Weather.APIURL)
	v.SetDefault("weather.locate_url", cfg.Weather.LocateURL)
	v.SetDefault("wiki.api_url", cfg.Wiki.APIURL)
	v.SetDefault("wiki.summary_len", cfg.Wiki.SummaryLen)
	v.SetDefault("crawler.render", cfg.Crawler.Render)
	v.SetDefault("crawler.max_words", cfg.Crawler.MaxWords)
	v.SetDefault("crawler.concurrency", cfg.Crawler.Concurrency)
	v.SetDefault("voice.listen_timeout", cfg.Voice.ListenTimeout)
	v.SetDefault("voice.tts_command", cfg.Voice.TTSCommand)
	v.SetDefault("voice.markdown", cfg.Voice.Markdown)
	v.SetDefault("session.user_id", cfg.Session.UserID)
	v.SetDefault("session.learning", cfg.Session.Learning)
	v.SetDefault("session.extract_interval", cfg.Session.ExtractInterval)
	v.SetDefault("session.request_timeout", cfg.Session.RequestTimeout)
	v.SetDefault("session.archive_dir", cfg.Session.ArchiveDir)
	v.SetDefault("session.apology", cfg.Session.Apology)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// readDotEnv loads dir/.env (or ./.env) when present.
func readDotEnv(dir string) (*viper.Viper, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, ".env")
	dotenv := viper.New()
	if _, err := os.Stat(path); err != nil {
		return dotenv, nil
	}
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return dotenv, nil
}

// lookupFunc prefers the process environment over .env values.
func lookupFunc(dotenv *viper.Viper) func(string) string {
	return func(name string) string {
		if val := os.Getenv(name); val != "" {
			return val
		}
		return dotenv.GetString(strings.ToLower(name))
	}
}

// applyLegacy fills values the config left empty from the legacy names.
// Legacy cloud keys are appended after configured ones.
func applyLegacy(cfg *Config, lookup func(string) string) {
	if cfg.Offline.Model == "" {
		cfg.Offline.Model = strings.TrimSpace(lookup("OFFLINE_MODEL"))
	}
	if cfg.Weather.APIKey == "" {
		cfg.Weather.APIKey = strings.TrimSpace(lookup("WEATHERAPI_KEY"))
	}
	seen := make(map[string]bool, len(cfg.Cloud.APIKeys))
	for _, k := range cfg.Cloud.APIKeys {
		seen[k] = true
	}
	for _, k := range credential.FromEnv(lookup) {
		if !seen[k] {
			seen[k] = true
			cfg.Cloud.APIKeys = append(cfg.Cloud.APIKeys, k)
		}
	}
}

func normalize(cfg *Config) {
	keys := cfg.Cloud.APIKeys[:0]
	for _, k := range cfg.Cloud.APIKeys {
		if k = strings.TrimSpace(expandEnv(k)); k != "" && !strings.HasPrefix(k, "$") {
			keys = append(keys, k)
		}
	}
	cfg.Cloud.APIKeys = keys
	cfg.Cloud.BaseURL = expandEnv(cfg.Cloud.BaseURL)
	cfg.Offline.BaseURL = expandEnv(cfg.Offline.BaseURL)
	cfg.Weather.APIKey = expandEnv(cfg.Weather.APIKey)

	// A TTS command from the environment arrives as one string.
	if len(cfg.Voice.TTSCommand) == 1 {
		cfg.Voice.TTSCommand = strings.Fields(cfg.Voice.TTSCommand[0])
	}
	if cfg.Memory.Path == "" {
		switch cfg.Memory.Backend {
		case memory.BackendSQLite:
			cfg.Memory.Path = filepath.Join("memories", "memory.db")
		default:
			cfg.Memory.Path = filepath.Join("memories", "memory.json")
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Memory.Backend {
	case memory.BackendJSON, memory.BackendSQLite:
	default:
		return fmt.Errorf("config: memory.backend %q is invalid (must be json or sqlite)", c.Memory.Backend)
	}
	switch c.Cloud.Type {
	case provider.KindOpenAI, provider.KindAnthropic, provider.KindGoogle:
	default:
		return fmt.Errorf("config: cloud.type %q is invalid (must be openai, anthropic, or google)", c.Cloud.Type)
	}
	if c.Cloud.Model == "" {
		return fmt.Errorf("config: cloud.model is required")
	}
	if c.Session.RequestTimeout <= 0 {
		return fmt.Errorf("config: session.request_timeout must be positive")
	}
	if c.Session.ExtractInterval <= 0 {
		return fmt.Errorf("config: session.extract_interval must be positive")
	}
	if c.Voice.ListenTimeout < 0 {
		return fmt.Errorf("config: voice.listen_timeout must not be negative")
	}
	if c.Memory.TopK < 1 {
		c.Memory.TopK = 4
	}
	if c.Wiki.SummaryLen < 1 {
		c.Wiki.SummaryLen = 300
	}
	if c.Crawler.MaxWords < 1 {
		c.Crawler.MaxWords = 400
	}
	if c.Crawler.Concurrency < 1 {
		c.Crawler.Concurrency = 3
	}
	return nil
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Cloud.APIKeys = make([]string, len(c.Cloud.APIKeys))
	for i, k := range c.Cloud.APIKeys {
		out.Cloud.APIKeys[i] = credential.Mask(k)
	}
	if out.Weather.APIKey != "" {
		out.Weather.APIKey = credential.Mask(out.Weather.APIKey)
	}
	return &out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
