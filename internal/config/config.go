package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Ollama   OllamaConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Capture  CaptureConfig
	Alert    AlertConfig
	Telegram TelegramConfig
	History  HistoryConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type OllamaConfig struct {
	BaseURL         string
	ClassifierModel string
	EmbedModel      string
}

type OpenAIConfig struct {
	BaseURL    string
	Model      string
	EmbedModel string
	APIKey     string
}

type StorageConfig struct {
	DataDir string
}

type CaptureConfig struct {
	LogPath      string
	PollInterval string
}

type AlertConfig struct {
	Threshold   float64
	Limit       int
	Guardian    string
	MinInterval string
}

type TelegramConfig struct {
	BotToken string
}

type HistoryConfig struct {
	MaxEntries    int
	FlushBatch    int
	FlushSchedule string
	RetainOnExit  int
}

type AnalysisConfig struct {
	SyntaxEnabled bool
	CacheSize     int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4100},
		Ollama: OllamaConfig{
			BaseURL:         "http://localhost:11434",
			ClassifierModel: "phi3.5",
			EmbedModel:      "nomic-embed-text",
		},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Capture: CaptureConfig{PollInterval: "5s"},
		Alert: AlertConfig{
			Threshold:   -0.3,
			Limit:       5,
			MinInterval: "10m",
		},
		History: HistoryConfig{
			MaxEntries:    10000,
			FlushBatch:    20,
			FlushSchedule: "@every 30s",
			RetainOnExit:  200,
		},
		Analysis: AnalysisConfig{
			SyntaxEnabled: true,
			CacheSize:     100,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a .env file in the working directory, the
// platform-native backend, environment variables and the platform secret
// store.
//
// On macOS the backend is UserDefaults (domain: com.sentiguard.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/sentiguard/config.json.
//
// Environment variables (SENTIGUARD_*) override backend values on all platforms.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "[WARN] could not load .env: %v\n", err)
	}
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if cfg.Capture.LogPath == "" {
		cfg.Capture.LogPath = filepath.Join(cfg.Storage.DataDir, "utterances.txt")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.Alert.Guardian != "" && cfg.Telegram.BotToken == "" {
		fmt.Fprintf(os.Stderr, "[WARN] alert.guardian is set but no Telegram bot token was found; "+
			"set SENTIGUARD_TELEGRAM_BOT_TOKEN%s. Alerts will only be logged.\n", secretHint("telegram_bot_token"))
	}
	return cfg, nil
}

// applySecrets fills secrets still empty after env overrides from the
// platform secret store.
func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg).(string) != "" {
			continue
		}
		account := strings.ReplaceAll(s.key, ".", "_")
		if v, err := kc.Get("sentiguard", account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

func (c Config) validate() error {
	if c.Alert.Threshold < -1 || c.Alert.Threshold > 1 {
		return fmt.Errorf("alert.threshold %v is outside [-1, 1]", c.Alert.Threshold)
	}
	if c.Alert.Limit < 0 {
		return fmt.Errorf("alert.limit must not be negative, got %d", c.Alert.Limit)
	}
	for key, v := range map[string]string{
		"capture.poll_interval": c.Capture.PollInterval,
		"alert.min_interval":    c.Alert.MinInterval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}
	return nil
}

// PollInterval returns capture.poll_interval as a duration.
func (c Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Capture.PollInterval)
	return d
}

// AlertMinInterval returns alert.min_interval as a duration.
func (c Config) AlertMinInterval() time.Duration {
	d, _ := time.ParseDuration(c.Alert.MinInterval)
	return d
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
