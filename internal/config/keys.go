package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SENTIGUARD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "SENTIGUARD_SERVER_TOKEN",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "ollama.base_url", typ: kString, env: "SENTIGUARD_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.classifier_model", typ: kString, env: "SENTIGUARD_OLLAMA_CLASSIFIER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.ClassifierModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.ClassifierModel },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "SENTIGUARD_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "openai.base_url", typ: kString, env: "SENTIGUARD_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.model", typ: kString, env: "SENTIGUARD_OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.Model },
	},
	{
		key: "openai.embed_model", typ: kString, env: "SENTIGUARD_OPENAI_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.EmbedModel },
	},
	{
		key: "openai.api_key", typ: kString, env: "SENTIGUARD_OPENAI_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SENTIGUARD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "capture.log_path", typ: kString, env: "SENTIGUARD_CAPTURE_LOG_PATH",
		apply:   func(cfg *Config, v any) { cfg.Capture.LogPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Capture.LogPath },
	},
	{
		key: "capture.poll_interval", typ: kString, env: "SENTIGUARD_CAPTURE_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Capture.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Capture.PollInterval },
	},
	{
		key: "alert.threshold", typ: kFloat, env: "SENTIGUARD_ALERT_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Alert.Threshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Alert.Threshold },
	},
	{
		key: "alert.limit", typ: kInt, env: "SENTIGUARD_ALERT_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Alert.Limit = v.(int) },
		extract: func(cfg Config) any { return cfg.Alert.Limit },
	},
	{
		key: "alert.guardian", typ: kString, env: "SENTIGUARD_ALERT_GUARDIAN",
		apply:   func(cfg *Config, v any) { cfg.Alert.Guardian = v.(string) },
		extract: func(cfg Config) any { return cfg.Alert.Guardian },
	},
	{
		key: "alert.min_interval", typ: kString, env: "SENTIGUARD_ALERT_MIN_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Alert.MinInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Alert.MinInterval },
	},
	{
		key: "telegram.bot_token", typ: kString, env: "SENTIGUARD_TELEGRAM_BOT_TOKEN",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Telegram.BotToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Telegram.BotToken },
	},
	{
		key: "history.max_entries", typ: kInt, env: "SENTIGUARD_HISTORY_MAX_ENTRIES",
		apply:   func(cfg *Config, v any) { cfg.History.MaxEntries = v.(int) },
		extract: func(cfg Config) any { return cfg.History.MaxEntries },
	},
	{
		key: "history.flush_batch", typ: kInt, env: "SENTIGUARD_HISTORY_FLUSH_BATCH",
		apply:   func(cfg *Config, v any) { cfg.History.FlushBatch = v.(int) },
		extract: func(cfg Config) any { return cfg.History.FlushBatch },
	},
	{
		key: "history.flush_schedule", typ: kString, env: "SENTIGUARD_HISTORY_FLUSH_SCHEDULE",
		apply:   func(cfg *Config, v any) { cfg.History.FlushSchedule = v.(string) },
		extract: func(cfg Config) any { return cfg.History.FlushSchedule },
	},
	{
		key: "history.retain_on_exit", typ: kInt, env: "SENTIGUARD_HISTORY_RETAIN_ON_EXIT",
		apply:   func(cfg *Config, v any) { cfg.History.RetainOnExit = v.(int) },
		extract: func(cfg Config) any { return cfg.History.RetainOnExit },
	},
	{
		key: "analysis.syntax_enabled", typ: kBool, env: "SENTIGUARD_ANALYSIS_SYNTAX_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Analysis.SyntaxEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Analysis.SyntaxEnabled },
	},
	{
		key: "analysis.cache_size", typ: kInt, env: "SENTIGUARD_ANALYSIS_CACHE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Analysis.CacheSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.CacheSize },
	},
	{
		key: "log.level", typ: kString, env: "SENTIGUARD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parse converts a raw string to the Go type of the key.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}
		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if s.env == "" || raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
