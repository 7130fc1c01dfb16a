package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

const (
	HistoryFull   = "full"
	HistorySingle = "single"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8501"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	MaxTokens        int         `env:"LLM_MAX_TOKENS" envDefault:"300"`
	Temperature      float64     `env:"LLM_TEMPERATURE" envDefault:"0.7"` // 0 is sent as-is, not as the server default
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Chat
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`
	HistoryPolicy    string `env:"CHAT_HISTORY_POLICY" envDefault:"full"`

	// Session storage
	SessionStore string        `env:"SESSION_STORE" envDefault:"memory"`
	RedisAddr    string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB      int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Logging and interaction log
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/log.jsonl"`
	AppLogPath  string `env:"APP_LOG_PATH"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Telegram frontend, disabled when the token is empty
	TelegramBotToken  string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers      []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID       int64   `env:"ADMIN_USER"`
	AllowlistFilePath string  `env:"ALLOWLIST_FILE_PATH" envDefault:"data/allowlist.json"`
	PendingFilePath   string  `env:"PENDING_FILE_PATH" envDefault:"data/pending.json"`
	MessageParseMode  string  `env:"MESSAGE_PARSE_MODE"`

	DailyReportCron string `env:"DAILY_REPORT_CRON" envDefault:"0 21 * * *"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLMProvider)
	}
	switch c.HistoryPolicy {
	case HistoryFull, HistorySingle:
	default:
		return fmt.Errorf("unknown chat history policy: %q", c.HistoryPolicy)
	}
	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown session store: %q", c.SessionStore)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}

func (c *Config) TelegramEnabled() bool { return c.TelegramBotToken != "" }
