package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv         = "NEWSRELAY_CONFIG"
	cryptoPanicAPIKeyEnv  = "CRYPTOPANIC_API_KEY"
	telegramTokenEnv      = "TELEGRAM_TOKEN"
	telegramGroupIDEnv    = "TG_GROUP_ID"
	telegramTopicIDEnv    = "TG_TOPIC_ID"
	logLevelEnv           = "LOG_LEVEL"
	historyPathEnv        = "HISTORY_PATH"
	firstRunPolicyEnv     = "FIRST_RUN_POLICY"
	translationEnabledEnv = "TRANSLATION_ENABLED"
	translationTargetEnv  = "TRANSLATION_TARGET"
	chatGPTAPIKeyEnv      = "CHATGPT_API_KEY"

	defaultChatID  = "-1002236857439"
	defaultTopicID = 62124

	seedPolicy    = "seed"
	catchUpPolicy = "catchup"
)

// Translation providers.
const (
	ProviderGoogle  = "google"
	ProviderChatGPT = "chatgpt"
)

// Config holds high-level settings required across the application.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Translation TranslationConfig `yaml:"translation"`
	History     HistoryConfig     `yaml:"history"`
	FirstRun    FirstRunConfig    `yaml:"firstRun"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SourceConfig describes the CryptoPanic query.
type SourceConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	Kind     string `yaml:"kind"`
	Regions  string `yaml:"regions"`
	Public   bool   `yaml:"-"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken     string `yaml:"botToken"`
	ChatID       string `yaml:"chatId"`
	TopicID      int    `yaml:"topicId"`
	ReadMoreText string `yaml:"readMoreText"`
	APIEndpoint  string `yaml:"apiEndpoint"`
}

// TranslationConfig toggles title translation.
type TranslationConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Provider       string        `yaml:"provider"`
	Target         string        `yaml:"target"`
	GoogleEndpoint string        `yaml:"googleEndpoint"`
	ChatGPT        ChatGPTConfig `yaml:"chatgpt"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// HistoryConfig points at the sent-ids file.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// FirstRunConfig selects the startup policy.
type FirstRunConfig struct {
	Policy      string `yaml:"policy"`
	CatchUpSize int    `yaml:"catchUpSize"`
}

// SchedulerConfig defines the delay between cycles.
type SchedulerConfig struct {
	Interval string `yaml:"interval"`
}

// HTTPConfig bounds outbound calls.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Validate reports every missing or invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Source.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s is required", cryptoPanicAPIKeyEnv))
	}
	if c.Source.Endpoint == "" {
		errs = append(errs, errors.New("source.endpoint is required"))
	}
	if c.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", telegramTokenEnv))
	}
	if c.Telegram.ChatID == "" {
		errs = append(errs, fmt.Errorf("%s is required", telegramGroupIDEnv))
	}
	if c.Telegram.TopicID < 0 {
		errs = append(errs, fmt.Errorf("telegram.topicId must not be negative, got %d", c.Telegram.TopicID))
	}
	if c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required"))
	}
	if c.FirstRun.CatchUpSize < 0 {
		errs = append(errs, fmt.Errorf("firstRun.catchUpSize must not be negative, got %d", c.FirstRun.CatchUpSize))
	}
	if c.FirstRun.Policy == catchUpPolicy && !c.Translation.Enabled {
		errs = append(errs, fmt.Errorf("firstRun.policy %q translates titles, set %s=true or use %q", catchUpPolicy, translationEnabledEnv, seedPolicy))
	}
	if c.Scheduler.Interval == "" {
		errs = append(errs, errors.New("scheduler.interval is required"))
	}

	if c.Translation.Enabled {
		if _, err := language.Parse(c.Translation.Target); err != nil {
			errs = append(errs, fmt.Errorf("translation.target %q: %w", c.Translation.Target, err))
		}
		switch c.Translation.Provider {
		case ProviderGoogle:
		case ProviderChatGPT:
			if c.Translation.ChatGPT.APIKey == "" {
				errs = append(errs, fmt.Errorf("%s is required for the chatgpt provider", chatGPTAPIKeyEnv))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown translation provider %q", c.Translation.Provider))
		}
	}

	return errors.Join(errs...)
}

// TargetLocale returns the canonical BCP 47 form of the translation target.
func (t TranslationConfig) TargetLocale() string {
	tag, err := language.Parse(t.Target)
	if err != nil {
		return t.Target
	}
	return tag.String()
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(cryptoPanicAPIKeyEnv); v != "" {
		c.Source.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramGroupIDEnv); v != "" {
		c.Telegram.ChatID = v
	}

	if v := os.Getenv(telegramTopicIDEnv); v != "" {
		if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Telegram.TopicID = id
		} else {
			log.Printf("config: invalid %s %q, keeping %d", telegramTopicIDEnv, v, c.Telegram.TopicID)
		}
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(historyPathEnv); v != "" {
		c.History.Path = v
	}

	if v := os.Getenv(firstRunPolicyEnv); v != "" {
		c.FirstRun.Policy = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(translationEnabledEnv); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Translation.Enabled = enabled
		} else {
			log.Printf("config: invalid %s %q, keeping %t", translationEnabledEnv, v, c.Translation.Enabled)
		}
	}

	if v := os.Getenv(translationTargetEnv); v != "" {
		c.Translation.Target = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.Translation.ChatGPT.APIKey = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Source.Endpoint != "" {
		base.Source.Endpoint = override.Source.Endpoint
	}
	if override.Source.APIKey != "" {
		base.Source.APIKey = override.Source.APIKey
	}
	if override.Source.Kind != "" {
		base.Source.Kind = override.Source.Kind
	}
	if override.Source.Regions != "" {
		base.Source.Regions = override.Source.Regions
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}
	if override.Telegram.TopicID != 0 {
		base.Telegram.TopicID = override.Telegram.TopicID
	}
	if override.Telegram.ReadMoreText != "" {
		base.Telegram.ReadMoreText = override.Telegram.ReadMoreText
	}
	if override.Telegram.APIEndpoint != "" {
		base.Telegram.APIEndpoint = override.Telegram.APIEndpoint
	}

	if override.Translation.Enabled {
		base.Translation.Enabled = true
	}
	if override.Translation.Provider != "" {
		base.Translation.Provider = override.Translation.Provider
	}
	if override.Translation.Target != "" {
		base.Translation.Target = override.Translation.Target
	}
	if override.Translation.GoogleEndpoint != "" {
		base.Translation.GoogleEndpoint = override.Translation.GoogleEndpoint
	}
	if override.Translation.ChatGPT.Endpoint != "" {
		base.Translation.ChatGPT.Endpoint = override.Translation.ChatGPT.Endpoint
	}
	if override.Translation.ChatGPT.Model != "" {
		base.Translation.ChatGPT.Model = override.Translation.ChatGPT.Model
	}
	if override.Translation.ChatGPT.APIKey != "" {
		base.Translation.ChatGPT.APIKey = override.Translation.ChatGPT.APIKey
	}
	if override.Translation.ChatGPT.SystemPrompt != "" {
		base.Translation.ChatGPT.SystemPrompt = override.Translation.ChatGPT.SystemPrompt
	}

	if override.History.Path != "" {
		base.History.Path = override.History.Path
	}

	if override.FirstRun.Policy != "" {
		base.FirstRun.Policy = override.FirstRun.Policy
	}
	if override.FirstRun.CatchUpSize != 0 {
		base.FirstRun.CatchUpSize = override.FirstRun.CatchUpSize
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.HTTP.Timeout != 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Endpoint: "https://cryptopanic.com/api/v1/posts/",
			Kind:     "news",
			Regions:  "pt",
			Public:   true,
		},
		Telegram: TelegramConfig{
			ChatID:       defaultChatID,
			TopicID:      defaultTopicID,
			ReadMoreText: "Leia mais",
			APIEndpoint:  "https://api.telegram.org/bot%s/%s",
		},
		Translation: TranslationConfig{
			Enabled:  false,
			Provider: ProviderGoogle,
			Target:   "pt",
			ChatGPT: ChatGPTConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
			},
		},
		History:   HistoryConfig{Path: "sent_news.json"},
		FirstRun:  FirstRunConfig{Policy: seedPolicy, CatchUpSize: 5},
		Scheduler: SchedulerConfig{Interval: "60s"},
		HTTP:      HTTPConfig{Timeout: 30 * time.Second},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
