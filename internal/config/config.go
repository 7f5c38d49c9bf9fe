package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Upper bounds of the numbered credential env vars (GEMINI_API_KEY_2 .. GEMINI_API_KEY_13).
const (
	MaxGeminiKeys     = 13
	MaxOpenRouterKeys = 4
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Redis      RedisConfig
	Providers  ProvidersConfig
	Generation GenerationConfig
	Modules    []ModuleConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Level string
	Env   string
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProvidersConfig struct {
	Timeout    time.Duration
	Local      LocalConfig
	Backend    BackendConfig
	Gemini     GeminiConfig
	AIML       AIMLConfig
	OpenRouter OpenRouterConfig
	Anthropic  AnthropicConfig
}

// LocalConfig points at an Ollama server used as the first step of the client chain.
type LocalConfig struct {
	Enabled   bool
	ServerURL string
	Model     string
}

// BackendConfig is a remote sentinel whose /api/chat replaces the in-process server chain.
type BackendConfig struct {
	URL string
}

type GeminiConfig struct {
	BaseURL string
	Model   string
	Keys    []string
}

type AIMLConfig struct {
	BaseURL   string
	Model     string
	Key       string
	MaxTokens int
}

type OpenRouterConfig struct {
	BaseURL string
	Models  []string
	Keys    []string
	Referer string
	Title   string
}

type AnthropicConfig struct {
	Key       string
	BaseURL   string
	Model     string
	MaxTokens int64
}

type GenerationConfig struct {
	BatchSize          int
	Stagger            time.Duration
	FlashcardStagger   time.Duration
	NotesStagger       time.Duration
	Cooldown           time.Duration
	BatchRetries       int
	RetryBackoff       time.Duration
	CacheCapacity      int
	CCEEQuestions      int
	PracticeQuestions  int
	FlashcardsPerBatch int
	FlashcardBatches   int
}

type ModuleConfig struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Topics []string `yaml:"topics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 60)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "development")

	v.SetDefault("providers.timeout", 60)
	v.SetDefault("providers.local.server_url", "http://localhost:11434")
	v.SetDefault("providers.local.model", "llama3.2")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	v.SetDefault("providers.aiml.base_url", "https://api.aimlapi.com/v1")
	v.SetDefault("providers.aiml.model", "gpt-3.5-turbo")
	v.SetDefault("providers.aiml.max_tokens", 4096)
	v.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.openrouter.models", []string{
		"google/gemini-2.0-flash-exp:free",
		"mistralai/mistral-7b-instruct:free",
		"google/gemma-2-9b-it:free",
	})
	v.SetDefault("providers.openrouter.referer", "https://ccee-sentinel.app")
	v.SetDefault("providers.openrouter.title", "CCEE Sentinel")
	v.SetDefault("providers.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("providers.anthropic.max_tokens", 4096)

	v.SetDefault("generation.batch_size", 10)
	v.SetDefault("generation.stagger_ms", 100)
	v.SetDefault("generation.flashcard_stagger_ms", 200)
	v.SetDefault("generation.notes_stagger_ms", 300)
	v.SetDefault("generation.cooldown_ms", 3000)
	v.SetDefault("generation.batch_retries", 2)
	v.SetDefault("generation.retry_backoff_ms", 4000)
	v.SetDefault("generation.cache_capacity", 5)
	v.SetDefault("generation.ccee_questions", 40)
	v.SetDefault("generation.practice_questions", 10)
	v.SetDefault("generation.flashcards_per_batch", 5)
	v.SetDefault("generation.flashcard_batches", 3)
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: v.GetDuration("server.write_timeout") * time.Second,
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Providers: ProvidersConfig{
			Timeout: v.GetDuration("providers.timeout") * time.Second,
			Local: LocalConfig{
				Enabled:   v.GetBool("providers.local.enabled"),
				ServerURL: v.GetString("providers.local.server_url"),
				Model:     v.GetString("providers.local.model"),
			},
			Backend: BackendConfig{URL: v.GetString("providers.backend.url")},
			Gemini: GeminiConfig{
				BaseURL: v.GetString("providers.gemini.base_url"),
				Model:   v.GetString("providers.gemini.model"),
				Keys:    v.GetStringSlice("providers.gemini.keys"),
			},
			AIML: AIMLConfig{
				BaseURL:   v.GetString("providers.aiml.base_url"),
				Model:     v.GetString("providers.aiml.model"),
				Key:       v.GetString("providers.aiml.key"),
				MaxTokens: v.GetInt("providers.aiml.max_tokens"),
			},
			OpenRouter: OpenRouterConfig{
				BaseURL: v.GetString("providers.openrouter.base_url"),
				Models:  v.GetStringSlice("providers.openrouter.models"),
				Keys:    v.GetStringSlice("providers.openrouter.keys"),
				Referer: v.GetString("providers.openrouter.referer"),
				Title:   v.GetString("providers.openrouter.title"),
			},
			Anthropic: AnthropicConfig{
				Key:       v.GetString("providers.anthropic.key"),
				BaseURL:   v.GetString("providers.anthropic.base_url"),
				Model:     v.GetString("providers.anthropic.model"),
				MaxTokens: v.GetInt64("providers.anthropic.max_tokens"),
			},
		},
		Generation: GenerationConfig{
			BatchSize:          v.GetInt("generation.batch_size"),
			Stagger:            time.Duration(v.GetInt("generation.stagger_ms")) * time.Millisecond,
			FlashcardStagger:   time.Duration(v.GetInt("generation.flashcard_stagger_ms")) * time.Millisecond,
			NotesStagger:       time.Duration(v.GetInt("generation.notes_stagger_ms")) * time.Millisecond,
			Cooldown:           time.Duration(v.GetInt("generation.cooldown_ms")) * time.Millisecond,
			BatchRetries:       v.GetInt("generation.batch_retries"),
			RetryBackoff:       time.Duration(v.GetInt("generation.retry_backoff_ms")) * time.Millisecond,
			CacheCapacity:      v.GetInt("generation.cache_capacity"),
			CCEEQuestions:      v.GetInt("generation.ccee_questions"),
			PracticeQuestions:  v.GetInt("generation.practice_questions"),
			FlashcardsPerBatch: v.GetInt("generation.flashcards_per_batch"),
			FlashcardBatches:   v.GetInt("generation.flashcard_batches"),
		},
	}

	if err := v.UnmarshalKey("modules", &cfg.Modules); err != nil {
		return nil, fmt.Errorf("failed to decode modules: %w", err)
	}

	// Override with environment variables if set
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = v.GetInt("port")
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		cfg.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}
	if local := os.Getenv("OLLAMA_URL"); local != "" {
		cfg.Providers.Local.ServerURL = local
		cfg.Providers.Local.Enabled = true
	}
	if backend := os.Getenv("BACKEND_URL"); backend != "" {
		cfg.Providers.Backend.URL = backend
	}
	if key := os.Getenv("AI_API_KEY"); key != "" {
		cfg.Providers.AIML.Key = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Providers.Anthropic.Key = key
	}

	cfg.Providers.Gemini.Keys = append(cfg.Providers.Gemini.Keys, NumberedEnv("GEMINI_API_KEY", MaxGeminiKeys)...)
	cfg.Providers.OpenRouter.Keys = append(cfg.Providers.OpenRouter.Keys, NumberedEnv("OPENROUTER_API_KEY", MaxOpenRouterKeys)...)

	return cfg, nil
}

// NumberedEnv collects NAME, NAME_2, ... NAME_max, skipping unset ones.
func NumberedEnv(name string, max int) []string {
	var values []string
	if v := os.Getenv(name); v != "" {
		values = append(values, v)
	}
	for i := 2; i <= max; i++ {
		if v := os.Getenv(fmt.Sprintf("%s_%d", name, i)); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Module returns the configured module with the given id.
func (c *Config) Module(id string) (ModuleConfig, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return ModuleConfig{}, false
}
