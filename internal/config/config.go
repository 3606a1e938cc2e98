package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Digest   Digest   `mapstructure:"digest"`
	Feeds    Feeds    `mapstructure:"feeds"`
	Output   Output   `mapstructure:"output"`
	Email    Email    `mapstructure:"email"`
	Telegram Telegram `mapstructure:"telegram"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// AI holds model backend configuration. Backend selects which implementation
// drives the digest generation: "gemini" (structured API call) or "cli"
// (local subprocess).
type AI struct {
	Backend string       `mapstructure:"backend"`
	Gemini  GeminiConfig `mapstructure:"gemini"`
	CLI     CLIConfig    `mapstructure:"cli"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// CLIConfig holds the subprocess backend configuration. Command is invoked
// with Args followed by the prompt as the final argument; its full standard
// output is read after exit.
type CLIConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Model   string   `mapstructure:"model"`
	Timeout string   `mapstructure:"timeout"`
}

// Digest holds the generation policy for one digest run.
type Digest struct {
	MaxAttempts              int    `mapstructure:"max_attempts"`
	MaxArticlesPerCategory   int    `mapstructure:"max_articles_per_category"`
	MaxSelectionsPerCategory int    `mapstructure:"max_selections_per_category"`
	Language                 string `mapstructure:"language"`
	SelectionPolicy          string `mapstructure:"selection_policy"` // "newest" or "first_seen"
	PromptTemplate           string `mapstructure:"prompt_template"`  // path; empty uses the built-in template
}

// Feeds holds RSS/feed configuration
type Feeds struct {
	SourcesFile string `mapstructure:"sources_file"`
	WindowHours int    `mapstructure:"window_hours"`
	MaxPerFeed  int    `mapstructure:"max_per_feed"`
	Timeout     string `mapstructure:"timeout"`
	UserAgent   string `mapstructure:"user_agent"`
}

// Output holds output configuration
type Output struct {
	Directory string `mapstructure:"directory"`
}

// Email holds email delivery configuration
type Email struct {
	SMTP        SMTPConfig `mapstructure:"smtp"`
	FromAddress string     `mapstructure:"from_address"`
	FromName    string     `mapstructure:"from_name"`
	To          []string   `mapstructure:"to"`
	Subject     string     `mapstructure:"subject"`
}

// SMTPConfig holds SMTP configuration. Port 465 uses implicit TLS; other
// ports use STARTTLS.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Telegram holds Telegram bot delivery configuration
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsdigest")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	// AI defaults
	viper.SetDefault("ai.backend", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "120s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.3)
	viper.SetDefault("ai.cli.command", "claude")
	viper.SetDefault("ai.cli.timeout", "300s")

	// Digest defaults
	viper.SetDefault("digest.max_attempts", 3)
	viper.SetDefault("digest.max_articles_per_category", 15)
	viper.SetDefault("digest.max_selections_per_category", 5)
	viper.SetDefault("digest.language", "English")
	viper.SetDefault("digest.selection_policy", "newest")

	// Feeds defaults
	viper.SetDefault("feeds.sources_file", "sources.yaml")
	viper.SetDefault("feeds.window_hours", 24)
	viper.SetDefault("feeds.max_per_feed", 4)
	viper.SetDefault("feeds.timeout", "15s")
	viper.SetDefault("feeds.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	// Output defaults
	viper.SetDefault("output.directory", "digests")

	// Email defaults
	viper.SetDefault("email.smtp.host", "smtp.gmail.com")
	viper.SetDefault("email.smtp.port", 465)
	viper.SetDefault("email.from_name", "News Digest")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.backend", []string{
		"NEWSDIGEST_BACKEND",
		"DIGEST_BACKEND",
	})

	// Gemini API key - support multiple formats
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.cli.model", []string{
		"CLI_MODEL",
	})

	// Email SMTP
	bindEnvKeys("email.smtp.username", []string{
		"SMTP_USERNAME",
		"GMAIL_USER",
	})

	bindEnvKeys("email.smtp.password", []string{
		"SMTP_PASSWORD",
		"GMAIL_APP_PASSWORD",
	})

	bindEnvKeys("telegram.bot_token", []string{
		"TELEGRAM_BOT_TOKEN",
	})

	bindEnvKeys("telegram.chat_id", []string{
		"TELEGRAM_CHAT_ID",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"NEWSDIGEST_DEBUG",
	})

	// Comma-separated recipient list
	if to := os.Getenv("EMAIL_TO"); to != "" {
		var recipients []string
		for _, addr := range strings.Split(to, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				recipients = append(recipients, addr)
			}
		}
		viper.Set("email.to", recipients)
	}
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig ensures required configuration is present and well-formed
func validateConfig(config *Config) error {
	var errors []string

	switch config.AI.Backend {
	case "gemini":
		if config.AI.Gemini.APIKey == "" {
			errors = append(errors, "Gemini API key is required for the gemini backend. Set GEMINI_API_KEY or ai.gemini.api_key")
		}
	case "cli":
		if config.AI.CLI.Command == "" {
			errors = append(errors, "ai.cli.command is required for the cli backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown AI backend: %s. Supported: gemini, cli", config.AI.Backend))
	}

	switch config.Digest.SelectionPolicy {
	case "newest", "first_seen":
	default:
		errors = append(errors, fmt.Sprintf("Unknown selection policy: %s. Supported: newest, first_seen", config.Digest.SelectionPolicy))
	}

	if config.Digest.MaxAttempts < 1 {
		errors = append(errors, "digest.max_attempts must be at least 1")
	}

	durations := map[string]string{
		"ai.gemini.timeout": config.AI.Gemini.Timeout,
		"ai.cli.timeout":    config.AI.CLI.Timeout,
		"feeds.timeout":     config.Feeds.Timeout,
	}
	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				errors = append(errors, fmt.Sprintf("invalid duration for %s: %s", key, duration))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Duration parses a duration config value, falling back to def when unset or
// invalid.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// Convenience getters for commonly used configuration values
func GetAI() AI             { return Get().AI }
func GetDigest() Digest     { return Get().Digest }
func GetFeeds() Feeds       { return Get().Feeds }
func GetEmail() Email       { return Get().Email }
func GetTelegram() Telegram { return Get().Telegram }
func IsDebugMode() bool     { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
