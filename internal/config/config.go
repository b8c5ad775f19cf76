package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	BotUsername string
	PromptDir   string

	// DefaultLanguage is used for free-standing /getprompt draws; each
	// session carries its own language tag.
	DefaultLanguage string

	// AsyncMatchTTL is the voting window for free-standing matches; a
	// poll closing after it reports the match as expired.
	AsyncMatchTTL time.Duration

	// ShellExecEnabled wires the private "ex" passthrough. Off unless
	// explicitly turned on.
	ShellExecEnabled bool
}

// Load reads configuration from the environment, with .env as a fallback
// for local runs.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:            getenv("ADDR", ":8080"),
		BotUsername:     getenv("BOT_USERNAME", "quip_bot"),
		PromptDir:       getenv("PROMPT_DIR", "prompts"),
		DefaultLanguage: getenv("DEFAULT_LANG", "ru"),
		AsyncMatchTTL:   24 * time.Hour,
	}

	if raw := os.Getenv("ASYNC_MATCH_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ASYNC_MATCH_TTL: %w", err)
		}
		cfg.AsyncMatchTTL = ttl
	}

	cfg.ShellExecEnabled = os.Getenv("SHELL_EXEC_ENABLED") == "true"
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
