package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrNoToken возвращается, если токен бота не задан ни в окружении, ни в файле.
var ErrNoToken = errors.New("telegram token is not configured")

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	TZ       string `envconfig:"TZ" default:"UTC"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		TokenFile  string `envconfig:"TG_BOT_TOKEN_FILE" default:"token.txt"`
		Mode       string `envconfig:"TG_MODE" default:"polling"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`

		// Секрет для setWebhook, Telegram возвращает его в заголовке каждого апдейта.
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
	} `envconfig:""`

	Puzzles struct {
		Dataset string `envconfig:"PUZZLES_CSV" default:"top_1000_puzzles.csv"`
		BaseURL string `envconfig:"PUZZLE_BASE_URL" default:"https://lichess.org/training/"`
	} `envconfig:""`

	Schedule struct {
		DailyTime string `envconfig:"DAILY_TIME" default:"09:00"`
		Policy    string `envconfig:"DAILY_POLICY" default:"first"`
	} `envconfig:""`

	Registry struct {
		Backend string `envconfig:"REGISTRY_BACKEND" default:"file"`
		File    string `envconfig:"REGISTRY_FILE" default:"used_puzzles.json"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queue struct {
		Backend   string `envconfig:"QUEUE_BACKEND" default:"memory"`
		Key       string `envconfig:"DELIVERY_QUEUE_KEY" default:"delivery_jobs"`
		RabbitURL string `envconfig:"RABBITMQ_URL"`
	} `envconfig:""`

	Render struct {
		Dir  string `envconfig:"RENDER_DIR"`
		Size int    `envconfig:"RENDER_SIZE" default:"400"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения (и .env, если он есть).
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг и проверяет значения, которые envconfig проверить не может.
func Parse() (AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	if _, err := time.Parse("15:04", cfg.Schedule.DailyTime); err != nil {
		return AppConfig{}, fmt.Errorf("неверный DAILY_TIME %q: %w", cfg.Schedule.DailyTime, err)
	}
	if err := oneOf("TG_MODE", cfg.Telegram.Mode, "polling", "webhook"); err != nil {
		return AppConfig{}, err
	}
	if cfg.Telegram.Mode == "webhook" && !validWebhookSecret(cfg.Telegram.WebhookSecret) {
		return AppConfig{}, fmt.Errorf("TG_MODE=webhook требует TG_WEBHOOK_SECRET из 1-256 символов A-Z, a-z, 0-9, _ и -")
	}
	if err := oneOf("DAILY_POLICY", cfg.Schedule.Policy, "first", "random"); err != nil {
		return AppConfig{}, err
	}
	if err := oneOf("REGISTRY_BACKEND", cfg.Registry.Backend, "file", "postgres"); err != nil {
		return AppConfig{}, err
	}
	if err := oneOf("QUEUE_BACKEND", cfg.Queue.Backend, "memory", "redis", "rabbitmq"); err != nil {
		return AppConfig{}, err
	}
	if cfg.Render.Size <= 0 {
		return AppConfig{}, fmt.Errorf("RENDER_SIZE должен быть положительным")
	}
	return cfg, nil
}

// ResolveToken возвращает токен из TG_BOT_TOKEN или из файла TG_BOT_TOKEN_FILE.
func (c AppConfig) ResolveToken() (string, error) {
	if token := strings.TrimSpace(c.Telegram.Token); token != "" {
		return token, nil
	}
	if c.Telegram.TokenFile == "" {
		return "", ErrNoToken
	}
	data, err := os.ReadFile(c.Telegram.TokenFile)
	if err != nil {
		return "", fmt.Errorf("чтение %s: %w", c.Telegram.TokenFile, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("неверный %s %q: ожидается одно из %s", name, value, strings.Join(allowed, ", "))
}

func validWebhookSecret(secret string) bool {
	if secret == "" || len(secret) > 256 {
		return false
	}
	for _, r := range secret {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
