package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"UTC"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token          string `envconfig:"TG_BOT_TOKEN"`
		DefaultChannel string `envconfig:"TG_DEFAULT_CHANNEL"`
	} `envconfig:""`

	OpenRouter struct {
		APIKey          string `envconfig:"OPENROUTER_API_KEY"`
		BaseURL         string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
		PrimaryModel    string `envconfig:"OPENROUTER_PRIMARY_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
		BackupModel     string `envconfig:"OPENROUTER_BACKUP_MODEL" default:"google/gemini-2.0-flash-exp:free"`
		LastResortModel string `envconfig:"OPENROUTER_LAST_RESORT_MODEL" default:"meta-llama/llama-3.3-70b-instruct:free"`
		Referer         string `envconfig:"OPENROUTER_REFERER" default:"https://github.com/Alexey777abakan/bothi"`
		AppTitle        string `envconfig:"OPENROUTER_APP_TITLE" default:"Publikator"`
	} `envconfig:""`

	Mistral struct {
		APIKey  string `envconfig:"MISTRAL_API_KEY"`
		BaseURL string `envconfig:"MISTRAL_BASE_URL" default:"https://api.mistral.ai/v1"`
		Model   string `envconfig:"MISTRAL_MODEL" default:"mistral-large-latest"`
	} `envconfig:""`

	Flux struct {
		APIKey     string `envconfig:"FLUX_API_KEY"`
		PrimaryURL string `envconfig:"FLUX_PRIMARY_URL" default:"https://fal.run/fal-ai/flux/schnell"`
		MirrorURL  string `envconfig:"FLUX_MIRROR_URL" default:"https://110011.fal.ai/fal-ai/flux/schnell"`
	} `envconfig:""`

	Imgur struct {
		ClientID string `envconfig:"IMGUR_CLIENT_ID"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Rabbit struct {
		URL string `envconfig:"RABBIT_URL"`
	} `envconfig:""`

	Queues struct {
		Driver     string `envconfig:"QUEUE_DRIVER" default:"redis"`
		Generation string `envconfig:"GENERATION_QUEUE_KEY" default:"generation_jobs"`
	} `envconfig:""`

	Limits struct {
		MaxPostLength    int `envconfig:"MAX_POST_LENGTH" default:"950"`
		MaxCaptionLength int `envconfig:"MAX_CAPTION_LENGTH" default:"1024"`
		MonthlyPosts     int `envconfig:"MONTHLY_POSTS_LIMIT" default:"30"`
		FreeTrialPosts   int `envconfig:"FREE_TRIAL_POSTS" default:"3"`
	} `envconfig:""`

	Metrics struct {
		Addr string `envconfig:"METRICS_ADDR" default:":9090"`
	} `envconfig:""`

	Schedule struct {
		SweepInterval time.Duration `envconfig:"SCHEDULE_SWEEP_INTERVAL" default:"5m"`
		RetentionDays int           `envconfig:"POST_RETENTION_DAYS" default:"7"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
