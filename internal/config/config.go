package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	AppName        string   `env:"APP_NAME" envDefault:"hrbooteh"`
	Environment    string   `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort       string   `env:"HTTP_PORT" envDefault:"8000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173,http://localhost:8080"`

	DatabaseURL string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"30"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"10080"`

	// ResponderKind selecciona Responder/Analyzer al arrancar: "scripted" o "llm".
	ResponderKind         string        `env:"RESPONDER_KIND" envDefault:"scripted"`
	ResponderTurnLimit    int           `env:"RESPONDER_TURN_THRESHOLD" envDefault:"5"`
	ResponderMaxUserTurns int           `env:"RESPONDER_MAX_USER_TURNS" envDefault:"12"`
	ResultsCacheSize      int           `env:"RESULTS_CACHE_SIZE" envDefault:"512"`
	LLMProvider           string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMAPIKey             string        `env:"LLM_API_KEY"`
	LLMBaseURL            string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel              string        `env:"LLM_MODEL"`
	LLMTimeout            time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMMaxAttempts        int           `env:"LLM_MAX_ATTEMPTS" envDefault:"3"`
	LLMRetryBaseDelay     time.Duration `env:"LLM_RETRY_BASE_DELAY" envDefault:"300ms"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"10m"`
	LoginRateMax    int           `env:"LOGIN_RATE_MAX" envDefault:"10"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) UseLLM() bool {
	return c.ResponderKind == "llm"
}
