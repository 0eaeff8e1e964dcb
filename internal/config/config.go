package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Env   string
	Debug bool

	ServerPort      string
	AppBaseURL      string
	StaticFilesPath string
	TemplatesPath   string

	// Remote EcoQuest API
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Local client-state database
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	SessionSecret   string
	SessionDuration time.Duration

	// Missions
	SecretCodeDefault string
	SecretCodes       map[string]string // task ID -> code
	RedirectDelay     time.Duration

	// Devices
	ScanRetryDelay        time.Duration
	ScanDebounce          time.Duration
	ControllerIdleTimeout time.Duration
	CameraDir             string // kiosk snapshot directory; empty uses browser uploads

	// Email digest (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	RollbarToken string
}

// Load reads configuration from the environment (and an optional .env file) with sensible defaults
func Load() *Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("Failed to load %s: %v", envFile, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("DEBUG", false)
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("STATIC_PATH", "./static")
	v.SetDefault("TEMPLATES_PATH", "./internal/templates")
	v.SetDefault("API_BASE_URL", "http://127.0.0.1:8000")
	v.SetDefault("API_TOKEN", "")
	v.SetDefault("API_TIMEOUT", 15*time.Second)
	v.SetDefault("DATABASE_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "./ecoquest.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "./migrations")
	v.SetDefault("SESSION_SECRET", "change-me-ecoquest-session-secret")
	v.SetDefault("SESSION_DURATION", 24*time.Hour)
	v.SetDefault("SECRET_CODE_DEFAULT", "OAK-123")
	v.SetDefault("SECRET_CODES", "")
	v.SetDefault("REDIRECT_DELAY", 2*time.Second)
	v.SetDefault("SCAN_RETRY_DELAY", 2*time.Second)
	v.SetDefault("SCAN_DEBOUNCE", 3*time.Second)
	v.SetDefault("CONTROLLER_IDLE_TIMEOUT", 15*time.Minute)
	v.SetDefault("CAMERA_DIR", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SES_FROM_EMAIL", "")
	v.SetDefault("SES_FROM_NAME", "EcoQuest")
	v.SetDefault("ROLLBAR_TOKEN", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Env:                   strings.ToLower(v.GetString("ENV")),
		Debug:                 v.GetBool("DEBUG"),
		ServerPort:            v.GetString("PORT"),
		AppBaseURL:            strings.TrimSuffix(v.GetString("APP_BASE_URL"), "/"),
		StaticFilesPath:       v.GetString("STATIC_PATH"),
		TemplatesPath:         v.GetString("TEMPLATES_PATH"),
		APIBaseURL:            strings.TrimSuffix(v.GetString("API_BASE_URL"), "/"),
		APIToken:              v.GetString("API_TOKEN"),
		APITimeout:            v.GetDuration("API_TIMEOUT"),
		DatabaseType:          v.GetString("DATABASE_TYPE"),
		DatabasePath:          v.GetString("DB_PATH"),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		MigrationsPath:        v.GetString("MIGRATIONS_PATH"),
		SessionSecret:         v.GetString("SESSION_SECRET"),
		SessionDuration:       v.GetDuration("SESSION_DURATION"),
		SecretCodeDefault:     v.GetString("SECRET_CODE_DEFAULT"),
		SecretCodes:           ParseSecretCodes(v.GetString("SECRET_CODES")),
		RedirectDelay:         v.GetDuration("REDIRECT_DELAY"),
		ScanRetryDelay:        v.GetDuration("SCAN_RETRY_DELAY"),
		ScanDebounce:          v.GetDuration("SCAN_DEBOUNCE"),
		ControllerIdleTimeout: v.GetDuration("CONTROLLER_IDLE_TIMEOUT"),
		CameraDir:             v.GetString("CAMERA_DIR"),
		AWSRegion:             v.GetString("AWS_REGION"),
		SESFromEmail:          v.GetString("SES_FROM_EMAIL"),
		SESFromName:           v.GetString("SES_FROM_NAME"),
		RollbarToken:          v.GetString("ROLLBAR_TOKEN"),
	}
}

// ParseSecretCodes parses "taskID=CODE,taskID=CODE" into a map. Malformed pairs are skipped.
func ParseSecretCodes(s string) map[string]string {
	codes := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		id, code, ok := strings.Cut(strings.TrimSpace(pair), "=")
		id, code = strings.TrimSpace(id), strings.TrimSpace(code)
		if !ok || id == "" || code == "" {
			continue
		}
		codes[id] = code
	}
	return codes
}

// SecretCodeFor returns the secret code configured for a task, falling back to the default
func (c *Config) SecretCodeFor(taskID string) string {
	if code, ok := c.SecretCodes[taskID]; ok {
		return code
	}
	return c.SecretCodeDefault
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}
