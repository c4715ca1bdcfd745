package config

import (
	"os"
	"time"

	"github.com/dimitrije/nikode-engine/internal/dispatch"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	JWTSecret       string
	JWTAccessExpiry time.Duration

	Proxy ProxyConfig

	DraftDebounce time.Duration

	// SecretsKey is the hex encoded 32-byte key secrets are sealed with.
	SecretsKey string
}

type ProxyConfig struct {
	URL     string
	FormURL string
	Grace   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	accessExpiry, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	debounce, err := time.ParseDuration(getEnv("DRAFT_DEBOUNCE", "1s"))
	if err != nil || debounce <= 0 {
		debounce = time.Second
	}

	grace, err := time.ParseDuration(getEnv("PROXY_GRACE", "10s"))
	if err != nil {
		grace = 10 * time.Second
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:       getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry: accessExpiry,

		Proxy: ProxyConfig{
			URL:     getEnv("PROXY_URL", "http://localhost:3001/api/proxy"),
			FormURL: getEnv("PROXY_FORM_URL", "http://localhost:3001/api/proxy/form"),
			Grace:   grace,
		},

		DraftDebounce: debounce,

		SecretsKey: getEnvOrPanic("SECRETS_KEY"),
	}, nil
}

// DatabaseURL reads only the database location, for tools that do not serve
// HTTP and so have no JWT or secrets key configured.
func DatabaseURL() string {
	_ = godotenv.Load()
	return getEnv("DATABASE_URL", "")
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Transport is the proxy location handed to the dispatcher.
func (c *Config) Transport() dispatch.TransportConfig {
	return dispatch.TransportConfig{
		ProxyURL:     c.Proxy.URL,
		FormProxyURL: c.Proxy.FormURL,
		Grace:        c.Proxy.Grace,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
