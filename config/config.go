package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode       string `mapstructure:"mode"`
	Dotenv     string `mapstructure:"dotenv"`
	Generative struct {
		APIKey          string        `mapstructure:"apiKey"`
		Model           string        `mapstructure:"model"`
		BaseURL         string        `mapstructure:"baseURL"`
		Temperature     float32       `mapstructure:"temperature"`
		MaxOutputTokens int32         `mapstructure:"maxOutputTokens"`
		Timeout         time.Duration `mapstructure:"timeout"`
	} `mapstructure:"generative"`
	Flights struct {
		APIKey        string        `mapstructure:"apiKey"`
		BaseURL       string        `mapstructure:"baseURL"`
		Engine        string        `mapstructure:"engine"`
		Timeout       time.Duration `mapstructure:"timeout"`
		CacheTTL      time.Duration `mapstructure:"cacheTTL"`
		RatePerSecond float64       `mapstructure:"ratePerSecond"`
		Burst         int           `mapstructure:"burst"`
	} `mapstructure:"flights"`
	Planner struct {
		RequestTimeout time.Duration `mapstructure:"requestTimeout"`
		SessionTTL     time.Duration `mapstructure:"sessionTTL"`
	} `mapstructure:"planner"`
	Cache struct {
		Backend string `mapstructure:"backend"`
	} `mapstructure:"cache"`
	Share struct {
		SigningKey    string        `mapstructure:"signingKey"`
		TokenTTL      time.Duration `mapstructure:"tokenTTL"`
		PublicBaseURL string        `mapstructure:"publicBaseURL"`
	} `mapstructure:"share"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Redis struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
	RateLimit struct {
		RequestsPerMinute int `mapstructure:"requestsPerMinute"`
	} `mapstructure:"ratelimit"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
}

// secrets are never committed to config.yml; they only come from the environment.
var envBindings = map[string]string{
	"generative.apiKey":              "GOOGLE_GEMINI_API_KEY",
	"flights.apiKey":                 "SERPAPI_API_KEY",
	"share.signingKey":               "SHARE_SIGNING_KEY",
	"repositories.postgres.host":     "POSTGRES_HOST",
	"repositories.postgres.port":     "POSTGRES_PORT",
	"repositories.postgres.username": "POSTGRES_USER",
	"repositories.postgres.password": "POSTGRES_PASSWORD",
	"repositories.postgres.db":       "POSTGRES_DB",
	"repositories.redis.addr":        "REDIS_ADDR",
	"repositories.redis.password":    "REDIS_PASSWORD",
	"mode":                           "APP_ENV",
	"server.HTTPPort":                "HTTP_PORT",
	"observability.metricsPort":      "METRICS_PORT",
	"share.publicBaseURL":            "SHARE_PUBLIC_BASE_URL",
	"cache.backend":                  "CACHE_BACKEND",
	"generative.model":               "GEMINI_MODEL",
}

func InitConfig() (Config, error) {
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	return load(v)
}

// LoadEmbedded reads only the embedded defaults plus environment overrides.
func LoadEmbedded() (Config, error) {
	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	var config Config

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	// Unmarshal the config into the Config struct
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

// PostgresEnabled reports whether the interaction log has a database to write to.
func (c *Config) PostgresEnabled() bool {
	return c.Repositories.Postgres.Host != ""
}
