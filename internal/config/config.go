package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	Version     string
	AppSecret   string
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	Embedding   EmbeddingConfig
}

// EmbeddingConfig 向量模型配置
type EmbeddingConfig struct {
	Provider  string // ollama / openai / none
	Dimension int
	Timeout   time.Duration

	OllamaHost  string
	OllamaModel string

	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
}

// 支持的向量模型提供方
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Load 加载配置
func Load() *Config {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		dbUser := getEnv("DB_USER", "postgres")
		dbPass := getEnv("DB_PASSWORD", "postgres")
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbName := getEnv("DB_NAME", "movies")
		dbSSL := getEnv("DB_SSLMODE", "disable")

		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)
	}

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		AppSecret:   getEnv("APP_SECRET", ""),
		DatabaseURL: dbURL,
		JWTExpiry:   time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 72)) * time.Hour,
		Port:        getEnv("PORT", "8000"),
		Embedding: EmbeddingConfig{
			Provider:      getEnv("EMBEDDING_PROVIDER", ProviderOllama),
			Dimension:     getEnvInt("EMBEDDING_DIMENSION", 384),
			Timeout:       time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30)) * time.Second,
			OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "all-minilm"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Embedding.Dimension)
	}
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderOpenAI && c.Embedding.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
	}
	return nil
}

// AuthEnabled 设置了 APP_SECRET 时写接口需要 Bearer Token
func (c *Config) AuthEnabled() bool {
	return c.AppSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 非法数字回退到默认值
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}
