package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory  = "memory"
	StoreCouchDB = "couchdb"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Client    ClientConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type StoreConfig struct {
	Kind             string
	MemoryExpiration time.Duration
	JanitorInterval  time.Duration
	CircuitBreaker   bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnections  int
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type LoggingConfig struct {
	Level string
}

// ClientConfig is read by cmd/boardclient.
type ClientConfig struct {
	ServerURL    string
	SaveInterval time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	memExp, err := time.ParseDuration(getEnv("MEMORY_EXPIRATION", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEMORY_EXPIRATION: %w", err)
	}

	janitor, err := time.ParseDuration(getEnv("MEMORY_JANITOR_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEMORY_JANITOR_INTERVAL: %w", err)
	}

	saveInterval, err := time.ParseDuration(getEnv("CLIENT_SAVE_INTERVAL", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLIENT_SAVE_INTERVAL: %w", err)
	}

	pongWait, err := time.ParseDuration(getEnv("WS_PONG_WAIT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_PONG_WAIT: %w", err)
	}

	store := strings.ToLower(getEnv("STORE", StoreMemory))
	if store != StoreMemory && store != StoreCouchDB {
		return nil, fmt.Errorf("invalid STORE %q: want %s or %s", store, StoreMemory, StoreCouchDB)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Store: StoreConfig{
			Kind:             store,
			MemoryExpiration: memExp,
			JanitorInterval:  janitor,
			CircuitBreaker:   getEnvAsBool("STORE_CIRCUIT_BREAKER", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5984"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "eventstorming"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			SendBufferSize:  getEnvAsInt("WS_SEND_BUFFER_SIZE", 256),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 1048576)),
			WriteWait:       10 * time.Second,
			PongWait:        pongWait,
			PingPeriod:      pongWait * 9 / 10,
			MaxConnections:  getEnvAsInt("WS_MAX_CONNECTIONS", 1000),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS"),
			AllowedHeaders: getEnvAsList("CORS_ALLOWED_HEADERS", "Content-Type"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Client: ClientConfig{
			ServerURL:    getEnv("SERVER_URL", "http://localhost:8080"),
			SaveInterval: saveInterval,
		},
	}, nil
}

func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", c.User, c.Password, c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
