package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
	Mode string
}

type RedisCache struct {
	Host         string
	Port         string
	Password     string
	DB           int
	NameCacheTTL time.Duration
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Store struct {
	Driver     string
	TxAttempts int
}

type Auth struct {
	Secret string
	Issuer string
}

type Generator struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type NATS struct {
	URL string
}

type Config struct {
	HTTP      HTTPServer
	Store     Store
	Redis     RedisCache
	Postgres  Postgres
	Auth      Auth
	Generator Generator
	NATS      NATS
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg := &Config{
		HTTP:      *newHTTP(),
		Store:     *newStore(),
		Redis:     *newRedis(),
		Postgres:  *newPostgres(),
		Auth:      *newAuth(),
		Generator: *newGenerator(),
		NATS:      *newNATS(),
	}

	log.Printf("%s backend config : http=%+v store=%+v generator.model=%s", logtag, cfg.HTTP, cfg.Store, cfg.Generator.Model)
	return cfg
}

func newHTTP() *HTTPServer {
	return &HTTPServer{
		Port: getenv("HTTP_PORT", "8080"),
		Host: getenv("HTTP_HOST", "localhost"),
		Mode: getenv("HTTP_MODE", "RW"),
	}
}

func newStore() *Store {
	return &Store{
		Driver:     getenv("STORE_DRIVER", StoreDriverPostgres),
		TxAttempts: getInt("STORE_TX_ATTEMPTS", 5),
	}
}

func newRedis() *RedisCache {
	return &RedisCache{
		Port:         getenv("REDIS_PORT", "6379"),
		Host:         getenv("REDIS_HOST", "redis"),
		Password:     getSecret("REDIS_PASSWORD", "shared"),
		DB:           getInt("REDIS_DB", 0),
		NameCacheTTL: getDuration("NAME_CACHE_TTL", 10*time.Minute),
	}
}

func newPostgres() *Postgres {
	return &Postgres{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "admin"),
		Password: getSecret("DB_PASSWORD", "shared"),
		DBName:   getenv("DB_NAME", "planner"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
}

func newAuth() *Auth {
	return &Auth{
		Secret: getSecret("AUTH_SECRET", "shared"),
		Issuer: getenv("AUTH_ISSUER", ""),
	}
}

func newGenerator() *Generator {
	return &Generator{
		APIKey:  getSecret("GEMINI_API_KEY", ""),
		Model:   getenv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		Timeout: getDuration("GENERATOR_TIMEOUT", 60*time.Second),
	}
}

func newNATS() *NATS {
	return &NATS{
		URL: getenv("NATS_URL", ""),
	}
}

func getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	fmt.Printf("%s %s = %s\n", logtag, key, val)
	return val
}

// getSecret is getenv without echoing the value.
func getSecret(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default\n", logtag, key)
		return defaultValue
	}
	fmt.Printf("%s %s is set\n", logtag, key)
	return val
}

func getInt(key string, defaultValue int) int {
	raw := getenv(key, strconv.Itoa(defaultValue))
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("%s %s=%q is not an integer. Using default value %d", logtag, key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getenv(key, defaultValue.String())
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("%s %s=%q is not a duration. Using default value %s", logtag, key, raw, defaultValue)
		return defaultValue
	}
	return v
}
