package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs from the environment.
type Config struct {
	HTTPAddr string

	ShopifyShop        string
	ShopifyAccessToken string
	ShopifyAPIVersion  string

	MySQLDSN  string
	RedisAddr string

	KafkaBrokers []string
	KafkaTopic   string

	WorkerCount int
	QueueSize   int
}

// Load reads configuration from the environment, picking up a .env file
// first when one is present. SHOPIFY_SHOP and SHOPIFY_ACCESS_TOKEN have no
// sensible defaults and are required.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		ShopifyShop:        os.Getenv("SHOPIFY_SHOP"),
		ShopifyAccessToken: os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		ShopifyAPIVersion:  getEnv("SHOPIFY_API_VERSION", "2024-10"),
		MySQLDSN:           getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/bulkeditor?parseTime=true"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "inventory-reconciliations"),
		WorkerCount:        getEnvInt("WORKER_COUNT", 10),
		QueueSize:          getEnvInt("QUEUE_SIZE", 10000),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.ShopifyShop == "" {
		return nil, fmt.Errorf("SHOPIFY_SHOP is required")
	}
	if cfg.ShopifyAccessToken == "" {
		return nil, fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
