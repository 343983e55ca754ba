package shared

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaGroupID   string
	CacheTTL       time.Duration
	BookingTimeout time.Duration
	EventQueueSize int
	NotifyWorkers  int
	PriceDataPath  string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	return Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/staybook?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisDB:        atoi("REDIS_DB", 0),
		RedisPass:      env("REDIS_PASSWORD", ""),
		KafkaBrokers:   strings.Split(env("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:     env("KAFKA_TOPIC", "reservations"),
		KafkaGroupID:   env("KAFKA_GROUP_ID", "staybook-notifier"),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 600)) * time.Second,
		BookingTimeout: time.Duration(atoi("BOOKING_TIMEOUT_MS", 3000)) * time.Millisecond,
		EventQueueSize: atoi("EVENT_QUEUE_SIZE", 256),
		NotifyWorkers:  atoi("NOTIFY_WORKERS", 4),
		PriceDataPath:  env("PRICE_DATA_PATH", "hotel_prices.csv"),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
