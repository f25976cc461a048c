package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Port        string
	DBDSN       string
	RMQURL      string
	NotifyQueue string
	RedisAddr   string
	SecretKey   string
}

// DispatcherConfig drives the queue dispatch engine.
type DispatcherConfig struct {
	DBDSN       string
	RMQURL      string
	NotifyQueue string
	RedisAddr   string
	SecretKey   string

	BatchSize        int
	SendingOrder     []string
	Workers          int
	ThreadsPerWorker int
	MaxRetries       int
	RetryDelay       time.Duration
	BatchTimeout     time.Duration

	// 0 = no delivery logs, 1 = failures only, 2 = all outcomes.
	DeliveryLogLevel int

	MessageIDEnabled   bool
	MessageIDDomain    string
	OverrideRecipients []string

	DispatchInterval time.Duration
	LockKey          string
	LockTTL          time.Duration
}

var (
	API        APIConfig
	Dispatcher DispatcherConfig
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("required env %s is not set", k)
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("env %s: %v", k, err)
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("env %s: %v", k, err)
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("env %s: %v", k, err)
	}
	return d
}

func getenvList(k, def string) []string {
	v := getenv(k, def)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func MustLoadAPI() {
	_ = godotenv.Load()
	API = APIConfig{
		Port:        getenv("PORT", "8080"),
		DBDSN:       mustEnv("DB_DSN"),
		RMQURL:      mustEnv("RMQ_URL"),
		NotifyQueue: getenv("NOTIFY_QUEUE", "notify_events"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		SecretKey:   mustEnv("SECRET_KEY"),
	}
}

func MustLoadDispatcher() {
	_ = godotenv.Load()
	Dispatcher = DispatcherConfig{
		DBDSN:       mustEnv("DB_DSN"),
		RMQURL:      mustEnv("RMQ_URL"),
		NotifyQueue: getenv("NOTIFY_QUEUE", "notify_events"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		SecretKey:   mustEnv("SECRET_KEY"),

		BatchSize:        getenvInt("BATCH_SIZE", 100),
		SendingOrder:     getenvList("SENDING_ORDER", "priority,created_at"),
		Workers:          getenvInt("WORKERS", 4),
		ThreadsPerWorker: getenvInt("THREADS_PER_WORKER", 8),
		MaxRetries:       getenvInt("MAX_RETRIES", 3),
		RetryDelay:       getenvDuration("RETRY_DELAY", 5*time.Minute),
		BatchTimeout:     getenvDuration("BATCH_TIMEOUT", 3*time.Minute),

		DeliveryLogLevel: getenvInt("DELIVERY_LOG_LEVEL", 2),

		MessageIDEnabled:   getenvBool("MESSAGE_ID_ENABLED", true),
		MessageIDDomain:    getenv("MESSAGE_ID_DOMAIN", "mailhive.local"),
		OverrideRecipients: getenvList("OVERRIDE_RECIPIENTS", ""),

		DispatchInterval: getenvDuration("DISPATCH_INTERVAL", 30*time.Second),
		LockKey:          getenv("LOCK_KEY", "mailhive:dispatch"),
		LockTTL:          getenvDuration("LOCK_TTL", 5*time.Minute),
	}
}
