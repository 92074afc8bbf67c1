package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string
	LogLevel string

	DataFile     string
	MaxOrders    int
	CacheTTL     time.Duration
	WriteRetries int
	RetryDelay   time.Duration

	EmailAPIBase string
	EmailAPIKey  string
	EmailFrom    string
	SMSAPIBase   string
	SMSAPIKey    string
	SMSSender    string

	NotifyTimeout time.Duration
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[config] %s=%q is not an integer, using %d", k, v, def)
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("[config] %s=%q is not a duration, using %s", k, v, def)
	}
	return def
}

func Load() Config {
	_ = godotenv.Load() // load .env if it exists
	cfg := Config{
		Addr:     getenv("ORDER_SERVICE_ADDR", ":8082"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DataFile:     getenv("ORDERS_FILE", "data/orders.json"),
		MaxOrders:    getenvInt("ORDERS_MAX_RECORDS", 5000),
		CacheTTL:     getenvDuration("ORDERS_CACHE_TTL", 5*time.Second),
		WriteRetries: getenvInt("ORDERS_WRITE_RETRIES", 3),
		RetryDelay:   getenvDuration("ORDERS_RETRY_DELAY", 150*time.Millisecond),

		EmailAPIBase: getenv("EMAIL_API_BASEURL", "https://api.mailer.example.com"),
		EmailAPIKey:  getenv("EMAIL_API_KEY", ""),
		EmailFrom:    getenv("EMAIL_FROM", "orders@chezamis.example.com"),
		SMSAPIBase:   getenv("SMS_API_BASEURL", "https://api.sms.example.com"),
		SMSAPIKey:    getenv("SMS_API_KEY", ""),
		SMSSender:    getenv("SMS_SENDER", "ChezAmis"),

		NotifyTimeout: getenvDuration("NOTIFY_TIMEOUT", 5*time.Second),
	}
	log.Printf("[config] ORDER_SERVICE_ADDR=%s", cfg.Addr)
	log.Printf("[config] ORDERS_FILE=%s", cfg.DataFile)
	return cfg
}
