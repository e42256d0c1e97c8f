package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (user notifications)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Wallet provider (reward delivery)
	Wallet WalletConfig

	// Timeout configuration
	DeliveryTimeout time.Duration
	ClaimLockTTL    time.Duration

	// Monitoring
	EnableMetrics bool
}

type WalletConfig struct {
	BaseURL   string
	PartnerID string
	ClientID  string
	ClientKey string
	HMACKey   string

	// PubNub channel the provider pushes grant confirmations on.
	PNSubKey    string
	PNSubSecret string
	PNUUID      string
	PNChannel   string
	PNCipherKey string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Wallet provider
		Wallet: WalletConfig{
			BaseURL:     getEnv("WALLET_BASE_URL", "http://localhost:8091"),
			PartnerID:   getEnv("WALLET_PARTNER_ID", ""),
			ClientID:    getEnv("WALLET_CLIENT_ID", ""),
			ClientKey:   getEnv("WALLET_CLIENT_KEY", ""),
			HMACKey:     getEnv("WALLET_HMAC_KEY", ""),
			PNSubKey:    getEnv("WALLET_PN_SUBKEY", ""),
			PNSubSecret: getEnv("WALLET_PN_SUBSECRET", ""),
			PNUUID:      getEnv("WALLET_PN_UUID", ""),
			PNChannel:   getEnv("WALLET_PN_CHANNEL", "wallet-grant-notifications"),
			PNCipherKey: getEnv("WALLET_PN_CIPHERKEY", ""),
		},

		// Timeouts
		DeliveryTimeout: getEnvAsDuration("DELIVERY_TIMEOUT", "10s"),
		ClaimLockTTL:    getEnvAsDuration("CLAIM_LOCK_TTL", "30s"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
