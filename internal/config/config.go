package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	RPCURL          string
	WSRPCURL        string
	ContractAddress string
	PrivateKey      string

	JWTSecret   string
	APIPassword string

	PollInterval      time.Duration
	SyncAttempts      int
	SyncRetryInterval time.Duration
	GraceWindow       time.Duration

	RoundEntryFee *big.Int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:      os.Getenv("PORT"),
		Env:       getEnv("ENV", "development"),
		RedisURL:  os.Getenv("REDIS_URL"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		RPCURL:          os.Getenv("RPC_URL"),
		WSRPCURL:        os.Getenv("WS_RPC_URL"),
		ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
		PrivateKey:      os.Getenv("PRIVATE_KEY"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		APIPassword: os.Getenv("API_PASSWORD"),

		PollInterval:      getEnvDuration("POLL_INTERVAL_SECONDS", 3*time.Second),
		SyncAttempts:      getEnvInt("SYNC_ATTEMPTS", 5),
		SyncRetryInterval: getEnvDuration("SYNC_RETRY_SECONDS", time.Second),
		GraceWindow:       getEnvDuration("GRACE_WINDOW_SECONDS", 15*time.Second),
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC_URL is required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("CONTRACT_ADDRESS is required")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("PRIVATE_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.APIPassword == "" {
		return nil, fmt.Errorf("API_PASSWORD is required")
	}

	// Default round fee is 0.01 token; the contract exposes no getter for it.
	feeStr := getEnv("ROUND_ENTRY_FEE_WEI", "10000000000000000")
	fee, ok := new(big.Int).SetString(feeStr, 10)
	if !ok {
		return nil, fmt.Errorf("invalid ROUND_ENTRY_FEE_WEI: %s", feeStr)
	}
	cfg.RoundEntryFee = fee

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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
