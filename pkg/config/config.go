package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUrl                 string
	RedisURL              string
	RedisPassword         string
	Env                   string
	DefaultValidityMonths int
	ExpiringSoonDays      int
	LiabilityAccountNo    string
	CashAccountNo         string
	RevenueAccountNo      string
}

func LoadConfig() Config {
	godotenv.Load()

	return Config{
		DBUrl:                 getEnv("DATABASE_URL"),
		RedisURL:              getEnv("REDIS_URL"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		Env:                   getEnv("ENV"),
		DefaultValidityMonths: getEnvInt("WALLET_VALIDITY_MONTHS", 12),
		ExpiringSoonDays:      getEnvInt("WALLET_EXPIRING_SOON_DAYS", 30),
		LiabilityAccountNo:    getEnvOr("WALLET_LIABILITY_ACCOUNT", "2350"),
		CashAccountNo:         getEnvOr("WALLET_CASH_ACCOUNT", "1001"),
		RevenueAccountNo:      getEnvOr("WALLET_REVENUE_ACCOUNT", "4100"),
	}
}

func getEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	panic(fmt.Sprintf("%s is required", key))
}

func getEnvOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("%s must be a valid integer", key))
	}
	return n
}
