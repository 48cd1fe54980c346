package configs

import (
	"os"

	"github.com/joho/godotenv"
)

func init() {
	// Missing .env is fine in production, envs come from the orchestrator.
	godotenv.Load()
}

var Envs = struct {
	FRONTEND_ORIGIN     string
	JWT_KEY             string
	POSTGRES_URL        string
	REDIS_URL           string
	GIN_MODE            string
	LISTEN_ADDR         string
	PAYMENT_API_URL     string
	PAYMENT_SECRET_KEY  string
	CHECKOUT_SUCCESS_URL string
	CHECKOUT_CANCEL_URL  string
}{
	FRONTEND_ORIGIN:     os.Getenv("FRONTEND_ORIGIN"),
	JWT_KEY:             os.Getenv("JWT_KEY"),
	POSTGRES_URL:        os.Getenv("POSTGRES_URL"),
	REDIS_URL:           os.Getenv("REDIS_URL"),
	GIN_MODE:            os.Getenv("GIN_MODE"),
	LISTEN_ADDR:         getenvDefault("LISTEN_ADDR", ":5000"),
	PAYMENT_API_URL:     getenvDefault("PAYMENT_API_URL", "https://api.stripe.com/v1"),
	PAYMENT_SECRET_KEY:  os.Getenv("PAYMENT_SECRET_KEY"),
	CHECKOUT_SUCCESS_URL: os.Getenv("CHECKOUT_SUCCESS_URL"),
	CHECKOUT_CANCEL_URL:  os.Getenv("CHECKOUT_CANCEL_URL"),
}

func getenvDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
