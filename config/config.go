package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadENV loads environment variables from .env when GO_ENV is unset or development
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET       string
	JWT_ISSUER       string
	JWT_EXPIRY_HOURS int
	// Redis Configuration
	REDIS_URL string
	// Generation provider
	GENAI_API_KEY string
	GENAI_MODEL   string
	// CORS
	ALLOWED_ORIGINS string
	// Chat session lifetime in Redis
	SESSION_TTL_MINUTES int
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	// Token lifetime defaults to 7 days
	jwtExpiryHours, err := strconv.Atoi(os.Getenv("JWT_EXPIRY_HOURS"))
	if err != nil || jwtExpiryHours <= 0 {
		jwtExpiryHours = 7 * 24
	}

	sessionTTL, err := strconv.Atoi(os.Getenv("SESSION_TTL_MINUTES"))
	if err != nil || sessionTTL <= 0 {
		sessionTTL = 24 * 60
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET:       os.Getenv("JWT_SECRET"),
		JWT_ISSUER:       os.Getenv("JWT_ISSUER"),
		JWT_EXPIRY_HOURS: jwtExpiryHours,
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Generation provider
		GENAI_API_KEY: os.Getenv("GENAI_API_KEY"),
		GENAI_MODEL:   os.Getenv("GENAI_MODEL"),
		// CORS
		ALLOWED_ORIGINS: os.Getenv("ALLOWED_ORIGINS"),
		// Sessions
		SESSION_TTL_MINUTES: sessionTTL,
	}

	return envVariables, nil
}
