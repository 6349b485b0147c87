package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env when GO_ENV is unset or "development"
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
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT verification (tokens are issued by the identity service)
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// Document understanding service
	EXTRACTION_SERVICE_URL string
	EXTRACTION_API_KEY     string
	EXTRACTION_MODEL       string
	// Import session lifetime before the sweeper discards it
	IMPORT_SESSION_TTL time.Duration
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

	sessionTTL := 2 * time.Hour
	if mins, err := strconv.Atoi(os.Getenv("IMPORT_SESSION_TTL_MINUTES")); err == nil && mins > 0 {
		sessionTTL = time.Duration(mins) * time.Minute
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
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Extraction service
		EXTRACTION_SERVICE_URL: os.Getenv("EXTRACTION_SERVICE_URL"),
		EXTRACTION_API_KEY:     os.Getenv("EXTRACTION_API_KEY"),
		EXTRACTION_MODEL:       os.Getenv("EXTRACTION_MODEL"),

		IMPORT_SESSION_TTL: sessionTTL,
	}

	return envVariables, nil
}
