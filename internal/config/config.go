package config

import "os"

type Config struct {
	HTTPPort       string
	DatabaseDSN    string
	JWTSecret      string
	CORSOrigins    string
	InvoicePDFPath string // directory for generated invoice/receipt PDFs
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=optipos port=5432 sslmode=disable"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		InvoicePDFPath: getEnv("INVOICE_PDF_PATH", "./invoices"),
	}

	if cfg.JWTSecret == "" {
		Logger().Fatal("JWT_SECRET is not set; it is required")
	}
	if len(cfg.JWTSecret) < 32 {
		Logger().Fatal("JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=optipos port=5432 sslmode=disable" {
		Logger().Warn("DATABASE_DSN is using the default value; set your own Postgres connection for production")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
