package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	ExportEnabled bool
	ExportFile    string
}

// FromEnv loads configuration from the environment, reading a .env file
// first when one exists.
func FromEnv() Config {
	_ = godotenv.Load()

	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.ExportEnabled = getenv("EXPORT_ENABLED", "false") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./match-results.txt")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
