package world

import "os"

// Config holds the environment-derived settings of a world.
type Config struct {
	Namespace string
	LogLevel  string
	LogPretty bool
}

// LoadConfig reads the world configuration from the environment. Fallback
// values are used for anything unset.
func LoadConfig() Config {
	return Config{
		Namespace: getEnv("LATTICE_NAMESPACE", "world"),
		LogLevel:  getEnv("LATTICE_LOG_LEVEL", "info"),
		LogPretty: getEnv("LATTICE_LOG_PRETTY", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
