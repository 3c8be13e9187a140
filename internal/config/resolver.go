package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DotEnvFile is the optional file of environment defaults.
const DotEnvFile = ".env"

// Environ resolves the environment used for overrides.
// Precedence: process environment > .env file.
func Environ(environ []string, dotenvPath string) (map[string]string, error) {
	resolved := map[string]string{}

	if dotenvPath != "" {
		values, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			for k, v := range values {
				resolved[k] = v
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
	}

	for k, v := range env.ToMap(environ) {
		resolved[k] = v
	}
	return resolved, nil
}

// LoadFromEnvironment loads path with overrides from the process environment
// and dotenvPath.
func LoadFromEnvironment(path, dotenvPath string) (*Config, error) {
	environ, err := Environ(os.Environ(), dotenvPath)
	if err != nil {
		return nil, err
	}
	return Load(path, environ)
}
