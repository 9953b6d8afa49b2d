package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is the default .env file name.
const DefaultEnvFile = ".env"

// Environment variables read by ApplyEnv.
const (
	// EnvCookie holds the API session cookie.
	EnvCookie = "NOTECRAWL_COOKIE"

	// EnvAPIURL overrides the API base URL.
	EnvAPIURL = "NOTECRAWL_API_URL"

	// EnvProxy overrides the SOCKS5 proxy address.
	EnvProxy = "NOTECRAWL_PROXY"

	// EnvRedisAddr overrides the redis address.
	EnvRedisAddr = "NOTECRAWL_REDIS_ADDR"
)

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables that are already set are not overwritten. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv copies secrets and endpoint overrides from the environment.
// The cookie is only ever read from the environment so it never ends up in
// a config file that might be committed.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvCookie); v != "" {
		c.Cookie = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv(EnvProxy); v != "" {
		c.ProxyAddress = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.RedisAddr = v
	}
}
