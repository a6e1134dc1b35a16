package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for boxsync.
type Config struct {
	// Box application credentials, required for the OAuth authorization
	// flow (the auth command). Created in the Box developer console.
	ClientID     string `env:"BOX_CLIENT_ID"`
	ClientSecret string `env:"BOX_CLIENT_SECRET"`

	// Developer token. When set it is used directly and any cached OAuth
	// token is ignored. Useful for scripts and short-lived sessions.
	AccessToken string `env:"BOX_ACCESS_TOKEN"`

	// TokenFile is where the OAuth token is cached between runs.
	// Defaults to <config dir>/boxsync/token.json.
	TokenFile string `env:"BOXSYNC_TOKEN_FILE"`

	// StateFile is the bbolt database holding per-pair sync baselines.
	// Defaults to <config dir>/boxsync/state.db.
	StateFile string `env:"BOXSYNC_STATE_FILE"`

	// ProfilesFile is the YAML file of named sync profiles.
	// Defaults to <config dir>/boxsync/profiles.yml.
	ProfilesFile string `env:"BOXSYNC_PROFILES_FILE"`

	// Workers bounds the number of concurrent transfers during sync.
	Workers int `env:"BOXSYNC_WORKERS" envDefault:"4"`

	// API endpoint overrides. Tests point these at local fake servers;
	// production leaves them empty to use the public Box endpoints.
	APIURL    string `env:"BOX_API_URL"`
	UploadURL string `env:"BOX_UPLOAD_URL"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars
// and fills path defaults under the user config directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.fillPathDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// fillPathDefaults resolves TokenFile, StateFile, and ProfilesFile to
// their defaults under the user config directory when unset.
func (c *Config) fillPathDefaults() error {
	if c.TokenFile != "" && c.StateFile != "" && c.ProfilesFile != "" {
		return nil
	}

	dir, err := Dir()
	if err != nil {
		return err
	}

	if c.TokenFile == "" {
		c.TokenFile = filepath.Join(dir, "token.json")
	}

	if c.StateFile == "" {
		c.StateFile = filepath.Join(dir, "state.db")
	}

	if c.ProfilesFile == "" {
		c.ProfilesFile = filepath.Join(dir, "profiles.yml")
	}

	return nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("BOXSYNC_WORKERS must be at least 1, got %d", c.Workers)
	}

	// Credentials are validated per command: auth needs the client pair,
	// everything else needs a token source (developer token or cached
	// OAuth token). Neither is known to be required at load time.
	return nil
}

// HasOAuthClient reports whether both halves of the Box application
// credential pair are configured.
func (c *Config) HasOAuthClient() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Dir returns the boxsync configuration directory
// (<user config dir>/boxsync), creating it with owner-only permissions
// if it does not exist.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determining config directory: %w", err)
	}

	dir := filepath.Join(base, "boxsync")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return dir, nil
}
