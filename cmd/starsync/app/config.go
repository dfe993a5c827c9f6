package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/starsync/internal/state"
	"github.com/agentstation/starsync/pkg/errors"
)

// Config holds the application configuration loaded from environment
// variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Credentials and addressing
	GitHubToken      string
	NotionToken      string
	NotionDatabaseID string

	// Sync state
	StatePath string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags (handled by cobra after load)
//  2. Environment variables
//  3. .env files
//  4. Defaults
func LoadConfig() (*Config, error) {
	// .env files load before Viper env binding so both see the same values.
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	bindCredentials()

	// Optional config file in the home directory or cwd; absence is fine.
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName(".starsync")
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		GitHubToken:      viper.GetString("GITHUB_TOKEN"),
		NotionToken:      viper.GetString("NOTION_TOKEN"),
		NotionDatabaseID: viper.GetString("NOTION_DATABASE_ID"),

		StatePath: viper.GetString("STARSYNC_STATE_PATH"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.StatePath == "" {
		config.StatePath = state.DefaultPath
	}

	return config, nil
}

// Validate checks that the credentials a sync run needs are present.
// Called per command so help and version work without any environment.
func (c *Config) Validate() error {
	var missing []string
	if c.GitHubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if c.NotionToken == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.NotionDatabaseID == "" {
		missing = append(missing, "NOTION_DATABASE_ID")
	}
	if len(missing) > 0 {
		return &errors.ConfigError{
			Component: "credentials",
			Message:   "missing required environment variables: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// bindCredentials explicitly binds the credential environment variables to
// Viper; AutomaticEnv alone only resolves keys it has already seen.
func bindCredentials() {
	keys := []string{
		"GITHUB_TOKEN",
		"NOTION_TOKEN",
		"NOTION_DATABASE_ID",
		"STARSYNC_STATE_PATH",
	}

	for _, key := range keys {
		if err := viper.BindEnv(key); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
