package cli

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/directory"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// the CATWALK_DATA_DIR env var, or ~/.catwalk as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("CATWALK_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.catwalk"
}

// openConfigStore opens the SQLite state store, defaulting to ~/.catwalk
// if no data dir was specified.
func openConfigStore() (*config.Store, error) {
	return config.NewStore(resolveDataDir())
}

// resolveJWTSecret returns the configured JWT secret, falling back to a
// development default.
func resolveJWTSecret() string {
	if s := viper.GetString("auth.jwt_secret"); s != "" {
		return s
	}
	return "catwalk-dev-secret-change-me"
}

// newDirectoryClient builds the directory client from configuration.
func newDirectoryClient() *directory.Client {
	baseURL := viper.GetString("directory.base_url")
	if baseURL == "" {
		baseURL = "http://localhost:9090"
	}
	timeout := viper.GetDuration("directory.timeout")
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return directory.NewClient(baseURL, viper.GetString("directory.api_key"), timeout)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
