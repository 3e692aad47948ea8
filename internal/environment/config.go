// Package environment loads the client configuration: defaults, then the
// config.toml under the XDG config dir, then .env / environment variables.
// Later sources win.
package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/programme-lv/taskeval/internal/xdg"
)

const appName = "taskeval"

type Config struct {
	// BackendURL is the broker address the backend listens on.
	BackendURL string `toml:"backend_url"`
	// BackendCmd is what to exec when nothing is listening there.
	BackendCmd []string `toml:"backend_cmd"`

	UI        string `toml:"ui"`
	CacheMode string `toml:"cache_mode"`
	NumCores  int    `toml:"num_cores"`
}

func defaults() *Config {
	return &Config{
		BackendURL: "nats://127.0.0.1:4222",
		BackendCmd: []string{"taskeval-backend"},
		UI:         "live",
		CacheMode:  "all",
	}
}

// Load reads the config. A missing .env or config.toml is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	path := filepath.Join(xdg.New().AppConfigDir(appName), "config.toml")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if v := os.Getenv("TASKEVAL_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("TASKEVAL_BACKEND_CMD"); v != "" {
		cfg.BackendCmd = strings.Fields(v)
	}
	if v := os.Getenv("TASKEVAL_UI"); v != "" {
		cfg.UI = v
	}
	if v := os.Getenv("TASKEVAL_CACHE_MODE"); v != "" {
		cfg.CacheMode = v
	}
	if v := os.Getenv("TASKEVAL_NUM_CORES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TASKEVAL_NUM_CORES %q: %w", v, err)
		}
		cfg.NumCores = n
	}
	return cfg, nil
}
