package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"clusterdrill/pkg/logging"
)

const (
	userConfigDir    = ".config/clusterdrill"
	projectConfigDir = ".clusterdrill"
	configFileName   = "config.yaml"

	envPrefix = "CLUSTERDRILL_"
)

// Mockable OS seams for tests.
var (
	osUserHomeDir = os.UserHomeDir
	osGetwd       = os.Getwd
	osReadFile    = os.ReadFile
	osGetenv      = os.Getenv
)

var getUserConfigPath = func() (string, error) {
	home, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// LoadConfig assembles the effective configuration: defaults, then
// the user file (~/.config/clusterdrill/config.yaml), then the
// project file (./.clusterdrill/config.yaml), then CLUSTERDRILL_*
// environment variables. Later layers override earlier ones; missing
// files are fine, malformed ones are not.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	for _, pathFn := range []func() (string, error){getUserConfigPath, getProjectConfigPath} {
		path, err := pathFn()
		if err != nil {
			logging.Debug("config", "skipping config layer: %v", err)
			continue
		}
		if err := mergeFromFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeFromFile unmarshals path over cfg. Fields absent from the file
// keep their current values; a missing file changes nothing.
func mergeFromFile(cfg *Config, path string) error {
	data, err := osReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	logging.Debug("config", "merged config layer: %s", path)
	return nil
}

// applyEnvOverrides folds CLUSTERDRILL_* variables over cfg. Invalid
// values error out naming the variable rather than silently keeping
// the previous layer.
func applyEnvOverrides(cfg *Config) error {
	if v := osGetenv(envPrefix + "SEEDS"); v != "" {
		cfg.Cluster.Seeds = splitList(v)
	}
	if err := overrideInt(envPrefix+"TARGET_MASTERS", &cfg.Cluster.TargetMasters); err != nil {
		return err
	}
	if err := overrideDuration(envPrefix+"FLUSH_TIMEOUT", &cfg.Cluster.FlushTimeout); err != nil {
		return err
	}
	if err := overrideDuration(envPrefix+"PROBE_BACKOFF", &cfg.Cluster.ProbeBackoff); err != nil {
		return err
	}
	if err := overrideInt(envPrefix+"REQUESTS", &cfg.Workload.Requests); err != nil {
		return err
	}
	if err := overrideInt(envPrefix+"VALUE", &cfg.Workload.Value); err != nil {
		return err
	}
	if err := overrideInt(envPrefix+"CASES", &cfg.Drill.Cases); err != nil {
		return err
	}
	if err := overrideInt64(envPrefix+"SEED", &cfg.Drill.Seed); err != nil {
		return err
	}
	if err := overrideDuration(envPrefix+"TIMEOUT", &cfg.Drill.Timeout); err != nil {
		return err
	}
	if v := osGetenv(envPrefix + "REPORT_PATH"); v != "" {
		cfg.Drill.ReportPath = v
	}
	if v := osGetenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := osGetenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := osGetenv(envPrefix + "METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := osGetenv(envPrefix + "LOCK_DIR"); v != "" {
		cfg.LockDir = v
	}
	return nil
}

func overrideInt(name string, dst *int) error {
	v := osGetenv(name)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	*dst = parsed
	return nil
}

func overrideInt64(name string, dst *int64) error {
	v := osGetenv(name)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	*dst = parsed
	return nil
}

func overrideDuration(name string, dst *Duration) error {
	v := osGetenv(name)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	*dst = Duration(parsed)
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
