package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/mavdeck/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("maven.binary", cfg.Maven.Binary)
	v.SetDefault("maven.prefer_wrapper", cfg.Maven.PreferWrapper)
	v.SetDefault("launch.mode", cfg.Launch.Mode)
	v.SetDefault("service.buffer_max_lines", cfg.Service.BufferMaxLines)
	v.SetDefault("discovery.timeout_seconds", cfg.Discovery.TimeoutSeconds)
	v.SetDefault("kill.grace_seconds", cfg.Kill.GraceSeconds)
	v.SetDefault("watch.enabled", cfg.Watch.Enabled)
	v.SetDefault("watch.debounce_ms", cfg.Watch.DebounceMS)
	v.SetDefault("watch.patterns", cfg.Watch.Patterns)
	v.SetDefault("ui.tick_ms", cfg.UI.TickMS)
	v.SetDefault("ui.theme", cfg.UI.Theme)
	v.SetDefault("custom_goals", cfg.CustomGoals)
	v.SetDefault("flags", cfg.Flags)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys", cfg.SSH.AuthorizedKeys)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Maven.Binary) == "" {
		return fmt.Errorf("maven.binary must not be empty")
	}
	if _, ok := schema.NormalizeLaunchMode(cfg.Launch.Mode); !ok {
		return fmt.Errorf("unsupported launch.mode %q", cfg.Launch.Mode)
	}
	if _, ok := schema.NormalizeThemeName(cfg.UI.Theme); !ok {
		return fmt.Errorf("unsupported ui.theme %q", cfg.UI.Theme)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported logging.level %q", cfg.Logging.Level)
	}
	for _, pattern := range cfg.Watch.Patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("watch.patterns: invalid pattern %q", pattern)
		}
	}
	for i, goal := range cfg.CustomGoals {
		if strings.TrimSpace(goal.Name) == "" || len(goal.Goals) == 0 {
			return fmt.Errorf("custom_goals[%d] requires name and goals", i)
		}
	}
	seen := make(map[string]struct{}, len(cfg.Flags))
	for i, flag := range cfg.Flags {
		if strings.TrimSpace(flag.Name) == "" || strings.TrimSpace(flag.Arg) == "" {
			return fmt.Errorf("flags[%d] requires name and arg", i)
		}
		if _, dup := seen[flag.Name]; dup {
			return fmt.Errorf("flags: duplicate name %q", flag.Name)
		}
		seen[flag.Name] = struct{}{}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.LogFile = expandEnv(cfg.LogFile)
	cfg.Maven.Binary = expandEnv(cfg.Maven.Binary)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeys = expandEnv(cfg.SSH.AuthorizedKeys)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
