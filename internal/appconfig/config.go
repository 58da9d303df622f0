package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/mavdeck/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int                 `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string              `mapstructure:"state_dir" yaml:"state_dir"`
	LogFile       string              `mapstructure:"log_file" yaml:"log_file"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Maven         MavenConfig         `mapstructure:"maven" yaml:"maven"`
	Launch        LaunchConfig        `mapstructure:"launch" yaml:"launch"`
	Service       ServiceConfig       `mapstructure:"service" yaml:"service"`
	Discovery     DiscoveryConfig     `mapstructure:"discovery" yaml:"discovery"`
	Kill          KillConfig          `mapstructure:"kill" yaml:"kill"`
	Watch         WatchConfig         `mapstructure:"watch" yaml:"watch"`
	UI            UIConfig            `mapstructure:"ui" yaml:"ui"`
	CustomGoals   []schema.CustomGoal `mapstructure:"custom_goals" yaml:"custom_goals"`
	Flags         []schema.Flag       `mapstructure:"flags" yaml:"flags"`
	SSH           SSHConfig           `mapstructure:"ssh" yaml:"ssh"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// LoggingConfig controls the log file verbosity.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// MavenConfig selects the build tool binary.
type MavenConfig struct {
	Binary        string `mapstructure:"binary" yaml:"binary"`
	PreferWrapper bool   `mapstructure:"prefer_wrapper" yaml:"prefer_wrapper"`
}

// LaunchConfig controls how starters are launched.
type LaunchConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// ServiceConfig controls session engine limits.
type ServiceConfig struct {
	BufferMaxLines int `mapstructure:"buffer_max_lines" yaml:"buffer_max_lines"`
}

// DiscoveryConfig bounds project discovery.
type DiscoveryConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// KillConfig controls kill escalation.
type KillConfig struct {
	GraceSeconds int `mapstructure:"grace_seconds" yaml:"grace_seconds"`
}

// WatchConfig controls file-watch re-runs.
type WatchConfig struct {
	Enabled    bool     `mapstructure:"enabled" yaml:"enabled"`
	DebounceMS int      `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	Patterns   []string `mapstructure:"patterns" yaml:"patterns"`
}

// UIConfig controls the dashboard.
type UIConfig struct {
	TickMS int    `mapstructure:"tick_ms" yaml:"tick_ms"`
	Theme  string `mapstructure:"theme" yaml:"theme"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath    string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeys string `mapstructure:"authorized_keys" yaml:"authorized_keys"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	base := filepath.Join(home, ".mavdeck")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(base, "state"),
		LogFile:       filepath.Join(base, "mavdeck.log"),
		Logging:       LoggingConfig{Level: "info"},
		Maven: MavenConfig{
			Binary:        "mvn",
			PreferWrapper: true,
		},
		Launch:    LaunchConfig{Mode: string(schema.LaunchAuto)},
		Service:   ServiceConfig{BufferMaxLines: schema.DefaultBufferMaxLines},
		Discovery: DiscoveryConfig{TimeoutSeconds: int(schema.DefaultDiscoveryTimeout / time.Second)},
		Kill:      KillConfig{GraceSeconds: int(schema.DefaultKillGrace / time.Second)},
		Watch: WatchConfig{
			Enabled:    false,
			DebounceMS: int(schema.DefaultDebounce / time.Millisecond),
			Patterns: []string{
				"**/pom.xml",
				"**/src/**/*.java",
				"**/src/**/*.kt",
				"**/src/main/resources/**",
			},
		},
		UI: UIConfig{
			TickMS: int(schema.DefaultTick / time.Millisecond),
			Theme:  string(schema.DefaultTheme),
		},
		CustomGoals: []schema.CustomGoal{
			{Name: "clean install", Goals: []string{"clean", "install"}},
			{Name: "dependency tree", Goals: []string{"dependency:tree"}},
			{Name: "verify", Goals: []string{"verify"}},
		},
		Flags: []schema.Flag{
			{Name: "offline", Arg: "-o"},
			{Name: "skip tests", Arg: "-DskipTests"},
			{Name: "update snapshots", Arg: "-U"},
			{Name: "quiet", Arg: "-q"},
		},
		SSH: SSHConfig{
			Addr:           ":27622",
			HostKeyPath:    filepath.Join(base, "ssh_host_key"),
			AuthorizedKeys: filepath.Join(base, "authorized_keys"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mavdeck", "config.yaml"), nil
}

// ServiceConfig converts the loaded settings into engine limits.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.NormalizeServiceConfig(schema.ServiceConfig{
		BufferMaxLines:   c.Service.BufferMaxLines,
		DiscoveryTimeout: time.Duration(c.Discovery.TimeoutSeconds) * time.Second,
		KillGrace:        time.Duration(c.Kill.GraceSeconds) * time.Second,
		Debounce:         time.Duration(c.Watch.DebounceMS) * time.Millisecond,
		Flags:            c.Flags,
		CustomGoals:      c.CustomGoals,
	})
}

// TickInterval returns the render loop drain interval.
func (c Config) TickInterval() time.Duration {
	if c.UI.TickMS <= 0 {
		return schema.DefaultTick
	}
	return time.Duration(c.UI.TickMS) * time.Millisecond
}
