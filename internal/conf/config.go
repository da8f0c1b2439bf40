// Package conf loads pulsed's settings from a YAML file with environment
// variable overrides, via a viper-based settings loader. Load returns a
// value rather than stashing one in a package global, so the rest of
// the daemon threads Settings through explicitly from one startup call.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pulsed/pulsed/internal/sample"
)

// Settings is the full configuration tree for a pulsed instance.
type Settings struct {
	Server ServerSettings `mapstructure:"server"`
	Daemon DaemonSettings `mapstructure:"daemon"`
	Core CoreSettings `mapstructure:"core"`
	Logging LoggingSettings `mapstructure:"logging"`
	Health HealthSettings `mapstructure:"health"`
}

// ServerSettings covers the listen addresses for the control surfaces
// described in (protocol) and the SPEC_FULL.md HTTP/MQTT additions.
type ServerSettings struct {
	HTTPListenAddr string `mapstructure:"http_listen_addr"`
	SocketPath string `mapstructure:"socket_path"`
	MQTTBrokerURL string `mapstructure:"mqtt_broker_url"`
	MQTTTopic string `mapstructure:"mqtt_topic"`
	SessionSecret string `mapstructure:"session_secret"`
	AuthUsername string `mapstructure:"auth_username"`
	AuthPassword string `mapstructure:"auth_password"`
}

// HealthSettings configures the gopsutil-driven load monitor that corks
// overflow sink-inputs under CPU/memory pressure (SPEC_FULL.md's domain
// stack expansion).
type HealthSettings struct {
	Enabled bool `mapstructure:"enabled"`
	PollIntervalSec int `mapstructure:"poll_interval_sec"`
	CPUHighPercent float64 `mapstructure:"cpu_high_percent"`
	MemHighPercent float64 `mapstructure:"mem_high_percent"`
}

// DaemonSettings controls the module/client idle-unload lifecycle.
type DaemonSettings struct {
	ExitIdleTimeSec int `mapstructure:"exit_idle_time_sec"`
	ModuleIdleTimeSec int `mapstructure:"module_idle_time_sec"`
	SampleCacheIdleSec int `mapstructure:"sample_cache_idle_sec"`
}

// CoreSettings describes the default sink/source the core creates at
// startup and the stream-queue defaults new sink-inputs
// and source-outputs are given absent explicit client attributes.
type CoreSettings struct {
	DefaultSinkName string `mapstructure:"default_sink_name"`
	DefaultSourceName string `mapstructure:"default_source_name"`
	DefaultSampleFormat string `mapstructure:"default_sample_format"`
	DefaultSampleRate uint32 `mapstructure:"default_sample_rate"`
	DefaultChannels uint8 `mapstructure:"default_channels"`
	DefaultMaxLengthMsec int `mapstructure:"default_max_length_msec"`
	DefaultTargetMsec int `mapstructure:"default_target_msec"`
	DefaultPrebufMsec int `mapstructure:"default_prebuf_msec"`
	DefaultMinreqMsec int `mapstructure:"default_minreq_msec"`
	ResamplerMethod string `mapstructure:"resampler_method"`
}

// LoggingSettings mirrors logging.Config's shape so it can be read straight
// out of the settings tree.
type LoggingSettings struct {
	Dir string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
	MaxSizeMB int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// DefaultSpec resolves Core's default-format fields into a sample.Spec,
// falling back to CD-quality stereo if the format string doesn't parse.
func (c CoreSettings) DefaultSpec() sample.Spec {
	format, ok := sample.ParseFormat(c.DefaultSampleFormat)
	if !ok {
 format = sample.FormatS16LE
	}
	rate := c.DefaultSampleRate
	if rate == 0 {
 rate = 44100
	}
	channels := c.DefaultChannels
	if channels == 0 {
 channels = 2
	}
	return sample.Spec{Format: format, Rate: rate, Channels: channels}
}

// Load reads config.yaml from the search paths below, applying
// environment overrides (prefix PULSED_, nested keys joined by
// underscore, e.g. PULSED_CORE_DEFAULT_SINK_NAME) and writing a default
// config file on first run — via an initViper/createDefaultConfig
// two-step.
func Load(configDir string) (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, path := range searchPaths(configDir) {
 v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("pulsed")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
 if _, ok := err.(viper.ConfigFileNotFoundError); ok {
 if werr := writeDefaultConfig(v, configDir); werr != nil {
 return nil, fmt.Errorf("conf: writing default config: %w", werr)
 }
 } else {
 return nil, fmt.Errorf("conf: reading config: %w", err)
 }
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
 return nil, fmt.Errorf("conf: unmarshaling config: %w", err)
	}
	return settings, nil
}

// Dump renders the fully-resolved settings (file plus environment
// overrides plus defaults) back to YAML, for a "show effective config"
// subcommand — distinct from the on-disk config.yaml, which reflects
// only what was present at first-run time.
func (s *Settings) Dump() ([]byte, error) {
	return yaml.Marshal(s)
}

func searchPaths(configDir string) []string {
	if configDir != "" {
 return []string{configDir}
	}
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
 paths = append(paths, filepath.Join(home, ".config", "pulsed"))
	}
	paths = append(paths, "/etc/pulsed")
	return paths
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_listen_addr", "127.0.0.1:4714")
	v.SetDefault("server.socket_path", "/run/pulsed/native.sock")
	v.SetDefault("server.mqtt_broker_url", "")
	v.SetDefault("server.mqtt_topic", "pulsed/events")
	v.SetDefault("server.session_secret", "")
	v.SetDefault("server.auth_username", "")
	v.SetDefault("server.auth_password", "")

	v.SetDefault("health.enabled", false)
	v.SetDefault("health.poll_interval_sec", 5)
	v.SetDefault("health.cpu_high_percent", 90.0)
	v.SetDefault("health.mem_high_percent", 90.0)

	v.SetDefault("daemon.exit_idle_time_sec", 20)
	v.SetDefault("daemon.module_idle_time_sec", 20)
	v.SetDefault("daemon.sample_cache_idle_sec", 20)

	v.SetDefault("core.default_sink_name", "default")
	v.SetDefault("core.default_source_name", "default")
	v.SetDefault("core.default_sample_format", "s16le")
	v.SetDefault("core.default_sample_rate", 44100)
	v.SetDefault("core.default_channels", 2)
	v.SetDefault("core.default_max_length_msec", 4000)
	v.SetDefault("core.default_target_msec", 200)
	v.SetDefault("core.default_prebuf_msec", 200)
	v.SetDefault("core.default_minreq_msec", 20)
	v.SetDefault("core.resampler_method", "medium")

	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

func writeDefaultConfig(v *viper.Viper, configDir string) error {
	dir := configDir
	if dir == "" {
 dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
 return err
	}
	path := filepath.Join(dir, "config.yaml")
	if err := v.SafeWriteConfigAs(path); err != nil {
 return err
	}
	return v.ReadInConfig()
}
