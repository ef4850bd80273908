// Package config loads and validates the recording Configuration object a
// RecorderThread consumes, sourced from a YAML file and DUPLICAST_-prefixed
// environment overrides via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Quality mirrors the resolution/audio quality preset enums of spec §6.
type Quality string

const (
	QualityAuto    Quality = "auto"
	QualityLow     Quality = "low"
	QualityMedium  Quality = "medium"
	QualityHigh    Quality = "high"
	QualityHD720p  Quality = "hd720p"
	QualityHD1080p Quality = "hd1080p"
	QualityUHD2160 Quality = "uhd2160p"
)

// Config is the Configuration object of spec §6, consumed by a
// RecorderThread and produced by the CLI shell.
type Config struct {
	FileName         string  `mapstructure:"filename"`
	Monitor          int     `mapstructure:"monitor"`
	AudioEndpoint    string  `mapstructure:"audio_endpoint"`
	ResolutionOption Quality `mapstructure:"resolution_option"`
	AudioQuality     Quality `mapstructure:"audio_quality"`
	FrameRate        int     `mapstructure:"framerate"`
	BitRate          int     `mapstructure:"bitrate"`

	// Logging configuration, carried regardless of the recording
	// feature set it sits alongside.
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

// Default returns a Config with the conservative defaults a bare `record`
// invocation should use absent any file or environment override.
func Default() *Config {
	return &Config{
		Monitor:          0,
		ResolutionOption: QualityAuto,
		AudioQuality:     QualityAuto,
		FrameRate:        30,
		BitRate:          9_000_000,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads Config from cfgFile if given, else from the default config
// directory's duplicast.yaml (falling back silently to defaults if absent),
// then applies DUPLICAST_-prefixed environment overrides, and validates
// the result.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("duplicast")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DUPLICAST")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate clamps unsafe values and logs every finding as a warning;
	// none of them stops the load.
	cfg.Validate()

	return cfg, nil
}

// Save writes cfg to the default config directory as duplicast.yaml.
func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

// SaveTo writes cfg to cfgFile, or the default config path if empty.
func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("filename", cfg.FileName)
	viper.Set("monitor", cfg.Monitor)
	viper.Set("audio_endpoint", cfg.AudioEndpoint)
	viper.Set("resolution_option", string(cfg.ResolutionOption))
	viper.Set("audio_quality", string(cfg.AudioQuality))
	viper.Set("framerate", cfg.FrameRate)
	viper.Set("bitrate", cfg.BitRate)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)
	viper.Set("log_file", cfg.LogFile)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "duplicast.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	return viper.WriteConfigAs(cfgPath)
}

// GetDataDir returns the platform-specific directory recordings are written
// to when no explicit filename path is given.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "duplicast", "recordings")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Movies", "duplicast")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "duplicast")
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "duplicast")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "duplicast")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "duplicast")
	}
}
