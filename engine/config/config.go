package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/gravity/engine/core"
)

const DefaultPath = "gravity.toml"

// Config is the engine bootstrap configuration, decoded from a TOML file.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Assets      AssetsConfig      `toml:"assets"`
	Logging     LoggingConfig     `toml:"logging"`
	Rendering   RenderingConfig   `toml:"rendering"`
}

type ApplicationConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Width   uint32 `toml:"width"`
	Height  uint32 `toml:"height"`
}

type SchedulerConfig struct {
	// Workers sets the worker count; 0 means one per hardware thread.
	Workers int `toml:"workers"`
}

type AssetsConfig struct {
	DatabasePath string `toml:"database_path"`
	BasePath     string `toml:"base_path"`
}

type LoggingConfig struct {
	Level        string `toml:"level"`
	ReportCaller bool   `toml:"report_caller"`
}

type RenderingConfig struct {
	EnableValidation  bool   `toml:"enable_validation"`
	PipelineCachePath string `toml:"pipeline_cache_path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:    "Gravity Engine",
			Version: "0.1.0",
			Width:   1280,
			Height:  720,
		},
		Scheduler: SchedulerConfig{
			Workers: runtime.NumCPU(),
		},
		Assets: AssetsConfig{
			DatabasePath: "resources/assetsdb.json",
			BasePath:     "resources",
		},
		Logging: LoggingConfig{
			Level:        "debug",
			ReportCaller: true,
		},
		Rendering: RenderingConfig{
			EnableValidation:  true,
			PipelineCachePath: "resources/pipeline_cache.bin.lz4",
		},
	}
}

// Load reads and decodes the config file at path. A missing file yields the
// defaults; a malformed file is an InternalError.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			core.LogInfo("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, core.WrapInternal(err, "reading config %s", path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, core.WrapInternal(err, "decoding config %s", path)
	}

	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = runtime.NumCPU()
	}
	return cfg, nil
}
