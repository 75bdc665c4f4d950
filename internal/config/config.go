package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Data struct {
		Dir        string `yaml:"dir"`         // unit catalog directory
		GraphPath  string `yaml:"graph_path"`  // *_linkage_graph.json
		PrefabPath string `yaml:"prefab_path"` // *_prefab_functions.json
		SchemaPath string `yaml:"schema_path"` // empty uses the embedded schema
	} `yaml:"data"`
	Game struct {
		DefaultRace string `yaml:"default_race"`
		DevMode     bool   `yaml:"dev_mode"`
	} `yaml:"game"`
	Handler struct {
		TopK          int `yaml:"top_k"`
		CacheSize     int `yaml:"cache_size"`
		HistoryWindow int `yaml:"history_window"`
		SuccessWindow int `yaml:"success_window"`
	} `yaml:"handler"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Data.Dir = "data/units"
	cfg.Data.GraphPath = filepath.Join("build", "terran_linkage_graph.json")
	cfg.Data.PrefabPath = filepath.Join("build", "terran_prefab_functions.json")
	cfg.Game.DefaultRace = "terran"
	cfg.Handler.TopK = 3
	cfg.Handler.CacheSize = 100
	cfg.Handler.HistoryWindow = 5
	cfg.Handler.SuccessWindow = 5
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config over the defaults
	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// 3. Override with Environment Variables if present
	if dir := os.Getenv("SC2AFF_DATA_DIR"); dir != "" {
		cfg.Data.Dir = dir
	}
	if race := os.Getenv("SC2AFF_DEFAULT_RACE"); race != "" {
		cfg.Game.DefaultRace = strings.ToLower(race)
	}
	if dev := os.Getenv("SC2AFF_DEV_MODE"); dev != "" {
		v, err := strconv.ParseBool(dev)
		if err != nil {
			return nil, fmt.Errorf("invalid SC2AFF_DEV_MODE %q: %w", dev, err)
		}
		cfg.Game.DevMode = v
	}
	if topK := os.Getenv("SC2AFF_TOP_K"); topK != "" {
		v, err := strconv.Atoi(topK)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid SC2AFF_TOP_K %q", topK)
		}
		cfg.Handler.TopK = v
	}

	return cfg, nil
}
