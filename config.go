package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds startup settings that may come from a file instead of
// flags. Flags take precedence.
type Config struct {
	MAC  string `json:"mac"`
	Port int    `json:"port"`
}

func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "istripd", "config.json")
}

func loadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
