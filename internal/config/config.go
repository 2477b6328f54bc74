// Package config loads engine options for the CLI from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wouanagaine/treecodec/internal/codec"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML options file and overlays it on the engine defaults.
// Keys absent from the file keep their default values.
func Load(path string) (codec.Options, error) {
	opts := codec.DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config file: %w", err)
	}
	if opts.TypeKey == "" {
		opts.TypeKey = codec.DefaultTypeKey
	}
	return opts, nil
}

// FindConfigFile searches for an options file in the current directory and
// its parents, returning the empty string when none exists.
func FindConfigFile() string {
	configNames := []string{".treecodec.yml", ".treecodec.yaml", "treecodec.yml", "treecodec.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}
