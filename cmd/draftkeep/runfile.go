package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RunFile is the optional YAML file passed with -config. Zero values leave
// the stored settings alone.
type RunFile struct {
	Root             string        `yaml:"root"`
	KeepDays         int           `yaml:"keep_days" validate:"gte=0,lte=3650"`
	AutoSaveInterval time.Duration `yaml:"auto_save_interval" validate:"omitempty,min=1s,max=24h"`
	ManifestVersion  string        `yaml:"manifest_version" validate:"omitempty,max=16"`
}

func loadRunFile(path string) (*RunFile, error) {
	if path == "" {
		return &RunFile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	if err := validator.New().Struct(&rf); err != nil {
		return nil, fmt.Errorf("invalid run file %s: %w", path, err)
	}
	return &rf, nil
}
