// Package config loads YAML configuration files into a struct that already
// holds the defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references from the environment and
// decodes the result over target. Fields absent from the file keep the
// values target already had. target is validated when it implements
// Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}
	if err := decode(data, target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}
	return validate(target)
}

// LoadOptional behaves like Load but treats a missing file as empty, so
// target keeps its defaults. It reports whether the file was found.
func LoadOptional[T any](filename string, target *T) (bool, error) {
	err := Load(filename, target)
	if errors.Is(err, os.ErrNotExist) {
		return false, validate(target)
	}
	return err == nil, err
}

func decode[T any](data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))
	return yaml.Unmarshal([]byte(expanded), target)
}

func validate[T any](target *T) error {
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
