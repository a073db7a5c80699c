package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits config files to 1MB.
var MaxInputSize = 1 << 20

var (
	errEmptyData    = errors.New("empty document")
	errInputTooLong = errors.New("input exceeds maximum size")
)

// decodeStrict unmarshals YAML into v and rejects unknown fields.
func decodeStrict(data []byte, v any) error {
	if len(data) == 0 {
		return errEmptyData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", errInputTooLong, len(data), MaxInputSize)
	}
	return yaml.UnmarshalWithOptions(data, v, yaml.Strict())
}

// Marshal renders the effective configuration, used by `tex2html config`.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
