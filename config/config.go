// Package config loads the optional repository configuration file holding
// the distribution metadata and publish defaults. Both YAML and JSON are
// accepted, selected by file extension; unknown fields are rejected so a
// typo in a field name fails loudly instead of silently publishing wrong
// metadata.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/debpress/debpress/apt"
)

// Config is the business object assembled from a configuration file. Zero
// fields keep the CLI defaults.
type Config struct {
	// Distribution is the release channel metadata for the Release file.
	Distribution apt.Distribution
	// Component overrides the default component name.
	Component string
	// Architectures overrides the default architecture list.
	Architectures []string
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %v", apt.ErrConfig, err)
	}

	// Internal DTOs for deserialization, mapped to the business object.
	type fileDistribution struct {
		Name                 string `json:"name" yaml:"name"`
		Origin               string `json:"origin" yaml:"origin"`
		Label                string `json:"label" yaml:"label"`
		Suite                string `json:"suite" yaml:"suite"`
		Version              string `json:"version" yaml:"version"`
		Codename             string `json:"codename" yaml:"codename"`
		Description          string `json:"description" yaml:"description"`
		ValidUntil           string `json:"valid_until" yaml:"valid_until"`
		NotAutomatic         string `json:"not_automatic" yaml:"not_automatic"`
		ButAutomaticUpgrades string `json:"but_automatic_upgrades" yaml:"but_automatic_upgrades"`
		AcquireByHash        string `json:"acquire_by_hash" yaml:"acquire_by_hash"`
	}
	type fileConfig struct {
		Distribution  fileDistribution `json:"distribution" yaml:"distribution"`
		Component     string           `json:"component" yaml:"component"`
		Architectures []string         `json:"architectures" yaml:"architectures"`
	}

	var dto fileConfig
	if err := unmarshal(path, data, &dto); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apt.ErrConfig, path, err)
	}

	return &Config{
		Distribution: apt.Distribution{
			Name:                 dto.Distribution.Name,
			Origin:               dto.Distribution.Origin,
			Label:                dto.Distribution.Label,
			Suite:                dto.Distribution.Suite,
			Version:              dto.Distribution.Version,
			Codename:             dto.Distribution.Codename,
			Description:          dto.Distribution.Description,
			ValidUntil:           dto.Distribution.ValidUntil,
			NotAutomatic:         dto.Distribution.NotAutomatic,
			ButAutomaticUpgrades: dto.Distribution.ButAutomaticUpgrades,
			AcquireByHash:        dto.Distribution.AcquireByHash,
		},
		Component:     dto.Component,
		Architectures: dto.Architectures,
	}, nil
}

// unmarshal parses JSON or YAML based on the file extension.
func unmarshal(path string, data []byte, v interface{}) error {
	ext := strings.ToLower(filepath.Ext(path))
	r := bytes.NewReader(data)
	if ext == ".yaml" || ext == ".yml" {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		return dec.Decode(v)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
