// Package feeders populates configuration structs from files and the
// environment. Each feeder implements config.Feeder.
package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML file.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a YamlFeeder for path.
func NewYamlFeeder(path string) YamlFeeder {
	return YamlFeeder{Path: path}
}

// Feed decodes the file into structure.
func (y YamlFeeder) Feed(structure any) error {
	if err := checkStructure(structure); err != nil {
		return err
	}
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return fmt.Errorf("failed to read YAML: %w", err)
	}
	if err := yaml.Unmarshal(data, structure); err != nil {
		return fmt.Errorf("failed to decode YAML %s: %w", y.Path, err)
	}
	return nil
}
