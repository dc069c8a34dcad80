package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TomlFeeder reads a TOML file.
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a TomlFeeder for path.
func NewTomlFeeder(path string) TomlFeeder {
	return TomlFeeder{Path: path}
}

// Feed decodes the file into structure.
func (t TomlFeeder) Feed(structure any) error {
	if err := checkStructure(structure); err != nil {
		return err
	}
	if _, err := toml.DecodeFile(t.Path, structure); err != nil {
		return fmt.Errorf("failed to read toml: %w", err)
	}
	return nil
}
