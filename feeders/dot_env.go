package feeders

import (
	"fmt"

	"github.com/joho/godotenv"
)

// DotEnvFeeder fills `env` tagged fields from a .env file without touching
// the process environment.
type DotEnvFeeder struct {
	Path   string
	Prefix string
}

// NewDotEnvFeeder creates a DotEnvFeeder for path.
func NewDotEnvFeeder(path, prefix string) DotEnvFeeder {
	return DotEnvFeeder{Path: path, Prefix: prefix}
}

// Feed parses the file and populates structure.
func (f DotEnvFeeder) Feed(structure any) error {
	if err := checkStructure(structure); err != nil {
		return err
	}
	values, err := godotenv.Read(f.Path)
	if err != nil {
		return fmt.Errorf("failed to parse .env file: %w", err)
	}
	return feedFromLookup(structure, f.Prefix, func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})
}
