package feeders

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONFeeder reads a JSON file.
type JSONFeeder struct {
	Path string
}

// NewJSONFeeder creates a JSONFeeder for path.
func NewJSONFeeder(path string) JSONFeeder {
	return JSONFeeder{Path: path}
}

// Feed decodes the file into structure. Durations must be given in
// nanoseconds.
func (j JSONFeeder) Feed(structure any) error {
	if err := checkStructure(structure); err != nil {
		return err
	}
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	if err := json.Unmarshal(data, structure); err != nil {
		return fmt.Errorf("failed to decode JSON %s: %w", j.Path, err)
	}
	return nil
}
