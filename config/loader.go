package config

import "fmt"

// Feeder populates a configuration struct from one source.
type Feeder interface {
	Feed(structure any) error
}

// Loader runs its feeders in order, later feeders overriding earlier ones,
// then applies defaults and validation.
type Loader struct {
	feeders []Feeder
}

// NewLoader creates a Loader with the given feeders.
func NewLoader(feeders ...Feeder) *Loader {
	return &Loader{feeders: feeders}
}

// AddFeeder appends a feeder.
func (l *Loader) AddFeeder(f Feeder) *Loader {
	l.feeders = append(l.feeders, f)
	return l
}

// Load feeds cfg and validates it.
func (l *Loader) Load(cfg any) error {
	if _, err := structValue(cfg); err != nil {
		return err
	}
	for _, f := range l.feeders {
		if err := f.Feed(cfg); err != nil {
			return fmt.Errorf("failed to feed config with %T: %w", f, err)
		}
	}
	return Validate(cfg)
}

// Default returns a Config holding only default values. It fails when a
// default tag cannot be applied to its field.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := ProcessDefaults(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	return cfg, nil
}
