package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// GenerateSample renders a fresh value of cfg's type, with defaults
// applied, as "yaml", "json" or "toml".
func GenerateSample(cfg any, format string) ([]byte, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	t := reflect.TypeOf(cfg)
	if t.Kind() != reflect.Ptr {
		return nil, ErrConfigNotPointer
	}

	sample := reflect.New(t.Elem()).Interface()
	if err := ProcessDefaults(sample); err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err := yaml.Marshal(sample)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
		}
		return data, nil
	case "json":
		data, err := json.MarshalIndent(sample, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal to JSON: %w", err)
		}
		return data, nil
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(sample); err != nil {
			return nil, fmt.Errorf("failed to marshal to TOML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormatType, format)
	}
}

// SaveSample writes GenerateSample's output to path.
func SaveSample(cfg any, format, path string) error {
	data, err := GenerateSample(cfg, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file to %s: %w", path, err)
	}
	return nil
}

// Describe lists every leaf field with its dotted yaml path and desc tag,
// in declaration order.
func Describe(cfg any) ([]FieldDoc, error) {
	v, err := structValue(cfg)
	if err != nil {
		return nil, err
	}
	var docs []FieldDoc
	describeFields(v.Type(), "", &docs)
	return docs, nil
}

// FieldDoc documents one configuration field.
type FieldDoc struct {
	Path        string
	Env         string
	Default     string
	Required    bool
	Description string
}

func describeFields(t reflect.Type, prefix string, docs *[]FieldDoc) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() != "time" {
			describeFields(f.Type, name, docs)
			continue
		}
		*docs = append(*docs, FieldDoc{
			Path:        name,
			Env:         f.Tag.Get("env"),
			Default:     f.Tag.Get(tagDefault),
			Required:    isFieldRequired(&f),
			Description: f.Tag.Get(tagDesc),
		})
	}
}
