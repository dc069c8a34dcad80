package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// EnvFeeder fills fields tagged `env:"NAME"` from PREFIX_NAME environment
// variables. Unset and empty variables leave the field untouched.
type EnvFeeder struct {
	Prefix string
}

// NewEnvFeeder creates an EnvFeeder. The prefix is upper-cased; an empty
// prefix reads the bare tag names.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed populates structure from the process environment.
func (f EnvFeeder) Feed(structure any) error {
	return feedFromLookup(structure, f.Prefix, os.LookupEnv)
}

type lookupFunc func(name string) (string, bool)

func checkStructure(structure any) error {
	t := reflect.TypeOf(structure)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct || reflect.ValueOf(structure).IsNil() {
		return wrapStructureError(structure)
	}
	return nil
}

func feedFromLookup(structure any, prefix string, lookup lookupFunc) error {
	if err := checkStructure(structure); err != nil {
		return err
	}
	return fillStruct(reflect.ValueOf(structure).Elem(), strings.ToUpper(prefix), lookup)
}

func fillStruct(rv reflect.Value, prefix string, lookup lookupFunc) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}

		switch {
		case field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}):
			if err := fillStruct(field, prefix, lookup); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
			if err := fillStruct(field.Elem(), prefix, lookup); err != nil {
				return err
			}
			continue
		}

		tag, ok := fieldType.Tag.Lookup("env")
		if !ok || tag == "" || tag == "-" {
			continue
		}
		name := envName(prefix, tag)
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return wrapConvertError(name, value, err)
		}
	}
	return nil
}

func envName(prefix, tag string) string {
	name := strings.ToUpper(tag)
	if prefix != "" {
		name = prefix + "_" + name
	}
	return name
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return ErrFieldCannotBeSet
	}

	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		parts := strings.Split(value, ",")
		out := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = reflect.Append(out, reflect.ValueOf(p).Convert(field.Type().Elem()))
			}
		}
		field.Set(out)
		return nil
	}

	converted, err := cast.FromType(value, field.Type())
	if err != nil {
		return err
	}
	if converted == nil {
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
