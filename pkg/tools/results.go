package tools

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// Schema is a JSON Schema (draft 2020-12).
type Schema = jsonschema.Schema

// ErrUnnamedResult is returned when a result value is not a named struct.
var ErrUnnamedResult = errors.New("result must be a named struct")

// sharedTypes are the result building blocks that get their own definition
// and are referenced from every result that embeds them.
var sharedTypes = []reflect.Type{
	reflect.TypeFor[history.CommitRecord](),
	reflect.TypeFor[history.FileChange](),
	reflect.TypeFor[history.BlameLine](),
	reflect.TypeFor[history.DiffStats](),
}

// ResultSchema describes the JSON encoding of v, which must be a named
// struct. The definition of v and of every shared type it references are
// added to defs, and the returned schema is a reference to refPrefix+name.
func ResultSchema(v any, refPrefix string, defs map[string]*Schema) (*Schema, error) {
	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Struct || t.Name() == "" {
		return nil, fmt.Errorf("%w: %T", ErrUnnamedResult, v)
	}

	err := define(t, refPrefix, defs)
	if err != nil {
		return nil, err
	}

	return &Schema{Ref: refPrefix + t.Name()}, nil
}

func define(t reflect.Type, refPrefix string, defs map[string]*Schema) error {
	if _, ok := defs[t.Name()]; ok {
		return nil
	}

	refs := make(map[reflect.Type]*Schema, len(sharedTypes))

	for _, shared := range sharedTypes {
		if shared != t {
			refs[shared] = &Schema{Ref: refPrefix + shared.Name()}
		}
	}

	schema, err := jsonschema.ForType(t, &jsonschema.ForOptions{TypeSchemas: refs})
	if err != nil {
		return fmt.Errorf("schema for %s: %w", t.Name(), err)
	}

	defs[t.Name()] = schema

	for _, shared := range sharedTypes {
		if shared == t || !references(schema, refPrefix+shared.Name()) {
			continue
		}

		err = define(shared, refPrefix, defs)
		if err != nil {
			return err
		}
	}

	return nil
}

// references reports whether ref appears anywhere below schema.
func references(schema *Schema, ref string) bool {
	if schema == nil {
		return false
	}

	if schema.Ref == ref {
		return true
	}

	for _, prop := range schema.Properties {
		if references(prop, ref) {
			return true
		}
	}

	for _, sub := range schema.AnyOf {
		if references(sub, ref) {
			return true
		}
	}

	return references(schema.Items, ref) || references(schema.AdditionalProperties, ref)
}
