package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/devctl/devctl/internal/xerrors"
)

// OptionValue is a resolved option value: a tagged union over
// {null, bool, number, string, array, object}, decoded straight off
// JSON. A plain `any` is the idiomatic Go representation of that
// union; Go's type switch is the discriminant.
type OptionValue = any

// buildOptionsSchema generates a JSON Schema document (draft 2020-12,
// the dialect jsonschema/v6 defaults to) from a feature's declared
// option definitions, so resolved options can be validated the same
// way regardless of whether they came from devcontainer.json or the
// CLI.
func buildOptionsSchema(featureID string, opts map[string]OptionDefinition) ([]byte, error) {
	properties := make(map[string]any, len(opts))
	for name, def := range opts {
		prop := map[string]any{}
		switch def.Type {
		case "boolean":
			prop["type"] = "boolean"
		case "string":
			prop["type"] = "string"
			if len(def.Enum) > 0 {
				enum := make([]any, len(def.Enum))
				for i, v := range def.Enum {
					enum[i] = v
				}
				prop["enum"] = enum
			}
		default:
			// Unknown/absent type: accept any JSON value.
		}
		properties[name] = prop
	}

	schema := map[string]any{
		"$id":                  "https://devctl.invalid/features/" + featureID + "/options.json",
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	return json.Marshal(schema)
}

// ValidateOptions type-checks resolved options against a feature's
// declared options schema, per the "schema... drives validation at
// resolution time" requirement. Unknown option names are rejected;
// known names are checked against their declared type/enum.
func ValidateOptions(featureID string, defs map[string]OptionDefinition, options map[string]OptionValue) error {
	for name := range options {
		if _, ok := defs[name]; !ok {
			return xerrors.OptionsValidation(featureID, fmt.Sprintf("unknown option %q", name))
		}
	}

	schemaDoc, err := buildOptionsSchema(featureID, defs)
	if err != nil {
		return xerrors.Wrap(err, xerrors.CategoryInternal, xerrors.CodeInternal, "building feature options schema")
	}

	schemaID := "https://devctl.invalid/features/" + featureID + "/options.json"
	unmarshaled, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaDoc))
	if err != nil {
		return xerrors.Wrap(err, xerrors.CategoryInternal, xerrors.CodeInternal, "unmarshaling feature options schema")
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaID, unmarshaled); err != nil {
		return xerrors.Wrap(err, xerrors.CategoryInternal, xerrors.CodeInternal, "registering feature options schema")
	}
	sch, err := c.Compile(schemaID)
	if err != nil {
		return xerrors.Wrap(err, xerrors.CategoryInternal, xerrors.CodeInternal, "compiling feature options schema")
	}

	encoded, err := json.Marshal(options)
	if err != nil {
		return xerrors.Wrap(err, xerrors.CategoryInternal, xerrors.CodeInternal, "encoding resolved options")
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return xerrors.Wrap(err, xerrors.CategoryInternal, xerrors.CodeInternal, "unmarshaling resolved options")
	}

	if err := sch.Validate(instance); err != nil {
		msg := err.Error()
		if idx := strings.Index(msg, "\n"); idx != -1 {
			msg = msg[:idx]
		}
		return xerrors.OptionsValidation(featureID, msg)
	}
	return nil
}
