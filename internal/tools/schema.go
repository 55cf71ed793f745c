package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// FieldType is the primitive type a tool argument accepts.
type FieldType string

const (
	// FieldString accepts a JSON string.
	FieldString FieldType = "string"
	// FieldIdentifier accepts a task id as integer or string, or a task name.
	FieldIdentifier FieldType = "identifier"
)

// Field describes one argument of a tool.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	// Enum lists suggested values. Values are matched case-insensitively
	// by the handlers, so the list is advertised but not enforced.
	Enum []string
}

// Schema renders the closed field set as a JSON Schema object.
func Schema(fields []Field) json.RawMessage {
	properties := make(map[string]any, len(fields))
	required := []string{}

	for _, f := range fields {
		prop := map[string]any{}
		switch f.Type {
		case FieldIdentifier:
			prop["type"] = []string{"integer", "string"}
		default:
			prop["type"] = string(f.Type)
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			prop["examples"] = f.Enum
		}
		properties[f.Name] = prop

		if f.Required {
			required = append(required, f.Name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}

	// map keys are marshalled in sorted order, so the output is stable
	data, _ := json.Marshal(schema)
	return data
}

// compileSchema compiles the schema for a tool.
func compileSchema(name string, fields []Field) (*jsonschema.Schema, error) {
	url := fmt.Sprintf("taskman://tools/%s.json", name)
	sch, err := jsonschema.CompileString(url, string(Schema(fields)))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", name, err)
	}
	return sch, nil
}

// validateArgs normalises args through a JSON round trip and checks them
// against the compiled schema.
func validateArgs(sch *jsonschema.Schema, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, schemaMessage(err))
	}

	normalised, _ := doc.(map[string]any)
	return normalised, nil
}

// schemaMessage flattens a jsonschema validation error into its leaf causes.
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}

	var msgs []string
	collectSchemaErrors(ve, &msgs)
	if len(msgs) == 0 {
		return ve.Message
	}

	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

func collectSchemaErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		loc := strings.TrimPrefix(err.InstanceLocation, "/")
		if loc == "" {
			*msgs = append(*msgs, err.Message)
		} else {
			*msgs = append(*msgs, fmt.Sprintf("%s: %s", loc, err.Message))
		}
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(cause, msgs)
	}
}
