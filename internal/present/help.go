package present

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/colonyops/taskman/internal/tools"
)

// HelpMarkdown documents the interactive commands and the tool catalog.
func HelpMarkdown(infos []tools.Info) string {
	var b strings.Builder

	b.WriteString("# taskman\n\n")
	b.WriteString("Type a tool name followed by `key=value` arguments. ")
	b.WriteString("Quote values containing spaces: `add name=\"Write report\" priority=High`.\n\n")
	b.WriteString("Other commands: `help`, `tools`, `quit` (also `exit`, `q`).\n\n")
	b.WriteString("## Tools\n\n")

	for _, info := range infos {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", info.Name, info.Description)

		fields := schemaFields(info.InputSchema)
		if len(fields) == 0 {
			b.WriteString("No arguments.\n\n")
			continue
		}
		for _, f := range fields {
			req := ""
			if f.required {
				req = " (required)"
			}
			fmt.Fprintf(&b, "- `%s` %s%s", f.name, f.typ, req)
			if f.description != "" {
				fmt.Fprintf(&b, ": %s", f.description)
			}
			if len(f.examples) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(f.examples, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

type schemaField struct {
	name        string
	typ         string
	required    bool
	description string
	examples    []string
}

// schemaFields reads the properties back out of a tool schema, required
// fields first.
func schemaFields(raw json.RawMessage) []schemaField {
	var schema struct {
		Properties map[string]struct {
			Type        any      `json:"type"`
			Description string   `json:"description"`
			Examples    []string `json:"examples"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	fields := make([]schemaField, 0, len(schema.Properties))
	for name, prop := range schema.Properties {
		fields = append(fields, schemaField{
			name:        name,
			typ:         typeName(prop.Type),
			required:    required[name],
			description: prop.Description,
			examples:    prop.Examples,
		})
	}

	sort.Slice(fields, func(i, j int) bool {
		if fields[i].required != fields[j].required {
			return fields[i].required
		}
		return fields[i].name < fields[j].name
	})
	return fields
}

func typeName(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "|")
	default:
		return "any"
	}
}
