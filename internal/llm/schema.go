package llm

import (
	"strings"

	"google.golang.org/genai"
)

func stringSchema(description string, enum ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description, Enum: enum}
}

func numberSchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: description}
}

// StackSchema describes a DetectedStack reply.
var StackSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"language":    stringSchema("Primary programming language"),
		"framework":   stringSchema("Main framework or runtime"),
		"database":    stringSchema("Database in use, or None"),
		"entry_point": stringSchema("File or command that starts the application"),
		"confidence":  numberSchema("Confidence from 0 to 100"),
		"reasoning":   stringSchema("Short justification"),
	},
	Required: []string{"language", "framework", "database", "entry_point", "confidence", "reasoning"},
}

// ConfigsSchema describes a generated Dockerfile and workflow.
var ConfigsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"dockerfile": stringSchema("Complete multi-stage Dockerfile"),
		"workflow":   stringSchema("Complete GitHub Actions workflow YAML"),
	},
	Required: []string{"dockerfile", "workflow"},
}

// FindingsSchema describes the security gate reply: an array of findings.
var FindingsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":           stringSchema("Finding category", "secret", "vulnerability"),
			"severity":       stringSchema("Severity", "critical", "high", "medium", "low"),
			"title":          stringSchema("Short title"),
			"file":           stringSchema("Path of the affected file"),
			"line":           {Type: genai.TypeInteger, Description: "Line number, if known"},
			"description":    stringSchema("What is wrong"),
			"recommendation": stringSchema("How to fix it"),
		},
		Required: []string{"type", "severity", "title", "file", "description", "recommendation"},
	},
}

// HealingSchema describes a build-failure diagnosis.
var HealingSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"rootCause":   stringSchema("Root cause of the failure"),
		"fixType":     stringSchema("Kind of fix", "dependency", "config", "code", "environment"),
		"confidence":  numberSchema("Confidence from 0 to 100"),
		"explanation": stringSchema("Explanation of the failure and the fix"),
		"suggestedFix": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"type":   stringSchema("How the change is applied, e.g. add_line, replace, command"),
				"target": stringSchema("File or setting to change"),
				"change": stringSchema("The exact change"),
			},
			Required: []string{"type", "target", "change"},
		},
	},
	Required: []string{"rootCause", "fixType", "confidence", "explanation", "suggestedFix"},
}

// SchemaToJSONSchema renders a genai schema as a plain JSON Schema document for
// models without native structured output.
func SchemaToJSONSchema(s *genai.Schema) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := map[string]any{"type": strings.ToLower(string(s.Type))}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = SchemaToJSONSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = SchemaToJSONSchema(p)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
