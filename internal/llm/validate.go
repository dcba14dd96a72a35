package llm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// SchemaError reports a reply that is not JSON or does not match the request schema.
type SchemaError struct {
	Request string
	Path    string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: invalid model reply: %s", e.Request, e.Reason)
	}
	return fmt.Sprintf("%s: invalid model reply at %s: %s", e.Request, e.Path, e.Reason)
}

// ValidateJSON checks raw against schema: value types, required properties and enums.
// Properties not named in the schema are ignored.
func ValidateJSON(name, raw string, schema *genai.Schema) error {
	if !gjson.Valid(raw) {
		return &SchemaError{Request: name, Reason: "reply is not valid JSON"}
	}
	if schema == nil {
		return nil
	}
	return validateValue(name, "$", gjson.Parse(raw), schema)
}

func validateValue(name, path string, v gjson.Result, s *genai.Schema) error {
	fail := func(format string, args ...any) error {
		return &SchemaError{Request: name, Path: path, Reason: fmt.Sprintf(format, args...)}
	}

	switch s.Type {
	case genai.TypeObject:
		if !v.IsObject() {
			return fail("expected object")
		}
		fields := make(map[string]gjson.Result)
		v.ForEach(func(key, value gjson.Result) bool {
			fields[key.String()] = value
			return true
		})
		for _, req := range s.Required {
			if f, ok := fields[req]; !ok || f.Type == gjson.Null {
				return fail("missing required property %q", req)
			}
		}
		for key, prop := range s.Properties {
			f, ok := fields[key]
			if !ok || f.Type == gjson.Null {
				continue
			}
			if err := validateValue(name, path+"."+key, f, prop); err != nil {
				return err
			}
		}
	case genai.TypeArray:
		if !v.IsArray() {
			return fail("expected array")
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range v.Array() {
			if err := validateValue(name, fmt.Sprintf("%s[%d]", path, i), item, s.Items); err != nil {
				return err
			}
		}
	case genai.TypeString:
		if v.Type != gjson.String {
			return fail("expected string")
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, v.String()) {
			return fail("value %q not in %v", v.String(), s.Enum)
		}
	case genai.TypeNumber:
		if v.Type != gjson.Number {
			return fail("expected number")
		}
	case genai.TypeInteger:
		// Raw literals like 12.0 or 1e2 do not decode into Go ints.
		if v.Type != gjson.Number || strings.ContainsAny(v.Raw, ".eE") {
			return fail("expected integer")
		}
	case genai.TypeBoolean:
		if v.Type != gjson.True && v.Type != gjson.False {
			return fail("expected boolean")
		}
	}
	return nil
}
