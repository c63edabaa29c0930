package value

import (
	"fmt"

	"go.bytecodealliance.org/wit"
)

// JSONSchema produces a JSON-schema fragment describing the shape a
// decoded value of wit type t takes, for inspection tooling (e.g. a
// CLI "describe" command listing a component's expected inputs).
func JSONSchema(t wit.Type) (map[string]any, error) {
	if def, ok := t.(*wit.TypeDef); ok {
		return compositeSchema(def.Kind)
	}

	switch t.(type) {
	case wit.Bool:
		return map[string]any{"type": "boolean"}, nil
	case wit.S8, wit.S16, wit.S32, wit.S64, wit.U8, wit.U16, wit.U32, wit.U64:
		return map[string]any{"type": "integer"}, nil
	case wit.F32, wit.F64:
		return map[string]any{"type": "number"}, nil
	case wit.Char:
		return map[string]any{"type": "string", "minLength": 1, "maxLength": 1}, nil
	case wit.String:
		return map[string]any{"type": "string"}, nil
	default:
		return nil, fmt.Errorf("unsupported wit type %T", t)
	}
}

func compositeSchema(kind wit.TypeDefKind) (map[string]any, error) {
	switch k := kind.(type) {
	case *wit.Record:
		props := make(map[string]any, len(k.Fields))
		required := make([]string, len(k.Fields))
		for i, f := range k.Fields {
			fs, err := JSONSchema(f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			props[f.Name] = fs
			required[i] = f.Name
		}
		return map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		}, nil

	case *wit.List:
		items, err := JSONSchema(k.Type)
		if err != nil {
			return nil, fmt.Errorf("list element: %w", err)
		}
		return map[string]any{"type": "array", "items": items}, nil

	case *wit.Tuple:
		items := make([]any, len(k.Types))
		for i, et := range k.Types {
			s, err := JSONSchema(et)
			if err != nil {
				return nil, fmt.Errorf("tuple element %d: %w", i, err)
			}
			items[i] = s
		}
		return map[string]any{
			"type":        "array",
			"prefixItems": items,
		}, nil

	case *wit.Variant:
		oneOf := make([]any, len(k.Cases))
		for i, c := range k.Cases {
			if c.Type == nil {
				oneOf[i] = map[string]any{"title": c.Name, "const": c.Name}
				continue
			}
			payload, err := JSONSchema(c.Type)
			if err != nil {
				return nil, fmt.Errorf("variant case %q: %w", c.Name, err)
			}
			oneOf[i] = map[string]any{
				"title": c.Name,
				"type":  "object",
				"properties": map[string]any{
					"case":  map[string]any{"const": c.Name},
					"value": payload,
				},
				"required": []string{"case", "value"},
			}
		}
		return map[string]any{"oneOf": oneOf}, nil

	case *wit.Enum:
		names := make([]any, len(k.Cases))
		for i, c := range k.Cases {
			names[i] = c.Name
		}
		return map[string]any{"type": "string", "enum": names}, nil

	case *wit.Flags:
		props := make(map[string]any, len(k.Flags))
		for _, f := range k.Flags {
			props[f.Name] = map[string]any{"type": "boolean"}
		}
		return map[string]any{
			"type":       "object",
			"properties": props,
		}, nil

	case *wit.Option:
		inner, err := JSONSchema(k.Type)
		if err != nil {
			return nil, fmt.Errorf("option: %w", err)
		}
		return map[string]any{"anyOf": []any{map[string]any{"type": "null"}, inner}}, nil

	case *wit.Result:
		// Both arms are always present; an arm that carries no
		// payload type is null.
		var okSchema, errSchema any
		if k.OK != nil {
			s, err := JSONSchema(k.OK)
			if err != nil {
				return nil, fmt.Errorf("result ok: %w", err)
			}
			okSchema = s
		}
		if k.Err != nil {
			s, err := JSONSchema(k.Err)
			if err != nil {
				return nil, fmt.Errorf("result err: %w", err)
			}
			errSchema = s
		}
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"Ok":  okSchema,
				"Err": errSchema,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported wit typedef kind %T", kind)
	}
}
