package value

import (
	"fmt"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"
)

// Render renders a decoded value back to wave literal text, directed
// by the same wit type used to decode it. It is the inverse of Decode.
func Render(v any, t wit.Type) (string, error) {
	if def, ok := t.(*wit.TypeDef); ok {
		return renderComposite(v, def.Kind)
	}

	switch t.(type) {
	case wit.Bool:
		b, ok := v.(bool)
		if !ok {
			return "", fmt.Errorf("render bool: value is %T", v)
		}
		return strconv.FormatBool(b), nil
	case wit.S8, wit.S16, wit.S32, wit.S64:
		return renderInt(v)
	case wit.U8, wit.U16, wit.U32, wit.U64:
		return renderUint(v)
	case wit.F32:
		f, ok := v.(float32)
		if !ok {
			return "", fmt.Errorf("render f32: value is %T", v)
		}
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case wit.F64:
		f, ok := v.(float64)
		if !ok {
			return "", fmt.Errorf("render f64: value is %T", v)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case wit.Char:
		r, ok := v.(rune)
		if !ok {
			return "", fmt.Errorf("render char: value is %T", v)
		}
		return "'" + escapeRune(r) + "'", nil
	case wit.String:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("render string: value is %T", v)
		}
		return `"` + escapeString(s) + `"`, nil
	default:
		return "", fmt.Errorf("unsupported wit type %T", t)
	}
}

func renderInt(v any) (string, error) {
	switch n := v.(type) {
	case int8:
		return strconv.FormatInt(int64(n), 10), nil
	case int16:
		return strconv.FormatInt(int64(n), 10), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	default:
		return "", fmt.Errorf("render int: value is %T", v)
	}
}

func renderUint(v any) (string, error) {
	switch n := v.(type) {
	case uint8:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	default:
		return "", fmt.Errorf("render uint: value is %T", v)
	}
}

func renderComposite(v any, kind wit.TypeDefKind) (string, error) {
	switch k := kind.(type) {
	case *wit.Record:
		m, ok := v.(map[string]any)
		if !ok {
			return "", fmt.Errorf("render record: value is %T", v)
		}
		parts := make([]string, len(k.Fields))
		for i, f := range k.Fields {
			fv, present := m[f.Name]
			if !present {
				return "", fmt.Errorf("render record: missing field %q", f.Name)
			}
			s, err := Render(fv, f.Type)
			if err != nil {
				return "", fmt.Errorf("field %q: %w", f.Name, err)
			}
			parts[i] = f.Name + ": " + s
		}
		return "{" + strings.Join(parts, ", ") + "}", nil

	case *wit.List:
		items, ok := v.([]any)
		if !ok {
			return "", fmt.Errorf("render list: value is %T", v)
		}
		parts := make([]string, len(items))
		for i, item := range items {
			s, err := Render(item, k.Type)
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil

	case *wit.Tuple:
		items, ok := v.([]any)
		if !ok {
			return "", fmt.Errorf("render tuple: value is %T", v)
		}
		if len(items) != len(k.Types) {
			return "", fmt.Errorf("render tuple: expected %d elements, got %d", len(k.Types), len(items))
		}
		parts := make([]string, len(items))
		for i, item := range items {
			s, err := Render(item, k.Types[i])
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, ", ") + ")", nil

	case *wit.Variant:
		vv, ok := v.(Variant)
		if !ok {
			return "", fmt.Errorf("render variant: value is %T", v)
		}
		for _, c := range k.Cases {
			if c.Name != vv.Case {
				continue
			}
			if c.Type == nil {
				return vv.Case, nil
			}
			s, err := Render(vv.Value, c.Type)
			if err != nil {
				return "", fmt.Errorf("case %q: %w", vv.Case, err)
			}
			return vv.Case + "(" + s + ")", nil
		}
		return "", fmt.Errorf("unknown variant case %q", vv.Case)

	case *wit.Enum:
		e, ok := v.(Enum)
		if !ok {
			return "", fmt.Errorf("render enum: value is %T", v)
		}
		return string(e), nil

	case *wit.Flags:
		fl, ok := v.(Flags)
		if !ok {
			return "", fmt.Errorf("render flags: value is %T", v)
		}
		return "{" + strings.Join([]string(fl), ", ") + "}", nil

	case *wit.Option:
		o, ok := v.(Option)
		if !ok {
			return "", fmt.Errorf("render option: value is %T", v)
		}
		if !o.Present {
			return "none", nil
		}
		s, err := Render(o.Value, k.Type)
		if err != nil {
			return "", fmt.Errorf("option payload: %w", err)
		}
		return "some(" + s + ")", nil

	case *wit.Result:
		r, ok := v.(Result)
		if !ok {
			return "", fmt.Errorf("render result: value is %T", v)
		}
		if r.IsErr {
			if k.Err == nil {
				return "err", nil
			}
			s, err := Render(r.Value, k.Err)
			if err != nil {
				return "", fmt.Errorf("err payload: %w", err)
			}
			return "err(" + s + ")", nil
		}
		if k.OK == nil {
			return "ok", nil
		}
		s, err := Render(r.Value, k.OK)
		if err != nil {
			return "", fmt.Errorf("ok payload: %w", err)
		}
		return "ok(" + s + ")", nil

	default:
		return "", fmt.Errorf("unsupported wit typedef kind %T", kind)
	}
}

func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeRune(r rune) string {
	switch r {
	case '\'':
		return `\'`
	case '\\':
		return `\\`
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	case '\r':
		return `\r`
	default:
		return string(r)
	}
}
