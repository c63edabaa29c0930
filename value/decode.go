package value

import (
	"fmt"
	"strconv"

	"go.bytecodealliance.org/wit"

	"github.com/wasmgraph/wasmgraph/errors"
	"github.com/wasmgraph/wasmgraph/value/internal/lexer"
)

// Decode parses a wave literal against a target wit type, producing
// the Go representation described in the package doc comment.
func Decode(literal string, t wit.Type) (any, error) {
	tokens, err := lexer.Tokenize(literal)
	if err != nil {
		return nil, errors.LiteralDecode(nil, witTypeName(t), literal, err)
	}
	d := &decoder{tokens: tokens, literal: literal}
	v, err := d.value(t)
	if err != nil {
		return nil, errors.LiteralDecode(nil, witTypeName(t), literal, err)
	}
	if d.peek().Type != lexer.EOF {
		return nil, errors.LiteralDecode(nil, witTypeName(t), literal,
			fmt.Errorf("unexpected trailing %s", d.peek().Type))
	}
	return v, nil
}

type decoder struct {
	tokens  []lexer.Token
	literal string
	pos     int
}

func (d *decoder) peek() lexer.Token {
	return d.tokens[d.pos]
}

func (d *decoder) next() lexer.Token {
	tok := d.tokens[d.pos]
	if d.pos < len(d.tokens)-1 {
		d.pos++
	}
	return tok
}

func (d *decoder) expect(tt lexer.Type) (lexer.Token, error) {
	tok := d.peek()
	if tok.Type != tt {
		return tok, fmt.Errorf("expected %s, found %s at position %d", tt, tok.Type, tok.Pos)
	}
	return d.next(), nil
}

// value dispatches on the dynamic kind of t, unwrapping *wit.TypeDef
// to reach its concrete Kind.
func (d *decoder) value(t wit.Type) (any, error) {
	if def, ok := t.(*wit.TypeDef); ok {
		return d.composite(def.Kind)
	}

	switch t.(type) {
	case wit.Bool:
		return d.boolLit()
	case wit.S8, wit.S16, wit.S32, wit.S64:
		return d.intLit(t)
	case wit.U8, wit.U16, wit.U32, wit.U64:
		return d.uintLit(t)
	case wit.F32:
		return d.floatLit(32)
	case wit.F64:
		return d.floatLit(64)
	case wit.Char:
		return d.charLit()
	case wit.String:
		return d.stringLit()
	default:
		return nil, fmt.Errorf("unsupported wit type %T", t)
	}
}

func (d *decoder) composite(kind wit.TypeDefKind) (any, error) {
	switch k := kind.(type) {
	case *wit.Record:
		return d.record(k)
	case *wit.List:
		return d.list(k)
	case *wit.Tuple:
		return d.tuple(k)
	case *wit.Variant:
		return d.variant(k)
	case *wit.Enum:
		return d.enum(k)
	case *wit.Flags:
		return d.flags(k)
	case *wit.Option:
		return d.option(k)
	case *wit.Result:
		return d.result(k)
	default:
		return nil, fmt.Errorf("unsupported wit typedef kind %T", kind)
	}
}

func (d *decoder) boolLit() (any, error) {
	tok, err := d.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	switch tok.Value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return nil, fmt.Errorf("expected true/false, found %q", tok.Value)
	}
}

func (d *decoder) intLit(t wit.Type) (any, error) {
	tok, err := d.expect(lexer.Number)
	if err != nil {
		return nil, err
	}
	bits := intBits(t)
	n, err := strconv.ParseInt(tok.Value, 10, bits)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", tok.Value, err)
	}
	switch t.(type) {
	case wit.S8:
		return int8(n), nil
	case wit.S16:
		return int16(n), nil
	case wit.S32:
		return int32(n), nil
	default:
		return n, nil
	}
}

func (d *decoder) uintLit(t wit.Type) (any, error) {
	tok, err := d.expect(lexer.Number)
	if err != nil {
		return nil, err
	}
	bits := intBits(t)
	n, err := strconv.ParseUint(tok.Value, 10, bits)
	if err != nil {
		return nil, fmt.Errorf("invalid unsigned integer %q: %w", tok.Value, err)
	}
	switch t.(type) {
	case wit.U8:
		return uint8(n), nil
	case wit.U16:
		return uint16(n), nil
	case wit.U32:
		return uint32(n), nil
	default:
		return n, nil
	}
}

func intBits(t wit.Type) int {
	switch t.(type) {
	case wit.S8, wit.U8:
		return 8
	case wit.S16, wit.U16:
		return 16
	case wit.S32, wit.U32:
		return 32
	default:
		return 64
	}
}

func (d *decoder) floatLit(bits int) (any, error) {
	tok, err := d.expect(lexer.Number)
	if err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(tok.Value, bits)
	if err != nil {
		return nil, fmt.Errorf("invalid float %q: %w", tok.Value, err)
	}
	if bits == 32 {
		return float32(f), nil
	}
	return f, nil
}

func (d *decoder) charLit() (any, error) {
	tok, err := d.expect(lexer.Char)
	if err != nil {
		return nil, err
	}
	r := []rune(tok.Value)
	if len(r) != 1 {
		return nil, fmt.Errorf("char literal must be exactly one rune, found %q", tok.Value)
	}
	return r[0], nil
}

func (d *decoder) stringLit() (any, error) {
	tok, err := d.expect(lexer.String)
	if err != nil {
		return nil, err
	}
	return tok.Value, nil
}

func (d *decoder) record(r *wit.Record) (any, error) {
	if _, err := d.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(r.Fields))
	for i, f := range r.Fields {
		if i > 0 {
			if _, err := d.expect(lexer.Comma); err != nil {
				return nil, err
			}
		}
		name, err := d.expect(lexer.Ident)
		if err != nil {
			return nil, fmt.Errorf("record field name: %w", err)
		}
		if name.Value != f.Name {
			return nil, fmt.Errorf("expected field %q, found %q", f.Name, name.Value)
		}
		if _, err := d.expect(lexer.Colon); err != nil {
			return nil, err
		}
		v, err := d.value(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out[f.Name] = v
	}
	if _, err := d.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *decoder) list(l *wit.List) (any, error) {
	if _, err := d.expect(lexer.LBracket); err != nil {
		return nil, err
	}
	var out []any
	for d.peek().Type != lexer.RBracket {
		if len(out) > 0 {
			if _, err := d.expect(lexer.Comma); err != nil {
				return nil, err
			}
		}
		v, err := d.value(l.Type)
		if err != nil {
			return nil, fmt.Errorf("list element %d: %w", len(out), err)
		}
		out = append(out, v)
	}
	if _, err := d.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *decoder) tuple(tp *wit.Tuple) (any, error) {
	if _, err := d.expect(lexer.LParen); err != nil {
		return nil, err
	}
	out := make([]any, len(tp.Types))
	for i, et := range tp.Types {
		if i > 0 {
			if _, err := d.expect(lexer.Comma); err != nil {
				return nil, err
			}
		}
		v, err := d.value(et)
		if err != nil {
			return nil, fmt.Errorf("tuple element %d: %w", i, err)
		}
		out[i] = v
	}
	if _, err := d.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *decoder) variant(vt *wit.Variant) (any, error) {
	name, err := d.expect(lexer.Ident)
	if err != nil {
		return nil, fmt.Errorf("variant case: %w", err)
	}
	var caseType wit.Type
	found := false
	for _, c := range vt.Cases {
		if c.Name == name.Value {
			caseType = c.Type
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown variant case %q", name.Value)
	}
	if caseType == nil {
		return Variant{Case: name.Value}, nil
	}
	if _, err := d.expect(lexer.LParen); err != nil {
		return nil, fmt.Errorf("variant case %q expects a payload: %w", name.Value, err)
	}
	v, err := d.value(caseType)
	if err != nil {
		return nil, fmt.Errorf("variant case %q payload: %w", name.Value, err)
	}
	if _, err := d.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return Variant{Case: name.Value, Value: v}, nil
}

func (d *decoder) enum(e *wit.Enum) (any, error) {
	name, err := d.expect(lexer.Ident)
	if err != nil {
		return nil, fmt.Errorf("enum case: %w", err)
	}
	for _, c := range e.Cases {
		if c.Name == name.Value {
			return Enum(name.Value), nil
		}
	}
	return nil, fmt.Errorf("unknown enum case %q", name.Value)
}

func (d *decoder) flags(f *wit.Flags) (any, error) {
	if _, err := d.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	valid := make(map[string]bool, len(f.Flags))
	for _, fl := range f.Flags {
		valid[fl.Name] = true
	}
	var out Flags
	for d.peek().Type != lexer.RBrace {
		if len(out) > 0 {
			if _, err := d.expect(lexer.Comma); err != nil {
				return nil, err
			}
		}
		name, err := d.expect(lexer.Ident)
		if err != nil {
			return nil, fmt.Errorf("flag name: %w", err)
		}
		if !valid[name.Value] {
			return nil, fmt.Errorf("unknown flag %q", name.Value)
		}
		out = append(out, name.Value)
	}
	if _, err := d.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *decoder) option(o *wit.Option) (any, error) {
	name, err := d.expect(lexer.Ident)
	if err != nil {
		return nil, fmt.Errorf("option: %w", err)
	}
	switch name.Value {
	case "none":
		return Option{Present: false}, nil
	case "some":
		if _, err := d.expect(lexer.LParen); err != nil {
			return nil, err
		}
		v, err := d.value(o.Type)
		if err != nil {
			return nil, fmt.Errorf("option payload: %w", err)
		}
		if _, err := d.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return Option{Present: true, Value: v}, nil
	default:
		return nil, fmt.Errorf("expected some/none, found %q", name.Value)
	}
}

func (d *decoder) result(r *wit.Result) (any, error) {
	name, err := d.expect(lexer.Ident)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	switch name.Value {
	case "ok":
		if r.OK == nil {
			if _, err := d.expect(lexer.LParen); err == nil {
				if _, err := d.expect(lexer.RParen); err != nil {
					return nil, err
				}
			}
			return Result{IsErr: false}, nil
		}
		if _, err := d.expect(lexer.LParen); err != nil {
			return nil, err
		}
		v, err := d.value(r.OK)
		if err != nil {
			return nil, fmt.Errorf("ok payload: %w", err)
		}
		if _, err := d.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return Result{IsErr: false, Value: v}, nil
	case "err":
		if r.Err == nil {
			if _, err := d.expect(lexer.LParen); err == nil {
				if _, err := d.expect(lexer.RParen); err != nil {
					return nil, err
				}
			}
			return Result{IsErr: true}, nil
		}
		if _, err := d.expect(lexer.LParen); err != nil {
			return nil, err
		}
		v, err := d.value(r.Err)
		if err != nil {
			return nil, fmt.Errorf("err payload: %w", err)
		}
		if _, err := d.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return Result{IsErr: true, Value: v}, nil
	default:
		return nil, fmt.Errorf("expected ok/err, found %q", name.Value)
	}
}

func witTypeName(t wit.Type) string {
	if def, ok := t.(*wit.TypeDef); ok {
		return fmt.Sprintf("%T", def.Kind)
	}
	return fmt.Sprintf("%T", t)
}
