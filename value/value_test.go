package value

import (
	"reflect"
	"testing"

	"go.bytecodealliance.org/wit"
)

var personType = &wit.TypeDef{
	Kind: &wit.Record{Fields: []wit.Field{
		{Name: "name", Type: wit.String{}},
		{Name: "age", Type: wit.U32{}},
	}},
}

var statusType = &wit.TypeDef{
	Kind: &wit.Variant{Cases: []wit.Case{
		{Name: "pending"},
		{Name: "failed", Type: wit.String{}},
	}},
}

var colorType = &wit.TypeDef{
	Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "red"}, {Name: "green"}, {Name: "blue"}}},
}

var permsType = &wit.TypeDef{
	Kind: &wit.Flags{Flags: []wit.Flag{{Name: "read"}, {Name: "write"}, {Name: "exec"}}},
}

func TestDecode_Primitives(t *testing.T) {
	cases := []struct {
		literal string
		typ     wit.Type
		want    any
	}{
		{"true", wit.Bool{}, true},
		{"42", wit.S32{}, int32(42)},
		{"-7", wit.S64{}, int64(-7)},
		{"255", wit.U8{}, uint8(255)},
		{"3.5", wit.F64{}, 3.5},
		{`"hello"`, wit.String{}, "hello"},
		{"'x'", wit.Char{}, 'x'},
	}
	for _, c := range cases {
		got, err := Decode(c.literal, c.typ)
		if err != nil {
			t.Errorf("Decode(%q): %v", c.literal, err)
			continue
		}
		if got != c.want {
			t.Errorf("Decode(%q) = %v (%T), want %v (%T)", c.literal, got, got, c.want, c.want)
		}
	}
}

func TestDecode_Record(t *testing.T) {
	got, err := Decode(`{name: "ada", age: 30}`, personType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if m["name"] != "ada" || m["age"] != uint32(30) {
		t.Errorf("got %+v", m)
	}
}

func TestDecode_List(t *testing.T) {
	listType := &wit.TypeDef{Kind: &wit.List{Type: wit.S32{}}}
	got, err := Decode("[1, 2, 3]", listType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	items, ok := got.([]any)
	if !ok || len(items) != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestDecode_Variant(t *testing.T) {
	got, err := Decode("pending", statusType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v, ok := got.(Variant)
	if !ok || v.Case != "pending" || v.Value != nil {
		t.Errorf("got %+v", got)
	}

	got2, err := Decode(`failed("timeout")`, statusType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v2, ok := got2.(Variant)
	if !ok || v2.Case != "failed" || v2.Value != "timeout" {
		t.Errorf("got %+v", got2)
	}
}

func TestDecode_Enum(t *testing.T) {
	got, err := Decode("green", colorType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != Enum("green") {
		t.Errorf("got %+v", got)
	}
}

func TestDecode_UnknownEnumCase(t *testing.T) {
	if _, err := Decode("purple", colorType); err == nil {
		t.Fatal("expected error for unknown enum case")
	}
}

func TestDecode_Flags(t *testing.T) {
	got, err := Decode("{read, write}", permsType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fl, ok := got.(Flags)
	if !ok || !reflect.DeepEqual([]string(fl), []string{"read", "write"}) {
		t.Errorf("got %+v", got)
	}
}

func TestDecode_Option(t *testing.T) {
	optType := &wit.TypeDef{Kind: &wit.Option{Type: wit.S32{}}}
	none, err := Decode("none", optType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if o := none.(Option); o.Present {
		t.Errorf("expected absent option, got %+v", o)
	}

	some, err := Decode("some(7)", optType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if o := some.(Option); !o.Present || o.Value != int32(7) {
		t.Errorf("got %+v", o)
	}
}

func TestDecode_Result(t *testing.T) {
	resType := &wit.TypeDef{Kind: &wit.Result{OK: wit.S32{}, Err: wit.String{}}}
	ok, err := Decode("ok(1)", resType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r := ok.(Result); r.IsErr || r.Value != int32(1) {
		t.Errorf("got %+v", r)
	}

	bad, err := Decode(`err("boom")`, resType)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r := bad.(Result); !r.IsErr || r.Value != "boom" {
		t.Errorf("got %+v", r)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	cases := []struct {
		literal string
		typ     wit.Type
	}{
		{"42", wit.S32{}},
		{`"hello world"`, wit.String{}},
		{`{name: "ada", age: 30}`, personType},
		{`failed("timeout")`, statusType},
		{"green", colorType},
		{"{read, write}", permsType},
	}
	for _, c := range cases {
		v, err := Decode(c.literal, c.typ)
		if err != nil {
			t.Fatalf("Decode(%q): %v", c.literal, err)
		}
		rendered, err := Render(v, c.typ)
		if err != nil {
			t.Fatalf("Render(%v): %v", v, err)
		}
		reDecoded, err := Decode(rendered, c.typ)
		if err != nil {
			t.Fatalf("re-decode %q: %v", rendered, err)
		}
		if !reflect.DeepEqual(v, reDecoded) {
			t.Errorf("round trip mismatch: %+v != %+v (via %q)", v, reDecoded, rendered)
		}
	}
}

func TestJSONSchema_Primitives(t *testing.T) {
	s, err := JSONSchema(wit.String{})
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	if s["type"] != "string" {
		t.Errorf("got %+v", s)
	}
}

func TestJSONSchema_Record(t *testing.T) {
	s, err := JSONSchema(personType)
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	if s["type"] != "object" {
		t.Errorf("got %+v", s)
	}
	props, ok := s["properties"].(map[string]any)
	if !ok || props["name"] == nil || props["age"] == nil {
		t.Errorf("got %+v", s)
	}
}

func TestJSONSchema_Enum(t *testing.T) {
	s, err := JSONSchema(colorType)
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	enum, ok := s["enum"].([]any)
	if !ok || len(enum) != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestJSONSchema_Tuple(t *testing.T) {
	tupleType := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.String{}, wit.S32{}}}}
	s, err := JSONSchema(tupleType)
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	if s["type"] != "array" {
		t.Errorf("got %+v", s)
	}
	prefix, ok := s["prefixItems"].([]any)
	if !ok || len(prefix) != 2 {
		t.Errorf("got %+v", s)
	}
}

func TestJSONSchema_Result(t *testing.T) {
	resType := &wit.TypeDef{Kind: &wit.Result{Err: wit.String{}}}
	s, err := JSONSchema(resType)
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	props, ok := s["properties"].(map[string]any)
	if !ok {
		t.Fatalf("got %+v", s)
	}
	// Both arms appear even when one carries no payload type.
	if _, present := props["Ok"]; !present {
		t.Errorf("missing Ok arm: %+v", props)
	}
	if props["Ok"] != nil {
		t.Errorf("expected null Ok arm, got %+v", props["Ok"])
	}
	if props["Err"] == nil {
		t.Errorf("missing Err schema: %+v", props)
	}
}

func TestDecode_TrailingGarbage(t *testing.T) {
	if _, err := Decode("42 extra", wit.S32{}); err == nil {
		t.Fatal("expected error for trailing tokens")
	}
}
