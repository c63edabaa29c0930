// Package value implements the host's typed value representation and
// its conversions to and from the "wave" textual literal format used
// in workflow manifests and event payloads, plus JSON-schema emission
// for inspection tooling.
//
// Values are represented as plain Go values wherever a native Go type
// is an exact fit (bool, intN, uintN, float32/64, rune, string, []any
// for list/tuple, map[string]any for record), and as one of the typed
// wrappers below where Go has no native equivalent (variant, enum,
// flags, option, result, resource handle).
package value

import "fmt"

// Variant holds a value for one labeled case of a wit variant type.
type Variant struct {
	Case  string
	Value any // nil when the case carries no payload
}

func (v Variant) String() string {
	if v.Value == nil {
		return v.Case
	}
	return fmt.Sprintf("%s(%v)", v.Case, v.Value)
}

// Enum holds the selected case name of a wit enum type.
type Enum string

// Flags holds the set of active flag names of a wit flags type.
type Flags []string

// Option holds an optional value: Present == false represents "none".
type Option struct {
	Present bool
	Value   any
}

// Result holds either an Ok or an Err payload (never both, unless the
// wit type declares a case with no payload, in which case Value is nil).
type Result struct {
	IsErr bool
	Value any
}

// Resource is an opaque runtime handle to a host or guest resource.
// Resource values cannot be rendered to wave literal text or decoded
// from one; they only ever flow between nodes via edges.
type Resource struct {
	Handle uint32
}

func (r Resource) String() string {
	return fmt.Sprintf("resource(%d)", r.Handle)
}
