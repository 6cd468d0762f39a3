// Package lattice implements the union/subtype lattice of types described
// in spec §3 ("Lattice types") and §4.1 ("Lattice operations"). It is the
// single source of truth for join, meet, subtype, subtract and the
// widening rules that keep whole-program inference total.
package lattice

import (
	"fmt"
	"sort"
	"strings"
)

// Widening bounds from spec §3 invariants.
const (
	MaxUnionLength     = 8
	MaxUnionComplexity = 5
)

// Kind discriminates the four forms a LatticeType can take (spec §3):
// Bottom, Top (Any), Concrete, or Union.
type Kind int

const (
	KindBottom Kind = iota
	KindTop
	KindConcrete
	KindUnion
)

// ConcreteType enumerates every primitive/compound machine type from
// spec §3: "primitive machine types ... string, a named user struct ...
// parametric array ... tuple ... dictionary ... set ... range ... an
// abstract type referenced by name".
type ConcreteType int

const (
	CInt8 ConcreteType = iota
	CInt16
	CInt32
	CInt64
	CUint8
	CUint16
	CUint32
	CUint64
	CFloat16
	CFloat32
	CFloat64
	CBool
	CChar
	CNothing
	CString
	CBigInt
	CRational
	CComplex

	CStruct   // named user struct: Name + TypeArgs
	CArray    // parametric array: Elem + Dims
	CTuple    // ordered element types
	CDict     // key/value
	CSet      // element
	CRange    // numeric range
	CAbstract // abstract type referenced by name
)

func (c ConcreteType) String() string {
	switch c {
	case CInt8:
		return "Int8"
	case CInt16:
		return "Int16"
	case CInt32:
		return "Int32"
	case CInt64:
		return "Int64"
	case CUint8:
		return "UInt8"
	case CUint16:
		return "UInt16"
	case CUint32:
		return "UInt32"
	case CUint64:
		return "UInt64"
	case CFloat16:
		return "Float16"
	case CFloat32:
		return "Float32"
	case CFloat64:
		return "Float64"
	case CBool:
		return "Bool"
	case CChar:
		return "Char"
	case CNothing:
		return "Nothing"
	case CString:
		return "String"
	case CBigInt:
		return "BigInt"
	case CRational:
		return "Rational"
	case CComplex:
		return "Complex"
	case CStruct:
		return "Struct"
	case CArray:
		return "Array"
	case CTuple:
		return "Tuple"
	case CDict:
		return "Dict"
	case CSet:
		return "Set"
	case CRange:
		return "Range"
	case CAbstract:
		return "Abstract"
	default:
		return "?"
	}
}

// LatticeType is a position in the type lattice. Only one of the fields is
// meaningful per Kind: Concrete fields for KindConcrete, Members for
// KindUnion. Go lacks sum types, so this is a tagged struct rather than an
// enum with payload, the way yaegi's *itype is a single struct tagged by
// `cat`.
type LatticeType struct {
	kind Kind

	// KindConcrete fields.
	concrete   ConcreteType
	name       string         // CStruct, CAbstract: interned name
	typeArgs   []*LatticeType // CStruct: optional type-parameter tuple
	elem       *LatticeType   // CArray: element type; CSet: element type
	dims       int            // CArray: dimensionality
	dictKeyT, dictValT *LatticeType // CDict
	elems      []*LatticeType // CTuple: ordered element types

	// KindUnion fields.
	members []*LatticeType
}

var (
	bottom = &LatticeType{kind: KindBottom}
	top    = &LatticeType{kind: KindTop}
)

// Bottom returns the lattice bottom (spec §3: "identity of join, absorbs meet").
func Bottom() *LatticeType { return bottom }

// Top returns Any, the lattice top (spec §3: "identity of meet, absorbs join").
func Top() *LatticeType { return top }

// Concrete constructs a primitive concrete type.
func Concrete(c ConcreteType) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: c}
}

// Struct constructs a named user struct type with optional type arguments.
func Struct(name string, typeArgs ...*LatticeType) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: CStruct, name: name, typeArgs: typeArgs}
}

// Array constructs a parametric array type of the given element and
// dimensionality.
func Array(elem *LatticeType, dims int) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: CArray, elem: elem, dims: dims}
}

// Tuple constructs a tuple type of the given ordered element types.
func Tuple(elems ...*LatticeType) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: CTuple, elems: elems}
}

// Dict constructs a dictionary type of the given key/value types.
func Dict(k, v *LatticeType) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: CDict, dictKeyT: k, dictValT: v}
}

// Set constructs a set type of the given element type.
func Set(elem *LatticeType) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: CSet, elem: elem}
}

// Range constructs a range type whose elements are of the given numeric type.
func Range(elem *LatticeType) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: CRange, elem: elem}
}

// Abstract constructs an abstract type referenced by name.
func Abstract(name string) *LatticeType {
	return &LatticeType{kind: KindConcrete, concrete: CAbstract, name: name}
}

// Kind reports t's discriminant.
func (t *LatticeType) Kind() Kind { return t.kind }

// IsBottom reports whether t is the lattice bottom.
func (t *LatticeType) IsBottom() bool { return t.kind == KindBottom }

// IsTop reports whether t is Any.
func (t *LatticeType) IsTop() bool { return t.kind == KindTop }

// ConcreteKind returns t's ConcreteType tag. Only meaningful when Kind() ==
// KindConcrete.
func (t *LatticeType) ConcreteKind() ConcreteType { return t.concrete }

// Name returns the interned name for CStruct/CAbstract.
func (t *LatticeType) Name() string { return t.name }

// TypeArgs returns the type-parameter tuple for a CStruct type.
func (t *LatticeType) TypeArgs() []*LatticeType { return t.typeArgs }

// Elem returns the element type for CArray/CSet/CRange.
func (t *LatticeType) Elem() *LatticeType { return t.elem }

// Dims returns the dimensionality for a CArray type.
func (t *LatticeType) Dims() int { return t.dims }

// KV returns the key/value types for a CDict type.
func (t *LatticeType) KV() (*LatticeType, *LatticeType) { return t.dictKeyT, t.dictValT }

// Elems returns the ordered element types for a CTuple type.
func (t *LatticeType) Elems() []*LatticeType { return t.elems }

// Members returns the flat member set for a KindUnion type.
func (t *LatticeType) Members() []*LatticeType { return t.members }

// depth returns the nesting depth used by the MaxUnionComplexity check:
// a scalar concrete type has depth 1, a compound concrete type (array, set,
// range, tuple, struct with type args) has 1 + the depth of its deepest
// component, and a union's depth is 1 + max(member depths).
func (t *LatticeType) depth() int {
	switch t.kind {
	case KindUnion:
		max := 0
		for _, m := range t.members {
			if d := m.depth(); d > max {
				max = d
			}
		}
		return 1 + max
	case KindConcrete:
		d := 1
		if t.elem != nil {
			if e := t.elem.depth(); e+1 > d {
				d = e + 1
			}
		}
		for _, a := range t.typeArgs {
			if e := a.depth(); e+1 > d {
				d = e + 1
			}
		}
		for _, e := range t.elems {
			if ed := e.depth(); ed+1 > d {
				d = ed + 1
			}
		}
		return d
	default:
		return 0
	}
}

// key builds a canonical string key used for deduplication and ordering.
// Unions are canonicalized by sorting member keys (spec §3: "canonicalized
// by a deterministic ordering").
func (t *LatticeType) key() string {
	switch t.kind {
	case KindBottom:
		return "\x00bottom"
	case KindTop:
		return "\x00any"
	case KindUnion:
		keys := make([]string, len(t.members))
		for i, m := range t.members {
			keys[i] = m.key()
		}
		sort.Strings(keys)
		return "U(" + strings.Join(keys, "|") + ")"
	case KindConcrete:
		switch t.concrete {
		case CStruct:
			parts := make([]string, len(t.typeArgs))
			for i, a := range t.typeArgs {
				parts[i] = a.key()
			}
			return fmt.Sprintf("Struct(%s)[%s]", t.name, strings.Join(parts, ","))
		case CAbstract:
			return fmt.Sprintf("Abstract(%s)", t.name)
		case CArray:
			return fmt.Sprintf("Array(%s,%d)", t.elem.key(), t.dims)
		case CTuple:
			parts := make([]string, len(t.elems))
			for i, e := range t.elems {
				parts[i] = e.key()
			}
			return fmt.Sprintf("Tuple(%s)", strings.Join(parts, ","))
		case CDict:
			return t.dictKey()
		case CSet:
			return fmt.Sprintf("Set(%s)", t.elem.key())
		case CRange:
			return fmt.Sprintf("Range(%s)", t.elem.key())
		default:
			return t.concrete.String()
		}
	default:
		return "?"
	}
}

// dictKey renders the canonical (key, value) pair for a CDict type.
func (t *LatticeType) dictKey() string {
	return fmt.Sprintf("Dict(%s,%s)", t.dictKeyT.key(), t.dictValT.key())
}

// String renders t in a form close to the surface language's own type
// syntax, used for diagnostics.
func (t *LatticeType) String() string {
	switch t.kind {
	case KindBottom:
		return "Union{}"
	case KindTop:
		return "Any"
	case KindUnion:
		parts := make([]string, len(t.members))
		for i, m := range t.members {
			parts[i] = m.String()
		}
		sort.Strings(parts)
		return "Union{" + strings.Join(parts, ", ") + "}"
	case KindConcrete:
		switch t.concrete {
		case CStruct:
			if len(t.typeArgs) == 0 {
				return t.name
			}
			parts := make([]string, len(t.typeArgs))
			for i, a := range t.typeArgs {
				parts[i] = a.String()
			}
			return fmt.Sprintf("%s{%s}", t.name, strings.Join(parts, ", "))
		case CAbstract:
			return t.name
		case CArray:
			return fmt.Sprintf("Array{%s,%d}", t.elem.String(), t.dims)
		case CTuple:
			parts := make([]string, len(t.elems))
			for i, e := range t.elems {
				parts[i] = e.String()
			}
			return fmt.Sprintf("Tuple{%s}", strings.Join(parts, ", "))
		case CDict:
			return t.dictKey()
		case CSet:
			return fmt.Sprintf("Set{%s}", t.elem.String())
		case CRange:
			return fmt.Sprintf("Range{%s}", t.elem.String())
		default:
			return t.concrete.String()
		}
	default:
		return "?"
	}
}

// Equal reports whether t and u occupy the same lattice position.
func Equal(t, u *LatticeType) bool {
	if t == nil || u == nil {
		return t == u
	}
	return t.key() == u.key()
}
