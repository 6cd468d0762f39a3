// Package aot implements the ahead-of-time IR and code emitter described in
// spec §4.7: a statically typed IR, built directly by callers (it is not
// derived from internal/ssa), printed as target-language source text by
// Emitter.
package aot

import "github.com/arbor-lang/arbor/internal/lattice"

// Type is a static AoT type: either a direct mapping of a concrete
// lattice type, or, when pure mode can't prove a site's type statically, a
// tagged-union fallback (spec §4.7: "strings and boxed reference arms
// translate to tagged 64-bit handles at the ABI").
type Type struct {
	Lattice  *lattice.LatticeType
	IsHandle bool // true for string/boxed-reference ABI representation
}

// Span is a lightweight source-ish location carried by AoT nodes purely
// for DynamicOpDiagnostic reporting; it does not need to round-trip to a
// real source file since AoT input may itself be a lowered IR.
type Span struct {
	Func string
	Line int
}

// NodeKind discriminates Node's payload: constants, parameters, operators,
// calls, field access, tuple/struct construction, control flow, and
// dynamic-fallback sites.
type NodeKind int

const (
	NodeConst NodeKind = iota
	NodeParam
	NodeBinary
	NodeUnary
	NodeCall
	NodeFieldGet
	NodeFieldSet
	NodeTuple
	NodeStruct
	NodeIf
	NodeLoop
	NodeReturn
	NodeDynamicFallback // a tagged-union runtime dispatch site (pure mode rejects these)
)

// Node is one AoT IR node.
type Node struct {
	Kind     NodeKind
	Type     Type
	Span     Span
	Op       string
	Const    any
	Name     string
	Args     []*Node
	Then     []*Node
	Else     []*Node
	Body     []*Node
	Cond     *Node
}

// Func is one AoT function: its parameter types/names and its body.
type Func struct {
	Name       string
	ParamNames []string
	ParamTypes []Type
	ReturnType Type
	Body       []*Node
}

// Program is the AoT compilation unit: functions plus any struct layouts
// they reference (spec §4.7 "struct/global layout declarations").
type Program struct {
	Funcs   []*Func
	Structs []StructLayout
}

// StructLayout names a struct's fields in declaration order, for the
// emitter to print as a target-language struct/record definition.
type StructLayout struct {
	Name   string
	Fields []string
	Types  []Type
}
