package aot

import (
	"fmt"
	"io"
	"strings"

	"github.com/arbor-lang/arbor/internal/lattice"
)

// Config controls emission (spec §4.7): whether runtime type checks are
// emitted, whether comments are emitted, the indentation string, and pure
// mode.
type Config struct {
	RuntimeChecks bool
	Comments      bool
	Indent        string
	Pure          bool
}

// DefaultConfig matches the teacher-adjacent c_generator's defaults: tabs,
// comments on, runtime checks on, pure mode off.
func DefaultConfig() Config {
	return Config{RuntimeChecks: true, Comments: true, Indent: "\t", Pure: false}
}

// Emitter walks a Program and prints target-language source text to w.
type Emitter struct {
	cfg  Config
	w    io.Writer
	diag []DynamicOpDiagnostic
}

// NewEmitter returns an Emitter writing to w under cfg.
func NewEmitter(w io.Writer, cfg Config) *Emitter {
	return &Emitter{cfg: cfg, w: w}
}

// Emit prints prog. In pure mode, emission still walks every node to
// collect every DynamicOpDiagnostic before failing, rather than aborting
// at the first offending site (spec §4.7, resolved Open Question).
func (e *Emitter) Emit(prog *Program) error {
	for _, s := range prog.Structs {
		e.emitStructLayout(s)
	}
	for _, fn := range prog.Funcs {
		e.emitFunc(fn)
	}
	if e.cfg.Pure && len(e.diag) > 0 {
		return &PureModeError{Diagnostics: e.diag}
	}
	return nil
}

func (e *Emitter) printf(format string, args ...any) {
	fmt.Fprintf(e.w, format, args...)
}

func (e *Emitter) comment(s string) {
	if e.cfg.Comments {
		e.printf("// %s\n", s)
	}
}

func (e *Emitter) emitStructLayout(s StructLayout) {
	e.comment(fmt.Sprintf("struct %s", s.Name))
	e.printf("type %s struct {\n", s.Name)
	for i, f := range s.Fields {
		e.printf("%s%s %s\n", e.cfg.Indent, f, cTypeName(s.Types[i]))
	}
	e.printf("}\n\n")
}

func (e *Emitter) emitFunc(fn *Func) {
	params := make([]string, len(fn.ParamNames))
	for i, n := range fn.ParamNames {
		params[i] = fmt.Sprintf("%s %s", n, cTypeName(fn.ParamTypes[i]))
	}
	e.printf("func %s(%s) %s {\n", fn.Name, strings.Join(params, ", "), cTypeName(fn.ReturnType))
	for _, n := range fn.Body {
		e.emitNode(n, 1)
	}
	e.printf("}\n\n")
}

func (e *Emitter) indent(depth int) string {
	return strings.Repeat(e.cfg.Indent, depth)
}

func (e *Emitter) emitNode(n *Node, depth int) {
	ind := e.indent(depth)
	switch n.Kind {
	case NodeConst:
		e.printf("%s_ = %v\n", ind, n.Const)
	case NodeBinary:
		if e.cfg.RuntimeChecks && n.Op == "div" {
			e.printf("%sif %s == 0 { panic(\"division by zero\") }\n", ind, renderRef(n.Args[1]))
		}
		e.printf("%s%s %s %s\n", ind, renderRef(n.Args[0]), binSymbol(n.Op), renderRef(n.Args[1]))
	case NodeUnary:
		e.printf("%s%s%s\n", ind, unSymbol(n.Op), renderRef(n.Args[0]))
	case NodeCall:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = renderRef(a)
		}
		e.printf("%s%s(%s)\n", ind, n.Name, strings.Join(args, ", "))
	case NodeFieldGet:
		e.printf("%s%s.%s\n", ind, renderRef(n.Args[0]), n.Name)
	case NodeFieldSet:
		e.printf("%s%s.%s = %s\n", ind, renderRef(n.Args[0]), n.Name, renderRef(n.Args[1]))
	case NodeIf:
		e.printf("%sif %s {\n", ind, renderRef(n.Cond))
		for _, s := range n.Then {
			e.emitNode(s, depth+1)
		}
		if len(n.Else) > 0 {
			e.printf("%s} else {\n", ind)
			for _, s := range n.Else {
				e.emitNode(s, depth+1)
			}
		}
		e.printf("%s}\n", ind)
	case NodeLoop:
		e.printf("%sfor %s {\n", ind, renderRef(n.Cond))
		for _, s := range n.Body {
			e.emitNode(s, depth+1)
		}
		e.printf("%s}\n", ind)
	case NodeReturn:
		if len(n.Args) > 0 {
			e.printf("%sreturn %s\n", ind, renderRef(n.Args[0]))
		} else {
			e.printf("%sreturn\n", ind)
		}
	case NodeDynamicFallback:
		e.diag = append(e.diag, DynamicOpDiagnostic{Span: n.Span, Reason: n.Op})
		if !e.cfg.Pure {
			e.printf("%s%s /* dynamic: %s */\n", ind, n.Name, n.Op)
		}
	}
}

func renderRef(n *Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == NodeConst {
		return fmt.Sprintf("%v", n.Const)
	}
	if n.Name != "" {
		return n.Name
	}
	return "_"
}

func binSymbol(op string) string {
	switch op {
	case "add":
		return "+"
	case "sub":
		return "-"
	case "mul":
		return "*"
	case "div":
		return "/"
	case "lt":
		return "<"
	case "le":
		return "<="
	case "gt":
		return ">"
	case "ge":
		return ">="
	case "eq":
		return "=="
	case "ne":
		return "!="
	default:
		return op
	}
}

func unSymbol(op string) string {
	if op == "neg" {
		return "-"
	}
	if op == "not" {
		return "!"
	}
	return op
}

// cTypeName maps a static Type to its target-language spelling (spec
// §4.7: "the concrete primitive and tuple/struct types translate
// directly; strings and boxed reference arms translate to tagged 64-bit
// handles at the ABI").
func cTypeName(t Type) string {
	if t.IsHandle {
		return "Handle" // tagged 64-bit ABI handle
	}
	if t.Lattice == nil {
		return "any"
	}
	if t.Lattice.Kind() != lattice.KindConcrete {
		return "any"
	}
	switch t.Lattice.ConcreteKind() {
	case lattice.CInt8:
		return "int8"
	case lattice.CInt16:
		return "int16"
	case lattice.CInt32:
		return "int32"
	case lattice.CInt64:
		return "int64"
	case lattice.CUint8:
		return "uint8"
	case lattice.CUint16:
		return "uint16"
	case lattice.CUint32:
		return "uint32"
	case lattice.CUint64:
		return "uint64"
	case lattice.CFloat32:
		return "float32"
	case lattice.CFloat64:
		return "float64"
	case lattice.CBool:
		return "bool"
	case lattice.CChar:
		return "rune"
	case lattice.CString:
		return "Handle"
	case lattice.CStruct:
		return t.Lattice.Name()
	case lattice.CTuple:
		return "Tuple" // emitted as a generated struct by emitStructLayout in a full pipeline
	default:
		return "Handle"
	}
}
