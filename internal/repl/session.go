// Package repl implements the persistent-session evaluation loop described
// in spec §4 (intro table) and supplemented from the original
// implementation's repl/mod.rs: globals survive across evaluations within
// one session, and each session carries a stable identity. Grounded on
// breadchris-yaegi's Interpreter.Eval/EvalWithContext/REPL shape, retargeted
// from reflect.Value results to this VM's own tagged-union Value model.
package repl

import (
	"github.com/arbor-lang/arbor/internal/bytecode"
	"github.com/arbor-lang/arbor/internal/infer"
	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/arbor-lang/arbor/internal/lattice"
	"github.com/arbor-lang/arbor/internal/methods"
	"github.com/arbor-lang/arbor/internal/vm"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is one REPL's persistent state: a stable ID, an inference
// engine whose method table accumulates definitions across evaluations, a
// VM whose Globals map survives each Eval call, and a prelude cache. Eval
// itself does not consult the prelude cache.
type Session struct {
	ID       string
	Methods  *methods.Table
	Promo    *lattice.Registry
	Infer    *infer.Engine
	VM       *vm.VM
	Prelude  *bytecode.PreludeCache
	log      *logrus.Entry
	lastAny  vm.Value
}

// New starts a fresh session: a uuid-tagged identity, the builtin method
// table, and an empty VM module/globals (spec supplemented feature: session
// identity, grounded on the original's repl/mod.rs session handle).
func New() *Session {
	id := uuid.NewString()
	methodsTable := methods.New()
	methods.RegisterBuiltins(methodsTable)
	promo := lattice.DefaultRegistry()

	module := bytecode.NewModule()
	machine := vm.New(module, nil)

	return &Session{
		ID:      id,
		Methods: methodsTable,
		Promo:   promo,
		Infer:   infer.NewEngine(methodsTable, promo),
		VM:      machine,
		Prelude: bytecode.NewPreludeCache(),
		log:     logrus.WithField("session", id),
	}
}

// Result is one Eval call's outcome: the returned value plus the
// inferred static type the value was computed under (widened types are
// still reported, per spec §7's "inference never fails" policy).
type Result struct {
	Value vm.Value
	Type  *lattice.LatticeType
}

// Eval type-checks and executes one already-parsed top-level function,
// merging its bytecode into the session's running module so later
// evaluations can call functions defined earlier (persistent globals/
// definitions across evaluations, the defining REPL property).
func (s *Session) Eval(fn *ir.Function) (Result, error) {
	inferred := s.Infer.InferFunction(fn, nil)

	compiler := bytecode.NewCompiler()
	compiler.Module = s.VM.Module // compile into the session's running module
	proto, err := compileInto(compiler, fn)
	if err != nil {
		return Result{}, err
	}

	val, err := s.VM.Run(proto.Name, nil)
	if err != nil {
		return Result{}, err
	}
	s.lastAny = val
	s.log.WithField("func", fn.Name).Debug("evaluated")
	return Result{Value: val, Type: inferred.Return}, nil
}

// compileInto compiles a single function into an already-open module,
// reusing the module's existing FuncIndex/Constants rather than starting a
// fresh one, so a session accumulates definitions the way a REPL's global
// scope does.
func compileInto(c *bytecode.Compiler, fn *ir.Function) (bytecode.FuncProto, error) {
	prog := &ir.Program{Functions: []*ir.Function{fn}}
	if _, err := c.CompileProgram(prog); err != nil {
		return bytecode.FuncProto{}, err
	}
	idx := c.Module.FuncIndex[fn.Name]
	return c.Module.Functions[idx], nil
}

// Last returns the most recently evaluated value, mirroring a REPL's "ans"
// convention.
func (s *Session) Last() vm.Value { return s.lastAny }
