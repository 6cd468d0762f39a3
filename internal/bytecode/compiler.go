package bytecode

import (
	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/errs"
	"github.com/arbor-lang/arbor/internal/ir"
)

// Tag is the compiler's own lightweight per-slot type tag (spec §4.5:
// "Allocate a local slot per name per function with a concrete type tag (I64,
// F64, Bool, Any, …)"). It is deliberately coarser than lattice.LatticeType:
// the compiler only needs to know whether it can pick a typed fast-path
// instruction, not the full inferred type.
type Tag int

const (
	TagAny Tag = iota
	TagI64
	TagF64
	TagBool
	TagString
)

type local struct {
	slot int
	tag  Tag
}

type scope struct {
	parent *scope
	vars   map[string]*local
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]*local)}
}

func (s *scope) lookup(name string) (*local, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if l, ok := sc.vars[name]; ok {
			return l, true
		}
	}
	return nil, false
}

// finallyContext is one entry of the stack the compiler maintains so that
// return/break/continue can emit the enclosing finally blocks before
// transferring control (spec §4.5: "the compiler maintains a stack of
// FinallyContext entries carrying the finally block and the loop depth at
// entry").
type finallyContext struct {
	body      *ir.Block
	loopDepth int
}

// loopLabels carries the break/continue patch targets for one enclosing loop.
type loopLabels struct {
	breakJumps    []int // indices into the function's code needing patch-to-exit
	continueJumps []int // indices into the function's code needing patch-to-step
}

// fnCompiler compiles a single function's body into a FuncProto.
type fnCompiler struct {
	c         *Compiler
	code      []Instr
	top       *scope
	nextSlot  int
	finallies []finallyContext
	loops     []*loopLabels
}

// Compiler lowers an internal/ir.Program to a bytecode.Module (spec §4.5).
type Compiler struct {
	Module   *Module
	Builtins map[string]BuiltinId
}

// NewCompiler returns a Compiler with the standard builtin table wired up.
func NewCompiler() *Compiler {
	return &Compiler{
		Module: NewModule(),
		Builtins: map[string]BuiltinId{
			"len": BuiltinLen, "cap": BuiltinCap, "append": BuiltinAppend,
			"copy": BuiltinCopy, "panic": BuiltinPanic, "print": BuiltinPrint,
			"rand": BuiltinRandom, "sleep": BuiltinSleep, "matmul": BuiltinMatMul,

			"randf64": BuiltinRandF64, "randarray": BuiltinRandArray,
			"randnf64": BuiltinRandnF64, "randnarray": BuiltinRandnArray,
			"seedglobalrng": BuiltinSeedGlobalRng,

			"tostring": BuiltinToString, "tostr": BuiltinToStr,
			"stringconcat": BuiltinStringConcat, "concatstrings": BuiltinConcatStrings,

			"union": BuiltinUnion, "union!": BuiltinUnionBang,
			"intersect": BuiltinIntersect, "intersect!": BuiltinIntersectBang,
			"setdiff": BuiltinSetDiff, "setdiff!": BuiltinSetDiffBang,
			"symdiff": BuiltinSymDiff, "symdiff!": BuiltinSymDiffBang,
			"issubset": BuiltinIsSubset, "isdisjoint": BuiltinIsDisjoint,
			"issetequal": BuiltinIsSetEqual,
		},
	}
}

// CompileProgram compiles every function in prog into c.Module, returning it.
func (c *Compiler) CompileProgram(prog *ir.Program) (*Module, error) {
	for _, fn := range prog.Functions {
		c.Module.FuncIndex[fn.Name] = len(c.Module.Functions)
		c.Module.Functions = append(c.Module.Functions, FuncProto{Name: fn.Name})
	}
	for _, fn := range prog.Functions {
		proto, err := c.compileFunction(fn)
		if err != nil {
			return nil, err
		}
		c.Module.Functions[c.Module.FuncIndex[fn.Name]] = proto
	}
	return c.Module, nil
}

func (c *Compiler) compileFunction(fn *ir.Function) (FuncProto, error) {
	fc := &fnCompiler{c: c, top: newScope(nil)}
	for _, p := range fn.Params {
		fc.declare(p.Name, TagAny)
	}
	if err := fc.compileBlock(fn.Body); err != nil {
		return FuncProto{}, err
	}
	fc.emit(OpReturnNothing, 0, 0)
	return FuncProto{Name: fn.Name, NumParams: len(fn.Params), NumLocals: fc.nextSlot, Code: fc.code}, nil
}

func (fc *fnCompiler) emit(op Op, a, b uint32) int {
	fc.code = append(fc.code, Instr{Op: op, Operand: a, Operand2: b})
	return len(fc.code) - 1
}

func (fc *fnCompiler) patch(at int, target uint32) {
	fc.code[at].Operand = target
}

func (fc *fnCompiler) declare(name string, tag Tag) *local {
	l := &local{slot: fc.nextSlot, tag: tag}
	fc.nextSlot++
	fc.top.vars[name] = l
	return l
}

func (fc *fnCompiler) pushScope()  { fc.top = newScope(fc.top) }
func (fc *fnCompiler) popScope()   { fc.top = fc.top.parent }

func (fc *fnCompiler) compileBlock(b *ir.Block) error {
	fc.pushScope()
	defer fc.popScope()
	for _, s := range b.Stmts {
		if err := fc.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fc *fnCompiler) compileStmt(s ir.Stmt) error {
	switch n := s.(type) {
	case *ir.AssignStmt:
		return fc.compileAssign(n)

	case *ir.LocalDeclStmt:
		tag := TagAny
		if n.Init != nil {
			if err := fc.compileExpr(n.Init); err != nil {
				return err
			}
			tag = fc.guessTag(n.Init)
		} else {
			fc.emit(OpPushNothing, 0, 0)
		}
		l := fc.declare(n.Name, tag)
		fc.emit(OpStoreLocal, uint32(l.slot), 0)
		return nil

	case *ir.ExprStmt:
		if err := fc.compileExpr(n.X); err != nil {
			return err
		}
		fc.emit(OpPop, 0, 0)
		return nil

	case *ir.IfStmt:
		return fc.compileIf(n)

	case *ir.WhileStmt:
		return fc.compileWhile(n)

	case *ir.ForStmt:
		return fc.compileFor(n)

	case *ir.ForEachStmt:
		return fc.compileForEach(n)

	case *ir.TryStmt:
		return fc.compileTry(n)

	case *ir.ReturnStmt:
		return fc.compileReturn(n)

	case *ir.BreakStmt:
		return fc.compileBreak()

	case *ir.ContinueStmt:
		return fc.compileContinue()

	default:
		return errs.Unsupported(s.Span(), "unsupported statement in bytecode compiler")
	}
}

func (fc *fnCompiler) compileAssign(n *ir.AssignStmt) error {
	if err := fc.compileExpr(n.Value); err != nil {
		return err
	}
	id, ok := n.Target.(*ir.IdentExpr)
	if !ok {
		return errs.Unsupported(n.Span(), "compound assignment targets must be identifiers")
	}
	l, ok := fc.top.lookup(id.Name)
	if !ok {
		l = fc.declare(id.Name, fc.guessTag(n.Value))
	}
	fc.emit(OpStoreLocal, uint32(l.slot), 0)
	return nil
}

// guessTag assigns a compiler-level fast-path tag from an expression's
// syntactic shape; this is intentionally shallow (literal kind, or the tag
// of a single identifier) rather than a full type-inference pass, per the
// compiler's own concrete-type-tag allocation described in spec §4.5.
func (fc *fnCompiler) guessTag(x ir.Expr) Tag {
	switch n := x.(type) {
	case *ir.LiteralExpr:
		switch n.Kind {
		case ir.LitInteger:
			return TagI64
		case ir.LitFloat:
			return TagF64
		case ir.LitBool:
			return TagBool
		case ir.LitString:
			return TagString
		}
	case *ir.IdentExpr:
		if l, ok := fc.top.lookup(n.Name); ok {
			return l.tag
		}
	case *ir.BinaryExpr:
		lt, rt := fc.guessTag(n.Left), fc.guessTag(n.Right)
		if lt == rt {
			return lt
		}
	}
	return TagAny
}

func (fc *fnCompiler) compileExpr(x ir.Expr) error {
	switch n := x.(type) {
	case *ir.LiteralExpr:
		return fc.compileLiteral(n)

	case *ir.IdentExpr:
		l, ok := fc.top.lookup(n.Name)
		if !ok {
			idx := fc.c.Module.AddConstant(n.Name)
			fc.emit(OpLoadGlobal, idx, 0)
			return nil
		}
		fc.emit(OpLoadLocal, uint32(l.slot), 0)
		return nil

	case *ir.BinaryExpr:
		return fc.compileBinary(n)

	case *ir.UnaryExpr:
		if err := fc.compileExpr(n.X); err != nil {
			return err
		}
		if n.Op == ir.OpNot {
			fc.emit(OpNot, 0, 0)
		} else {
			fc.emit(OpNeg, 0, 0)
		}
		return nil

	case *ir.CallExpr:
		return fc.compileCall(n)

	case *ir.BuiltinExpr:
		return fc.compileBuiltinCall(n)

	case *ir.IndexExpr:
		if err := fc.compileExpr(n.X); err != nil {
			return err
		}
		for _, ix := range n.Index {
			if err := fc.compileExpr(ix); err != nil {
				return err
			}
		}
		fc.emit(OpIndexGet, uint32(len(n.Index)), 0)
		return nil

	case *ir.RangeExpr:
		return fc.compileRange(n)

	case *ir.ArrayLitExpr:
		for _, el := range n.Elems {
			if err := fc.compileExpr(el); err != nil {
				return err
			}
		}
		fc.emit(OpNewArray, uint32(len(n.Elems)), 0)
		return nil

	case *ir.TupleLitExpr:
		for _, el := range n.Elems {
			if err := fc.compileExpr(el); err != nil {
				return err
			}
		}
		fc.emit(OpNewTuple, uint32(len(n.Elems)), 0)
		return nil

	case *ir.SetLitExpr:
		fc.emit(OpNewSet, 0, 0)
		for _, el := range n.Elems {
			fc.emit(OpDup, 0, 0)
			if err := fc.compileExpr(el); err != nil {
				return err
			}
			fc.emit(OpSetAdd, 0, 0)
			fc.emit(OpPop, 0, 0)
		}
		return nil

	case *ir.DictLitExpr:
		fc.emit(OpNewDict, 0, 0)
		for _, ent := range n.Entries {
			fc.emit(OpDup, 0, 0)
			if err := fc.compileExpr(ent.Key); err != nil {
				return err
			}
			if err := fc.compileExpr(ent.Value); err != nil {
				return err
			}
			fc.emit(OpDictSet, 0, 0)
			fc.emit(OpPop, 0, 0)
		}
		return nil

	case *ir.FieldExpr:
		if err := fc.compileExpr(n.X); err != nil {
			return err
		}
		idx := fc.c.Module.AddConstant(n.Field)
		fc.emit(OpFieldGet, idx, 0)
		return nil

	case *ir.TernaryExpr:
		return fc.compileTernary(n)

	case *ir.LetExpr:
		fc.pushScope()
		defer fc.popScope()
		if err := fc.compileExpr(n.Value); err != nil {
			return err
		}
		l := fc.declare(n.Name, fc.guessTag(n.Value))
		fc.emit(OpStoreLocal, uint32(l.slot), 0)
		return fc.compileExpr(n.Body)

	default:
		return errs.Unsupported(x.Span(), "unsupported expression in bytecode compiler")
	}
}

func (fc *fnCompiler) compileLiteral(n *ir.LiteralExpr) error {
	switch n.Kind {
	case ir.LitInteger:
		idx := fc.c.Module.AddConstant(n.Value)
		fc.emit(OpPushI64, idx, 0)
	case ir.LitFloat:
		idx := fc.c.Module.AddConstant(n.Value)
		fc.emit(OpPushF64, idx, 0)
	case ir.LitString:
		idx := fc.c.Module.AddConstant(n.Value)
		fc.emit(OpPushString, idx, 0)
	case ir.LitBool:
		v := uint32(0)
		if b, _ := n.Value.(bool); b {
			v = 1
		}
		fc.emit(OpPushBool, v, 0)
	case ir.LitChar:
		idx := fc.c.Module.AddConstant(n.Value)
		fc.emit(OpPushConst, idx, 0)
	case ir.LitNothing:
		fc.emit(OpPushNothing, 0, 0)
	}
	return nil
}

var binOpTag = map[ir.BinaryOp]bool{
	ir.OpAdd: true, ir.OpSub: true, ir.OpMul: true, ir.OpDiv: true,
	ir.OpLt: true, ir.OpLe: true, ir.OpGt: true, ir.OpGe: true, ir.OpEq: true, ir.OpNe: true,
}

func (fc *fnCompiler) compileBinary(n *ir.BinaryExpr) error {
	if n.Op == ir.OpAnd || n.Op == ir.OpOr {
		return fc.compileShortCircuit(n)
	}
	if err := fc.compileExpr(n.Left); err != nil {
		return err
	}
	if err := fc.compileExpr(n.Right); err != nil {
		return err
	}
	lt, rt := fc.guessTag(n.Left), fc.guessTag(n.Right)
	if binOpTag[n.Op] && lt == rt && (lt == TagI64 || lt == TagF64) {
		fc.emit(typedArithOp(n.Op, lt), 0, 0)
		return nil
	}
	fc.emit(OpDynBinOp, uint32(n.Op), 0)
	return nil
}

func typedArithOp(op ir.BinaryOp, tag Tag) Op {
	i64 := map[ir.BinaryOp]Op{
		ir.OpAdd: OpAddI64, ir.OpSub: OpSubI64, ir.OpMul: OpMulI64, ir.OpDiv: OpDivI64,
		ir.OpLt: OpLtI64, ir.OpLe: OpLeI64, ir.OpGt: OpGtI64, ir.OpGe: OpGeI64, ir.OpEq: OpEqI64, ir.OpNe: OpNeI64,
	}
	f64 := map[ir.BinaryOp]Op{
		ir.OpAdd: OpAddF64, ir.OpSub: OpSubF64, ir.OpMul: OpMulF64, ir.OpDiv: OpDivF64,
		ir.OpLt: OpLtF64, ir.OpLe: OpLeF64, ir.OpGt: OpGtF64, ir.OpGe: OpGeF64,
	}
	if tag == TagF64 {
		if o, ok := f64[op]; ok {
			return o
		}
	}
	return i64[op]
}

// compileShortCircuit emits and/or with the right-hand side guarded by a
// conditional jump so it is never evaluated unless needed.
func (fc *fnCompiler) compileShortCircuit(n *ir.BinaryExpr) error {
	if err := fc.compileExpr(n.Left); err != nil {
		return err
	}
	fc.emit(OpDup, 0, 0)
	var skip int
	if n.Op == ir.OpAnd {
		skip = fc.emit(OpJumpIfZero, uint32(NoTarget), 0)
	} else {
		fc.emit(OpNot, 0, 0)
		skip = fc.emit(OpJumpIfZero, uint32(NoTarget), 0)
	}
	fc.emit(OpPop, 0, 0)
	if err := fc.compileExpr(n.Right); err != nil {
		return err
	}
	fc.patch(skip, uint32(len(fc.code)))
	return nil
}

func (fc *fnCompiler) compileTernary(n *ir.TernaryExpr) error {
	if err := fc.compileExpr(n.Cond); err != nil {
		return err
	}
	jElse := fc.emit(OpJumpIfZero, uint32(NoTarget), 0)
	if err := fc.compileExpr(n.Then); err != nil {
		return err
	}
	jEnd := fc.emit(OpJump, uint32(NoTarget), 0)
	fc.patch(jElse, uint32(len(fc.code)))
	if err := fc.compileExpr(n.Else); err != nil {
		return err
	}
	fc.patch(jEnd, uint32(len(fc.code)))
	return nil
}

func (fc *fnCompiler) compileCall(n *ir.CallExpr) error {
	for _, a := range n.Args {
		if err := fc.compileExpr(a); err != nil {
			return err
		}
	}
	idx, ok := fc.c.Module.FuncIndex[n.Callee]
	if !ok {
		return errs.Unsupported(n.Span(), "call to unknown function "+n.Callee)
	}
	fc.emit(OpCall, uint32(idx), uint32(len(n.Args)))
	return nil
}

func (fc *fnCompiler) compileBuiltinCall(n *ir.BuiltinExpr) error {
	for _, a := range n.Args {
		if err := fc.compileExpr(a); err != nil {
			return err
		}
	}
	id, ok := fc.c.Builtins[n.Name]
	if !ok {
		return errs.Unsupported(n.Span(), "unknown builtin "+n.Name)
	}
	fc.emit(OpCallBuiltin, uint32(id), uint32(len(n.Args)))
	return nil
}

func (fc *fnCompiler) compileRange(n *ir.RangeExpr) error {
	if err := fc.compileExpr(n.Start); err != nil {
		return err
	}
	if err := fc.compileExpr(n.Stop); err != nil {
		return err
	}
	if n.Step != nil {
		if err := fc.compileExpr(n.Step); err != nil {
			return err
		}
	} else {
		fc.emit(OpPushI64, fc.c.Module.AddConstant(int64(1)), 0)
	}
	tag := fc.guessTag(n.Start)
	if tag == TagF64 {
		fc.emit(OpMakeRangeF64, 0, 0)
	} else {
		fc.emit(OpMakeRangeLazy, 0, 0)
	}
	return nil
}

func (fc *fnCompiler) compileIf(n *ir.IfStmt) error {
	if err := fc.compileExpr(n.Cond); err != nil {
		return err
	}
	jElse := fc.emit(OpJumpIfZero, uint32(NoTarget), 0)
	if err := fc.compileBlock(n.Then); err != nil {
		return err
	}
	jEnd := fc.emit(OpJump, uint32(NoTarget), 0)
	fc.patch(jElse, uint32(len(fc.code)))
	if n.Else != nil {
		if err := fc.compileBlock(n.Else); err != nil {
			return err
		}
	}
	fc.patch(jEnd, uint32(len(fc.code)))
	return nil
}

func (fc *fnCompiler) compileWhile(n *ir.WhileStmt) error {
	start := len(fc.code)
	if err := fc.compileExpr(n.Cond); err != nil {
		return err
	}
	jEnd := fc.emit(OpJumpIfZero, uint32(NoTarget), 0)

	ll := &loopLabels{}
	fc.loops = append(fc.loops, ll)
	if err := fc.compileBlock(n.Body); err != nil {
		return err
	}
	fc.loops = fc.loops[:len(fc.loops)-1]

	contTarget := uint32(len(fc.code))
	fc.emit(OpJump, uint32(start), 0)
	endTarget := uint32(len(fc.code))
	fc.patch(jEnd, endTarget)
	for _, j := range ll.continueJumps {
		fc.patch(j, contTarget)
	}
	for _, j := range ll.breakJumps {
		fc.patch(j, endTarget)
	}
	return nil
}

// compileFor lowers `for Var in Iterable { Body }` using two hidden
// locals (the collection and the opaque iteration state) rather than
// threading them through the operand stack across the loop body, so the
// body's own stack traffic can't disturb them (spec §4.8 iteration
// protocol: IterateFirst/IterateNext always push state, elem, hasMore).
func (fc *fnCompiler) compileFor(n *ir.ForStmt) error {
	if err := fc.compileExpr(n.Iterable); err != nil {
		return err
	}
	fc.pushScope()
	defer fc.popScope()

	collLocal := fc.declare("__for_coll", TagAny)
	fc.emit(OpStoreLocal, uint32(collLocal.slot), 0)
	stateLocal := fc.declare("__for_state", TagAny)

	fc.emit(OpLoadLocal, uint32(collLocal.slot), 0)
	fc.emit(OpIterateFirst, 0, 0) // -> state, elem, hasMore

	loopStart := fc.emit(OpJumpIfZero, uint32(NoTarget), 0) // pops hasMore

	elemLocal := fc.declare(n.Var, TagAny)
	fc.emit(OpStoreLocal, uint32(elemLocal.slot), 0)  // pops elem
	fc.emit(OpStoreLocal, uint32(stateLocal.slot), 0) // pops state

	ll := &loopLabels{}
	fc.loops = append(fc.loops, ll)
	if err := fc.compileBlock(n.Body); err != nil {
		return err
	}
	fc.loops = fc.loops[:len(fc.loops)-1]

	contTarget := uint32(len(fc.code))
	fc.emit(OpLoadLocal, uint32(collLocal.slot), 0)
	fc.emit(OpLoadLocal, uint32(stateLocal.slot), 0)
	fc.emit(OpIterateNext, 0, 0)           // -> state, elem, hasMore
	fc.emit(OpJump, uint32(loopStart), 0) // recheck hasMore

	exhaustedAt := uint32(len(fc.code))
	fc.patch(loopStart, exhaustedAt)
	fc.emit(OpPop, 0, 0) // discard the exhausted loop's leftover elem
	fc.emit(OpPop, 0, 0) // discard the exhausted loop's leftover state
	afterLoop := uint32(len(fc.code))

	for _, j := range ll.continueJumps {
		fc.patch(j, contTarget)
	}
	for _, j := range ll.breakJumps {
		// break fires mid-body, after elem/state were already consumed
		// into locals, so it must skip the exhaustion cleanup entirely
		// rather than jump into it (that stack has nothing left to pop).
		fc.patch(j, afterLoop)
	}
	return nil
}

func (fc *fnCompiler) compileForEach(n *ir.ForEachStmt) error {
	single := &ir.ForStmt{}
	if len(n.Vars) == 1 {
		single.Var = n.Vars[0]
	} else {
		single.Var = "__tuple_iter"
	}
	single.Iterable = n.Iterable
	single.Body = n.Body
	return fc.compileFor(single)
}

func (fc *fnCompiler) compileTry(n *ir.TryStmt) error {
	catchTarget := uint32(NoTarget)
	finallyTarget := uint32(NoTarget)
	handlerAt := fc.emit(OpPushHandler, uint32(NoTarget), uint32(NoTarget))

	if n.HasFinally {
		fc.finallies = append(fc.finallies, finallyContext{body: n.FinallyBody, loopDepth: len(fc.loops)})
	}

	if err := fc.compileBlock(n.Body); err != nil {
		return err
	}
	fc.emit(OpPopHandler, 0, 0)
	jAfterTry := fc.emit(OpJump, uint32(NoTarget), 0)

	var catchHandlerAt uint32
	hasCatchHandler := false
	if n.HasCatch {
		catchTarget = uint32(len(fc.code))
		// A throw from inside the catch body must still reach this try's
		// finally: the handler pushed at handlerAt was already popped by
		// raise() to get here, so re-protect the catch body with its own
		// handler (catch-less, finally-only) before running it.
		if n.HasFinally {
			catchHandlerAt = fc.emit(OpPushHandler, uint32(NoTarget), uint32(NoTarget))
			hasCatchHandler = true
		}
		fc.pushScope()
		fc.emit(OpPushExceptionValue, 0, 0)
		if n.CatchVar != "" {
			l := fc.declare(n.CatchVar, TagAny)
			fc.emit(OpStoreLocal, uint32(l.slot), 0)
		} else {
			fc.emit(OpPop, 0, 0)
		}
		fc.emit(OpClearError, 0, 0)
		if err := fc.compileBlock(n.CatchBody); err != nil {
			return err
		}
		fc.popScope()
		if hasCatchHandler {
			fc.emit(OpPopHandler, 0, 0)
		}
	}
	fc.patch(jAfterTry, uint32(len(fc.code)))

	if n.HasFinally {
		fc.finallies = fc.finallies[:len(fc.finallies)-1]
		finallyTarget = uint32(len(fc.code))
		if err := fc.compileBlock(n.FinallyBody); err != nil {
			return err
		}
		fc.emit(OpRethrow, 0, 0) // re-raises only if an error is still pending
	}

	if hasCatchHandler {
		fc.code[catchHandlerAt].Operand2 = finallyTarget
	}
	fc.code[handlerAt].Operand = catchTarget
	fc.code[handlerAt].Operand2 = finallyTarget
	return nil
}

func (fc *fnCompiler) compileReturn(n *ir.ReturnStmt) error {
	fc.emitEnclosingFinallies(0)
	if n.Value != nil {
		if err := fc.compileExpr(n.Value); err != nil {
			return err
		}
		fc.emit(OpReturn, 0, 0)
	} else {
		fc.emit(OpReturnNothing, 0, 0)
	}
	return nil
}

func (fc *fnCompiler) compileBreak() error {
	if len(fc.loops) == 0 {
		return errs.Unsupported(diagnostics.Span{}, "break outside loop")
	}
	fc.emitEnclosingFinallies(len(fc.loops))
	ll := fc.loops[len(fc.loops)-1]
	j := fc.emit(OpJump, uint32(NoTarget), 0)
	ll.breakJumps = append(ll.breakJumps, j)
	return nil
}

func (fc *fnCompiler) compileContinue() error {
	if len(fc.loops) == 0 {
		return errs.Unsupported(diagnostics.Span{}, "continue outside loop")
	}
	fc.emitEnclosingFinallies(len(fc.loops))
	ll := fc.loops[len(fc.loops)-1]
	j := fc.emit(OpJump, uint32(NoTarget), 0)
	ll.continueJumps = append(ll.continueJumps, j)
	return nil
}

// emitEnclosingFinallies inlines every still-open finally block whose loop
// depth at try-entry was >= minDepth, so a return/break/continue runs them
// on its way out (spec §4.5: "return, break, continue must run enclosing
// finally blocks").
func (fc *fnCompiler) emitEnclosingFinallies(minDepth int) {
	for i := len(fc.finallies) - 1; i >= 0; i-- {
		fctx := fc.finallies[i]
		if fctx.loopDepth < minDepth {
			break
		}
		_ = fc.compileBlock(fctx.body)
	}
}
