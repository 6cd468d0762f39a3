package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/arbor-lang/arbor/internal/bytecode"
	"github.com/arbor-lang/arbor/internal/cancel"
	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/errs"
	"github.com/arbor-lang/arbor/internal/ir"
)

// VM executes one bytecode.Module (spec §4.8 "Bytecode VM").
type VM struct {
	Module   *bytecode.Module
	Rng      RngLike
	Globals  map[string]Value
	Builtins map[bytecode.BuiltinId]BuiltinFunc

	stack    []Value
	frames   []*Frame
	handlers []handlerEntry

	// pendingExc is set while a thrown value is being propagated to a
	// handler; it is consulted by Rethrow/ClearError.
	pendingExc *Value
}

// BuiltinFunc implements one CallBuiltin target.
type BuiltinFunc func(vm *VM, args []Value) (Value, error)

// New constructs a VM over module, wiring the standard builtin table.
func New(module *bytecode.Module, rng RngLike) *VM {
	v := &VM{
		Module:  module,
		Rng:     rng,
		Globals: make(map[string]Value),
	}
	v.Builtins = defaultBuiltins()
	return v
}

func (v *VM) push(val Value) { v.stack = append(v.stack, val) }

func (v *VM) pop() (Value, error) {
	if len(v.stack) == 0 {
		return Value{}, errs.Vm(errs.ReasonStackUnderflow, diagnostics.Span{}, "operand stack underflow")
	}
	top := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return top, nil
}

func (v *VM) peek() Value { return v.stack[len(v.stack)-1] }

func (v *VM) frame() *Frame { return v.frames[len(v.frames)-1] }

// Run executes fnName with args to completion and returns its result.
func (v *VM) Run(fnName string, args []Value) (Value, error) {
	idx, ok := v.Module.FuncIndex[fnName]
	if !ok {
		return Value{}, errs.New(errs.VmError, diagnostics.Span{}, "no such function: "+fnName)
	}
	v.frames = append(v.frames, newFrame(&v.Module.Functions[idx], args))
	return v.loop()
}

// loop is the fetch/decode/execute dispatch loop (spec §4.8 "Dispatch
// loop"). It returns when the outermost frame returns or an unhandled
// exception propagates out.
func (v *VM) loop() (Value, error) {
	baseFrameDepth := len(v.frames) - 1
	for len(v.frames) > baseFrameDepth {
		if cancel.IsRequested() {
			if !v.raise(Exception(Str("cancelled")), errs.Cancelled(diagnostics.Span{})) {
				return Value{}, errs.Cancelled(diagnostics.Span{})
			}
			continue
		}

		f := v.frame()
		if f.IP >= len(f.Fn.Code) {
			v.frames = v.frames[:len(v.frames)-1]
			if len(v.frames) == baseFrameDepth {
				return Nothing(), nil
			}
			v.push(Nothing())
			continue
		}
		instr := f.Fn.Code[f.IP]
		f.IP++

		ret, done, err := v.exec(instr)
		if err != nil {
			if !v.raise(Exception(Str(err.Error())), err) {
				return Value{}, err
			}
			continue
		}
		if done {
			v.frames = v.frames[:len(v.frames)-1]
			if len(v.frames) == baseFrameDepth {
				return ret, nil
			}
			v.push(ret)
		}
	}
	return Nothing(), nil
}

// exec runs one instruction against the current frame. done indicates the
// current frame returned (ret is its value).
func (v *VM) exec(instr bytecode.Instr) (ret Value, done bool, err error) {
	f := v.frame()
	switch instr.Op {
	case bytecode.OpNop:

	case bytecode.OpPushI64:
		c := v.Module.Constants[instr.Operand]
		switch n := c.(type) {
		case int64:
			v.push(I64(n))
		case int:
			v.push(I64(int64(n)))
		default:
			v.push(I64(0))
		}
	case bytecode.OpPushF64:
		c := v.Module.Constants[instr.Operand].(float64)
		v.push(F64(c))
	case bytecode.OpPushBool:
		v.push(Bool(instr.Operand != 0))
	case bytecode.OpPushString:
		v.push(Str(v.Module.Constants[instr.Operand].(string)))
	case bytecode.OpPushNothing:
		v.push(Nothing())
	case bytecode.OpPushConst:
		v.push(constToValue(v.Module.Constants[instr.Operand]))
	case bytecode.OpPop:
		_, err = v.pop()
	case bytecode.OpDup:
		v.push(v.peek())

	case bytecode.OpLoadLocal:
		v.push(f.Locals[instr.Operand])
	case bytecode.OpStoreLocal:
		var val Value
		if val, err = v.pop(); err == nil {
			f.Locals[instr.Operand] = val
		}
	case bytecode.OpLoadGlobal:
		name := v.Module.Constants[instr.Operand].(string)
		v.push(v.Globals[name])
	case bytecode.OpStoreGlobal:
		name := v.Module.Constants[instr.Operand].(string)
		var val Value
		if val, err = v.pop(); err == nil {
			v.Globals[name] = val
		}

	case bytecode.OpAddI64, bytecode.OpSubI64, bytecode.OpMulI64, bytecode.OpDivI64,
		bytecode.OpLtI64, bytecode.OpLeI64, bytecode.OpGtI64, bytecode.OpGeI64, bytecode.OpEqI64, bytecode.OpNeI64:
		err = v.execI64(instr.Op)
	case bytecode.OpAddF64, bytecode.OpSubF64, bytecode.OpMulF64, bytecode.OpDivF64,
		bytecode.OpLtF64, bytecode.OpLeF64, bytecode.OpGtF64, bytecode.OpGeF64:
		err = v.execF64(instr.Op)
	case bytecode.OpDynBinOp:
		err = v.execDynBinOp(ir.BinaryOp(instr.Operand))
	case bytecode.OpDynUnOp:
		err = v.execDynUnOp(ir.UnaryOp(instr.Operand))
	case bytecode.OpNot:
		var val Value
		if val, err = v.pop(); err == nil {
			v.push(Bool(!val.Truthy()))
		}
	case bytecode.OpNeg:
		var val Value
		if val, err = v.pop(); err == nil {
			if val.Kind == KindF64 {
				v.push(F64(-val.F))
			} else {
				v.push(I64(-val.I))
			}
		}

	case bytecode.OpJump:
		f.IP = int(instr.Operand)
	case bytecode.OpJumpIfZero:
		var val Value
		if val, err = v.pop(); err == nil && !val.Truthy() {
			f.IP = int(instr.Operand)
		}
	case bytecode.OpJumpIfLtI64:
		var r, l Value
		if r, err = v.pop(); err == nil {
			if l, err = v.pop(); err == nil && l.I < r.I {
				f.IP = int(instr.Operand)
			}
		}
	case bytecode.OpJumpIfNeI64:
		var r, l Value
		if r, err = v.pop(); err == nil {
			if l, err = v.pop(); err == nil && l.I != r.I {
				f.IP = int(instr.Operand)
			}
		}

	case bytecode.OpCall:
		err = v.execCall(int(instr.Operand), int(instr.Operand2))
	case bytecode.OpCallBuiltin:
		err = v.execCallBuiltin(bytecode.BuiltinId(instr.Operand), int(instr.Operand2))
	case bytecode.OpReturn:
		ret, err = v.pop()
		done = err == nil
	case bytecode.OpReturnNothing:
		ret = Nothing()
		done = true

	case bytecode.OpNewArray:
		n := int(instr.Operand)
		elems := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			if elems[i], err = v.pop(); err != nil {
				break
			}
		}
		v.push(Array(elems, []int{n}))
	case bytecode.OpArrayPush:
		var val, arr Value
		if val, err = v.pop(); err == nil {
			if arr, err = v.pop(); err == nil {
				arr.Array.Elems = append(arr.Array.Elems, val)
				arr.Array.Shape = []int{len(arr.Array.Elems)}
				v.push(arr)
			}
		}
	case bytecode.OpIndexGet:
		err = v.execIndexGet(int(instr.Operand))
	case bytecode.OpIndexSet:
		err = v.execIndexSet()

	case bytecode.OpNewDict:
		v.push(NewDict())
	case bytecode.OpDictSet:
		err = v.execDictSet()
	case bytecode.OpNewSet:
		v.push(NewSet())
	case bytecode.OpSetAdd:
		err = v.execSetAdd()
	case bytecode.OpNewTuple:
		n := int(instr.Operand)
		elems := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			if elems[i], err = v.pop(); err != nil {
				break
			}
		}
		v.push(Tuple(elems...))
	case bytecode.OpTupleGet:
		var t Value
		if t, err = v.pop(); err == nil {
			v.push(t.Tuple[instr.Operand])
		}
	case bytecode.OpNewStruct:
		// Operand: constant-pool index of the type name. Operand2: field
		// count. Field values are popped in declaration order.
		typeName := v.Module.Constants[instr.Operand].(string)
		n := int(instr.Operand2)
		fields := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			if fields[i], err = v.pop(); err != nil {
				break
			}
		}
		if err == nil {
			v.push(Struct(typeName, fields))
		}
	case bytecode.OpFieldGet:
		var s Value
		name := v.Module.Constants[instr.Operand].(string)
		if s, err = v.pop(); err == nil {
			err = v.pushField(s, name)
		}
	case bytecode.OpFieldSet:
		err = v.execFieldSet(int(instr.Operand))

	case bytecode.OpIterateFirst:
		err = v.execIterateFirst()
	case bytecode.OpIterateNext:
		err = v.execIterateNext()

	case bytecode.OpMakeRange:
		err = v.execMakeRange(false, true)
	case bytecode.OpMakeRangeF64:
		err = v.execMakeRange(true, true)
	case bytecode.OpMakeRangeLazy:
		err = v.execMakeRange(false, false)

	case bytecode.OpPushHandler:
		v.handlers = append(v.handlers, handlerEntry{
			CatchIP: instr.Operand, FinallyIP: instr.Operand2,
			StackDepth: len(v.stack), FrameDepth: len(v.frames),
		})
	case bytecode.OpPopHandler:
		if len(v.handlers) > 0 {
			v.handlers = v.handlers[:len(v.handlers)-1]
		}
	case bytecode.OpPushExceptionValue:
		if v.pendingExc != nil {
			v.push(*v.pendingExc.Exc)
		} else {
			v.push(Nothing())
		}
	case bytecode.OpClearError:
		v.pendingExc = nil
	case bytecode.OpRethrow:
		if v.pendingExc != nil {
			exc := *v.pendingExc
			if !v.raise(exc, errs.Vm(errs.ReasonUnhandledException, diagnostics.Span{}, "rethrow")) {
				err = errs.Vm(errs.ReasonUnhandledException, diagnostics.Span{}, "unhandled exception")
			}
		}
	case bytecode.OpThrow:
		var val Value
		if val, err = v.pop(); err == nil {
			if !v.raise(Exception(val), errs.Vm(errs.ReasonUnhandledException, diagnostics.Span{}, fmt.Sprintf("%v", val))) {
				err = errs.Vm(errs.ReasonUnhandledException, diagnostics.Span{}, fmt.Sprintf("%v", val))
			}
		}

	default:
		err = errs.New(errs.VmError, diagnostics.Span{}, fmt.Sprintf("unimplemented opcode %s", instr))
	}
	return ret, done, err
}

// raise transfers control to the nearest handler whose finally/catch IP is
// set, unwinding the operand and frame stacks to that handler's recorded
// depth. It returns false if no handler exists (the exception is
// unhandled).
func (v *VM) raise(exc Value, cause error) bool {
	_ = cause
	for len(v.handlers) > 0 {
		h := v.handlers[len(v.handlers)-1]
		v.handlers = v.handlers[:len(v.handlers)-1]

		if len(v.stack) > h.StackDepth {
			v.stack = v.stack[:h.StackDepth]
		}
		if len(v.frames) > h.FrameDepth {
			v.frames = v.frames[:h.FrameDepth]
		}
		v.pendingExc = &exc

		target := h.CatchIP
		if target == bytecode.NoTarget {
			target = h.FinallyIP
		}
		if target == bytecode.NoTarget {
			continue
		}
		v.frame().IP = int(target)
		return true
	}
	return false
}

func constToValue(c any) Value {
	switch n := c.(type) {
	case int64:
		return I64(n)
	case int:
		return I64(int64(n))
	case float64:
		return F64(n)
	case string:
		return Str(n)
	case bool:
		return Bool(n)
	case rune:
		return Char(n)
	default:
		return Nothing()
	}
}

func (v *VM) execI64(op bytecode.Op) error {
	r, err := v.pop()
	if err != nil {
		return err
	}
	l, err := v.pop()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.OpAddI64:
		v.push(I64(l.I + r.I))
	case bytecode.OpSubI64:
		v.push(I64(l.I - r.I))
	case bytecode.OpMulI64:
		v.push(I64(l.I * r.I))
	case bytecode.OpDivI64:
		if r.I == 0 {
			return errs.Vm(errs.ReasonDomain, diagnostics.Span{}, "integer division by zero")
		}
		v.push(I64(l.I / r.I))
	case bytecode.OpLtI64:
		v.push(Bool(l.I < r.I))
	case bytecode.OpLeI64:
		v.push(Bool(l.I <= r.I))
	case bytecode.OpGtI64:
		v.push(Bool(l.I > r.I))
	case bytecode.OpGeI64:
		v.push(Bool(l.I >= r.I))
	case bytecode.OpEqI64:
		v.push(Bool(l.I == r.I))
	case bytecode.OpNeI64:
		v.push(Bool(l.I != r.I))
	}
	return nil
}

func (v *VM) execF64(op bytecode.Op) error {
	r, err := v.pop()
	if err != nil {
		return err
	}
	l, err := v.pop()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.OpAddF64:
		v.push(F64(l.F + r.F))
	case bytecode.OpSubF64:
		v.push(F64(l.F - r.F))
	case bytecode.OpMulF64:
		v.push(F64(l.F * r.F))
	case bytecode.OpDivF64:
		v.push(F64(l.F / r.F))
	case bytecode.OpLtF64:
		v.push(Bool(l.F < r.F))
	case bytecode.OpLeF64:
		v.push(Bool(l.F <= r.F))
	case bytecode.OpGtF64:
		v.push(Bool(l.F > r.F))
	case bytecode.OpGeF64:
		v.push(Bool(l.F >= r.F))
	}
	return nil
}

// execDynBinOp is the generic binary-op fallback used whenever the
// compiler couldn't prove both operands share a concrete fast-path type.
// It does not consult a method table: ==, != and === compare values
// directly, string `+` concatenates, a complex operand goes to
// execComplexBinOp, and other arithmetic and comparisons promote through
// float64.
func (v *VM) execDynBinOp(op ir.BinaryOp) error {
	r, err := v.pop()
	if err != nil {
		return err
	}
	l, err := v.pop()
	if err != nil {
		return err
	}
	switch op {
	case ir.OpEq:
		v.push(Bool(valuesEqual(l, r)))
		return nil
	case ir.OpNe:
		v.push(Bool(!valuesEqual(l, r)))
		return nil
	case ir.OpIdentical:
		v.push(Bool(valuesIdentical(l, r)))
		return nil
	case ir.OpAdd:
		if l.Kind == KindString && r.Kind == KindString {
			v.push(Str(l.S + r.S))
			return nil
		}
	}
	if l.Kind == KindComplex || r.Kind == KindComplex {
		return v.execComplexBinOp(op, l, r)
	}
	lf, rf := asFloat(l), asFloat(r)
	switch op {
	case ir.OpAdd:
		v.push(F64(lf + rf))
	case ir.OpSub:
		v.push(F64(lf - rf))
	case ir.OpMul:
		v.push(F64(lf * rf))
	case ir.OpDiv:
		v.push(F64(lf / rf))
	case ir.OpLt:
		v.push(Bool(lf < rf))
	case ir.OpLe:
		v.push(Bool(lf <= rf))
	case ir.OpGt:
		v.push(Bool(lf > rf))
	case ir.OpGe:
		v.push(Bool(lf >= rf))
	default:
		return errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "unsupported dynamic binary operator")
	}
	return nil
}

func (v *VM) execDynUnOp(op ir.UnaryOp) error {
	x, err := v.pop()
	if err != nil {
		return err
	}
	switch op {
	case ir.OpNot:
		v.push(Bool(!x.Truthy()))
	case ir.OpNeg:
		switch x.Kind {
		case KindF64:
			v.push(F64(-x.F))
		case KindComplex:
			v.push(Complex(-x.Complex.Re, -x.Complex.Im))
		default:
			v.push(I64(-x.I))
		}
	default:
		v.push(x)
	}
	return nil
}

// asComplex widens any numeric Value to a complex pair, the promotion
// lattice/promotion.go's priority table already ranks Complex above every other numeric
// kind (spec §3 "promotion... priority table: complex > rational > ...").
func asComplex(v Value) (re, im float64) {
	if v.Kind == KindComplex {
		return v.Complex.Re, v.Complex.Im
	}
	return asFloat(v), 0
}

// execComplexBinOp implements +,-,*,/ over values where at
// least one operand is KindComplex (spec §4.8 "MatMul dispatches to real or
// complex multiply based on element types" generalized to every dynamic
// binary op, since the mandelbrot-escape scenario (spec §8) needs complex
// +,* and |z|^2 outside of MatMul too).
func (v *VM) execComplexBinOp(op ir.BinaryOp, l, r Value) error {
	ar, ai := asComplex(l)
	br, bi := asComplex(r)
	switch op {
	case ir.OpAdd:
		v.push(Complex(ar+br, ai+bi))
	case ir.OpSub:
		v.push(Complex(ar-br, ai-bi))
	case ir.OpMul:
		v.push(Complex(ar*br-ai*bi, ar*bi+ai*br))
	case ir.OpDiv:
		denom := br*br + bi*bi
		v.push(Complex((ar*br+ai*bi)/denom, (ai*br-ar*bi)/denom))
	default:
		return errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "unsupported complex binary operator")
	}
	return nil
}

func asFloat(v Value) float64 {
	switch v.Kind {
	case KindI64:
		return float64(v.I)
	case KindF64:
		return v.F
	default:
		return math.NaN()
	}
}

// valuesEqual implements value equality (==): IEEE equality for floats (so
// NaN != NaN, unlike set membership's bit-identity rule). Compound kinds
// (arrays, tuples, dicts, sets, ranges, structs, exceptions) compare by
// reference identity, as valuesIdentical does; their elements are not
// compared.
func valuesEqual(l, r Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case KindI64:
		return l.I == r.I
	case KindF64:
		return l.F == r.F
	case KindBool:
		return l.B == r.B
	case KindString:
		return l.S == r.S
	case KindNothing:
		return true
	case KindComplex:
		return l.Complex.Re == r.Complex.Re && l.Complex.Im == r.Complex.Im
	default:
		return valuesIdentical(l, r)
	}
}

// valuesIdentical implements === (spec §4.2's OpIdentical / isa-adjacent
// narrowing test): reference identity for compound kinds, bit-identity for
// floats.
func valuesIdentical(l, r Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	if l.Kind == KindF64 {
		return math.Float64bits(l.F) == math.Float64bits(r.F)
	}
	return l.bitsKey() == r.bitsKey()
}

func (v *VM) execCall(fnIdx, argc int) error {
	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		a, err := v.pop()
		if err != nil {
			return err
		}
		args[i] = a
	}
	v.frames = append(v.frames, newFrame(&v.Module.Functions[fnIdx], args))
	return nil
}

func (v *VM) execCallBuiltin(id bytecode.BuiltinId, argc int) error {
	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		a, err := v.pop()
		if err != nil {
			return err
		}
		args[i] = a
	}
	fn, ok := v.Builtins[id]
	if !ok {
		return errs.New(errs.VmError, diagnostics.Span{}, "unbound builtin")
	}
	result, err := fn(v, args)
	if err != nil {
		return err
	}
	v.push(result)
	return nil
}

func defaultBuiltins() map[bytecode.BuiltinId]BuiltinFunc {
	return map[bytecode.BuiltinId]BuiltinFunc{
		bytecode.BuiltinLen: func(_ *VM, args []Value) (Value, error) {
			return I64(int64(collLen(args[0]))), nil
		},
		bytecode.BuiltinCap: func(_ *VM, args []Value) (Value, error) {
			return I64(int64(collLen(args[0]))), nil
		},
		bytecode.BuiltinAppend: func(_ *VM, args []Value) (Value, error) {
			arr := args[0]
			elems := append(append([]Value(nil), arr.Array.Elems...), args[1:]...)
			return Array(elems, []int{len(elems)}), nil
		},
		bytecode.BuiltinCopy: func(_ *VM, args []Value) (Value, error) {
			return I64(int64(collLen(args[0]))), nil
		},
		bytecode.BuiltinPanic: func(_ *VM, args []Value) (Value, error) {
			msg := "panic"
			if len(args) > 0 {
				msg = args[0].String()
			}
			return Value{}, errs.Vm(errs.ReasonUnhandledException, diagnostics.Span{}, msg)
		},
		bytecode.BuiltinPrint: func(_ *VM, args []Value) (Value, error) {
			for _, a := range args {
				fmt.Print(a.String())
			}
			return Nothing(), nil
		},
		bytecode.BuiltinRandom: func(vm *VM, args []Value) (Value, error) {
			if vm.Rng == nil {
				return Value{}, errs.New(errs.VmError, diagnostics.Span{}, "no RNG capability installed")
			}
			return F64(vm.Rng.Float64()), nil
		},
		bytecode.BuiltinSleep: func(_ *VM, args []Value) (Value, error) {
			secs := asFloat(args[0])
			if secs < 0 {
				return Value{}, errs.Vm(errs.ReasonDomain, diagnostics.Span{}, "sleep duration must be non-negative")
			}
			time.Sleep(time.Duration(secs * float64(time.Second)))
			return Nothing(), nil
		},
		bytecode.BuiltinMatMul: matMulBuiltin,

		bytecode.BuiltinRandF64: func(vm *VM, args []Value) (Value, error) {
			if vm.Rng == nil {
				return Value{}, errs.New(errs.VmError, diagnostics.Span{}, "no RNG capability installed")
			}
			return F64(vm.Rng.Float64()), nil
		},
		bytecode.BuiltinRandArray: func(vm *VM, args []Value) (Value, error) {
			return randArrayBuiltin(vm, args, vm.Rng.Float64)
		},
		bytecode.BuiltinRandnF64: func(vm *VM, args []Value) (Value, error) {
			if vm.Rng == nil {
				return Value{}, errs.New(errs.VmError, diagnostics.Span{}, "no RNG capability installed")
			}
			return F64(vm.Rng.Normal()), nil
		},
		bytecode.BuiltinRandnArray: func(vm *VM, args []Value) (Value, error) {
			return randArrayBuiltin(vm, args, vm.Rng.Normal)
		},
		bytecode.BuiltinSeedGlobalRng: func(vm *VM, args []Value) (Value, error) {
			if vm.Rng == nil {
				return Value{}, errs.New(errs.VmError, diagnostics.Span{}, "no RNG capability installed")
			}
			vm.Rng.Seed(args[0].I)
			return Nothing(), nil
		},

		bytecode.BuiltinToString: func(_ *VM, args []Value) (Value, error) {
			return Str(debugString(args[0])), nil
		},
		bytecode.BuiltinToStr: func(_ *VM, args []Value) (Value, error) {
			return Str(args[0].String()), nil
		},
		bytecode.BuiltinStringConcat: func(_ *VM, args []Value) (Value, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(debugString(a))
			}
			return Str(b.String()), nil
		},
		bytecode.BuiltinConcatStrings: func(_ *VM, args []Value) (Value, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(a.String())
			}
			return Str(b.String()), nil
		},

		bytecode.BuiltinUnion: func(_ *VM, args []Value) (Value, error) {
			return setUnion(args[0], args[1])
		},
		bytecode.BuiltinUnionBang: func(_ *VM, args []Value) (Value, error) {
			res, err := setUnion(args[0], args[1])
			if err != nil {
				return Value{}, err
			}
			return mutateInPlace(args[0], res), nil
		},
		bytecode.BuiltinIntersect: func(_ *VM, args []Value) (Value, error) {
			return setIntersect(args[0], args[1])
		},
		bytecode.BuiltinIntersectBang: func(_ *VM, args []Value) (Value, error) {
			res, err := setIntersect(args[0], args[1])
			if err != nil {
				return Value{}, err
			}
			return mutateInPlace(args[0], res), nil
		},
		bytecode.BuiltinSetDiff: func(_ *VM, args []Value) (Value, error) {
			return setDiff(args[0], args[1])
		},
		bytecode.BuiltinSetDiffBang: func(_ *VM, args []Value) (Value, error) {
			res, err := setDiff(args[0], args[1])
			if err != nil {
				return Value{}, err
			}
			return mutateInPlace(args[0], res), nil
		},
		bytecode.BuiltinSymDiff: func(_ *VM, args []Value) (Value, error) {
			return setSymDiff(args[0], args[1])
		},
		bytecode.BuiltinSymDiffBang: func(_ *VM, args []Value) (Value, error) {
			res, err := setSymDiff(args[0], args[1])
			if err != nil {
				return Value{}, err
			}
			return mutateInPlace(args[0], res), nil
		},
		bytecode.BuiltinIsSubset: func(_ *VM, args []Value) (Value, error) {
			return setIsSubset(args[0], args[1])
		},
		bytecode.BuiltinIsDisjoint: func(_ *VM, args []Value) (Value, error) {
			return setIsDisjoint(args[0], args[1])
		},
		bytecode.BuiltinIsSetEqual: func(_ *VM, args []Value) (Value, error) {
			return setIsSetEqual(args[0], args[1])
		},
	}
}

// randArrayBuiltin implements RandArray/RandnArray: pop an I64 count and
// fill an array by repeated calls to the supplied scalar generator (spec
// §4.8 "RNG family").
func randArrayBuiltin(vm *VM, args []Value, gen func() float64) (Value, error) {
	if vm.Rng == nil {
		return Value{}, errs.New(errs.VmError, diagnostics.Span{}, "no RNG capability installed")
	}
	n := int(args[0].I)
	if n < 0 {
		return Value{}, errs.Vm(errs.ReasonDomain, diagnostics.Span{}, "array length must be non-negative")
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = F64(gen())
	}
	return Array(elems, []int{n}), nil
}

// debugString renders a value-debug representation (quoted strings/chars),
// distinct from String()'s user-facing rendering (spec §4.8 "ToString,
// ToStr ... differ in formatting rules: value-debug vs user-facing").
func debugString(v Value) string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.S)
	case KindChar:
		return strconv.QuoteRune(rune(v.I))
	default:
		return v.String()
	}
}

func collLen(v Value) int {
	switch v.Kind {
	case KindArray:
		return len(v.Array.Elems)
	case KindTuple:
		return len(v.Tuple)
	case KindSet:
		return len(v.Set.Elems)
	case KindDict:
		return len(v.Dict.Keys)
	case KindString:
		return len(v.S)
	default:
		return 0
	}
}
