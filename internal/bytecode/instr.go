// Package bytecode lowers typed Core IR (internal/ir) to a flat instruction
// stream executed by internal/vm (spec §4.5, §3 "Bytecode module").
package bytecode

// Op identifies one VM instruction. Values are stable across a process
// (spec §6 "Bytecode serialization": a module's opcodes are persisted
// verbatim), so new ops are always appended, never inserted.
type Op uint8

const (
	OpNop Op = iota

	// Stack / locals.
	OpPushI64
	OpPushF64
	OpPushBool
	OpPushString
	OpPushNothing
	OpPushConst // constant pool index, for struct/array/dict literals folded ahead of time
	OpPop
	OpDup

	OpLoadLocal  // typed fast path, local slot index
	OpStoreLocal
	OpLoadGlobal // name index into the constant pool
	OpStoreGlobal

	// Arithmetic / comparison, typed fast paths.
	OpAddI64
	OpSubI64
	OpMulI64
	OpDivI64
	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64
	OpLtI64
	OpLeI64
	OpGtI64
	OpGeI64
	OpEqI64
	OpNeI64
	OpLtF64
	OpLeF64
	OpGtF64
	OpGeF64

	// Generic dynamic dispatch, used whenever operand types aren't both
	// known-concrete at compile time (spec §4.5).
	OpDynBinOp  // operand: BinaryOp tag
	OpDynUnOp   // operand: UnaryOp tag
	OpNot
	OpNeg

	// Control flow.
	OpJump
	OpJumpIfZero
	OpJumpIfLtI64 // patched comparison+branch fusion for typed loop counters
	OpJumpIfNeI64
	OpCall        // operand: function index; operand2: argc
	OpCallBuiltin // operand: BuiltinId; operand2: argc
	OpReturn
	OpReturnNothing

	// Containers.
	OpNewArray // operand: element count
	OpArrayPush
	OpIndexGet
	OpIndexSet
	OpNewDict
	OpDictSet
	OpNewSet
	OpSetAdd
	OpNewTuple // operand: element count
	OpTupleGet // operand: index
	OpNewStruct
	OpFieldGet // operand: constant-pool index of the field name
	OpFieldSet

	// Iteration protocol.
	OpIterateFirst
	OpIterateNext

	// Ranges.
	OpMakeRange     // integer range, materializes to an I64 array
	OpMakeRangeF64  // float range, epsilon-tolerant termination
	OpMakeRangeLazy // stores as a Range value for on-demand iteration

	// Exceptions.
	OpPushHandler // operand: catch IP or sentinel; operand2: finally IP or sentinel
	OpPopHandler
	OpPushExceptionValue
	OpClearError
	OpRethrow
	OpThrow
)

// NoTarget marks an unpatched jump target or an absent catch/finally IP,
// spec §4.5's "usize::MAX sentinel" convention translated to the largest
// uint32, the width of an Instr operand.
const NoTarget = ^uint32(0)

// Instr is one bytecode instruction: an opcode plus up to two immediate
// operands. Most instructions use at most one; a few (Call, PushHandler)
// use both.
type Instr struct {
	Op       Op
	Operand  uint32
	Operand2 uint32
}

func (i Instr) String() string {
	return opNames[i.Op]
}

var opNames = map[Op]string{
	OpNop:                "Nop",
	OpPushI64:            "PushI64",
	OpPushF64:            "PushF64",
	OpPushBool:           "PushBool",
	OpPushString:         "PushString",
	OpPushNothing:        "PushNothing",
	OpPushConst:          "PushConst",
	OpPop:                "Pop",
	OpDup:                "Dup",
	OpLoadLocal:          "LoadLocal",
	OpStoreLocal:         "StoreLocal",
	OpLoadGlobal:         "LoadGlobal",
	OpStoreGlobal:        "StoreGlobal",
	OpAddI64:             "AddI64",
	OpSubI64:             "SubI64",
	OpMulI64:             "MulI64",
	OpDivI64:             "DivI64",
	OpAddF64:             "AddF64",
	OpSubF64:             "SubF64",
	OpMulF64:             "MulF64",
	OpDivF64:             "DivF64",
	OpLtI64:              "LtI64",
	OpLeI64:              "LeI64",
	OpGtI64:              "GtI64",
	OpGeI64:              "GeI64",
	OpEqI64:              "EqI64",
	OpNeI64:              "NeI64",
	OpLtF64:              "LtF64",
	OpLeF64:              "LeF64",
	OpGtF64:              "GtF64",
	OpGeF64:              "GeF64",
	OpDynBinOp:           "DynBinOp",
	OpDynUnOp:            "DynUnOp",
	OpNot:                "Not",
	OpNeg:                "Neg",
	OpJump:               "Jump",
	OpJumpIfZero:         "JumpIfZero",
	OpJumpIfLtI64:        "JumpIfLtI64",
	OpJumpIfNeI64:        "JumpIfNeI64",
	OpCall:               "Call",
	OpCallBuiltin:        "CallBuiltin",
	OpReturn:             "Return",
	OpReturnNothing:      "ReturnNothing",
	OpNewArray:           "NewArray",
	OpArrayPush:          "ArrayPush",
	OpIndexGet:           "IndexGet",
	OpIndexSet:           "IndexSet",
	OpNewDict:            "NewDict",
	OpDictSet:            "DictSet",
	OpNewSet:             "NewSet",
	OpSetAdd:             "SetAdd",
	OpNewTuple:           "NewTuple",
	OpTupleGet:           "TupleGet",
	OpNewStruct:          "NewStruct",
	OpFieldGet:           "FieldGet",
	OpFieldSet:           "FieldSet",
	OpIterateFirst:       "IterateFirst",
	OpIterateNext:        "IterateNext",
	OpMakeRange:          "MakeRange",
	OpMakeRangeF64:       "MakeRangeF64",
	OpMakeRangeLazy:      "MakeRangeLazy",
	OpPushHandler:        "PushHandler",
	OpPopHandler:         "PopHandler",
	OpPushExceptionValue: "PushExceptionValue",
	OpClearError:         "ClearError",
	OpRethrow:            "Rethrow",
	OpThrow:              "Throw",
}

// BuiltinId identifies a CallBuiltin target.
type BuiltinId uint16

const (
	BuiltinLen BuiltinId = iota
	BuiltinCap
	BuiltinAppend
	BuiltinCopy
	BuiltinPanic
	BuiltinPrint
	BuiltinRandom
	BuiltinSleep
	BuiltinMatMul

	// RNG family, spec §4.8: "RandF64, RandArray(n), RandnF64, RandnArray(n),
	// SeedGlobalRng".
	BuiltinRandF64
	BuiltinRandArray
	BuiltinRandnF64
	BuiltinRandnArray
	BuiltinSeedGlobalRng

	// Strings family, spec §4.8: "ToString, ToStr, StringConcat(n),
	// ConcatStrings(n) (differ in formatting rules: value-debug vs
	// user-facing)".
	BuiltinToString
	BuiltinToStr
	BuiltinStringConcat
	BuiltinConcatStrings

	// Set operations family, spec §4.8 "Set operations", with mutating `!`
	// variants.
	BuiltinUnion
	BuiltinUnionBang
	BuiltinIntersect
	BuiltinIntersectBang
	BuiltinSetDiff
	BuiltinSetDiffBang
	BuiltinSymDiff
	BuiltinSymDiffBang
	BuiltinIsSubset
	BuiltinIsDisjoint
	BuiltinIsSetEqual
)
