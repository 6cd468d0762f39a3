package vm

import "github.com/arbor-lang/arbor/internal/bytecode"

// Frame is one call's activation record: its function, local variable
// slots, and the instruction pointer. Locals are addressed by slot index
// only; a frame keeps no by-name slot table and no per-variable type tags.
type Frame struct {
	Fn     *bytecode.FuncProto
	Locals []Value
	IP     int
}

func newFrame(fn *bytecode.FuncProto, args []Value) *Frame {
	locals := make([]Value, fn.NumLocals)
	copy(locals, args)
	return &Frame{Fn: fn, Locals: locals}
}

// handlerEntry is one active try block's unwind target, recording the
// stack/frame depth to restore to when control transfers there (spec
// §4.8: "handler stack").
type handlerEntry struct {
	CatchIP    uint32
	FinallyIP  uint32
	StackDepth int
	FrameDepth int
}
