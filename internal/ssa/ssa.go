// Package ssa implements the SSA intermediate representation and
// optimization-pass contract described in spec §4.6, modeled on the shape
// of golang.org/x/tools/go/ssa's Function/BasicBlock/Instruction split
// (blocks hold an ordered instruction list terminated by exactly one
// control-flow instruction; block arguments are expressed as Phi nodes
// rather than implicit predecessor state).
package ssa

import "fmt"

// ValueID names one SSA value, unique within a Function.
type ValueID int

// Op identifies the operation an Instruction performs.
type Op int

const (
	OpConst Op = iota
	OpParam
	OpBinary
	OpUnary
	OpCall
	OpPhi
	OpLoadField
	OpStoreField
	OpIndex
	OpMakeArray
	OpMakeTuple
)

// Instruction is one SSA value-producing (or side-effecting) operation. It
// is identified by its own ValueID for use as an operand elsewhere.
type Instruction struct {
	ID       ValueID
	Op       Op
	BinOp    string // valid when Op == OpBinary/OpUnary; mirrors ir.BinaryOp/UnaryOp's string form
	Const    any    // valid when Op == OpConst
	Callee   string // valid when Op == OpCall
	Field    string // valid when Op == OpLoadField/OpStoreField
	Args     []ValueID
	Comment  string // optional, for readability in dumps; never semantically load-bearing
}

// TermKind identifies a basic block's terminator shape.
type TermKind int

const (
	TermJump TermKind = iota
	TermBranch
	TermReturn
	TermUnreachable
)

// Terminator ends a BasicBlock: exactly one per block, always last.
type Terminator struct {
	Kind      TermKind
	Cond      ValueID  // valid when Kind == TermBranch
	Then, Else *Block   // valid when Kind == TermBranch
	Target    *Block    // valid when Kind == TermJump
	Result    *ValueID  // valid when Kind == TermReturn; nil for a bare return
}

// Phi merges a value from each predecessor block into one SSA value at a
// join point (spec §4.6: "block arguments expressed as phis").
type Phi struct {
	ID      ValueID
	Edges   map[*Block]ValueID // predecessor -> incoming value
}

// Block is one basic block: a straight-line instruction list, optional
// leading phis, and exactly one terminator.
type Block struct {
	Name    string
	Phis    []*Phi
	Instrs  []*Instruction
	Term    *Terminator
	Preds   []*Block
}

// Function is one SSA-form function: its parameter value IDs and its
// blocks in layout order (Blocks[0] is the entry block).
type Function struct {
	Name    string
	Params  []ValueID
	Blocks  []*Block
	nextID  ValueID
}

// NewFunction returns an empty function with a single empty entry block.
func NewFunction(name string) *Function {
	f := &Function{Name: name}
	f.Blocks = append(f.Blocks, &Block{Name: "entry"})
	return f
}

// NewValue allocates a fresh ValueID, unique within f.
func (f *Function) NewValue() ValueID {
	f.nextID++
	return f.nextID
}

// NewBlock appends and returns a new block.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Emit appends instr to b.
func (b *Block) Emit(instr *Instruction) {
	b.Instrs = append(b.Instrs, instr)
}

// FindInstr locates the instruction producing id, searching every block in
// f. It returns nil if id names a phi or nothing at all; FindPhi looks up
// phis.
func (f *Function) FindInstr(id ValueID) *Instruction {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.ID == id {
				return in
			}
		}
	}
	return nil
}

func (f *Function) FindPhi(id ValueID) *Phi {
	for _, b := range f.Blocks {
		for _, p := range b.Phis {
			if p.ID == id {
				return p
			}
		}
	}
	return nil
}

func (f *Function) String() string {
	s := fmt.Sprintf("func %s:\n", f.Name)
	for _, b := range f.Blocks {
		s += fmt.Sprintf("%s:\n", b.Name)
		for _, p := range b.Phis {
			s += fmt.Sprintf("  v%d = phi(...)\n", p.ID)
		}
		for _, in := range b.Instrs {
			s += fmt.Sprintf("  v%d = %v %v\n", in.ID, in.Op, in.Args)
		}
	}
	return s
}

// OptimizationPass is the contract every SSA pass implements (spec §4.6:
// "take an IrFunction by reference, return either the same function
// unchanged or a new one"). Passes must be idempotent and must preserve
// SSA form.
type OptimizationPass interface {
	Name() string
	Run(f *Function) *Function
}
