// Package ir implements the Core IR described in spec §3 ("Core IR
// entities"): the desugared AST consumed by type inference. It is produced
// by a lowering stage that is out of scope for this module (spec §1); code
// here only defines the node shapes and the few constructors tests use to
// build programs by hand.
//
// Go has no sum types, so Stmt and Expr are sealed interfaces (an
// unexported marker method), the way funvibe-funxy's internal/ast package
// seals its node interfaces.
package ir

import "github.com/arbor-lang/arbor/internal/diagnostics"

type Span = diagnostics.Span

// Node is the common supertype of every IR node: it carries a span, as
// spec §3 requires ("Every node carries a source span").
type Node interface {
	Span() Span
}

// Stmt is the sealed interface of every statement form from spec §3:
// "assignment, compound assignment, control flow (if/for/for-each/while/
// try/return/break/continue/goto), definitions".
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the sealed interface of every expression form from spec §3:
// "binary/unary/call/builtin/index/range/field access/array and tuple/dict
// literals/let/quote/etc."
type Expr interface {
	Node
	exprNode()
}

type base struct{ span Span }

func (b base) Span() Span { return b.span }

// ---- Top level -------------------------------------------------------

// Program owns every Function plus top-level statements and declarations
// (spec §3: "Program owns a list of Function, top-level Stmt, struct and
// enum declarations").
type Program struct {
	Functions []*Function
	Stmts     []Stmt
	Structs   []*StructDecl
	Enums     []*EnumDecl
}

// TypeExpr is the pre-inference syntactic type annotation: a name plus
// optional type arguments and array dimensionality. Inference (internal/
// infer) resolves it against internal/lattice.LatticeType.
type TypeExpr struct {
	Name string
	Args []*TypeExpr
	Dims int // > 0 marks this an array type expression
	base
}

// Param is a single function parameter: a name plus an optional type
// expression (spec §3: "ordered parameters (name + type expression)").
type Param struct {
	Name string
	Type *TypeExpr // nil: untyped, infers to Any
}

// TypeParamDecl declares a function type parameter with optional bounds
// (spec §3: "optional type parameters with bounds").
type TypeParamDecl struct {
	Name  string
	Upper *TypeExpr // upper bound, nil if none
	Lower *TypeExpr // lower bound, nil if none
}

// Function is a top-level function definition (spec §3).
type Function struct {
	Name       string
	Params     []Param
	KwParams   []Param
	TypeParams []TypeParamDecl
	ReturnType *TypeExpr // nil: inferred
	Body       *Block
	span       Span
}

func (f *Function) Span() Span { return f.span }

// NewFunction constructs a Function with the given span.
func NewFunction(name string, params []Param, body *Block, span Span) *Function {
	return &Function{Name: name, Params: params, Body: body, span: span}
}

// Block is an ordered sequence of statements (spec §3: "a Block body").
type Block struct {
	Stmts []Stmt
	span  Span
}

func (b *Block) Span() Span { return b.span }

// NewBlock constructs a Block.
func NewBlock(span Span, stmts ...Stmt) *Block {
	return &Block{Stmts: stmts, span: span}
}

// StructDecl declares a user struct type.
type StructDecl struct {
	Name       string
	TypeParams []TypeParamDecl
	Fields     []Param
	span       Span
}

func (s *StructDecl) Span() Span { return s.span }

// EnumDecl declares a user enum type as a set of named variants.
type EnumDecl struct {
	Name     string
	Variants []string
	span     Span
}

func (e *EnumDecl) Span() Span { return e.span }

// ---- Statements --------------------------------------------------------

// AssignStmt is `target = value`.
type AssignStmt struct {
	Target Expr
	Value  Expr
	base
}

func (*AssignStmt) stmtNode() {}

// CompoundAssignStmt is `target OP= value` (e.g. `+=`).
type CompoundAssignStmt struct {
	Target Expr
	Op     BinaryOp
	Value  Expr
	base
}

func (*CompoundAssignStmt) stmtNode() {}

// LocalDeclStmt declares a local (or global/const, per Scope) variable.
type DeclScope int

const (
	ScopeLocal DeclScope = iota
	ScopeGlobal
	ScopeConst
)

type LocalDeclStmt struct {
	Name  string
	Scope DeclScope
	Type  *TypeExpr
	Init  Expr // nil if uninitialized
	base
}

func (*LocalDeclStmt) stmtNode() {}

// IfStmt is `if cond { then } elseif cond2 { ... } else { ... }`, modeled
// as a chain via Else (which may itself be a single-statement Block
// containing another IfStmt for `elseif`).
type IfStmt struct {
	Cond Expr
	Then *Block
	Else *Block // nil if no else/elseif
	base
}

func (*IfStmt) stmtNode() {}

// ForStmt is a range-style counted loop: `for Var in Iterable { Body }`.
type ForStmt struct {
	Var      string
	Iterable Expr
	Body     *Block
	base
}

func (*ForStmt) stmtNode() {}

// ForEachStmt destructures each element of Iterable into Vars.
type ForEachStmt struct {
	Vars     []string
	Iterable Expr
	Body     *Block
	base
}

func (*ForEachStmt) stmtNode() {}

// WhileStmt is `while cond { Body }`.
type WhileStmt struct {
	Cond Expr
	Body *Block
	base
}

func (*WhileStmt) stmtNode() {}

// TryStmt is `try Body catch [CatchVar] CatchBody finally FinallyBody`.
type TryStmt struct {
	Body        *Block
	CatchVar    string // empty if the exception value is unbound
	HasCatch    bool
	CatchBody   *Block
	HasFinally  bool
	FinallyBody *Block
	base
}

func (*TryStmt) stmtNode() {}

// ReturnStmt is `return [Value]`.
type ReturnStmt struct {
	Value Expr // nil for bare `return`
	base
}

func (*ReturnStmt) stmtNode() {}

// BreakStmt is `break`, optionally targeting a labeled loop.
type BreakStmt struct {
	Label string
	base
}

func (*BreakStmt) stmtNode() {}

// ContinueStmt is `continue`, optionally targeting a labeled loop.
type ContinueStmt struct {
	Label string
	base
}

func (*ContinueStmt) stmtNode() {}

// GotoStmt is `goto Label`.
type GotoStmt struct {
	Label string
	base
}

func (*GotoStmt) stmtNode() {}

// LabelStmt declares Label at this point for goto targets.
type LabelStmt struct {
	Label string
	base
}

func (*LabelStmt) stmtNode() {}

// ExprStmt wraps an expression evaluated for its value/side effect.
type ExprStmt struct {
	X Expr
	base
}

func (*ExprStmt) stmtNode() {}

// ---- Expressions --------------------------------------------------------

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpIs        // isa(x, T)
	OpIdentical // ===
)

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpAdjoint
)

// BinaryExpr is `Left Op Right`.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	base
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is `Op X`.
type UnaryExpr struct {
	Op UnaryOp
	X  Expr
	base
}

func (*UnaryExpr) exprNode() {}

// TernaryExpr is `Cond ? Then : Else`.
type TernaryExpr struct {
	Cond, Then, Else Expr
	base
}

func (*TernaryExpr) exprNode() {}

// CallExpr is a call to a user or method-table function.
type CallExpr struct {
	Callee   string
	Args     []Expr
	KwArgs   map[string]Expr
	TypeArgs []*TypeExpr
	base
}

func (*CallExpr) exprNode() {}

// BuiltinExpr is a call to a fixed builtin (append/len/make/...).
type BuiltinExpr struct {
	Name string
	Args []Expr
	base
}

func (*BuiltinExpr) exprNode() {}

// IndexExpr is `X[Index...]`.
type IndexExpr struct {
	X      Expr
	Index  []Expr
	base
}

func (*IndexExpr) exprNode() {}

// RangeExpr is `Start:Step:Stop` (Step nil means step 1).
type RangeExpr struct {
	Start, Step, Stop Expr
	base
}

func (*RangeExpr) exprNode() {}

// FieldExpr is `X.Field`.
type FieldExpr struct {
	X     Expr
	Field string
	base
}

func (*FieldExpr) exprNode() {}

// ArrayLitExpr is `[e1, e2, ...]`.
type ArrayLitExpr struct {
	Elems []Expr
	base
}

func (*ArrayLitExpr) exprNode() {}

// TupleLitExpr is `(e1, e2, ...)`.
type TupleLitExpr struct {
	Elems []Expr
	base
}

func (*TupleLitExpr) exprNode() {}

// DictEntry is one key/value pair of a DictLitExpr.
type DictEntry struct {
	Key, Value Expr
}

// DictLitExpr is `Dict(k1 => v1, ...)`.
type DictLitExpr struct {
	Entries []DictEntry
	base
}

func (*DictLitExpr) exprNode() {}

// SetLitExpr is `Set([e1, e2, ...])`.
type SetLitExpr struct {
	Elems []Expr
	base
}

func (*SetLitExpr) exprNode() {}

// LetExpr is `let name = value in body` (or a let-block, depending on
// front-end sugar already desugared by lowering).
type LetExpr struct {
	Name  string
	Value Expr
	Body  Expr
	base
}

func (*LetExpr) exprNode() {}

// QuoteExpr wraps an unevaluated sub-expression (macro hygiene is handled
// by lowering, out of scope here; this node only preserves the quoted
// shape through inference).
type QuoteExpr struct {
	X Expr
	base
}

func (*QuoteExpr) exprNode() {}

// IdentExpr references a variable or function by name.
type IdentExpr struct {
	Name string
	base
}

func (*IdentExpr) exprNode() {}

// LiteralKind enumerates literal value kinds.
type LiteralKind int

const (
	LitInteger LiteralKind = iota
	LitFloat
	LitString
	LitChar
	LitBool
	LitNothing
)

// LiteralExpr is a literal value of the given kind.
type LiteralExpr struct {
	Kind  LiteralKind
	Value interface{} // int64, float64, string, rune, bool, or nil for LitNothing
	base
}

func (*LiteralExpr) exprNode() {}

// ---- constructors (span-carrying, used by tests and by lowering stubs) --

func NewIdent(name string, span Span) *IdentExpr   { return &IdentExpr{Name: name, base: base{span}} }
func NewInt(v int64, span Span) *LiteralExpr        { return &LiteralExpr{Kind: LitInteger, Value: v, base: base{span}} }
func NewFloat(v float64, span Span) *LiteralExpr    { return &LiteralExpr{Kind: LitFloat, Value: v, base: base{span}} }
func NewString(v string, span Span) *LiteralExpr    { return &LiteralExpr{Kind: LitString, Value: v, base: base{span}} }
func NewBool(v bool, span Span) *LiteralExpr        { return &LiteralExpr{Kind: LitBool, Value: v, base: base{span}} }
func NewBinary(op BinaryOp, l, r Expr, span Span) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: l, Right: r, base: base{span}}
}
func NewAssign(target, value Expr, span Span) *AssignStmt {
	return &AssignStmt{Target: target, Value: value, base: base{span}}
}
func NewIf(cond Expr, then, els *Block, span Span) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Else: els, base: base{span}}
}
func NewReturn(v Expr, span Span) *ReturnStmt { return &ReturnStmt{Value: v, base: base{span}} }
func NewExprStmt(x Expr, span Span) *ExprStmt { return &ExprStmt{X: x, base: base{span}} }
