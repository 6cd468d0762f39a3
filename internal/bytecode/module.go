package bytecode

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/errs"
	"golang.org/x/mod/semver"
)

// Handler describes one active try block's catch/finally targets, indexed
// by the PushHandler that installed it (spec §4.8 "handler stack").
type Handler struct {
	CatchIP   uint32 // NoTarget if the try has no catch clause
	FinallyIP uint32 // NoTarget if the try has no finally clause
}

// FuncProto is one compiled function: its name, parameter count, local
// slot count, and instruction slice.
type FuncProto struct {
	Name      string
	NumParams int
	NumLocals int
	Code      []Instr
}

// Module is a fully compiled program: a function table plus the shared
// constant pool referenced by PushConst/LoadGlobal/StoreGlobal (spec §3
// "Bytecode module").
type Module struct {
	Version   string // semver, bumped whenever the Instr/opcode layout changes
	Functions []FuncProto
	Constants []any
	FuncIndex map[string]int
}

// CurrentVersion is stamped onto every Module this compiler produces.
// Deserialize rejects serialized blobs whose Version has a different major
// version than this one.
const CurrentVersion = "v1.0.0"

// NewModule returns an empty module ready for function/constant appends.
func NewModule() *Module {
	return &Module{Version: CurrentVersion, FuncIndex: make(map[string]int)}
}

// AddFunction appends a compiled function and indexes it by name.
func (m *Module) AddFunction(fn FuncProto) int {
	idx := len(m.Functions)
	m.Functions = append(m.Functions, fn)
	m.FuncIndex[fn.Name] = idx
	return idx
}

// AddConstant interns v into the constant pool, returning its index.
// Constants are not deduplicated by value (spec places no such requirement,
// and literal identity rarely matters for an immutable tagged-union VM).
func (m *Module) AddConstant(v any) uint32 {
	m.Constants = append(m.Constants, v)
	return uint32(len(m.Constants) - 1)
}

// init registers every concrete type the compiler ever boxes into a
// Module's Constants pool (literal values and field/global names), since
// gob requires concrete types traveling through an interface{} slot to be
// registered even when they're builtin types.
func init() {
	gob.Register([]any{})
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
	gob.Register(rune(0))
}

// Serialize encodes m for on-disk caching (spec §6 "Bytecode serialization").
func (m *Module) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, errs.Wrap(err, errs.VmError, diagnostics.Span{}, "serialize bytecode module")
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a module produced by Serialize, rejecting blobs whose
// version isn't compatible with CurrentVersion (same major version, per
// semver.Major) rather than risk decoding a stale opcode layout.
func Deserialize(data []byte) (*Module, error) {
	var m Module
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, errs.Wrap(err, errs.VmError, diagnostics.Span{}, "deserialize bytecode module")
	}
	if semver.Major(m.Version) != semver.Major(CurrentVersion) {
		return nil, errs.New(errs.VmError, diagnostics.Span{}, fmt.Sprintf(
			"cached bytecode version %s incompatible with compiler version %s", m.Version, CurrentVersion))
	}
	return &m, nil
}
