package vm

import (
	"fmt"
	"hash/fnv"

	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/errs"
)

// fieldLayout maps (typeName, fieldName) to a struct's field offset (spec
// §7: "field-offset hashing convention"). Offsets are derived by hashing
// the field name and reducing modulo the struct's field count, with
// collisions rejected at registration time (spec's Open Question on
// field-offset collisions resolves to reject-at-emit, recorded in
// DESIGN.md) rather than silently reassigning.
var fieldLayout = map[string]map[string]int{}

// RegisterStruct computes and records the field-offset table for one
// struct type, in declaration order. No compiler or emitter stage in this
// module calls it; FieldOffset finds no offsets for a struct type that was
// never registered.
func RegisterStruct(typeName string, fields []string) error {
	offsets := make(map[string]int, len(fields))
	used := make(map[int]string, len(fields))
	for i, name := range fields {
		off := fieldHash(name, len(fields))
		if owner, taken := used[off]; taken {
			return errs.New(errs.VmError, diagnostics.Span{},
				fmt.Sprintf("field offset collision in struct %s: %q and %q both hash to offset %d", typeName, owner, name, off))
		}
		used[off] = name
		offsets[name] = off
	}
	fieldLayout[typeName] = offsets
	return nil
}

// FieldOffset looks up a previously registered field's offset.
func FieldOffset(typeName, field string) (int, bool) {
	offs, ok := fieldLayout[typeName]
	if !ok {
		return 0, false
	}
	off, ok := offs[field]
	return off, ok
}

func fieldHash(name string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	if n == 0 {
		return 0
	}
	return int(h.Sum32()) % n
}
