package vm

import (
	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/errs"
)

// matMulBuiltin implements the matrix-multiply dispatch named in spec §4.8
// ("matrix multiply dispatch"): shape-checked 2-D array multiplication,
// dispatching on each operand's Shape rather than a separate Matrix kind,
// consistent with ArrayData's shape-vector representation.
func matMulBuiltin(_ *VM, args []Value) (Value, error) {
	if len(args) != 2 || args[0].Kind != KindArray || args[1].Kind != KindArray {
		return Value{}, errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "matmul requires two array operands")
	}
	a, b := args[0].Array, args[1].Array
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return Value{}, errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "matmul requires 2-D array operands")
	}
	ar, ac := a.Shape[0], a.Shape[1]
	br, bc := b.Shape[0], b.Shape[1]
	if ac != br {
		return Value{}, errs.Vm(errs.ReasonDomain, diagnostics.Span{}, "matmul inner dimensions must match")
	}
	hasComplex := false
	for _, e := range a.Elems {
		if e.Kind == KindComplex {
			hasComplex = true
			break
		}
	}
	for _, e := range b.Elems {
		if e.Kind == KindComplex {
			hasComplex = true
			break
		}
	}

	out := make([]Value, ar*bc)
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			if hasComplex {
				var sumRe, sumIm float64
				for k := 0; k < ac; k++ {
					ar64, ai64 := asComplex(a.Elems[i*ac+k])
					br64, bi64 := asComplex(b.Elems[k*bc+j])
					sumRe += ar64*br64 - ai64*bi64
					sumIm += ar64*bi64 + ai64*br64
				}
				out[i*bc+j] = Complex(sumRe, sumIm)
				continue
			}
			var sum float64
			isInt := true
			for k := 0; k < ac; k++ {
				av := a.Elems[i*ac+k]
				bv := b.Elems[k*bc+j]
				sum += asFloat(av) * asFloat(bv)
				if av.Kind != KindI64 || bv.Kind != KindI64 {
					isInt = false
				}
			}
			if isInt {
				out[i*bc+j] = I64(int64(sum))
			} else {
				out[i*bc+j] = F64(sum)
			}
		}
	}
	return Array(out, []int{ar, bc}), nil
}
