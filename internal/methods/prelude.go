package methods

import "github.com/arbor-lang/arbor/internal/lattice"

// RegisterBuiltins registers the method-table-visible shape of the
// embedded standard-library prelude's core arithmetic/collection
// functions. The prelude's source text itself is out of scope (spec §1);
// this only seeds the signatures the abstract interpreter and bytecode
// compiler need to resolve calls to them without special-casing every
// builtin name at every call site, grounded on funvibe-funxy's
// analyzer.RegisterBuiltins (internal/analyzer/analyzer.go).
func RegisterBuiltins(t *Table) {
	any := lattice.Top()
	i64 := lattice.Concrete(lattice.CInt64)
	f64 := lattice.Concrete(lattice.CFloat64)
	boolT := lattice.Concrete(lattice.CBool)
	str := lattice.Concrete(lattice.CString)

	def := func(name string, ret *lattice.LatticeType, params ...*lattice.LatticeType) {
		t.Define(&MethodSig{Name: name, Params: params, Return: ret})
	}

	// length / container introspection.
	def("length", i64, any)
	def("isempty", boolT, any)

	// numeric conversions used pervasively by the promotion-aware
	// arithmetic fast paths in internal/vm.
	def("Int64", i64, any)
	def("Float64", f64, any)
	def("String", str, any)
	def("Bool", boolT, any)

	// set algebra, spec §4.8 "Set operations", with mutating `!` variants
	// that return the same (mutated) first argument.
	for _, name := range []string{"union", "intersect", "setdiff", "symdiff"} {
		def(name, any, any, any)
		def(name+"!", any, any, any)
	}
	for _, name := range []string{"issubset", "isdisjoint", "issetequal"} {
		def(name, boolT, any, any)
	}

	// string conversion/concatenation, spec §4.8 "Strings".
	def("tostring", str, any)
	def("tostr", str, any)

	// reductions over ranges/arrays.
	def("sum", any, any)
	def("maximum", any, any)
	def("minimum", any, any)
}
