package vm

// RngLike is the VM's injectable random-number capability (spec §4.8 "a
// random-number generator state"), grounded on the teacher's pattern of
// injecting stdin/stdout/stderr as capabilities (breadchris-yaegi's
// interp.Options.Stdin/Stdout/Stderr) so tests can substitute a seeded or
// fully deterministic generator.
type RngLike interface {
	// Float64 returns a pseudo-random value in [0, 1).
	Float64() float64
	// Int63n returns a pseudo-random value in [0, n).
	Int63n(n int64) int64
	// Normal returns a standard-normal (mean 0, stddev 1) pseudo-random
	// value, backing RandnF64/RandnArray (spec §4.8 "RNG family").
	Normal() float64
	// Seed reseeds the generator deterministically.
	Seed(seed int64)
}

type mathRand struct {
	src randSource
}

// randSource is satisfied by *math/rand.Rand; kept as an interface so
// rng.go itself does not import math/rand.
type randSource interface {
	Float64() float64
	Int63n(n int64) int64
	NormFloat64() float64
	Seed(seed int64)
}

func (m *mathRand) Float64() float64     { return m.src.Float64() }
func (m *mathRand) Int63n(n int64) int64 { return m.src.Int63n(n) }
func (m *mathRand) Normal() float64      { return m.src.NormFloat64() }
func (m *mathRand) Seed(seed int64)      { m.src.Seed(seed) }

// NewDefaultRng wraps src (for example a *math/rand.Rand) as an RngLike.
func NewDefaultRng(src randSource) RngLike {
	return &mathRand{src: src}
}
