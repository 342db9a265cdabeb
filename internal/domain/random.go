package domain

import "math/rand/v2"

// Random yields uniform values in [0, 1). Injected so tests can script rolls.
type Random interface {
	Float64() float64
}

// SystemRandom draws from math/rand/v2's global source, which is safe for
// concurrent use.
type SystemRandom struct{}

func (SystemRandom) Float64() float64 { return rand.Float64() }
