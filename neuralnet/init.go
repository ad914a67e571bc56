package neuralnet

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Initializer produces the starting value of every weight and bias.
type Initializer interface {
	Gen() float64
}

type uniform struct {
	dist distuv.Uniform
}

// NewUniform returns an Initializer drawing uniformly from [lower, upper),
// deterministic for a given seed.
func NewUniform(lower, upper float64, seed uint64) Initializer {
	if lower > upper {
		lower, upper = upper, lower
	}
	return &uniform{dist: distuv.Uniform{Min: lower, Max: upper, Src: rand.NewSource(seed)}}
}

func (u *uniform) Gen() float64 {
	return u.dist.Rand()
}

// constant is handy for fixtures where every parameter starts equal.
type constant float64

// Constant returns an Initializer that always yields v.
func Constant(v float64) Initializer {
	return constant(v)
}

func (c constant) Gen() float64 {
	return float64(c)
}
