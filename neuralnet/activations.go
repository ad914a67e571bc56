package neuralnet

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Activation is the nonlinearity applied to a neuron's pre-activation.
// It carries no state; every neuron of a network shares the same value.
type Activation uint8

const (
	ReLU Activation = iota
	Sigmoid
	TanH
	Linear
)

// Beyond this magnitude math.Exp overflows a float64.
const expOverflow = 709

func (a Activation) Value(x float64) float64 {
	switch a {
	case ReLU:
		return math.Max(x, 0)
	case Sigmoid:
		return 1 / (1 + math.Exp(-x))
	case TanH:
		return math.Tanh(x)
	case Linear:
		return x
	}
	panic("neuralnet: unknown activation " + a.String())
}

// Derivative is evaluated at the pre-activation x, not at Value(x).
func (a Activation) Derivative(x float64) float64 {
	switch a {
	case ReLU:
		// x == 0 counts as inactive
		if x > 0 {
			return 1
		}
		return 0
	case Sigmoid:
		if x < -expOverflow || x > expOverflow {
			return 0
		}
		e := math.Exp(-x)
		return e / ((1 + e) * (1 + e))
	case TanH:
		t := math.Tanh(x)
		return 1 - t*t
	case Linear:
		return 1
	}
	panic("neuralnet: unknown activation " + a.String())
}

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	case TanH:
		return "tanh"
	case Linear:
		return "linear"
	}
	return "activation(" + strconv.Itoa(int(a)) + ")"
}

// ParseActivation maps a name as printed by String back to its Activation.
func ParseActivation(name string) (Activation, error) {
	for _, a := range []Activation{ReLU, Sigmoid, TanH, Linear} {
		if strings.EqualFold(name, a.String()) {
			return a, nil
		}
	}
	return 0, errors.Errorf("unknown activation %q", name)
}
