package neuralnet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// NeuralNet is a fully connected feed-forward network. It is not safe for
// concurrent use; the owning Trainer is its only writer.
type NeuralNet struct {
	layers    []*Layer
	inputSize int
	average   bool
}

// New builds a network taking inputSize values, with one layer per entry of
// layerSizes; the last entry is the number of outputs. Every weight and bias
// is drawn from init. averageGradient applies to every neuron and is the only
// place the averaging policy is set.
func New(inputSize int, layerSizes []int, act Activation, averageGradient bool, init Initializer) (*NeuralNet, error) {
	if inputSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidParams, "input size %d", inputSize)
	}
	if len(layerSizes) == 0 {
		return nil, errors.Wrap(ErrInvalidParams, "no layers")
	}
	nn := &NeuralNet{layers: make([]*Layer, len(layerSizes)), inputSize: inputSize, average: averageGradient}
	prev := inputSize
	for i, size := range layerSizes {
		if size <= 0 {
			return nil, errors.Wrapf(ErrInvalidParams, "layer %d size %d", i, size)
		}
		nn.layers[i] = newLayer(prev, size, act, averageGradient, init)
		prev = size
	}
	return nn, nil
}

// NNSeed derives a reproducible seed from the network shape.
func NNSeed(inputSize int, layerSizes []int) uint64 {
	seed := uint64(inputSize)
	for _, s := range layerSizes {
		seed = seed*31 + uint64(s)
	}
	return seed
}

func (nn *NeuralNet) Layers() []*Layer {
	return nn.layers
}

func (nn *NeuralNet) InputSize() int {
	return nn.inputSize
}

// AverageGradient reports whether applied gradients are divided by the number
// of examples in the round.
func (nn *NeuralNet) AverageGradient() bool {
	return nn.average
}

func (nn *NeuralNet) OutputSize() int {
	return nn.layers[len(nn.layers)-1].Size()
}

// Forward feeds input through every layer in order and returns the output of
// the last one. With forTraining set each neuron caches what Backward needs.
func (nn *NeuralNet) Forward(input []float64, forTraining bool) ([]float64, error) {
	if len(input) != nn.inputSize {
		return nil, shapeError("network input", len(input), nn.inputSize)
	}
	curr := input
	for i, layer := range nn.layers {
		out, err := layer.forward(curr, forTraining)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		curr = out
	}
	return curr, nil
}

// Backward propagates one example's output errors from the last layer to the
// first, folding them into every neuron's accumulators. It must follow a
// Forward with forTraining set on the same example.
func (nn *NeuralNet) Backward(outputErrors []float64, learningRate float64) error {
	if len(outputErrors) != nn.OutputSize() {
		return shapeError("output errors", len(outputErrors), nn.OutputSize())
	}
	errs := outputErrors
	for i := len(nn.layers) - 1; i >= 0; i-- {
		// the raw input has no neurons to receive an error
		errs = nn.layers[i].backward(errs, learningRate, i > 0)
	}
	return nil
}

// ApplyGradients commits the accumulated gradients of every neuron.
func (nn *NeuralNet) ApplyGradients() {
	for _, layer := range nn.layers {
		layer.applyGradients()
	}
}

// PrepareBackprop discards any accumulated, uncommitted gradients.
func (nn *NeuralNet) PrepareBackprop() {
	for _, layer := range nn.layers {
		layer.prepareBackprop()
	}
}

// Predict returns the index of the largest output.
func (nn *NeuralNet) Predict(input []float64) (int, error) {
	out, err := nn.Forward(input, false)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(out), nil
}

func (nn *NeuralNet) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Input: %d\n", nn.inputSize))
	for i, layer := range nn.layers {
		sb.WriteString(fmt.Sprintf("Layer %d (%d -> %d):\n%s\n", i, layer.Inputs(), layer.Size(), layer.String()))
	}
	return sb.String()
}
