package neuralnet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMSE(t *testing.T) {
	output := []float64{0.2, 0.9}
	target := []float64{0, 1}
	assert.InDelta(t, 0.04+0.01, MSE{}.Compute(output, target), 1e-12)

	e := MSE{}.Error(output, target)
	assert.InDeltaSlice(t, []float64{-0.2, 0.1}, e, 1e-12)
}

func TestCrossEntropyCompute(t *testing.T) {
	// equal logits give equal probabilities
	output := []float64{3, 3}
	target := []float64{1, 0}
	assert.InDelta(t, -math.Log(0.5), CrossEntropy{}.Compute(output, target), 1e-9)
}

func TestCrossEntropyError(t *testing.T) {
	output := []float64{0, 0}
	target := []float64{1, 0}
	assert.InDeltaSlice(t, []float64{0.5, -0.5}, CrossEntropy{}.Error(output, target), 1e-12)
}

func TestSoftmax(t *testing.T) {
	props := Softmax([]float64{1000, 1000, 1000, 1000})
	for _, p := range props {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
	props = Softmax([]float64{1, 2, 3})
	var sum float64
	for _, p := range props {
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-12)
	assert.True(t, props[2] > props[1] && props[1] > props[0])
}
