package neuralnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fixtureNet is a 2-2-2 ReLU network with hand picked parameters.
func fixtureNet(t *testing.T) *NeuralNet {
	t.Helper()
	nn, err := New(2, []int{2, 2}, ReLU, false, Constant(0))
	require.NoError(t, err)
	params := [][]struct {
		w []float64
		b float64
	}{
		{{[]float64{0.5, -0.2}, 0.1}, {[]float64{0.3, 0.8}, -0.4}},
		{{[]float64{1, -1}, 0}, {[]float64{0.5, 0.5}, 0.1}},
	}
	for i, layer := range nn.Layers() {
		for j, neuron := range layer.Neurons() {
			require.NoError(t, neuron.SetParams(params[i][j].w, params[i][j].b))
		}
	}
	return nn
}

func TestNewShape(t *testing.T) {
	nn, err := New(5, []int{4, 3, 2}, TanH, true, NewUniform(-1, 1, 7))
	require.NoError(t, err)
	assert.Equal(t, 5, nn.InputSize())
	assert.Equal(t, 2, nn.OutputSize())

	prev := 5
	for _, layer := range nn.Layers() {
		assert.Equal(t, prev, layer.Inputs())
		for _, neuron := range layer.Neurons() {
			assert.Len(t, neuron.Weights(), prev)
			for _, w := range neuron.Weights() {
				assert.True(t, w >= -1 && w <= 1, "weight %v outside [-1, 1]", w)
			}
		}
		prev = layer.Size()
	}
}

func TestNewInvalid(t *testing.T) {
	for _, tt := range []struct {
		description string
		input       int
		sizes       []int
	}{
		{"no input", 0, []int{2}},
		{"no layers", 3, nil},
		{"empty layer", 3, []int{2, 0, 1}},
	} {
		t.Run(tt.description, func(t *testing.T) {
			_, err := New(tt.input, tt.sizes, ReLU, false, Constant(0))
			assert.Error(t, err)
		})
	}
}

func TestNewDeterministic(t *testing.T) {
	a, err := New(3, []int{4, 2}, Sigmoid, false, NewUniform(-1, 1, 42))
	require.NoError(t, err)
	b, err := New(3, []int{4, 2}, Sigmoid, false, NewUniform(-1, 1, 42))
	require.NoError(t, err)
	for i := range a.Layers() {
		assert.True(t, mat.Equal(a.Layers()[i].Weights(), b.Layers()[i].Weights()))
		assert.True(t, mat.Equal(a.Layers()[i].Biases(), b.Layers()[i].Biases()))
	}
}

func TestForwardFixture(t *testing.T) {
	nn := fixtureNet(t)
	// hidden: relu(0.1+0.5-0.1) = 0.5, relu(-0.4+0.3+0.4) = 0.3
	out, err := nn.Forward([]float64{1, 0.5}, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.2, 0.5}, out, 1e-12)

	class, err := nn.Predict([]float64{1, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, class)
}

func TestForwardShapeErrors(t *testing.T) {
	nn, err := New(3, []int{4, 2}, TanH, false, NewUniform(-1, 1, 1))
	require.NoError(t, err)

	_, err = nn.Forward([]float64{1, 2, 3}, true)
	require.NoError(t, err)

	for _, in := range [][]float64{{1, 2}, {1, 2, 3, 4}, {}} {
		_, err := nn.Forward(in, false)
		require.Error(t, err)
		assert.True(t, IsShapeError(err), "got %v", err)
	}

	// a neuron resized behind the network's back fails at its own boundary
	inner := NewNeuron(5, TanH, false, Constant(0))
	nn.Layers()[1].neurons[0] = inner
	_, err = nn.Forward([]float64{1, 2, 3}, false)
	require.Error(t, err)
	assert.True(t, IsShapeError(err))
	assert.Contains(t, err.Error(), "layer 1")
}

func TestBackwardShapeError(t *testing.T) {
	nn := fixtureNet(t)
	_, err := nn.Forward([]float64{1, 0.5}, true)
	require.NoError(t, err)
	err = nn.Backward([]float64{1, 2, 3}, 0.1)
	assert.True(t, IsShapeError(err))
}

func TestBackwardFanIn(t *testing.T) {
	nn, err := New(3, []int{4, 2}, TanH, false, NewUniform(-1, 1, 3))
	require.NoError(t, err)
	input := []float64{0.2, -0.7, 0.9}
	errs := []float64{0.3, -0.6}

	hidden, err := nn.Layers()[0].forward(input, false)
	require.NoError(t, err)
	_, err = nn.Forward(input, true)
	require.NoError(t, err)

	out := nn.Layers()[1]
	var z mat.VecDense
	z.MulVec(out.Weights(), mat.NewVecDense(len(hidden), hidden))
	z.AddVec(&z, out.Biases())
	deltas := mat.NewVecDense(len(errs), nil)
	for j := range errs {
		deltas.SetVec(j, 2*errs[j]*TanH.Derivative(z.AtVec(j)))
	}
	var want mat.VecDense
	want.MulVec(out.Weights().T(), deltas)

	got := out.backward(errs, 0.1, true)
	assert.InDeltaSlice(t, want.RawVector().Data, got, 1e-12)
}

func TestBackwardApplyGradients(t *testing.T) {
	nn := fixtureNet(t)
	before := mat.DenseCopyOf(nn.Layers()[1].Weights())

	_, err := nn.Forward([]float64{1, 0.5}, true)
	require.NoError(t, err)
	require.NoError(t, nn.Backward([]float64{0.8, -0.5}, 0.1))
	for _, layer := range nn.Layers() {
		for _, neuron := range layer.Neurons() {
			assert.Equal(t, 1, neuron.Evals())
		}
	}
	assert.True(t, mat.Equal(before, nn.Layers()[1].Weights()), "backward must not touch weights")

	nn.ApplyGradients()
	// output neuron 0 saw hidden [0.5, 0.3]: delta = 2*0.8*1
	w := nn.Layers()[1].Neurons()[0].Weights()
	assert.InDeltaSlice(t, []float64{1 + 1.6*0.5*0.1, -1 + 1.6*0.3*0.1}, w, 1e-12)
	for _, layer := range nn.Layers() {
		for _, neuron := range layer.Neurons() {
			assert.Equal(t, 0, neuron.Evals())
		}
	}
}

func TestString(t *testing.T) {
	s := fixtureNet(t).String()
	assert.Contains(t, s, "Layer 0 (2 -> 2)")
	assert.Contains(t, s, "Layer 1 (2 -> 2)")
}

func TestNNSeed(t *testing.T) {
	assert.Equal(t, NNSeed(784, []int{64, 10}), NNSeed(784, []int{64, 10}))
	assert.NotEqual(t, NNSeed(784, []int{64, 10}), NNSeed(784, []int{10, 64}))
}
