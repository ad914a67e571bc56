package neuralnet

import "math"

// Loss scores a network output against a target vector and produces the
// error signal handed to NeuralNet.Backward.
type Loss interface {
	// Compute returns the loss of output against target.
	Compute(output []float64, target []float64) float64
	// Error returns, per output neuron, the direction the output should move:
	// target minus prediction. The neuron's delta adds the factor 2 and the
	// activation derivative.
	Error(output []float64, target []float64) []float64
}

// MSE is the summed squared error. With the neuron's factor 2, Error gives
// exactly the negative gradient of Compute.
type MSE struct{}

func (MSE) Compute(output []float64, target []float64) float64 {
	var loss float64
	for i := range output {
		d := target[i] - output[i]
		loss += d * d
	}
	return loss
}

func (MSE) Error(output []float64, target []float64) []float64 {
	e := make([]float64, len(output))
	for i := range output {
		e[i] = target[i] - output[i]
	}
	return e
}

// CrossEntropy treats the outputs as logits: it applies Softmax and scores
// the result with categorical cross-entropy.
type CrossEntropy struct{}

func (CrossEntropy) Compute(output []float64, target []float64) float64 {
	props := Softmax(output)
	var loss float64
	for i, p := range props {
		if p < 1e-15 {
			p = 1e-15
		}
		loss -= target[i] * math.Log(p)
	}
	return loss
}

func (CrossEntropy) Error(output []float64, target []float64) []float64 {
	props := Softmax(output)
	for i := range props {
		props[i] = target[i] - props[i]
	}
	return props
}

// Softmax returns exp(x_i)/sum(exp(x)), shifted by the max for stability.
func Softmax(output []float64) []float64 {
	maxVal := math.Inf(-1)
	for _, v := range output {
		maxVal = math.Max(maxVal, v)
	}
	exps := make([]float64, len(output))
	var sum float64
	for i, v := range output {
		exps[i] = math.Exp(v - maxVal)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}
