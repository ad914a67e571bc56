package neuralnet

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// Source serves labeled examples, already normalized and sized to the
// network input.
type Source interface {
	Len() int
	Sample(i int) (input []float64, label int)
}

// EpochStats are the metrics of one pass over the training set.
type EpochStats struct {
	Epoch        int
	Loss         float64 // mean per example
	Accuracy     float64
	LearningRate float64 // rate of the last round
}

// Trainer drives forward and backward passes over a Source and decides when
// accumulated gradients are applied.
type Trainer struct {
	nn        *NeuralNet
	params    Params
	loss      Loss
	callbacks []Callback
	rng       *rand.Rand

	step int
}

// NewTrainer validates params. A nil loss means MSE.
func NewTrainer(nn *NeuralNet, params Params, loss Loss) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if loss == nil {
		loss = MSE{}
	}
	return &Trainer{
		nn:     nn,
		params: params,
		loss:   loss,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}, nil
}

func (t *Trainer) AddCallback(cbs ...Callback) {
	t.callbacks = append(t.callbacks, cbs...)
}

// Steps is the number of gradient applications so far.
func (t *Trainer) Steps() int {
	return t.step
}

// Train runs up to Params.Epochs epochs, applying gradients every BatchSize
// examples and once more for any remainder at the end of an epoch. ctx is
// checked after every application; on cancellation the stats of the finished
// epochs are returned with the context error.
func (t *Trainer) Train(ctx context.Context, src Source) ([]EpochStats, error) {
	n := src.Len()
	if n == 0 {
		return nil, errors.New("empty training set")
	}
	for _, cb := range t.callbacks {
		if err := cb.OnTrainBegin(t.nn); err != nil {
			return nil, err
		}
	}
	defer func() {
		for _, cb := range t.callbacks {
			cb.OnTrainEnd(t.nn)
		}
	}()

	roundsPerEpoch := (n + t.params.BatchSize - 1) / t.params.BatchSize
	totalSteps := t.step + roundsPerEpoch*t.params.Epochs

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	// nothing left over from outside the trainer
	t.nn.PrepareBackprop()

	var history []EpochStats
	for e := 0; e < t.params.Epochs; e++ {
		if t.params.Shuffle {
			t.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var lossSum float64
		var correct, pending int
		lr := calculateCurrentLr(&t.params, t.step, totalSteps)
		for _, idx := range order {
			input, label := src.Sample(idx)
			l, ok, err := t.TrainExample(input, label, lr)
			if err != nil {
				t.nn.PrepareBackprop()
				return history, errors.Wrapf(err, "epoch %d example %d", e, idx)
			}
			lossSum += l
			if ok {
				correct++
			}

			pending++
			if pending == t.params.BatchSize {
				t.nn.ApplyGradients()
				t.step++
				pending = 0
				if err := ctx.Err(); err != nil {
					return history, errors.Wrapf(err, "training stopped in epoch %d", e)
				}
				lr = calculateCurrentLr(&t.params, t.step, totalSteps)
			}
		}
		if pending > 0 {
			t.nn.ApplyGradients()
			t.step++
		}

		stats := EpochStats{
			Epoch:        e,
			Loss:         lossSum / float64(n),
			Accuracy:     float64(correct) / float64(n),
			LearningRate: lr,
		}
		history = append(history, stats)

		keepGoing := true
		for _, cb := range t.callbacks {
			if !cb.OnEpochEnd(stats, t.nn) {
				keepGoing = false
			}
		}
		if !keepGoing {
			break
		}
		if err := ctx.Err(); err != nil {
			return history, errors.Wrapf(err, "training stopped after epoch %d", e)
		}
	}
	return history, nil
}

// TrainExample runs one training forward and backward pass, leaving the
// gradients accumulated but not applied. It reports the example's loss and
// whether the prediction before the update was correct.
func (t *Trainer) TrainExample(input []float64, label int, learningRate float64) (float64, bool, error) {
	out, err := t.nn.Forward(input, true)
	if err != nil {
		return 0, false, err
	}
	target, err := oneHot(label, len(out))
	if err != nil {
		return 0, false, err
	}
	if err := t.nn.Backward(t.loss.Error(out, target), learningRate); err != nil {
		return 0, false, err
	}
	return t.loss.Compute(out, target), floats.MaxIdx(out) == label, nil
}

// Evaluate returns the mean loss and the accuracy over src without touching
// the network's parameters or accumulators.
func (t *Trainer) Evaluate(src Source) (float64, float64, error) {
	n := src.Len()
	if n == 0 {
		return 0, 0, errors.New("empty evaluation set")
	}
	var lossSum float64
	var correct int
	for i := 0; i < n; i++ {
		input, label := src.Sample(i)
		out, err := t.nn.Forward(input, false)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "example %d", i)
		}
		target, err := oneHot(label, len(out))
		if err != nil {
			return 0, 0, errors.Wrapf(err, "example %d", i)
		}
		lossSum += t.loss.Compute(out, target)
		if floats.MaxIdx(out) == label {
			correct++
		}
	}
	return lossSum / float64(n), float64(correct) / float64(n), nil
}

func oneHot(label, classes int) ([]float64, error) {
	if label < 0 || label >= classes {
		return nil, errors.Errorf("label %d outside [0, %d)", label, classes)
	}
	target := make([]float64, classes)
	target[label] = 1
	return target, nil
}
