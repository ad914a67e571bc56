package neuralnet

import (
	"math"

	"github.com/pkg/errors"
)

// Learning-rate schedules applied after the warm-up.
const (
	ScheduleNone        = "none"
	ScheduleCosine      = "cosine"
	ScheduleExponential = "exponential"
)

// Params configures a training run.
type Params struct {
	// LearningRate is the rate reached at the end of the warm-up.
	LearningRate float64
	// InitialLr is the rate the linear warm-up starts from.
	InitialLr   float64
	WarmupSteps int
	LrSchedule  string
	// DecaySteps is the length of the cosine decay (0: the rest of training),
	// or the period of one Decay factor for the exponential schedule.
	DecaySteps int
	Decay      float64

	// Whether a round's gradients are averaged is fixed by the network, see New.
	BatchSize int
	Epochs    int
	Shuffle   bool
	Seed      uint64
}

// NewParams returns online SGD settings with a constant learning rate.
func NewParams(learningRate float64) Params {
	return Params{
		LearningRate: learningRate,
		InitialLr:    learningRate,
		LrSchedule:   ScheduleNone,
		Decay:        1,
		BatchSize:    1,
		Epochs:       1,
		Shuffle:      true,
	}
}

func (p *Params) Validate() error {
	switch {
	case p.LearningRate <= 0:
		return errors.Wrapf(ErrInvalidParams, "learning rate %v", p.LearningRate)
	case p.BatchSize <= 0:
		return errors.Wrapf(ErrInvalidParams, "batch size %d", p.BatchSize)
	case p.Epochs <= 0:
		return errors.Wrapf(ErrInvalidParams, "epochs %d", p.Epochs)
	case p.WarmupSteps < 0 || p.DecaySteps < 0:
		return errors.Wrapf(ErrInvalidParams, "warmup %d, decay steps %d", p.WarmupSteps, p.DecaySteps)
	}
	switch p.LrSchedule {
	case "", ScheduleNone, ScheduleCosine:
	case ScheduleExponential:
		if p.Decay <= 0 || p.Decay > 1 {
			return errors.Wrapf(ErrInvalidParams, "decay %v", p.Decay)
		}
	default:
		return errors.Wrapf(ErrInvalidParams, "schedule %q", p.LrSchedule)
	}
	return nil
}

// calculateCurrentLr returns the learning rate for the given round, counting
// rounds (gradient applications) from 0 over totalTrainingSteps.
func calculateCurrentLr(p *Params, currentGlobalStep, totalTrainingSteps int) float64 {
	if currentGlobalStep < p.WarmupSteps {
		frac := float64(currentGlobalStep) / float64(p.WarmupSteps)
		return p.InitialLr + (p.LearningRate-p.InitialLr)*frac
	}
	stepAfterWarmup := currentGlobalStep - p.WarmupSteps

	switch p.LrSchedule {
	case ScheduleCosine:
		decaySteps := p.DecaySteps
		if decaySteps <= 0 {
			decaySteps = totalTrainingSteps - p.WarmupSteps
		}
		if decaySteps <= 0 {
			return p.LearningRate
		}
		cosineFrac := math.Min(float64(stepAfterWarmup)/float64(decaySteps), 1)
		return p.LearningRate * 0.5 * (1 + math.Cos(math.Pi*cosineFrac))
	case ScheduleExponential:
		period := p.DecaySteps
		if period <= 0 {
			period = 1
		}
		return p.LearningRate * math.Pow(p.Decay, float64(stepAfterWarmup)/float64(period))
	}
	return p.LearningRate
}
