// Command gon trains a fully connected network on MNIST digit files.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/AnthonyKot/gon/neuralnet"
)

type options struct {
	trainImages, trainLabels string
	testImages, testLabels   string
	limit                    int

	hidden     string
	activation string
	loss       string
	average    bool
	seed       uint64

	params    neuralnet.Params
	metrics   string
	patience  int
	gradcheck bool
	verbose   bool

	dump int
	out  string
}

func parseFlags() *options {
	o := &options{params: neuralnet.NewParams(0.01)}
	p := &o.params

	flag.StringVar(&o.trainImages, "train-images", "data/train-images-idx3-ubyte", "training images (IDX)")
	flag.StringVar(&o.trainLabels, "train-labels", "data/train-labels-idx1-ubyte", "training labels (IDX)")
	flag.StringVar(&o.testImages, "test-images", "", "test images (IDX), optional")
	flag.StringVar(&o.testLabels, "test-labels", "", "test labels (IDX), optional")
	flag.IntVar(&o.limit, "limit", 0, "use only the first N training examples")

	flag.StringVar(&o.hidden, "hidden", "64", "comma separated hidden layer sizes")
	flag.StringVar(&o.activation, "activation", "sigmoid", "relu, sigmoid, tanh or linear")
	flag.StringVar(&o.loss, "loss", "mse", "mse or crossentropy")
	flag.BoolVar(&o.average, "average", false, "divide accumulated gradients by the batch size")
	flag.Uint64Var(&o.seed, "seed", 0, "weight init seed (0 derives one from the shape)")

	flag.Float64Var(&p.LearningRate, "lr", p.LearningRate, "learning rate")
	flag.Float64Var(&p.InitialLr, "warmup-lr", 0, "learning rate at the start of the warm-up")
	flag.IntVar(&p.WarmupSteps, "warmup", 0, "warm-up rounds")
	flag.StringVar(&p.LrSchedule, "schedule", neuralnet.ScheduleNone, "none, cosine or exponential")
	flag.IntVar(&p.DecaySteps, "decay-steps", 0, "decay length (cosine) or period (exponential)")
	flag.Float64Var(&p.Decay, "decay", 1, "exponential decay factor")
	flag.IntVar(&p.BatchSize, "batch", 1, "examples per gradient application (1 = online)")
	flag.IntVar(&p.Epochs, "epochs", 5, "epochs")
	flag.BoolVar(&p.Shuffle, "shuffle", true, "shuffle every epoch")

	flag.StringVar(&o.metrics, "metrics", "", "write per-epoch metrics to this CSV file")
	flag.IntVar(&o.patience, "patience", 0, "stop after N epochs without improvement (0 = off)")
	flag.BoolVar(&o.gradcheck, "gradcheck", false, "check backprop against finite differences before training")
	flag.BoolVar(&o.verbose, "v", false, "verbose output")

	flag.IntVar(&o.dump, "dump", -1, "save training image N as PNG and exit")
	flag.StringVar(&o.out, "out", "digit.png", "PNG path for -dump")
	flag.Parse()

	if p.WarmupSteps == 0 {
		p.InitialLr = p.LearningRate
	}
	return o
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrapf(err, "layer size %q", f)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func parseLoss(name string) (neuralnet.Loss, error) {
	switch strings.ToLower(name) {
	case "mse":
		return neuralnet.MSE{}, nil
	case "crossentropy", "ce":
		return neuralnet.CrossEntropy{}, nil
	}
	return nil, errors.Errorf("unknown loss %q", name)
}

func run(ctx context.Context, o *options) error {
	train, err := loadMNIST(o.trainImages, o.trainLabels)
	if err != nil {
		return errors.Wrap(err, "loading training set")
	}
	train = train.limit(o.limit)
	log.Printf("training set: %s", describe(train))

	if o.dump >= 0 {
		if err := saveImg(train, o.dump, o.out); err != nil {
			return err
		}
		_, label := train.Sample(o.dump)
		log.Printf("image %d (label %d) saved as %s", o.dump, label, o.out)
		return nil
	}

	act, err := neuralnet.ParseActivation(o.activation)
	if err != nil {
		return err
	}
	loss, err := parseLoss(o.loss)
	if err != nil {
		return err
	}
	sizes, err := parseSizes(o.hidden)
	if err != nil {
		return err
	}
	// ten digit classes
	sizes = append(sizes, 10)

	inputSize := train.rows * train.cols
	seed := o.seed
	if seed == 0 {
		seed = neuralnet.NNSeed(inputSize, sizes)
	}
	o.params.Seed = seed
	nn, err := neuralnet.New(inputSize, sizes, act, o.average, neuralnet.NewUniform(-1, 1, seed))
	if err != nil {
		return err
	}
	if o.verbose {
		log.Printf("network %d -> %v, %s, average=%v, seed=%d", inputSize, sizes, act, nn.AverageGradient(), seed)
	}

	if o.gradcheck {
		input, label := train.Sample(0)
		target := make([]float64, nn.OutputSize())
		target[label] = 1
		worst, err := neuralnet.GradientCheck(nn, input, target, 2)
		if err != nil {
			return errors.Wrap(err, "gradient check")
		}
		log.Printf("gradient check: max relative difference %.3g", worst)
	}

	trainer, err := neuralnet.NewTrainer(nn, o.params, loss)
	if err != nil {
		return err
	}
	trainer.AddCallback(neuralnet.Logger{Interval: 1})
	var metrics *neuralnet.CSVLogger
	if o.metrics != "" {
		metrics = neuralnet.NewCSVLogger(o.metrics, false)
		trainer.AddCallback(metrics)
	}
	if o.patience > 0 {
		trainer.AddCallback(neuralnet.NewEarlyStopping(o.patience, 1e-4))
	}

	history, err := trainer.Train(ctx, train)
	if err != nil {
		if errors.Cause(err) != context.Canceled {
			return err
		}
		log.Printf("interrupted after %d epochs (%d rounds)", len(history), trainer.Steps())
	}
	if metrics != nil && metrics.Err() != nil {
		return metrics.Err()
	}

	if o.testImages != "" {
		test, err := loadMNIST(o.testImages, o.testLabels)
		if err != nil {
			return errors.Wrap(err, "loading test set")
		}
		l, acc, err := trainer.Evaluate(test)
		if err != nil {
			return err
		}
		log.Printf("test: loss = %.6f accuracy = %.4f", l, acc)
	}
	if o.verbose {
		log.Printf("final network:\n%s", nn.Layers()[len(nn.Layers())-1])
	}
	return nil
}

func main() {
	o := parseFlags()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatal(err)
	}
}
