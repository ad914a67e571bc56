package neuralnet

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Callback receives the per-epoch metrics of a training run.
type Callback interface {
	OnTrainBegin(nn *NeuralNet) error
	// OnEpochEnd returns false to stop training after this epoch.
	OnEpochEnd(stats EpochStats, nn *NeuralNet) bool
	OnTrainEnd(nn *NeuralNet)
}

// BaseCallback provides no-op implementations for embedding.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(nn *NeuralNet) error                 { return nil }
func (BaseCallback) OnEpochEnd(stats EpochStats, nn *NeuralNet) bool { return true }
func (BaseCallback) OnTrainEnd(nn *NeuralNet)                         {}

// Logger prints every Interval-th epoch.
type Logger struct {
	BaseCallback
	Interval int
	Out      io.Writer
}

func (c Logger) OnEpochEnd(stats EpochStats, nn *NeuralNet) bool {
	if c.Interval > 0 && stats.Epoch%c.Interval == 0 {
		out := c.Out
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintf(out, "Epoch %d: loss = %.6f accuracy = %.4f lr = %.6g\n",
			stats.Epoch, stats.Loss, stats.Accuracy, stats.LearningRate)
	}
	return true
}

// EarlyStopping stops training once the loss has not improved by more than
// Threshold for Patience epochs in a row.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.MaxFloat64,
	}
}

func (c *EarlyStopping) OnEpochEnd(stats EpochStats, nn *NeuralNet) bool {
	if stats.Loss < c.bestLoss-c.Threshold {
		c.bestLoss = stats.Loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}
	if c.numBadEpochs >= c.Patience {
		c.Stopped = true
	}
	return !c.Stopped
}

// CSVLogger appends one row per epoch to a CSV file, for plotting. A failed
// write stops training; the error is kept in Err.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
	err    error
}

func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{Filename: filename, Append: append}
}

func (c *CSVLogger) OnTrainBegin(nn *NeuralNet) error {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}
	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		return errors.Wrap(err, "csv logger")
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.writer.Write([]string{"epoch", "loss", "accuracy", "learning_rate", "time_seconds"})
		c.writer.Flush()
	}
	return c.writer.Error()
}

func (c *CSVLogger) OnEpochEnd(stats EpochStats, nn *NeuralNet) bool {
	if c.writer == nil {
		return true
	}
	c.writer.Write([]string{
		strconv.Itoa(stats.Epoch),
		strconv.FormatFloat(stats.Loss, 'f', 6, 64),
		strconv.FormatFloat(stats.Accuracy, 'f', 4, 64),
		strconv.FormatFloat(stats.LearningRate, 'g', 6, 64),
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	})
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.fail(errors.Wrapf(err, "csv logger: epoch %d", stats.Epoch))
		return false
	}
	return true
}

func (c *CSVLogger) OnTrainEnd(nn *NeuralNet) {
	if c.file == nil {
		return
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.fail(errors.Wrap(err, "csv logger"))
	}
	if err := c.file.Close(); err != nil {
		c.fail(errors.Wrap(err, "csv logger"))
	}
	c.file = nil
	c.writer = nil
}

// Err returns the first write or close error, if any.
func (c *CSVLogger) Err() error {
	return c.err
}

func (c *CSVLogger) fail(err error) {
	fmt.Fprintf(os.Stderr, "CSVLogger: %v\n", err)
	if c.err == nil {
		c.err = err
	}
}
