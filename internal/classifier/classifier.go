// Package classifier wraps the trained TFLite detector behind a narrow
// interface: feature tensor in, probability out. The model artifact is
// loaded once at startup and is immutable afterwards.
package classifier

import (
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/tphakala/go-tflite"

	"github.com/treeguard/woodpecker-go/internal/conf"
	"github.com/treeguard/woodpecker-go/internal/errors"
	"github.com/treeguard/woodpecker-go/internal/logging"
)

// Predictor is the contract the detection pipeline depends on. Predict
// takes a flattened feature tensor and returns the probability that the
// window contains the target acoustic event.
type Predictor interface {
	Predict(tensor []float32) (float32, error)
}

// TFLite is the production Predictor backed by a TensorFlow Lite
// interpreter. Safe for concurrent use; inference calls serialize on an
// internal mutex for at most one window's inference duration.
type TFLite struct {
	interpreter *tflite.Interpreter
	model       *tflite.Model
	logger      *slog.Logger
	mu          sync.Mutex
}

// New loads the model artifact and prepares the interpreter. A missing or
// corrupt artifact is a fatal startup error; the caller must refuse to
// serve sessions.
func New(settings *conf.Settings) (*TFLite, error) {
	modelPath := settings.Detector.ModelPath

	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Context("model_path", modelPath).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Context("model_path", modelPath).
			Context("model_size_bytes", len(modelData)).
			Build()
	}

	threads := settings.Detector.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.Newf("cannot create TFLite interpreter").
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("tensor allocation failed").
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Build()
	}

	logger := logging.ForService("classifier")
	if logger != nil {
		logger.Info("detector model initialized",
			"model_path", modelPath,
			"threads", threads,
			"total_cpus", runtime.NumCPU())
	}

	return &TFLite{
		interpreter: interpreter,
		model:       model,
		logger:      logger,
	}, nil
}

// Predict runs one inference. A failure here is recoverable: the caller
// reports confidence 0 for the window and continues the session.
func (c *TFLite) Predict(tensor []float32) (float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return 0, errors.Newf("cannot get input tensor").
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}
	if len(input.Float32s()) != len(tensor) {
		return 0, errors.Newf("tensor shape mismatch: model wants %d values, got %d",
			len(input.Float32s()), len(tensor)).
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}
	copy(input.Float32s(), tensor)

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return 0, errors.Newf("tensor invoke failed: %v", status).
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}

	output := c.interpreter.GetOutputTensor(0)
	if output == nil || len(output.Float32s()) == 0 {
		return 0, errors.Newf("cannot read output tensor").
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}

	p := output.Float32s()[0]
	// Guard against models emitting slightly out-of-range logits.
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	return p, nil
}

// Delete releases the interpreter and model resources.
func (c *TFLite) Delete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
}
