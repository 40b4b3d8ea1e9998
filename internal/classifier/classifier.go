// Package classifier runs the gesture model and decodes its scores.
package classifier

import (
	"errors"
	"fmt"

	"github.com/ayusman/handsignal/internal/preprocess"
)

// UnknownLabel is reported when the scores cannot be mapped onto a label.
const UnknownLabel = "Unknown Gesture"

// ErrNoScores is returned when the model produced an empty output.
var ErrNoScores = errors.New("model returned no scores")

// Model is an inference backend.
type Model interface {
	// Forward runs one NHWC tensor through the model and returns one score
	// per class.
	Forward(t *preprocess.Tensor) ([]float32, error)
	Close() error
}

// Result is one classification.
type Result struct {
	Index  int
	Label  string
	Scores []float32
}

// Classifier maps model outputs onto the label table.
type Classifier struct {
	model  Model
	labels []string
}

// New creates a Classifier. labels is copied.
func New(model Model, labels []string) *Classifier {
	return &Classifier{
		model:  model,
		labels: append([]string(nil), labels...),
	}
}

// Classify runs the model on t.
func (c *Classifier) Classify(t *preprocess.Tensor) (Result, error) {
	scores, err := c.model.Forward(t)
	if err != nil {
		return Result{Index: -1, Label: UnknownLabel}, fmt.Errorf("forward: %w", err)
	}
	if len(scores) == 0 {
		return Result{Index: -1, Label: UnknownLabel}, ErrNoScores
	}

	idx, label := Decode(scores, c.labels)
	return Result{Index: idx, Label: label, Scores: scores}, nil
}

// Labels returns the label table.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Close releases the model.
func (c *Classifier) Close() error {
	return c.model.Close()
}

// Decode returns the index of the highest score and its label. Ties go to the
// lowest index. An empty score vector or a winning index outside the label
// table yields -1 and UnknownLabel.
func Decode(scores []float32, labels []string) (int, string) {
	if len(scores) == 0 {
		return -1, UnknownLabel
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}

	if best >= len(labels) {
		return -1, UnknownLabel
	}
	return best, labels[best]
}
