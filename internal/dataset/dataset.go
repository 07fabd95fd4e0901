// Package dataset provides labeled image collections for training and
// testing networks.
//
// Samples are either decoded tensors held in memory or image files decoded
// on access, so large image folders do not need to fit in memory.
package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/born-ml/convnet/internal/tensor"
)

// ErrIndexOutOfRange is returned for a sample index outside the split.
var ErrIndexOutOfRange = errors.New("sample index out of range")

// Sample is one labeled example. Exactly one of Tensor and Path is set.
type Sample struct {
	Tensor *tensor.Tensor3
	Path   string
	Label  int
}

// InMemory holds the training and testing splits of a dataset.
type InMemory struct {
	Train   []Sample
	Test    []Sample
	Classes map[int]int // label -> output position
	Names   []string    // optional label names, indexed by label

	// Width and Height of decoded Path samples.
	Width, Height int
}

// New builds a dataset. A nil classes map assigns output positions to the
// distinct labels in ascending order.
func New(train, test []Sample, classes map[int]int) *InMemory {
	if classes == nil {
		classes = IdentityClasses(distinctLabels(train, test)...)
	}
	return &InMemory{Train: train, Test: test, Classes: classes}
}

// IdentityClasses maps the given labels, sorted, to 0, 1, 2, ...
func IdentityClasses(labels ...int) map[int]int {
	sorted := append([]int(nil), labels...)
	sort.Ints(sorted)
	classes := make(map[int]int, len(sorted))
	for _, l := range sorted {
		if _, ok := classes[l]; !ok {
			classes[l] = len(classes)
		}
	}
	return classes
}

func distinctLabels(splits ...[]Sample) []int {
	seen := map[int]bool{}
	var labels []int
	for _, split := range splits {
		for _, s := range split {
			if !seen[s.Label] {
				seen[s.Label] = true
				labels = append(labels, s.Label)
			}
		}
	}
	return labels
}

// TrainSize returns the number of training samples.
func (d *InMemory) TrainSize() int { return len(d.Train) }

// TestSize returns the number of testing samples.
func (d *InMemory) TestSize() int { return len(d.Test) }

// NumClasses returns the number of distinct output positions.
func (d *InMemory) NumClasses() int { return len(d.Classes) }

// TrainSample returns training sample i, decoding it if needed.
func (d *InMemory) TrainSample(i int) (*tensor.Tensor3, int, error) {
	return d.sample(d.Train, "training", i)
}

// TestSample returns testing sample i, decoding it if needed.
func (d *InMemory) TestSample(i int) (*tensor.Tensor3, int, error) {
	return d.sample(d.Test, "testing", i)
}

// ClassIndex maps a label to its output position.
func (d *InMemory) ClassIndex(label int) (int, bool) {
	c, ok := d.Classes[label]
	return c, ok
}

func (d *InMemory) sample(split []Sample, name string, i int) (*tensor.Tensor3, int, error) {
	if i < 0 || i >= len(split) {
		return nil, 0, fmt.Errorf("%w: %s sample %d of %d", ErrIndexOutOfRange, name, i, len(split))
	}
	s := split[i]
	if s.Tensor != nil {
		return s.Tensor, s.Label, nil
	}
	t, err := LoadImage(s.Path, d.Width, d.Height)
	if err != nil {
		return nil, 0, err
	}
	return t, s.Label, nil
}

// Limit truncates both splits to at most train and test samples. Zero keeps
// a split whole.
func (d *InMemory) Limit(train, test int) {
	if train > 0 && len(d.Train) > train {
		d.Train = d.Train[:train]
	}
	if test > 0 && len(d.Test) > test {
		d.Test = d.Test[:test]
	}
}
