package serialization

import (
	"fmt"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
)

// Format constants.
const (
	MagicBytes      = "CNVN"
	FormatVersion   = 1
	HeaderAlignment = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // 0x40 bytes
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	DTypeFloat32    = "float32"
)

// Flags for the .cnvn format.
const (
	FlagHasOptimizer uint32 = 1 << 0 // optimizer moments included
	FlagHasHistory   uint32 = 1 << 1 // at least one trained epoch recorded
)

// Header is the JSON header of a .cnvn file: the snapshot with every
// parameter slice moved to the data section, and the table locating them.
type Header struct {
	Snapshot Snapshot     `json:"snapshot"`
	Tensors  []TensorMeta `json:"tensors"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "layers.0.kernels.m"
	DType  string `json:"dtype"`  // always float32
	Shape  []int  `json:"shape"`  // logical shape
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

// binding ties a tensor name and shape to the LayerState field holding its
// values. The writer moves *data out of the header, the reader fills it back.
type binding struct {
	name  string
	shape []int
	data  *[]float32
}

// bindings lists the parameter tensors of one layer. Optimizer moments are
// included only when the layer's optimizer keeps them.
func bindings(i int, s *nn.LayerState) []binding {
	prefix := fmt.Sprintf("layers.%d.", i)
	var out []binding
	add := func(name string, shape []int, data *[]float32, opt optim.Config, st *optim.State) {
		out = append(out, binding{name: prefix + name, shape: shape, data: data})
		if opt.Kind == optim.KindAdam {
			out = append(out,
				binding{name: prefix + name + ".m", shape: shape, data: &st.M},
				binding{name: prefix + name + ".v", shape: shape, data: &st.V},
			)
		}
	}
	switch {
	case s.Conv != nil:
		c := s.Conv
		add("kernels", []int{c.KernelSize, c.KernelSize, c.InputShape.C, c.Filters}, &c.Kernels, c.Optimizer, &c.KernelOpt)
		add("biases", []int{c.Filters}, &c.Biases, c.Optimizer, &c.BiasOpt)
	case s.Dense != nil:
		d := s.Dense
		add("weights", []int{d.OutFeatures, d.TransitionShape.NumElements()}, &d.Weights, d.Optimizer, &d.WeightOpt)
		add("biases", []int{d.OutFeatures}, &d.Biases, d.Optimizer, &d.BiasOpt)
	}
	return out
}

// detach returns a copy of s whose parameter slices point to fresh structs,
// so bindings can rewrite them without touching s.
func detach(s nn.LayerState) nn.LayerState {
	if s.Conv != nil {
		c := *s.Conv
		s.Conv = &c
	}
	if s.Mxpl != nil {
		m := *s.Mxpl
		s.Mxpl = &m
	}
	if s.Dense != nil {
		d := *s.Dense
		s.Dense = &d
	}
	return s
}

func numElements(shape []int) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= int64(d)
	}
	return n
}

func alignedOffset(pos int64) int64 {
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
