package network

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/convnet/internal/nn"
)

// Build appends the layers described by arch, a comma separated list of
// colon separated layer specs:
//
//	input:H[:W[:C]]            sets the input shape (must come first)
//	conv:FILTERS:KERNEL[:STRIDE]
//	pool:KERNEL[:STRIDE]
//	dense:SIZE:ACTIVATION[:DROPOUT]
//
// For example "conv:8:3,pool:2,dense:128:relu:0.25,dense:10:softmax".
// Layers appended before an error is returned are kept.
func (n *Network) Build(arch string) error {
	for i, spec := range strings.Split(arch, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if err := n.buildLayer(spec, i); err != nil {
			return fmt.Errorf("architecture %q, layer %d: %w", arch, i, err)
		}
	}
	return nil
}

func (n *Network) buildLayer(spec string, pos int) error {
	fields := strings.Split(spec, ":")
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "input":
		if pos != 0 {
			return fmt.Errorf("%w: input must be the first spec", nn.ErrConfiguration)
		}
		dims, err := atoiAll(args, 1, 3)
		if err != nil {
			return err
		}
		return n.SetInputShape(dims...)

	case "conv":
		v, err := atoiAll(args, 2, 3)
		if err != nil {
			return err
		}
		if len(v) == 3 {
			return n.AddConvStride(v[0], v[1], v[2])
		}
		return n.AddConv(v[0], v[1])

	case "pool", "mxpl":
		v, err := atoiAll(args, 1, 2)
		if err != nil {
			return err
		}
		if len(v) == 2 {
			return n.AddPoolStride(v[0], v[1])
		}
		return n.AddPool(v[0])

	case "dense":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("%w: dense expects SIZE:ACTIVATION[:DROPOUT], got %q", nn.ErrConfiguration, spec)
		}
		size, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: dense size: %v", nn.ErrConfiguration, err)
		}
		act, err := nn.ParseActivation(args[1])
		if err != nil {
			return err
		}
		var dropout float64
		if len(args) == 3 {
			if dropout, err = strconv.ParseFloat(args[2], 32); err != nil {
				return fmt.Errorf("%w: dense dropout: %v", nn.ErrConfiguration, err)
			}
		}
		return n.AddDense(size, act, float32(dropout))

	default:
		return fmt.Errorf("%w: unknown layer %q", nn.ErrConfiguration, fields[0])
	}
}

func atoiAll(args []string, minLen, maxLen int) ([]int, error) {
	if len(args) < minLen || len(args) > maxLen {
		return nil, fmt.Errorf("%w: expected %d to %d integers, got %d", nn.ErrConfiguration, minLen, maxLen, len(args))
	}
	v := make([]int, len(args))
	for i, a := range args {
		var err error
		if v[i], err = strconv.Atoi(a); err != nil {
			return nil, fmt.Errorf("%w: %v", nn.ErrConfiguration, err)
		}
	}
	return v, nil
}

// Architecture renders the layers in the form accepted by Build, input
// shape first.
func (n *Network) Architecture() string {
	parts := make([]string, 0, len(n.layers)+1)
	if !n.inputShape.IsZero() {
		s := n.inputShape
		parts = append(parts, fmt.Sprintf("input:%d:%d:%d", s.H, s.W, s.C))
	}
	for _, l := range n.layers {
		switch l := l.(type) {
		case *nn.Conv2D:
			parts = append(parts, fmt.Sprintf("conv:%d:%d:%d", l.Filters(), l.KernelSize(), l.Stride()))
		case *nn.MaxPool2D:
			parts = append(parts, fmt.Sprintf("pool:%d:%d", l.KernelSize(), l.Stride()))
		case *nn.Dense:
			spec := fmt.Sprintf("dense:%d:%v", l.OutFeatures(), l.Activation())
			if l.Dropout() > 0 {
				spec += ":" + strconv.FormatFloat(float64(l.Dropout()), 'g', -1, 32)
			}
			parts = append(parts, spec)
		}
	}
	return strings.Join(parts, ",")
}
