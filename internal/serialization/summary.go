package serialization

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/born-ml/convnet/internal/network"
)

// WriteSummary writes a plain text description of n: its checkpoint file,
// creation time, sizes, layers and accuracy histories.
func WriteSummary(w io.Writer, n *network.Network) error {
	hp := n.Hyperparameters()
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", JSONFileName(n))
	fmt.Fprintf(&b, "Time: %d (%s)\n", n.CreatedAt().UnixMilli(), humanize.Time(n.CreatedAt()))
	fmt.Fprintf(&b, "Run: %s\n", n.RunID())
	fmt.Fprintf(&b, "Minibatch size: %d\n", hp.BatchSize)
	fmt.Fprintf(&b, "Optimizer: %v\n", hp.Optimizer)
	fmt.Fprintf(&b, "Training size: %s\n", humanize.Comma(int64(n.TrainSize())))
	fmt.Fprintf(&b, "Testing size: %s\n", humanize.Comma(int64(n.TestSize())))
	fmt.Fprintf(&b, "Parameters: %s\n", humanize.Comma(int64(n.NumParameters())))
	fmt.Fprintf(&b, "Architecture: %s\n", n.Architecture())

	b.WriteString("\nLayers:\n")
	for _, l := range n.Layers() {
		fmt.Fprintf(&b, "%v\n", l)
	}

	fmt.Fprintf(&b, "Training accuracy: %v\n", n.TrainingHistory())
	fmt.Fprintf(&b, "Testing accuracy: %v\n", n.TestingHistory())
	fmt.Fprintf(&b, "Time taken: %v\n", n.TimeHistory())

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
