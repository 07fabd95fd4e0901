package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/born-ml/convnet/internal/network"
	"github.com/born-ml/convnet/internal/serialization"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
)

// newPlainTable returns a bordered table; alignments apply per column, the
// last one repeating for the remaining columns.
func newPlainTable(alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			var s lipgloss.Style
			switch {
			case row < 0:
				return headerRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
}

func runInspect(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("inspect expects at least one model file")
	}
	for _, path := range args {
		snap, err := serialization.ReadFile(path)
		if err != nil {
			return err
		}
		n, err := snap.Network()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n%s\n%s\n", path, summaryTable(snap, n).Render(), layersTable(n).Render())
	}
	return nil
}

func summaryTable(snap *serialization.Snapshot, n *network.Network) *lgtable.Table {
	hp := n.Hyperparameters()
	params := n.NumParameters()
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("name", n.Name())
	table.Row("run", n.RunID().String())
	table.Row("created", fmt.Sprintf("%s (%s)", n.CreatedAt().Format("2006-01-02 15:04:05"), humanize.Time(n.CreatedAt())))
	table.Row("saved", humanize.Time(snap.SavedAt))
	table.Row("architecture", n.Architecture())
	table.Row("parameters", fmt.Sprintf("%s (%s)", humanize.Comma(int64(params)), humanize.Bytes(uint64(params)*4)))
	table.Row("optimizer", hp.Optimizer.String())
	table.Row("batch size", strconv.Itoa(hp.BatchSize))
	table.Row("saving", hp.Saving.String())
	table.Row("epochs trained", strconv.Itoa(n.EpochsTrained()))
	table.Row("samples", fmt.Sprintf("%s train, %s test", humanize.Comma(int64(n.TrainSize())), humanize.Comma(int64(n.TestSize()))))
	if h := n.TrainingHistory(); len(h) > 0 {
		table.Row("train accuracy", fmt.Sprintf("%.1f%%", h[len(h)-1]*100))
	}
	if h := n.TestingHistory(); len(h) > 0 {
		table.Row("test accuracy", fmt.Sprintf("%.1f%%", h[len(h)-1]*100))
	}
	return table
}

func layersTable(n *network.Network) *lgtable.Table {
	table := newPlainTable(lipgloss.Right, lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	table.Headers("#", "kind", "input", "output", "parameters")
	for i, l := range n.Layers() {
		table.Row(strconv.Itoa(i), string(l.Kind()), l.InputShape().String(), l.OutputShape().String(),
			humanize.Comma(int64(l.NumParameters())))
	}
	return table
}
