package serialization

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/born-ml/convnet/internal/network"
)

// Store writes checkpoints under Dir and implements network.Checkpointer.
//
// A full save writes the JSON snapshot <name>_<millis>.json, where millis is
// the network creation time, and the binary snapshot <name>.cnvn. Every save,
// full or not, rewrites the text summary <name>.txt.
type Store struct {
	Dir string
}

var _ network.Checkpointer = (*Store)(nil)

// Save implements network.Checkpointer.
func (s *Store) Save(n *network.Network, full bool) error {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.Dir, err)
	}
	if full {
		snap := NewSnapshot(n)
		if err := WriteFile(s.JSONPath(n), snap); err != nil {
			return err
		}
		if err := WriteFile(s.BinaryPath(n), snap); err != nil {
			return err
		}
	}

	summary := s.SummaryPath(n)
	//nolint:gosec // G304: path is built from the store directory and model name
	file, err := os.Create(summary)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteSummary(file, n); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", summary, err)
	}
	klog.V(1).Infof("saved %s to %s (full=%v)", n.Name(), s.Dir, full)
	return nil
}

// JSONFileName returns <name>_<millis>.json for n.
func JSONFileName(n *network.Network) string {
	return fmt.Sprintf("%s_%d.json", n.Name(), n.CreatedAt().UnixMilli())
}

// JSONPath returns where a full save writes the JSON snapshot of n.
func (s *Store) JSONPath(n *network.Network) string {
	return filepath.Join(s.Dir, JSONFileName(n))
}

// BinaryPath returns where a full save writes the .cnvn snapshot of n.
func (s *Store) BinaryPath(n *network.Network) string {
	return filepath.Join(s.Dir, n.Name()+".cnvn")
}

// SummaryPath returns where every save writes the text summary of n.
func (s *Store) SummaryPath(n *network.Network) string {
	return filepath.Join(s.Dir, n.Name()+".txt")
}

// Load reads a snapshot in either encoding and rebuilds the network.
func Load(path string) (*network.Network, error) {
	snap, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return snap.Network()
}
