package serialization

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/born-ml/convnet/internal/network"
)

// Snapshot is the persisted form of a network.
type Snapshot struct {
	FormatVersion int       `json:"format_version"`
	SavedAt       time.Time `json:"saved_at"`
	network.Record
}

// NewSnapshot captures n. Parameters are copied.
func NewSnapshot(n *network.Network) *Snapshot {
	return &Snapshot{
		FormatVersion: FormatVersion,
		SavedAt:       time.Now().UTC(),
		Record:        n.Record(),
	}
}

// Network rebuilds the network held by the snapshot.
func (s *Snapshot) Network() (*network.Network, error) {
	n, err := network.FromRecord(s.Record)
	if err != nil {
		return nil, fmt.Errorf("failed to restore network %q: %w", s.Hyperparameters.Name, err)
	}
	return n, nil
}

// WriteJSON encodes s as indented JSON.
func WriteJSON(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// ReadJSON decodes a snapshot written by WriteJSON.
func ReadJSON(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, s.FormatVersion, FormatVersion)
	}
	return &s, nil
}
