package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/born-ml/convnet/internal/nn"
)

// WriteBinary writes s to w in .cnvn format.
//
// Parameter slices are moved out of the JSON header into the data section;
// s itself is left untouched.
func WriteBinary(w io.Writer, s *Snapshot) error {
	header := Header{Snapshot: *s}
	header.Snapshot.Layers = make([]nn.LayerState, len(s.Layers))

	var data bytes.Buffer
	flags := uint32(0)
	for i, layer := range s.Layers {
		layer = detach(layer)
		for _, b := range bindings(i, &layer) {
			values := *b.data
			if int64(len(values)) != numElements(b.shape) {
				return fmt.Errorf("tensor %s has %d values, shape %v", b.name, len(values), b.shape)
			}
			if err := ValidateTensorName(b.name); err != nil {
				return err
			}
			size := int64(len(values)) * 4
			header.Tensors = append(header.Tensors, TensorMeta{
				Name:   b.name,
				DType:  DTypeFloat32,
				Shape:  b.shape,
				Offset: int64(data.Len()),
				Size:   size,
			})
			if err := binary.Write(&data, binary.LittleEndian, values); err != nil {
				return fmt.Errorf("failed to encode tensor %s: %w", b.name, err)
			}
			if strings.HasSuffix(b.name, ".m") {
				flags |= FlagHasOptimizer
			}
			*b.data = nil
		}
		header.Snapshot.Layers[i] = layer
	}
	if s.EpochsTrained > 0 {
		flags |= FlagHasHistory
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	checksum := ComputeChecksum(data.Bytes())

	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	// 0x0C-0x0F reserved
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(data.Len()))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	currentPos := int64(FixedHeaderSize) + int64(len(headerJSON))
	if padding := alignedOffset(currentPos) - currentPos; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// WriteFile writes s to path, as .cnvn unless path ends in ".json".
func WriteFile(path string, s *Snapshot) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if isJSONPath(path) {
		return WriteJSON(file, s)
	}
	return WriteBinary(file, s)
}
