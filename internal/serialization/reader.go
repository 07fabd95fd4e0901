package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReaderOptions configures ReadBinaryWithOptions.
type ReaderOptions struct {
	SkipChecksumValidation bool // Skip checksum validation (faster but less safe)
}

// FileInfo is the fixed-header view of a .cnvn file.
type FileInfo struct {
	Version    uint32
	Flags      uint32
	HeaderSize uint64
	DataSize   uint64
	Checksum   [ChecksumSize]byte
}

// ReadBinary reads a .cnvn snapshot, verifying its checksum.
func ReadBinary(r io.Reader) (*Snapshot, error) {
	return ReadBinaryWithOptions(r, ReaderOptions{})
}

// ReadBinaryWithOptions reads a .cnvn snapshot.
func ReadBinaryWithOptions(r io.Reader, opts ReaderOptions) (*Snapshot, error) {
	info, err := readFixedHeader(r)
	if err != nil {
		return nil, err
	}

	headerBytes, err := readAtMost(r, info.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: HeaderSize is bounded by MaxHeaderSize
	currentPos := int64(FixedHeaderSize) + int64(info.HeaderSize)
	if _, err := io.CopyN(io.Discard, r, alignedOffset(currentPos)-currentPos); err != nil {
		return nil, fmt.Errorf("%w: padding: %v", ErrTruncated, err)
	}
	data, err := readAtMost(r, info.DataSize)
	if err != nil {
		return nil, fmt.Errorf("%w: tensor data: %v", ErrTruncated, err)
	}

	if err := ValidateHeader(&header, int64(len(data))); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), info.Checksum); err != nil {
			return nil, err
		}
	}

	s := header.Snapshot
	tensors := make(map[string]TensorMeta, len(header.Tensors))
	for _, t := range header.Tensors {
		tensors[t.Name] = t
	}
	for i := range s.Layers {
		for _, b := range bindings(i, &s.Layers[i]) {
			meta, ok := tensors[b.name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingTensor, b.name)
			}
			if numElements(meta.Shape) != numElements(b.shape) {
				return nil, &ValidationError{
					Type:    "size_mismatch",
					Tensor:  b.name,
					Details: fmt.Sprintf("stored shape %v, layer expects %v", meta.Shape, b.shape),
				}
			}
			if meta.Offset < 0 || meta.Offset+meta.Size > int64(len(data)) {
				return nil, &ValidationError{Type: "out_of_bounds", Tensor: b.name, Details: "outside the data section"}
			}
			values := make([]float32, meta.Size/4)
			raw := bytes.NewReader(data[meta.Offset : meta.Offset+meta.Size])
			if err := binary.Read(raw, binary.LittleEndian, values); err != nil {
				return nil, fmt.Errorf("failed to decode tensor %s: %w", b.name, err)
			}
			*b.data = values
		}
	}
	return &s, nil
}

// readAtMost reads exactly n bytes without trusting n for the allocation:
// the buffer only grows as data actually arrives.
func readAtMost(r io.Reader, n uint64) ([]byte, error) {
	//nolint:gosec // G115: n is bounded by MaxHeaderSize or MaxDataSize
	b, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) < n {
		return nil, fmt.Errorf("got %d of %d bytes: %w", len(b), n, io.ErrUnexpectedEOF)
	}
	return b, nil
}

// ReadInfo reads only the fixed header of a .cnvn stream.
func ReadInfo(r io.Reader) (FileInfo, error) {
	return readFixedHeader(r)
}

func readFixedHeader(r io.Reader) (FileInfo, error) {
	fixedHeader := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedHeader); err != nil {
		return FileInfo{}, fmt.Errorf("%w: fixed header: %v", ErrTruncated, err)
	}
	if string(fixedHeader[0:4]) != MagicBytes {
		return FileInfo{}, ErrInvalidMagic
	}
	info := FileInfo{
		Version:    binary.LittleEndian.Uint32(fixedHeader[4:8]),
		Flags:      binary.LittleEndian.Uint32(fixedHeader[8:12]),
		HeaderSize: binary.LittleEndian.Uint64(fixedHeader[16:24]),
		DataSize:   binary.LittleEndian.Uint64(fixedHeader[24:32]),
	}
	copy(info.Checksum[:], fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if info.Version != FormatVersion {
		return FileInfo{}, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, info.Version, FormatVersion)
	}
	if info.HeaderSize > MaxHeaderSize {
		return FileInfo{}, ErrHeaderTooLarge
	}
	if info.DataSize > MaxDataSize {
		return FileInfo{}, &ValidationError{Type: "out_of_bounds", Details: fmt.Sprintf("data size %d", info.DataSize)}
	}
	return info, nil
}

// ReadFile reads a snapshot from path, detecting the encoding from the first
// bytes: .cnvn files start with MagicBytes, anything else is parsed as JSON.
func ReadFile(path string) (*Snapshot, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	magic := make([]byte, len(MagicBytes))
	n, err := io.ReadFull(file, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	r := io.MultiReader(bytes.NewReader(magic[:n]), file)
	if string(magic[:n]) == MagicBytes {
		s, err := ReadBinary(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	}
	s, err := ReadJSON(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
