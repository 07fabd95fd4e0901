package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Limits applied to untrusted .cnvn files.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // JSON header bytes
	MaxDataSize      = 1 << 40           // tensor data bytes
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidateTensorOffsets checks that every tensor lies inside a data section
// of dataSize bytes and that no two tensors share bytes.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b TensorMeta) int { return cmp.Compare(a.Offset, b.Offset) })

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if t.Offset+t.Size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}
		if i+1 < len(sorted) {
			if next := sorted[i+1]; t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName accepts dotted parameter names such as
// "layers.3.weights.m" and rejects anything that looks like a path.
func ValidateTensorName(name string) error {
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	switch {
	case strings.Contains(name, ".."):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains '..'"}
	case strings.ContainsAny(name, `/\`):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains a path separator"}
	case strings.ContainsRune(name, 0):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains a null byte"}
	}
	return nil
}

// ValidateHeader checks the tensor table of a header against a data section
// of dataSize bytes: names, float32 sizes and byte ranges.
func ValidateHeader(h *Header, dataSize int64) error {
	seen := make(map[string]bool, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if seen[t.Name] {
			return &ValidationError{Type: "duplicate_name", Tensor: t.Name, Details: "listed twice"}
		}
		seen[t.Name] = true
		if t.DType != DTypeFloat32 {
			return &ValidationError{Type: "size_mismatch", Tensor: t.Name, Details: fmt.Sprintf("dtype %q, only %s is stored", t.DType, DTypeFloat32)}
		}
		if want := numElements(t.Shape) * 4; t.Size != want {
			return &ValidationError{Type: "size_mismatch", Tensor: t.Name, Details: fmt.Sprintf("shape %v needs %d bytes, got %d", t.Shape, want, t.Size)}
		}
	}
	return ValidateTensorOffsets(h.Tensors, dataSize)
}
