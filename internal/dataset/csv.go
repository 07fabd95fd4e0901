package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/born-ml/convnet/internal/tensor"
)

// LoadCSV reads Kaggle-style image rows:
//
//	label,pixel0,pixel1,...,pixelN
//	5,0,0,12,...,0
//
// The first row is a header and is skipped. Pixels (0-255) fill a
// (rows, cols, 1) image scaled to [0, 1] and replicated over channels.
// maxSamples > 0 stops reading after that many rows.
func LoadCSV(filename string, rows, cols, channels, maxSamples int) ([]Sample, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return readCSV(file, rows, cols, channels, maxSamples)
}

func readCSV(r io.Reader, rows, cols, channels, maxSamples int) ([]Sample, error) {
	if rows <= 0 || cols <= 0 || channels <= 0 {
		return nil, fmt.Errorf("csv: invalid sample shape (%d, %d, %d)", rows, cols, channels)
	}
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("csv: missing header: %w", err)
	}

	pixels := rows * cols
	shape := tensor.S3(rows, cols, channels)
	var samples []Sample
	for line := 2; maxSamples <= 0 || len(samples) < maxSamples; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		if len(record) != pixels+1 {
			return nil, fmt.Errorf("csv: line %d: got %d fields, want %d", line, len(record), pixels+1)
		}
		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: invalid label: %w", line, err)
		}

		t := tensor.Zeros(shape)
		data := t.Data()
		for p := 0; p < pixels; p++ {
			v, err := strconv.ParseUint(record[p+1], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("csv: line %d: pixel %d: %w", line, p, err)
			}
			for c := 0; c < channels; c++ {
				data[p*channels+c] = float32(v) / 255
			}
		}
		samples = append(samples, Sample{Tensor: t, Label: label})
	}
	return samples, nil
}
