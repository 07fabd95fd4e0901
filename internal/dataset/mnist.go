package dataset

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/born-ml/convnet/internal/tensor"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049

	maxIDXImageSize = 1 << 24
)

// MNIST file names, looked up with and without a ".gz" suffix.
const (
	MNISTTrainImages = "train-images-idx3-ubyte"
	MNISTTrainLabels = "train-labels-idx1-ubyte"
	MNISTTestImages  = "t10k-images-idx3-ubyte"
	MNISTTestLabels  = "t10k-labels-idx1-ubyte"
)

// LoadMNIST reads the four MNIST IDX files from dir.
//
// Pixels are scaled to [0, 1]. With channels > 1 the grayscale value is
// replicated across channels, producing (28, 28, channels) samples. Labels
// 0..9 map to output positions 0..9.
func LoadMNIST(dir string, channels int) (*InMemory, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("mnist: invalid channel count %d", channels)
	}
	train, err := loadIDXSplit(dir, MNISTTrainImages, MNISTTrainLabels, channels)
	if err != nil {
		return nil, err
	}
	test, err := loadIDXSplit(dir, MNISTTestImages, MNISTTestLabels, channels)
	if err != nil {
		return nil, err
	}
	return New(train, test, IdentityClasses(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)), nil
}

func loadIDXSplit(dir, imagesName, labelsName string, channels int) ([]Sample, error) {
	images, rows, cols, err := readIDXImages(filepath.Join(dir, imagesName))
	if err != nil {
		return nil, fmt.Errorf("mnist: %s: %w", imagesName, err)
	}
	labels, err := readIDXLabels(filepath.Join(dir, labelsName))
	if err != nil {
		return nil, fmt.Errorf("mnist: %s: %w", labelsName, err)
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("mnist: %d images but %d labels", len(images), len(labels))
	}

	shape := tensor.S3(rows, cols, channels)
	samples := make([]Sample, len(images))
	for i, img := range images {
		t := tensor.Zeros(shape)
		data := t.Data()
		for p, px := range img {
			v := float32(px) / 255
			for c := 0; c < channels; c++ {
				data[p*channels+c] = v
			}
		}
		samples[i] = Sample{Tensor: t, Label: int(labels[i])}
	}
	return samples, nil
}

// openIDX opens name, falling back to name+".gz" decompressed on the fly.
func openIDX(name string) (io.ReadCloser, error) {
	if f, err := os.Open(name); err == nil {
		return f, nil
	}
	f, err := os.Open(name + ".gz")
	if err != nil {
		return nil, fmt.Errorf("neither %s nor %s.gz found: %w", name, name, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// readIDXImages reads an MNIST image file in IDX format.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
func readIDXImages(filename string) (images [][]byte, rows, cols int, err error) {
	file, err := openIDX(filename)
	if err != nil {
		return nil, 0, 0, err
	}
	defer file.Close()

	var header [4]uint32 // magic, count, rows, cols
	if err := binary.Read(file, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxImagesMagic {
		return nil, 0, 0, fmt.Errorf("invalid magic number: got %d, want %d", header[0], idxImagesMagic)
	}
	if header[2] == 0 || header[3] == 0 || uint64(header[2])*uint64(header[3]) > maxIDXImageSize {
		return nil, 0, 0, fmt.Errorf("invalid image size %dx%d", header[2], header[3])
	}
	rows, cols = int(header[2]), int(header[3])

	for i := 0; i < int(header[1]); i++ {
		img, err := readIDXBytes(file, rows*cols)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return images, rows, cols, nil
}

// readIDXLabels reads an MNIST label file in IDX format.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func readIDXLabels(filename string) ([]byte, error) {
	file, err := openIDX(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var header [2]uint32 // magic, count
	if err := binary.Read(file, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxLabelsMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", header[0], idxLabelsMagic)
	}

	labels, err := readIDXBytes(file, int(header[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}

// readIDXBytes reads exactly n bytes. The buffer grows with what the file
// actually holds, so a corrupt count cannot force a huge allocation.
func readIDXBytes(r io.Reader, n int) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, len(b), n)
	}
	return b, nil
}
