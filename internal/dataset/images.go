package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/born-ml/convnet/internal/tensor"
)

// Image file extensions picked up by LoadImageFolder.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff"}

// LoadImage decodes an image file into a (height, width, 3) tensor of RGB
// values scaled to [0, 1]. Alpha is dropped.
//
// With width and height > 0 the image is resized (Lanczos) to that size
// first; otherwise it keeps its own size.
func LoadImage(path string, width, height int) (*tensor.Tensor3, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	if width > 0 && height > 0 {
		b := img.Bounds()
		if b.Dx() != width || b.Dy() != height {
			img = imaging.Resize(img, width, height, imaging.Lanczos)
		}
	}
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	t := tensor.Zeros(tensor.S3(b.Dy(), b.Dx(), 3))
	data := t.Data()
	for y := 0; y < b.Dy(); y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < b.Dx(); x++ {
			px := row[x*4 : x*4+3]
			base := (y*b.Dx() + x) * 3
			for c := 0; c < 3; c++ {
				data[base+c] = float32(px[c]) / 255
			}
		}
	}
	return t, nil
}

// LoadImageFolder indexes a directory laid out as
//
//	root/train/<class>/<image>
//	root/test/<class>/<image>
//
// Class names from both splits are sorted; a sample's label is the position
// of its class name, which is also its output position. Images are decoded
// at access time when lazy is set, and up front otherwise. width and height
// give the size every image is resized to.
func LoadImageFolder(root string, width, height int, lazy bool) (*InMemory, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image folder: invalid image size %dx%d", width, height)
	}
	names, err := classNames(filepath.Join(root, "train"), filepath.Join(root, "test"))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("image folder %s: no class directories", root)
	}

	d := &InMemory{
		Classes: IdentityClasses(seq(len(names))...),
		Names:   names,
		Width:   width,
		Height:  height,
	}
	if d.Train, err = indexSplit(filepath.Join(root, "train"), names); err != nil {
		return nil, err
	}
	if d.Test, err = indexSplit(filepath.Join(root, "test"), names); err != nil {
		return nil, err
	}
	if lazy {
		return d, nil
	}
	for _, split := range [][]Sample{d.Train, d.Test} {
		for i := range split {
			if split[i].Tensor, err = LoadImage(split[i].Path, width, height); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func seq(n int) []int {
	v := make([]int, n)
	for i := range v {
		v[i] = i
	}
	return v
}

// classNames returns the sorted union of the subdirectory names of dirs.
// Missing dirs are skipped.
func classNames(dirs ...string) ([]string, error) {
	var names []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() && !slices.Contains(names, e.Name()) {
				names = append(names, e.Name())
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

// indexSplit lists the images of one split, sorted by class then file name.
func indexSplit(dir string, names []string) ([]Sample, error) {
	var samples []Sample
	for label, name := range names {
		entries, err := os.ReadDir(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || !slices.Contains(imageExtensions, ext) {
				continue
			}
			samples = append(samples, Sample{Path: filepath.Join(dir, name, e.Name()), Label: label})
		}
	}
	return samples, nil
}
