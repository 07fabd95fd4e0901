package main

import (
	"flag"
	"fmt"

	"github.com/born-ml/convnet/internal/dataset"
	"github.com/born-ml/convnet/internal/tensor"
)

// dataFlags selects where samples come from. Exactly one source is used.
type dataFlags struct {
	mnist    string
	images   string
	csvTrain string
	csvTest  string

	width, height int
	channels      int
	lazy          bool
	limitTrain    int
	limitTest     int
}

func (d *dataFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.mnist, "mnist", "", "Directory holding the four MNIST IDX files (plain or .gz)")
	fs.StringVar(&d.images, "images", "", "Image folder laid out as DIR/{train,test}/<class>/<file>")
	fs.StringVar(&d.csvTrain, "csv", "", "CSV training file (label,pixel,...), with -rows/-cols")
	fs.StringVar(&d.csvTest, "csv_test", "", "CSV testing file, same layout as -csv")
	fs.IntVar(&d.width, "width", 28, "Image width for -images and -csv")
	fs.IntVar(&d.height, "height", 28, "Image height for -images and -csv")
	fs.IntVar(&d.channels, "channels", 1, "Channels for -mnist and -csv (gray values are replicated)")
	fs.BoolVar(&d.lazy, "lazy", false, "Decode -images files on demand instead of up front")
	fs.IntVar(&d.limitTrain, "limit_train", 0, "Use at most this many training samples (0 = all)")
	fs.IntVar(&d.limitTest, "limit_test", 0, "Use at most this many testing samples (0 = all)")
}

// load reads the selected source.
func (d *dataFlags) load() (*dataset.InMemory, error) {
	var (
		ds  *dataset.InMemory
		err error
	)
	switch {
	case d.mnist != "":
		ds, err = dataset.LoadMNIST(d.mnist, d.channels)
	case d.images != "":
		ds, err = dataset.LoadImageFolder(d.images, d.width, d.height, d.lazy)
	case d.csvTrain != "":
		ds, err = d.loadCSV()
	default:
		return nil, fmt.Errorf("no data source: pass -mnist, -images or -csv")
	}
	if err != nil {
		return nil, err
	}
	ds.Limit(d.limitTrain, d.limitTest)
	return ds, nil
}

func (d *dataFlags) loadCSV() (*dataset.InMemory, error) {
	train, err := dataset.LoadCSV(d.csvTrain, d.height, d.width, d.channels, 0)
	if err != nil {
		return nil, err
	}
	var test []dataset.Sample
	if d.csvTest != "" {
		if test, err = dataset.LoadCSV(d.csvTest, d.height, d.width, d.channels, 0); err != nil {
			return nil, err
		}
	}
	return dataset.New(train, test, nil), nil
}

// sampleShape returns the shape of the first available sample.
func sampleShape(ds *dataset.InMemory) (tensor.Shape3, error) {
	sample, _, err := ds.TrainSample(0)
	if err != nil {
		sample, _, err = ds.TestSample(0)
	}
	if err != nil {
		return tensor.Shape3{}, fmt.Errorf("dataset has no readable sample: %w", err)
	}
	return sample.Shape(), nil
}
