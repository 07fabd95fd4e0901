package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/born-ml/convnet/internal/dataset"
	"github.com/born-ml/convnet/internal/network"
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/serialization"
)

const defaultArch = "conv:8:3,pool:2,dense:128:relu:0.25,dense:10:softmax"

type trainFlags struct {
	data dataFlags

	arch      string
	batch     int
	epochs    int
	optimizer string
	lr        float64
	saving    string
	sampler   string
	name      string
	models    string
	seed      uint64
	workers   int
	quiet     bool
	resume    string
}

func newTrainFlags(out io.Writer) (*flag.FlagSet, *trainFlags) {
	defaults := network.DefaultHyperparameters()
	f := &trainFlags{}
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(out)
	f.data.register(fs)
	fs.StringVar(&f.arch, "arch", defaultArch, "Layers as conv:F:K[:S], pool:K[:S], dense:N:ACT[:DROPOUT]; the input shape is taken from the data unless input:H:W:C comes first")
	fs.IntVar(&f.batch, "batch", defaults.BatchSize, "Samples per parameter update")
	fs.IntVar(&f.epochs, "epochs", defaults.Epochs, "Number of training epochs")
	fs.StringVar(&f.optimizer, "optimizer", string(defaults.Optimizer.Kind), "Optimizer: sgd or adam")
	fs.Float64Var(&f.lr, "lr", 0, "Learning rate (0 = optimizer default)")
	fs.StringVar(&f.saving, "saving", defaults.Saving.String(), "Checkpoints: never, every_epoch[:full], every_nth_epoch:FRACTION[:full], best_training_accuracy[:full], best_testing_accuracy[:full]")
	fs.StringVar(&f.sampler, "sampler", string(defaults.Sampler), "Sample selection: random (with replacement) or shuffled")
	fs.StringVar(&f.name, "name", defaults.Name, "Model name, used for checkpoint file names")
	fs.StringVar(&f.models, "models", "models", "Checkpoint directory")
	fs.Uint64Var(&f.seed, "seed", 0, "Random seed (0 = random)")
	fs.IntVar(&f.workers, "workers", 0, "Goroutines per conv layer (0 or 1 runs sequentially, negative uses every CPU)")
	fs.BoolVar(&f.quiet, "quiet", false, "Disable the progress bar")
	fs.StringVar(&f.resume, "resume", "", "Continue training a saved network (.cnvn or .json); -arch and optimizer flags are ignored")
	return fs, f
}

func (f *trainFlags) hyperparameters() (network.Hyperparameters, error) {
	hp := network.DefaultHyperparameters()
	opt, err := optim.Parse(strings.ToLower(f.optimizer), float32(f.lr))
	if err != nil {
		return hp, err
	}
	saving, err := network.ParseSavingStrategy(f.saving)
	if err != nil {
		return hp, err
	}
	sampler, err := network.ParseSamplerKind(f.sampler)
	if err != nil {
		return hp, err
	}
	hp.BatchSize = f.batch
	hp.Epochs = f.epochs
	hp.Optimizer = opt
	hp.Saving = saving
	hp.Sampler = sampler
	hp.Name = f.name
	hp.Seed = f.seed
	hp.Workers = f.workers
	hp.Verbose = !f.quiet
	return hp, hp.Validate()
}

func runTrain(args []string, stdout io.Writer) error {
	fs, f := newTrainFlags(stdout)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := f.data.load()
	if err != nil {
		return err
	}

	var n *network.Network
	if f.resume != "" {
		if n, err = serialization.Load(f.resume); err != nil {
			return err
		}
		n.SetEpochs(f.epochs)
		n.SetWorkers(f.workers)
		n.SetVerbose(!f.quiet)
		klog.Infof("resuming %s after %d epochs", n.Name(), n.EpochsTrained())
	} else {
		if n, err = f.build(ds); err != nil {
			return err
		}
	}

	must.M(os.MkdirAll(f.models, 0o750))
	store := &serialization.Store{Dir: f.models}
	n.SetCheckpointer(store)

	fmt.Fprintf(stdout, "Training %s: %s, %d parameters, %d training and %d testing samples\n",
		n.Name(), n.Architecture(), n.NumParameters(), ds.TrainSize(), ds.TestSize())
	if err := n.Train(ds); err != nil {
		return err
	}

	path := store.BinaryPath(n)
	if err := serialization.WriteFile(path, serialization.NewSnapshot(n)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved %s (train accuracy %.1f%%, test accuracy %.1f%%)\n",
		path, last(n.TrainingHistory())*100, last(n.TestingHistory())*100)
	return nil
}

// build creates a fresh network, taking the input shape from ds when the
// architecture does not set one.
func (f *trainFlags) build(ds *dataset.InMemory) (*network.Network, error) {
	hp, err := f.hyperparameters()
	if err != nil {
		return nil, err
	}
	n, err := network.New(hp)
	if err != nil {
		return nil, err
	}
	arch := strings.TrimSpace(f.arch)
	if !strings.HasPrefix(strings.ToLower(arch), "input:") {
		s, err := sampleShape(ds)
		if err != nil {
			return nil, err
		}
		arch = fmt.Sprintf("input:%d:%d:%d,%s", s.H, s.W, s.C, arch)
	}
	if err := n.Build(arch); err != nil {
		return nil, err
	}
	return n, nil
}

func runTest(args []string, stdout io.Writer) error {
	var data dataFlags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(stdout)
	data.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("test expects one model file, got %d arguments", fs.NArg())
	}
	n, err := serialization.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	ds, err := data.load()
	if err != nil {
		return err
	}
	if ds.TestSize() == 0 {
		return fmt.Errorf("dataset has no testing samples")
	}
	acc, err := n.Test(ds)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "Test accuracy: %.1f%%\n", acc*100)
	return err
}

func last(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}
