package network

import (
	"fmt"
	"io"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// ProgressbarStyle used when Verbose is set.
var ProgressbarStyle = progressbar.ThemeASCII

// Train runs Hyperparameters.Epochs epochs over ds.
//
// Each epoch draws TrainSize samples from the sampler. Every sample is
// forwarded in training mode and back-propagated; every BatchSize samples the
// accumulated gradients are applied. A testing pass of TestSize draws in
// inference mode follows. Mean accuracies and the elapsed time are appended
// to the histories and the saving strategy is applied.
//
// Samples left over when TrainSize is not a multiple of BatchSize keep their
// gradients in the accumulators, which the first update of the next epoch
// applies together with its own batch.
func (n *Network) Train(ds Dataset) error {
	if _, err := n.lastDense(); err != nil {
		return err
	}
	if ds.TrainSize() <= 0 {
		return fmt.Errorf("%w: empty training set", nn.ErrConfiguration)
	}
	if n.hp.Saving.Policy != SaveNever && n.checkpointer == nil {
		return fmt.Errorf("%w: saving strategy %v needs a checkpointer", nn.ErrConfiguration, n.hp.Saving)
	}
	n.trainSize, n.testSize = ds.TrainSize(), ds.TestSize()

	bestTrain, bestTest := last(n.trainingHistory), last(n.testingHistory)
	klog.V(1).Infof("%s: training %d epochs on %d samples, %d test samples, batch %d, run %s",
		n.hp.Name, n.hp.Epochs, n.trainSize, n.testSize, n.hp.BatchSize, n.runID)

	for range n.hp.Epochs {
		epoch := n.epochsTrained
		bar := n.newProgressBar(epoch)

		trainAcc, err := n.trainEpoch(ds, bar)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if bar != nil {
			bar.Describe(fmt.Sprintf("Epoch %d: acc %.1f%% - Testing...", epoch, trainAcc*100))
		}

		testAcc, err := n.evaluate(ds, n.testSize)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if bar != nil {
			bar.Describe(fmt.Sprintf("Epoch %d: acc %.1f%% - Test: %.1f%%", epoch, trainAcc*100, testAcc*100))
			_ = bar.Finish()
		}

		n.trainingHistory = append(n.trainingHistory, trainAcc)
		n.testingHistory = append(n.testingHistory, testAcc)
		n.timeHistory = append(n.timeHistory, int(time.Since(n.createdAt).Seconds()))
		n.epochsTrained++
		klog.Infof("%s: epoch %d: train accuracy %.1f%%, test accuracy %.1f%%",
			n.hp.Name, epoch, trainAcc*100, testAcc*100)

		switch n.hp.Saving.Policy {
		case SaveEveryEpoch:
			err = n.save(n.hp.Saving.Full)
		case SaveBestTraining:
			err = n.saveIfBetter(trainAcc, &bestTrain)
		case SaveBestTesting:
			err = n.saveIfBetter(testAcc, &bestTest)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// trainEpoch runs the training half of an epoch and returns its mean accuracy.
func (n *Network) trainEpoch(ds Dataset, bar *progressbar.ProgressBar) (float32, error) {
	batch := n.hp.BatchSize
	everyN := n.hp.Saving.everyN(n.trainSize)

	var accSum, lossSum float32
	for i, idx := range n.sampler.Draw(n.trainSize, n.trainSize) {
		sample, label, err := ds.TrainSample(idx)
		if err != nil {
			return 0, fmt.Errorf("training sample %d: %w", idx, err)
		}
		class, err := classIndex(ds, label)
		if err != nil {
			return 0, err
		}
		if err := n.trainStep(sample, class); err != nil {
			return 0, fmt.Errorf("training sample %d: %w", idx, err)
		}
		accSum += n.Accuracy(class)
		lossSum += nn.CrossEntropy(n.Output(), class)

		if i%batch == batch-1 {
			n.Update(batch)
			if klog.V(2).Enabled() {
				klog.Infof("%s: batch %d: mean loss %.4f", n.hp.Name, i/batch, lossSum/float32(i+1))
			}
			if bar != nil {
				bar.Describe(fmt.Sprintf("Epoch %d: acc %.1f%%", n.epochsTrained, accSum/float32(i+1)*100))
				_ = bar.Add(1)
			}
		}
		if n.hp.Saving.Policy == SaveEveryNth && i%everyN == everyN-1 {
			if err := n.save(n.hp.Saving.Full); err != nil {
				return 0, err
			}
		}
	}
	return accSum / float32(n.trainSize), nil
}

// trainStep forwards one sample in training mode and back-propagates it.
func (n *Network) trainStep(sample *tensor.Tensor3, class int) error {
	err := exceptions.TryCatch[error](func() { n.ForwardPropagate(sample, true) })
	if err != nil {
		return err
	}
	return n.BackPropagate(class, true)
}

// Test runs TestSize inference passes over ds and returns the mean accuracy.
func (n *Network) Test(ds Dataset) (float32, error) {
	if _, err := n.lastDense(); err != nil {
		return 0, err
	}
	n.testSize = ds.TestSize()
	acc, err := n.evaluate(ds, n.testSize)
	if err != nil {
		return 0, err
	}
	klog.Infof("%s: test accuracy %.1f%%", n.hp.Name, acc*100)
	return acc, nil
}

// evaluate draws count testing samples and returns the mean accuracy, 0 for
// an empty testing set.
func (n *Network) evaluate(ds Dataset, count int) (float32, error) {
	if count <= 0 {
		return 0, nil
	}
	var accSum float32
	for _, idx := range n.sampler.Draw(ds.TestSize(), count) {
		sample, label, err := ds.TestSample(idx)
		if err != nil {
			return 0, fmt.Errorf("testing sample %d: %w", idx, err)
		}
		class, err := classIndex(ds, label)
		if err != nil {
			return 0, err
		}
		if _, err := n.Predict(sample); err != nil {
			return 0, fmt.Errorf("testing sample %d: %w", idx, err)
		}
		accSum += n.Accuracy(class)
	}
	return accSum / float32(count), nil
}

func classIndex(ds Dataset, label int) (int, error) {
	class, ok := ds.ClassIndex(label)
	if !ok {
		return 0, fmt.Errorf("%w: label %d has no class index", nn.ErrConfiguration, label)
	}
	return class, nil
}

// saveIfBetter does a full-policy save when acc beats *best, and a
// metadata-only save otherwise.
func (n *Network) saveIfBetter(acc float32, best *float32) error {
	if acc > *best {
		*best = acc
		return n.save(n.hp.Saving.Full)
	}
	return n.save(false)
}

func (n *Network) save(full bool) error {
	if err := n.checkpointer.Save(n, full); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	klog.V(1).Infof("%s: checkpoint written (full=%v, epochs=%d)", n.hp.Name, full, n.epochsTrained)
	return nil
}

// newProgressBar returns nil unless Verbose is set.
func (n *Network) newProgressBar(epoch int) *progressbar.ProgressBar {
	if !n.hp.Verbose {
		return nil
	}
	out := n.progressOut
	return progressbar.NewOptions(n.trainSize/n.hp.BatchSize,
		progressbar.OptionSetDescription(fmt.Sprintf("Epoch %d", epoch)),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(out, "\n") }),
	)
}

func last(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}
