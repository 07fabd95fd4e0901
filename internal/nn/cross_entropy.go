package nn

import (
	"github.com/chewxy/math32"

	"github.com/born-ml/convnet/internal/tensor"
)

// minProb keeps log(0) out of the loss when a probability underflows.
const minProb = 1e-7

// CrossEntropy returns -log(probs[label]) for a softmax output.
//
// Gradient with respect to the softmax input:
//
//	∂L/∂z = probs - y_one_hot
//
// which is what CrossEntropyGrad returns. The Softmax backward pass is the
// all-ones vector because this gradient already folds it in.
func CrossEntropy(probs []float32, label int) float32 {
	if label < 0 || label >= len(probs) {
		panic("nn.CrossEntropy: label out of range")
	}
	return -math32.Log(math32.Max(probs[label], minProb))
}

// CrossEntropyGrad returns probs - one_hot(label, len(probs)).
func CrossEntropyGrad(probs []float32, label int) []float32 {
	if label < 0 || label >= len(probs) {
		panic("nn.CrossEntropyGrad: label out of range")
	}
	grad := tensor.OneHot(label, len(probs))
	for i, p := range probs {
		grad[i] = p - grad[i]
	}
	return grad
}
