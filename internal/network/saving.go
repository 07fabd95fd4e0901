package network

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/convnet/internal/nn"
)

// SavePolicy selects when Train writes checkpoints.
type SavePolicy string

// Checkpoint policies.
const (
	SaveNever        SavePolicy = "never"
	SaveEveryEpoch   SavePolicy = "every_epoch"
	SaveEveryNth     SavePolicy = "every_nth_epoch"
	SaveBestTraining SavePolicy = "best_training_accuracy"
	SaveBestTesting  SavePolicy = "best_testing_accuracy"
)

// SavingStrategy is a checkpoint policy with its parameters.
//
// Full selects a full save (parameters included) over a metadata-only one.
// Fraction is only used by SaveEveryNth: a checkpoint is written every
// int(TrainSize*Fraction) training iterations, so 0.5 saves twice per epoch.
//
// The best-accuracy policies do a full save when the epoch improves on the
// best value seen so far and a metadata-only save otherwise.
type SavingStrategy struct {
	Policy   SavePolicy `json:"policy"`
	Full     bool       `json:"full"`
	Fraction float32    `json:"fraction,omitempty"`
}

// Never disables checkpoints.
func Never() SavingStrategy { return SavingStrategy{Policy: SaveNever} }

// EveryEpoch saves after every epoch.
func EveryEpoch(full bool) SavingStrategy {
	return SavingStrategy{Policy: SaveEveryEpoch, Full: full}
}

// EveryNthEpoch saves every int(TrainSize*fraction) training iterations.
func EveryNthEpoch(full bool, fraction float32) SavingStrategy {
	return SavingStrategy{Policy: SaveEveryNth, Full: full, Fraction: fraction}
}

// BestTrainingAccuracy saves when the epoch training accuracy improves.
func BestTrainingAccuracy(full bool) SavingStrategy {
	return SavingStrategy{Policy: SaveBestTraining, Full: full}
}

// BestTestingAccuracy saves when the epoch testing accuracy improves.
func BestTestingAccuracy(full bool) SavingStrategy {
	return SavingStrategy{Policy: SaveBestTesting, Full: full}
}

// Validate checks the policy and its parameters.
func (s SavingStrategy) Validate() error {
	switch s.Policy {
	case SaveNever, SaveEveryEpoch, SaveBestTraining, SaveBestTesting:
		return nil
	case SaveEveryNth:
		if s.Fraction <= 0 {
			return fmt.Errorf("%w: saving fraction %g must be > 0", nn.ErrConfiguration, s.Fraction)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown saving policy %q", nn.ErrConfiguration, s.Policy)
	}
}

// everyN returns the iteration period of SaveEveryNth for a training set size.
func (s SavingStrategy) everyN(trainSize int) int {
	return max(int(float32(trainSize)*s.Fraction), 1)
}

// String returns the flag form accepted by ParseSavingStrategy.
func (s SavingStrategy) String() string {
	var b strings.Builder
	b.WriteString(string(s.Policy))
	if s.Policy == SaveEveryNth {
		b.WriteString(":" + strconv.FormatFloat(float64(s.Fraction), 'g', -1, 32))
	}
	if s.Policy != SaveNever && s.Full {
		b.WriteString(":full")
	}
	return b.String()
}

// ParseSavingStrategy parses "never", "every_epoch[:full]",
// "every_nth_epoch:<fraction>[:full]", "best_training_accuracy[:full]" or
// "best_testing_accuracy[:full]".
func ParseSavingStrategy(text string) (SavingStrategy, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	s := SavingStrategy{Policy: SavePolicy(strings.ToLower(parts[0]))}
	rest := parts[1:]

	if s.Policy == SaveEveryNth {
		if len(rest) == 0 {
			return SavingStrategy{}, fmt.Errorf("%w: %q needs a fraction", nn.ErrConfiguration, text)
		}
		f, err := strconv.ParseFloat(rest[0], 32)
		if err != nil {
			return SavingStrategy{}, fmt.Errorf("%w: bad fraction in %q: %v", nn.ErrConfiguration, text, err)
		}
		s.Fraction = float32(f)
		rest = rest[1:]
	}
	switch {
	case len(rest) == 1 && rest[0] == "full" && s.Policy != SaveNever:
		s.Full = true
	case len(rest) != 0:
		return SavingStrategy{}, fmt.Errorf("%w: unexpected %q in saving strategy %q", nn.ErrConfiguration, strings.Join(rest, ":"), text)
	}
	return s, s.Validate()
}
