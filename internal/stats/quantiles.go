package stats

import (
	"fmt"

	"github.com/DataDog/sketches-go/ddsketch"
)

// DefaultAccuracy is the relative accuracy of quantile estimates.
const DefaultAccuracy = 0.01

// Quantiles estimates quantiles of a non-negative series in bounded memory.
type Quantiles struct {
	sketch *ddsketch.DDSketch
}

func NewQuantiles(accuracy float64) (*Quantiles, error) {
	s, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return nil, fmt.Errorf("quantile sketch: %w", err)
	}
	return &Quantiles{sketch: s}, nil
}

// MustQuantiles is NewQuantiles for a known-good accuracy.
func MustQuantiles(accuracy float64) *Quantiles {
	q, err := NewQuantiles(accuracy)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Quantiles) Add(x float64) error {
	return q.sketch.Add(x)
}

func (q *Quantiles) Count() int { return int(q.sketch.GetCount()) }

// At returns the estimated value at quantile p in [0, 1].
func (q *Quantiles) At(p float64) (float64, error) {
	if q.sketch.IsEmpty() {
		return 0, ErrInsufficientSamples
	}
	return q.sketch.GetValueAtQuantile(p)
}

// Percentiles returns the values at each of ps, keyed by the quantile.
func (q *Quantiles) Percentiles(ps ...float64) (map[float64]float64, error) {
	out := make(map[float64]float64, len(ps))
	for _, p := range ps {
		v, err := q.At(p)
		if err != nil {
			return nil, err
		}
		out[p] = v
	}
	return out, nil
}
