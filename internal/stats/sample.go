// Package stats holds the accumulators aggregations use to summarise event
// series: running moments and a quantile sketch.
package stats

import (
	"errors"
	"math"
)

// ErrInsufficientSamples is returned when a statistic needs more samples
// than have been observed.
var ErrInsufficientSamples = errors.New("insufficient samples")

// Sample accumulates a series with Welford's online algorithm.
type Sample struct {
	n        int
	mean     float64
	m2       float64
	sum      float64
	min, max float64
}

// Add records x.
func (s *Sample) Add(x float64) {
	s.n++
	s.sum += x
	if s.n == 1 {
		s.min, s.max = x, x
	} else {
		s.min = math.Min(s.min, x)
		s.max = math.Max(s.max, x)
	}
	d := x - s.mean
	s.mean += d / float64(s.n)
	s.m2 += d * (x - s.mean)
}

func (s *Sample) Count() int   { return s.n }
func (s *Sample) Sum() float64 { return s.sum }

// Mean returns the arithmetic mean, or ErrInsufficientSamples when empty.
func (s *Sample) Mean() (float64, error) {
	if s.n == 0 {
		return 0, ErrInsufficientSamples
	}
	return s.mean, nil
}

// Variance returns the sample variance (n-1 denominator). It needs at least
// two samples.
func (s *Sample) Variance() (float64, error) {
	if s.n < 2 {
		return 0, ErrInsufficientSamples
	}
	return s.m2 / float64(s.n-1), nil
}

// StdDev is the square root of Variance.
func (s *Sample) StdDev() (float64, error) {
	v, err := s.Variance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

func (s *Sample) Min() (float64, error) {
	if s.n == 0 {
		return 0, ErrInsufficientSamples
	}
	return s.min, nil
}

func (s *Sample) Max() (float64, error) {
	if s.n == 0 {
		return 0, ErrInsufficientSamples
	}
	return s.max, nil
}
