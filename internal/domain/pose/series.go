package pose

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series accumulates a per-frame measurement over an attempt so evaluators
// can report distribution statistics instead of a single noisy frame value.
// The zero value is ready to use.
type Series struct {
	values []float64
}

// Append records one observation.
func (s *Series) Append(v float64) {
	s.values = append(s.values, v)
}

// Count returns the number of recorded observations.
func (s *Series) Count() int {
	return len(s.values)
}

// Mean returns the arithmetic mean, or 0 for an empty series.
func (s *Series) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return stat.Mean(s.values, nil)
}

// StdDev returns the sample standard deviation, or 0 with fewer than two
// observations.
func (s *Series) StdDev() float64 {
	if len(s.values) < 2 {
		return 0
	}
	return stat.StdDev(s.values, nil)
}

// Min returns the smallest observation, or 0 for an empty series.
func (s *Series) Min() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return floats.Min(s.values)
}

// Max returns the largest observation, or 0 for an empty series.
func (s *Series) Max() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return floats.Max(s.values)
}

// Range returns Max minus Min.
func (s *Series) Range() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return floats.Max(s.values) - floats.Min(s.values)
}

// Reset discards all observations, keeping the backing storage.
func (s *Series) Reset() {
	s.values = s.values[:0]
}

// SymmetryPercent expresses the gap between a left and right measurement as
// a percentage of their mean: |L-R| / mean(L,R) * 100. Both sides zero (or a
// zero mean) yield 0 rather than a division blowup.
func SymmetryPercent(left, right float64) float64 {
	mean := (left + right) / 2
	if mean == 0 {
		return 0
	}
	diff := left - right
	if diff < 0 {
		diff = -diff
	}
	return diff / mean * 100
}
