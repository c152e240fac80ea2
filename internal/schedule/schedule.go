// Package schedule implements spec.md §4.6: choosing a single common
// departure time that minimizes the aggregate negative log-likelihood
// across a group's individual time preferences.
//
// Grounded on original_source/src/yatry/utils/optim/temporal.go
// (optimize_dep_time, built on scipy.optimize.golden), reimplemented as a
// from-scratch golden-section search since no pack dependency offers
// scalar unconstrained optimization.
package schedule

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BracketPolicy selects how the search bracket's upper bound is derived
// from the group's (mu, sigma) pairs, per spec.md §9's resolved open
// question.
type BracketPolicy int

const (
	// BracketNarrowPrototype reproduces the prototype's bracket exactly:
	// both ends derived via min(), so the upper end is the earliest
	// mu+3*sigma in the group rather than spanning every passenger's
	// plausible departure window. Kept as the default so
	// this module's numeric behavior matches the worked example in
	// spec.md §8.
	BracketNarrowPrototype BracketPolicy = iota
	// BracketWide spans every passenger's plausible range: lower bound
	// min(mu-3*sigma), upper bound max(mu+3*sigma).
	BracketWide
)

const (
	goldenRatio      = 0.6180339887498949
	defaultTolerance = 1e-4
)

// ErrEmptyGroup is returned when Optimize is called with no passengers.
var ErrEmptyGroup = errors.New("schedule: at least one passenger is required")

// Preference is one passenger's derived normal time-preference
// distribution, matching timepref.Distribution's shape without importing
// that package, so schedule stays independently testable. TMin is carried
// alongside (Mu, Sigma) only for the non-finite fallback path, which
// spec.md §4.6 defines in terms of the group's raw t_min values rather
// than their derived means.
type Preference struct {
	Mu    float64
	Sigma float64
	TMin  float64
}

// Config controls the golden-section search.
type Config struct {
	BracketPolicy BracketPolicy
	Tolerance     float64 // fraction of bracket width; default 1e-4
}

// DefaultConfig returns spec.md §4.6's defaults.
func DefaultConfig() Config {
	return Config{BracketPolicy: BracketNarrowPrototype, Tolerance: defaultTolerance}
}

// Result is the optimized common departure time plus the diagnostic that
// lets callers detect the non-finite fallback.
type Result struct {
	DepartureTime float64
	Fallback      bool // true when the bracket or the search turned non-finite (any non-finite distribution does this) and the mean t_min was used instead
}

// Optimize finds the departure time minimizing the summed negative
// log-likelihood across prefs, per spec.md §4.6.
func Optimize(prefs []Preference, cfg Config) (Result, error) {
	if len(prefs) == 0 {
		return Result{}, ErrEmptyGroup
	}

	lo, hi := bracket(prefs, cfg.BracketPolicy)
	if !isFinite(lo) || !isFinite(hi) || lo >= hi {
		return Result{DepartureTime: meanTMin(prefs), Fallback: true}, nil
	}

	tol := cfg.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}

	objective := func(x float64) float64 {
		sum := 0.0
		for _, p := range prefs {
			n := distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}
			sum -= n.LogProb(x)
		}
		return sum
	}

	x := goldenSectionMinimize(objective, lo, hi, tol)
	if !isFinite(x) {
		return Result{DepartureTime: meanTMin(prefs), Fallback: true}, nil
	}
	return Result{DepartureTime: x}, nil
}

func bracket(prefs []Preference, policy BracketPolicy) (float64, float64) {
	lo := math.Inf(1)
	hiNarrow := math.Inf(1)
	hiWide := math.Inf(-1)
	for _, p := range prefs {
		l := p.Mu - 3*p.Sigma
		h := p.Mu + 3*p.Sigma
		if l < lo {
			lo = l
		}
		if h < hiNarrow {
			hiNarrow = h
		}
		if h > hiWide {
			hiWide = h
		}
	}
	if policy == BracketWide {
		return lo, hiWide
	}
	return lo, hiNarrow
}

// meanTMin returns the mean of the group's original t_min values, the
// fallback spec.md §4.6 specifies for non-finite golden-section results.
func meanTMin(prefs []Preference) float64 {
	sum := 0.0
	for _, p := range prefs {
		sum += p.TMin
	}
	return sum / float64(len(prefs))
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// goldenSectionMinimize finds an approximate minimizer of f over [lo, hi]
// via golden-section search, matching scipy.optimize.golden's default
// behavior of narrowing the bracket until its width is within tol of the
// original width.
func goldenSectionMinimize(f func(float64) float64, lo, hi, tol float64) float64 {
	width := hi - lo
	if width <= 0 {
		return (lo + hi) / 2
	}

	x1 := hi - goldenRatio*width
	x2 := lo + goldenRatio*width
	f1 := f(x1)
	f2 := f(x2)

	for (hi - lo) > tol*width {
		if f1 < f2 {
			hi = x2
			x2 = x1
			f2 = f1
			x1 = hi - goldenRatio*(hi-lo)
			f1 = f(x1)
		} else {
			lo = x1
			x1 = x2
			f1 = f2
			x2 = lo + goldenRatio*(hi-lo)
			f2 = f(x2)
		}
		if !isFinite(f1) || !isFinite(f2) {
			return math.NaN()
		}
	}

	return (lo + hi) / 2
}
