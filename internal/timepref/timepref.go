// Package timepref implements spec.md §4.2: converting a passenger's
// preferred departure window into a normal distribution and scoring the
// temporal overlap between two passengers' preferences.
//
// Grounded on original_source/src/yatry/utils/helpers/time.go's
// create_time_convenience_func, generalized onto gonum's distuv.Normal for
// the standard-normal CDF/quantile instead of a hand-rolled erf.
package timepref

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"ride-consolidation/internal/models"
)

// DefaultMRange is the default tail-mass parameter used when a caller does
// not supply one.
const DefaultMRange = 0.8

var standardNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Distribution is a tuple (Mu, Sigma) derived from a passenger's preferred
// window, with the invariant Sigma > 0.
type Distribution struct {
	Mu    float64
	Sigma float64
}

// Derive computes (mu, sigma) for a [tMin, tMax] window with tail-mass
// parameter mRange: mu = (tMin+tMax)/2, sigma = (tMax-tMin) /
// (2*Phi^-1((1+mRange)/2)).
func Derive(tMin, tMax, mRange float64) (Distribution, error) {
	if !(tMin < tMax) {
		return Distribution{}, fmt.Errorf("timepref: t_min=%v must be less than t_max=%v", tMin, tMax)
	}
	if !(mRange > 0 && mRange < 1) {
		return Distribution{}, fmt.Errorf("timepref: m_range=%v must be in (0,1)", mRange)
	}
	mu := (tMin + tMax) / 2
	quantile := standardNormal.Quantile((1 + mRange) / 2)
	sigma := (tMax - tMin) / (2 * quantile)
	if !(sigma > 0) {
		return Distribution{}, fmt.Errorf("timepref: derived sigma=%v is not positive", sigma)
	}
	return Distribution{Mu: mu, Sigma: sigma}, nil
}

// DeriveFromWindow is a convenience wrapper over a models.TimeWindow.
func DeriveFromWindow(w models.TimeWindow, mRange float64) (Distribution, error) {
	return Derive(w.TMin, w.TMax, mRange)
}

// clip01 clamps x to [0, 1].
func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// TemporalAffinity computes how much of passenger i's preference mass
// falls inside passenger j's window [jMin, jMax]:
//
//	clip_[0,1]((Phi((jMax-mu_i)/sigma_i) - Phi((jMin-mu_i)/sigma_i)) / mRange)
//
// This is not symmetric: it measures i's affinity toward j, not vice versa.
func TemporalAffinity(di Distribution, jMin, jMax, mRange float64) float64 {
	n := distuv.Normal{Mu: di.Mu, Sigma: di.Sigma}
	// Mass of i's distribution falling inside [jMin, jMax]. When i == j
	// this equals mRange by construction of Derive, so clip01(./mRange)
	// is exactly 1, matching the self-affinity invariant.
	massInside := n.CDF(jMax) - n.CDF(jMin)
	return clip01(massInside / mRange)
}
