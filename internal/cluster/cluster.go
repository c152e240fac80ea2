// Package cluster implements the Affinity Propagation message-passing
// procedure of spec.md §4.4: given a similarity matrix, it discovers a
// variable number of exemplar-centered groups without fixing their count
// in advance.
//
// Grounded on
// original_source/src/yatry/utils/optim/clustering.go
// (affinity_propagation_ride_sharing), generalized from raw numpy loops
// onto gonum/mat-backed dense matrices, with the spec's mandated min-max
// rescaling and percentile preference applied up front (resolving the
// prototype's inconsistent scaling, per spec.md §9's open question).
package cluster

import (
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config controls the message-passing procedure.
type Config struct {
	Damping              float64 // lambda in [0.5, 1)
	MaxIter              int
	ConvTol              float64
	PreferencePercentile float64 // in [0, 100], default 50
}

// DefaultConfig returns the spec.md §4.4 defaults.
func DefaultConfig() Config {
	return Config{
		Damping:              0.7,
		MaxIter:              500,
		ConvTol:              1e-6,
		PreferencePercentile: 50,
	}
}

// Diagnostics reports non-fatal conditions observed during Run, per
// spec.md §7 ("no-convergence ... surfaced as a diagnostic only").
type Diagnostics struct {
	Converged         bool
	Iterations        int
	NumericalFallback bool
}

// Result is a clustering: a partition of {0,...,N-1}, each part with a
// designated exemplar drawn from that part.
type Result struct {
	Exemplars []int
	Members   map[int][]int // exemplar -> member indices, member index order
	Diagnostics
}

// Run rescales rawSimilarity into [0,1] via min-max normalization,
// injects a preference value on the diagonal at the configured
// percentile of the whole rescaled matrix, and runs affinity propagation
// to convergence or MaxIter. A non-finite input value, or one arising
// during the updates, yields the single-exemplar fallback.
func Run(rawSimilarity *mat.Dense, cfg Config) Result {
	n, m := rawSimilarity.Dims()
	if n != m {
		panic("cluster: similarity matrix must be square")
	}
	if n == 0 {
		return Result{Members: map[int][]int{}}
	}
	if hasNonFinite(rawSimilarity) {
		log.Printf("[CLUSTER] numerical fallback: non-finite similarity input")
		return singleExemplarFallback(n)
	}

	s := rescale(rawSimilarity)
	pref := percentile(s.RawMatrix().Data, cfg.PreferencePercentile)
	for k := 0; k < n; k++ {
		s.Set(k, k, pref)
	}

	r := mat.NewDense(n, n, nil)
	v := mat.NewDense(n, n, nil)

	converged := false
	iterations := 0
	fallback := false

	for iter := 0; iter < cfg.MaxIter; iter++ {
		iterations = iter + 1
		rOld := mat.DenseCopyOf(r)
		vOld := mat.DenseCopyOf(v)

		updateResponsibility(r, v, s, cfg.Damping)
		updateAvailability(r, v, cfg.Damping)

		if hasNonFinite(r) || hasNonFinite(v) {
			fallback = true
			break
		}

		delta := l1Diff(r, rOld) + l1Diff(v, vOld)
		if delta < cfg.ConvTol {
			converged = true
			break
		}
	}

	if fallback {
		log.Printf("[CLUSTER] numerical fallback after iterations=%d", iterations)
		return singleExemplarFallback(n)
	}

	d := mat.NewDense(n, n, nil)
	d.Add(r, v)

	exemplars := extractExemplars(d, n)
	members := assign(d, exemplars, n)

	log.Printf("[CLUSTER] converged=%v iterations=%d exemplars=%d", converged, iterations, len(exemplars))
	return Result{
		Exemplars: exemplars,
		Members:   members,
		Diagnostics: Diagnostics{
			Converged:  converged,
			Iterations: iterations,
		},
	}
}

func updateResponsibility(r, v, s *mat.Dense, damping float64) {
	n, _ := s.Dims()
	for i := 0; i < n; i++ {
		// max_{k' != k}(V[i,k'] + S[i,k']) for every k, computed via the
		// standard top-two trick: track the best and second-best value
		// and which index achieved the best.
		best, secondBest := math.Inf(-1), math.Inf(-1)
		bestIdx := -1
		for kp := 0; kp < n; kp++ {
			val := v.At(i, kp) + s.At(i, kp)
			if val > best {
				secondBest = best
				best = val
				bestIdx = kp
			} else if val > secondBest {
				secondBest = val
			}
		}
		for k := 0; k < n; k++ {
			var maxExclK float64
			if k == bestIdx {
				maxExclK = secondBest
			} else {
				maxExclK = best
			}
			rNew := s.At(i, k) - maxExclK
			damped := (1-damping)*rNew + damping*r.At(i, k)
			r.Set(i, k, damped)
		}
	}
}

func updateAvailability(r, v *mat.Dense, damping float64) {
	n, _ := r.Dims()
	// positiveColSum[k] = sum over i' of max(0, R[i',k])
	positiveColSum := make([]float64, n)
	for k := 0; k < n; k++ {
		sum := 0.0
		for ip := 0; ip < n; ip++ {
			sum += math.Max(0, r.At(ip, k))
		}
		positiveColSum[k] = sum
	}

	for k := 0; k < n; k++ {
		selfTerm := positiveColSum[k] - math.Max(0, r.At(k, k))
		for i := 0; i < n; i++ {
			var aNew float64
			if i == k {
				aNew = selfTerm
			} else {
				sum := positiveColSum[k] - math.Max(0, r.At(i, k)) - math.Max(0, r.At(k, k))
				aNew = math.Min(0, r.At(k, k)+sum)
			}
			damped := (1-damping)*aNew + damping*v.At(i, k)
			v.Set(i, k, damped)
		}
	}
}

func hasNonFinite(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}

func l1Diff(a, b *mat.Dense) float64 {
	r, c := a.Dims()
	diff := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff = append(diff, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return floats.Sum(diff)
}

func extractExemplars(d *mat.Dense, n int) []int {
	var exemplars []int
	for k := 0; k < n; k++ {
		if d.At(k, k) > 0 {
			exemplars = append(exemplars, k)
		}
	}
	if len(exemplars) == 0 {
		best := 0
		bestVal := d.At(0, 0)
		for k := 1; k < n; k++ {
			if d.At(k, k) > bestVal {
				bestVal = d.At(k, k)
				best = k
			}
		}
		exemplars = []int{best}
	}
	return exemplars
}

func assign(d *mat.Dense, exemplars []int, n int) map[int][]int {
	exemplarSet := make(map[int]struct{}, len(exemplars))
	for _, e := range exemplars {
		exemplarSet[e] = struct{}{}
	}

	members := make(map[int][]int, len(exemplars))
	for _, e := range exemplars {
		members[e] = []int{e}
	}

	for i := 0; i < n; i++ {
		if _, ok := exemplarSet[i]; ok {
			continue
		}
		bestExemplar := exemplars[0]
		bestScore := math.Inf(-1)
		for _, e := range exemplars {
			score := d.At(i, e)
			if score > bestScore {
				bestScore = score
				bestExemplar = e
			}
			// ties broken by lowest index: exemplars is iterated in
			// ascending order and strict '>' keeps the first (lowest)
			// winner on ties.
		}
		members[bestExemplar] = append(members[bestExemplar], i)
	}

	for e := range members {
		sort.Ints(members[e])
	}
	return members
}

func singleExemplarFallback(n int) Result {
	// With no usable R/V, fall back to a single exemplar at index 0; a
	// caller with a genuinely informative similarity matrix essentially
	// never reaches this path (it requires NaN/Inf mid-iteration), so the
	// choice of exemplar here is arbitrary but deterministic.
	members := make([]int, n)
	for i := range members {
		members[i] = i
	}
	return Result{
		Exemplars: []int{0},
		Members:   map[int][]int{0: members},
		Diagnostics: Diagnostics{
			Converged:         false,
			NumericalFallback: true,
		},
	}
}

func rescale(src *mat.Dense) *mat.Dense {
	n, m := src.Dims()
	minV, maxV := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			v := src.At(i, j)
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	out := mat.NewDense(n, m, nil)
	span := maxV - minV
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if span <= 0 {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, (src.At(i, j)-minV)/span)
		}
	}
	return out
}

func offDiagonalValues(m *mat.Dense) []float64 {
	n, _ := m.Dims()
	values := make([]float64, 0, n*n-n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			values = append(values, m.At(i, j))
		}
	}
	if len(values) == 0 {
		// Single-point degenerate case: use the diagonal itself.
		values = append(values, m.At(0, 0))
	}
	return values
}

// percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
