package deconv

import (
	"math"
	"sort"

	"github.com/ChrisMcGann/IsoDecon/pkg/averagine"
	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// ClassicAlgorithm fits averagine isotope patterns to the most intense
// unclaimed peaks, one charge hypothesis at a time.
type ClassicAlgorithm struct {
	params ClassicParameters
	model  *averagine.Model
}

// NewClassic binds params, which must be *ClassicParameters.
func NewClassic(params Parameters, opts ...Option) (*ClassicAlgorithm, error) {
	p, ok := params.(*ClassicParameters)
	if !ok || p == nil {
		return nil, &core.ConfigurationMismatchError{Algorithm: Classic.String(), Parameters: describe(params)}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	model := o.model
	if p.MaxIsotopes > 0 {
		model = model.WithLimits(p.MaxIsotopes, averagine.DefaultMinProbability)
	}
	return &ClassicAlgorithm{params: *p, model: model}, nil
}

func (a *ClassicAlgorithm) Kind() AlgorithmKind { return Classic }

func (a *ClassicAlgorithm) Deconvolute(spectrum *core.MzSpectrum, rng core.MzRange) ([]IsotopicEnvelope, error) {
	first, last, err := extract(spectrum, rng)
	if err != nil || first == last {
		return nil, err
	}
	e := engine{
		minCharge:  a.params.MinCharge,
		maxCharge:  a.params.MaxCharge,
		tolerance:  core.PpmTolerance(a.params.TolerancePpm),
		ratioLimit: a.params.IntensityRatioLimit,
		minPeaks:   a.params.MinPeaks,
		polarity:   a.params.Polarity,
		model:      a.model,
	}
	clusters, err := e.cluster(spectrum.XArray()[first:last], spectrum.YArray()[first:last])
	if err != nil {
		return nil, err
	}
	envelopes := make([]IsotopicEnvelope, len(clusters))
	for i, c := range clusters {
		envelopes[i] = NewIsotopicEnvelope(i, c.peaks, c.mono, a.params.Polarity.Apply(c.charge), c.total, c.score)
	}
	return envelopes, nil
}

// engine is the averagine clustering shared by ClassicAlgorithm and LocalRoutine.
type engine struct {
	minCharge  int
	maxCharge  int
	tolerance  core.PpmTolerance
	ratioLimit float64
	minPeaks   int
	polarity   Polarity
	model      *averagine.Model
}

type cluster struct {
	charge  int // unsigned
	mono    float64
	alts    []float64
	peaks   []MzIntensity
	isoMz   []float64
	apex    float64
	total   float64
	score   float64
	claimed []int
}

// cluster walks peaks by descending intensity and keeps, for every unclaimed
// seed, the best scoring charge state. xs must be ascending.
func (e *engine) cluster(xs, ys []float64) ([]cluster, error) {
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return ys[order[i]] > ys[order[j]] })

	claimed := make([]bool, len(xs))
	var clusters []cluster
	for _, seed := range order {
		if claimed[seed] || ys[seed] <= 0 {
			continue
		}
		var best *cluster
		for z := e.minCharge; z <= e.maxCharge; z++ {
			c, err := e.fit(xs, ys, claimed, seed, z)
			if err != nil {
				return nil, err
			}
			if c != nil && (best == nil || c.score > best.score) {
				best = c
			}
		}
		if best == nil {
			continue
		}
		for _, idx := range best.claimed {
			claimed[idx] = true
		}
		clusters = append(clusters, *best)
	}
	return clusters, nil
}

// fit assumes the seed is the apex isotope of a species at charge z.
func (e *engine) fit(xs, ys []float64, claimed []bool, seed, z int) (*cluster, error) {
	signed := e.polarity.Apply(z)
	seedMass := core.ToMass(xs[seed], signed)
	if seedMass <= 0 {
		return nil, nil
	}
	dist, err := e.model.DistributionForMass(seedMass)
	if err != nil {
		return nil, err
	}
	apex := dist.MostAbundant()
	offsets := dist.Offsets()
	expected := dist.NormalizedToMax()
	mono := seedMass - offsets[apex]

	c := &cluster{charge: z, mono: mono, apex: ys[seed]}
	observed := make([]float64, len(offsets))
	for k := range offsets {
		mz := core.ToMz(mono+offsets[k], signed)
		c.isoMz = append(c.isoMz, mz)
		idx := seed
		if k != apex {
			idx = mostIntenseWithin(xs, ys, claimed, mz, e.tolerance)
			if idx >= 0 {
				ratio := ys[idx] / (expected[k] * ys[seed])
				if ratio > e.ratioLimit || ratio < 1/e.ratioLimit {
					idx = -1
				}
			}
		}
		if idx < 0 || idx == seed && k != apex {
			continue
		}
		observed[k] = ys[idx]
		c.peaks = append(c.peaks, MzIntensity{Mz: xs[idx], Intensity: ys[idx]})
		c.claimed = append(c.claimed, idx)
	}
	if len(c.peaks) < e.minPeaks {
		return nil, nil
	}
	c.total = floats.Sum(observed)
	c.score = float64(len(c.peaks)) * cosine(observed, expected)
	c.alts = []float64{mono}
	// past the point where the monoisotope dominates, neighbouring
	// assignments are plausible alternatives
	if apex > 0 {
		c.alts = append(c.alts, mono-core.C13MinusC12, mono+core.C13MinusC12)
	}
	return c, nil
}

// record encodes the cluster in routine output form.
func (c *cluster) record() Record {
	r := Record{
		Charge:           int32(c.charge),
		MonoisotopicMass: float32(c.mono),
		PeakIntensity:    float32(c.apex),
		Score:            float32(c.score),
	}
	n := min(len(c.isoMz), MaxIsotopes)
	r.IsotopeMz = make([]float32, n)
	for i := 0; i < n; i++ {
		r.IsotopeMz[i] = float32(c.isoMz[i])
	}
	for i := 0; i < len(c.alts) && i < MaxMonoisotopicCandidates; i++ {
		r.MonoisotopicCandidates[i] = float32(c.alts[i])
	}
	return r
}

// mostIntenseWithin returns the most intense unclaimed peak within tol of
// target, or -1.
func mostIntenseWithin(xs, ys []float64, claimed []bool, target float64, tol core.Tolerance) int {
	lo, hi := tol.Window(target)
	best := -1
	for i := sort.SearchFloat64s(xs, lo); i < len(xs) && xs[i] <= hi; i++ {
		if claimed != nil && claimed[i] {
			continue
		}
		if best < 0 || ys[i] > ys[best] {
			best = i
		}
	}
	return best
}

func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	v := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(v) {
		return 0
	}
	return v
}
