package match

import (
	"pricewatch-service/config"
)

// Candidate is one side of a scoring pair: the raw listing name plus an
// optionally pre-supplied brand (a fetcher-provided brand beats extraction).
type Candidate struct {
	Name  string
	Brand string
}

// Breakdown reports the per-factor contributions behind a score.
type Breakdown struct {
	Fuzzy    float64 `json:"fuzzy"`
	Brand    float64 `json:"brand"`
	SKU      float64 `json:"sku"`
	Capacity float64 `json:"capacity"`
}

// Scorer combines the fuzzy ratio of the normalized names with brand, SKU
// and capacity agreement into one 0-100 confidence score. Credits are only
// ever granted on positive agreement: a signal missing on either side
// contributes zero, never a penalty, so an unbranded listing can still
// match on name similarity alone.
type Scorer struct {
	norm      *Normalizer
	extractor *Extractor
	cfg       *config.Matching
}

// NewScorer builds a scorer and its normalizer/extractor from the matching
// configuration.
func NewScorer(cfg *config.Matching) *Scorer {
	n := NewNormalizer(cfg)
	return &Scorer{
		norm:      n,
		extractor: NewExtractor(cfg, n),
		cfg:       cfg,
	}
}

// Normalizer exposes the scorer's normalizer for callers that need the
// canonical name form (the resolver, the ingest validator).
func (s *Scorer) Normalizer() *Normalizer { return s.norm }

// Extractor exposes the scorer's attribute extractor.
func (s *Scorer) Extractor() *Extractor { return s.extractor }

// Score returns the match confidence for a pair of candidates, capped at
// 100, with the factor breakdown. Symmetric: Score(a,b) == Score(b,a).
// Total over any input; malformed names score low, they never fail.
func (s *Scorer) Score(a, b Candidate) (float64, Breakdown) {
	var bd Breakdown

	bd.Fuzzy = fuzzyRatio(s.norm.Normalize(a.Name), s.norm.Normalize(b.Name))

	brandA := s.resolveBrand(a)
	brandB := s.resolveBrand(b)
	if brandA != "" && brandB != "" && Fold(brandA) == Fold(brandB) {
		bd.Brand = s.cfg.BrandCredit
	}

	skuA := s.extractor.SKU(a.Name)
	skuB := s.extractor.SKU(b.Name)
	if skuA != "" && skuA == skuB {
		bd.SKU = s.cfg.SKUCredit
	}

	if numericsIntersect(s.extractor.Numerics(a.Name), s.extractor.Numerics(b.Name)) {
		bd.Capacity = s.cfg.CapacityCredit
	}

	score := bd.Fuzzy + bd.Brand + bd.SKU + bd.Capacity
	if score > 100 {
		score = 100
	}
	return score, bd
}

// IsMatch applies the hard decision boundary: strictly above the
// configured threshold.
func (s *Scorer) IsMatch(score float64) bool {
	return score > s.cfg.MatchThreshold
}

func (s *Scorer) resolveBrand(c Candidate) string {
	if c.Brand != "" {
		return s.extractor.CanonicalBrand(c.Brand)
	}
	return s.extractor.Brand(c.Name)
}

func numericsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
