package service

import (
	"context"
	"sort"
	"time"

	"pricewatch-service/config"
	"pricewatch-service/internal/match"
	"pricewatch-service/internal/models"
	"pricewatch-service/internal/store"
	"pricewatch-service/internal/util"

	"go.uber.org/zap"
)

// Assignment is the resolver's verdict for one raw listing: which product
// it belongs to, whether that product was created in this run, and whether
// the decision needs human review.
type Assignment struct {
	Listing    models.RawListing
	Product    *models.Product
	Score      float64
	Breakdown  match.Breakdown
	Created    bool
	Overridden bool
	Ambiguous  bool
	Review     bool
	Reason     string
}

// CatalogIndex is the immutable-at-run-start product index the resolver
// scores against. Products created during the run are appended, so two
// similar first-ever listings from different sites in the same run land on
// one product instead of racing to create two.
type CatalogIndex struct {
	products []*models.Product
	byID     map[int64]*models.Product
	byName   map[string]*models.Product
	counts   map[int64]int
}

// NewCatalogIndex builds the index from the persisted catalog plus the
// per-product snapshot counts used for tie-breaks.
func NewCatalogIndex(products []models.Product, counts map[int64]int) *CatalogIndex {
	idx := &CatalogIndex{
		byID:   make(map[int64]*models.Product, len(products)),
		byName: make(map[string]*models.Product, len(products)),
		counts: counts,
	}
	if idx.counts == nil {
		idx.counts = make(map[int64]int)
	}
	for i := range products {
		p := &products[i]
		idx.products = append(idx.products, p)
		idx.byID[p.ID] = p
		idx.byName[p.NormalizedName] = p
	}
	return idx
}

// Add registers a run-created product so later candidates in the same run
// can resolve to it.
func (idx *CatalogIndex) Add(p *models.Product) {
	idx.products = append(idx.products, p)
	idx.byName[p.NormalizedName] = p
}

// Size returns the number of indexed products.
func (idx *CatalogIndex) Size() int { return len(idx.products) }

func (idx *CatalogIndex) snapshotCount(p *models.Product) int {
	if p.ID == 0 {
		return 0 // run-created, no history yet
	}
	return idx.counts[p.ID]
}

// ScoreCache memoizes match scores between daily runs, keyed by the
// normalized-name pair.
type ScoreCache interface {
	CachedScore(ctx context.Context, nameA, nameB string) (float64, bool, error)
	CacheScore(ctx context.Context, nameA, nameB string, score float64, ttl time.Duration) error
}

// catalog names are stable enough that a remembered pair score outlives
// several runs
const scoreCacheTTL = 7 * 24 * time.Hour

// Resolver owns the assign-or-create decision. It is serialized per run:
// one resolver walks one run's candidates against one index.
type Resolver struct {
	scorer *match.Scorer
	cfg    *config.Matching
	cache  ScoreCache
	logger *zap.Logger
}

// NewResolver creates a resolver around a scorer and the matching config.
// A nil cache disables score memoization.
func NewResolver(scorer *match.Scorer, cfg *config.Matching, cache ScoreCache) *Resolver {
	return &Resolver{
		scorer: scorer,
		cfg:    cfg,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// Resolve assigns one listing to a product, consulting overrides first,
// then exact canonical-name identity, then scoring against every indexed
// product. Never fails: a listing that matches nothing creates a product.
func (r *Resolver) Resolve(ctx context.Context, listing models.RawListing, idx *CatalogIndex, overrides map[string]int64) Assignment {
	a := Assignment{Listing: listing}

	// 1. manual override short-circuits scoring entirely
	if pid, ok := overrides[store.OverrideKey(listing.Site, listing.Name)]; ok {
		if p, found := idx.byID[pid]; found {
			a.Product = p
			a.Overridden = true
			a.Score = 100
			a.Reason = "manual override"
			r.fillFromListing(p, listing)
			return a
		}
		r.logger.Error("Manual override points at unknown product",
			zap.String("site", listing.Site),
			zap.String("name", listing.Name),
			zap.Int64("product_id", pid))
	}

	normalized := r.scorer.Normalizer().Normalize(listing.Name)

	// 2. a name normalizing to nothing still gets an identity, flagged
	if normalized == "" {
		a.Product = r.newProduct(listing, match.Fold(listing.Name))
		idx.Add(a.Product)
		a.Created = true
		a.Review = true
		a.Reason = "name normalized to empty"
		r.logger.Warn("Listing name normalized to empty",
			zap.String("site", listing.Site),
			zap.String("name", listing.Name))
		return a
	}

	// 3. exact canonical identity
	if p, ok := idx.byName[normalized]; ok {
		a.Product = p
		a.Score = 100
		a.Reason = "exact normalized name"
		r.fillFromListing(p, listing)
		return a
	}

	// 4. score against the whole index
	candidate := match.Candidate{Name: listing.Name, Brand: listing.Brand}
	best, ties := r.scoreAll(ctx, normalized, candidate, idx)
	if best != nil && r.scorer.IsMatch(best.score) {
		winner := r.tieBreak(best, ties, idx)
		a.Product = winner.product
		a.Score = winner.score
		a.Breakdown = winner.breakdown
		a.Reason = "scored match"
		r.fillFromListing(winner.product, listing)
		if len(ties) > 1 {
			a.Ambiguous = true
			a.Review = true
			a.Reason = "ambiguous match resolved by tie-break"
			r.logger.Warn("Ambiguous match",
				zap.String("site", listing.Site),
				zap.String("name", listing.Name),
				zap.Int64("assigned_product", winner.product.ID),
				zap.Float64("score", winner.score),
				zap.Int("contenders", len(ties)))
		}
		return a
	}

	// 5. below threshold: a new identity, by design not an error
	a.Product = r.newProduct(listing, normalized)
	idx.Add(a.Product)
	a.Created = true
	a.Reason = "no match above threshold"
	if best != nil {
		a.Score = best.score
		a.Breakdown = best.breakdown
		if best.score >= r.cfg.NearMiss {
			a.Review = true
			a.Reason = "near miss below threshold"
			r.logger.Warn("Near-miss match",
				zap.String("site", listing.Site),
				zap.String("name", listing.Name),
				zap.String("closest", best.product.NormalizedName),
				zap.Float64("score", best.score))
		}
	}
	return a
}

type scored struct {
	product   *models.Product
	score     float64
	breakdown match.Breakdown
}

// scoreAll returns the best-scoring product and every contender above the
// threshold within the ambiguity band of the best.
func (r *Resolver) scoreAll(ctx context.Context, normalized string, candidate match.Candidate, idx *CatalogIndex) (*scored, []scored) {
	var best *scored
	var aboveThreshold []scored

	for _, p := range idx.products {
		score, bd := r.scorePair(ctx, normalized, candidate, p)
		s := scored{product: p, score: score, breakdown: bd}
		if best == nil || score > best.score {
			c := s
			best = &c
		}
		if r.scorer.IsMatch(score) {
			aboveThreshold = append(aboveThreshold, s)
		}
	}
	if best == nil {
		return nil, nil
	}

	var ties []scored
	for _, s := range aboveThreshold {
		if best.score-s.score <= r.cfg.AmbiguityBand {
			ties = append(ties, s)
		}
	}
	return best, ties
}

// scorePair scores one candidate/product pair, consulting the cache first.
// High-confidence results are memoized so repeated daily runs skip the
// fuzzy work; cache failures degrade to scoring.
func (r *Resolver) scorePair(ctx context.Context, normalized string, candidate match.Candidate, p *models.Product) (float64, match.Breakdown) {
	if r.cache != nil {
		if score, ok, err := r.cache.CachedScore(ctx, normalized, p.NormalizedName); err != nil {
			r.logger.Warn("Score cache read failed", zap.Error(err))
		} else if ok {
			return score, match.Breakdown{Fuzzy: score}
		}
	}

	score, bd := r.scorer.Score(candidate, match.Candidate{Name: p.NormalizedName, Brand: p.Brand})
	if r.cache != nil && score >= r.cfg.HighConfidence {
		if err := r.cache.CacheScore(ctx, normalized, p.NormalizedName, score, scoreCacheTTL); err != nil {
			r.logger.Warn("Score cache write failed", zap.Error(err))
		}
	}
	return score, bd
}

// fillFromListing lets a matched listing teach its product a brand or
// category the catalog lacks; stored values are never overwritten.
func (r *Resolver) fillFromListing(p *models.Product, listing models.RawListing) {
	ext := r.scorer.Extractor()
	if p.Brand == "" {
		if listing.Brand != "" {
			p.Brand = ext.CanonicalBrand(listing.Brand)
		} else {
			p.Brand = ext.Brand(listing.Name)
		}
	}
	if p.Category == "" {
		p.Category = r.scorer.Normalizer().Category(listing.Name)
	}
}

// tieBreak picks among contenders inside the ambiguity band: the
// established identity (most prior snapshots) by default, the newest
// product when configured that way.
func (r *Resolver) tieBreak(best *scored, ties []scored, idx *CatalogIndex) scored {
	if len(ties) <= 1 {
		return *best
	}
	winner := ties[0]
	for _, s := range ties[1:] {
		if r.preferOver(s, winner, idx) {
			winner = s
		}
	}
	return winner
}

func (r *Resolver) preferOver(a, b scored, idx *CatalogIndex) bool {
	ca, cb := idx.snapshotCount(a.product), idx.snapshotCount(b.product)
	if r.cfg.TieBreak == "newest" {
		if a.product.ID != b.product.ID {
			return a.product.ID > b.product.ID
		}
	} else if ca != cb {
		return ca > cb
	}
	if a.score != b.score {
		return a.score > b.score
	}
	return a.product.ID < b.product.ID
}

func (r *Resolver) newProduct(listing models.RawListing, normalized string) *models.Product {
	ext := r.scorer.Extractor()
	brand := listing.Brand
	if brand != "" {
		brand = ext.CanonicalBrand(brand)
	} else {
		brand = ext.Brand(listing.Name)
	}
	return &models.Product{
		NormalizedName: normalized,
		Brand:          brand,
		Category:       r.scorer.Normalizer().Category(listing.Name),
	}
}

// SortAssignments orders assignments deterministically for commit and
// detection (site, then product name).
func SortAssignments(assignments []Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		if assignments[i].Listing.Site != assignments[j].Listing.Site {
			return assignments[i].Listing.Site < assignments[j].Listing.Site
		}
		return assignments[i].Listing.Name < assignments[j].Listing.Name
	})
}
