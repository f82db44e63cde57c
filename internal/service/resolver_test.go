package service

import (
	"context"
	"testing"
	"time"

	"pricewatch-service/config"
	"pricewatch-service/internal/match"
	"pricewatch-service/internal/models"
	"pricewatch-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, *config.Matching) {
	t.Helper()
	cfg := config.DefaultMatching()
	require.NoError(t, cfg.Validate())
	return NewResolver(match.NewScorer(cfg), cfg, nil), cfg
}

func indexOf(products ...models.Product) *CatalogIndex {
	return NewCatalogIndex(products, nil)
}

func TestResolveManualOverrideWins(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf(models.Product{ID: 7, NormalizedName: "eko mikser 20lt"})
	overrides := map[string]int64{
		store.OverrideKey("competitor-a", "Completely Unrelated Name"): 7,
	}

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "competitor-a",
		Name: "Completely Unrelated Name",
	}, idx, overrides)

	require.NotNil(t, a.Product)
	assert.Equal(t, int64(7), a.Product.ID)
	assert.True(t, a.Overridden)
	assert.False(t, a.Created)
	assert.Equal(t, 100.0, a.Score)
}

func TestResolveOverrideBeatsEmptyNamePath(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf(models.Product{ID: 4, NormalizedName: "eko mikser 20lt"})
	overrides := map[string]int64{
		store.OverrideKey("competitor-a", "!!! ???"): 4,
	}

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "competitor-a",
		Name: "!!! ???",
	}, idx, overrides)

	require.NotNil(t, a.Product)
	assert.Equal(t, int64(4), a.Product.ID)
	assert.True(t, a.Overridden)
	assert.False(t, a.Created)
}

func TestResolveDanglingOverrideFallsThrough(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf(models.Product{ID: 1, NormalizedName: "eko mikser 20lt"})
	overrides := map[string]int64{
		store.OverrideKey("competitor-a", "Eko Mikser 20 Lt"): 999,
	}

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "competitor-a",
		Name: "Eko Mikser 20 Lt",
	}, idx, overrides)

	require.NotNil(t, a.Product)
	assert.False(t, a.Overridden)
	assert.Equal(t, int64(1), a.Product.ID)
}

func TestResolveExactNormalizedName(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf(models.Product{ID: 3, NormalizedName: "4gozlu ocak dogalgazli"})

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "competitor-a",
		Name: "4 Gözlü Ocak Doğalgazlı",
	}, idx, nil)

	require.NotNil(t, a.Product)
	assert.Equal(t, int64(3), a.Product.ID)
	assert.Equal(t, 100.0, a.Score)
	assert.False(t, a.Created)
}

func TestResolveCrossSiteVariantMatches(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf(models.Product{
		ID:             5,
		NormalizedName: "4gozlu ocak dogalgazli",
		Brand:          "Fagor",
	})

	a := r.Resolve(context.Background(), models.RawListing{
		Site:  "competitor-b",
		Name:  "Endüstriyel Kuzine 4 Burner",
		Brand: "Fagor",
	}, idx, nil)

	require.NotNil(t, a.Product)
	assert.Equal(t, int64(5), a.Product.ID, "reason: %s", a.Reason)
	assert.False(t, a.Created)
	assert.Greater(t, a.Score, 85.0)
}

func TestResolveBelowThresholdCreates(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf(models.Product{ID: 2, NormalizedName: "eko mikser 20lt"})

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "own-site",
		Name: "Sanayi Tipi Bulaşık Makinesi",
	}, idx, nil)

	require.NotNil(t, a.Product)
	assert.True(t, a.Created)
	assert.Zero(t, a.Product.ID)
	assert.Equal(t, 2, idx.Size())
}

func TestResolveEmptyNormalizedNameFlagged(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf()

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "own-site",
		Name: "!!! ???",
	}, idx, nil)

	require.NotNil(t, a.Product)
	assert.True(t, a.Created)
	assert.True(t, a.Review)
	assert.NotEmpty(t, a.Product.NormalizedName)
}

func TestResolveSameRunCrossSiteBootstrap(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf()

	first := r.Resolve(context.Background(), models.RawListing{
		Site:  "own-site",
		Name:  "4 Gözlü Endüstriyel Ocak Doğalgazlı",
		Brand: "Fagor",
	}, idx, nil)
	require.True(t, first.Created)

	second := r.Resolve(context.Background(), models.RawListing{
		Site:  "competitor-a",
		Name:  "Endüstriyel Kuzine 4 Burner",
		Brand: "Fagor",
	}, idx, nil)

	assert.False(t, second.Created, "second site should resolve to the run-created product")
	assert.Same(t, first.Product, second.Product)
	assert.Equal(t, 1, idx.Size())
}

func TestResolveBrandFilledFromName(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf()

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "own-site",
		Name: "Öztiryakiler Sanayi Tipi Fritöz 8 Litre",
	}, idx, nil)

	require.True(t, a.Created)
	assert.Equal(t, "Öztiryakiler", a.Product.Brand)
}

func TestTieBreakPrefersEstablished(t *testing.T) {
	r, cfg := newTestResolver(t)
	require.Equal(t, "established", cfg.TieBreak)

	established := models.Product{ID: 1, NormalizedName: "fritoz 8lt"}
	newcomer := models.Product{ID: 2, NormalizedName: "fritoz 8lt gazli"}
	idx := NewCatalogIndex([]models.Product{established, newcomer}, map[int64]int{1: 40, 2: 1})

	ties := []scored{
		{product: idx.byID[1], score: 90},
		{product: idx.byID[2], score: 91},
	}
	winner := r.tieBreak(&ties[1], ties, idx)

	assert.Equal(t, int64(1), winner.product.ID)
}

func TestTieBreakNewestMode(t *testing.T) {
	cfg := config.DefaultMatching()
	cfg.TieBreak = "newest"
	r := NewResolver(match.NewScorer(cfg), cfg, nil)

	idx := NewCatalogIndex([]models.Product{
		{ID: 1, NormalizedName: "fritoz 8lt"},
		{ID: 2, NormalizedName: "fritoz 8lt gazli"},
	}, map[int64]int{1: 40, 2: 1})

	ties := []scored{
		{product: idx.byID[1], score: 91},
		{product: idx.byID[2], score: 90},
	}
	winner := r.tieBreak(&ties[0], ties, idx)

	assert.Equal(t, int64(2), winner.product.ID)
}

func TestResolveNearMissFlaggedForReview(t *testing.T) {
	r, cfg := newTestResolver(t)

	idx := indexOf(models.Product{ID: 1, NormalizedName: "hamur acma makinesi"})

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "own-site",
		Name: "Hamur Yoğurma Makinesi",
	}, idx, nil)

	require.True(t, a.Created, "score %.1f should stay below the threshold", a.Score)
	assert.True(t, a.Review)
	assert.Equal(t, "near miss below threshold", a.Reason)
	assert.GreaterOrEqual(t, a.Score, cfg.NearMiss)
	assert.LessOrEqual(t, a.Score, cfg.MatchThreshold)
}

func TestResolveMatchedProductLearnsBrand(t *testing.T) {
	r, _ := newTestResolver(t)

	idx := indexOf(models.Product{ID: 6, NormalizedName: "4gozlu ocak dogalgazli"})

	a := r.Resolve(context.Background(), models.RawListing{
		Site:  "competitor-a",
		Name:  "4 Gözlü Ocak Doğalgazlı",
		Brand: "Fagor",
	}, idx, nil)

	require.Equal(t, int64(6), a.Product.ID)
	assert.Equal(t, "Fagor", a.Product.Brand)
	assert.Equal(t, "Pişirme", a.Product.Category)
}

type fakeScoreCache struct {
	scores map[string]float64
	puts   int
}

func newFakeScoreCache() *fakeScoreCache {
	return &fakeScoreCache{scores: make(map[string]float64)}
}

func (f *fakeScoreCache) CachedScore(_ context.Context, nameA, nameB string) (float64, bool, error) {
	s, ok := f.scores[nameA+"|"+nameB]
	return s, ok, nil
}

func (f *fakeScoreCache) CacheScore(_ context.Context, nameA, nameB string, score float64, _ time.Duration) error {
	f.puts++
	f.scores[nameA+"|"+nameB] = score
	return nil
}

func TestResolveMemoizesHighConfidenceScores(t *testing.T) {
	cfg := config.DefaultMatching()
	cache := newFakeScoreCache()
	r := NewResolver(match.NewScorer(cfg), cfg, cache)

	idx := indexOf(models.Product{ID: 2, NormalizedName: "eko mikser 20lt", Brand: "Fagor"})

	a := r.Resolve(context.Background(), models.RawListing{
		Site:  "competitor-a",
		Name:  "Eko Mikser 20 Lt Krom",
		Brand: "Fagor",
	}, idx, nil)

	require.Equal(t, int64(2), a.Product.ID)
	require.GreaterOrEqual(t, a.Score, cfg.HighConfidence)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, a.Score, cache.scores["eko mikser 20lt krom|eko mikser 20lt"])
}

func TestResolveUsesCachedScore(t *testing.T) {
	cfg := config.DefaultMatching()
	cache := newFakeScoreCache()
	cache.scores["tamamen farkli cihaz|eko mikser 20lt"] = 90

	r := NewResolver(match.NewScorer(cfg), cfg, cache)
	idx := indexOf(models.Product{ID: 3, NormalizedName: "eko mikser 20lt"})

	a := r.Resolve(context.Background(), models.RawListing{
		Site: "competitor-a",
		Name: "Tamamen Farklı Cihaz",
	}, idx, nil)

	require.False(t, a.Created, "cached score should carry the match")
	assert.Equal(t, int64(3), a.Product.ID)
	assert.Equal(t, 90.0, a.Score)
}

func TestSortAssignmentsDeterministic(t *testing.T) {
	assignments := []Assignment{
		{Listing: models.RawListing{Site: "b", Name: "z"}},
		{Listing: models.RawListing{Site: "a", Name: "z"}},
		{Listing: models.RawListing{Site: "a", Name: "m"}},
	}
	SortAssignments(assignments)

	assert.Equal(t, "a", assignments[0].Listing.Site)
	assert.Equal(t, "m", assignments[0].Listing.Name)
	assert.Equal(t, "a", assignments[1].Listing.Site)
	assert.Equal(t, "b", assignments[2].Listing.Site)
}
