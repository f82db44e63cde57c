package match

import (
	"testing"

	"pricewatch-service/config"

	"github.com/stretchr/testify/assert"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	return NewScorer(config.DefaultMatching())
}

func TestScoreIdenticalNames(t *testing.T) {
	s := newTestScorer(t)

	score, _ := s.Score(
		Candidate{Name: "Fagor 4 Gözlü Ocak Doğalgazlı"},
		Candidate{Name: "Fagor 4 Gözlü Ocak Doğalgazlı"},
	)
	assert.Equal(t, 100.0, score)
}

func TestScoreSymmetric(t *testing.T) {
	s := newTestScorer(t)

	a := Candidate{Name: "Öztiryakiler Bulaşık Makinesi OBM-1080"}
	b := Candidate{Name: "Bulaşık Yıkama Makinesi 1080 Öztiryakiler"}

	ab, _ := s.Score(a, b)
	ba, _ := s.Score(b, a)
	assert.Equal(t, ab, ba)
}

// Cross-site listings of the same range: weak name overlap, but shared
// brand and burner count must push the pair over the match threshold.
func TestScoreBrandAndCapacityCarryWeakNames(t *testing.T) {
	s := newTestScorer(t)

	a := Candidate{Name: "4 Gözlü Endüstriyel Ocak Doğalgazlı", Brand: "Fagor"}
	b := Candidate{Name: "Endüstriyel Kuzine 4 Burner", Brand: "Fagor"}

	score, bd := s.Score(a, b)
	assert.Less(t, bd.Fuzzy, 70.0, "base fuzzy alone should be weak")
	assert.Equal(t, 25.0, bd.Brand)
	assert.Equal(t, 5.0, bd.Capacity)
	assert.Greater(t, score, 85.0)
	assert.True(t, s.IsMatch(score))
}

func TestScoreMissingBrandIsNeutral(t *testing.T) {
	s := newTestScorer(t)

	// one side unbranded: the strong name match must stand on its own
	score, bd := s.Score(
		Candidate{Name: "Fagor Fritöz TL-900 8 lt"},
		Candidate{Name: "Fritöz TL-900 8lt"},
	)
	assert.Zero(t, bd.Brand)
	assert.Greater(t, score, 85.0)
}

func TestScoreConflictingBrandsNoPenalty(t *testing.T) {
	s := newTestScorer(t)

	same, _ := s.Score(
		Candidate{Name: "Fritöz 8 lt Elektrikli"},
		Candidate{Name: "Fritöz 8 lt Elektrikli"},
	)
	conflicting, bd := s.Score(
		Candidate{Name: "Fagor Fritöz 8 lt Elektrikli"},
		Candidate{Name: "İnoksan Fritöz 8 lt Elektrikli"},
	)
	assert.Zero(t, bd.Brand)
	// different known brands contribute nothing, they never subtract
	assert.GreaterOrEqual(t, same, conflicting)
	assert.Greater(t, conflicting, 70.0)
}

func TestScoreSKUCredit(t *testing.T) {
	s := newTestScorer(t)

	_, bd := s.Score(
		Candidate{Name: "Kuzine CG9-41 Doğalgazlı"},
		Candidate{Name: "Doğalgazlı Kuzine CG9/41"},
	)
	assert.Equal(t, 10.0, bd.SKU)
}

func TestScoreTotalOnMalformedInput(t *testing.T) {
	s := newTestScorer(t)

	score, _ := s.Score(Candidate{Name: "!!! ???"}, Candidate{Name: "Fagor Ocak"})
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}
