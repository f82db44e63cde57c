package match

import (
	"testing"

	"pricewatch-service/config"

	"github.com/stretchr/testify/assert"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	cfg := config.DefaultMatching()
	return NewExtractor(cfg, NewNormalizer(cfg))
}

func TestExtractBrand(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		want string
	}{
		{"Fagor 4 Gözlü Ocak", "Fagor"},
		{"4 gözlü ocak FAGOR doğalgazlı", "Fagor"},
		{"Öztiryakiler Bulaşık Makinesi", "Öztiryakiler"},
		{"oztiryakiler bulasik makinesi", "Öztiryakiler"},
		{"ozti kuzine", "Öztiryakiler"}, // alias
		{"markasız çalışma tezgahı", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Brand(tt.name), "brand in %q", tt.name)
	}
}

func TestCanonicalBrand(t *testing.T) {
	e := newTestExtractor(t)

	assert.Equal(t, "Fagor", e.CanonicalBrand("FAGOR"))
	assert.Equal(t, "Öztiryakiler", e.CanonicalBrand("ozti"))
	assert.Equal(t, "NoName Mutfak", e.CanonicalBrand("NoName Mutfak"))
	assert.Equal(t, "", e.CanonicalBrand(""))
}

func TestExtractSKU(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		want string
	}{
		{"Kuzine CG9-41 Doğalgazlı", "CG941"},
		{"Fritöz TL-900", "TL900"},
		{"Bulaşık Makinesi OBM 1080", "OBM1080"},
		{"4 Gözlü Ocak", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, e.SKU(tt.name), "sku in %q", tt.name)
	}
}

func TestNumerics(t *testing.T) {
	e := newTestExtractor(t)

	assert.Equal(t, []string{"4"}, e.Numerics("4 Gözlü Endüstriyel Ocak"))
	assert.Equal(t, []string{"900", "600"}, e.Numerics("Fırın 900x600 mm"))
	assert.Empty(t, e.Numerics("Çalışma Tezgahı"))
	// leading zeros collapse so "04" and "4" agree
	assert.Equal(t, []string{"4"}, e.Numerics("04 Gözlü Ocak"))
}
