package match

import (
	"testing"

	"pricewatch-service/config"
	"pricewatch-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	return NewNormalizer(config.DefaultMatching())
}

func TestNormalizeBasics(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and diacritics", "Fagor Bulaşık Makinesi", "fagor bulasik makinesi"},
		{"stop words removed", "Endüstriyel Profesyonel Ocak", "ocak"},
		{"digits preserved", "Fırın 900 x 600", "firin 900 x 600"},
		{"unit join burner", "4 Gözlü Ocak", "4gozlu ocak"},
		{"unit join cross language", "4 Burner Range", "4gozlu range"},
		{"unit join volume", "Fritöz 50 lt", "fritoz 50lt"},
		{"attached unit respelled", "Fritöz 50l", "fritoz 50lt"},
		{"punctuation stripped", "Ocak, (Doğalgazlı)!", "ocak dogalgazli"},
		{"model code survives", "Kuzine CG9-41", "kuzine cg9-41"},
		{"empty", "", ""},
		{"only stop words", "Endüstriyel Ticari", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newTestNormalizer(t)

	names := []string{
		"4 Gözlü Endüstriyel Ocak Doğalgazlı",
		"Endüstriyel Kuzine 4 Burner",
		"Öztiryakiler Bulaşık Makinesi OBM-1080",
		"Fritöz 8 lt Elektrikli",
		"",
	}

	for _, name := range names {
		once := n.Normalize(name)
		assert.Equal(t, once, n.Normalize(once), "normalize not idempotent for %q", name)
	}
}

func TestStockStatus(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		in   string
		want string
	}{
		{"Stokta", models.StockInStock},
		{"Hemen Teslim", models.StockInStock},
		{"Tükendi", models.StockOutOfStock},
		{"Stokta Yok", models.StockOutOfStock},
		{"Son 2 adet", models.StockLimited},
		{"Ön Sipariş", models.StockPreorder},
		{"in_stock", models.StockInStock}, // canonical passes through
		{"garip bir ifade", models.StockUnknown},
		{"", models.StockUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, n.StockStatus(tt.in), "status for %q", tt.in)
	}
}

func TestCategory(t *testing.T) {
	n := newTestNormalizer(t)

	assert.Equal(t, "Pişirme", n.Category("4 Gözlü Ocak Doğalgazlı"))
	assert.Equal(t, "Soğutma", n.Category("Tezgah Altı Buzdolabı"))
	assert.Equal(t, "", n.Category("Paslanmaz Çalışma Tezgahı"))
}

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.234,56 TL", "1234.56", true},
		{"12.500,00", "12500", true},
		{"1,234.56", "1234.56", true},
		{"1,234,567.89", "1234567.89", true},
		{"2.499.000,00 TL", "2499000", true},
		{"1.234.567", "1234567", true},
		{"950", "950", true},
		{"949,90 ₺", "949.9", true},
		{"1.234", "1234", true}, // thousands group, not a decimal
		{"24.9", "24.9", true},
		{"fiyat sorunuz", "0", false},
		{"", "0", false},
	}

	for _, tt := range tests {
		got, ok := CleanPrice(tt.in)
		assert.Equal(t, tt.ok, ok, "ok for %q", tt.in)
		assert.True(t, got.Equal(mustDecimal(t, tt.want)), "price for %q: got %s want %s", tt.in, got, tt.want)
	}
}
