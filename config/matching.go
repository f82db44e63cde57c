package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Matching holds every knob of the identity-resolution and change-detection
// pipeline. The built-in defaults cover the Turkish horeca market; a YAML
// file pointed to by MATCHING_CONFIG overrides individual fields.
type Matching struct {
	MatchThreshold       float64 `yaml:"match_threshold"`
	HighConfidence       float64 `yaml:"high_confidence"`
	NearMiss             float64 `yaml:"near_miss"`
	AmbiguityBand        float64 `yaml:"ambiguity_band"`
	TieBreak             string  `yaml:"tie_break"` // "established" or "newest"
	BrandCredit          float64 `yaml:"brand_credit"`
	SKUCredit            float64 `yaml:"sku_credit"`
	CapacityCredit       float64 `yaml:"capacity_credit"`
	PriceChangeThreshold float64 `yaml:"price_change_threshold"`
	SharpMovePercent     float64 `yaml:"sharp_move_percent"`
	DefaultCurrency      string  `yaml:"default_currency"`

	StopWords    []string            `yaml:"stop_words"`
	Brands       []string            `yaml:"brands"`
	BrandAliases map[string]string   `yaml:"brand_aliases"`
	SKUPatterns  []string            `yaml:"sku_patterns"`
	Units        []UnitFamily        `yaml:"units"`
	Categories   map[string][]string `yaml:"categories"`
	Stock        StockKeywords       `yaml:"stock_keywords"`
	Sites        []SiteConfig        `yaml:"sites"`
}

// UnitFamily folds interchangeable unit words ("4 gözlü", "4 burner") into
// one canonical token so cross-language listings compare equal.
type UnitFamily struct {
	Canonical string   `yaml:"canonical"`
	Words     []string `yaml:"words"`
}

// StockKeywords maps site phrases onto the canonical stock statuses.
// Single words match whole tokens, phrases match as substrings.
type StockKeywords struct {
	Out      []string `yaml:"out"`
	In       []string `yaml:"in"`
	Limited  []string `yaml:"limited"`
	Preorder []string `yaml:"preorder"`
}

// SiteConfig registers a tracked catalog site and its competitive role.
type SiteConfig struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"` // "own" or "competitor"
}

// DefaultMatching returns the compiled-in configuration.
func DefaultMatching() *Matching {
	return &Matching{
		MatchThreshold:       85.0,
		HighConfidence:       95.0,
		NearMiss:             70.0,
		AmbiguityBand:        3.0,
		TieBreak:             "established",
		BrandCredit:          25.0,
		SKUCredit:            10.0,
		CapacityCredit:       5.0,
		PriceChangeThreshold: 5.0,
		SharpMovePercent:     10.0,
		DefaultCurrency:      "TRY",

		StopWords: []string{
			"endüstriyel", "profesyonel", "ticari", "sanayi", "tipi", "tip",
			"model", "ürün", "yeni", "sıfır", "orijinal", "ithal", "yerli",
			"garantili", "kaliteli", "ekonomik", "kampanya", "fırsat",
			"indirimli", "özel", "adet", "the", "ve",
		},
		Brands: []string{
			"Fagor", "Bosch", "Siemens", "Arçelik", "Beko", "Vestel",
			"Öztiryakiler", "İnoksan", "Silverline", "Franke", "Festival",
			"Altus", "Profilo", "Regal", "Simfer", "Luxell", "Kumtel",
			"Arnica", "Fakir", "Tefal", "Philips", "Karacasan", "Atalay",
			"Işıkgaz", "Turbosan", "Mutfaksan", "Elektromag", "Termikel",
			"Teka", "Ariston", "Indesit", "Samsung", "LG", "Whirlpool",
			"Electrolux", "Candy", "Hotpoint", "Empero", "Remta", "Pimak",
		},
		BrandAliases: map[string]string{
			"ozti":    "Öztiryakiler",
			"öztir":   "Öztiryakiler",
			"inoxsan": "İnoksan",
		},
		SKUPatterns: []string{
			`(?i)\b[A-Z]{2,6}[-_/]\d{2,6}\b`,
			`(?i)\b[A-Z]{1,4}\d{1,4}[-_/]\d{1,4}\b`,
			`\b[A-Z]{2,6} ?\d{3,6}\b`,
		},
		Units: []UnitFamily{
			{Canonical: "gozlu", Words: []string{"gözlü", "gozlu", "göz", "burner", "eye"}},
			{Canonical: "lt", Words: []string{"litre", "liter", "lt", "l"}},
			{Canonical: "kg", Words: []string{"kilo", "kg"}},
			{Canonical: "gr", Words: []string{"gram", "gr"}},
			{Canonical: "mm", Words: []string{"mm"}},
			{Canonical: "cm", Words: []string{"cm"}},
		},
		Categories: map[string][]string{
			"Pişirme":   {"ocak", "fırın", "kuzine", "ızgara", "fritöz", "tost", "pleyt", "döner"},
			"Soğutma":   {"buzdolabı", "dondurucu", "soğutucu", "şok", "teşhir dolabı"},
			"Hazırlık":  {"mikser", "blender", "kıyma", "doğrayıcı", "hamur", "dilimleme"},
			"Bulaşık":   {"bulaşık"},
			"Çay-Kahve": {"çay", "kahve", "semaver", "espresso"},
		},
		Stock: StockKeywords{
			Out:      []string{"tükendi", "stokta yok", "stok yok", "mevcut değil", "out of stock", "sold out"},
			In:       []string{"stokta", "mevcut", "in stock", "available", "satışta", "hemen teslim"},
			Limited:  []string{"son", "sınırlı", "limited", "az kaldı", "kritik stok"},
			Preorder: []string{"ön sipariş", "pre-order", "preorder", "tedarik", "sipariş üzerine"},
		},
		Sites: []SiteConfig{
			{Name: "horecamark", Role: "own"},
			{Name: "cafemarkt", Role: "competitor"},
			{Name: "arigastro", Role: "competitor"},
			{Name: "horecamarkt", Role: "competitor"},
			{Name: "kariyermutfak", Role: "competitor"},
			{Name: "mutbex", Role: "competitor"},
		},
	}
}

// LoadMatching returns the defaults, overlaid with the YAML file at path
// when one is given. Fields absent from the file keep their defaults.
func LoadMatching(path string) (*Matching, error) {
	m := DefaultMatching()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read matching config: %w", err)
		}
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse matching config: %w", err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}
	return m, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (m *Matching) Validate() error {
	if m.MatchThreshold <= 0 || m.MatchThreshold > 100 {
		return fmt.Errorf("match_threshold %.1f outside (0,100]", m.MatchThreshold)
	}
	if m.HighConfidence < m.MatchThreshold {
		return fmt.Errorf("high_confidence %.1f below match_threshold %.1f", m.HighConfidence, m.MatchThreshold)
	}
	if m.NearMiss > m.MatchThreshold {
		return fmt.Errorf("near_miss %.1f above match_threshold %.1f", m.NearMiss, m.MatchThreshold)
	}
	if m.AmbiguityBand < 0 {
		return fmt.Errorf("ambiguity_band must not be negative")
	}
	if m.PriceChangeThreshold < 0 {
		return fmt.Errorf("price_change_threshold must not be negative")
	}
	if m.TieBreak != "established" && m.TieBreak != "newest" {
		return fmt.Errorf("tie_break %q (want established or newest)", m.TieBreak)
	}
	for _, p := range m.SKUPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("sku pattern %q: %w", p, err)
		}
	}
	for _, s := range m.Sites {
		if s.Name == "" {
			return fmt.Errorf("site with empty name")
		}
		if s.Role != "own" && s.Role != "competitor" {
			return fmt.Errorf("site %s: role %q (want own or competitor)", s.Name, s.Role)
		}
	}
	return nil
}

// SiteRoles returns the site registry as a lookup map.
func (m *Matching) SiteRoles() map[string]string {
	roles := make(map[string]string, len(m.Sites))
	for _, s := range m.Sites {
		roles[s.Name] = s.Role
	}
	return roles
}
