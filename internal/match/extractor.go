package match

import (
	"regexp"
	"sort"
	"strings"

	"pricewatch-service/config"
)

var skuCanonRe = regexp.MustCompile(`[-_/ ]+`)

// Attributes are the per-name signals the scorer combines. Any field may be
// empty; absence means "no signal", never a mismatch.
type Attributes struct {
	Brand    string
	SKU      string
	Numerics []string
}

// Extractor pulls brand, model code and numeric tokens out of raw names.
// Brand list, aliases and SKU patterns are configuration, not code.
type Extractor struct {
	norm    *Normalizer
	brands  []brandEntry // sorted longest first so multi-word brands win
	aliases []brandEntry
	skuRes  []*regexp.Regexp
}

type brandEntry struct {
	folded    string
	canonical string
}

// NewExtractor builds an extractor from the matching configuration.
// Patterns are assumed pre-validated by config.Matching.Validate.
func NewExtractor(cfg *config.Matching, norm *Normalizer) *Extractor {
	e := &Extractor{norm: norm}
	for _, b := range cfg.Brands {
		e.brands = append(e.brands, brandEntry{folded: Fold(b), canonical: b})
	}
	sort.Slice(e.brands, func(i, j int) bool {
		return len(e.brands[i].folded) > len(e.brands[j].folded)
	})
	for alias, canonical := range cfg.BrandAliases {
		e.aliases = append(e.aliases, brandEntry{folded: Fold(alias), canonical: canonical})
	}
	sort.Slice(e.aliases, func(i, j int) bool {
		return len(e.aliases[i].folded) > len(e.aliases[j].folded)
	})
	for _, p := range cfg.SKUPatterns {
		e.skuRes = append(e.skuRes, regexp.MustCompile(p))
	}
	return e
}

// Extract runs all three lenses over one raw name.
func (e *Extractor) Extract(name string) Attributes {
	return Attributes{
		Brand:    e.Brand(name),
		SKU:      e.SKU(name),
		Numerics: e.Numerics(name),
	}
}

// Brand returns the canonical brand found in name, or empty. Known brands
// are matched case- and diacritic-insensitively, longest first; aliases
// ("ozti" -> "Öztiryakiler") are checked after exact brand names.
func (e *Extractor) Brand(name string) string {
	folded := " " + strings.Join(strings.Fields(nonIdentRe.ReplaceAllString(Fold(name), " ")), " ") + " "
	for _, b := range e.brands {
		if strings.Contains(folded, " "+b.folded+" ") {
			return b.canonical
		}
	}
	for _, a := range e.aliases {
		if strings.Contains(folded, a.folded) {
			return a.canonical
		}
	}
	return ""
}

// CanonicalBrand resolves a fetcher-supplied brand string to its canonical
// form, falling back to the input when it is not a known brand or alias.
func (e *Extractor) CanonicalBrand(brand string) string {
	if brand == "" {
		return ""
	}
	folded := Fold(brand)
	for _, b := range e.brands {
		if b.folded == folded {
			return b.canonical
		}
	}
	for _, a := range e.aliases {
		if a.folded == folded {
			return a.canonical
		}
	}
	return brand
}

// SKU returns the first model code found in name, canonicalized to
// uppercase with separators removed ("CG9-41" -> "CG941"), or empty.
func (e *Extractor) SKU(name string) string {
	for _, re := range e.skuRes {
		if m := re.FindString(name); m != "" {
			return skuCanonRe.ReplaceAllString(strings.ToUpper(strings.TrimSpace(m)), "")
		}
	}
	return ""
}

// Numerics returns the distinct digit runs of the normalized name in order
// of first appearance. These carry capacity and dimension signal.
func (e *Extractor) Numerics(name string) []string {
	runs := digitRunRe.FindAllString(e.norm.Normalize(name), -1)
	seen := make(map[string]struct{}, len(runs))
	out := runs[:0]
	for _, r := range runs {
		r = strings.TrimLeft(r, "0")
		if r == "" {
			r = "0"
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
