package match

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"pricewatch-service/config"
	"pricewatch-service/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonIdentRe = regexp.MustCompile(`[^a-z0-9 \-/]+`)
	numUnitRe  = regexp.MustCompile(`^(\d+)([a-z]+)$`)
	digitRunRe = regexp.MustCompile(`\d+`)
	priceNumRe = regexp.MustCompile(`[^\d.,\-]`)
)

// turkishFold handles the dotted/dotless-i pairs that Unicode decomposition
// alone gets wrong for Turkish text.
var turkishFold = strings.NewReplacer("İ", "i", "I", "i", "ı", "i")

// Normalizer canonicalizes raw listing names into a comparable token form.
// Stop words, unit families and stock keyword sets come from the matching
// config; the pipeline itself holds no mutable state.
type Normalizer struct {
	stopWords map[string]struct{}
	units     map[string]string // folded unit word -> canonical suffix
	stockSets []stockSet
	cats      []categoryRule
}

type stockSet struct {
	status   string
	keywords []string
}

type categoryRule struct {
	name     string
	keywords []string
}

// NewNormalizer builds a normalizer from the matching configuration.
func NewNormalizer(cfg *config.Matching) *Normalizer {
	n := &Normalizer{
		stopWords: make(map[string]struct{}, len(cfg.StopWords)),
		units:     make(map[string]string),
	}
	for _, w := range cfg.StopWords {
		n.stopWords[Fold(w)] = struct{}{}
	}
	for _, fam := range cfg.Units {
		for _, w := range fam.Words {
			n.units[Fold(w)] = fam.Canonical
		}
	}

	// evaluation order matters: "son 2 adet stokta" is limited, not in stock
	n.stockSets = []stockSet{
		{models.StockOutOfStock, foldAll(cfg.Stock.Out)},
		{models.StockPreorder, foldAll(cfg.Stock.Preorder)},
		{models.StockLimited, foldAll(cfg.Stock.Limited)},
		{models.StockInStock, foldAll(cfg.Stock.In)},
	}

	names := make([]string, 0, len(cfg.Categories))
	for name := range cfg.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n.cats = append(n.cats, categoryRule{name: name, keywords: foldAll(cfg.Categories[name])})
	}
	return n
}

// Fold lowercases s and strips diacritics, so "Gözlü" and "gozlu" compare
// equal. Digits pass through untouched.
func Fold(s string) string {
	s = turkishFold.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func foldAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = Fold(w)
	}
	return out
}

// Normalize produces the canonical token form of a raw listing name.
// Idempotent: normalizing an already-normalized name returns it unchanged.
// Digit-bearing tokens always survive; an empty result is legal.
func (n *Normalizer) Normalize(name string) string {
	folded := Fold(name)
	folded = nonIdentRe.ReplaceAllString(folded, " ")

	tokens := strings.Fields(folded)
	joined := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := strings.Trim(tokens[i], "-/")
		if tok == "" {
			continue
		}
		// "4 gözlü" -> "4gozlu", "50 lt" -> "50lt"
		if isDigits(tok) && i+1 < len(tokens) {
			if canon, ok := n.units[strings.Trim(tokens[i+1], "-/")]; ok {
				joined = append(joined, tok+canon)
				i++
				continue
			}
		}
		// "50l" -> "50lt" (already attached unit, non-canonical spelling)
		if m := numUnitRe.FindStringSubmatch(tok); m != nil {
			if canon, ok := n.units[m[2]]; ok {
				joined = append(joined, m[1]+canon)
				continue
			}
		}
		joined = append(joined, tok)
	}

	kept := joined[:0]
	for _, tok := range joined {
		if _, stop := n.stopWords[tok]; stop && !strings.ContainsAny(tok, "0123456789") {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StockStatus maps a site's free-text stock phrase onto the closed status
// set. Already-canonical tokens pass through; unmapped text is unknown.
func (n *Normalizer) StockStatus(raw string) string {
	if models.ValidStockStatus(raw) {
		return raw
	}
	folded := Fold(strings.TrimSpace(raw))
	if folded == "" {
		return models.StockUnknown
	}
	tokens := make(map[string]struct{})
	for _, t := range strings.Fields(folded) {
		tokens[t] = struct{}{}
	}
	for _, set := range n.stockSets {
		for _, kw := range set.keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(folded, kw) {
					return set.status
				}
			} else if _, ok := tokens[kw]; ok {
				return set.status
			}
		}
	}
	return models.StockUnknown
}

// Category guesses a product category from keywords in the name.
// Empty when no keyword matches; never an error.
func (n *Normalizer) Category(name string) string {
	folded := Fold(name)
	for _, c := range n.cats {
		for _, kw := range c.keywords {
			if strings.Contains(folded, kw) {
				return c.name
			}
		}
	}
	return ""
}

// CleanPrice parses a price string in Turkish or international notation
// ("1.234,56 TL", "1,234.56", "950") into a decimal. The boolean is false
// when no price could be extracted.
func CleanPrice(raw string) (decimal.Decimal, bool) {
	cleaned := priceNumRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		// whichever separator occurs last is the decimal mark:
		// "1.234,56" is Turkish, "1,234.56" international
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = strings.Join(parts, "")
		}
	case hasDot:
		parts := strings.Split(cleaned, ".")
		if len(parts[len(parts)-1]) == 3 {
			// "1.234" and "1.234.567" are thousands groups, not decimals
			cleaned = strings.Join(parts, "")
		} else if len(parts) > 2 {
			cleaned = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}
