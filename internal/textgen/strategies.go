package textgen

import (
	"math/rand"
	"strings"

	"relistapi/internal/model"
)

// Synonym table for title word substitution. Keys are lowercased tokens;
// values are equivalent-meaning replacements drawn from supplier wording.
var wordSynonyms = map[string][]string{
	"thick":        {"dense", "premium", "high quality", "professional grade"},
	"rolls":        {"roll", "pieces", "lengths", "sections"},
	"artificial":   {"synthetic", "fake", "imitation"},
	"grass":        {"turf", "lawn", "ground cover"},
	"premium":      {"high quality", "professional", "luxury", "deluxe"},
	"professional": {"premium", "high quality", "luxury", "deluxe"},
	"delivery":     {"shipping", "dispatch", "postage"},
	"available":    {"in stock", "ready", "for sale"},
	"free":         {"complimentary", "no charge", "included"},
	"large":        {"big", "oversized", "generous"},
	"small":        {"compact", "mini", "petite"},
	"medium":       {"standard", "regular"},
	"durable":      {"long lasting", "hardwearing", "robust"},
	"soft":         {"comfortable", "gentle", "plush"},
	"realistic":    {"lifelike", "natural looking", "authentic"},
	"carpet":       {"rug", "flooring", "carpeting"},
	"herringbone":  {"patterned", "textured"},
	"saxony":       {"plush", "luxurious"},
	"twist":        {"hard-wearing", "robust"},
	"plush":        {"soft", "luxurious", "comfortable"},
	"berber":       {"textured", "patterned"},
	"decking":      {"composite", "boards", "planks"},
	"cladding":     {"panels", "boards"},
	"underlay":     {"padding", "cushioning"},
	"acoustic":     {"soundproof", "sound dampening"},
	"slatted":      {"horizontal", "vertical"},
}

var titlePrefixes = []string{
	"Premium",
	"High Quality",
	"Luxury",
	"Deluxe",
	"Garden",
	"Outdoor",
	"Indoor",
	"Heavy Duty",
	"Lightweight",
	"Eco Friendly",
	"Weather Resistant",
	"UV Protected",
	"Pet Friendly",
	"Child Safe",
	"Multi-Tone",
	"Fade Resistant",
}

var titleSuffixes = []string{
	"Fast Delivery",
	"Free Delivery",
	"UK Made",
	"Best Quality",
	"Top Rated",
	"Limited Stock",
	"Sale Price",
	"Special Offer",
	"New Arrival",
	"Popular Choice",
	"Highly Recommended",
	"Premium Grade",
	"Professional Quality",
}

// Decorative separators; marketplaces reject emoji in titles so these stay
// plain typographic marks.
var titleSymbols = []string{"*", "~", "-", "|", "+"}

// titleStrategies is the closed dispatch table for rule-based title
// generation. Order matters only for tests; selection is random.
var titleStrategies = map[model.TextStrategy]func(r *rand.Rand, original string) string{
	model.StrategyWordSubstitution: substituteWord,
	model.StrategyAffixInjection:   injectAffix,
	model.StrategyWordOrder:        permuteWords,
	model.StrategySymbolInsertion:  insertSymbol,
}

func titleStrategyKinds() []model.TextStrategy {
	return []model.TextStrategy{
		model.StrategyWordSubstitution,
		model.StrategyAffixInjection,
		model.StrategyWordOrder,
		model.StrategySymbolInsertion,
	}
}

// substituteWord replaces one substitutable word with a random synonym.
// Falls back to affix injection when nothing in the title is substitutable.
func substituteWord(r *rand.Rand, original string) string {
	words := strings.Fields(original)

	type slot struct {
		idx  int
		alts []string
	}
	var slots []slot
	for i, w := range words {
		if alts, ok := wordSynonyms[strings.ToLower(w)]; ok {
			slots = append(slots, slot{idx: i, alts: alts})
		}
	}
	if len(slots) == 0 {
		return injectAffix(r, original)
	}

	s := slots[r.Intn(len(slots))]
	out := make([]string, len(words))
	copy(out, words)
	out[s.idx] = s.alts[r.Intn(len(s.alts))]
	return strings.Join(out, " ")
}

// injectAffix prepends a curated prefix or appends a curated suffix.
func injectAffix(r *rand.Rand, original string) string {
	if r.Intn(2) == 0 {
		return titlePrefixes[r.Intn(len(titlePrefixes))] + " " + original
	}
	return original + " - " + titleSuffixes[r.Intn(len(titleSuffixes))]
}

// permuteWords keeps the first and last word anchored and shuffles the
// middle; with exactly three words it shuffles all of them. Shorter titles
// fall back to affix injection since reordering cannot change them usefully.
func permuteWords(r *rand.Rand, original string) string {
	words := strings.Fields(original)
	if len(words) < 3 {
		return injectAffix(r, original)
	}

	out := make([]string, len(words))
	copy(out, words)
	if len(words) >= 4 {
		mid := out[1 : len(out)-1]
		r.Shuffle(len(mid), func(i, j int) { mid[i], mid[j] = mid[j], mid[i] })
	} else {
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	candidate := strings.Join(out, " ")
	if candidate == original {
		// A shuffle can be a no-op; nudge with an affix instead.
		return injectAffix(r, original)
	}
	return candidate
}

// insertSymbol wraps or terminates the title with a decorative separator.
func insertSymbol(r *rand.Rand, original string) string {
	sym := titleSymbols[r.Intn(len(titleSymbols))]
	if r.Intn(2) == 0 {
		return sym + " " + original + " " + sym
	}
	return original + " " + sym
}
