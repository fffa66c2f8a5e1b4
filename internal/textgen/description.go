package textgen

import (
	"math/rand"
	"strings"

	"relistapi/internal/model"
)

// Line banks for description generation. Each bank holds interchangeable
// phrasings of the same selling point; a rewrite picks one line per bank.
var (
	deliveryLines = []string{
		">> Fast delivery available across the UK",
		">> Quick dispatch, delivery within days",
		">> Speedy UK-wide delivery on all orders",
		">> Next-day dispatch on most orders",
	}

	sampleLines = []string{
		">> Free samples available on request",
		">> Ask us for a free sample before you buy",
		">> Samples posted free of charge",
	}

	optionsIntroLines = []string{
		"We stock a full range of sizes and thicknesses:",
		"Available in the following options:",
		"Choose from our full range:",
		"Sizes and options in stock:",
	}

	rangeLines = []string{
		"- Widths from 1m up to 4m",
		"- Any length cut to order",
		"- Multiple pile heights available",
		"- Budget through to premium grades",
		"- Trade quantities welcome",
	}

	qualityLines = []string{
		"All stock is brand new and quality checked before dispatch.",
		"Every roll is inspected before it leaves us.",
		"Top grade materials only, no seconds or offcuts.",
	}

	closingLines = []string{
		"Message us with your sizes for an instant quote.",
		"Get in touch for prices and availability.",
		"Send us a message, we reply fast.",
		"Any questions, just ask.",
	}
)

// elementAlternates maps recognisable phrases to alternates of the same
// meaning; element substitution rewrites only the phrases it finds.
var elementAlternates = map[string][]string{
	"fast delivery":     {"quick delivery", "speedy delivery", "rapid dispatch"},
	"free samples":      {"complimentary samples", "samples at no cost", "free sample service"},
	"free delivery":     {"delivery included", "no delivery charge", "postage included"},
	"available":         {"in stock", "ready to ship", "on hand"},
	"high quality":      {"premium quality", "top quality", "superior quality"},
	"brand new":         {"unused", "fresh stock", "factory fresh"},
	"any length":        {"custom lengths", "lengths to order", "cut to size"},
	"message us":        {"get in touch", "drop us a message", "contact us"},
	"cut to order":      {"cut to your size", "made to measure", "custom cut"},
	"quality checked":   {"fully inspected", "checked before dispatch"},
	"trade quantities":  {"bulk orders", "trade orders", "larger quantities"},
	"instant quote":     {"quick quote", "fast quote", "same-day quote"},
}

// descriptionSymbols are interchangeable leading markers for bullet-style lines.
var descriptionSymbols = []string{">>", "-", "*", "~", "=>"}

var descriptionStrategies = map[model.TextStrategy]func(r *rand.Rand, original string) string{
	model.StrategyFullRewrite:         rewriteDescription,
	model.StrategyElementSubstitution: substituteElements,
	model.StrategySymbolVariation:     varySymbols,
	model.StrategyStructuralReorder:   reorderStructure,
}

func descriptionStrategyKinds() []model.TextStrategy {
	return []model.TextStrategy{
		model.StrategyFullRewrite,
		model.StrategyElementSubstitution,
		model.StrategySymbolVariation,
		model.StrategyStructuralReorder,
	}
}

// rewriteDescription builds a fresh description from the line banks, ignoring
// the original body entirely. The original's first line survives as the lead
// so the listing still names the product.
func rewriteDescription(r *rand.Rand, original string) string {
	var b strings.Builder

	if lead := firstLine(original); lead != "" {
		b.WriteString(lead)
		b.WriteString("\n\n")
	}

	b.WriteString(pick(r, deliveryLines))
	b.WriteString("\n")
	b.WriteString(pick(r, sampleLines))
	b.WriteString("\n\n")
	b.WriteString(pick(r, optionsIntroLines))
	b.WriteString("\n")

	ranges := append([]string(nil), rangeLines...)
	r.Shuffle(len(ranges), func(i, j int) { ranges[i], ranges[j] = ranges[j], ranges[i] })
	n := 3 + r.Intn(2)
	for _, line := range ranges[:n] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(pick(r, qualityLines))
	b.WriteString("\n")
	b.WriteString(pick(r, closingLines))

	return b.String()
}

// substituteElements swaps every recognised phrase for an alternate of the
// same meaning. Unrecognised text passes through untouched; if nothing at all
// is recognised it falls back to a full rewrite.
func substituteElements(r *rand.Rand, original string) string {
	out := original
	replaced := false
	lower := strings.ToLower(original)
	for phrase, alts := range elementAlternates {
		if !strings.Contains(lower, phrase) {
			continue
		}
		out = replaceFold(out, phrase, pick(r, alts))
		lower = strings.ToLower(out)
		replaced = true
	}
	if !replaced {
		return rewriteDescription(r, original)
	}
	return out
}

// varySymbols re-marks every bullet-style line with a different leading symbol.
func varySymbols(r *rand.Rand, original string) string {
	lines := strings.Split(original, "\n")
	changed := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, sym := range descriptionSymbols {
			if strings.HasPrefix(trimmed, sym+" ") {
				next := pick(r, descriptionSymbols)
				for next == sym {
					next = pick(r, descriptionSymbols)
				}
				lines[i] = next + " " + strings.TrimPrefix(trimmed, sym+" ")
				changed = true
				break
			}
		}
	}
	if !changed {
		return rewriteDescription(r, original)
	}
	return strings.Join(lines, "\n")
}

// reorderStructure shuffles the paragraph blocks after the lead and appends
// one fresh closing line.
func reorderStructure(r *rand.Rand, original string) string {
	blocks := strings.Split(original, "\n\n")
	if len(blocks) < 3 {
		return rewriteDescription(r, original)
	}

	lead := blocks[0]
	body := append([]string(nil), blocks[1:]...)
	r.Shuffle(len(body), func(i, j int) { body[i], body[j] = body[j], body[i] })

	out := append([]string{lead}, body...)
	out = append(out, pick(r, closingLines))
	return strings.Join(out, "\n\n")
}

func pick(r *rand.Rand, bank []string) string {
	return bank[r.Intn(len(bank))]
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// replaceFold replaces every case-insensitive occurrence of old with new.
func replaceFold(s, old, new string) string {
	var b strings.Builder
	lower := strings.ToLower(s)
	lowerOld := strings.ToLower(old)
	for {
		i := strings.Index(lower, lowerOld)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(new)
		s = s[i+len(old):]
		lower = lower[i+len(lowerOld):]
	}
}
