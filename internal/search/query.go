package search

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/repograph/internal/store"
)

const (
	// DefaultBoost multiplies the score of a chunk whose symbol_names
	// holds a case-insensitive exact match for the raw query.
	DefaultBoost = 3.0

	// variantBoostFactor scales the boost down for variant-only
	// symbol matches.
	variantBoostFactor = 0.7
)

// ExpandQuery builds a to_tsquery expression from a free-text query.
// Each whitespace token expands into identifier variants (camelCase
// split, snake_case split, and the reconstituted forms) OR-joined
// within the token; tokens OR-join with each other.
func ExpandQuery(query string) string {
	var groups []string
	for _, token := range strings.Fields(query) {
		variants := tokenVariants(token)
		if len(variants) == 0 {
			continue
		}
		groups = append(groups, "("+strings.Join(variants, "|")+")")
	}
	return strings.Join(groups, " | ")
}

// tokenVariants returns the deduplicated identifier variants of one
// query token, first-seen order preserved.
func tokenVariants(token string) []string {
	token = sanitizeToken(token)
	if token == "" {
		return nil
	}

	var variants []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = strings.ToLower(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		variants = append(variants, v)
	}

	add(token)

	parts := SplitCodeToken(token)
	for _, p := range parts {
		add(p)
	}
	if len(parts) > 1 {
		lower := make([]string, len(parts))
		for i, p := range parts {
			lower[i] = strings.ToLower(p)
		}
		add(strings.Join(lower, "_"))
		add(camelJoin(lower))
	}

	return variants
}

// sanitizeToken strips everything to_tsquery would choke on.
func sanitizeToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// camelJoin reconstitutes lowercase parts into camelCase.
func camelJoin(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i == 0 || p == "" {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// Boost classifications carried in the keyword score breakdown.
const (
	BoostNone    = "none"
	BoostExact   = "exact"
	BoostVariant = "variant"
)

// BoostedHit is a keyword hit with its score breakdown.
type BoostedHit struct {
	Chunk    store.ChunkRecord `json:"chunk"`
	RawScore float64           `json:"raw_score"`
	Boost    string            `json:"boost"`
	Score    float64           `json:"score"`
}

// ApplyBoosts rescores hits by symbol match quality and re-sorts.
// An exact case-insensitive symbol match multiplies the score by
// boost; a variant-only match by boost scaled down. Ties break on
// chunk id ascending.
func ApplyBoosts(hits []store.SearchHit, rawQuery string, boost float64) []BoostedHit {
	if boost <= 0 {
		boost = DefaultBoost
	}
	queryLower := strings.ToLower(strings.TrimSpace(rawQuery))
	variantSet := make(map[string]bool)
	for _, token := range strings.Fields(rawQuery) {
		for _, v := range tokenVariants(token) {
			variantSet[v] = true
		}
	}

	out := make([]BoostedHit, len(hits))
	for i, hit := range hits {
		exact, variant := false, false
		for _, sym := range hit.Chunk.SymbolNames {
			symLower := strings.ToLower(sym)
			if symLower == queryLower {
				exact = true
				break
			}
			if variantSet[symLower] {
				variant = true
			}
		}

		boosted := BoostedHit{Chunk: hit.Chunk, RawScore: hit.Score, Boost: BoostNone, Score: hit.Score}
		switch {
		case exact:
			boosted.Boost = BoostExact
			boosted.Score = hit.Score * boost
		case variant:
			boosted.Boost = BoostVariant
			boosted.Score = hit.Score * boost * variantBoostFactor
		}
		out[i] = boosted
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Chunk.ID < out[b].Chunk.ID
	})
	return out
}
