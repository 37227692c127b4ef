// Package classifier assigns a qualification tier to parsed scan entries.
package classifier

import (
	"strings"
	"unicode"

	"leadgen-agent/internal/domain"
)

// DefaultNegativeKeywords mark an existing website as weak.
var DefaultNegativeKeywords = []string{"old", "outdated", "poor", "bad"}

var noWebsite = map[string]struct{}{
	"":     {},
	"none": {},
	"n/a":  {},
	"na":   {},
}

// Input is the subset of parsed fields the tiering rule looks at.
type Input struct {
	Website    string
	Assessment string
}

// Result carries the tier and the normalized website. Website is nil when
// the business has no detectable online presence.
type Result struct {
	Tier    domain.Tier
	Website *string
}

// Classifier is a pure, deterministic tiering rule.
type Classifier struct {
	negative map[string]struct{}
	tiered   bool
}

// New builds a Classifier. With tiered=false, entries that are not hot are
// left UNSCORED for manual qualification instead of COLD.
func New(negativeKeywords []string, tiered bool) Classifier {
	if len(negativeKeywords) == 0 {
		negativeKeywords = DefaultNegativeKeywords
	}
	neg := make(map[string]struct{}, len(negativeKeywords))
	for _, k := range negativeKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			neg[k] = struct{}{}
		}
	}
	return Classifier{negative: neg, tiered: tiered}
}

// Default uses DefaultNegativeKeywords with tiered scoring.
func Default() Classifier {
	return New(nil, true)
}

// Classify applies, in order: no website -> HOT, negative assessment -> WARM,
// otherwise COLD (or UNSCORED when tiering is off).
func (c Classifier) Classify(in Input) Result {
	raw := strings.TrimSpace(in.Website)
	if IsNoWebsite(raw) {
		return Result{Tier: domain.TierHot}
	}
	site := raw
	if c.hasNegativeKeyword(in.Assessment) {
		return Result{Tier: domain.TierWarm, Website: &site}
	}
	if !c.tiered {
		return Result{Tier: domain.TierUnscored, Website: &site}
	}
	return Result{Tier: domain.TierCold, Website: &site}
}

// IsNoWebsite reports whether a raw website value means "no online presence".
// The value must be a no-website marker on its own, optionally followed by a
// space and a remark such as "n/a (Facebook only)".
func IsNoWebsite(raw string) bool {
	norm := strings.ToLower(strings.Trim(strings.TrimSpace(raw), ".[]()\"'"))
	if _, ok := noWebsite[norm]; ok {
		return true
	}
	marker, _, found := strings.Cut(norm, " ")
	if !found {
		return false
	}
	_, ok := noWebsite[marker]
	return ok && marker != ""
}

func (c Classifier) hasNegativeKeyword(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := c.negative[w]; ok {
			return true
		}
	}
	return false
}
