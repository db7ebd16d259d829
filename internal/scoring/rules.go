package scoring

import (
	"fmt"
	"strings"

	"github.com/sentinelai/sentinel/internal/features"
)

// maxFactors caps the justification list shown to analysts. Truncation is a
// readability choice only; it never affects the score.
const maxFactors = 5

const baseScore = 10

// RuleScorer is the deterministic, explainable floor of the pipeline.
// Pure: no I/O, no state beyond the configured high-risk sets.
type RuleScorer struct {
	highRiskCategories map[string]struct{}
	highRiskZones      map[string]struct{}
}

// NewRuleScorer builds a rule scorer with the given high-risk sets
// (matched case-insensitively).
func NewRuleScorer(categories, zones []string) *RuleScorer {
	r := &RuleScorer{
		highRiskCategories: make(map[string]struct{}, len(categories)),
		highRiskZones:      make(map[string]struct{}, len(zones)),
	}
	for _, c := range categories {
		r.highRiskCategories[strings.ToLower(c)] = struct{}{}
	}
	for _, z := range zones {
		r.highRiskZones[strings.ToLower(z)] = struct{}{}
	}
	return r
}

// Score evaluates the rules in fixed order and returns the clamped score plus
// the factors that fired (first maxFactors kept). The evaluation order is
// part of the contract: it decides which factors survive truncation.
func (r *RuleScorer) Score(f *features.Set) (int, []string) {
	score := baseScore
	var factors []string

	// 1) Amount tier (highest tier wins)
	switch {
	case f.Amount >= 200:
		score += 35
		factors = append(factors, "Very high amount (>= 200)")
	case f.Amount >= 120:
		score += 20
		factors = append(factors, "High amount (>= 120)")
	case f.Amount >= 60:
		score += 10
		factors = append(factors, "Above-average amount (>= 60)")
	}

	// 2) Odd-hour tier
	switch {
	case f.Hour <= 5:
		score += 20
		factors = append(factors, "Unusual hour (night)")
	case f.Hour <= 7:
		score += 10
		factors = append(factors, "Early morning hour")
	}

	// 3) Online channel
	if f.IsOnline {
		score += 10
		factors = append(factors, "Online transaction")
	}

	// 4) High-risk category
	category := strings.ToLower(f.Category)
	if _, ok := r.highRiskCategories[category]; ok {
		score += 15
		factors = append(factors, fmt.Sprintf("High-risk category (%s)", category))
	}

	// 5) High-risk zone
	if zone := strings.ToLower(f.Zone); zone != "" {
		if _, ok := r.highRiskZones[zone]; ok {
			score += 10
			factors = append(factors, "High-risk zone")
		}
	}

	// 6) Merchant frequency over the trailing 24h
	switch {
	case f.MerchantTxCount24h >= 5:
		score += 15
		factors = append(factors, "High frequency (>= 5 tx/24h at this merchant)")
	case f.MerchantTxCount24h >= 3:
		score += 8
		factors = append(factors, "Moderate frequency (>= 3 tx/24h at this merchant)")
	}

	// 7) Amount vs 7-day category mean. A nil mean means "no history" and
	// fires nothing; only a known, positive mean can trigger this rule.
	if f.AvgAmountCategory7d != nil && *f.AvgAmountCategory7d > 0 {
		if f.Amount >= 2.0*(*f.AvgAmountCategory7d) {
			score += 10
			factors = append(factors, "Amount well above 7-day category average")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if len(factors) > maxFactors {
		factors = factors[:maxFactors]
	}
	return score, factors
}
