package ml

import (
	"strings"

	"github.com/sentinelai/sentinel/internal/features"
)

// FeatureSpec carries the categorical vocabularies a model was trained with.
// Training and inference must vectorize identically; the spec ships inside
// the artifact so the two can never drift.
type FeatureSpec struct {
	Categories []string `json:"categories"`
	Channels   []string `json:"channels"`
	Zones      []string `json:"zones"`
}

// Vectorize flattens a feature set into the numeric layout models consume:
// [hour, amount, is_online, merchant_tx_count_24h, avg_amount_category_7d]
// followed by one-hot blocks for category, channel, and zone (each with a
// trailing "other" slot).
func Vectorize(f *features.Set, spec FeatureSpec) []float64 {
	avg := 0.0
	if f.AvgAmountCategory7d != nil {
		avg = *f.AvgAmountCategory7d
	}
	online := 0.0
	if f.IsOnline {
		online = 1.0
	}

	x := make([]float64, 0, 5+len(spec.Categories)+len(spec.Channels)+len(spec.Zones)+3)
	x = append(x, float64(f.Hour), f.Amount, online, float64(f.MerchantTxCount24h), avg)
	x = append(x, oneHot(f.Category, spec.Categories)...)
	x = append(x, oneHot(f.Channel, spec.Channels)...)
	x = append(x, oneHot(f.Zone, spec.Zones)...)
	return x
}

// oneHot encodes value against vocab with one extra slot for "other".
func oneHot(value string, vocab []string) []float64 {
	value = strings.ToLower(value)
	out := make([]float64, len(vocab)+1)
	for i, v := range vocab {
		if v == value {
			out[i] = 1.0
			return out
		}
	}
	out[len(vocab)] = 1.0
	return out
}
