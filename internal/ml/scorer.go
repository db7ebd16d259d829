package ml

import (
	"log/slog"
	"math"
	"sync"

	"github.com/sentinelai/sentinel/internal/features"
)

// Inference is a model's verdict on one feature set.
type Inference struct {
	Score        int    // 0..100
	ModelVersion string // e.g. "logreg_v1_20260115-0930"
	Kind         string // "logreg" | "zscore"
}

// Scorer is the optional model capability. The boolean reports presence: a
// false return means "no usable model", which callers treat as a normal state
// and fall back to rules.
type Scorer interface {
	Infer(f *features.Set) (Inference, bool)
}

// ModelScorer scores feature sets with the latest artifact from a registry.
// The artifact is loaded once, lazily; Reload picks up a newly published one.
type ModelScorer struct {
	registry *Registry
	logger   *slog.Logger

	mu     sync.Mutex
	loaded bool
	art    *Artifact
}

// NewModelScorer creates a scorer over the given artifact directory.
func NewModelScorer(dir string, logger *slog.Logger) *ModelScorer {
	return &ModelScorer{registry: NewRegistry(dir), logger: logger}
}

// Infer scores the feature set with the loaded artifact. Every failure mode
// (no artifact, bad artifact, width mismatch) reports absence, not an error.
func (m *ModelScorer) Infer(f *features.Set) (Inference, bool) {
	art := m.artifact()
	if art == nil {
		return Inference{}, false
	}

	x := Vectorize(f, art.Spec)

	var score int
	switch art.Meta.Kind {
	case KindLogReg:
		if len(x) != len(art.Weights) {
			m.logger.Warn("model vector width mismatch, skipping inference",
				"model_version", art.Meta.ModelVersion, "want", len(art.Weights), "got", len(x))
			return Inference{}, false
		}
		z := art.Bias
		for i, w := range art.Weights {
			z += w * x[i]
		}
		p := 1.0 / (1.0 + math.Exp(-z))
		score = int(math.Round(p * 100))

	case KindZScore:
		if len(x) != len(art.Means) {
			m.logger.Warn("model vector width mismatch, skipping inference",
				"model_version", art.Meta.ModelVersion, "want", len(art.Means), "got", len(x))
			return Inference{}, false
		}
		var sum float64
		n := 0
		for i := range x {
			if art.Stds[i] <= 0 {
				continue
			}
			sum += math.Abs(x[i]-art.Means[i]) / art.Stds[i]
			n++
		}
		if n == 0 {
			return Inference{}, false
		}
		anomaly := sum / float64(n)
		denom := art.Meta.Q95 - art.Meta.Q05
		if denom == 0 {
			denom = 1.0
		}
		norm := (anomaly - art.Meta.Q05) / denom
		score = int(math.Round(clamp01(norm) * 100))

	default:
		return Inference{}, false
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Inference{Score: score, ModelVersion: art.Meta.ModelVersion, Kind: art.Meta.Kind}, true
}

// Reload drops the cached artifact so the next Infer loads the latest one.
func (m *ModelScorer) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = false
	m.art = nil
}

// artifact returns the cached artifact, loading it on first use.
func (m *ModelScorer) artifact() *Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.art
	}
	m.loaded = true

	art, err := m.registry.LoadLatest()
	if err != nil {
		if err != errNoArtifact {
			m.logger.Warn("failed to load model artifact, running rules-only", "error", err)
		}
		return nil
	}
	m.art = art
	m.logger.Info("model artifact loaded",
		"kind", art.Meta.Kind, "model_version", art.Meta.ModelVersion)
	return m.art
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
