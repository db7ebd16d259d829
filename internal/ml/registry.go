// Package ml loads trained model artifacts and scores feature sets with them.
//
// A model is an optional capability: no artifact on disk, a malformed
// artifact, or a vector-width mismatch all degrade to "no model", never to an
// error the scoring pipeline sees. The rule score is the floor either way.
package ml

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Artifact kinds. Logistic regression is preferred when both are present,
// matching the offline training pipeline's publishing order.
const (
	KindLogReg = "logreg"
	KindZScore = "zscore"
)

var errNoArtifact = errors.New("no model artifact found")

// Artifact is the on-disk JSON bundle produced by the training scripts.
type Artifact struct {
	Meta    Meta        `json:"meta"`
	Spec    FeatureSpec `json:"spec"`
	Weights []float64   `json:"weights,omitempty"` // logreg
	Bias    float64     `json:"bias,omitempty"`    // logreg
	Means   []float64   `json:"means,omitempty"`   // zscore
	Stds    []float64   `json:"stds,omitempty"`    // zscore
}

// Meta describes the artifact.
type Meta struct {
	Kind         string  `json:"kind"`
	ModelVersion string  `json:"model_version"`
	Q05          float64 `json:"q05,omitempty"` // zscore calibration quantiles
	Q95          float64 `json:"q95,omitempty"`
}

// Registry locates model artifacts in a directory. Artifacts are named
// <kind>_*.json; the newest file (by modification time) per kind wins.
type Registry struct {
	dir string
}

// NewRegistry creates a registry over the given directory. An empty dir means
// no model will ever load.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// LoadLatest loads the freshest artifact, preferring logreg over zscore.
// Returns errNoArtifact (or a parse error) when nothing usable exists.
func (r *Registry) LoadLatest() (*Artifact, error) {
	if r.dir == "" {
		return nil, errNoArtifact
	}

	path := r.latestFile(KindLogReg)
	if path == "" {
		path = r.latestFile(KindZScore)
	}
	if path == "" {
		return nil, errNoArtifact
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var art Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, err
	}
	if art.Meta.ModelVersion == "" {
		art.Meta.ModelVersion = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if err := art.validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

// latestFile returns the newest <kind>_*.json in the registry dir, or "".
func (r *Registry) latestFile(kind string) string {
	matches, err := filepath.Glob(filepath.Join(r.dir, kind+"_*.json"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Slice(matches, func(i, j int) bool {
		return mtime(matches[i]).After(mtime(matches[j]))
	})
	return matches[0]
}

func mtime(path string) (t time.Time) {
	if info, err := os.Stat(path); err == nil {
		t = info.ModTime()
	}
	return t
}

func (a *Artifact) validate() error {
	switch a.Meta.Kind {
	case KindLogReg:
		if len(a.Weights) == 0 {
			return errors.New("logreg artifact has no weights")
		}
	case KindZScore:
		if len(a.Means) == 0 || len(a.Means) != len(a.Stds) {
			return errors.New("zscore artifact has mismatched means/stds")
		}
	default:
		return errors.New("unknown model kind: " + a.Meta.Kind)
	}
	return nil
}
