package classifier

import (
	"fmt"
	"sync/atomic"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/domain/explain"
	"github.com/safeguard/safety-assistant/internal/domain/features"
)

// urlModel is a trained scaler + random forest pipeline over URL features
type urlModel struct {
	Scaler *standardScaler `json:"scaler"`
	Forest *randomForest   `json:"forest"`
}

// URLClassifier labels URLs as safe, suspicious or malicious
type URLClassifier struct {
	path   string
	labels []string
	forest forestConfig
	model  atomic.Pointer[urlModel]
}

var _ Classifier = (*URLClassifier)(nil)

// NewURLClassifier creates an untrained classifier whose artifact lives at path.
// An empty path disables persistence.
func NewURLClassifier(path string) *URLClassifier {
	return &URLClassifier{
		path:   path,
		labels: domain.URLLabels,
		forest: defaultForestConfig(),
	}
}

func (c *URLClassifier) Kind() domain.ScanKind { return domain.KindURL }

func (c *URLClassifier) Labels() []string { return c.labels }

func (c *URLClassifier) Trained() bool { return c.model.Load() != nil }

func (c *URLClassifier) Capability() domain.Capability {
	return c.view().Capability()
}

func (c *URLClassifier) Load() error {
	m := &urlModel{}
	if err := readArtifact(c.path, c.Kind(), c.labels, m); err != nil {
		c.model.Store(nil)
		return err
	}
	if m.Scaler == nil || m.Forest == nil ||
		len(m.Scaler.Mean) != features.Count || len(m.Scaler.Scale) != features.Count ||
		len(m.Forest.Trees) == 0 {
		c.model.Store(nil)
		return fmt.Errorf("url artifact %s is incomplete", c.path)
	}
	if err := m.Forest.validate(features.Count, len(c.labels)); err != nil {
		c.model.Store(nil)
		return fmt.Errorf("url artifact %s is corrupt: %w", c.path, err)
	}
	c.model.Store(m)
	return nil
}

func (c *URLClassifier) Save() error {
	m := c.model.Load()
	if m == nil {
		return fmt.Errorf("url classifier is not trained")
	}
	return writeArtifact(c.path, c.Kind(), c.labels, m)
}

// Train extracts features from the URLs, fits the scaler and forest jointly,
// persists them and swaps them in.
func (c *URLClassifier) Train(samples, labels []string) error {
	y, err := encodeLabels(c.labels, samples, labels)
	if err != nil {
		return err
	}

	vectors := make([]features.Vector, len(samples))
	for i, raw := range samples {
		vectors[i] = features.Extract(raw)
	}

	scaler := fitScaler(vectors)
	X := make([][]float64, len(vectors))
	for i, v := range vectors {
		X[i] = scaler.transform(v)
	}

	m := &urlModel{
		Scaler: scaler,
		Forest: fitForest(X, y, len(c.labels), c.forest),
	}
	if err := writeArtifact(c.path, c.Kind(), c.labels, m); err != nil {
		return err
	}
	c.model.Store(m)
	return nil
}

func (c *URLClassifier) Predict(content string) domain.ClassificationResult {
	return c.view().predict(features.Extract(content))
}

func (c *URLClassifier) Explain(content string, _ domain.ClassificationResult) domain.Explanation {
	return explain.URL(content, features.Extract(content), c.view())
}

// Analyze predicts and explains against the same model snapshot
func (c *URLClassifier) Analyze(content string) (domain.ClassificationResult, domain.Explanation) {
	v := c.view()
	vec := features.Extract(content)
	return v.predict(vec), explain.URL(content, vec, v)
}

func (c *URLClassifier) view() urlView {
	return urlView{model: c.model.Load(), labels: c.labels}
}

// urlView pins one model snapshot for a predict/explain pair
type urlView struct {
	model  *urlModel
	labels []string
}

func (v urlView) predict(vec features.Vector) domain.ClassificationResult {
	if v.model == nil {
		return uniformResult(v.labels)
	}
	return resultFromProba(v.labels, v.model.Forest.predictProba(v.model.Scaler.transform(vec)))
}

func (v urlView) Capability() domain.Capability {
	if v.model == nil {
		return domain.Opaque
	}
	return domain.Explainable
}

func (v urlView) Importances() ([]float64, bool) {
	if v.model == nil {
		return nil, false
	}
	return v.model.Forest.Importances, true
}
