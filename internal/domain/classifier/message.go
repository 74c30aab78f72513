package classifier

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/domain/explain"
)

// naiveBayesAlpha is the additive smoothing of the message model
const naiveBayesAlpha = 1.0

// messageModel is a trained TF-IDF + naive Bayes pipeline. It is immutable once
// built, apart from the attribution explainer which is created on first use.
type messageModel struct {
	Vectorizer *tfidfVectorizer `json:"vectorizer"`
	Bayes      *multinomialNB   `json:"naive_bayes"`
	Background []string         `json:"background"` // normalized training documents

	explainerOnce sync.Once
	explainer     *attributionExplainer
	explainerErr  error
}

func (m *messageModel) attributionExplainer() (*attributionExplainer, error) {
	m.explainerOnce.Do(func() {
		m.explainer, m.explainerErr = newAttributionExplainer(m.Vectorizer, m.Background)
	})
	return m.explainer, m.explainerErr
}

// MessageClassifier labels free text as safe, suspicious or scam
type MessageClassifier struct {
	path   string
	labels []string
	model  atomic.Pointer[messageModel]
}

var _ Classifier = (*MessageClassifier)(nil)

// NewMessageClassifier creates an untrained classifier whose artifact lives at path.
// An empty path disables persistence.
func NewMessageClassifier(path string) *MessageClassifier {
	return &MessageClassifier{
		path:   path,
		labels: domain.MessageLabels,
	}
}

func (c *MessageClassifier) Kind() domain.ScanKind { return domain.KindMessage }

func (c *MessageClassifier) Labels() []string { return c.labels }

func (c *MessageClassifier) Trained() bool { return c.model.Load() != nil }

func (c *MessageClassifier) Capability() domain.Capability {
	return c.view().Capability()
}

func (c *MessageClassifier) Load() error {
	m := &messageModel{}
	if err := readArtifact(c.path, c.Kind(), c.labels, m); err != nil {
		c.model.Store(nil)
		return err
	}
	if m.Vectorizer == nil || m.Bayes == nil {
		c.model.Store(nil)
		return fmt.Errorf("message artifact %s is incomplete", c.path)
	}
	if len(m.Vectorizer.IDF) != m.Vectorizer.size() {
		c.model.Store(nil)
		return fmt.Errorf("message artifact %s has inconsistent dimensions", c.path)
	}
	if err := m.Bayes.validate(len(c.labels), m.Vectorizer.size()); err != nil {
		c.model.Store(nil)
		return fmt.Errorf("message artifact %s is corrupt: %w", c.path, err)
	}
	m.Vectorizer.buildIndex()
	c.model.Store(m)
	return nil
}

func (c *MessageClassifier) Save() error {
	m := c.model.Load()
	if m == nil {
		return fmt.Errorf("message classifier is not trained")
	}
	return writeArtifact(c.path, c.Kind(), c.labels, m)
}

// Train fits a new pipeline on the given messages. The served model is only
// replaced once the new artifact has been persisted.
func (c *MessageClassifier) Train(samples, labels []string) error {
	y, err := encodeLabels(c.labels, samples, labels)
	if err != nil {
		return err
	}

	docs := make([]string, len(samples))
	for i, s := range samples {
		docs[i] = Normalize(s)
	}

	vectorizer := fitVectorizer(docs)
	X := make([]sparseVector, len(docs))
	for i, doc := range docs {
		X[i] = vectorizer.transform(doc)
	}

	background := docs
	if len(background) > maxBackground {
		background = background[:maxBackground]
	}

	m := &messageModel{
		Vectorizer: vectorizer,
		Bayes:      fitNaiveBayes(X, y, len(c.labels), vectorizer.size(), naiveBayesAlpha),
		Background: append([]string(nil), background...),
	}
	if err := writeArtifact(c.path, c.Kind(), c.labels, m); err != nil {
		return err
	}
	c.model.Store(m)
	return nil
}

func (c *MessageClassifier) Predict(content string) domain.ClassificationResult {
	return c.view().predict(content)
}

func (c *MessageClassifier) Explain(content string, result domain.ClassificationResult) domain.Explanation {
	return explain.Message(content, result, c.view())
}

// Analyze predicts and explains against the same model snapshot
func (c *MessageClassifier) Analyze(content string) (domain.ClassificationResult, domain.Explanation) {
	v := c.view()
	result := v.predict(content)
	return result, explain.Message(content, result, v)
}

func (c *MessageClassifier) view() messageView {
	return messageView{model: c.model.Load(), labels: c.labels}
}

// messageView pins one model snapshot for a predict/explain pair
type messageView struct {
	model  *messageModel
	labels []string
}

func (v messageView) predict(content string) domain.ClassificationResult {
	if v.model == nil {
		return uniformResult(v.labels)
	}
	x := v.model.Vectorizer.transform(Normalize(content))
	return resultFromProba(v.labels, v.model.Bayes.predictProba(x))
}

func (v messageView) Capability() domain.Capability {
	if v.model == nil {
		return domain.Opaque
	}
	return domain.Explainable
}

func (v messageView) TermWeights(label string) ([]string, []float64, bool) {
	c := labelIndex(v.labels, label)
	if v.model == nil || c < 0 {
		return nil, nil, false
	}
	return v.model.Vectorizer.Vocabulary, v.model.Bayes.classWeights(c), true
}

func (v messageView) Attribute(content, label string) (*domain.Attribution, error) {
	c := labelIndex(v.labels, label)
	if v.model == nil || c < 0 {
		return nil, fmt.Errorf("no attribution available for label %q", label)
	}
	e, err := v.model.attributionExplainer()
	if err != nil {
		return nil, err
	}
	x := v.model.Vectorizer.transform(Normalize(content))
	return e.attribute(v.model.Bayes, v.model.Vectorizer.Vocabulary, x, c, label), nil
}
