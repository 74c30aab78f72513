package domain

import "encoding/json"

// FeatureContribution is one ranked contributor to a prediction.
// Weight is signed; Magnitude is its absolute value. Value is set for
// URL features, where the concrete extracted value is shown alongside.
type FeatureContribution struct {
	Name      string   `json:"name"`
	Weight    float64  `json:"weight"`
	Magnitude float64  `json:"importance"`
	Value     *float64 `json:"value,omitempty"`
}

// Attribution holds additive per-feature contributions for a single prediction.
// BaseValue plus the contributions of every feature equals Score, the model's
// log-score for Label. Values keeps only the largest contributions.
type Attribution struct {
	Label     string             `json:"label"`
	BaseValue float64            `json:"base_value"`
	Score     float64            `json:"score"`
	Values    []AttributionValue `json:"values"`
}

// AttributionValue is the additive contribution of one feature
type AttributionValue struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Concern is a thresholded structural warning about a URL.
// Value is the measured number, or "Present" for flag features.
type Concern struct {
	Feature  string `json:"feature"`
	Value    any    `json:"value"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"` // "high", "medium" or "low"
}

// NamedValue is a feature name with its extracted value
type NamedValue struct {
	Name  string
	Value float64
}

// Explanation is the human-readable account of a verdict. It is purely
// informational and never influences the label it explains.
type Explanation struct {
	Kind          ScanKind
	Reasons       []string
	Contributions []FeatureContribution
	Attribution   *Attribution
	Features      []NamedValue
	Concerns      []Concern
	Network       *NetworkInfo
}

type messageWord struct {
	Word       string  `json:"word"`
	Weight     float64 `json:"weight"`
	Importance float64 `json:"importance"`
}

type messagePattern struct {
	Pattern    string  `json:"pattern"`
	Weight     float64 `json:"weight"`
	Importance float64 `json:"importance"`
}

type urlTopFeature struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Value      float64 `json:"value"`
}

// MarshalJSON renders the kind-specific shape consumed by clients:
// {text_explanation, feature_importance, shap_explanation?} for messages and
// {url_analysis: {...}} for URLs.
func (e Explanation) MarshalJSON() ([]byte, error) {
	reasons := e.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	if e.Kind == KindURL {
		features := make(map[string]float64, len(e.Features))
		for _, f := range e.Features {
			features[f.Name] = f.Value
		}
		importance := map[string]any{}
		if len(e.Contributions) > 0 {
			top := make([]urlTopFeature, 0, len(e.Contributions))
			for _, c := range e.Contributions {
				tf := urlTopFeature{Feature: c.Name, Importance: c.Magnitude}
				if c.Value != nil {
					tf.Value = *c.Value
				}
				top = append(top, tf)
			}
			importance["top_features"] = top
		}
		concerns := e.Concerns
		if concerns == nil {
			concerns = []Concern{}
		}
		return json.Marshal(map[string]any{
			"url_analysis": struct {
				Features          map[string]float64 `json:"features"`
				Concerns          []Concern          `json:"concerns"`
				TextExplanation   []string           `json:"text_explanation"`
				FeatureImportance map[string]any     `json:"feature_importance"`
				Network           *NetworkInfo       `json:"network,omitempty"`
			}{features, concerns, reasons, importance, e.Network},
		})
	}

	importance := map[string]any{}
	var words []messageWord
	var patterns []messagePattern
	for _, c := range e.Contributions {
		switch {
		case c.Weight > 0:
			words = append(words, messageWord{c.Name, c.Weight, c.Magnitude})
		case c.Weight < 0:
			patterns = append(patterns, messagePattern{c.Name, c.Weight, c.Magnitude})
		}
	}
	if len(e.Contributions) > 0 {
		if words == nil {
			words = []messageWord{}
		}
		if patterns == nil {
			patterns = []messagePattern{}
		}
		importance["important_words"] = words
		importance["concerning_patterns"] = patterns
	}
	return json.Marshal(struct {
		TextExplanation   []string       `json:"text_explanation"`
		FeatureImportance map[string]any `json:"feature_importance"`
		ShapExplanation   *Attribution   `json:"shap_explanation,omitempty"`
	}{reasons, importance, e.Attribution})
}
