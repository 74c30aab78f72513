package explain

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/domain/features"
)

const urlFallback = "Based on machine learning analysis of URL structure and patterns"

// SuspiciousTLDs are top-level domains frequently registered for throwaway sites
var SuspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".xyz", ".top"}

// URLReasons runs the URL checklist on the raw URL
func URLReasons(raw string) []string {
	parts := features.Split(raw)
	lower := strings.ToLower(raw)

	reasons := make([]string, 0)
	if strings.Count(parts.Netloc, ".") > 2 {
		reasons = append(reasons, "Domain has many subdomains, which can be used to appear legitimate")
	}
	for _, tld := range SuspiciousTLDs {
		if strings.HasSuffix(raw, tld) {
			reasons = append(reasons, "Uses '"+tld+"' top-level domain, often associated with suspicious sites")
			break
		}
	}
	if utf8.RuneCountInString(parts.Path) > 50 {
		reasons = append(reasons, "Unusually long path in URL, may contain obfuscated content")
	}
	if containsAny(lower, "login", "secure", "account") {
		reasons = append(reasons, "Contains terms commonly used in phishing attempts")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, urlFallback)
	}
	return reasons
}

// Concerns flags structural traits of a URL, each with a severity tier
func Concerns(v features.Vector) []domain.Concern {
	concerns := make([]domain.Concern, 0)

	if l := v[features.URLLength]; l > 100 {
		concerns = append(concerns, domain.Concern{
			Feature:  "URL Length",
			Value:    l,
			Reason:   "Unusually long URL may indicate obfuscation",
			Severity: tier(l > 150, "high", "medium"),
		})
	}
	if v[features.IPAddressPresent] > 0 {
		concerns = append(concerns, domain.Concern{
			Feature:  "IP Address",
			Value:    "Present",
			Reason:   "Direct IP addresses in URLs are often used by malicious sites",
			Severity: "high",
		})
	}
	if e := v[features.URLEntropy]; e > 4 {
		concerns = append(concerns, domain.Concern{
			Feature:  "URL Entropy",
			Value:    math.Round(e*100) / 100,
			Reason:   "High randomness in URL may indicate obfuscation",
			Severity: tier(e > 5, "high", "medium"),
		})
	}
	if k := v[features.SuspiciousKeywordsCount]; k > 2 {
		concerns = append(concerns, domain.Concern{
			Feature:  "Suspicious Keywords",
			Value:    k,
			Reason:   "Multiple suspicious keywords may indicate phishing attempt",
			Severity: tier(k > 4, "high", "medium"),
		})
	}
	if v[features.AtSymbolPresent] > 0 {
		concerns = append(concerns, domain.Concern{
			Feature:  "@ Symbol",
			Value:    "Present",
			Reason:   "@ symbol in URL can be used to obfuscate the real domain",
			Severity: "high",
		})
	}
	if v[features.UnusualPortPresent] > 0 {
		concerns = append(concerns, domain.Concern{
			Feature:  "Unusual Port",
			Value:    "Present",
			Reason:   "Non-standard ports may indicate malicious activity",
			Severity: "medium",
		})
	}
	if p := v[features.ParameterCount]; p > 5 {
		concerns = append(concerns, domain.Concern{
			Feature:  "Parameter Count",
			Value:    p,
			Reason:   "Excessive parameters may indicate obfuscation or tracking",
			Severity: tier(p > 10, "medium", "low"),
		})
	}
	return concerns
}

// URL explains a URL verdict from the URL and its extracted features
func URL(raw string, v features.Vector, model URLModel) domain.Explanation {
	exp := domain.Explanation{
		Kind:     domain.KindURL,
		Reasons:  URLReasons(raw),
		Features: v.Named(),
		Concerns: Concerns(v),
	}
	if model == nil || model.Capability() != domain.Explainable {
		return exp
	}

	importances, ok := model.Importances()
	if !ok || len(importances) != features.Count {
		return exp
	}
	exp.Contributions = rankImportances(importances, v)
	return exp
}

// rankImportances keeps the most important features with their extracted values
func rankImportances(importances []float64, v features.Vector) []domain.FeatureContribution {
	idx := make([]int, features.Count)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return importances[idx[a]] > importances[idx[b]] })

	out := make([]domain.FeatureContribution, 0, topContributions)
	for _, i := range idx[:topContributions] {
		value := v[i]
		c := contribution(features.Names[i], importances[i])
		c.Value = &value
		out = append(out, c)
	}
	return out
}

func tier(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
