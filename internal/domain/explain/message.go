package explain

import (
	"strings"
	"unicode/utf8"

	"github.com/safeguard/safety-assistant/internal/domain"
)

const messageFallback = "Based on learned patterns from training data"

var messageRules = []rule{
	{
		reason: "Contains urgent language, often used to pressure victims",
		match:  func(_, lower string) bool { return containsAny(lower, "urgent", "immediate") },
	},
	{
		reason: "Contains suspicious action prompts",
		match:  func(_, lower string) bool { return containsAny(lower, "click here", "verify account") },
	},
	{
		reason: "Asks for sensitive information",
		match:  func(_, lower string) bool { return containsAny(lower, "password", "credential") },
	},
	{
		reason: "Contains email-like patterns that may be spoofed",
		match:  func(raw, _ string) bool { return strings.Contains(raw, "@") && strings.Contains(raw, ".") },
	},
	{
		reason: "Unusually long message, may contain obfuscated content",
		match:  func(raw, _ string) bool { return utf8.RuneCountInString(raw) > 200 },
	},
	{
		reason: "Contains excessive punctuation for emphasis",
		match:  func(raw, _ string) bool { return containsAny(raw, "!!!", "???") },
	},
	{
		reason: "Mentions currency, common in financial scams",
		match:  func(raw, _ string) bool { return containsAny(raw, "$", "€", "£") },
	},
}

// MessageReasons runs the message checklist on the raw content
func MessageReasons(content string) []string {
	return applyRules(messageRules, content, messageFallback)
}

// Message explains a message verdict. Term weights and attribution are added
// only when the model is explainable; attribution errors drop that field alone.
func Message(content string, result domain.ClassificationResult, model MessageModel) domain.Explanation {
	exp := domain.Explanation{
		Kind:    domain.KindMessage,
		Reasons: MessageReasons(content),
	}
	if model == nil || model.Capability() != domain.Explainable {
		return exp
	}

	if terms, weights, ok := model.TermWeights(result.Label); ok {
		exp.Contributions = rankSigned(terms, weights, topContributions)
	}
	if attribution, err := model.Attribute(content, result.Label); err == nil {
		exp.Attribution = attribution
	}
	return exp
}
