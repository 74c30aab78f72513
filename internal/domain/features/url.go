// Package features turns URLs into the fixed-length numeric vectors the URL
// classifier and its explanations rely on positionally.
package features

import (
	"math"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// Count is the number of features extracted from every URL
const Count = 18

// Positions of each feature inside a Vector
const (
	URLLength = iota
	DomainLength
	PathLength
	DotsCount
	SlashesCount
	DashesCount
	UnderscoresCount
	QuestionMarksCount
	EqualSignsCount
	AmpersandsCount
	PercentSignsCount
	SubdomainCount
	IPAddressPresent
	SuspiciousKeywordsCount
	URLEntropy
	ParameterCount
	AtSymbolPresent
	UnusualPortPresent
)

// Vector is the ordered feature vector of one URL
type Vector [Count]float64

// Names lists feature names in Vector order
var Names = [Count]string{
	"URL Length", "Domain Length", "Path Length", "Dots Count", "Slashes Count",
	"Dashes Count", "Underscores Count", "Question Marks Count", "Equal Signs Count",
	"Ampersands Count", "Percent Signs Count", "Subdomain Count", "IP Address Present",
	"Suspicious Keywords Count", "URL Entropy", "Parameter Count", "@ Symbol Present",
	"Unusual Port Present",
}

// SuspiciousKeywords are terms phishing URLs commonly borrow from legitimate services
var SuspiciousKeywords = []string{
	"secure", "account", "update", "confirm", "login", "signin", "bank", "paypal", "amazon",
}

var ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)

// Parts are the pieces of a URL the extractor looks at.
// Any part that cannot be parsed is left empty.
type Parts struct {
	Netloc string // userinfo@host:port, as written
	Host   string // hostname without port or brackets
	Port   string
	Path   string
	Query  string
}

// Split parses a URL without ever failing: malformed input yields empty parts
func Split(raw string) Parts {
	u, err := url.Parse(raw)
	if err != nil {
		return Parts{}
	}

	netloc := u.Host
	if u.User != nil {
		netloc = u.User.String() + "@" + u.Host
	}

	return Parts{
		Netloc: netloc,
		Host:   strings.ToLower(u.Hostname()),
		Port:   u.Port(),
		Path:   u.Path,
		Query:  u.RawQuery,
	}
}

// Extract computes the feature vector of a URL. It is deterministic and has no side effects.
func Extract(raw string) Vector {
	var v Vector
	parts := Split(raw)
	lower := strings.ToLower(raw)

	v[URLLength] = float64(utf8.RuneCountInString(raw))
	v[DomainLength] = float64(utf8.RuneCountInString(parts.Netloc))
	v[PathLength] = float64(utf8.RuneCountInString(parts.Path))
	v[DotsCount] = float64(strings.Count(raw, "."))
	v[SlashesCount] = float64(strings.Count(raw, "/"))
	v[DashesCount] = float64(strings.Count(raw, "-"))
	v[UnderscoresCount] = float64(strings.Count(raw, "_"))
	v[QuestionMarksCount] = float64(strings.Count(raw, "?"))
	v[EqualSignsCount] = float64(strings.Count(raw, "="))
	v[AmpersandsCount] = float64(strings.Count(raw, "&"))
	v[PercentSignsCount] = float64(strings.Count(raw, "%"))
	v[SubdomainCount] = float64(subdomainCount(raw, parts))

	if ipv4Pattern.MatchString(parts.Netloc) {
		v[IPAddressPresent] = 1
	}

	v[SuspiciousKeywordsCount] = float64(countKeywords(lower, SuspiciousKeywords))
	v[URLEntropy] = Entropy(raw)

	if parts.Query != "" {
		v[ParameterCount] = float64(strings.Count(parts.Query, "&") + 1)
	}
	if strings.Contains(raw, "@") {
		v[AtSymbolPresent] = 1
	}
	if parts.Port != "" && parts.Port != "80" && parts.Port != "443" {
		v[UnusualPortPresent] = 1
	}

	return v
}

// Entropy returns the Shannon entropy in bits of the character distribution of s
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	// Sum in a fixed order so repeated calls are bit-identical
	runes := make([]rune, 0, len(counts))
	for r := range counts {
		runes = append(runes, r)
	}
	slices.Sort(runes)

	entropy := 0.0
	for _, r := range runes {
		p := float64(counts[r]) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// Named pairs each feature value with its name, in Vector order
func (v Vector) Named() []domain.NamedValue {
	out := make([]domain.NamedValue, Count)
	for i := range v {
		out[i] = domain.NamedValue{Name: Names[i], Value: v[i]}
	}
	return out
}

// subdomainCount counts labels left of the registrable domain (a.b.example.com -> 2).
// Schemeless input such as "login.example.com/path" is still resolved to a host.
func subdomainCount(raw string, parts Parts) int {
	host := parts.Host
	if host == "" && !strings.Contains(raw, "://") && raw != "" {
		host = strings.ToLower(Split("http://" + raw).Host)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(host) != nil {
		return 0
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || registrable == host {
		return 0
	}
	sub := strings.TrimSuffix(host, "."+registrable)
	if sub == "" || sub == host {
		return 0
	}
	return strings.Count(sub, ".") + 1
}

// countKeywords counts how many keywords from the list appear in text
func countKeywords(text string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	return count
}
