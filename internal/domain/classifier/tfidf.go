package classifier

import (
	"math"
	"sort"
)

// maxVocabulary caps the number of terms kept by the vectorizer
const maxVocabulary = 5000

// sparseEntry is one non-zero component of a document vector
type sparseEntry struct {
	Index int
	Value float64
}

// sparseVector holds non-zero components sorted by Index
type sparseVector []sparseEntry

// tfidfVectorizer maps normalized text to L2-normalized TF-IDF vectors
// over a vocabulary of unigrams and bigrams.
type tfidfVectorizer struct {
	Vocabulary []string  `json:"vocabulary"` // sorted, position = feature index
	IDF        []float64 `json:"idf"`

	index map[string]int
}

// fitVectorizer learns the vocabulary and smoothed IDF weights from normalized documents.
// When the corpus has more than maxVocabulary distinct terms, the most frequent are kept.
func fitVectorizer(docs []string) *tfidfVectorizer {
	termCount := make(map[string]int)
	docFreq := make(map[string]int)

	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range Terms(doc) {
			termCount[term]++
			if !seen[term] {
				docFreq[term]++
				seen[term] = true
			}
		}
	}

	terms := make([]string, 0, len(termCount))
	for term := range termCount {
		terms = append(terms, term)
	}

	if len(terms) > maxVocabulary {
		sort.Slice(terms, func(i, j int) bool {
			if termCount[terms[i]] != termCount[terms[j]] {
				return termCount[terms[i]] > termCount[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxVocabulary]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	v := &tfidfVectorizer{Vocabulary: terms, IDF: idf}
	v.buildIndex()
	return v
}

func (v *tfidfVectorizer) buildIndex() {
	v.index = make(map[string]int, len(v.Vocabulary))
	for i, term := range v.Vocabulary {
		v.index[term] = i
	}
}

// size is the number of features produced by transform
func (v *tfidfVectorizer) size() int {
	return len(v.Vocabulary)
}

// transform vectorizes one normalized document. Out-of-vocabulary terms are ignored.
func (v *tfidfVectorizer) transform(doc string) sparseVector {
	counts := make(map[int]float64)
	for _, term := range Terms(doc) {
		if idx, ok := v.index[term]; ok {
			counts[idx]++
		}
	}

	vec := make(sparseVector, 0, len(counts))
	norm := 0.0
	for idx, tf := range counts {
		value := tf * v.IDF[idx]
		vec = append(vec, sparseEntry{Index: idx, Value: value})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].Index < vec[j].Index })

	for _, e := range vec {
		norm += e.Value * e.Value
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i].Value /= norm
		}
	}
	return vec
}
