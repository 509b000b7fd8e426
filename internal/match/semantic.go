package match

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/cyber-nic/repomap/internal/extractor"
)

// SemanticMatcher ranks identifiers by corpus-local TF-IDF cosine
// similarity against a query, tokenized the same way identifiers are split
// elsewhere (camelCase/snake_case boundaries). This stays on the standard
// library deliberately: nothing in the reference corpus wires in an
// embedding model, so semantic matching is scoped to a corpus-local
// statistical model rather than a learned one.
type SemanticMatcher struct {
	maxFeatures int
	docs        []tfidfDoc
	idf         map[string]float64
	version     uint64
}

type tfidfDoc struct {
	candidate Candidate
	vector    map[string]float64
	norm      float64
}

var tokenSplit = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func tokenize(name string) []string {
	spaced := camelBoundary.ReplaceAllString(name, "$1 $2")
	parts := tokenSplit.Split(spaced, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, strings.ToLower(p))
	}
	return out
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// NewSemanticMatcher builds a TF-IDF model over candidates. maxFeatures
// bounds the vocabulary size; the most frequent terms are kept when the
// corpus exceeds it.
func NewSemanticMatcher(candidates []Candidate, maxFeatures int, version uint64) *SemanticMatcher {
	docFreq := make(map[string]int)
	tokensByDoc := make([][]string, len(candidates))

	for i, c := range candidates {
		toks := tokenize(c.Name)
		tokensByDoc[i] = toks
		seen := make(map[string]bool)
		for _, t := range toks {
			if !seen[t] {
				docFreq[t]++
				seen[t] = true
			}
		}
	}

	vocab := rankedVocabulary(docFreq, maxFeatures)

	n := float64(len(candidates))
	idf := make(map[string]float64, len(vocab))
	for _, t := range vocab {
		idf[t] = math.Log(1 + n/float64(docFreq[t]))
	}

	docs := make([]tfidfDoc, len(candidates))
	for i, c := range candidates {
		docs[i] = tfidfDoc{candidate: c, vector: tfVector(tokensByDoc[i], idf)}
		docs[i].norm = vectorNorm(docs[i].vector)
	}

	return &SemanticMatcher{maxFeatures: maxFeatures, docs: docs, idf: idf, version: version}
}

func rankedVocabulary(docFreq map[string]int, maxFeatures int) []string {
	terms := make([]string, 0, len(docFreq))
	for t := range docFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	return terms
}

func tfVector(tokens []string, idf map[string]float64) map[string]float64 {
	counts := make(map[string]int)
	for _, t := range tokens {
		if _, ok := idf[t]; ok {
			counts[t]++
		}
	}
	vec := make(map[string]float64, len(counts))
	total := float64(len(tokens))
	if total == 0 {
		return vec
	}
	for t, c := range counts {
		vec[t] = (float64(c) / total) * idf[t]
	}
	return vec
}

func vectorNorm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func cosine(a map[string]float64, aNorm float64, b map[string]float64, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	// Iterate the smaller map for efficiency.
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for t, v := range small {
		dot += v * large[t]
	}
	return dot / (aNorm * bNorm)
}

// Version reports the corpus version this model was built from, so callers
// can tell when their cached matcher needs rebuilding.
func (m *SemanticMatcher) Version() uint64 { return m.version }

// TopTerms returns up to n of c's highest-TF-IDF-weighted terms, used to
// cluster and title exploration trees by shared vocabulary.
func (m *SemanticMatcher) TopTerms(c Candidate, n int) []string {
	for _, d := range m.docs {
		if d.candidate.File == c.File && d.candidate.Name == c.Name {
			return topTerms(d.vector, n)
		}
	}
	return nil
}

func topTerms(vec map[string]float64, n int) []string {
	type weighted struct {
		term   string
		weight float64
	}
	items := make([]weighted, 0, len(vec))
	for t, w := range vec {
		items = append(items, weighted{t, w})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].weight != items[j].weight {
			return items[i].weight > items[j].weight
		}
		return items[i].term < items[j].term
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = items[i].term
	}
	return out
}

// Match scores every indexed candidate against query and returns matches at
// or above threshold (0-1), sorted by score descending then name.
func (m *SemanticMatcher) Match(query string, threshold float64) []Result {
	qVec := tfVector(tokenize(query), m.idf)
	qNorm := vectorNorm(qVec)

	var out []Result
	for _, d := range m.docs {
		score := cosine(qVec, qNorm, d.vector, d.norm)
		if score >= threshold {
			out = append(out, Result{Candidate: d.candidate, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Candidate.Name < out[j].Candidate.Name
	})
	return out
}

// BuildCandidates flattens a corpus's definitions into the Candidate slice
// the matchers operate over.
func BuildCandidates(corpus *extractor.Corpus) []Candidate {
	out := make([]Candidate, 0, len(corpus.Definitions))
	for name, sites := range corpus.Definitions {
		for _, s := range sites {
			out = append(out, Candidate{Name: name, File: s.File})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].File < out[j].File
	})
	return out
}
