package service

import (
	"context"
	"feedbacklens/internal/llm"
	"feedbacklens/internal/model"
	"fmt"
	"math"
	"strings"
	"unicode"

	porterstemmer "github.com/kiteco/go-porterstemmer"
)

// SimilarityScorer compares a candidate text with a reference text
type SimilarityScorer interface {
	Name() string
	Score(ctx context.Context, candidate, reference string) (*model.SimilarityMetric, error)
}

// LexicalScorer matches Porter-stemmed words between candidate and reference.
// Repeated words only match as many times as they occur on the other side.
type LexicalScorer struct{}

func (LexicalScorer) Name() string { return "lexical" }

func (LexicalScorer) Score(_ context.Context, candidate, reference string) (*model.SimilarityMetric, error) {
	cand := stems(tokenize(candidate))
	ref := stems(tokenize(reference))
	if len(cand) == 0 || len(ref) == 0 {
		return nil, fmt.Errorf("lexical similarity: empty text")
	}

	counts := make(map[string]int, len(ref))
	for _, t := range ref {
		counts[t]++
	}
	matched := 0
	for _, t := range cand {
		if counts[t] > 0 {
			counts[t]--
			matched++
		}
	}

	p := float64(matched) / float64(len(cand))
	r := float64(matched) / float64(len(ref))
	return &model.SimilarityMetric{Scorer: "lexical", Precision: p, Recall: r, F1: f1(p, r)}, nil
}

// EmbeddingScorer greedily matches sentence embeddings by cosine similarity:
// precision averages each candidate sentence's best match in the reference,
// recall does the reverse.
type EmbeddingScorer struct {
	embedder llm.Embedder
}

// NewEmbeddingScorer creates a scorer backed by an embeddings endpoint
func NewEmbeddingScorer(embedder llm.Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: embedder}
}

func (s *EmbeddingScorer) Name() string { return "embedding" }

func (s *EmbeddingScorer) Score(ctx context.Context, candidate, reference string) (*model.SimilarityMetric, error) {
	cand := sentences(candidate)
	ref := sentences(reference)
	if len(cand) == 0 || len(ref) == 0 {
		return nil, fmt.Errorf("embedding similarity: empty text")
	}

	vecs, err := s.embedder.Embed(ctx, append(append([]string{}, cand...), ref...))
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(cand)+len(ref) {
		return nil, fmt.Errorf("embedding similarity: got %d vectors for %d sentences", len(vecs), len(cand)+len(ref))
	}
	cv, rv := vecs[:len(cand)], vecs[len(cand):]

	p := greedyMatch(cv, rv)
	r := greedyMatch(rv, cv)
	return &model.SimilarityMetric{Scorer: "embedding", Precision: p, Recall: r, F1: f1(p, r)}, nil
}

// greedyMatch averages, over from, the best cosine against any vector in to
func greedyMatch(from, to [][]float64) float64 {
	total := 0.0
	for _, a := range from {
		best := -1.0
		for _, b := range to {
			if c := cosine(a, b); c > best {
				best = c
			}
		}
		total += best
	}
	return total / float64(len(from))
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// tokenize splits text into lowercase words
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func stems(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.Trim(t, "'"); t != "" {
			out = append(out, porterstemmer.StemString(t))
		}
	}
	return out
}

// sentences splits on terminal punctuation and newlines
func sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
