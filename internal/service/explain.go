package service

import (
	"context"
	"feedbacklens/internal/model"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	porterstemmer "github.com/kiteco/go-porterstemmer"
)

// Classifier predicts class probabilities for a batch of texts.
// Each row of the result is aligned with Classes().
type Classifier interface {
	Classes() []string
	PredictProba(ctx context.Context, texts []string) ([][]float64, error)
}

// ExplainOptions tune the local explanation and attribution metrics
type ExplainOptions struct {
	NumFeatures   int
	Permutations  int
	MaxBackground int
	Seed          uint64
}

// DefaultExplainOptions mirror the usual LIME/SHAP defaults, scaled down for text
var DefaultExplainOptions = ExplainOptions{
	NumFeatures:   10,
	Permutations:  32,
	MaxBackground: 100,
	Seed:          42,
}

// explainOcclusion scores each distinct word by how much removing it lowers the
// probability of the predicted class
func explainOcclusion(ctx context.Context, clf Classifier, text string, numFeatures int) (*model.Explanation, error) {
	tokens := tokenize(text)
	features := distinct(tokens)
	if len(features) == 0 {
		return nil, fmt.Errorf("explanation: no words in text")
	}

	texts := make([]string, 0, len(features)+1)
	texts = append(texts, strings.Join(tokens, " "))
	for _, f := range features {
		texts = append(texts, strings.Join(without(tokens, f), " "))
	}
	probs, err := predict(ctx, clf, texts)
	if err != nil {
		return nil, err
	}

	class := argmax(probs[0])
	weights := make([]model.FeatureWeight, len(features))
	for i, f := range features {
		weights[i] = model.FeatureWeight{Feature: f, Weight: probs[0][class] - probs[i+1][class]}
	}
	sortByMagnitude(weights)

	top := weights
	if numFeatures > 0 && len(top) > numFeatures {
		top = top[:numFeatures]
	}
	return &model.Explanation{
		Class:        clf.Classes()[class],
		Explanations: weights,
		TopFeatures:  append([]model.FeatureWeight(nil), top...),
	}, nil
}

// attributeShapley estimates per-word Shapley values by permutation sampling.
// A coalition's value is the mean predicted probability of the text's class over
// the background corpus, with the coalition's words appended to each background text;
// the empty coalition is therefore the background mean.
func attributeShapley(ctx context.Context, clf Classifier, text string, background []string, opts ExplainOptions) (*model.Attribution, error) {
	tokens := tokenize(text)
	features := distinct(tokens)
	if len(features) == 0 {
		return nil, fmt.Errorf("attribution: no words in text")
	}
	if len(background) == 0 {
		return nil, fmt.Errorf("attribution: empty background corpus")
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	bg := sampleBackground(rng, background, opts.MaxBackground)

	full, err := predict(ctx, clf, []string{strings.Join(tokens, " ")})
	if err != nil {
		return nil, err
	}
	class := argmax(full[0])

	// coalition texts: the kept words appended to each background text
	coalition := func(in map[string]bool) []string {
		kept := make([]string, 0, len(tokens))
		for _, t := range tokens {
			if in[t] {
				kept = append(kept, t)
			}
		}
		suffix := strings.Join(kept, " ")
		batch := make([]string, len(bg))
		for i, b := range bg {
			batch[i] = strings.TrimSpace(b + " " + suffix)
		}
		return batch
	}

	permutations := opts.Permutations
	if permutations < 1 {
		permutations = 1
	}
	phi := make(map[string]float64, len(features))
	var base float64

	for p := 0; p < permutations; p++ {
		order := append([]string(nil), features...)
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		// one batched prediction per permutation: every prefix times every background text
		in := make(map[string]bool, len(order))
		var texts []string
		for step := 0; step <= len(order); step++ {
			if step > 0 {
				in[order[step-1]] = true
			}
			texts = append(texts, coalition(in)...)
		}
		probs, err := predict(ctx, clf, texts)
		if err != nil {
			return nil, err
		}

		means := make([]float64, len(order)+1)
		for step := range means {
			sum := 0.0
			for i := 0; i < len(bg); i++ {
				sum += probs[step*len(bg)+i][class]
			}
			means[step] = sum / float64(len(bg))
		}
		base = means[0]
		for step, f := range order {
			phi[f] += means[step+1] - means[step]
		}
	}

	values := make([]model.FeatureWeight, len(features))
	for i, f := range features {
		values[i] = model.FeatureWeight{Feature: f, Weight: phi[f] / float64(permutations)}
	}
	importance := make([]model.FeatureWeight, len(values))
	for i, v := range values {
		importance[i] = model.FeatureWeight{Feature: v.Feature, Weight: math.Abs(v.Weight)}
	}
	sortByMagnitude(importance)

	return &model.Attribution{
		Class:             clf.Classes()[class],
		ShapValues:        values,
		FeatureImportance: importance,
		BaseValue:         base,
	}, nil
}

func predict(ctx context.Context, clf Classifier, texts []string) ([][]float64, error) {
	probs, err := clf.PredictProba(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if len(probs) != len(texts) {
		return nil, fmt.Errorf("classifier: got %d predictions for %d texts", len(probs), len(texts))
	}
	n := len(clf.Classes())
	for _, row := range probs {
		if len(row) != n {
			return nil, fmt.Errorf("classifier: prediction has %d classes, want %d", len(row), n)
		}
	}
	return probs, nil
}

func sampleBackground(rng *rand.Rand, background []string, limit int) []string {
	if limit <= 0 || len(background) <= limit {
		return background
	}
	idx := rng.Perm(len(background))[:limit]
	sort.Ints(idx)
	out := make([]string, limit)
	for i, j := range idx {
		out[i] = background[j]
	}
	return out
}

func distinct(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func without(tokens []string, drop string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != drop {
			out = append(out, t)
		}
	}
	return out
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

func sortByMagnitude(w []model.FeatureWeight) {
	sort.SliceStable(w, func(i, j int) bool {
		ai, aj := math.Abs(w[i].Weight), math.Abs(w[j].Weight)
		if ai != aj {
			return ai > aj
		}
		return w[i].Feature < w[j].Feature
	})
}

// LexiconClassifier is a small sentiment model over stemmed words, with
// classes positive and negative. It exists so explanations work without an
// external model.
type LexiconClassifier struct {
	weights map[string]float64
}

var (
	positiveWords = []string{
		"good", "great", "excellent", "clear", "helpful", "strong", "well", "creative",
		"thorough", "insightful", "organized", "engaged", "improved", "effective",
		"collaborative", "reliable", "impressive", "detailed", "confident", "proactive",
	}
	negativeWords = []string{
		"poor", "weak", "unclear", "late", "missing", "confusing", "lacks", "lacking",
		"bad", "incomplete", "disorganized", "careless", "absent", "rushed", "vague",
		"struggles", "struggled", "sloppy", "inconsistent", "unprepared",
	}
	negators = map[string]bool{"not": true, "no": true, "never": true, "hardly": true, "isn't": true, "wasn't": true, "doesn't": true, "didn't": true}
)

// NewLexiconClassifier builds the built-in classifier
func NewLexiconClassifier() *LexiconClassifier {
	w := make(map[string]float64, len(positiveWords)+len(negativeWords))
	for _, word := range positiveWords {
		w[porterstemmer.StemString(word)] = 1
	}
	for _, word := range negativeWords {
		w[porterstemmer.StemString(word)] = -1
	}
	return &LexiconClassifier{weights: w}
}

func (c *LexiconClassifier) Classes() []string {
	return []string{"positive", "negative"}
}

func (c *LexiconClassifier) PredictProba(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		score := 0.0
		negate := false
		for _, tok := range tokenize(text) {
			if negators[tok] {
				negate = true
				continue
			}
			wt := c.weights[porterstemmer.StemString(strings.Trim(tok, "'"))]
			if negate {
				wt = -wt
				negate = false
			}
			score += wt
		}
		pos := 1 / (1 + math.Exp(-score))
		out[i] = []float64{pos, 1 - pos}
	}
	return out, nil
}
