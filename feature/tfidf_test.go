package feature

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/materialmarkt/matkit/core"
)

func TestFitTransformEmptyCorpus(t *testing.T) {
	v := &Vectorizer{}

	tests := []struct {
		name string
		docs map[string]string
	}{
		{"no documents", map[string]string{}},
		{"only stop words", map[string]string{"d1": "the and of"}},
		{"only single characters", map[string]string{"d1": "a b c 1 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.FitTransform(tt.docs)
			if !core.IsEmptyVocabulary(err) {
				t.Errorf("FitTransform() error = %v, want empty vocabulary", err)
			}
		})
	}
}

func TestFitTransformNormalization(t *testing.T) {
	v := &Vectorizer{}
	vectors, err := v.FitTransform(map[string]string{
		"d1": "bruchrechnen übungen mathematik",
		"d2": "bruchrechnen spiele mathematik",
		"d3": "lesetagebuch vorlage deutsch",
	})
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	for id, vec := range vectors {
		norm := 0.0
		for _, w := range vec {
			norm += w * w
		}
		if math.Abs(math.Sqrt(norm)-1.0) > 1e-9 {
			t.Errorf("doc %s: vector norm = %v, want 1.0", id, math.Sqrt(norm))
		}
	}
}

func TestFitTransformSimilarity(t *testing.T) {
	v := &Vectorizer{}
	vectors, err := v.FitTransform(map[string]string{
		"d1": "bruchrechnen übungen klasse drei",
		"d2": "bruchrechnen übungen klasse drei",
		"d3": "herbst basteln kunst ideen",
	})
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	if sim := cosine(vectors["d1"], vectors["d2"]); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("identical docs similarity = %v, want 1.0", sim)
	}
	if sim := cosine(vectors["d1"], vectors["d3"]); sim != 0 {
		t.Errorf("disjoint docs similarity = %v, want 0", sim)
	}
}

func TestFitTransformIncludesBigrams(t *testing.T) {
	v := &Vectorizer{}
	vectors, err := v.FitTransform(map[string]string{
		"d1": "klasse drei",
		"d2": "drei klasse",
	})
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	if _, ok := vectors["d1"]["klasse drei"]; !ok {
		t.Error("bigram 'klasse drei' missing from d1")
	}
	// same unigrams, different bigrams: similar but not identical
	sim := cosine(vectors["d1"], vectors["d2"])
	if sim <= 0 || sim >= 1 {
		t.Errorf("reordered docs similarity = %v, want in (0, 1)", sim)
	}
}

func TestVocabularyCap(t *testing.T) {
	docs := make(map[string]string, 30)
	for i := 0; i < 30; i++ {
		docs[fmt.Sprintf("d%02d", i)] = fmt.Sprintf("wort%02d gemeinsam", i)
	}

	v := &Vectorizer{MaxFeatures: 5}
	vectors, err := v.FitTransform(docs)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	vocab := make(map[string]struct{})
	for _, vec := range vectors {
		for term := range vec {
			vocab[term] = struct{}{}
		}
	}
	if len(vocab) > 5 {
		t.Errorf("vocabulary size = %d, want <= 5", len(vocab))
	}
	// the corpus-wide frequent term must survive the cap
	if _, ok := vocab["gemeinsam"]; !ok {
		t.Error("most frequent term dropped by vocabulary cap")
	}
}

func TestFitTransformDeterministic(t *testing.T) {
	docs := map[string]string{
		"d1": "bruchrechnen übungen mathematik klasse",
		"d2": "diktate sammlung deutsch klasse",
		"d3": "herbst basteln kunst",
	}
	v := &Vectorizer{MaxFeatures: 8}

	first, err := v.FitTransform(docs)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := v.FitTransform(docs)
		if err != nil {
			t.Fatalf("FitTransform() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: vectors differ between identical fits", i)
		}
	}
}
