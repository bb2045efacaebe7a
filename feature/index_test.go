package feature

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/materialmarkt/matkit/core"
)

func indexMaterials() map[string]*core.Material {
	return map[string]*core.Material{
		"m-1": {
			ID: "m-1", Title: "Bruchrechnen Übungsheft", Description: "Übungen zum Bruchrechnen",
			Categories: []string{"Mathematik"}, Grades: []string{"Klasse 3"},
			Format: "PDF", Complexity: "mittel",
		},
		"m-2": {
			ID: "m-2", Title: "Bruchrechnen Spiele", Description: "Spiele zum Bruchrechnen",
			Categories: []string{"Mathematik"}, Grades: []string{"Klasse 3", "Klasse 4"},
			Format: "PDF", Complexity: "leicht",
		},
		"m-3": {
			ID: "m-3", Title: "Herbst Bastelideen", Description: "Basteln im Herbst",
			Categories: []string{"Kunst"}, Grades: []string{"Klasse 1"},
			Format: "Video", Seasons: []string{"Herbst"}, IsBundle: true,
		},
	}
}

func TestCategoricalSimilarity(t *testing.T) {
	idx := BuildIndex(indexMaterials(), Vectorizer{}, DefaultTextWeight)

	// m-1 vs m-2: categories jaccard 1, grades jaccard 1/2,
	// format exact 1, complexity exact 0, bundle exact 1 → 3.5/5
	got := idx.CategoricalSimilarity("m-1", "m-2")
	if math.Abs(got-0.7) > 1e-9 {
		t.Errorf("CategoricalSimilarity(m-1, m-2) = %v, want 0.7", got)
	}

	// symmetric
	if rev := idx.CategoricalSimilarity("m-2", "m-1"); math.Abs(rev-got) > 1e-12 {
		t.Errorf("similarity not symmetric: %v vs %v", got, rev)
	}

	// m-1 vs m-3: everything differs, only shared-field average applies
	low := idx.CategoricalSimilarity("m-1", "m-3")
	if low >= got {
		t.Errorf("unrelated materials similarity %v should be below related %v", low, got)
	}

	// unknown material
	if s := idx.CategoricalSimilarity("m-1", "nope"); s != 0 {
		t.Errorf("similarity with unknown material = %v, want 0", s)
	}
}

func TestCombinedSimilarityWeighting(t *testing.T) {
	idx := BuildIndex(indexMaterials(), Vectorizer{}, DefaultTextWeight)

	text := idx.TextSimilarity("m-1", "m-2")
	cat := idx.CategoricalSimilarity("m-1", "m-2")
	want := 0.6*text + 0.4*cat
	if got := idx.CombinedSimilarity("m-1", "m-2"); math.Abs(got-want) > 1e-9 {
		t.Errorf("CombinedSimilarity() = %v, want %v", got, want)
	}
	if text <= 0 {
		t.Error("shared-text materials should have positive text similarity")
	}
}

func TestDegradedIndexFallsBackToCategorical(t *testing.T) {
	// all content text filters out: vocabulary is empty
	materials := map[string]*core.Material{
		"m-1": {ID: "m-1", Title: "a", Categories: []string{"Mathematik"}, Grades: []string{"Klasse 3"}},
		"m-2": {ID: "m-2", Title: "b", Categories: []string{"Mathematik"}, Grades: []string{"Klasse 3"}},
	}
	for _, m := range materials {
		m.Categories, m.Grades = nil, nil // keep text empty too
		m.Title = ""
	}
	idx := BuildIndex(materials, Vectorizer{}, DefaultTextWeight)

	if !idx.TextDegraded() {
		t.Fatal("index should be degraded on empty vocabulary")
	}
	if s := idx.TextSimilarity("m-1", "m-2"); s != 0 {
		t.Errorf("degraded text similarity = %v, want 0", s)
	}
	// combined falls back to pure categorical (bundle field matches)
	if got, want := idx.CombinedSimilarity("m-1", "m-2"), 1.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("degraded combined similarity = %v, want %v", got, want)
	}
}

func TestProviderCachesByVersion(t *testing.T) {
	catalog := &fakeCatalog{materials: indexMaterials(), version: "v1"}
	p := NewProvider()

	first, err := p.Get(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	again, err := p.Get(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first != again {
		t.Error("same catalog version should return the cached index")
	}
	if calls := catalog.materialCalls.Load(); calls != 1 {
		t.Errorf("materials loaded %d times, want 1", calls)
	}

	catalog.version = "v2"
	rebuilt, err := p.Get(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rebuilt == first {
		t.Error("version change should rebuild the index")
	}
}

func TestProviderBuildsOnceUnderConcurrentAccess(t *testing.T) {
	catalog := &fakeCatalog{materials: indexMaterials(), version: "v1"}
	p := NewProvider()

	const readers = 16
	indexes := make([]*Index, readers)
	errs := make([]error, readers)

	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			indexes[i], errs[i] = p.Get(context.Background(), catalog)
		}(i)
	}
	wg.Wait()

	for i := 0; i < readers; i++ {
		if errs[i] != nil {
			t.Fatalf("Get() error = %v", errs[i])
		}
		if indexes[i] != indexes[0] {
			t.Fatal("concurrent readers must share the same index")
		}
	}
	if calls := catalog.materialCalls.Load(); calls != 1 {
		t.Errorf("materials loaded %d times under concurrent access, want 1", calls)
	}
}

type fakeCatalog struct {
	materials     map[string]*core.Material
	version       string
	materialCalls atomic.Int32
}

func (c *fakeCatalog) Materials(ctx context.Context) (map[string]*core.Material, error) {
	c.materialCalls.Add(1)
	return c.materials, nil
}

func (c *fakeCatalog) Version(ctx context.Context) (string, error) {
	return c.version, nil
}
