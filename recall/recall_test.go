package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/store"
)

func recallCatalog() *store.MemoryCatalog {
	return store.NewMemoryCatalog(map[string]*core.Material{
		"m-1": {ID: "m-1", BestsellerRating: 300},
		"m-2": {ID: "m-2", BestsellerRating: 900},
		"m-3": {ID: "m-3", BestsellerRating: 600},
	})
}

func TestCatalogNodeEmitsAll(t *testing.T) {
	node := NewCatalogNode(recallCatalog())
	rctx := &core.RecommendContext{UserID: "u1"}

	items, err := node.Process(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	// sorted by ID, materials attached, recall source labelled
	for i, want := range []string{"m-1", "m-2", "m-3"} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %s, want %s", i, items[i].ID, want)
		}
		if items[i].Material == nil {
			t.Errorf("items[%d] missing material", i)
		}
		if lbl, ok := items[i].Labels["recall_source"]; !ok || lbl.Value != "recall.catalog" {
			t.Errorf("items[%d] missing recall_source label", i)
		}
	}
}

func TestCatalogNodeKeepsExistingItems(t *testing.T) {
	node := NewCatalogNode(recallCatalog())
	seed := core.NewItem("m-2")
	seed.Score = 42

	items, err := node.Process(context.Background(), &core.RecommendContext{}, []*core.Item{seed})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3 (no duplicate for m-2)", len(items))
	}
	if items[0] != seed {
		t.Error("pre-existing item should be preserved as-is")
	}
}

func TestPopularityNodeFromCatalog(t *testing.T) {
	node := NewPopularityNode(recallCatalog(), nil)
	items, err := node.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i, want := range []string{"m-2", "m-3", "m-1"} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %s, want %s (rating desc)", i, items[i].ID, want)
		}
	}
	if items[0].Score != 0.9 {
		t.Errorf("top score = %v, want 0.9", items[0].Score)
	}
	if len(items[0].Factors) == 0 || items[0].Factors[0].Kind != core.FactorPopularityBaseline {
		t.Error("popularity recall should record the baseline factor")
	}
}

func TestPopularityNodeFromStore(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	catalog := recallCatalog()

	materials, _ := catalog.Materials(ctx)
	if err := PublishHotList(ctx, kv, materials, nil); err != nil {
		t.Fatalf("PublishHotList() error = %v", err)
	}
	// stale entry for a delisted material must be skipped
	kv.ZAdd(ctx, HotKey, 99, "gone")

	node := NewPopularityNode(catalog, kv)
	node.TopN = 2
	items, err := node.Process(ctx, &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "m-2" {
		// TopN=2 fetches two members; "gone" is dropped, m-2 survives
		t.Errorf("items = %v, want [m-2]", idList(items))
	}
}

func TestFanoutMergesAndDedupes(t *testing.T) {
	a := sourceFunc{name: "a", items: []*core.Item{scored("m-1", 0.5), scored("m-2", 0.9)}}
	b := sourceFunc{name: "b", items: []*core.Item{scored("m-2", 0.3), scored("m-3", 0.7)}}

	node := NewFanoutNode(a, b)
	items, err := node.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3 deduped", len(items))
	}
	for _, it := range items {
		if it.ID == "m-2" && it.Score != 0.9 {
			t.Errorf("duplicate should keep max score, got %v", it.Score)
		}
	}
}

func TestFanoutSkipsFailedSource(t *testing.T) {
	ok := sourceFunc{name: "ok", items: []*core.Item{scored("m-1", 0.5)}}
	bad := sourceFunc{name: "bad", err: errors.New("backend down")}

	node := NewFanoutNode(ok, bad)
	items, err := node.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v, want partial result", err)
	}
	if len(items) != 1 {
		t.Errorf("len = %d, want 1 from the healthy source", len(items))
	}

	node.FailFast = true
	if _, err := node.Process(context.Background(), &core.RecommendContext{}, nil); err == nil {
		t.Error("fail-fast mode should surface the source error")
	}
}

type sourceFunc struct {
	name  string
	items []*core.Item
	err   error
}

func (s sourceFunc) Name() string { return s.name }

func (s sourceFunc) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	// return copies so concurrent fanout runs do not share items
	out := make([]*core.Item, len(s.items))
	for i, it := range s.items {
		cp := *it
		out[i] = &cp
	}
	return out, nil
}

func scored(id string, score float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	return it
}

func idList(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
