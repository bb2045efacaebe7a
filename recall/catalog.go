package recall

import (
	"context"
	"sort"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pipeline"
	"github.com/materialmarkt/matkit/pkg/utils"
)

// CatalogNode 全目录召回：把目录快照里的每一份素材都作为候选输出。
// 目录规模在万级以内时这是最简单可靠的召回方式，个性化完全交给 rank 阶段。
type CatalogNode struct {
	source core.CatalogSource
}

func NewCatalogNode(source core.CatalogSource) *CatalogNode {
	return &CatalogNode{source: source}
}

func (n *CatalogNode) Name() string        { return "recall.catalog" }
func (n *CatalogNode) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 输出目录里的全部素材，按 ID 排序保证候选顺序确定。
// 已有的输入 items 原样保留（支持与其他召回串联）。
func (n *CatalogNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	materials, err := n.source.Materials(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.ID] = struct{}{}
	}

	ids := make([]string, 0, len(materials))
	for id := range materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := items
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		it := core.NewItem(id)
		it.Material = materials[id]
		it.PutLabel("recall_source", utils.Label{Value: n.Name(), Source: n.Name()})
		out = append(out, it)
	}
	return out, nil
}
