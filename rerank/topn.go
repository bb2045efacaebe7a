package rerank

import (
	"context"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pipeline"
)

// TopNNode 把结果截断到请求条数，作为 Pipeline 的收尾保险。
// N > 0 时以 N 为上限，否则取 rctx.Limit。
type TopNNode struct {
	N int
}

func NewTopNNode(n int) *TopNNode {
	return &TopNNode{N: n}
}

func (n *TopNNode) Name() string        { return "rerank.topn" }
func (n *TopNNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopNNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 {
		limit = rctx.Limit
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
