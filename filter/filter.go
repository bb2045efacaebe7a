package filter

import (
	"context"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pipeline"
)

// Filter 判定单个候选是否保留。
type Filter interface {
	Name() string

	// Keep 返回 true 表示候选通过该过滤器。
	Keep(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Node 串联多个 Filter：候选需通过全部过滤器才会进入后续阶段。
type Node struct {
	filters []Filter
}

func NewNode(filters ...Filter) *Node {
	return &Node{filters: filters}
}

func (n *Node) Name() string        { return "filter" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *Node) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if len(n.filters) == 0 {
		return items, nil
	}

	out := items[:0]
	for _, it := range items {
		keep := true
		for _, f := range n.filters {
			ok, err := f.Keep(ctx, rctx, it)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, it)
		}
	}
	return out, nil
}
