package pipeline

import (
	"context"

	"github.com/materialmarkt/matkit/core"
)

// Pipeline 是 matkit 的核心抽象：把推荐逻辑拆成可组合的 Node 链
// （Recall → Filter → Rank → ReRank → PostProcess）。
type Pipeline struct {
	Nodes []Node
}

// Run 依次执行各 Node。候选集一旦为空，后续非召回节点直接跳过
// （过滤/排序/重排在空集上没有意义，召回节点仍可能补充候选）。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(cur) == 0 && node.Kind() != KindRecall {
			continue
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
