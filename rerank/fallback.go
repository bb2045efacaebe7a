package rerank

import (
	"context"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pipeline"
	"github.com/materialmarkt/matkit/pkg/utils"
)

// FallbackPadNode 用 fallback 池把结果补齐到请求条数。
//
// 选取规则：
//   - 正常候选按现有顺序优先进入结果
//   - 不足时从 fallback 池回补（池容量 = limit × PoolMultiplier）
//   - 回补时仍然尊重作者上限；两个池都耗尽才允许返回不足额
type FallbackPadNode struct {
	// PoolMultiplier 控制 fallback 池容量，<= 0 时取 2。
	PoolMultiplier int

	// PerAuthor 作者上限（与 AuthorDiversityNode 用同一配置），
	// <= 0 表示回补时不做作者约束。
	PerAuthor int
}

func NewFallbackPadNode(poolMultiplier, perAuthor int) *FallbackPadNode {
	return &FallbackPadNode{PoolMultiplier: poolMultiplier, PerAuthor: perAuthor}
}

func (n *FallbackPadNode) Name() string        { return "rerank.fallback" }
func (n *FallbackPadNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *FallbackPadNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	limit := rctx.Limit
	if limit <= 0 {
		return items, nil
	}

	multiplier := n.PoolMultiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	primaries := make([]*core.Item, 0, len(items))
	pool := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it.Fallback {
			pool = append(pool, it)
		} else {
			primaries = append(primaries, it)
		}
	}
	if poolCap := limit * multiplier; len(pool) > poolCap {
		pool = pool[:poolCap]
	}

	counts := make(map[string]int)
	out := make([]*core.Item, 0, limit)
	for _, it := range primaries {
		if len(out) == limit {
			break
		}
		out = append(out, it)
		if a := author(it); a != "" {
			counts[a]++
		}
	}

	perAuthor := n.PerAuthor
	used := make(map[*core.Item]struct{}, limit)
	for _, it := range out {
		used[it] = struct{}{}
	}

	pad := func(respectCap bool) {
		for _, it := range pool {
			if len(out) == limit {
				return
			}
			if _, ok := used[it]; ok {
				continue
			}
			a := author(it)
			if respectCap && perAuthor > 0 && a != "" && counts[a] >= perAuthor {
				continue
			}
			it.PutLabel("is_fallback", utils.Label{Value: "true", Source: n.Name()})
			out = append(out, it)
			used[it] = struct{}{}
			if a != "" {
				counts[a]++
			}
		}
	}

	pad(true)
	// 仍不足额时放开作者约束再补一轮，宁可重复作者也不缺位
	if len(out) < limit && perAuthor > 0 {
		pad(false)
	}

	return out, nil
}

func author(it *core.Item) string {
	if it.Material == nil {
		return ""
	}
	return it.Material.AuthorID
}
