package rank

import (
	"context"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/feature"
	"github.com/materialmarkt/matkit/pipeline"
)

// RngParam 是 rctx.Params 里随机源的 key，由调用方注入 *rand.Rand。
// 未注入且 DiversityFactor > 0 时节点自建随机源（不可复现）。
const RngParam = "rng"

// ScorerNode 对候选并发打分，再做探索扰动与排序。
//
// 排序约定：
//   - 正常候选在前（按最终分降序），fallback 候选在后（按热度×新鲜度降序）
//   - 同分按 ID 字典序，零扰动时输出完全确定
//   - 扰动按 ID 排序后顺序消费随机源，固定 seed 下可复现
type ScorerNode struct {
	Scorer *Scorer

	// Index 按需提供相似度索引；为 nil 时内容维度记 0 分。
	Index func(ctx context.Context) (*feature.Index, error)

	// Concurrency 打分并发上限，<= 0 时取 8。
	Concurrency int
}

func NewScorerNode(scorer *Scorer, index func(ctx context.Context) (*feature.Index, error)) *ScorerNode {
	return &ScorerNode{Scorer: scorer, Index: index}
}

func (n *ScorerNode) Name() string        { return "rank.scorer" }
func (n *ScorerNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ScorerNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	var idx *feature.Index
	if n.Index != nil {
		var err error
		idx, err = n.Index(ctx)
		if err != nil {
			return nil, err
		}
	}

	limit := n.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, it := range items {
		it := it
		g.Go(func() error {
			n.Scorer.Score(rctx.Profile, idx, rctx.Season, it)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d := rctx.DiversityFactor; d > 0 {
		perturb(rctx, items, d)
	}

	SortItems(items)
	return items, nil
}

// perturb 按多样性因子混入随机分：final = score·(1−d) + random·d。
// 只作用于正常候选；消费随机源前先按 ID 排序，保证 seed 可复现。
func perturb(rctx *core.RecommendContext, items []*core.Item, d float64) {
	if d > 1 {
		d = 1
	}
	rng := rngFrom(rctx)

	ordered := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if !it.Fallback {
			ordered = append(ordered, it)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, it := range ordered {
		it.Score = it.Score*(1-d) + rng.Float64()*d
	}
}

func rngFrom(rctx *core.RecommendContext) *rand.Rand {
	if rctx.Params != nil {
		if rng, ok := rctx.Params[RngParam].(*rand.Rand); ok && rng != nil {
			return rng
		}
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

// SortItems 按约定排序：正常候选在前按分降序，fallback 在后按分降序，
// 同分按 ID 字典序。
func SortItems(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Fallback != b.Fallback {
			return !a.Fallback
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
}
