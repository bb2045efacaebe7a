package rerank

import (
	"context"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pipeline"
	"github.com/materialmarkt/matkit/pkg/utils"
	"github.com/materialmarkt/matkit/rank"
)

// 作者上限的允许区间：低于 2 伤相关性，高于 4 伤多样性。
const (
	MinPerAuthor     = 2
	MaxPerAuthor     = 4
	DefaultPerAuthor = 3
)

// AuthorDiversityNode 限制同一作者在正常候选里的数量。
// 超限的候选不直接丢弃，而是降级进 fallback 池并按热度×新鲜度重新给分，
// 结果不足时仍可回补。
type AuthorDiversityNode struct {
	// PerAuthor 同一作者的正常候选上限，自动夹到 [2, 4]。
	PerAuthor int

	// FallbackScore 给被降级候选重新定序；为 nil 时保留原分。
	FallbackScore func(m *core.Material) float64
}

func NewAuthorDiversityNode(perAuthor int, fallbackScore func(m *core.Material) float64) *AuthorDiversityNode {
	return &AuthorDiversityNode{PerAuthor: perAuthor, FallbackScore: fallbackScore}
}

func (n *AuthorDiversityNode) Name() string        { return "rerank.author_diversity" }
func (n *AuthorDiversityNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *AuthorDiversityNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	perAuthor := clampPerAuthor(n.PerAuthor)

	counts := make(map[string]int)
	demoted := 0
	for _, it := range items {
		if it.Fallback || it.Material == nil || it.Material.AuthorID == "" {
			continue
		}
		author := it.Material.AuthorID
		if counts[author] < perAuthor {
			counts[author]++
			continue
		}
		// 超限：降级进 fallback 池
		it.Fallback = true
		if n.FallbackScore != nil {
			it.Score = n.FallbackScore(it.Material)
		}
		it.PutLabel("demoted_by", utils.Label{Value: n.Name(), Source: n.Name()})
		demoted++
	}

	if demoted > 0 {
		rank.SortItems(items)
	}
	return items, nil
}

func clampPerAuthor(v int) int {
	if v == 0 {
		return DefaultPerAuthor
	}
	if v < MinPerAuthor {
		return MinPerAuthor
	}
	if v > MaxPerAuthor {
		return MaxPerAuthor
	}
	return v
}
