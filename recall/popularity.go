package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pipeline"
	"github.com/materialmarkt/matkit/pkg/utils"
)

// HotKey 是热度榜在 KV 存储里的 zset key。
const HotKey = "hot:materials"

// PopularityNode 热度召回：优先读存储里的热度榜，
// 榜单缺失时退回目录按畅销评分现算。冷启动用户的兜底候选来源。
type PopularityNode struct {
	catalog core.CatalogSource
	kv      core.KeyValueStore

	// Score 把素材映射为热度分，目录兜底路径使用。
	// 为 nil 时取 bestseller_rating / 1000 封顶 1.0。
	Score func(m *core.Material) float64

	// TopN 召回条数上限，<= 0 表示不截断。
	TopN int

	Logger zerolog.Logger
}

// NewPopularityNode 创建热度召回节点；kv 可为 nil（纯目录模式）。
func NewPopularityNode(catalog core.CatalogSource, kv core.KeyValueStore) *PopularityNode {
	return &PopularityNode{
		catalog: catalog,
		kv:      kv,
		Logger:  zerolog.Nop(),
	}
}

func (n *PopularityNode) Name() string        { return "recall.popularity" }
func (n *PopularityNode) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *PopularityNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	materials, err := n.catalog.Materials(ctx)
	if err != nil {
		return nil, err
	}

	ranked, fromStore := n.fromStore(ctx, materials)
	if !fromStore {
		ranked = n.fromCatalog(materials)
	}
	if n.TopN > 0 && len(ranked) > n.TopN {
		ranked = ranked[:n.TopN]
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.ID] = struct{}{}
	}

	out := items
	for _, r := range ranked {
		if _, ok := seen[r.id]; ok {
			continue
		}
		it := core.NewItem(r.id)
		it.Material = materials[r.id]
		it.Score = r.score
		it.Components.Popularity = r.score
		it.AddFactor(core.Factor{Kind: core.FactorPopularityBaseline, Magnitude: r.score})
		it.PutLabel("recall_source", utils.Label{Value: n.Name(), Source: n.Name()})
		out = append(out, it)
	}
	return out, nil
}

type rankedMaterial struct {
	id    string
	score float64
}

// fromStore 读存储热度榜；榜单不存在或为空时返回 false 走目录兜底。
func (n *PopularityNode) fromStore(ctx context.Context, materials map[string]*core.Material) ([]rankedMaterial, bool) {
	if n.kv == nil {
		return nil, false
	}

	stop := int64(-1)
	if n.TopN > 0 {
		stop = int64(n.TopN) - 1
	}
	members, err := n.kv.ZRange(ctx, HotKey, 0, stop)
	if err != nil {
		n.Logger.Warn().Err(err).Str("key", HotKey).Msg("recall: hot list unavailable, falling back to catalog")
		return nil, false
	}
	if len(members) == 0 {
		return nil, false
	}

	ranked := make([]rankedMaterial, 0, len(members))
	for _, id := range members {
		if _, ok := materials[id]; !ok {
			// 榜单滞后于目录下架，跳过
			continue
		}
		score, err := n.kv.ZScore(ctx, HotKey, id)
		if err != nil {
			score = 0
		}
		ranked = append(ranked, rankedMaterial{id: id, score: score})
	}
	return ranked, len(ranked) > 0
}

// fromCatalog 按热度分现算排序，同分按 ID 字典序。
func (n *PopularityNode) fromCatalog(materials map[string]*core.Material) []rankedMaterial {
	score := n.Score
	if score == nil {
		score = defaultPopularity
	}

	ranked := make([]rankedMaterial, 0, len(materials))
	for id, m := range materials {
		ranked = append(ranked, rankedMaterial{id: id, score: score(m)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	return ranked
}

func defaultPopularity(m *core.Material) float64 {
	s := m.BestsellerRating / 1000
	if s > 1 {
		s = 1
	}
	if s < 0 {
		s = 0
	}
	return s
}

// PublishHotList 把目录的热度分写入存储热度榜，供离线任务定期刷新。
func PublishHotList(ctx context.Context, kv core.KeyValueStore, materials map[string]*core.Material, score func(m *core.Material) float64) error {
	if score == nil {
		score = defaultPopularity
	}
	for id, m := range materials {
		if err := kv.ZAdd(ctx, HotKey, score(m), id); err != nil {
			return fmt.Errorf("publish hot list: %w", err)
		}
	}
	return nil
}
