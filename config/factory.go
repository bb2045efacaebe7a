package config

import (
	"context"
	"fmt"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/feature"
	"github.com/materialmarkt/matkit/filter"
	"github.com/materialmarkt/matkit/pipeline"
	"github.com/materialmarkt/matkit/pkg/conv"
	"github.com/materialmarkt/matkit/rank"
	"github.com/materialmarkt/matkit/recall"
	"github.com/materialmarkt/matkit/rerank"
)

// Deps 是 Node 构建器需要的运行时依赖。
type Deps struct {
	Catalog core.CatalogSource
	KV      core.KeyValueStore
	Scorer  *rank.Scorer
	Index   func(ctx context.Context) (*feature.Index, error)
}

// NewNodeFactory 注册全部内置 Node 类型，支持从 YAML/JSON 装配 Pipeline。
//
// 支持的类型与配置项：
//
//	recall.catalog           {}
//	recall.popularity        {top_n}
//	recall.fanout            {sources: [recall.* 类型名], concurrency, fail_fast}
//	filter                   {interacted: true, rules: [CEL 表达式]}
//	rank.scorer              {concurrency}
//	rerank.author_diversity  {per_author}
//	rerank.fallback          {pool_multiplier, per_author}
//	rerank.topn              {n}
func NewNodeFactory(deps Deps) *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()

	f.Register("recall.catalog", func(cfg map[string]any) (pipeline.Node, error) {
		if deps.Catalog == nil {
			return nil, fmt.Errorf("recall.catalog: catalog source not configured")
		}
		return recall.NewCatalogNode(deps.Catalog), nil
	})

	f.Register("recall.popularity", func(cfg map[string]any) (pipeline.Node, error) {
		if deps.Catalog == nil {
			return nil, fmt.Errorf("recall.popularity: catalog source not configured")
		}
		node := recall.NewPopularityNode(deps.Catalog, deps.KV)
		node.TopN = conv.ConfigGetInt(cfg, "top_n", 0)
		if deps.Scorer != nil {
			node.Score = deps.Scorer.FallbackScore
		}
		return node, nil
	})

	f.Register("recall.fanout", func(cfg map[string]any) (pipeline.Node, error) {
		names := conv.SliceAnyToString(cfg["sources"])
		if len(names) == 0 {
			return nil, fmt.Errorf("recall.fanout: sources must not be empty")
		}
		sources := make([]recall.Source, 0, len(names))
		for _, name := range names {
			sub, err := f.Build(name, nil)
			if err != nil {
				return nil, fmt.Errorf("recall.fanout: %w", err)
			}
			sources = append(sources, recall.NodeSource{Node: sub})
		}
		node := recall.NewFanoutNode(sources...)
		node.Concurrency = conv.ConfigGetInt(cfg, "concurrency", 0)
		node.FailFast = conv.ConfigGet(cfg, "fail_fast", false)
		return node, nil
	})

	f.Register("filter", func(cfg map[string]any) (pipeline.Node, error) {
		filters := make([]filter.Filter, 0, 2)
		if conv.ConfigGet(cfg, "interacted", true) {
			filters = append(filters, filter.InteractedFilter{})
		}
		if rules := conv.SliceAnyToString(cfg["rules"]); len(rules) > 0 {
			filters = append(filters, filter.NewRulesFilter(rules))
		}
		return filter.NewNode(filters...), nil
	})

	f.Register("rank.scorer", func(cfg map[string]any) (pipeline.Node, error) {
		if deps.Scorer == nil {
			return nil, fmt.Errorf("rank.scorer: scorer not configured")
		}
		node := rank.NewScorerNode(deps.Scorer, deps.Index)
		node.Concurrency = conv.ConfigGetInt(cfg, "concurrency", 0)
		return node, nil
	})

	f.Register("rerank.author_diversity", func(cfg map[string]any) (pipeline.Node, error) {
		perAuthor := conv.ConfigGetInt(cfg, "per_author", 0)
		var fallbackScore func(*core.Material) float64
		if deps.Scorer != nil {
			fallbackScore = deps.Scorer.FallbackScore
		}
		return rerank.NewAuthorDiversityNode(perAuthor, fallbackScore), nil
	})

	f.Register("rerank.fallback", func(cfg map[string]any) (pipeline.Node, error) {
		return rerank.NewFallbackPadNode(
			conv.ConfigGetInt(cfg, "pool_multiplier", 0),
			conv.ConfigGetInt(cfg, "per_author", 0),
		), nil
	})

	f.Register("rerank.topn", func(cfg map[string]any) (pipeline.Node, error) {
		return rerank.NewTopNNode(conv.ConfigGetInt(cfg, "n", 0)), nil
	})

	return f
}
