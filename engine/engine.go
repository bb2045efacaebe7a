package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/feature"
	"github.com/materialmarkt/matkit/filter"
	"github.com/materialmarkt/matkit/pipeline"
	"github.com/materialmarkt/matkit/profile"
	"github.com/materialmarkt/matkit/rank"
	"github.com/materialmarkt/matkit/recall"
	"github.com/materialmarkt/matkit/rerank"
)

// Options 是引擎的装配配置。
type Options struct {
	// Weights 画像事件权重表，零值时取默认表。
	Weights profile.WeightTable

	// Buckets 价格分档边界，零值时取默认边界。
	Buckets core.PriceBuckets

	// Scorer 打分参数，零值时取默认参数。
	Scorer rank.ScorerConfig

	// PerAuthor 作者多样性上限，0 时取默认值 3。
	PerAuthor int

	// FallbackPoolMultiplier fallback 池容量倍数，0 时取 2。
	FallbackPoolMultiplier int

	// Rules 额外的 CEL 过滤规则（任一命中即剔除候选）。
	Rules []string

	// KV 可选的 KV 存储（热度榜等）；为 nil 时热度现算。
	KV core.KeyValueStore

	// Concurrency 打分并发上限。
	Concurrency int

	// Now 新鲜度计算的时间源，为 nil 时取墙钟（测试与离线回放时注入）。
	Now func() time.Time

	Logger zerolog.Logger
}

// Engine 把画像构建、特征索引、推荐 Pipeline 装配成一个可直接调用的门面。
// 装配完成后可并发使用。
type Engine struct {
	catalog core.CatalogSource
	events  core.EventSource

	builder  *profile.Builder
	provider *feature.Provider
	scorer   *rank.Scorer
	pipe     *pipeline.Pipeline
	baseline *pipeline.Pipeline

	kv     core.KeyValueStore
	logger zerolog.Logger
}

// New 装配推荐引擎。
func New(catalog core.CatalogSource, events core.EventSource, opts Options) *Engine {
	if opts.Weights.Category == nil {
		opts.Weights = profile.DefaultWeightTable()
	}
	if opts.Buckets == (core.PriceBuckets{}) {
		opts.Buckets = core.DefaultPriceBuckets()
	}
	if opts.Scorer == (rank.ScorerConfig{}) {
		opts.Scorer = rank.DefaultScorerConfig()
	}

	builder := profile.NewBuilder(opts.Weights, opts.Buckets)
	builder.Logger = opts.Logger

	provider := feature.NewProvider()
	provider.Logger = opts.Logger

	scorer := &rank.Scorer{Config: opts.Scorer, Buckets: opts.Buckets, Now: opts.Now}

	e := &Engine{
		catalog:  catalog,
		events:   events,
		builder:  builder,
		provider: provider,
		scorer:   scorer,
		kv:       opts.KV,
		logger:   opts.Logger,
	}

	indexFn := func(ctx context.Context) (*feature.Index, error) {
		return provider.Get(ctx, catalog)
	}

	filters := []filter.Filter{filter.InteractedFilter{}}
	if len(opts.Rules) > 0 {
		filters = append(filters, filter.NewRulesFilter(opts.Rules))
	}

	scorerNode := rank.NewScorerNode(scorer, indexFn)
	scorerNode.Concurrency = opts.Concurrency

	e.pipe = &pipeline.Pipeline{Nodes: []pipeline.Node{
		recall.NewCatalogNode(catalog),
		filter.NewNode(filters...),
		scorerNode,
		rerank.NewAuthorDiversityNode(opts.PerAuthor, scorer.FallbackScore),
		rerank.NewFallbackPadNode(opts.FallbackPoolMultiplier, opts.PerAuthor),
		rerank.NewTopNNode(0),
	}}

	// 冷启动基线：纯热度召回，不做个性化打分
	popularity := recall.NewPopularityNode(catalog, opts.KV)
	popularity.Score = scorer.FallbackScore
	popularity.Logger = opts.Logger
	e.baseline = &pipeline.Pipeline{Nodes: []pipeline.Node{
		popularity,
		filter.NewNode(filters...),
		rerank.NewTopNNode(0),
	}}

	return e
}

// RecommendOptions 是单次推荐请求的参数。
type RecommendOptions struct {
	// Limit 期望条数，必须 >= 1。
	Limit int

	// DiversityFactor ∈ [0, 1]：最终分 = 综合分·(1−d) + 随机·d。
	DiversityFactor float64

	// Season 请求时的季节标签；为空不做季节加成。
	Season string

	// Seed 探索扰动的随机种子；Rand 非 nil 时优先。
	Seed int64

	// Rand 显式注入的随机源（复现实验用）。
	Rand *rand.Rand
}

// Recommend 为用户生成推荐。
//
// 行为约定：
//   - limit < 1 或 diversity 出界返回 INVALID_INPUT
//   - 目录为空返回空结果，Reason = EMPTY_CATALOG
//   - 过滤后无候选返回空结果，Reason = CANDIDATES_EXHAUSTED
//   - 冷启动用户走热度基线，Baseline = true
func (e *Engine) Recommend(ctx context.Context, userID string, opts RecommendOptions) (*core.RecommendationResult, error) {
	if opts.Limit < 1 {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: limit must be >= 1")
	}
	if opts.DiversityFactor < 0 || opts.DiversityFactor > 1 {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: diversity factor must be in [0, 1]")
	}

	materials, err := e.catalog.Materials(ctx)
	if err != nil {
		return nil, err
	}
	if len(materials) == 0 {
		return &core.RecommendationResult{UserID: userID, Reason: core.ReasonEmptyCatalog}, nil
	}

	p, err := e.BuildProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID:          userID,
		Profile:         p,
		Limit:           opts.Limit,
		DiversityFactor: opts.DiversityFactor,
		Season:          opts.Season,
		Params:          map[string]any{},
	}
	if opts.Rand != nil {
		rctx.Params[rank.RngParam] = opts.Rand
	} else if opts.Seed != 0 {
		rctx.Params[rank.RngParam] = rand.New(rand.NewSource(opts.Seed))
	}

	result := &core.RecommendationResult{UserID: userID, Reason: core.ReasonOK}

	pipe := e.pipe
	if p.IsColdStart() {
		pipe = e.baseline
		result.Baseline = true
	}

	items, err := pipe.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	result.Items = items
	if len(items) == 0 {
		result.Reason = core.ReasonExhausted
	}

	e.logger.Debug().
		Str("user_id", userID).
		Int("limit", opts.Limit).
		Int("returned", len(items)).
		Int("fallback", result.FallbackCount()).
		Bool("baseline", result.Baseline).
		Str("reason", result.Reason).
		Msg("engine: recommendation served")
	return result, nil
}

// BuildProfile 从事件源重建用户画像。未知用户得到空画像（冷启动）。
func (e *Engine) BuildProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: user id must not be empty")
	}
	events, err := e.events.UserEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	materials, err := e.catalog.Materials(ctx)
	if err != nil {
		return nil, err
	}
	return e.builder.Build(userID, events, materials), nil
}

// RecordExposure 把本次曝光写入存储（zset "exposure:<user_id>"，score 为
// 曝光时刻的 Unix 秒），供离线的曝光去重与疲劳度控制消费。
// 未配置 KV 存储时为 no-op。
func (e *Engine) RecordExposure(ctx context.Context, userID string, items []*core.Item, at time.Time) error {
	if e.kv == nil {
		return nil
	}
	key := "exposure:" + userID
	score := float64(at.Unix())
	for _, it := range items {
		if err := e.kv.ZAdd(ctx, key, score, it.ID); err != nil {
			return err
		}
	}
	return nil
}

// Index 暴露当前目录版本的相似度索引（离线分析 / 调试用）。
func (e *Engine) Index(ctx context.Context) (*feature.Index, error) {
	return e.provider.Get(ctx, e.catalog)
}

// InvalidateIndex 丢弃缓存的相似度索引，下次请求强制重建。
func (e *Engine) InvalidateIndex() {
	e.provider.Invalidate()
}
