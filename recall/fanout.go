package recall

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/materialmarkt/matkit/core"
	"github.com/materialmarkt/matkit/pipeline"
	"github.com/materialmarkt/matkit/pkg/utils"
)

// Source 是可被 FanoutNode 并发执行的召回源。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// NodeSource 把一个召回 Node 适配成 Source（以空输入执行）。
type NodeSource struct {
	Node pipeline.Node
}

func (s NodeSource) Name() string { return s.Node.Name() }

func (s NodeSource) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	return s.Node.Process(ctx, rctx, nil)
}

// FanoutNode 并发执行多个召回源并按 ID 去重合并。
// 同一候选被多个源命中时保留最高分，标签合并（同名标签后到覆盖）。
type FanoutNode struct {
	sources []Source

	// Concurrency 并发上限，<= 0 表示不限制
	Concurrency int

	// FailFast 为 true 时任一源出错整体失败；
	// 默认跳过失败源（召回残缺好过整体不可用）。
	FailFast bool
}

func NewFanoutNode(sources ...Source) *FanoutNode {
	return &FanoutNode{sources: sources}
}

func (n *FanoutNode) Name() string        { return "recall.fanout" }
func (n *FanoutNode) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *FanoutNode) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if len(n.sources) == 0 {
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if n.Concurrency > 0 {
		g.SetLimit(n.Concurrency)
	}

	// 按源下标收集，合并顺序与注册顺序一致，结果确定
	results := make([][]*core.Item, len(n.sources))
	var mu sync.Mutex

	for i, src := range n.sources {
		i, src := i, src
		g.Go(func() error {
			got, err := src.Recall(gctx, rctx)
			if err != nil {
				if n.FailFast {
					return err
				}
				return nil
			}
			mu.Lock()
			results[i] = WithSourceLabel(got, src.Name())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*core.Item, 64)
	order := make([]string, 0, 64)
	for _, it := range items {
		merged[it.ID] = it
		order = append(order, it.ID)
	}
	for _, batch := range results {
		for _, it := range batch {
			old, ok := merged[it.ID]
			if !ok {
				merged[it.ID] = it
				order = append(order, it.ID)
				continue
			}
			if it.Score > old.Score {
				old.Score = it.Score
			}
			if old.Material == nil {
				old.Material = it.Material
			}
			for k, lbl := range it.Labels {
				old.PutLabel(k, lbl)
			}
			old.Factors = append(old.Factors, it.Factors...)
		}
	}

	out := make([]*core.Item, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out, nil
}

// WithSourceLabel 给候选打上召回来源标签，便于离线归因分析。
func WithSourceLabel(items []*core.Item, source string) []*core.Item {
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: source, Source: source})
	}
	return items
}
